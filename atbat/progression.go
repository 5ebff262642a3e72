package atbat

import (
	"github.com/baseball-sim/strategy-engine/models"
)

// Progression returns the count in effect when each pitch of a plate appearance was thrown.
// The first entry is always 0-0; the final pitch only contributes its starting count because
// its outcome ends the plate appearance. Balls hold at three (a fourth ball recorded before the
// plate appearance ends is a scoring artifact) and strikes hold at two, so fouls with two
// strikes repeat the count.
func Progression(pitches []models.PitchOutcome) []models.Count {
	counts := make([]models.Count, 0, len(pitches)+1)

	current := models.Count{}
	counts = append(counts, current)
	for i := 0; i < len(pitches)-1; i++ {
		switch {
		case pitches[i].IsBall():
			current = current.AddBall()
		case pitches[i].IsStrike():
			current = current.AddStrike()
		}
		counts = append(counts, current)
	}

	return counts
}

// FinalCount is the count the last pitch of the plate appearance was thrown in
func FinalCount(pitches []models.PitchOutcome) models.Count {
	counts := Progression(pitches)
	return counts[len(counts)-1]
}
