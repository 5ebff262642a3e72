package atbat

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/strategy-engine/models"
)

// ErrUnmappedResult marks a row whose result code does not end a plate appearance
var ErrUnmappedResult = errors.New("result code has no terminal outcome")

// ParsePitches classifies a cleaned pitch string, skipping symbols that are not pitches
func ParsePitches(pitches string) []models.PitchOutcome {
	outcomes := make([]models.PitchOutcome, 0, len(pitches))
	for _, code := range pitches {
		if outcome, ok := models.ClassifyPitch(code); ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// ParseAtBat builds the normalized record for one cleaned play
func ParseAtBat(team string, play models.Play) (models.AtBat, error) {
	outcome, ok := models.ClassifyResult(play.Event)
	if !ok {
		return models.AtBat{}, fmt.Errorf("%w: %q in game %s", ErrUnmappedResult, play.Event, play.GameID)
	}

	return models.AtBat{
		Team:     team,
		GameID:   play.GameID,
		Inning:   play.Inning,
		BatterID: play.BatterID,
		Pitches:  ParsePitches(play.Pitches),
		Outcome:  outcome,
		Contact:  models.ClassifyContact(play.Event),
	}, nil
}

// ParseAtBats parses cleaned plays, dropping rows with unmapped result codes
func ParseAtBats(team string, plays []models.Play) []models.AtBat {
	atBats := make([]models.AtBat, 0, len(plays))
	skipped := 0
	for _, play := range plays {
		atBat, err := ParseAtBat(team, play)
		if err != nil {
			skipped++
			log.Debug().Err(err).Str("team", team).Int("seq", play.Seq).Msg("Skipping play")
			continue
		}
		atBats = append(atBats, atBat)
	}

	if skipped > 0 {
		log.Warn().Str("team", team).Int("skipped", skipped).Msg("Plays without a terminal outcome were skipped")
	}

	return atBats
}
