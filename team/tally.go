package team

import (
	"github.com/baseball-sim/strategy-engine/atbat"
	"github.com/baseball-sim/strategy-engine/models"
)

// PitchTally counts pitches of each outcome thrown at each count
type PitchTally [models.NumCounts][models.NumPitchOutcomes]float64

// TerminalTally counts plate appearances ending with each outcome at each count
type TerminalTally [models.NumCounts][models.NumTerminalOutcomes]float64

// At returns the tally row for a count
func (t *PitchTally) At(c models.Count) [models.NumPitchOutcomes]float64 {
	return t[c.Index()]
}

// Total returns the number of pitches thrown at a count
func (t *PitchTally) Total(c models.Count) float64 {
	var total float64
	for _, n := range t[c.Index()] {
		total += n
	}
	return total
}

// At returns the tally row for a count
func (t *TerminalTally) At(c models.Count) [models.NumTerminalOutcomes]float64 {
	return t[c.Index()]
}

// Totals sums each outcome across every count
func (t *TerminalTally) Totals() [models.NumTerminalOutcomes]float64 {
	var totals [models.NumTerminalOutcomes]float64
	for _, row := range t {
		for i, n := range row {
			totals[i] += n
		}
	}
	return totals
}

// BuildTallies derives the per-count pitch and terminal-outcome tallies from plate appearances.
// Every pitch is charged to the count it was thrown in; each plate appearance's result is
// charged to the count of its final pitch.
func BuildTallies(atBats []models.AtBat) (PitchTally, TerminalTally) {
	var pitches PitchTally
	var terminals TerminalTally

	for _, ab := range atBats {
		counts := atbat.Progression(ab.Pitches)
		for i, pitch := range ab.Pitches {
			pitches[counts[i].Index()][pitch]++
		}
		terminals[counts[len(counts)-1].Index()][ab.Outcome]++
	}

	return pitches, terminals
}
