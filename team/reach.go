package team

import (
	"github.com/baseball-sim/strategy-engine/atbat"
	"github.com/baseball-sim/strategy-engine/models"
)

// ReachTable gives, for plate appearances that passed through a count (row), the share that
// went on to end at each later count (column). A count's own column is always zero.
type ReachTable [models.NumCounts][models.NumCounts]float64

// BuildReachTable tallies where plate appearances finished after reaching each count
func BuildReachTable(atBats []models.AtBat) ReachTable {
	var reached ReachTable

	for _, ab := range atBats {
		counts := atbat.Progression(ab.Pitches)
		final := counts[len(counts)-1].Index()

		var seen [models.NumCounts]bool
		for _, c := range counts {
			i := c.Index()
			if seen[i] || i == final {
				continue
			}
			seen[i] = true
			reached[i][final]++
		}
	}

	for i := range reached {
		var total float64
		for _, n := range reached[i] {
			total += n
		}
		if total == 0 {
			continue
		}
		for j := range reached[i] {
			reached[i][j] /= total
		}
	}

	return reached
}
