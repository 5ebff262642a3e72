package strategy

import (
	"math"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/team"
)

const roundoffEpsilon = 1e-12

// ModifiedCount is one count's pitch outcomes after a scenario is applied. Balls in play are
// already split into their plate appearance results, indexed by TerminalOutcome.
type ModifiedCount struct {
	Count          models.Count                        `json:"count"`
	Ball           float64                             `json:"ball"`
	HitByPitch     float64                             `json:"hit_by_pitch"`
	CalledStrike   float64                             `json:"called_strike"`
	SwingingStrike float64                             `json:"swinging_strike"`
	FoulBunt       float64                             `json:"foul_bunt"`
	Foul           float64                             `json:"foul"`
	InPlay         [models.NumTerminalOutcomes]float64 `json:"in_play"`
}

// InPlayTotal is the number of fair balls at this count
func (m ModifiedCount) InPlayTotal() float64 {
	var total float64
	for _, n := range m.InPlay {
		total += n
	}
	return total
}

// Total is every pitch recorded at this count
func (m ModifiedCount) Total() float64 {
	return m.Ball + m.HitByPitch + m.CalledStrike + m.SwingingStrike + m.FoulBunt + m.Foul + m.InPlayTotal()
}

// ModifiedTally holds the modified outcomes of every count, in count index order
type ModifiedTally [models.NumCounts]ModifiedCount

// At returns the modified outcomes for a count
func (t *ModifiedTally) At(c models.Count) ModifiedCount {
	return t[c.Index()]
}

// Apply moves pitches between categories as the change matrix says and rebuilds the tally.
// Hit-by-pitch and foul bunts keep their baseline values. Contact is divided between fouls and
// fair balls, and fair balls between results, in the proportions the baseline recorded at that
// count; counts with no baseline contact use the season-wide proportions. A zero change matrix
// reproduces the baseline tally.
func Apply(profile *team.Profile, changes *ChangeMatrix) ModifiedTally {
	var out ModifiedTally

	seasonContact, seasonResults := seasonProportions(profile)

	for _, count := range models.AllCounts() {
		i := count.Index()
		row := profile.Pitches.At(count)
		ch := changes[i]

		m := ModifiedCount{
			Count:      count,
			HitByPitch: row[models.HitByPitch],
			FoulBunt:   row[models.FoulBunt],
		}
		m.Ball = roundoff(row[models.Ball] + ch.XToB + ch.SToB - ch.BToX - ch.BToS)
		m.CalledStrike = roundoff(row[models.CalledStrike] + ch.XToC + ch.SToC - ch.CToX - ch.CToS)
		m.SwingingStrike = roundoff(row[models.SwingingStrike] + ch.CToS + ch.BToS - ch.SToB - ch.SToC)

		contact := roundoff(row[models.Foul] + row[models.BallInPlay] + ch.CToX + ch.BToX - ch.XToB - ch.XToC)

		split := proportion(contact, []float64{row[models.Foul], row[models.BallInPlay]}, seasonContact, 1)
		m.Foul = split[0]
		fair := split[1]

		terminals := profile.Terminals.At(count)
		inPlay := models.InPlayOutcomes()
		weights := make([]float64, len(inPlay))
		for k, o := range inPlay {
			weights[k] = terminals[o]
		}
		results := proportion(fair, weights, seasonResults, 0)
		for k, o := range inPlay {
			m.InPlay[o] = results[k]
		}

		out[i] = m
	}

	return out
}

// Baseline is the modified tally with no pitches converted
func Baseline(profile *team.Profile) ModifiedTally {
	return Apply(profile, &ChangeMatrix{})
}

func seasonProportions(profile *team.Profile) (contact, results []float64) {
	contact = make([]float64, 2)
	for _, count := range models.AllCounts() {
		row := profile.Pitches.At(count)
		contact[0] += row[models.Foul]
		contact[1] += row[models.BallInPlay]
	}

	totals := profile.Terminals.Totals()
	inPlay := models.InPlayOutcomes()
	results = make([]float64, len(inPlay))
	for k, o := range inPlay {
		results[k] = totals[o]
	}
	return contact, results
}

// proportion divides amount by weights, falling back to the season weights and finally
// to putting everything in slot def. Shares are computed as w*amount/sum so equal inputs
// return the weights unchanged.
func proportion(amount float64, weights, season []float64, def int) []float64 {
	out := make([]float64, len(weights))
	for _, w := range [][]float64{weights, season} {
		var sum float64
		for _, x := range w {
			sum += x
		}
		if sum > 0 {
			for k, x := range w {
				out[k] = x * amount / sum
			}
			return out
		}
	}
	out[def] = amount
	return out
}

// roundoff clears floating point residue left when a category is fully converted
func roundoff(x float64) float64 {
	if math.Abs(x) < roundoffEpsilon {
		return 0
	}
	return x
}
