// Package markov turns per-count pitch outcomes into an absorbing Markov chain over the 12
// ball-strike counts and the 7 plate appearance results, and propagates a plate appearance
// through it.
package markov

import (
	"gonum.org/v1/gonum/mat"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/strategy"
)

// NumStates is the size of the chain: every count followed by every terminal outcome
const NumStates = models.NumCounts + models.NumTerminalOutcomes

// CountState returns the chain state of a count
func CountState(c models.Count) int {
	return c.Index()
}

// TerminalState returns the chain state of a plate appearance result
func TerminalState(o models.TerminalOutcome) int {
	return models.NumCounts + int(o)
}

// GroupedCount is one count's pitch outcomes folded by the rules of the count: where each pitch
// sends the plate appearance next
type GroupedCount struct {
	Count    models.Count                        `json:"count"`
	Self     float64                             `json:"self"`
	Ball     float64                             `json:"ball"`
	Strike   float64                             `json:"strike"`
	Terminal [models.NumTerminalOutcomes]float64 `json:"terminal"`
}

// Total is the row weight before normalization
func (g GroupedCount) Total() float64 {
	total := g.Self + g.Ball + g.Strike
	for _, n := range g.Terminal {
		total += n
	}
	return total
}

// Group applies the rules of the count to a modified tally. A fourth ball or a hit batter ends
// the plate appearance as a walk; at two strikes a foul leaves the count unchanged while any
// other strike ends it as a strikeout; every ball in play ends it.
func Group(tally *strategy.ModifiedTally) [models.NumCounts]GroupedCount {
	var grouped [models.NumCounts]GroupedCount

	for i, m := range tally {
		g := GroupedCount{Count: m.Count}

		g.Terminal[models.Walk] += m.HitByPitch
		if m.Count.Balls == models.MaxBalls {
			g.Terminal[models.Walk] += m.Ball
		} else {
			g.Ball = m.Ball
		}

		strikes := m.CalledStrike + m.SwingingStrike + m.FoulBunt
		if m.Count.Strikes == models.MaxStrikes {
			g.Self = m.Foul
			g.Terminal[models.Strikeout] += strikes
		} else {
			g.Strike = strikes + m.Foul
		}

		for _, o := range models.InPlayOutcomes() {
			g.Terminal[o] += m.InPlay[o]
		}

		grouped[i] = g
	}

	return grouped
}

// TransitionMatrix is the row-stochastic transition matrix of the chain. It cannot be changed
// after construction.
type TransitionMatrix struct {
	p *mat.Dense
}

// NewTransitionMatrix normalizes each count's grouped outcomes into a probability row.
// Counts with no pitches keep an all-zero row, so any mass reaching them is lost.
// Terminal states absorb.
func NewTransitionMatrix(grouped [models.NumCounts]GroupedCount) *TransitionMatrix {
	p := mat.NewDense(NumStates, NumStates, nil)

	for i, g := range grouped {
		total := g.Total()
		if total == 0 {
			continue
		}

		c := models.CountAt(i)
		from := CountState(c)
		if g.Self > 0 {
			p.Set(from, from, g.Self/total)
		}
		if g.Ball > 0 {
			p.Set(from, CountState(c.AddBall()), g.Ball/total)
		}
		if g.Strike > 0 {
			p.Set(from, CountState(c.AddStrike()), g.Strike/total)
		}
		for o, n := range g.Terminal {
			if n > 0 {
				p.Set(from, TerminalState(models.TerminalOutcome(o)), n/total)
			}
		}
	}

	for _, o := range models.TerminalOutcomes() {
		s := TerminalState(o)
		p.Set(s, s, 1)
	}

	return &TransitionMatrix{p: p}
}

// FromTally groups a modified tally and builds its transition matrix
func FromTally(tally *strategy.ModifiedTally) *TransitionMatrix {
	return NewTransitionMatrix(Group(tally))
}

// At returns the probability of moving from state i to state j
func (t *TransitionMatrix) At(i, j int) float64 {
	return t.p.At(i, j)
}

// Row returns a copy of the outgoing probabilities of state i
func (t *TransitionMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, t.p)
}

// Dense returns a copy of the matrix
func (t *TransitionMatrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(t.p)
}
