package markov

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/baseball-sim/strategy-engine/models"
)

// DefaultIterations covers the longest plate appearance on record (21 pitches) with room to spare
const DefaultIterations = 25

// Solver selects how the terminal distribution is computed
type Solver string

const (
	// SolverIterate propagates the start state a fixed number of steps
	SolverIterate Solver = "iterate"
	// SolverExact solves the absorbing chain in closed form
	SolverExact Solver = "exact"
)

// ErrUnknownSolver is returned for solver names other than iterate and exact
var ErrUnknownSolver = errors.New("unknown solver")

// ErrSingularChain is returned by the exact solver when some count can never leave itself
var ErrSingularChain = errors.New("transition matrix has a closed non-terminal class")

// ParseSolver reads a solver name; empty selects iteration
func ParseSolver(name string) (Solver, error) {
	switch Solver(name) {
	case "", SolverIterate:
		return SolverIterate, nil
	case SolverExact:
		return SolverExact, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSolver, name)
	}
}

// Distribution holds one value per terminal outcome, in TerminalOutcome order
type Distribution [models.NumTerminalOutcomes]float64

// Total sums the distribution
func (d Distribution) Total() float64 {
	var total float64
	for _, v := range d {
		total += v
	}
	return total
}

// Scale multiplies every outcome by k
func (d Distribution) Scale(k float64) Distribution {
	for i := range d {
		d[i] *= k
	}
	return d
}

// Sub returns d minus other, outcome by outcome
func (d Distribution) Sub(other Distribution) Distribution {
	for i := range d {
		d[i] -= other[i]
	}
	return d
}

// MarshalJSON writes the distribution keyed by outcome name
func (d Distribution) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(d))
	for _, o := range models.TerminalOutcomes() {
		out[o.String()] = d[o]
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a distribution keyed by outcome name
func (d *Distribution) UnmarshalJSON(data []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for _, o := range models.TerminalOutcomes() {
		d[o] = in[o.String()]
	}
	return nil
}

// Absorption is where a plate appearance starting at 0-0 ends up. Residual is the probability
// still on a count when propagation stopped, or lost to unreachable counts.
type Absorption struct {
	Terminal Distribution `json:"terminal"`
	Residual float64      `json:"residual"`
}

// SteadyState starts with all probability on 0-0 and multiplies by the transition matrix the
// given number of times. Probability left on counts afterwards is reported, not redistributed.
func (t *TransitionMatrix) SteadyState(iterations int) Absorption {
	cur := mat.NewVecDense(NumStates, nil)
	next := mat.NewVecDense(NumStates, nil)
	cur.SetVec(CountState(models.Count{}), 1)

	for i := 0; i < iterations; i++ {
		next.MulVec(t.p.T(), cur)
		cur, next = next, cur
	}

	var a Absorption
	for _, o := range models.TerminalOutcomes() {
		a.Terminal[o] = cur.AtVec(TerminalState(o))
	}
	a.Residual = 1 - a.Terminal.Total()
	return a
}

// Exact solves B = (I - Q)^-1 R for the count block Q and the count-to-result block R and
// returns the 0-0 row of B
func (t *TransitionMatrix) Exact() (Absorption, error) {
	n := models.NumCounts

	var iq mat.Dense
	iq.Sub(eye(n), t.p.Slice(0, n, 0, n))
	r := t.p.Slice(0, n, n, NumStates)

	var b mat.Dense
	if err := b.Solve(&iq, r); err != nil {
		return Absorption{}, fmt.Errorf("%w: %v", ErrSingularChain, err)
	}

	var a Absorption
	start := CountState(models.Count{})
	for _, o := range models.TerminalOutcomes() {
		a.Terminal[o] = b.At(start, int(o))
	}
	a.Residual = 1 - a.Terminal.Total()
	return a, nil
}

// Prediction is a season's expected results under one tally
type Prediction struct {
	Solver       Solver       `json:"solver"`
	Distribution Distribution `json:"distribution"`
	Residual     float64      `json:"residual"`
}

// Predict scales the chain's terminal distribution by the season's plate appearances
func Predict(t *TransitionMatrix, atBats int, solver Solver, iterations int) (Prediction, error) {
	var (
		a   Absorption
		err error
	)
	switch solver {
	case SolverIterate, "":
		solver = SolverIterate
		a = t.SteadyState(iterations)
	case SolverExact:
		a, err = t.Exact()
		if err != nil {
			return Prediction{}, err
		}
	default:
		return Prediction{}, fmt.Errorf("%w: %q", ErrUnknownSolver, solver)
	}

	return Prediction{
		Solver:       solver,
		Distribution: a.Terminal.Scale(float64(atBats)),
		Residual:     a.Residual,
	}, nil
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
