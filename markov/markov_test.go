package markov

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

func emptyTally() strategy.ModifiedTally {
	var tally strategy.ModifiedTally
	for _, c := range models.AllCounts() {
		tally[c.Index()].Count = c
	}
	return tally
}

func at(t *testing.T, tally *strategy.ModifiedTally, code string) *strategy.ModifiedCount {
	t.Helper()
	c, err := models.ParseCount(code)
	require.NoError(t, err)
	return &tally[c.Index()]
}

func seasonTally(t *testing.T) (strategy.ModifiedTally, int) {
	t.Helper()
	plays := []models.Play{
		{BatterID: "a", Pitches: "BCX", Event: "S7/L7"},
		{BatterID: "b", Pitches: "CBFX", Event: "63/G6"},
		{BatterID: "c", Pitches: "BBSBB", Event: "W"},
		{BatterID: "d", Pitches: "CSS", Event: "K"},
		{BatterID: "e", Pitches: "BCFFX", Event: "D8/F8"},
		{BatterID: "f", Pitches: "BBCX", Event: "8/F8"},
		{BatterID: "g", Pitches: "X", Event: "HR/F7"},
		{BatterID: "h", Pitches: "BCBFX", Event: "43/G4"},
	}
	season := team.NewSeason("ANA", 2019, models.Home).Append(models.PlayTable{Plays: plays})
	e, err := team.NewEstimator(0.65, 0.85)
	require.NoError(t, err)

	profile := season.Profile(e)
	return strategy.Baseline(profile), profile.AtBats
}

func TestGroupAppliesCountRules(t *testing.T) {
	tally := emptyTally()
	full := at(t, &tally, "30")
	full.Ball, full.HitByPitch = 2, 1

	twoStrikes := at(t, &tally, "12")
	twoStrikes.CalledStrike, twoStrikes.SwingingStrike, twoStrikes.FoulBunt, twoStrikes.Foul = 1, 2, 1, 4
	twoStrikes.InPlay[models.Double] = 3

	early := at(t, &tally, "01")
	early.Ball, early.HitByPitch, early.CalledStrike, early.Foul = 2, 1, 1, 2

	grouped := Group(&tally)

	g30 := grouped[full.Count.Index()]
	assert.Equal(t, 3.0, g30.Terminal[models.Walk])
	assert.Equal(t, 0.0, g30.Ball)

	g12 := grouped[twoStrikes.Count.Index()]
	assert.Equal(t, 4.0, g12.Self)
	assert.Equal(t, 4.0, g12.Terminal[models.Strikeout])
	assert.Equal(t, 0.0, g12.Strike)
	assert.Equal(t, 3.0, g12.Terminal[models.Double])

	g01 := grouped[early.Count.Index()]
	assert.Equal(t, 2.0, g01.Ball)
	assert.Equal(t, 3.0, g01.Strike)
	assert.Equal(t, 1.0, g01.Terminal[models.Walk])
	assert.Equal(t, 0.0, g01.Self)
}

func TestTransitionMatrixRows(t *testing.T) {
	tally, _ := seasonTally(t)
	m := FromTally(&tally)

	for _, c := range models.AllCounts() {
		row := m.Row(CountState(c))
		var sum float64
		for _, p := range row {
			sum += p
		}
		if tally.At(c).Total() == 0 {
			assert.Equal(t, 0.0, sum, c.String())
		} else {
			assert.InDelta(t, 1.0, sum, 1e-12, c.String())
		}
	}

	for _, o := range models.TerminalOutcomes() {
		s := TerminalState(o)
		assert.Equal(t, 1.0, m.At(s, s), o.String())
	}
}

func TestFoulsAtTwoStrikesLoop(t *testing.T) {
	tally := emptyTally()
	c02 := at(t, &tally, "02")
	c02.Foul, c02.SwingingStrike = 5, 1

	m := FromTally(&tally)
	s := CountState(c02.Count)
	assert.InDelta(t, 5.0/6.0, m.At(s, s), 1e-12)
	assert.InDelta(t, 1.0/6.0, m.At(s, TerminalState(models.Strikeout)), 1e-12)
}

func TestSteadyStateSingleStep(t *testing.T) {
	tally := emptyTally()
	at(t, &tally, "00").InPlay[models.Single] = 4

	m := FromTally(&tally)
	a := m.SteadyState(DefaultIterations)
	assert.InDelta(t, 1.0, a.Terminal[models.Single], 1e-12)
	assert.InDelta(t, 0.0, a.Residual, 1e-12)

	p, err := Predict(m, 10, SolverIterate, DefaultIterations)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, p.Distribution[models.Single], 1e-12)
}

func TestSteadyStateConservesMass(t *testing.T) {
	tally, _ := seasonTally(t)
	m := FromTally(&tally)

	a := m.SteadyState(DefaultIterations)
	assert.InDelta(t, 1.0, a.Terminal.Total()+a.Residual, 1e-12)
	assert.GreaterOrEqual(t, a.Residual, -1e-12)
}

func TestUnreachableCountLosesMass(t *testing.T) {
	tally := emptyTally()
	start := at(t, &tally, "00")
	start.Ball = 1
	start.InPlay[models.Out] = 1

	a := FromTally(&tally).SteadyState(DefaultIterations)
	assert.InDelta(t, 0.5, a.Terminal[models.Out], 1e-12)
	assert.InDelta(t, 0.5, a.Residual, 1e-12)
}

func TestExactMatchesIteration(t *testing.T) {
	tally, atBats := seasonTally(t)
	m := FromTally(&tally)

	iterated, err := Predict(m, atBats, SolverIterate, DefaultIterations)
	require.NoError(t, err)
	exact, err := Predict(m, atBats, SolverExact, DefaultIterations)
	require.NoError(t, err)

	for _, o := range models.TerminalOutcomes() {
		assert.InDelta(t, exact.Distribution[o], iterated.Distribution[o], 1e-6, o.String())
	}
	assert.Equal(t, SolverExact, exact.Solver)
}

func TestExactRejectsClosedCount(t *testing.T) {
	tally := emptyTally()
	at(t, &tally, "00").CalledStrike = 1
	at(t, &tally, "01").CalledStrike = 1
	at(t, &tally, "02").Foul = 1

	m := FromTally(&tally)
	_, err := m.Exact()
	assert.ErrorIs(t, err, ErrSingularChain)

	a := m.SteadyState(DefaultIterations)
	assert.InDelta(t, 1.0, a.Residual, 1e-12)
}

func TestParseSolver(t *testing.T) {
	tests := []struct {
		name    string
		want    Solver
		wantErr bool
	}{
		{"", SolverIterate, false},
		{"iterate", SolverIterate, false},
		{"exact", SolverExact, false},
		{"monte-carlo", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSolver(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSolver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistributionJSON(t *testing.T) {
	var d Distribution
	d[models.HomeRun] = 12.5

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"home_run":12.5`)

	var back Distribution
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
