package simulation

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/retrosheet"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

type fixedRates struct{}

func (fixedRates) GetContactRates(_ context.Context, season int) (leaguestats.Rates, error) {
	return leaguestats.Rates{Season: season, OContact: 0.65, ZContact: 0.85, Source: "test"}, nil
}

var samplePlays = []models.Play{
	{BatterID: "a", Pitches: "BCX", Event: "S7/L7"},
	{BatterID: "b", Pitches: "CBFX", Event: "63/G6"},
	{BatterID: "c", Pitches: "BBSBB", Event: "W"},
	{BatterID: "d", Pitches: "CSS", Event: "K"},
	{BatterID: "e", Pitches: "BCFFX", Event: "D8/F8"},
	{BatterID: "f", Pitches: "BBCX", Event: "8/F8"},
	{BatterID: "g", Pitches: "X", Event: "HR/F7"},
	{BatterID: "h", Pitches: "BCBFX", Event: "43/G4"},
}

func writeExtracts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	plays := make([]models.Play, len(samplePlays))
	for i, p := range samplePlays {
		p.GameID = "ANA201904040SEA"
		p.Seq = i
		p.Inning = 1
		p.Count = "00"
		plays[i] = p
	}

	_, err := retrosheet.WriteExtractFile(dir, 2019, "ANA", models.Home, models.PlayTable{Plays: plays})
	require.NoError(t, err)

	// away games split over two files
	first := models.PlayTable{Plays: plays[:4]}
	second := models.PlayTable{Plays: plays[4:]}
	_, err = retrosheet.WriteExtractFile(dir, 2019, "SEA", models.Away, first)
	require.NoError(t, err)
	path := filepath.Join(dir, "away", "2019SEA_TEX.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, retrosheet.WriteExtract(f, second))
	require.NoError(t, f.Close())

	return dir
}

func newTestEngine(t *testing.T, store *Store) *Engine {
	t.Helper()
	seasons, err := LoadSeasons(writeExtracts(t))
	require.NoError(t, err)
	return NewEngine(seasons, fixedRates{}, store, Options{Workers: 2})
}

func TestLoadSeasonsMergesAwayFiles(t *testing.T) {
	seasons, err := LoadSeasons(writeExtracts(t))
	require.NoError(t, err)
	require.Len(t, seasons, 2)

	byKey := make(map[string]*team.Season)
	for _, s := range seasons {
		byKey[s.Key().String()] = s
	}
	assert.Equal(t, len(samplePlays), byKey["2019ANA-home"].Len())
	assert.Equal(t, len(samplePlays), byKey["2019SEA-away"].Len())
}

func TestTeams(t *testing.T) {
	engine := newTestEngine(t, nil)

	assert.Len(t, engine.Teams(0, nil), 2)
	assert.Empty(t, engine.Teams(2018, nil))

	home := models.Home
	keys := engine.Teams(2019, &home)
	require.Len(t, keys, 1)
	assert.Equal(t, "ANA", keys[0].Team)
}

func TestEvaluateZeroScenarioMatchesBaseline(t *testing.T) {
	engine := newTestEngine(t, nil)
	key := team.Key{Team: "ANA", Year: 2019, Side: models.Home}

	scenario := strategy.Scenario{
		Aggressive: map[string]float64{"00": 0, "10": 0},
		Patient:    map[string]float64{"11": 0},
	}
	ev, err := engine.Evaluate(context.Background(), key, scenario)
	require.NoError(t, err)

	assert.Equal(t, len(samplePlays), ev.AtBats)
	assert.Equal(t, ev.Baseline, ev.Modified)
	for _, v := range ev.Delta {
		assert.Equal(t, 0.0, v)
	}
	assert.InDelta(t, float64(ev.AtBats), ev.Baseline.Distribution.Total()+ev.Baseline.Residual*float64(ev.AtBats), 1e-9)
}

func TestEvaluateAggressiveShiftsOutcomes(t *testing.T) {
	engine := newTestEngine(t, nil)
	key := team.Key{Team: "ANA", Year: 2019, Side: models.Home}

	ev, err := engine.Evaluate(context.Background(), key, strategy.Scenario{Aggressive: map[string]float64{"00": 0.3}})
	require.NoError(t, err)
	assert.NotEqual(t, ev.Baseline.Distribution, ev.Modified.Distribution)
	assert.InDelta(t, 0.0, ev.Delta.Total()+(ev.Modified.Residual-ev.Baseline.Residual)*float64(ev.AtBats), 1e-9)
}

func TestEvaluateErrors(t *testing.T) {
	engine := newTestEngine(t, nil)

	_, err := engine.Evaluate(context.Background(), team.Key{Team: "NYA", Year: 2019, Side: models.Home}, strategy.Scenario{})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	overlap := strategy.Scenario{Aggressive: map[string]float64{"30": 0.1}, Patient: map[string]float64{"30": 0.1}}
	_, err = engine.Evaluate(context.Background(), team.Key{Team: "ANA", Year: 2019, Side: models.Home}, overlap)
	assert.ErrorIs(t, err, strategy.ErrOverlappingCounts)
}

func TestEvaluateAllKeepsKeyOrder(t *testing.T) {
	engine := newTestEngine(t, nil)
	keys := engine.Teams(2019, nil)

	var done atomic.Int32
	evaluations, err := engine.EvaluateAll(context.Background(), keys, strategy.Scenario{Patient: map[string]float64{"32": 0.2}}, func() { done.Add(1) })
	require.NoError(t, err)
	require.Len(t, evaluations, len(keys))
	assert.Equal(t, int32(len(keys)), done.Load())
	for i, ev := range evaluations {
		assert.Equal(t, keys[i], ev.Key)
	}
}

func TestSubmitRun(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	engine := newTestEngine(t, store)

	scenario := strategy.Scenario{Name: "early swings", Aggressive: map[string]float64{"00": 0.2}}
	runID, err := engine.Submit(context.Background(), engine.Teams(0, nil), scenario)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, ok := engine.GetRunStatus(runID)
		return ok && status.Status != StatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	status, _ := engine.GetRunStatus(runID)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 2, status.CompletedTeams)
	assert.Equal(t, "early swings", status.Scenario)
	require.NotNil(t, status.CompletedTime)

	result, err := engine.GetRunResult(runID)
	require.NoError(t, err)
	assert.Len(t, result.Evaluations, 2)

	// a fresh engine finds the run on disk
	restarted := NewEngine(nil, fixedRates{}, store, Options{})
	stored, err := restarted.GetRunResult(runID)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, stored.RunID)
	assert.Equal(t, result.Evaluations[0].Key, stored.Evaluations[0].Key)
	assert.Equal(t, result.Evaluations[0].Modified.Distribution, stored.Evaluations[0].Modified.Distribution)

	_, err = os.Stat(store.TalliesPath(team.Key{Team: "ANA", Year: 2019, Side: models.Home}))
	assert.NoError(t, err)
	_, err = os.Stat(store.DisciplinePath(team.Key{Team: "SEA", Year: 2019, Side: models.Away}))
	assert.NoError(t, err)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	engine := newTestEngine(t, nil)

	_, err := engine.Submit(context.Background(), []team.Key{{Team: "NYA", Year: 2019}}, strategy.Scenario{})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = engine.Submit(context.Background(), engine.Teams(0, nil), strategy.Scenario{Patient: map[string]float64{"00": 2}})
	assert.ErrorIs(t, err, strategy.ErrInvalidScenario)
}

func TestGetRunResultNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewEngine(nil, fixedRates{}, nil, Options{}).GetRunResult("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = NewEngine(nil, fixedRates{}, store, Options{}).GetRunResult("6f1c1a52-8d0f-4c1e-9f57-1f0b8cbd1e11")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.ReadRunResult("../../etc/passwd")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCleanupOldRuns(t *testing.T) {
	engine := NewEngine(nil, fixedRates{}, nil, Options{})
	engine.activeRuns["old"] = &RunStatus{RunID: "old", Status: StatusCompleted, StartTime: time.Now().Add(-48 * time.Hour)}
	engine.activeRuns["new"] = &RunStatus{RunID: "new", Status: StatusRunning, StartTime: time.Now()}

	assert.Equal(t, 1, engine.CleanupOldRuns(24*time.Hour))
	_, ok := engine.GetRunStatus("old")
	assert.False(t, ok)
	assert.Equal(t, 1, engine.ActiveRuns())
}

func TestWriteProfileCSV(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	engine := newTestEngine(t, nil)

	profile, _, err := engine.Profile(context.Background(), team.Key{Team: "ANA", Year: 2019, Side: models.Home})
	require.NoError(t, err)
	require.NoError(t, store.WriteProfile(profile))

	data, err := os.ReadFile(store.TalliesPath(profile.Key))
	require.NoError(t, err)
	assert.Contains(t, string(data), "count,ball,hit_by_pitch,called_strike")
	assert.Contains(t, string(data), "\n00,")
	assert.Contains(t, string(data), "\n32,")
}

func TestWriteProfileConcurrently(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	engine := newTestEngine(t, nil)

	profile, _, err := engine.Profile(context.Background(), team.Key{Team: "ANA", Year: 2019, Side: models.Home})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.WriteProfile(profile)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, path := range []string{store.TalliesPath(profile.Key), store.DisciplinePath(profile.Key)} {
		f, err := os.Open(path)
		require.NoError(t, err)
		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, f.Close())
		require.NoError(t, err, path)
		assert.Len(t, records, models.NumCounts+1, path)
	}

	leftovers, err := filepath.Glob(filepath.Join(store.Dir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
