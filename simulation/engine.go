// Package simulation evaluates swing-strategy scenarios against team season profiles, either
// synchronously for one team or as tracked background runs over many teams.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/markov"
	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

var (
	// ErrRunNotFound is returned for run ids the engine and store do not know
	ErrRunNotFound = errors.New("run not found")
	// ErrTeamNotFound is returned for team seasons that were never loaded
	ErrTeamNotFound = errors.New("team season not found")
)

// Run states
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// RateSource supplies the season contact rates the discipline estimate is solved with
type RateSource interface {
	GetContactRates(ctx context.Context, season int) (leaguestats.Rates, error)
}

// Options tunes the engine
type Options struct {
	Workers    int
	Iterations int
	Solver     markov.Solver
}

// Engine evaluates scenarios against loaded team seasons
type Engine struct {
	rates      RateSource
	store      *Store
	workers    int
	iterations int
	solver     markov.Solver

	seasons map[team.Key]*team.Season

	mu         sync.RWMutex
	activeRuns map[string]*RunStatus
	results    map[string]*RunResult
}

// RunStatus tracks the progress of a background scenario run
type RunStatus struct {
	RunID          string     `json:"run_id"`
	Scenario       string     `json:"scenario,omitempty"`
	TotalTeams     int        `json:"total_teams"`
	CompletedTeams int        `json:"completed_teams"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	CompletedTime  *time.Time `json:"completed_time,omitempty"`
}

// Evaluation compares a team's predicted season with and without a scenario
type Evaluation struct {
	Key      team.Key              `json:"key"`
	Rates    leaguestats.Rates     `json:"rates"`
	AtBats   int                   `json:"at_bats"`
	Changes  strategy.ChangeMatrix `json:"changes"`
	Baseline markov.Prediction     `json:"baseline"`
	Modified markov.Prediction     `json:"modified"`
	Delta    markov.Distribution   `json:"delta"`
}

// RunResult is the outcome of a completed background run
type RunResult struct {
	RunID       string            `json:"run_id"`
	Scenario    strategy.Scenario `json:"scenario"`
	Evaluations []*Evaluation     `json:"evaluations"`
	CompletedAt time.Time         `json:"completed_at"`
}

// NewEngine creates an engine over the given seasons. A nil store keeps results in memory only.
func NewEngine(seasons []*team.Season, rates RateSource, store *Store, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Iterations <= 0 {
		opts.Iterations = markov.DefaultIterations
	}
	if opts.Solver == "" {
		opts.Solver = markov.SolverIterate
	}

	byKey := make(map[team.Key]*team.Season, len(seasons))
	for _, s := range seasons {
		byKey[s.Key()] = s
	}

	return &Engine{
		rates:      rates,
		store:      store,
		workers:    opts.Workers,
		iterations: opts.Iterations,
		solver:     opts.Solver,
		seasons:    byKey,
		activeRuns: make(map[string]*RunStatus),
		results:    make(map[string]*RunResult),
	}
}

// Teams lists the loaded team seasons, optionally restricted to a year (0 for all) and side
func (e *Engine) Teams(year int, side *models.Side) []team.Key {
	keys := make([]team.Key, 0, len(e.seasons))
	for key := range e.seasons {
		if year != 0 && key.Year != year {
			continue
		}
		if side != nil && key.Side != *side {
			continue
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.Side < b.Side
	})
	return keys
}

// Profile builds a team season's profile with the season's league contact rates
func (e *Engine) Profile(ctx context.Context, key team.Key) (*team.Profile, leaguestats.Rates, error) {
	season, ok := e.seasons[key]
	if !ok {
		return nil, leaguestats.Rates{}, fmt.Errorf("%w: %s", ErrTeamNotFound, key)
	}

	rates, err := e.rates.GetContactRates(ctx, key.Year)
	if err != nil {
		return nil, leaguestats.Rates{}, fmt.Errorf("failed to get contact rates: %w", err)
	}

	estimator, err := team.NewEstimator(rates.OContact, rates.ZContact)
	if err != nil {
		return nil, rates, err
	}

	return season.Profile(estimator), rates, nil
}

// Evaluate predicts a team's season outcomes under its baseline and under the scenario
func (e *Engine) Evaluate(ctx context.Context, key team.Key, scenario strategy.Scenario) (*Evaluation, error) {
	profile, rates, err := e.Profile(ctx, key)
	if err != nil {
		return nil, err
	}

	changes, err := scenario.Changes(profile)
	if err != nil {
		return nil, err
	}

	baselineTally := strategy.Baseline(profile)
	modifiedTally := strategy.Apply(profile, &changes)

	baseline, err := markov.Predict(markov.FromTally(&baselineTally), profile.AtBats, e.solver, e.iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to predict baseline for %s: %w", key, err)
	}
	modified, err := markov.Predict(markov.FromTally(&modifiedTally), profile.AtBats, e.solver, e.iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to predict scenario for %s: %w", key, err)
	}

	if e.store != nil {
		if err := e.store.WriteProfile(profile); err != nil {
			log.Warn().Err(err).Str("team", key.Team).Int("year", key.Year).Msg("Failed to store profile")
		}
	}

	return &Evaluation{
		Key:      key,
		Rates:    rates,
		AtBats:   profile.AtBats,
		Changes:  changes,
		Baseline: baseline,
		Modified: modified,
		Delta:    modified.Distribution.Sub(baseline.Distribution),
	}, nil
}

// EvaluateAll evaluates the scenario for every key using the engine's worker limit.
// Results are returned in key order. progress, when set, is called after each team.
func (e *Engine) EvaluateAll(ctx context.Context, keys []team.Key, scenario strategy.Scenario, progress func()) ([]*Evaluation, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	evaluations := make([]*Evaluation, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev, err := e.Evaluate(ctx, key, scenario)
			if err != nil {
				return err
			}
			evaluations[i] = ev
			if progress != nil {
				progress()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evaluations, nil
}

// Submit validates the scenario and starts a background run over the keys, returning its id
func (e *Engine) Submit(ctx context.Context, keys []team.Key, scenario strategy.Scenario) (string, error) {
	if err := scenario.Validate(); err != nil {
		return "", err
	}
	for _, key := range keys {
		if _, ok := e.seasons[key]; !ok {
			return "", fmt.Errorf("%w: %s", ErrTeamNotFound, key)
		}
	}

	runID := uuid.New().String()

	e.mu.Lock()
	e.activeRuns[runID] = &RunStatus{
		RunID:      runID,
		Scenario:   scenario.Name,
		TotalTeams: len(keys),
		Status:     StatusRunning,
		StartTime:  time.Now(),
	}
	e.mu.Unlock()

	go e.run(context.WithoutCancel(ctx), runID, keys, scenario)

	return runID, nil
}

func (e *Engine) run(ctx context.Context, runID string, keys []team.Key, scenario strategy.Scenario) {
	start := time.Now()

	evaluations, err := e.EvaluateAll(ctx, keys, scenario, func() { e.updateProgress(runID) })
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("Scenario run failed")
		e.finishRun(runID, StatusError, err.Error(), nil)
		return
	}

	result := &RunResult{
		RunID:       runID,
		Scenario:    scenario,
		Evaluations: evaluations,
		CompletedAt: time.Now(),
	}

	if e.store != nil {
		if err := e.store.WriteRunResult(result); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to store run result")
		}
	}

	e.finishRun(runID, StatusCompleted, "", result)

	log.Info().
		Str("run_id", runID).
		Int("teams", len(keys)).
		Dur("elapsed", time.Since(start)).
		Msg("Scenario run completed")
}

// updateProgress counts one more finished team
func (e *Engine) updateProgress(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if status, exists := e.activeRuns[runID]; exists {
		status.CompletedTeams++
	}
}

func (e *Engine) finishRun(runID, state, message string, result *RunResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if status, exists := e.activeRuns[runID]; exists {
		status.Status = state
		status.Error = message
		completedTime := time.Now()
		status.CompletedTime = &completedTime
	}
	if result != nil {
		e.results[runID] = result
	}
}

// GetRunStatus returns a snapshot of a run's status
func (e *Engine) GetRunStatus(runID string) (*RunStatus, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status, exists := e.activeRuns[runID]
	if !exists {
		return nil, false
	}
	snapshot := *status
	return &snapshot, true
}

// GetRunResult returns a completed run's result from memory, or from the store for runs
// finished by an earlier process
func (e *Engine) GetRunResult(runID string) (*RunResult, error) {
	e.mu.RLock()
	result, ok := e.results[runID]
	e.mu.RUnlock()
	if ok {
		return result, nil
	}

	if e.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return e.store.ReadRunResult(runID)
}

// CleanupOldRuns removes runs started before maxAge ago from memory
func (e *Engine) CleanupOldRuns(maxAge time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for runID, status := range e.activeRuns {
		if status.StartTime.Before(cutoff) {
			delete(e.activeRuns, runID)
			delete(e.results, runID)
			removed++
		}
	}
	return removed
}

// StartRunCleanup removes old runs periodically until ctx is done
func (e *Engine) StartRunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := e.CleanupOldRuns(maxAge); n > 0 {
					log.Debug().Int("removed", n).Msg("Cleaned up old scenario runs")
				}
			}
		}
	}()
}

// ActiveRuns returns the number of runs still in progress
func (e *Engine) ActiveRuns() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, status := range e.activeRuns {
		if status.Status == StatusRunning {
			n++
		}
	}
	return n
}
