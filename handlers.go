package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/simulation"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

// ProfileResponse is a team season's profile and the contact rates it was estimated with
type ProfileResponse struct {
	Profile *team.Profile     `json:"profile"`
	Rates   leaguestats.Rates `json:"rates"`
}

type TeamsResponse struct {
	Teams []team.Key `json:"teams"`
	Count int        `json:"count"`
}

type SimulationRequest struct {
	Scenario strategy.Scenario `json:"scenario"`
	// Explicit team seasons win over the season/side filter
	Teams  []team.Key   `json:"teams,omitempty"`
	Season int          `json:"season,omitempty"`
	Side   *models.Side `json:"side,omitempty"`
}

type SimulationResponse struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type SimulationStatus struct {
	RunID          string     `json:"run_id"`
	Scenario       string     `json:"scenario,omitempty"`
	Status         string     `json:"status"`
	TotalTeams     int        `json:"total_teams"`
	CompletedTeams int        `json:"completed_teams"`
	Progress       float64    `json:"progress"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":       "healthy",
		"time":         time.Now().UTC(),
		"uptime":       formatUptime(time.Since(s.startTime)),
		"workers":      s.config.Workers,
		"team_seasons": len(s.engine.Teams(0, nil)),
		"active_runs":  s.engine.ActiveRuns(),
	}
	if s.stats != nil {
		health["league_stats"] = s.stats.GetCacheStats()
	}

	writeJSON(w, health)
}

func (s *Server) teamsHandler(w http.ResponseWriter, r *http.Request) {
	season, err := parseSeasonParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	side, err := parseSideParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys := s.engine.Teams(season, side)
	writeJSON(w, TeamsResponse{Teams: keys, Count: len(keys)})
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	key, err := parseKeyVars(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, rates, err := s.engine.Profile(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, ProfileResponse{Profile: profile, Rates: rates})
}

func (s *Server) scenarioHandler(w http.ResponseWriter, r *http.Request) {
	key, err := parseKeyVars(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var scenario strategy.Scenario
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&scenario); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	evaluation, err := s.engine.Evaluate(r.Context(), key, scenario)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	scenarioEvaluations.WithLabelValues("sync").Inc()

	writeJSON(w, evaluation)
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	keys := req.Teams
	if len(keys) == 0 {
		keys = s.engine.Teams(req.Season, req.Side)
	}
	if len(keys) == 0 {
		writeError(w, "No team seasons match the request", http.StatusBadRequest)
		return
	}

	runID, err := s.engine.Submit(r.Context(), keys, req.Scenario)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	scenarioEvaluations.WithLabelValues("async").Add(float64(len(keys)))

	writeJSON(w, SimulationResponse{
		RunID:     runID,
		Status:    simulation.StatusRunning,
		Message:   fmt.Sprintf("Started scenario run over %d team seasons", len(keys)),
		CreatedAt: time.Now(),
	})
}

func (s *Server) simulationStatusHandler(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if runStatus, exists := s.engine.GetRunStatus(runID); exists {
		status := SimulationStatus{
			RunID:          runStatus.RunID,
			Scenario:       runStatus.Scenario,
			Status:         runStatus.Status,
			TotalTeams:     runStatus.TotalTeams,
			CompletedTeams: runStatus.CompletedTeams,
			Error:          runStatus.Error,
			CreatedAt:      runStatus.StartTime,
			CompletedAt:    runStatus.CompletedTime,
		}
		if runStatus.TotalTeams > 0 {
			status.Progress = float64(runStatus.CompletedTeams) / float64(runStatus.TotalTeams)
		}
		writeJSON(w, status)
		return
	}

	// Fallback to a run finished by an earlier process
	result, err := s.engine.GetRunResult(runID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, SimulationStatus{
		RunID:          result.RunID,
		Scenario:       result.Scenario.Name,
		Status:         simulation.StatusCompleted,
		TotalTeams:     len(result.Evaluations),
		CompletedTeams: len(result.Evaluations),
		Progress:       1,
		CreatedAt:      result.CompletedAt,
		CompletedAt:    &result.CompletedAt,
	})
}

func (s *Server) simulationResultHandler(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if status, exists := s.engine.GetRunStatus(runID); exists {
		switch status.Status {
		case simulation.StatusRunning:
			writeErrorWithDetails(w, "Simulation still running", "run_in_progress", map[string]interface{}{
				"completed_teams": status.CompletedTeams,
				"total_teams":     status.TotalTeams,
			}, http.StatusConflict)
			return
		case simulation.StatusError:
			writeErrorWithDetails(w, "Simulation failed", "run_failed", map[string]interface{}{
				"error": status.Error,
			}, http.StatusUnprocessableEntity)
			return
		}
	}

	result, err := s.engine.GetRunResult(runID)
	if errors.Is(err, simulation.ErrRunNotFound) {
		writeError(w, "Simulation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, result)
}
