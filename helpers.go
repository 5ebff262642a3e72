package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/simulation"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

// APIError represents an API error response
type APIError struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, APIError{Error: message})
}

// writeErrorWithDetails writes an error response with additional details
func writeErrorWithDetails(w http.ResponseWriter, message, code string, details map[string]interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, APIError{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeDomainError maps engine errors onto HTTP statuses
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simulation.ErrTeamNotFound):
		writeErrorWithDetails(w, err.Error(), "team_not_found", nil, http.StatusNotFound)
	case errors.Is(err, simulation.ErrRunNotFound):
		writeErrorWithDetails(w, err.Error(), "run_not_found", nil, http.StatusNotFound)
	case errors.Is(err, strategy.ErrOverlappingCounts):
		writeErrorWithDetails(w, err.Error(), "overlapping_counts", nil, http.StatusBadRequest)
	case errors.Is(err, strategy.ErrInvalidScenario):
		writeErrorWithDetails(w, err.Error(), "invalid_scenario", nil, http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// parseKeyVars reads the {year}/{team}/{side} route variables
func parseKeyVars(r *http.Request) (team.Key, error) {
	vars := mux.Vars(r)
	return parseKeyArgs(vars["team"], vars["year"], vars["side"])
}

// parseSeasonParam returns 0 when no season is given
func parseSeasonParam(r *http.Request) (int, error) {
	value := r.URL.Query().Get("season")
	if value == "" {
		return 0, nil
	}
	season, err := strconv.Atoi(value)
	if err != nil || season <= 0 {
		return 0, errors.New("invalid season")
	}
	return season, nil
}

// parseSideParam returns nil when no side is given
func parseSideParam(r *http.Request) (*models.Side, error) {
	value := strings.TrimSpace(r.URL.Query().Get("side"))
	if value == "" {
		return nil, nil
	}
	side, err := models.ParseSide(value)
	if err != nil {
		return nil, err
	}
	return &side, nil
}

// clientIP strips the port from the remote address
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		addr = addr[:i]
	}
	return strings.Trim(addr, "[]")
}
