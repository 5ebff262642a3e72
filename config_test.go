package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/markov"
	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/simulation"
	"github.com/baseball-sim/strategy-engine/team"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKERS", "3")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RATE_LIMIT", "not-a-number")

	cfg := NewConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, markov.DefaultIterations, cfg.Iterations)
	assert.Equal(t, string(markov.SolverIterate), cfg.Solver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
port: "7070"
solver: exact
iterations: 40
run_max_age: 12h
league_stats:
  format: html
  timeout: 5s
  static:
    - season: 2019
      o_contact: 0.62
      z_contact: 0.86
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "exact", cfg.Solver)
	assert.Equal(t, 40, cfg.Iterations)
	assert.Equal(t, 12*time.Hour, cfg.RunMaxAge)
	assert.Equal(t, leaguestats.FormatHTML, cfg.LeagueStats.Format)
	assert.Equal(t, 5*time.Second, cfg.LeagueStats.Timeout)
	require.Len(t, cfg.LeagueStats.Static, 1)
	assert.Equal(t, 0.62, cfg.LeagueStats.Static[0].OContact)

	// unset keys keep their environment defaults
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Port, cfg.Port)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "prot: 8080\n"},
		{name: "unknown solver", body: "solver: gauss\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "no workers", body: "workers: 0\n"},
		{name: "no iterations", body: "iterations: -1\n"},
		{name: "negative rate limit", body: "rate_limit: -5\n"},
		{name: "static rates out of range", body: "league_stats:\n  static:\n    - season: 2019\n      o_contact: 1.2\n      z_contact: 0.8\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseKeyArgs(t *testing.T) {
	tests := []struct {
		name    string
		team    string
		year    string
		side    string
		want    team.Key
		wantErr bool
	}{
		{name: "home", team: "ana", year: "2019", side: "home", want: team.Key{Team: "ANA", Year: 2019, Side: models.Home}},
		{name: "away flag", team: "SEA", year: "2019", side: "0", want: team.Key{Team: "SEA", Year: 2019, Side: models.Away}},
		{name: "bad year", team: "SEA", year: "19x", side: "home", wantErr: true},
		{name: "bad side", team: "SEA", year: "2019", side: "road", wantErr: true},
		{name: "bad team", team: "SEATTLE", year: "2019", side: "home", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeyArgs(tt.team, tt.year, tt.side)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 42 * time.Second, want: "42s"},
		{d: 3*time.Minute + 5*time.Second, want: "3m 5s"},
		{d: 2*time.Hour + 1*time.Minute, want: "2h 1m 0s"},
		{d: 50 * time.Hour, want: "2d 2h 0m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.d))
		})
	}
}

func TestWriteEvaluationTable(t *testing.T) {
	ev := &simulation.Evaluation{
		Key:    team.Key{Team: "ANA", Year: 2019, Side: models.Home},
		AtBats: 10,
	}
	ev.Modified.Distribution = markov.Distribution{2, 5, 1, 1, 1, 0, 0}
	ev.Delta = markov.Distribution{-1, 0, 1, 0, 0, 0, 0}

	var buf bytes.Buffer
	require.NoError(t, writeEvaluationTable(&buf, []*simulation.Evaluation{ev}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "home_run")
	assert.Contains(t, lines[1], "2019ANA-home")
	assert.Contains(t, lines[1], "2.0 (-1.0)")
	assert.Contains(t, lines[1], "1.0 (+1.0)")
}
