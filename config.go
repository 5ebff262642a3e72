package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/markov"
)

// Config holds every setting the commands and the server read
type Config struct {
	Port      string `yaml:"port"`
	EventsDir string `yaml:"events_dir"`
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`

	Workers    int    `yaml:"workers"`
	Iterations int    `yaml:"iterations"`
	Solver     string `yaml:"solver"`

	LogLevel string `yaml:"log_level"`

	CORSOrigins []string `yaml:"cors_origins"`
	// Requests per second allowed per client, 0 disables limiting
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
	RunMaxAge time.Duration `yaml:"run_max_age"`

	LeagueStats leaguestats.Config `yaml:"league_stats"`
}

// NewConfig builds the configuration from the environment
func NewConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		EventsDir:   getEnv("EVENTS_DIR", "data/events"),
		DataDir:     getEnv("DATA_DIR", "data/extracts"),
		OutputDir:   getEnv("OUTPUT_DIR", "output"),
		Workers:     getEnvInt("WORKERS", runtime.NumCPU()),
		Iterations:  getEnvInt("ITERATIONS", markov.DefaultIterations),
		Solver:      getEnv("SOLVER", string(markov.SolverIterate)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		RateLimit:   getEnvFloat("RATE_LIMIT", 20),
		RateBurst:   getEnvInt("RATE_BURST", 40),
		RunMaxAge:   24 * time.Hour,
		LeagueStats: leaguestats.Config{
			BaseURL: getEnv("LEAGUE_STATS_URL", ""),
			APIKey:  getEnv("LEAGUE_STATS_API_KEY", ""),
			Format:  getEnv("LEAGUE_STATS_FORMAT", leaguestats.FormatJSON),
		},
	}
}

// LoadConfig reads the environment and overlays the YAML file at path, if any
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if _, err := markov.ParseSolver(c.Solver); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	for _, r := range c.LeagueStats.Static {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
