package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/baseball-sim/strategy-engine/leaguestats"
	"github.com/baseball-sim/strategy-engine/markov"
	"github.com/baseball-sim/strategy-engine/simulation"
)

var (
	configPath string
	cfg        *Config
)

var rootCmd = &cobra.Command{
	Use:   "strategy-engine",
	Short: "Count-aware plate discipline and swing strategy engine",
	Long: `strategy-engine turns Retrosheet play-by-play into per-count team profiles and
predicts how a team's plate appearances end when it swings more or less often
in chosen ball-strike counts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging writes human readable logs to a terminal and JSON lines otherwise
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newEngine loads every extract under the data directory and wires the league stats source
// and the output store into a scenario engine
func newEngine(cfg *Config) (*simulation.Engine, *leaguestats.Service, *simulation.Store, error) {
	solver, err := markov.ParseSolver(cfg.Solver)
	if err != nil {
		return nil, nil, nil, err
	}

	seasons, err := simulation.LoadSeasons(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(seasons) == 0 {
		log.Warn().Str("dir", cfg.DataDir).Msg("No extracts found, run ingest first")
	}

	store, err := simulation.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, nil, nil, err
	}

	stats := leaguestats.NewService(cfg.LeagueStats)
	engine := simulation.NewEngine(seasons, stats, store, simulation.Options{
		Workers:    cfg.Workers,
		Iterations: cfg.Iterations,
		Solver:     solver,
	})

	log.Info().
		Int("seasons", len(seasons)).
		Int("workers", cfg.Workers).
		Str("solver", string(solver)).
		Msg("Engine ready")

	return engine, stats, store, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
