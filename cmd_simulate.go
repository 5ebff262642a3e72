package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/simulation"
	"github.com/baseball-sim/strategy-engine/strategy"
	"github.com/baseball-sim/strategy-engine/team"
)

func newSimulateCmd() *cobra.Command {
	var (
		scenarioPath string
		teamCode     string
		year         int
		side         string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Evaluate a swing strategy scenario against team seasons",
		Long: `Loads a YAML scenario naming aggressive and patient counts and predicts each
selected team's plate appearance outcomes with and without it.

Example scenario:
  name: swing early
  aggressive:
    "00": 0.2
  patient:
    "32": 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := strategy.LoadScenarioFile(scenarioPath)
			if err != nil {
				return err
			}

			engine, _, store, err := newEngine(cfg)
			if err != nil {
				return err
			}

			var sidePtr *models.Side
			if side != "" {
				s, err := models.ParseSide(side)
				if err != nil {
					return err
				}
				sidePtr = &s
			}

			var keys []team.Key
			if teamCode != "" {
				if year == 0 || sidePtr == nil {
					return fmt.Errorf("--team needs --year and --side")
				}
				key, err := parseKeyArgs(teamCode, fmt.Sprint(year), side)
				if err != nil {
					return err
				}
				keys = []team.Key{key}
			} else {
				keys = engine.Teams(year, sidePtr)
			}
			if len(keys) == 0 {
				return fmt.Errorf("no team seasons match the selection")
			}

			evaluations, err := engine.EvaluateAll(commandContext(cmd), keys, scenario, nil)
			if err != nil {
				return err
			}
			scenarioEvaluations.WithLabelValues("cli").Add(float64(len(evaluations)))

			result := &simulation.RunResult{
				RunID:       uuid.New().String(),
				Scenario:    scenario,
				Evaluations: evaluations,
				CompletedAt: time.Now(),
			}
			if err := store.WriteRunResult(result); err != nil {
				return err
			}
			log.Info().Str("run_id", result.RunID).Str("path", store.RunPath(result.RunID)).Msg("Scenario result written")

			switch format {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case "table":
				return writeEvaluationTable(os.Stdout, evaluations)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario")
	cmd.Flags().StringVar(&teamCode, "team", "", "Evaluate one team only")
	cmd.Flags().IntVar(&year, "year", 0, "Restrict to one season")
	cmd.Flags().StringVar(&side, "side", "", "Restrict to home or away")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// writeEvaluationTable prints each team's baseline and modified counts per outcome
func writeEvaluationTable(out io.Writer, evaluations []*simulation.Evaluation) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprint(w, "TEAM\tPA")
	for _, o := range models.TerminalOutcomes() {
		fmt.Fprintf(w, "\t%s", o)
	}
	fmt.Fprintln(w)

	for _, ev := range evaluations {
		fmt.Fprintf(w, "%s\t%d", ev.Key, ev.AtBats)
		for i := range models.TerminalOutcomes() {
			fmt.Fprintf(w, "\t%.1f (%+.1f)", ev.Modified.Distribution[i], ev.Delta[i])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
