package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/retrosheet"
)

func newIngestCmd() *cobra.Command {
	var eventsDir, dataDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Split Retrosheet event files into per-team home and away extracts",
		Long: `Reads every .EVA/.EVN file under the events directory and writes one CSV
extract per team, season and side under the data directory:

  <data>/home/<year><TEAM>.csv
  <data>/away/<year><TEAM>.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventsDir == "" {
				eventsDir = cfg.EventsDir
			}
			if dataDir == "" {
				dataDir = cfg.DataDir
			}

			paths, err := retrosheet.FindEventFiles(eventsDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no event files found in %s", eventsDir)
			}

			games, err := retrosheet.ParseEventFiles(commandContext(cmd), paths, cfg.Workers)
			if err != nil {
				return err
			}

			written := 0
			for _, tg := range retrosheet.SplitByTeam(games) {
				for _, side := range []models.Side{models.Home, models.Away} {
					table := tg.Table(side)
					if len(table.Plays) == 0 {
						continue
					}
					path, err := retrosheet.WriteExtractFile(dataDir, tg.Year, tg.Team, side, table)
					if err != nil {
						return err
					}
					written++
					log.Debug().Str("path", path).Int("plays", len(table.Plays)).Msg("Wrote extract")
				}
			}

			log.Info().
				Int("event_files", len(paths)).
				Int("games", len(games)).
				Int("extracts", written).
				Str("dir", dataDir).
				Msg("Ingest complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&eventsDir, "events", "", "Directory holding Retrosheet event files (default from config)")
	cmd.Flags().StringVar(&dataDir, "out", "", "Directory to write extracts to (default from config)")
	return cmd
}
