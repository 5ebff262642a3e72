package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/team"
)

func newProfileCmd() *cobra.Command {
	var printJSON bool

	cmd := &cobra.Command{
		Use:   "profile <team> <year> <home|away>",
		Short: "Build a team season's count profile and write it to the output directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKeyArgs(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			engine, _, store, err := newEngine(cfg)
			if err != nil {
				return err
			}

			profile, rates, err := engine.Profile(commandContext(cmd), key)
			if err != nil {
				return err
			}
			if err := store.WriteProfile(profile); err != nil {
				return err
			}

			if printJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ProfileResponse{Profile: profile, Rates: rates})
			}

			fmt.Printf("%s: %d plate appearances (o-contact %.3f, z-contact %.3f from %s)\n",
				key, profile.AtBats, rates.OContact, rates.ZContact, rates.Source)
			fmt.Printf("  %s\n  %s\n", store.TalliesPath(key), store.DisciplinePath(key))
			return nil
		},
	}

	cmd.Flags().BoolVar(&printJSON, "json", false, "Print the full profile as JSON")
	return cmd
}

func parseKeyArgs(teamCode, year, side string) (team.Key, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y <= 0 {
		return team.Key{}, fmt.Errorf("invalid year %q", year)
	}
	s, err := models.ParseSide(side)
	if err != nil {
		return team.Key{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(teamCode))
	if len(code) != 3 {
		return team.Key{}, fmt.Errorf("invalid team code %q", teamCode)
	}
	return team.Key{Team: code, Year: y, Side: s}, nil
}
