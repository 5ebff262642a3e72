package simulation

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/baseball-sim/strategy-engine/retrosheet"
	"github.com/baseball-sim/strategy-engine/team"
)

// LoadSeasons reads every extract under dir and merges the files that belong to the same team,
// year and side into one season. Away seasons usually arrive as one file per home club.
func LoadSeasons(dir string) ([]*team.Season, error) {
	files, err := retrosheet.ListExtracts(dir)
	if err != nil {
		return nil, err
	}

	var (
		order   []team.Key
		seasons = make(map[team.Key]*team.Season)
	)
	for _, f := range files {
		table, err := retrosheet.ReadExtractFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load seasons: %w", err)
		}

		key := team.Key{Team: f.Team, Year: f.Year, Side: f.Side}
		season, ok := seasons[key]
		if !ok {
			season = team.NewSeason(f.Team, f.Year, f.Side)
			order = append(order, key)
		}
		seasons[key] = season.Append(table)

		log.Debug().
			Str("team", f.Team).
			Int("year", f.Year).
			Str("side", f.Side.String()).
			Int("plays", len(table.Plays)).
			Msg("Loaded extract")
	}

	out := make([]*team.Season, 0, len(order))
	for _, key := range order {
		out = append(out, seasons[key])
	}
	return out, nil
}
