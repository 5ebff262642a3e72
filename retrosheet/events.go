// Package retrosheet reads raw play-by-play event files and keeps per-team extracts of them as
// flat CSV files.
package retrosheet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/strategy-engine/models"
)

// ErrMalformedEvent marks an event file line that cannot be read
var ErrMalformedEvent = errors.New("malformed event line")

// Game is one game's plays in the order they were recorded
type Game struct {
	// ID is the source game id with the visiting club appended, e.g. ANA201904040SEA
	ID           string
	VisitingTeam string
	Plays        []models.Play
}

// HomeTeam returns the club the game was played at
func (g Game) HomeTeam() string {
	if len(g.ID) < 3 {
		return ""
	}
	return g.ID[:3]
}

// Year returns the season encoded in the game id, or 0 when it has none
func (g Game) Year() int {
	if len(g.ID) < 7 {
		return 0
	}
	year, err := strconv.Atoi(g.ID[3:7])
	if err != nil {
		return 0
	}
	return year
}

// ParseEventFile splits a raw event file into games. A game starts at each "id," line; its
// "play," lines become plays numbered from 0 in the order they appear.
func ParseEventFile(r io.Reader) ([]Game, error) {
	var (
		games   []Game
		current *Game
		seq     int
	)

	flush := func() {
		if current == nil {
			return
		}
		id := current.ID + current.VisitingTeam
		for i := range current.Plays {
			current.Plays[i].GameID = id
		}
		current.ID = id
		games = append(games, *current)
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.HasPrefix(line, "id,"):
			flush()
			current = &Game{ID: strings.TrimSpace(line[3:])}
			seq = 0

		case strings.HasPrefix(line, "info,visteam,"):
			if current != nil {
				current.VisitingTeam = strings.TrimSpace(strings.TrimPrefix(line, "info,visteam,"))
			}

		case strings.HasPrefix(line, "play,"):
			if current == nil {
				return nil, fmt.Errorf("%w: line %d: play before any game id", ErrMalformedEvent, lineNo)
			}
			play, err := parsePlayLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			play.Seq = seq
			seq++
			current.Plays = append(current.Plays, play)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	flush()

	return games, nil
}

// parsePlayLine reads "play,inning,side,batter,count,pitches,event"
func parsePlayLine(line string) (models.Play, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return models.Play{}, fmt.Errorf("%w: %q", ErrMalformedEvent, line)
	}

	inning, err := strconv.Atoi(fields[1])
	if err != nil {
		return models.Play{}, fmt.Errorf("%w: inning %q", ErrMalformedEvent, fields[1])
	}
	side, err := models.ParseSide(fields[2])
	if err != nil {
		return models.Play{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	return models.Play{
		Inning:   inning,
		Side:     side,
		BatterID: fields[3],
		Count:    fields[4],
		Pitches:  fields[5],
		Event:    strings.Join(fields[6:], ","),
	}, nil
}

// ParseEventFiles reads several event files concurrently, returning their games in path order
func ParseEventFiles(ctx context.Context, paths []string, workers int) ([]Game, error) {
	results := make([][]Game, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open event file %s: %w", path, err)
			}
			defer f.Close()

			games, err := ParseEventFile(f)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			log.Debug().Str("file", filepath.Base(path)).Int("games", len(games)).Msg("Parsed event file")
			results[i] = games
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var games []Game
	for _, r := range results {
		games = append(games, r...)
	}
	return games, nil
}

// FindEventFiles lists the regular-season event files (.EVA, .EVN) in a directory
func FindEventFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read event directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToUpper(filepath.Ext(entry.Name())) {
		case ".EVA", ".EVN":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// TeamGames holds every game a club played in one season, split by where it was played.
// Both tables keep the side column, so each still contains the opponent's plays.
type TeamGames struct {
	Team string
	Year int
	Home models.PlayTable
	Away models.PlayTable
}

// Table returns the games played on one side
func (t *TeamGames) Table(side models.Side) models.PlayTable {
	if side == models.Home {
		return t.Home
	}
	return t.Away
}

// SplitByTeam assigns every game to its home club's home table and its visiting club's away
// table. The result is sorted by year then team.
func SplitByTeam(games []Game) []*TeamGames {
	byKey := make(map[string]*TeamGames)
	get := func(team string, year int) *TeamGames {
		key := fmt.Sprintf("%d%s", year, team)
		tg, ok := byKey[key]
		if !ok {
			tg = &TeamGames{
				Team: team,
				Year: year,
				Home: models.PlayTable{HasSide: true},
				Away: models.PlayTable{HasSide: true},
			}
			byKey[key] = tg
		}
		return tg
	}

	for _, game := range games {
		year := game.Year()
		if home := game.HomeTeam(); home != "" {
			tg := get(home, year)
			tg.Home.Plays = append(tg.Home.Plays, game.Plays...)
		}
		if game.VisitingTeam != "" {
			tg := get(game.VisitingTeam, year)
			tg.Away.Plays = append(tg.Away.Plays, game.Plays...)
		}
	}

	out := make([]*TeamGames, 0, len(byKey))
	for _, tg := range byKey {
		out = append(out, tg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Team < out[j].Team
	})
	return out
}
