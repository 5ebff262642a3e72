package retrosheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/baseball-sim/strategy-engine/models"
)

// ErrMissingColumn is returned when an extract lacks a required column
var ErrMissingColumn = errors.New("extract is missing a required column")

var extractColumns = []string{"game_id", "seq", "inning", "side", "batter", "count", "pitches", "event"}

// extractName matches <year><TEAM>.csv with an optional suffix after the team, e.g.
// 2019ANA.csv or 2019ANA_SEA.csv
var extractName = regexp.MustCompile(`^(\d{4})([A-Z0-9]{3})(?:[_-][A-Za-z0-9]+)?\.csv$`)

// ExtractPath returns where a team-season-side extract is kept under dir
func ExtractPath(dir string, year int, team string, side models.Side) string {
	return filepath.Join(dir, side.String(), fmt.Sprintf("%d%s.csv", year, team))
}

// WriteExtract writes a play table as CSV. Tables already reduced to one side are written
// without the side column.
func WriteExtract(w io.Writer, table models.PlayTable) error {
	header := extractColumns
	if !table.HasSide {
		header = []string{"game_id", "seq", "inning", "batter", "count", "pitches", "event"}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write extract header: %w", err)
	}

	for _, p := range table.Plays {
		record := []string{p.GameID, strconv.Itoa(p.Seq), strconv.Itoa(p.Inning)}
		if table.HasSide {
			record = append(record, strconv.Itoa(int(p.Side)))
		}
		record = append(record, p.BatterID, p.Count, p.Pitches, p.Event)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write play %s/%d: %w", p.GameID, p.Seq, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteExtractFile writes a team-season-side extract to its place under dir
func WriteExtractFile(dir string, year int, team string, side models.Side, table models.PlayTable) (string, error) {
	path := ExtractPath(dir, year, team, side)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create extract directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create extract %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteExtract(f, table); err != nil {
		return "", err
	}
	return path, f.Close()
}

// ReadExtract reads a CSV play table. Columns are located by header name; without a side
// column the table is treated as already reduced to one side.
func ReadExtract(r io.Reader) (models.PlayTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return models.PlayTable{}, fmt.Errorf("failed to read extract header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range extractColumns {
		if name == "side" {
			continue
		}
		if _, ok := cols[name]; !ok {
			return models.PlayTable{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	sideCol, hasSide := cols["side"]

	table := models.PlayTable{HasSide: hasSide}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return models.PlayTable{}, fmt.Errorf("failed to read extract line %d: %w", line, err)
		}
		if len(record) < len(header) {
			return models.PlayTable{}, fmt.Errorf("%w: extract line %d has %d fields", ErrMalformedEvent, line, len(record))
		}

		seq, err := strconv.Atoi(record[cols["seq"]])
		if err != nil {
			return models.PlayTable{}, fmt.Errorf("%w: extract line %d seq %q", ErrMalformedEvent, line, record[cols["seq"]])
		}
		inning, err := strconv.Atoi(record[cols["inning"]])
		if err != nil {
			return models.PlayTable{}, fmt.Errorf("%w: extract line %d inning %q", ErrMalformedEvent, line, record[cols["inning"]])
		}

		play := models.Play{
			GameID:   record[cols["game_id"]],
			Seq:      seq,
			Inning:   inning,
			BatterID: record[cols["batter"]],
			Count:    record[cols["count"]],
			Pitches:  record[cols["pitches"]],
			Event:    record[cols["event"]],
		}
		if hasSide {
			side, err := models.ParseSide(record[sideCol])
			if err != nil {
				return models.PlayTable{}, fmt.Errorf("%w: extract line %d: %v", ErrMalformedEvent, line, err)
			}
			play.Side = side
		}
		table.Plays = append(table.Plays, play)
	}

	return table, nil
}

// ReadExtractFile reads an extract from disk
func ReadExtractFile(path string) (models.PlayTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.PlayTable{}, fmt.Errorf("failed to open extract %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadExtract(f)
	if err != nil {
		return models.PlayTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ExtractFile describes one extract found on disk
type ExtractFile struct {
	Path string      `json:"path"`
	Year int         `json:"year"`
	Team string      `json:"team"`
	Side models.Side `json:"side"`
}

// ListExtracts finds every extract under dir/home and dir/away, sorted by year, team, side
// and path. Several files may belong to the same team season.
func ListExtracts(dir string) ([]ExtractFile, error) {
	var files []ExtractFile

	for _, side := range []models.Side{models.Home, models.Away} {
		sideDir := filepath.Join(dir, side.String())
		entries, err := os.ReadDir(sideDir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read extract directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			m := extractName.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			year, _ := strconv.Atoi(m[1])
			files = append(files, ExtractFile{
				Path: filepath.Join(sideDir, entry.Name()),
				Year: year,
				Team: m[2],
				Side: side,
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Path < b.Path
	})
	return files, nil
}
