package simulation

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/team"
)

// Store keeps profiles and run results as flat files under one directory
type Store struct {
	dir string
}

// NewStore creates the output directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory
func (s *Store) Dir() string {
	return s.dir
}

// TalliesPath returns where a season's tallies are written
func (s *Store) TalliesPath(key team.Key) string {
	return filepath.Join(s.dir, fmt.Sprintf("tallies_%s.csv", key))
}

// DisciplinePath returns where a season's discipline profile is written
func (s *Store) DisciplinePath(key team.Key) string {
	return filepath.Join(s.dir, fmt.Sprintf("discipline_%s.csv", key))
}

// RunPath returns where a run's result is written
func (s *Store) RunPath(runID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("scenario_%s.json", runID))
}

// WriteProfile writes a profile's tallies and discipline estimates as CSV, one row per count
func (s *Store) WriteProfile(profile *team.Profile) error {
	if err := s.writeCSV(s.TalliesPath(profile.Key), talliesRecords(profile)); err != nil {
		return fmt.Errorf("failed to write tallies: %w", err)
	}
	if err := s.writeCSV(s.DisciplinePath(profile.Key), disciplineRecords(profile)); err != nil {
		return fmt.Errorf("failed to write discipline: %w", err)
	}
	return nil
}

func talliesRecords(profile *team.Profile) [][]string {
	header := []string{"count"}
	for _, o := range models.PitchOutcomes() {
		header = append(header, o.String())
	}
	for _, o := range models.TerminalOutcomes() {
		header = append(header, "ends_"+o.String())
	}
	header = append(header, "events")

	records := [][]string{header}
	for _, c := range models.AllCounts() {
		record := []string{c.String()}
		for _, n := range profile.Pitches.At(c) {
			record = append(record, formatFloat(n))
		}
		for _, n := range profile.Terminals.At(c) {
			record = append(record, formatFloat(n))
		}
		record = append(record, strconv.Itoa(profile.Histogram[c.Index()]))
		records = append(records, record)
	}
	return records
}

func disciplineRecords(profile *team.Profile) [][]string {
	records := [][]string{{
		"count", "b", "c", "s", "x", "total", "so", "sz", "xo", "xz",
		"zone_pct", "o_swing_pct", "z_swing_pct", "o_contact_pct", "z_contact_pct",
	}}
	for _, c := range models.AllCounts() {
		d := profile.Discipline.At(c)
		record := []string{c.String()}
		for _, v := range []float64{
			d.B, d.C, d.S, d.X, d.Total, d.SO, d.SZ, d.XO, d.XZ,
			d.ZonePct, d.OSwingPct, d.ZSwingPct, d.OContactPct, d.ZContactPct,
		} {
			record = append(record, formatFloat(v))
		}
		records = append(records, record)
	}
	return records
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *Store) writeCSV(path string, records [][]string) error {
	return writeFileAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		return w.WriteAll(records)
	})
}

// writeFileAtomic writes into a temp file next to path and renames it into place, so
// concurrent writers of the same artifact never interleave and readers see whole files
func writeFileAtomic(path string, write func(f *os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WriteRunResult writes a run's result as JSON
func (s *Store) WriteRunResult(result *RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}
	err = writeFileAtomic(s.RunPath(result.RunID), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write run result: %w", err)
	}
	return nil
}

// ReadRunResult loads a run written by WriteRunResult
func (s *Store) ReadRunResult(runID string) (*RunResult, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	data, err := os.ReadFile(s.RunPath(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run result: %w", err)
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode run result: %w", err)
	}
	return &result, nil
}
