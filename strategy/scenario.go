package strategy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/team"
)

var (
	// ErrOverlappingCounts is returned when a count is listed as both aggressive and patient
	ErrOverlappingCounts = errors.New("count is both aggressive and patient")
	// ErrInvalidScenario is returned for unparseable counts or swing changes outside [0,1]
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Scenario names the counts where a lineup swings more (Aggressive) or less (Patient) and the
// fraction of that count's pitches to convert. Counts use their "BS" code, e.g. "30".
type Scenario struct {
	Name       string             `json:"name,omitempty" yaml:"name,omitempty"`
	Aggressive map[string]float64 `json:"aggressive,omitempty" yaml:"aggressive,omitempty"`
	Patient    map[string]float64 `json:"patient,omitempty" yaml:"patient,omitempty"`
}

// LoadScenario reads a YAML (or JSON) scenario document
func LoadScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return s, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return s, s.Validate()
}

// LoadScenarioFile reads a scenario from disk
func LoadScenarioFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to open scenario %s: %w", path, err)
	}
	defer f.Close()

	return LoadScenario(f)
}

// Validate checks count codes, ranges and that no count is in both sets
func (s Scenario) Validate() error {
	for _, set := range []struct {
		name    string
		changes map[string]float64
	}{
		{"aggressive", s.Aggressive},
		{"patient", s.Patient},
	} {
		for code, p := range set.changes {
			if _, err := models.ParseCount(code); err != nil {
				return fmt.Errorf("%w: %s count %q: %v", ErrInvalidScenario, set.name, code, err)
			}
			if p < 0 || p > 1 {
				return fmt.Errorf("%w: %s count %s change %.3f outside [0,1]", ErrInvalidScenario, set.name, code, p)
			}
		}
	}

	for code := range s.Aggressive {
		c, _ := models.ParseCount(code)
		for other := range s.Patient {
			o, _ := models.ParseCount(other)
			if c == o {
				return fmt.Errorf("%w: %s", ErrOverlappingCounts, c)
			}
		}
	}
	return nil
}

// Counts lists the counts the scenario touches, sorted by count index
func (s Scenario) Counts() []models.Count {
	var counts []models.Count
	for _, set := range []map[string]float64{s.Aggressive, s.Patient} {
		for code := range set {
			if c, err := models.ParseCount(code); err == nil {
				counts = append(counts, c)
			}
		}
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Index() < counts[j].Index() })
	return counts
}

// Changes computes the pitch conversions the scenario implies for a profile's discipline
func (s Scenario) Changes(profile *team.Profile) (ChangeMatrix, error) {
	var changes ChangeMatrix
	if err := s.Validate(); err != nil {
		return changes, err
	}

	for code, p := range s.Aggressive {
		c, _ := models.ParseCount(code)
		changes[c.Index()] = Aggressive(profile.Discipline.At(c), p)
	}
	for code, p := range s.Patient {
		c, _ := models.ParseCount(code)
		changes[c.Index()] = Patient(profile.Discipline.At(c), p)
	}
	return changes, nil
}
