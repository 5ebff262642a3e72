// Package team builds a club's count-indexed season profile: pitch and result tallies per
// ball-strike count and the plate discipline estimates derived from them.
package team

import (
	"fmt"

	"github.com/baseball-sim/strategy-engine/atbat"
	"github.com/baseball-sim/strategy-engine/models"
)

// Key identifies a team season on one side of the schedule
type Key struct {
	Team string      `json:"team"`
	Year int         `json:"year"`
	Side models.Side `json:"side"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d%s-%s", k.Year, k.Team, k.Side)
}

// Season is an append-only collection of a team's plate appearances. Appending returns a new
// Season; existing values never change, so every derived profile is rebuilt from the full set.
type Season struct {
	key       Key
	atBats    []models.AtBat
	histogram [models.NumCounts]int
}

// NewSeason creates an empty season for a team
func NewSeason(team string, year int, side models.Side) *Season {
	return &Season{key: Key{Team: team, Year: year, Side: side}}
}

// Key returns the season's identity
func (s *Season) Key() Key {
	return s.key
}

// Len returns the number of plate appearances recorded
func (s *Season) Len() int {
	return len(s.atBats)
}

// AtBats returns a copy of the recorded plate appearances
func (s *Season) AtBats() []models.AtBat {
	out := make([]models.AtBat, len(s.atBats))
	copy(out, s.atBats)
	return out
}

// Append normalizes another play table for this team and returns the season extended with it.
// Away seasons arrive spread across many source files, one per home club.
func (s *Season) Append(table models.PlayTable) *Season {
	plays := atbat.Normalize(table, s.key.Team, s.key.Side)
	parsed := atbat.ParseAtBats(s.key.Team, plays)

	next := &Season{
		key:       s.key,
		atBats:    make([]models.AtBat, 0, len(s.atBats)+len(parsed)),
		histogram: s.histogram,
	}
	next.atBats = append(next.atBats, s.atBats...)
	next.atBats = append(next.atBats, parsed...)

	added := atbat.EventCountHistogram(table, s.key.Team, s.key.Side)
	for i, n := range added {
		next.histogram[i] += n
	}

	return next
}

// Profile is the read-only, fully derived view of a season
type Profile struct {
	Key        Key                   `json:"key"`
	AtBats     int                   `json:"at_bats"`
	Pitches    PitchTally            `json:"pitches"`
	Terminals  TerminalTally         `json:"terminals"`
	Discipline DisciplineProfile     `json:"discipline"`
	Histogram  [models.NumCounts]int `json:"event_count_histogram"`
	Reach      ReachTable            `json:"reach"`
}

// Profile rebuilds every tally and estimate from the season's plate appearances.
// Calling it again on the same season yields the same profile.
func (s *Season) Profile(estimator *Estimator) *Profile {
	pitches, terminals := BuildTallies(s.atBats)

	return &Profile{
		Key:        s.key,
		AtBats:     len(s.atBats),
		Pitches:    pitches,
		Terminals:  terminals,
		Discipline: estimator.Estimate(&pitches),
		Histogram:  s.histogram,
		Reach:      BuildReachTable(s.atBats),
	}
}
