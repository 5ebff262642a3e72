package models

import (
	"fmt"
	"strings"
)

// Side identifies which half of a game a team bats in
type Side int

const (
	Away Side = 0
	Home Side = 1
)

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "away"
}

// ParseSide accepts "home"/"away" as well as the raw 1/0 flag
func ParseSide(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "home", "1":
		return Home, nil
	case "away", "0", "visitor", "visiting":
		return Away, nil
	}
	return Away, fmt.Errorf("invalid side %q", value)
}

// MarshalText encodes the side as "home" or "away"
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything ParseSide does
func (s *Side) UnmarshalText(text []byte) error {
	side, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// Play is one row of a team's play-by-play extract
type Play struct {
	GameID   string `json:"game_id"`
	Seq      int    `json:"seq"`
	Inning   int    `json:"inning"`
	Side     Side   `json:"side"`
	BatterID string `json:"batter_id"`
	Count    string `json:"count"`
	Pitches  string `json:"pitches"`
	Event    string `json:"event"`
}

// HomeTeam returns the home club encoded in the first three characters of the game id
func (p Play) HomeTeam() string {
	if len(p.GameID) < 3 {
		return ""
	}
	return p.GameID[:3]
}

// VisitingTeam returns the visiting club appended to the end of the game id
func (p Play) VisitingTeam() string {
	if len(p.GameID) < 15 {
		return ""
	}
	return p.GameID[len(p.GameID)-3:]
}

// PlayTable is an ordered extract of plays. HasSide is false once the table has been
// filtered to a single side and the side column dropped.
type PlayTable struct {
	HasSide bool
	Plays   []Play
}

// AtBat is a normalized plate appearance
type AtBat struct {
	Team     string          `json:"team"`
	GameID   string          `json:"game_id"`
	Inning   int             `json:"inning"`
	BatterID string          `json:"batter_id"`
	Pitches  []PitchOutcome  `json:"pitches"`
	Outcome  TerminalOutcome `json:"outcome"`
	Contact  ContactType     `json:"contact"`
}
