package models

import (
	"fmt"
)

const (
	// MaxBalls is the highest ball total a count can record; a fourth ball ends the at-bat
	MaxBalls = 3
	// MaxStrikes is the highest strike total a count can record
	MaxStrikes = 2

	// NumCounts is the number of distinct ball-strike counts
	NumCounts = (MaxBalls + 1) * (MaxStrikes + 1)
)

// Count represents balls and strikes
type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
}

// ParseCount reads the two-digit "BS" code of a count, e.g. "32" for three balls and two strikes
func ParseCount(code string) (Count, error) {
	if len(code) != 2 {
		return Count{}, fmt.Errorf("invalid count code %q", code)
	}

	balls := int(code[0]) - '0'
	strikes := int(code[1]) - '0'
	if balls < 0 || balls > MaxBalls || strikes < 0 || strikes > MaxStrikes {
		return Count{}, fmt.Errorf("invalid count code %q", code)
	}

	return Count{Balls: balls, Strikes: strikes}, nil
}

// CountAt returns the count stored at a tally index
func CountAt(index int) Count {
	return Count{Balls: index / (MaxStrikes + 1), Strikes: index % (MaxStrikes + 1)}
}

// AllCounts returns the 12 counts in index order: 00, 01, 02, 10, ..., 32
func AllCounts() []Count {
	counts := make([]Count, NumCounts)
	for i := range counts {
		counts[i] = CountAt(i)
	}
	return counts
}

// String returns the canonical "BS" code
func (c Count) String() string {
	return fmt.Sprintf("%d%d", c.Balls, c.Strikes)
}

// Index orders counts by their code, so 00 is 0 and 32 is 11
func (c Count) Index() int {
	return c.Balls*(MaxStrikes+1) + c.Strikes
}

// IsFull reports whether the count is 3-2
func (c Count) IsFull() bool {
	return c.Balls == MaxBalls && c.Strikes == MaxStrikes
}

// AddBall returns the count after a ball, holding at three balls
func (c Count) AddBall() Count {
	if c.Balls < MaxBalls {
		c.Balls++
	}
	return c
}

// AddStrike returns the count after a strike-class pitch, holding at two strikes
func (c Count) AddStrike() Count {
	if c.Strikes < MaxStrikes {
		c.Strikes++
	}
	return c
}

// MarshalText encodes the count as its "BS" code so counts can key JSON and YAML maps
func (c Count) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a "BS" code
func (c *Count) UnmarshalText(text []byte) error {
	parsed, err := ParseCount(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
