package models

// PitchOutcome classifies a single pitch
type PitchOutcome int

const (
	Ball PitchOutcome = iota
	HitByPitch
	CalledStrike
	SwingingStrike
	FoulBunt
	Foul
	BallInPlay

	NumPitchOutcomes = 7
)

var pitchOutcomeNames = [NumPitchOutcomes]string{
	"ball", "hit_by_pitch", "called_strike", "swinging_strike", "foul_bunt", "foul", "ball_in_play",
}

func (p PitchOutcome) String() string {
	if p < 0 || int(p) >= NumPitchOutcomes {
		return "unknown"
	}
	return pitchOutcomeNames[p]
}

// PitchOutcomes lists every pitch outcome in tally order
func PitchOutcomes() []PitchOutcome {
	return []PitchOutcome{Ball, HitByPitch, CalledStrike, SwingingStrike, FoulBunt, Foul, BallInPlay}
}

// IsBall reports whether the pitch advances the ball total
func (p PitchOutcome) IsBall() bool {
	return p == Ball
}

// IsStrike reports whether the pitch advances the strike total (fouls included)
func (p PitchOutcome) IsStrike() bool {
	switch p {
	case CalledStrike, SwingingStrike, FoulBunt, Foul:
		return true
	}
	return false
}

// TerminalOutcome is the event that ends a plate appearance
type TerminalOutcome int

const (
	Strikeout TerminalOutcome = iota
	Out
	Walk
	Single
	Double
	Triple
	HomeRun

	NumTerminalOutcomes = 7
)

var terminalOutcomeNames = [NumTerminalOutcomes]string{
	"strikeout", "out", "walk", "single", "double", "triple", "home_run",
}

func (t TerminalOutcome) String() string {
	if t < 0 || int(t) >= NumTerminalOutcomes {
		return "unknown"
	}
	return terminalOutcomeNames[t]
}

// TerminalOutcomes lists every terminal outcome in state order
func TerminalOutcomes() []TerminalOutcome {
	return []TerminalOutcome{Strikeout, Out, Walk, Single, Double, Triple, HomeRun}
}

// InPlayOutcomes lists the outcomes a ball in play can produce
func InPlayOutcomes() []TerminalOutcome {
	return []TerminalOutcome{Out, Single, Double, Triple, HomeRun}
}

// ContactType describes how a ball was put in play
type ContactType int

const (
	NoContact ContactType = iota
	Ground
	Fly
	Pop
	ThrowingError
	DoublePlay
)

func (c ContactType) String() string {
	switch c {
	case Ground:
		return "ground"
	case Fly:
		return "fly"
	case Pop:
		return "pop"
	case ThrowingError:
		return "throwing_error"
	case DoublePlay:
		return "double_play"
	default:
		return "no_contact"
	}
}
