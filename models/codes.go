package models

import (
	"strings"
)

// pitchCodes maps play-by-play pitch symbols to pitch outcomes.
// N (no pitch) and U (unknown) are absent on purpose: they are not pitches.
var pitchCodes = map[rune]PitchOutcome{
	'B': Ball,
	'I': Ball, // intentional ball
	'P': Ball, // pitchout
	'V': Ball, // called ball, pitcher went to mouth
	'H': HitByPitch,
	'C': CalledStrike,
	'S': SwingingStrike,
	'K': SwingingStrike, // strike of unknown type
	'M': SwingingStrike, // missed bunt attempt
	'O': SwingingStrike, // foul tip on bunt
	'Q': SwingingStrike, // swinging on pitchout
	'T': SwingingStrike, // foul tip
	'L': FoulBunt,
	'F': Foul,
	'R': Foul, // foul on pitchout
	'X': BallInPlay,
	'Y': BallInPlay, // in play on pitchout
}

// resultCodes maps the first character of an event's outcome token to a terminal outcome.
// 'H' is resolved separately because home runs and hit-by-pitch share it.
var resultCodes = map[byte]TerminalOutcome{
	'D': Double,
	'E': Out, // reached on error
	'F': Out, // fielder's choice
	'I': Walk,
	'K': Strikeout,
	'S': Single,
	'T': Triple,
	'W': Walk,
	'1': Out, '2': Out, '3': Out, '4': Out, '5': Out, '6': Out, '7': Out, '8': Out, '9': Out,
}

var contactCodes = map[byte]ContactType{
	'G': Ground,
	'B': Ground, // bunt
	'H': Ground,
	'F': Fly,
	'L': Fly, // line drives count as fly balls
	'7': Fly,
	'8': Fly,
	'9': Fly,
	'P': Pop,
	'T': ThrowingError,
	'D': DoublePlay,
}

// annotationChars carry runner and catcher notes inside a pitch string, not pitches
const annotationChars = "123+.*>"

// ClassifyPitch returns the outcome for a pitch symbol; ok is false for symbols that are not pitches
func ClassifyPitch(code rune) (outcome PitchOutcome, ok bool) {
	outcome, ok = pitchCodes[code]
	return outcome, ok
}

// IsAnnotation reports whether a pitch-string character is a non-pitch annotation
func IsAnnotation(code rune) bool {
	return strings.ContainsRune(annotationChars, code)
}

// ClassifyResult returns the terminal outcome of a raw event result code such as "S7/L7" or "HR/F78".
// ok is false when the leading token has no terminal meaning (balks, wild pitches and the like).
func ClassifyResult(event string) (outcome TerminalOutcome, ok bool) {
	token := resultToken(event, 0)
	if token == "" {
		return 0, false
	}

	// HP is hit by pitch; HR, a bare H and H<fielder> are all home runs
	if token[0] == 'H' {
		if len(token) > 1 && token[1] == 'P' {
			return Walk, true
		}
		return HomeRun, true
	}

	outcome, ok = resultCodes[token[0]]
	return outcome, ok
}

// ClassifyContact returns the contact type recorded in the second token of an event result code
func ClassifyContact(event string) ContactType {
	token := resultToken(event, 1)
	if token == "" {
		return NoContact
	}

	code := token[0]
	if code == 'S' {
		// SF and SH are sacrifices; the batted-ball type follows
		if len(token) < 2 {
			return NoContact
		}
		code = token[1]
	}

	if contact, ok := contactCodes[code]; ok {
		return contact
	}
	return NoContact
}

func resultToken(event string, n int) string {
	parts := strings.Split(event, "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}
