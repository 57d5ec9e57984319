package pose

import "fmt"

// Digit is the requirement a Pattern places on one digit.
type Digit uint8

const (
	Any Digit = iota
	Curled
	Extended
)

// Pattern matches a Vector digit by digit.
type Pattern [NumDigits]Digit

// ParsePattern reads a five character pattern: '1' extended, '0' curled,
// '*' either.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	if len(s) != NumDigits {
		return p, fmt.Errorf("pattern %q: want %d characters", s, NumDigits)
	}
	for i := 0; i < NumDigits; i++ {
		switch s[i] {
		case '1':
			p[i] = Extended
		case '0':
			p[i] = Curled
		case '*':
			p[i] = Any
		default:
			return p, fmt.Errorf("pattern %q: invalid character %q", s, s[i])
		}
	}
	return p, nil
}

// MustParsePattern is ParsePattern for constant patterns.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Exact returns the pattern that matches only v.
func Exact(v Vector) Pattern {
	var p Pattern
	for i, up := range v {
		if up {
			p[i] = Extended
		} else {
			p[i] = Curled
		}
	}
	return p
}

// Match reports whether v satisfies every digit of p.
func (p Pattern) Match(v Vector) bool {
	for i, d := range p {
		switch d {
		case Extended:
			if !v[i] {
				return false
			}
		case Curled:
			if v[i] {
				return false
			}
		}
	}
	return true
}

// MatchPose is Match for a present pose. Absent poses never match.
func (p Pattern) MatchPose(ps Pose) bool {
	return ps.Present && p.Match(ps.Fingers)
}

func (p Pattern) String() string {
	b := make([]byte, NumDigits)
	for i, d := range p {
		switch d {
		case Extended:
			b[i] = '1'
		case Curled:
			b[i] = '0'
		default:
			b[i] = '*'
		}
	}
	return string(b)
}
