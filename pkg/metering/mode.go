package metering

import (
	"strings"
)

// Mode selects how the 20 grid readings are weighted into one value.
type Mode int

const (
	CenterWeighted Mode = iota // default, central 3x2 block counts double
	Matrix                     // all cells with equal weight
	Spot                       // the two centermost cells only
	Highlight                  // brightest quarter of the cells
)

// Default is the metering mode used at startup.
const Default = CenterWeighted

// Modes lists every valid mode in declaration order.
var Modes = []Mode{CenterWeighted, Matrix, Spot, Highlight}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	return m >= CenterWeighted && m <= Highlight
}

// String returns the canonical lowercase name.
func (m Mode) String() string {
	return ModeName(m)
}

// ModeName returns the canonical name of mode, or "unknown".
func ModeName(mode Mode) string {
	switch mode {
	case CenterWeighted:
		return "center-weighted"
	case Matrix:
		return "matrix"
	case Spot:
		return "spot"
	case Highlight:
		return "highlight"
	default:
		return "unknown"
	}
}

var aliases = map[string]Mode{
	"center":          CenterWeighted,
	"central":         CenterWeighted,
	"center-weighted": CenterWeighted,
	"matrix":          Matrix,
	"evaluative":      Matrix,
	"spot":            Spot,
	"highlight":       Highlight,
	"highlights":      Highlight,
}

// ModeFromName parses a mode name or alias, case-insensitively.
// Unrecognized names map to CenterWeighted.
func ModeFromName(name string) Mode {
	if m, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	return CenterWeighted
}

// LookupMode is like ModeFromName but reports whether the name was recognized.
func LookupMode(name string) (Mode, bool) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}
