package sample

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidCurve = errors.New("invalid calibration curve")

// Point is a single calibration point: a raw reading and the voltage
// measured for it in millivolts.
type Point struct {
	Raw        Raw
	Millivolts float32
}

// Table is a piecewise-linear calibration curve. Readings outside the table
// are extrapolated from the nearest segment.
type Table struct {
	points []Point
}

var _ Curve = (*Table)(nil)

// NewTable builds a curve from at least two points with distinct raw values.
// Points are sorted by raw value.
func NewTable(points []Point) (*Table, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidCurve, len(points))
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Raw < sorted[j].Raw })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Raw == sorted[i-1].Raw {
			return nil, fmt.Errorf("%w: duplicate raw value %d", ErrInvalidCurve, sorted[i].Raw)
		}
		if sorted[i].Millivolts < sorted[i-1].Millivolts {
			return nil, fmt.Errorf("%w: voltage decreases at raw %d", ErrInvalidCurve, sorted[i].Raw)
		}
	}

	return &Table{points: sorted}, nil
}

// Voltage interpolates the curve at raw and returns volts.
func (t *Table) Voltage(raw Raw) float32 {
	p := t.points
	i := sort.Search(len(p), func(i int) bool { return p[i].Raw >= raw })
	switch {
	case i == 0:
		i = 1
	case i == len(p):
		i = len(p) - 1
	}

	a, b := p[i-1], p[i]
	frac := (float32(raw) - float32(a.Raw)) / (float32(b.Raw) - float32(a.Raw))
	mv := a.Millivolts + frac*(b.Millivolts-a.Millivolts)
	return mv / 1000
}
