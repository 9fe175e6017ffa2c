// Package metering reduces a 5x4 illuminance grid to a single representative
// value under one of the metering modes.
package metering

import (
	"sort"

	"github.com/itohio/golightmeter/pkg/sample"
)

// MinReliableLux is the lowest illuminance the photodiodes resolve reliably.
const MinReliableLux float32 = 10.0

// highlightCount is the number of brightest cells averaged in Highlight mode.
const highlightCount = sample.Cells / 4

// Reason explains why a cell was masked.
type Reason int

const (
	Saturated Reason = iota + 1
	BelowFloor
)

func (r Reason) String() string {
	switch r {
	case Saturated:
		return "saturated"
	case BelowFloor:
		return "below-floor"
	default:
		return "unknown"
	}
}

// MaskedCell describes a cell zeroed by the masking pass. Row and Col are 1-indexed.
type MaskedCell struct {
	Row, Col int
	Reason   Reason
	Raw      sample.Raw
	Lux      float32 // illuminance before masking
}

// Result is the outcome of aggregating a grid.
type Result struct {
	Lux          [sample.Rows][sample.Cols]float32 // masked illuminance, 0-indexed
	AverageLux   float32
	ValidSamples int // cells read by the mode that were not masked
	Masked       []MaskedCell
}

// Mask zeroes saturated and unreliable cells. Masked cells keep their slot
// with a zero value, they are not dropped.
func Mask(g *sample.Grid) ([sample.Rows][sample.Cols]float32, []MaskedCell) {
	cells := g.Cells()
	var lux [sample.Rows][sample.Cols]float32
	var masked []MaskedCell

	for r := range sample.Rows {
		for c := range sample.Cols {
			m := cells[r][c]
			switch {
			case m.Raw.Saturated():
				masked = append(masked, MaskedCell{Row: r + 1, Col: c + 1, Reason: Saturated, Raw: m.Raw, Lux: m.Illuminance})
			case m.Illuminance < MinReliableLux:
				masked = append(masked, MaskedCell{Row: r + 1, Col: c + 1, Reason: BelowFloor, Raw: m.Raw, Lux: m.Illuminance})
			default:
				lux[r][c] = m.Illuminance
			}
		}
	}

	return lux, masked
}

// Aggregate masks the grid and averages it under mode.
func Aggregate(g *sample.Grid, mode Mode) Result {
	lux, masked := Mask(g)
	avg, _ := Average(lux, mode)

	isMasked := make(map[[2]int]bool, len(masked))
	for _, m := range masked {
		isMasked[[2]int{m.Row - 1, m.Col - 1}] = true
	}
	valid := 0
	for _, cell := range cellsFor(mode) {
		if !isMasked[cell] {
			valid++
		}
	}
	if mode == Highlight && valid > highlightCount {
		valid = highlightCount
	}

	return Result{
		Lux:          lux,
		AverageLux:   avg,
		ValidSamples: valid,
		Masked:       masked,
	}
}

// Average combines a 0-indexed illuminance grid into one value. It returns
// the average and the number of cells it read. Invalid modes average as
// CenterWeighted.
func Average(lux [sample.Rows][sample.Cols]float32, mode Mode) (float32, int) {
	var total, count float32
	n := 0

	switch mode {
	case Matrix:
		for r := range sample.Rows {
			for c := range sample.Cols {
				total += lux[r][c]
				count++
			}
		}
		n = sample.Cells

	case Spot:
		for _, cell := range spotCells {
			total += lux[cell[0]][cell[1]]
			count++
		}
		n = len(spotCells)

	case Highlight:
		readings := make([]float32, 0, sample.Cells)
		for r := range sample.Rows {
			for c := range sample.Cols {
				readings = append(readings, lux[r][c])
			}
		}
		sort.SliceStable(readings, func(i, j int) bool { return readings[i] > readings[j] })
		for _, v := range readings[:highlightCount] {
			total += v
			count++
		}
		n = highlightCount

	default:
		for r := range sample.Rows {
			for c := range sample.Cols {
				w := centerWeight(r, c)
				total += lux[r][c] * w
				count += w
			}
		}
		n = sample.Cells
	}

	if count == 0 {
		return 0, n
	}
	return total / count, n
}

// spotCells are the two centermost cells, 0-indexed.
var spotCells = [][2]int{{2, 1}, {2, 2}}

// centerWeight is 2 inside the central block (0-indexed rows 1-3, cols 1-2).
func centerWeight(r, c int) float32 {
	if r >= 1 && r <= 3 && c >= 1 && c <= 2 {
		return 2.0
	}
	return 1.0
}

// cellsFor lists the 0-indexed cells a mode may read. Highlight may pick any
// cell but keeps only highlightCount of them.
func cellsFor(mode Mode) [][2]int {
	if mode == Spot {
		return spotCells
	}
	all := make([][2]int, 0, sample.Cells)
	for r := range sample.Rows {
		for c := range sample.Cols {
			all = append(all, [2]int{r, c})
		}
	}
	return all
}

// Weights returns the weight each cell carries in the average under mode,
// zero for cells the mode ignores.
func Weights(lux [sample.Rows][sample.Cols]float32, mode Mode) [sample.Rows][sample.Cols]float32 {
	var w [sample.Rows][sample.Cols]float32

	switch mode {
	case Matrix:
		for r := range sample.Rows {
			for c := range sample.Cols {
				w[r][c] = 1
			}
		}

	case Spot:
		for _, cell := range spotCells {
			w[cell[0]][cell[1]] = 1
		}

	case Highlight:
		idx := make([]int, sample.Cells)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return lux[idx[i]/sample.Cols][idx[i]%sample.Cols] > lux[idx[j]/sample.Cols][idx[j]%sample.Cols]
		})
		for _, i := range idx[:highlightCount] {
			w[i/sample.Cols][i%sample.Cols] = 1
		}

	default:
		for r := range sample.Rows {
			for c := range sample.Cols {
				w[r][c] = centerWeight(r, c)
			}
		}
	}
	return w
}
