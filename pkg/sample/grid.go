package sample

import (
	"errors"
	"fmt"
)

const (
	// Rows is the number of sensor groups (one ADC channel each).
	Rows = 5
	// Cols is the number of multiplexer inputs per group.
	Cols = 4
	// Cells is the number of photodiodes on the grid.
	Cells = Rows * Cols
)

var ErrOutOfRange = errors.New("grid coordinate out of range")

// Grid holds one measurement per photodiode. The zero value is an empty grid.
// Rows and columns are 1-indexed at the API boundary.
type Grid struct {
	cells [Rows][Cols]Measurement
}

// CheckCoord validates a 1-indexed grid coordinate.
func CheckCoord(row, col int) error {
	if row < 1 || row > Rows || col < 1 || col > Cols {
		return fmt.Errorf("%w: row %d, col %d", ErrOutOfRange, row, col)
	}
	return nil
}

// At returns the measurement at (row, col).
func (g *Grid) At(row, col int) (Measurement, error) {
	if err := CheckCoord(row, col); err != nil {
		return Measurement{}, err
	}
	return g.cells[row-1][col-1], nil
}

// Set stores the measurement at (row, col).
func (g *Grid) Set(row, col int, m Measurement) error {
	if err := CheckCoord(row, col); err != nil {
		return err
	}
	g.cells[row-1][col-1] = m
	return nil
}

// Cells returns a copy of the 0-indexed cell array.
func (g *Grid) Cells() [Rows][Cols]Measurement {
	return g.cells
}

// Lux returns the illuminance of every cell, 0-indexed.
func (g *Grid) Lux() [Rows][Cols]float32 {
	var lux [Rows][Cols]float32
	for r := range Rows {
		for c := range Cols {
			lux[r][c] = g.cells[r][c].Illuminance
		}
	}
	return lux
}

// GridFromRaw converts a 0-indexed array of raw readings into a grid.
func GridFromRaw(conv *Converter, raw [Rows][Cols]Raw) Grid {
	var g Grid
	for r := range Rows {
		for c := range Cols {
			g.cells[r][c] = conv.Convert(raw[r][c])
		}
	}
	return g
}
