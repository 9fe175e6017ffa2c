package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCoord(t *testing.T) {
	tests := []struct {
		row, col int
		wantErr  bool
	}{
		{1, 1, false},
		{5, 4, false},
		{3, 2, false},
		{0, 1, true},
		{6, 1, true},
		{1, 0, true},
		{1, 5, true},
		{-1, -1, true},
	}

	for _, tt := range tests {
		err := CheckCoord(tt.row, tt.col)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrOutOfRange, "row %d col %d", tt.row, tt.col)
		} else {
			assert.NoError(t, err, "row %d col %d", tt.row, tt.col)
		}
	}
}

func TestGrid_SetAt(t *testing.T) {
	var g Grid
	m := Measurement{Raw: 100, Voltage: 0.08, Illuminance: 10800}

	require.NoError(t, g.Set(5, 4, m))
	got, err := g.At(5, 4)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	cells := g.Cells()
	assert.Equal(t, m, cells[4][3])

	assert.ErrorIs(t, g.Set(6, 1, m), ErrOutOfRange)
	_, err = g.At(1, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestGridFromRaw(t *testing.T) {
	conv := NewConverter(nil)

	var raw [Rows][Cols]Raw
	raw[2][1] = 4095
	g := GridFromRaw(conv, raw)

	lux := g.Lux()
	assert.InDelta(t, IlluminanceFromVoltage(VRef), lux[2][1], 0.1)
	assert.Equal(t, float32(0), lux[0][0])

	m, err := g.At(3, 2)
	require.NoError(t, err)
	assert.Equal(t, Raw(4095), m.Raw)
}

func TestNewTable(t *testing.T) {
	_, err := NewTable([]Point{{Raw: 0, Millivolts: 0}})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewTable([]Point{{Raw: 10, Millivolts: 0}, {Raw: 10, Millivolts: 5}})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewTable([]Point{{Raw: 0, Millivolts: 50}, {Raw: 10, Millivolts: 5}})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	// Unsorted input is accepted
	table, err := NewTable([]Point{
		{Raw: 2000, Millivolts: 1700},
		{Raw: 0, Millivolts: 0},
		{Raw: 1000, Millivolts: 900},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.45, table.Voltage(500), 1e-4)
	assert.InDelta(t, 1.3, table.Voltage(1500), 1e-4)
	// Extrapolated from the last segment
	assert.InDelta(t, 2.1, table.Voltage(2500), 1e-4)
}
