package gridview

import (
	"image/color"
	"strconv"

	"github.com/chewxy/math32"

	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
)

// maxLux is the illuminance of a saturated cell.
var maxLux = sample.IlluminanceFromVoltage(sample.VRef)

// Level maps illuminance to [0,1] on a log scale between the reliable floor
// and saturation.
func Level(lux float32) float32 {
	if !(lux > metering.MinReliableLux) {
		return 0
	}
	l := math32.Log2(lux/metering.MinReliableLux) / math32.Log2(maxLux/metering.MinReliableLux)
	return min(1, max(0, l))
}

// HeatColor returns the fill of a cell: dark blue through red and yellow to
// white. Masked cells are grey.
func HeatColor(lux float32, isMasked bool) color.RGBA {
	if isMasked {
		return masked
	}
	l := Level(lux)

	// Piecewise gradient over four stops
	stops := [...]color.RGBA{
		{R: 10, G: 20, B: 90, A: 255},
		{R: 200, G: 30, B: 30, A: 255},
		{R: 250, G: 200, B: 20, A: 255},
		{R: 255, G: 255, B: 240, A: 255},
	}
	pos := l * float32(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	t := pos - float32(i)
	a, b := stops[i], stops[i+1]
	return color.RGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: 255,
	}
}

func lerp(a, b uint8, t float32) uint8 {
	return uint8(math32.Round(float32(a) + (float32(b)-float32(a))*t))
}

// textColor picks a readable label color for a fill.
func textColor(fill color.RGBA) color.Color {
	// Rec. 601 luma
	luma := 0.299*float32(fill.R) + 0.587*float32(fill.G) + 0.114*float32(fill.B)
	if luma > 140 {
		return color.Black
	}
	return color.White
}

// FormatLux formats a cell value compactly: "850", "12.3k".
func FormatLux(lux float32, saturated bool) string {
	switch {
	case saturated:
		return "SAT"
	case lux < metering.MinReliableLux:
		return "<10"
	case lux < 1000:
		return strconv.FormatFloat(float64(math32.Round(lux)), 'f', 0, 32)
	}
	return strconv.FormatFloat(float64(lux/1000), 'f', 1, 32) + "k"
}
