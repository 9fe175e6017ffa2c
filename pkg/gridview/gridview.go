package gridview

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/golightmeter/pkg/device"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
)

// Frame is one measurement as displayed.
type Frame struct {
	Raw            [sample.Rows][sample.Cols]sample.Raw
	Lux            [sample.Rows][sample.Cols]float32
	Mode           metering.Mode
	Recommendation string
}

// FrameFromReport extracts the displayed values of a measurement report.
func FrameFromReport(r device.Report) Frame {
	f := Frame{
		Mode:           r.Mode,
		Recommendation: r.Recommendation,
	}
	for i := range sample.Rows {
		for j := range sample.Cols {
			f.Raw[i][j] = r.Cells[i][j].Raw
			f.Lux[i][j] = r.Cells[i][j].Lux
		}
	}
	return f
}

// Masked reports whether the meter discarded the cell.
func (f *Frame) Masked(row, col int) bool {
	return f.Raw[row][col].Saturated() || f.Lux[row][col] < metering.MinReliableLux
}

// Weights returns the weight of every cell under the frame's metering mode.
func (f *Frame) Weights() [sample.Rows][sample.Cols]float32 {
	var lux [sample.Rows][sample.Cols]float32
	for r := range sample.Rows {
		for c := range sample.Cols {
			if !f.Masked(r, c) {
				lux[r][c] = f.Lux[r][c]
			}
		}
	}
	return metering.Weights(lux, f.Mode)
}

// GridWidget is a custom Fyne widget that displays the 5x4 photodiode array
// as a heat map with the exposure recommendation underneath.
type GridWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu    sync.RWMutex
	frame Frame
	valid bool
}

// New creates a new GridWidget instance.
func New() *GridWidget {
	g := &GridWidget{}
	g.ExtendBaseWidget(g)
	g.Refresh()
	return g
}

// Update shows a new frame.
// This should be called from the device reader using fyne.Do().
func (g *GridWidget) Update(f Frame) {
	g.mu.Lock()
	g.frame = f
	g.valid = true
	g.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	g.Refresh()
}

// Frame returns the displayed frame. ok is false before the first update.
func (g *GridWidget) Frame() (f Frame, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frame, g.valid
}

// CreateRenderer creates the widget renderer.
func (g *GridWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &gridRenderer{
		grid:       g,
		background: canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}), // Dark background
		summary:    canvas.NewText("", color.RGBA{R: 230, G: 230, B: 230, A: 255}),
		mode:       canvas.NewText("", color.RGBA{R: 150, G: 150, B: 150, A: 255}),
	}
	r.summary.TextSize = 16
	r.summary.TextStyle = fyne.TextStyle{Bold: true}
	r.summary.Alignment = fyne.TextAlignCenter
	r.mode.TextSize = 11
	r.mode.Alignment = fyne.TextAlignCenter

	r.objects = append(r.objects, r.background)
	for i := range sample.Rows {
		for j := range sample.Cols {
			cell := canvas.NewRectangle(noData)
			cell.StrokeColor = outline
			cell.StrokeWidth = 0
			label := canvas.NewText("", color.Black)
			label.TextSize = 12
			label.Alignment = fyne.TextAlignCenter
			r.cells[i][j] = cell
			r.labels[i][j] = label
			r.objects = append(r.objects, cell, label)
		}
	}
	r.objects = append(r.objects, r.summary, r.mode)
	return r
}
