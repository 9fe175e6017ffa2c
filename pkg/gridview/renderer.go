package gridview

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
)

var (
	noData  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	masked  = color.RGBA{R: 70, G: 70, B: 70, A: 255}
	outline = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
)

// gridRenderer renders the grid widget.
type gridRenderer struct {
	grid *GridWidget

	background *canvas.Rectangle
	cells      [sample.Rows][sample.Cols]*canvas.Rectangle
	labels     [sample.Rows][sample.Cols]*canvas.Text
	summary    *canvas.Text
	mode       *canvas.Text

	// Objects list for Fyne
	objects []fyne.CanvasObject
}

// MinSize returns the minimum size of the widget.
func (r *gridRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 420)
}

// Layout arranges the cells in a 5x4 grid above the summary lines.
func (r *gridRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	const (
		margin = float32(10)
		gap    = float32(4)
		footer = float32(50)
	)

	cellW := (size.Width - 2*margin - gap*(sample.Cols-1)) / sample.Cols
	cellH := (size.Height - 2*margin - footer - gap*(sample.Rows-1)) / sample.Rows
	if cellW < 0 || cellH < 0 {
		return
	}

	for i := range sample.Rows {
		for j := range sample.Cols {
			pos := fyne.NewPos(margin+float32(j)*(cellW+gap), margin+float32(i)*(cellH+gap))
			r.cells[i][j].Move(pos)
			r.cells[i][j].Resize(fyne.NewSize(cellW, cellH))

			label := r.labels[i][j]
			ls := label.MinSize()
			label.Move(fyne.NewPos(pos.X, pos.Y+(cellH-ls.Height)/2))
			label.Resize(fyne.NewSize(cellW, ls.Height))
		}
	}

	top := size.Height - margin - footer
	r.summary.Move(fyne.NewPos(0, top+6))
	r.summary.Resize(fyne.NewSize(size.Width, r.summary.MinSize().Height))
	r.mode.Move(fyne.NewPos(0, top+30))
	r.mode.Resize(fyne.NewSize(size.Width, r.mode.MinSize().Height))
}

// Refresh updates the widget display.
func (r *gridRenderer) Refresh() {
	f, ok := r.grid.Frame()

	weights := f.Weights()
	for i := range sample.Rows {
		for j := range sample.Cols {
			cell := r.cells[i][j]
			label := r.labels[i][j]

			switch {
			case !ok:
				cell.FillColor = noData
				cell.StrokeWidth = 0
				label.Text = ""
			default:
				isMasked := f.Masked(i, j)
				fill := HeatColor(f.Lux[i][j], isMasked)
				cell.FillColor = fill
				cell.StrokeWidth = 0
				if !isMasked && weights[i][j] > 0 {
					cell.StrokeWidth = weights[i][j] * 1.5
				}
				label.Text = FormatLux(f.Lux[i][j], f.Raw[i][j].Saturated())
				label.Color = textColor(fill)
			}
			cell.Refresh()
			label.Refresh()
		}
	}

	if ok {
		r.summary.Text = f.Recommendation
		r.mode.Text = "Metering mode: " + metering.ModeName(f.Mode)
	} else {
		r.summary.Text = "No measurement"
		r.mode.Text = ""
	}
	r.summary.Refresh()
	r.mode.Refresh()

	r.Layout(r.grid.Size())
}

// Objects returns all canvas objects for rendering.
func (r *gridRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *gridRenderer) Destroy() {
	// Cleanup handled by Fyne
}
