package console

import (
	"fmt"
	"io"

	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
)

const (
	Prompt = "> "
	Banner = "\n\n=== 4x5 Camera Light Meter ===\nType 'help' for available commands\n"

	TableHeader = "================= DETAILED MEASUREMENTS ================="
	TableFooter = "==========================================================="

	RecommendationPrefix = "Exposure recommendation: "
	ModePrefix           = "Metering mode: "
)

const helpText = `
Available commands:
  config iso <value>         - Set ISO value (e.g., 100, 400, 800)
  config type <mode>         - Set metering type (center, matrix, spot, highlight)
  config calibration <value> - Set shutter speed calibration factor (default: 128.0)
  config k <value>           - Set K value, 0..100 (default: 2.5)
  start measure              - Start light measurement
  help                       - Show this help
  reset                      - Restore default settings

`

// WriteTable writes the per-cell ADC, voltage and lux table.
func WriteTable(w io.Writer, g *sample.Grid) {
	cells := g.Cells()

	fmt.Fprintf(w, "\n%s\n", TableHeader)
	fmt.Fprint(w, "    | Column 1      | Column 2      | Column 3      | Column 4      |\n")
	fmt.Fprint(w, "Row | ADC  V    Lux | ADC  V    Lux | ADC  V    Lux | ADC  V    Lux |\n")
	fmt.Fprint(w, "----+---------------+---------------+---------------+---------------+\n")

	for r := range sample.Rows {
		fmt.Fprintf(w, " %d  |", r+1)
		for c := range sample.Cols {
			m := cells[r][c]
			fmt.Fprintf(w, " %4d %.2fV %5.1f |", m.Raw, m.Voltage, m.Illuminance)
		}
		fmt.Fprint(w, "\n")
	}

	fmt.Fprintf(w, "%s\n", TableFooter)
}

// WriteResult writes a full measurement report followed by the prompt.
func WriteResult(w io.Writer, res meter.Result) {
	WriteTable(w, &res.Grid)
	fmt.Fprintf(w, "\n%s%s\n", RecommendationPrefix, res.Recommendation)
	fmt.Fprintf(w, "%s%s\n\n", ModePrefix, metering.ModeName(res.Settings.Mode))
	fmt.Fprint(w, Prompt)
}
