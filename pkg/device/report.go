package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/golightmeter/pkg/console"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
)

var ErrMalformedReport = errors.New("malformed report")

// Kind classifies a report.
type Kind int

const (
	Text        Kind = iota // banner, echo, help and other free text
	Measurement             // a complete measurement cycle
	Reply                   // acknowledgement of a configuration command
	Failure                 // an error reported by the firmware
)

func (k Kind) String() string {
	switch k {
	case Measurement:
		return "measurement"
	case Reply:
		return "reply"
	case Failure:
		return "failure"
	default:
		return "text"
	}
}

// Cell is one row of the detailed measurement table.
type Cell struct {
	Raw     sample.Raw
	Voltage float32
	Lux     float32
}

// Report is one event parsed from the meter's console output.
type Report struct {
	ID   uuid.UUID
	Time time.Time
	Kind Kind
	Text string // the line for Text, Reply and Failure reports

	// Measurement only
	Cells          [sample.Rows][sample.Cols]Cell
	Recommendation string
	ISO            int
	Shutter        float32 // seconds
	EV             float32
	Mode           metering.Mode
}

// Lux returns the illuminance grid of a measurement report.
func (r Report) Lux() [sample.Rows][sample.Cols]float32 {
	var lux [sample.Rows][sample.Cols]float32
	for i := range sample.Rows {
		for j := range sample.Cols {
			lux[i][j] = r.Cells[i][j].Lux
		}
	}
	return lux
}

var replyPrefixes = []string{
	"ISO configured to:",
	"Metering type configured to:",
	"Shutter speed calibration set to:",
	"K value set to:",
	"Measurement started",
	"Resetting device",
}

var failurePrefixes = []string{
	"Error:",
	"Unknown command:",
}

// Parser turns console output lines into reports. A measurement spans the
// detailed table, the recommendation and the metering mode lines.
type Parser struct {
	inTable bool
	rows    int
	pending *Report
}

// Feed consumes one line without its terminator. It returns a report when
// the line completes one.
func (p *Parser) Feed(line string) (Report, bool, error) {
	line = stripPrompt(strings.TrimRight(line, "\r\n"))
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Report{}, false, nil
	}

	if trimmed == console.TableHeader {
		p.pending = &Report{Kind: Measurement}
		p.inTable = true
		p.rows = 0
		return Report{}, false, nil
	}

	if p.inTable {
		return p.feedTable(line, trimmed)
	}

	if rest, ok := strings.CutPrefix(trimmed, console.RecommendationPrefix); ok {
		if p.pending == nil {
			p.pending = &Report{Kind: Measurement}
		}
		iso, shutter, ev, err := ParseRecommendation(rest)
		if err != nil {
			p.pending = nil
			return Report{}, false, err
		}
		p.pending.Recommendation = rest
		p.pending.ISO = iso
		p.pending.Shutter = shutter
		p.pending.EV = ev
		return Report{}, false, nil
	}

	if rest, ok := strings.CutPrefix(trimmed, console.ModePrefix); ok && p.pending != nil && p.pending.Recommendation != "" {
		r := *p.pending
		p.pending = nil
		r.Mode = metering.ModeFromName(rest)
		return stamp(r), true, nil
	}

	for _, prefix := range failurePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return stamp(Report{Kind: Failure, Text: trimmed}), true, nil
		}
	}
	for _, prefix := range replyPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return stamp(Report{Kind: Reply, Text: trimmed}), true, nil
		}
	}
	return stamp(Report{Kind: Text, Text: trimmed}), true, nil
}

func (p *Parser) feedTable(line, trimmed string) (Report, bool, error) {
	if trimmed == console.TableFooter {
		p.inTable = false
		if p.rows != sample.Rows {
			p.pending = nil
			return Report{}, false, fmt.Errorf("%w: table has %d rows", ErrMalformedReport, p.rows)
		}
		return Report{}, false, nil
	}

	row, cells, ok, err := parseRow(line)
	if err != nil {
		p.inTable = false
		p.pending = nil
		return Report{}, false, err
	}
	if ok {
		p.pending.Cells[row-1] = cells
		p.rows++
	}
	// Column headers and separators are skipped
	return Report{}, false, nil
}

// parseRow parses " 1  | 1000 0.81V 108753.2 | ...". ok is false for header lines.
func parseRow(line string) (int, [sample.Cols]Cell, bool, error) {
	var cells [sample.Cols]Cell
	parts := strings.Split(strings.TrimRight(strings.TrimSpace(line), "|"), "|")
	if len(parts) != sample.Cols+1 {
		return 0, cells, false, nil
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		// "Row" and "    " headers
		return 0, cells, false, nil
	}
	if row < 1 || row > sample.Rows {
		return 0, cells, false, fmt.Errorf("%w: row %d", ErrMalformedReport, row)
	}

	for i, part := range parts[1:] {
		fields := strings.Fields(part)
		if len(fields) != 3 {
			return 0, cells, false, fmt.Errorf("%w: row %d column %d: '%s'", ErrMalformedReport, row, i+1, part)
		}
		raw, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil || raw > uint64(sample.MaxRaw) {
			return 0, cells, false, fmt.Errorf("%w: row %d column %d: invalid ADC value '%s'", ErrMalformedReport, row, i+1, fields[0])
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "V"), 32)
		if err != nil {
			return 0, cells, false, fmt.Errorf("%w: row %d column %d: invalid voltage: %w", ErrMalformedReport, row, i+1, err)
		}
		lux, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return 0, cells, false, fmt.Errorf("%w: row %d column %d: invalid lux: %w", ErrMalformedReport, row, i+1, err)
		}
		cells[i] = Cell{Raw: sample.Raw(raw), Voltage: float32(v), Lux: float32(lux)}
	}
	return row, cells, true, nil
}

// ParseRecommendation parses "ISO 100, 1/250 (EV: 12.0)" or
// "ISO 100, 2.0 seconds (EV: -1.0)".
func ParseRecommendation(s string) (iso int, shutter, ev float32, err error) {
	var den int
	if _, err := fmt.Sscanf(s, "ISO %d, 1/%d (EV: %f)", &iso, &den, &ev); err == nil {
		if den <= 0 {
			return 0, 0, 0, fmt.Errorf("%w: shutter 1/%d", ErrMalformedReport, den)
		}
		return iso, 1 / float32(den), ev, nil
	}
	if _, err := fmt.Sscanf(s, "ISO %d, %f seconds (EV: %f)", &iso, &shutter, &ev); err == nil {
		return iso, shutter, ev, nil
	}
	return 0, 0, 0, fmt.Errorf("%w: recommendation '%s'", ErrMalformedReport, s)
}

func stripPrompt(line string) string {
	for {
		rest, ok := strings.CutPrefix(line, console.Prompt)
		if !ok {
			return line
		}
		line = rest
	}
}

func stamp(r Report) Report {
	r.ID = uuid.New()
	r.Time = time.Now()
	return r
}
