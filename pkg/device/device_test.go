package device

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/itohio/golightmeter/pkg/console"
	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/sensor"
	"github.com/itohio/golightmeter/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discard struct{}

func (discard) Printf(string, ...any) {}

func feedAll(t *testing.T, p *Parser, text string) []Report {
	t.Helper()
	var reports []Report
	for _, line := range strings.Split(text, "\n") {
		r, ok, err := p.Feed(line)
		require.NoError(t, err, line)
		if ok {
			reports = append(reports, r)
		}
	}
	return reports
}

func TestParser_MeasurementRoundTrip(t *testing.T) {
	st := settings.New(settings.Defaults())
	require.NoError(t, st.SetMode(metering.Highlight))
	require.NoError(t, st.SetISO(400))
	m := meter.New(nil, st, nil, meter.Options{Logger: discard{}})

	grid := sensor.Uniform(1000)
	grid.Raw[1][2] = 4095
	grid.Raw[4][0] = 0
	res, err := m.Measure(grid)
	require.NoError(t, err)

	var out bytes.Buffer
	console.WriteResult(&out, res)

	var p Parser
	reports := feedAll(t, &p, out.String())
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, Measurement, r.Kind)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.Time.IsZero())
	assert.Equal(t, res.Recommendation, r.Recommendation)
	assert.Equal(t, 400, r.ISO)
	assert.Equal(t, metering.Highlight, r.Mode)
	assert.InDelta(t, res.EV, r.EV, 0.05)
	assert.InEpsilon(t, res.Shutter, r.Shutter, 0.01)

	cells := res.Grid.Cells()
	for i := range sample.Rows {
		for j := range sample.Cols {
			assert.Equal(t, cells[i][j].Raw, r.Cells[i][j].Raw)
			assert.InDelta(t, cells[i][j].Voltage, r.Cells[i][j].Voltage, 0.005)
			assert.InDelta(t, cells[i][j].Illuminance, r.Cells[i][j].Lux, 0.1)
		}
	}
	assert.Equal(t, sample.Raw(4095), r.Cells[1][2].Raw)
	assert.Equal(t, float32(0), r.Lux()[4][0])
}

func TestParser_Classification(t *testing.T) {
	tests := []struct {
		line string
		kind Kind
		text string
	}{
		{line: "ISO configured to: 400", kind: Reply, text: "ISO configured to: 400"},
		{line: "> Metering type configured to: spot", kind: Reply, text: "Metering type configured to: spot"},
		{line: "> > Shutter speed calibration set to: 64.00", kind: Reply, text: "Shutter speed calibration set to: 64.00"},
		{line: "K value set to: 2.50\r", kind: Reply, text: "K value set to: 2.50"},
		{line: "Measurement started", kind: Reply, text: "Measurement started"},
		{line: "Resetting device...", kind: Reply, text: "Resetting device..."},
		{line: "Error: hardware fault: adc timeout", kind: Failure, text: "Error: hardware fault: adc timeout"},
		{line: "> Unknown command: 'foo'. Type 'help' for available commands.", kind: Failure, text: "Unknown command: 'foo'. Type 'help' for available commands."},
		{line: "=== 4x5 Camera Light Meter ===", kind: Text, text: "=== 4x5 Camera Light Meter ==="},
		{line: "> config iso 400", kind: Text, text: "config iso 400"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var p Parser
			r, ok, err := p.Feed(tt.line)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, tt.text, r.Text)
		})
	}
}

func TestParser_IgnoresBlankAndPrompt(t *testing.T) {
	var p Parser
	for _, line := range []string{"", "   ", "> ", "> > "} {
		_, ok, err := p.Feed(line)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestParser_ModeWithoutRecommendationIsText(t *testing.T) {
	var p Parser
	r, ok, err := p.Feed("Metering mode: spot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Text, r.Kind)
}

func TestParser_MalformedTable(t *testing.T) {
	var p Parser
	_, _, err := p.Feed(console.TableHeader)
	require.NoError(t, err)

	_, _, err = p.Feed(" 1  | 1000 0.81V 108753.2 | abc 0.81V 1.0 | 1000 0.81V 1.0 | 1000 0.81V 1.0 |")
	assert.ErrorIs(t, err, ErrMalformedReport)

	// Parser recovers on the next report
	r, ok, err := p.Feed("ISO configured to: 100")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Reply, r.Kind)
}

func TestParser_RawRange(t *testing.T) {
	row := func(raw string) string {
		return " 1  | " + raw + " 3.30V 445344.1 | 1000 0.81V 1.0 | 1000 0.81V 1.0 | 1000 0.81V 1.0 |"
	}

	var p Parser
	_, _, err := p.Feed(console.TableHeader)
	require.NoError(t, err)
	_, _, err = p.Feed(row("4095"))
	assert.NoError(t, err)

	p = Parser{}
	_, _, err = p.Feed(console.TableHeader)
	require.NoError(t, err)
	_, _, err = p.Feed(row("4096"))
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestParser_ShortTable(t *testing.T) {
	var p Parser
	_, _, err := p.Feed(console.TableHeader)
	require.NoError(t, err)
	_, _, err = p.Feed(" 1  | 1000 0.81V 1.0 | 1000 0.81V 1.0 | 1000 0.81V 1.0 | 1000 0.81V 1.0 |")
	require.NoError(t, err)

	_, _, err = p.Feed(console.TableFooter)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		in      string
		iso     int
		shutter float32
		ev      float32
		wantErr bool
	}{
		{in: "ISO 100, 1/250 (EV: 12.0)", iso: 100, shutter: 1.0 / 250, ev: 12},
		{in: "ISO 400, 2.0 seconds (EV: -1.0)", iso: 400, shutter: 2, ev: -1},
		{in: "ISO 50, 16384.0 seconds (EV: -6.0)", iso: 50, shutter: 16384, ev: -6},
		{in: "ISO 100, 1/0 (EV: 12.0)", wantErr: true},
		{in: "f/8 1/125", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			iso, shutter, ev, err := ParseRecommendation(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedReport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.iso, iso)
			assert.InDelta(t, tt.shutter, shutter, 1e-6)
			assert.InDelta(t, tt.ev, ev, 1e-6)
		})
	}
}

func TestNewSerial(t *testing.T) {
	dev := NewSerial("COM3", 57600, 10)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.port)
	assert.Equal(t, 57600, dev.baudRate)
	assert.Equal(t, 10, dev.bufSize)
	assert.NotNil(t, dev.Reports())
	assert.False(t, dev.IsConnected())
}

func TestNewSerial_Defaults(t *testing.T) {
	dev := NewSerial("COM3", 0, 0)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, dev.bufSize)
}

func TestSerial_NotConnected(t *testing.T) {
	dev := NewSerial("COM3", 0, 0)
	assert.ErrorIs(t, dev.Send("start measure"), ErrNotConnected)
	assert.NoError(t, dev.Close())
}
