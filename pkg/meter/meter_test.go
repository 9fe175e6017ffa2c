package meter

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/itohio/golightmeter/pkg/exposure"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gridSampler struct {
	raw   [sample.Rows][sample.Cols]sample.Raw
	reads int
	// failAt fails the n-th read (1-based) when > 0
	failAt int
	// onRead runs before every read
	onRead func(row, col int)
}

func (g *gridSampler) Read(row, col int) (sample.Raw, error) {
	g.reads++
	if g.onRead != nil {
		g.onRead(row, col)
	}
	if g.failAt > 0 && g.reads == g.failAt {
		return 0, errors.New("adc timeout")
	}
	return g.raw[row-1][col-1], nil
}

func uniform(v sample.Raw) *gridSampler {
	g := &gridSampler{}
	for r := range sample.Rows {
		for c := range sample.Cols {
			g.raw[r][c] = v
		}
	}
	return g
}

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func newMeter(t *testing.T, opts Options) (*Meter, *settings.Settings) {
	t.Helper()
	s := settings.New(settings.Defaults())
	if opts.Logger == nil {
		opts.Logger = &captureLogger{}
	}
	return New(nil, s, nil, opts), s
}

func TestNew(t *testing.T) {
	m, s := newMeter(t, Options{})

	assert.NotNil(t, m)
	assert.Same(t, s, m.Settings())
	assert.Equal(t, "calibrated", m.Model().Name())
	_, ok := m.Last()
	assert.False(t, ok)
}

func TestMeasure_Uniform(t *testing.T) {
	m, _ := newMeter(t, Options{})
	g := uniform(1000)

	res, err := m.Measure(g)
	require.NoError(t, err)

	assert.Equal(t, sample.Cells, g.reads)
	wantLux := sample.IlluminanceFromVoltage(float32(1000) * sample.VRef / float32(sample.MaxRaw))
	assert.InEpsilon(t, wantLux, res.AverageLux, 1e-5)
	assert.Equal(t, sample.Cells, res.ValidSamples)
	assert.Empty(t, res.Masked)
	assert.Equal(t, metering.CenterWeighted, res.Settings.Mode)
	assert.Equal(t, "calibrated", res.Model)

	// ~108753 lux: EV 15.41, t = 128 / 43501 s
	assert.InDelta(t, 15.41, res.EV, 0.01)
	assert.Equal(t, "ISO 100, 1/340 (EV: 15.4)", res.Recommendation)

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, res, last)
}

func TestMeasure_UniformEveryMode(t *testing.T) {
	for _, mode := range metering.Modes {
		t.Run(metering.ModeName(mode), func(t *testing.T) {
			m, s := newMeter(t, Options{})
			require.NoError(t, s.SetMode(mode))

			res, err := m.Measure(uniform(2000))
			require.NoError(t, err)

			want := sample.NewConverter(nil).Convert(2000).Illuminance
			assert.InEpsilon(t, want, res.AverageLux, 1e-5)
			assert.Equal(t, mode, res.Settings.Mode)
		})
	}
}

func TestMeasure_Darkness(t *testing.T) {
	m, _ := newMeter(t, Options{})

	res, err := m.Measure(uniform(0))
	require.NoError(t, err)

	assert.Equal(t, float32(0), res.AverageLux)
	assert.Equal(t, 0, res.ValidSamples)
	assert.Len(t, res.Masked, sample.Cells)
	assert.Equal(t, exposure.MinEV, res.EV)
	// 2^6 * 128 seconds
	assert.Equal(t, "ISO 100, 8192.0 seconds (EV: -6.0)", res.Recommendation)
}

func TestMeasure_SaturatedCellLogged(t *testing.T) {
	logger := &captureLogger{}
	m, s := newMeter(t, Options{Logger: logger})
	require.NoError(t, s.SetMode(metering.Matrix))

	g := uniform(1000)
	g.raw[0][3] = sample.MaxRaw

	res, err := m.Measure(g)
	require.NoError(t, err)

	require.Len(t, res.Masked, 1)
	assert.Equal(t, 1, res.Masked[0].Row)
	assert.Equal(t, 4, res.Masked[0].Col)
	assert.Equal(t, metering.Saturated, res.Masked[0].Reason)
	assert.Equal(t, float32(0), res.Lux[0][3])
	assert.Equal(t, 19, res.ValidSamples)

	// Masked cell stays in the denominator
	level := sample.NewConverter(nil).Convert(1000).Illuminance
	assert.InEpsilon(t, level*19/20, res.AverageLux, 1e-5)

	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "(1,4)")
	assert.Contains(t, logger.lines[0], "saturated")
}

func TestMeasure_HardwareFaultKeepsLast(t *testing.T) {
	m, _ := newMeter(t, Options{})

	first, err := m.Measure(uniform(1000))
	require.NoError(t, err)

	g := uniform(3000)
	g.failAt = 7
	_, err = m.Measure(g)
	assert.ErrorIs(t, err, ErrHardwareFault)
	assert.Contains(t, err.Error(), "(2,3)")
	assert.Equal(t, 7, g.reads)

	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, first, last)
}

type outOfRangeSampler struct{}

func (outOfRangeSampler) Read(row, col int) (sample.Raw, error) { return 5000, nil }

func TestMeasure_OutOfRangeReading(t *testing.T) {
	m, _ := newMeter(t, Options{})

	_, err := m.Measure(outOfRangeSampler{})
	assert.ErrorIs(t, err, ErrHardwareFault)
	_, ok := m.Last()
	assert.False(t, ok)
}

func TestMeasure_SettingsSnapshotPerCycle(t *testing.T) {
	m, s := newMeter(t, Options{})

	g := uniform(1000)
	g.onRead = func(row, col int) {
		if row == 3 && col == 1 {
			// Arrives mid-cycle, applies to the next one
			_ = s.SetISO(400)
			_ = s.SetMode(metering.Spot)
		}
	}

	res, err := m.Measure(g)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Settings.ISO)
	assert.Equal(t, metering.CenterWeighted, res.Settings.Mode)
	assert.Contains(t, res.Recommendation, "ISO 100")

	g.onRead = nil
	res, err = m.Measure(g)
	require.NoError(t, err)
	assert.Equal(t, 400, res.Settings.ISO)
	assert.Equal(t, metering.Spot, res.Settings.Mode)
	assert.Contains(t, res.Recommendation, "ISO 400")
}

type alternatingSampler struct {
	n int
}

func (a *alternatingSampler) Read(row, col int) (sample.Raw, error) {
	a.n++
	if a.n%2 == 0 {
		return 1004, nil
	}
	return 1000, nil
}

func TestMeasure_Oversampling(t *testing.T) {
	m, _ := newMeter(t, Options{AverageSamples: 2})
	a := &alternatingSampler{}

	res, err := m.Measure(a)
	require.NoError(t, err)

	assert.Equal(t, 2*sample.Cells, a.n)
	for r := range sample.Rows {
		for c := range sample.Cols {
			assert.Equal(t, sample.Raw(1002), res.Raw[r][c])
		}
	}
}

func TestMeasure_SampleInterval(t *testing.T) {
	m, _ := newMeter(t, Options{SampleInterval: 5 * time.Millisecond})
	var slept []time.Duration
	m.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := m.Measure(uniform(1000))
	require.NoError(t, err)

	assert.Len(t, slept, sample.Cells)
	assert.Equal(t, 5*time.Millisecond, slept[0])
}

func TestMeasure_KModel(t *testing.T) {
	s := settings.New(settings.Defaults())
	m := New(nil, s, exposure.KMethod{}, Options{Logger: &captureLogger{}})

	res, err := m.Measure(uniform(1000))
	require.NoError(t, err)

	// At ISO 100 and k = 2.5 both models agree on EV
	assert.InDelta(t, 15.41, res.EV, 0.01)
	assert.Equal(t, "k", res.Model)
	assert.InEpsilon(t, 1/(res.AverageLux/2.5), res.Shutter, 1e-4)
}

func TestEvaluate_DoesNotTouchLast(t *testing.T) {
	m, _ := newMeter(t, Options{})

	var raw [sample.Rows][sample.Cols]sample.Raw
	raw[2][1] = 2000
	res, err := m.evaluate(raw, m.Settings().Snapshot())
	require.NoError(t, err)
	assert.Greater(t, res.AverageLux, float32(0))

	_, ok := m.Last()
	assert.False(t, ok)
}

func TestOnUpdate(t *testing.T) {
	m, _ := newMeter(t, Options{})

	var got []Result
	m.OnUpdate(func(r Result) { got = append(got, r) })
	m.OnUpdate(nil)

	res, err := m.Measure(uniform(1000))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res, got[0])

	// No callback on failure
	g := uniform(1000)
	g.failAt = 1
	_, err = m.Measure(g)
	require.Error(t, err)
	assert.Len(t, got, 1)
}
