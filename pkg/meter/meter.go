package meter

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/golightmeter/pkg/exposure"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/settings"
)

// ErrHardwareFault is returned when a sensor read fails. The cycle is aborted
// and the previous result is kept.
var ErrHardwareFault = errors.New("hardware fault")

// Sampler reads one photodiode. Row and col are 1-indexed. Implementations
// handle their own multiplexer settling.
type Sampler interface {
	Read(row, col int) (sample.Raw, error)
}

// Logger receives diagnostics about masked cells. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Options tune the sampling loop.
type Options struct {
	Logger         Logger        // nil = log.Default()
	AverageSamples int           // reads per cell, <= 1 means a single read
	SampleInterval time.Duration // pause after every cell
}

// Result is the outcome of one measurement cycle.
type Result struct {
	Time     time.Time
	Settings settings.Snapshot // values the cycle was computed with
	Model    string

	Raw  [sample.Rows][sample.Cols]sample.Raw
	Grid sample.Grid
	Lux  [sample.Rows][sample.Cols]float32 // after masking

	Masked       []metering.MaskedCell
	AverageLux   float32
	ValidSamples int

	EV             float32
	Shutter        float32 // seconds
	Recommendation string
}

// Meter runs the measurement pipeline: sample, convert, mask, aggregate,
// compute EV and shutter speed, format the recommendation.
type Meter struct {
	conv     *sample.Converter
	settings *settings.Settings
	model    exposure.Model
	opts     Options

	mu    sync.RWMutex
	last  Result
	valid bool

	callbacks []func(Result)
	cbMu      sync.RWMutex

	sleep func(time.Duration)
}

// New creates a meter. A nil converter uses the linear ADC conversion, a nil
// model the calibrated one.
func New(conv *sample.Converter, s *settings.Settings, model exposure.Model, opts Options) *Meter {
	if conv == nil {
		conv = sample.NewConverter(nil)
	}
	if model == nil {
		model = exposure.Calibrated{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.AverageSamples < 1 {
		opts.AverageSamples = 1
	}
	return &Meter{
		conv:     conv,
		settings: s,
		model:    model,
		opts:     opts,
		sleep:    time.Sleep,
	}
}

// Settings returns the configuration the meter reads on every cycle.
func (m *Meter) Settings() *settings.Settings {
	return m.settings
}

// Model returns the exposure model in use.
func (m *Meter) Model() exposure.Model {
	return m.model
}

// Measure runs one full cycle. Settings are snapshotted once at the start so
// a concurrent change applies to the next cycle only.
func (m *Meter) Measure(s Sampler) (Result, error) {
	snap := m.settings.Snapshot()

	raw, err := m.readAll(s)
	if err != nil {
		return Result{}, err
	}

	res, err := m.evaluate(raw, snap)
	if err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	m.last = res
	m.valid = true
	m.mu.Unlock()

	m.notifyCallbacks(res)
	return res, nil
}

func (m *Meter) readAll(s Sampler) ([sample.Rows][sample.Cols]sample.Raw, error) {
	var raw [sample.Rows][sample.Cols]sample.Raw
	reads := make([]sample.Raw, m.opts.AverageSamples)

	for r := range sample.Rows {
		for c := range sample.Cols {
			for i := range reads {
				v, err := s.Read(r+1, c+1)
				if err != nil {
					return raw, fmt.Errorf("%w: reading cell (%d,%d): %w", ErrHardwareFault, r+1, c+1, err)
				}
				if v > sample.MaxRaw {
					return raw, fmt.Errorf("%w: cell (%d,%d) returned %d", ErrHardwareFault, r+1, c+1, v)
				}
				reads[i] = v
			}
			raw[r][c] = sample.AverageRaw(reads)
			if m.opts.SampleInterval > 0 {
				m.sleep(m.opts.SampleInterval)
			}
		}
	}
	return raw, nil
}

func (m *Meter) evaluate(raw [sample.Rows][sample.Cols]sample.Raw, snap settings.Snapshot) (Result, error) {
	grid := sample.GridFromRaw(m.conv, raw)
	agg := metering.Aggregate(&grid, snap.Mode)

	for _, mc := range agg.Masked {
		m.opts.Logger.Printf("cell (%d,%d) masked: %s (raw %d, %.1f lux)", mc.Row, mc.Col, mc.Reason, mc.Raw, mc.Lux)
	}

	params := snap.Params()
	ev := m.model.EV(agg.AverageLux, params)
	shutter := m.model.ShutterSpeed(ev, params)

	rec, err := exposure.FormatRecommendation(ev, snap.ISO, shutter)
	if err != nil {
		return Result{}, fmt.Errorf("exposure at EV %.1f: %w", ev, err)
	}

	return Result{
		Time:           time.Now(),
		Settings:       snap,
		Model:          m.model.Name(),
		Raw:            raw,
		Grid:           grid,
		Lux:            agg.Lux,
		Masked:         agg.Masked,
		AverageLux:     agg.AverageLux,
		ValidSamples:   agg.ValidSamples,
		EV:             ev,
		Shutter:        shutter,
		Recommendation: rec,
	}, nil
}

// Last returns the most recent successful result. ok is false until the
// first cycle completes.
func (m *Meter) Last() (res Result, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.valid
}

// OnUpdate registers a callback invoked after every successful cycle.
// The callback should return quickly.
func (m *Meter) OnUpdate(callback func(Result)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// notifyCallbacks invokes callbacks without holding any locks.
func (m *Meter) notifyCallbacks(res Result) {
	m.cbMu.RLock()
	callbacks := make([]func(Result), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(res)
		}
	}
}
