package device

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/itohio/golightmeter/pkg/config"
	"github.com/itohio/golightmeter/pkg/console"
	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/sensor"
	"github.com/itohio/golightmeter/pkg/settings"
)

// Mock runs the meter firmware in process over a simulated scene. Its
// console output goes through the same parser as a serial connection.
type Mock struct {
	cfg *config.Config

	reports   chan Report
	commands  chan string
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool

	scene *sensor.Scene
}

// NewMock creates a new mocked device. A nil cfg uses config.Default().
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Mock{
		cfg:     cfg,
		reports: make(chan Report, DefaultBufferSize),
		scene: sensor.NewScene(sensor.SceneConfig{
			MinLux:    cfg.Mock.MinLux,
			MaxLux:    cfg.Mock.MaxLux,
			Variation: cfg.Mock.Variation,
			Highlight: cfg.Mock.Highlight,
			Seed:      cfg.Mock.Seed,
		}),
	}
}

// Scene returns the simulated scene.
func (m *Mock) Scene() *sensor.Scene {
	return m.scene
}

// Connect boots the simulated firmware.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	reports := make(chan Report, DefaultBufferSize)
	out := &lineWriter{s: &stream{reports: reports, ctx: ctx}}

	session, err := m.newSession(out)
	if err != nil {
		cancel()
		return err
	}

	m.cancel = cancel
	m.reports = reports
	m.commands = make(chan string, 16)
	m.connected = true

	m.wg.Add(1)
	go m.run(ctx, session, m.commands)

	return nil
}

func (m *Mock) newSession(out io.Writer) (*console.Session, error) {
	curve, err := m.cfg.Curve()
	if err != nil {
		return nil, err
	}
	model, err := m.cfg.Model()
	if err != nil {
		return nil, err
	}
	st := settings.New(m.cfg.Settings())
	mt := meter.New(sample.NewConverter(curve), st, model, meter.Options{
		Logger:         log.Default(),
		AverageSamples: m.cfg.Measurement.AverageSamples,
		SampleInterval: m.cfg.Measurement.SampleInterval,
	})
	return console.NewSession(mt, m.scene, out, false), nil
}

// run is the firmware control loop: handle a command, then run any latched
// measurement.
func (m *Mock) run(ctx context.Context, session *console.Session, commands <-chan string) {
	defer m.wg.Done()

	session.Start()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-commands:
			session.HandleLine(cmd)
			session.Poll()
		}
	}
}

// Close stops the simulated firmware and closes the reports channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.connected = false
	close(m.reports)

	return nil
}

// Reports returns the channel of parsed reports of the current connection.
func (m *Mock) Reports() <-chan Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reports
}

// Send queues a command line for the simulated firmware.
func (m *Mock) Send(command string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return ErrNotConnected
	}

	select {
	case m.commands <- command:
		return nil
	default:
		return fmt.Errorf("command queue full, dropping '%s'", command)
	}
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}
