//go:build linux && !tinygo

package sensor

import (
	"fmt"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/gpiod/spi/mcp3w0c"
	"go.uber.org/multierr"

	"github.com/itohio/golightmeter/pkg/sample"
)

// RPiConfig describes the wiring of the array to a Raspberry Pi GPIO chip
// with an MCP3208 bit-banged over four lines.
type RPiConfig struct {
	Chip string // e.g. "gpiochip0"

	Mux0, Mux1, NEnable int // line offsets

	CLK, CSZ, DI, DO int // MCP3208 line offsets
	Tclk, Tset       time.Duration

	Channels [sample.Rows]int

	MuxSettle time.Duration
	Stabilize time.Duration
}

// RPi samples the array through gpiod.
type RPi struct {
	*Multiplexed
	lines []*gpiod.Line
	adc   *mcp3w0c.MCP3w0c
}

type gpioLine struct {
	l *gpiod.Line
}

func (g gpioLine) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return g.l.SetValue(v)
}

type mcpADC struct {
	a *mcp3w0c.MCP3w0c
}

func (m mcpADC) Read(ch int) (sample.Raw, error) {
	v, err := m.a.Read(ch)
	if err != nil {
		return 0, err
	}
	return sample.Raw(v), nil
}

// NewRPi requests the GPIO lines and the ADC. The circuit starts disabled.
func NewRPi(cfg RPiConfig) (*RPi, error) {
	c, err := gpiod.NewChip(cfg.Chip, gpiod.WithConsumer("lightmeter"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Chip, err)
	}
	defer c.Close()

	r := &RPi{}
	request := func(offset, initial int) (Output, error) {
		l, err := c.RequestLine(offset, gpiod.AsOutput(initial))
		if err != nil {
			return nil, fmt.Errorf("request line %d: %w", offset, err)
		}
		r.lines = append(r.lines, l)
		return gpioLine{l}, nil
	}

	mux0, err0 := request(cfg.Mux0, 0)
	mux1, err1 := request(cfg.Mux1, 0)
	nen, err2 := request(cfg.NEnable, 1)
	if err := multierr.Combine(err0, err1, err2); err != nil {
		return nil, multierr.Append(err, r.Close())
	}

	tset := cfg.Tset
	if tset < cfg.Tclk {
		tset = 0
	} else {
		tset -= cfg.Tclk
	}
	adc, err := mcp3w0c.NewMCP3208(c, cfg.CLK, cfg.CSZ, cfg.DI, cfg.DO,
		mcp3w0c.WithTclk(cfg.Tclk),
		mcp3w0c.WithTset(tset),
	)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("mcp3208: %w", err), r.Close())
	}
	r.adc = adc

	r.Multiplexed = &Multiplexed{
		Mux0:      mux0,
		Mux1:      mux1,
		NEnable:   nen,
		ADC:       mcpADC{adc},
		Channels:  cfg.Channels,
		MuxSettle: cfg.MuxSettle,
		Stabilize: cfg.Stabilize,
	}
	return r, nil
}

// Close disables the circuit and releases every line.
func (r *RPi) Close() error {
	var err error
	if r.Multiplexed != nil {
		err = multierr.Append(err, r.Disable())
	}
	if r.adc != nil {
		err = multierr.Append(err, r.adc.Close())
	}
	for _, l := range r.lines {
		err = multierr.Append(err, l.Close())
	}
	r.lines = nil
	return err
}
