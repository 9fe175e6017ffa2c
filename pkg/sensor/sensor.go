// Package sensor provides samplers for the 5x4 photodiode array: a fixed
// grid, a simulated scene and the multiplexed hardware front end.
package sensor

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/golightmeter/pkg/sample"
)

// Output is a digital output line.
type Output interface {
	Set(high bool) error
}

// ADC reads one analog channel.
type ADC interface {
	Read(channel int) (sample.Raw, error)
}

// Timing of the analog front end.
const (
	DefaultMuxSettle = 1 * time.Millisecond
	DefaultStabilize = 10 * time.Millisecond
)

// Multiplexed drives the photodiode array: MUX0/MUX1 select the column on
// all five row multiplexers, nENABLE (active low) powers the measurement
// circuit and each row is wired to its own ADC channel.
type Multiplexed struct {
	Mux0, Mux1 Output
	NEnable    Output
	ADC        ADC
	Channels   [sample.Rows]int // ADC channel per row

	MuxSettle time.Duration
	Stabilize time.Duration

	sleep func(time.Duration)
}

// Disable turns the measurement circuit off and resets the mux to column 1.
func (m *Multiplexed) Disable() error {
	return multierr.Combine(
		m.NEnable.Set(true),
		m.Mux0.Set(false),
		m.Mux1.Set(false),
	)
}

// Read selects the cell, waits for the mux to settle, enables the circuit,
// waits for it to stabilize and samples the row's ADC channel. The circuit
// is disabled again before returning, also on error.
func (m *Multiplexed) Read(row, col int) (raw sample.Raw, err error) {
	if err := sample.CheckCoord(row, col); err != nil {
		return 0, err
	}

	sel := col - 1
	if err := multierr.Append(m.Mux0.Set(sel&0x01 != 0), m.Mux1.Set(sel&0x02 != 0)); err != nil {
		return 0, fmt.Errorf("select column %d: %w", col, err)
	}
	m.wait(m.MuxSettle)

	if err := m.NEnable.Set(false); err != nil {
		return 0, fmt.Errorf("enable circuit: %w", err)
	}
	defer func() {
		if derr := m.NEnable.Set(true); derr != nil {
			err = multierr.Append(err, fmt.Errorf("disable circuit: %w", derr))
		}
	}()
	m.wait(m.Stabilize)

	ch := m.Channels[row-1]
	raw, err = m.ADC.Read(ch)
	if err != nil {
		return 0, fmt.Errorf("adc channel %d: %w", ch, err)
	}
	return raw, nil
}

func (m *Multiplexed) wait(d time.Duration) {
	if d <= 0 {
		return
	}
	if m.sleep != nil {
		m.sleep(d)
		return
	}
	time.Sleep(d)
}
