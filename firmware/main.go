//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/golightmeter/pkg/console"
	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/sensor"
	"github.com/itohio/golightmeter/pkg/settings"
)

var uart = machine.UART0

// pin adapts a machine pin to sensor.Output.
type pin machine.Pin

func (p pin) Set(high bool) error {
	machine.Pin(p).Set(high)
	return nil
}

// rowADCs reads the row outputs. machine.ADC.Get is scaled to 16 bits, the
// meter works in 12-bit counts.
type rowADCs [sample.Rows]machine.ADC

func (a *rowADCs) Read(channel int) (sample.Raw, error) {
	return sample.Raw(a[channel].Get() >> 4), nil
}

func main() {
	for _, p := range []machine.Pin{PIN_MUX0, PIN_MUX1, PIN_NENABLE} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	var adcs rowADCs
	for i, p := range []machine.Pin{PIN_ROW1, PIN_ROW2, PIN_ROW3, PIN_ROW4, PIN_ROW5} {
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: p}
		adcs[i].Configure(adcConfig)
	}

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	array := &sensor.Multiplexed{
		Mux0:      pin(PIN_MUX0),
		Mux1:      pin(PIN_MUX1),
		NEnable:   pin(PIN_NENABLE),
		ADC:       &adcs,
		Channels:  [sample.Rows]int{0, 1, 2, 3, 4},
		MuxSettle: sensor.DefaultMuxSettle,
		Stabilize: sensor.DefaultStabilize,
	}
	array.Disable()

	m := meter.New(nil, settings.New(settings.Defaults()), nil, meter.Options{
		SampleInterval: 50 * time.Millisecond,
	})
	session := console.NewSession(m, array, uart, true)
	session.OnReset = func() {
		array.Disable()
	}
	session.Start()

	// Main loop
	for {
		// Check for serial input (non-blocking)
		for uart.Buffered() > 0 {
			data, err := uart.ReadByte()
			if err != nil {
				break
			}
			session.Feed(data)
		}

		session.Poll()

		// Small delay to prevent tight loop
		time.Sleep(1 * time.Millisecond)
	}
}
