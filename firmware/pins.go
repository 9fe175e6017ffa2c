//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Column select and enable (active low) of the row multiplexers
	PIN_MUX0    = machine.D7
	PIN_MUX1    = machine.D8
	PIN_NENABLE = machine.D9

	// Row outputs, one ADC input each
	PIN_ROW1 = machine.A0
	PIN_ROW2 = machine.A1
	PIN_ROW3 = machine.A2
	PIN_ROW4 = machine.A3
	PIN_ROW5 = machine.A4

	// Serial console
	UART_BAUD_RATE = 115200
)
