package sample

import (
	"github.com/chewxy/math32"
)

const (
	// MaxRaw is the largest reading of the 12-bit ADC.
	MaxRaw Raw = 4095
	// SaturationThreshold marks readings treated as saturated.
	SaturationThreshold Raw = 4090
	// CurveLimit is the first raw value the calibration curve is not applied to.
	CurveLimit Raw = 4000

	// VRef is the ADC full-scale voltage (V).
	VRef float32 = 3.3
	// Sensitivity is the photodiode output per lux (A/lx).
	Sensitivity float32 = 0.0057e-6
	// LoadResistance is the transimpedance load resistor (Ω).
	LoadResistance float32 = 1300
)

// Raw is a single 12-bit ADC reading (0-4095).
type Raw uint16

// Saturated reports whether the reading is at or above the saturation threshold.
func (r Raw) Saturated() bool {
	return r >= SaturationThreshold
}

// Measurement is the converted value of one grid cell.
type Measurement struct {
	Raw         Raw
	Voltage     float32 // V, 0..VRef
	Illuminance float32 // lux
}

// Curve maps a raw reading to a voltage. Implementations are only consulted
// for readings below CurveLimit.
type Curve interface {
	Voltage(raw Raw) float32
}

// Converter turns raw readings into physical values.
type Converter struct {
	curve Curve
}

// NewConverter creates a converter. curve may be nil, in which case the
// linear ADC mapping is used for every reading.
func NewConverter(curve Curve) *Converter {
	return &Converter{curve: curve}
}

// Convert computes the Measurement for a raw reading.
func (c *Converter) Convert(raw Raw) Measurement {
	v := c.VoltageFromRaw(raw)
	return Measurement{
		Raw:         raw,
		Voltage:     v,
		Illuminance: IlluminanceFromVoltage(v),
	}
}

// VoltageFromRaw converts a raw reading to volts. The calibration curve is
// used below CurveLimit, the linear mapping otherwise.
func (c *Converter) VoltageFromRaw(raw Raw) float32 {
	if c != nil && c.curve != nil && raw < CurveLimit {
		return clampVoltage(c.curve.Voltage(raw))
	}
	return adcToVoltage(raw)
}

// adcToVoltage converts a 12-bit ADC reading to voltage.
// Saturated readings report exactly VRef.
func adcToVoltage(raw Raw) float32 {
	if raw >= SaturationThreshold {
		return VRef
	}
	return clampVoltage(float32(raw) * VRef / float32(MaxRaw))
}

// IlluminanceFromVoltage converts the photodiode circuit output voltage to lux.
// Formula: Viout = Sensitivity * Ev * R, solved for Ev.
func IlluminanceFromVoltage(v float32) float32 {
	if v <= 0 || math32.IsNaN(v) {
		return 0
	}
	return v / (Sensitivity * LoadResistance)
}

// RawFromIlluminance is the inverse of the linear conversion chain, rounded
// and clamped into the ADC range. Used by simulated sensors.
func RawFromIlluminance(lux float32) Raw {
	if lux <= 0 || math32.IsNaN(lux) {
		return 0
	}
	counts := math32.Round(lux * Sensitivity * LoadResistance / VRef * float32(MaxRaw))
	if counts > float32(MaxRaw) {
		return MaxRaw
	}
	return Raw(counts)
}

func clampVoltage(v float32) float32 {
	switch {
	case math32.IsNaN(v) || v < 0:
		return 0
	case v > VRef:
		return VRef
	}
	return v
}

// AverageRaw averages consecutive reads of the same cell, rounding to nearest.
func AverageRaw(samples []Raw) Raw {
	if len(samples) == 0 {
		return 0
	}
	var sum uint32
	for _, s := range samples {
		sum += uint32(s)
	}
	n := uint32(len(samples))
	return Raw((sum + n/2) / n)
}
