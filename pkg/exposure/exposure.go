// Package exposure turns an average scene illuminance into an exposure value
// and a shutter speed recommendation for a TTL meter (no aperture).
package exposure

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// MinEV and MaxEV bound every computed exposure value.
	MinEV float32 = -6
	MaxEV float32 = 20

	// ReferenceLux is the fixed reference of the calibrated model.
	ReferenceLux float32 = 2.5
	// DefaultK is the default reflected-light constant of the K model.
	DefaultK float32 = 2.5
	// DefaultCalibration is the default shutter speed multiplier.
	DefaultCalibration float32 = 128.0
	// BaseISO is the sensitivity the formulas are normalized to.
	BaseISO = 100
)

var ErrInvalidShutter = errors.New("invalid shutter speed")

// Params carries the tunables a model may consult.
type Params struct {
	ISO         int
	Calibration float32 // shutter multiplier, calibrated model
	K           float32 // reflected-light constant, K model
}

// Model converts illuminance to EV and EV to a shutter time.
// A process uses exactly one model.
type Model interface {
	Name() string
	EV(averageLux float32, p Params) float32
	ShutterSpeed(ev float32, p Params) float32
}

// Calibrated is the legacy model: EV against a fixed 2.5 lux reference and an
// ISO-dependent shutter time scaled by a calibration factor.
type Calibrated struct{}

// KMethod is the reflected-light model: ISO is folded into EV and the
// shutter time is plain 2^-EV.
type KMethod struct{}

var (
	_ Model = Calibrated{}
	_ Model = KMethod{}
)

func (Calibrated) Name() string { return "calibrated" }

// EV computes log2(lux/2.5), clamped.
func (Calibrated) EV(averageLux float32, _ Params) float32 {
	return ClampEV(math32.Log2(averageLux / ReferenceLux))
}

// ShutterSpeed computes 2^-ev * (100/iso) * calibration.
func (Calibrated) ShutterSpeed(ev float32, p Params) float32 {
	return math32.Pow(2, -ev) * (float32(BaseISO) / float32(p.ISO)) * p.Calibration
}

func (KMethod) Name() string { return "k" }

// EV computes log2(lux * iso/100 / k), clamped.
func (KMethod) EV(averageLux float32, p Params) float32 {
	return ClampEV(math32.Log2(averageLux * (float32(p.ISO) / float32(BaseISO)) / p.K))
}

// ShutterSpeed computes 2^-ev. ISO is already part of ev.
func (KMethod) ShutterSpeed(ev float32, _ Params) float32 {
	return math32.Pow(2, -ev)
}

// ModelByName returns the model registered under name.
func ModelByName(name string) (Model, error) {
	switch name {
	case "", "calibrated":
		return Calibrated{}, nil
	case "k":
		return KMethod{}, nil
	default:
		return nil, fmt.Errorf("unknown exposure model %q", name)
	}
}

// ClampEV limits ev to [MinEV, MaxEV]. -Inf and NaN (no light at all) map to
// MinEV, +Inf to MaxEV.
func ClampEV(ev float32) float32 {
	switch {
	case math32.IsNaN(ev) || ev < MinEV:
		return MinEV
	case ev > MaxEV:
		return MaxEV
	}
	return ev
}

// FormatRecommendation renders the shutter speed as seconds (>= 1s) or as a
// reciprocal fraction. t must be positive and finite.
func FormatRecommendation(ev float32, iso int, t float32) (string, error) {
	if !(t > 0) || math32.IsInf(t, 0) {
		return "", fmt.Errorf("%w: %v s", ErrInvalidShutter, t)
	}
	if t >= 1.0 {
		return fmt.Sprintf("ISO %d, %.1f seconds (EV: %.1f)", iso, t, ev), nil
	}
	// Formatted as a float so short exposures cannot overflow a 32-bit int
	denominator := math32.Round(1 / t)
	return fmt.Sprintf("ISO %d, 1/%.0f (EV: %.1f)", iso, denominator, ev), nil
}
