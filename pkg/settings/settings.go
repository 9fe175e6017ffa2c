// Package settings holds the runtime metering configuration: metering mode,
// ISO, shutter calibration factor and K value.
//
// Every setter validates its input and keeps the previous value on rejection.
// Readers take a Snapshot so that a change issued while a measurement is
// running never applies halfway through it.
package settings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/golightmeter/pkg/exposure"
	"github.com/itohio/golightmeter/pkg/metering"
)

const (
	// MinK and MaxK bound the K value.
	MinK float32 = 0
	MaxK float32 = 100
	// DefaultISO is the sensitivity at startup.
	DefaultISO = 100
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Snapshot is an immutable copy of the settings.
type Snapshot struct {
	Mode        metering.Mode
	ISO         int
	Calibration float32
	K           float32
}

// Params returns the exposure parameters of the snapshot.
func (s Snapshot) Params() exposure.Params {
	return exposure.Params{ISO: s.ISO, Calibration: s.Calibration, K: s.K}
}

// Defaults returns the factory settings.
func Defaults() Snapshot {
	return Snapshot{
		Mode:        metering.Default,
		ISO:         DefaultISO,
		Calibration: exposure.DefaultCalibration,
		K:           exposure.DefaultK,
	}
}

// Settings is the single owner of the metering configuration.
type Settings struct {
	mu       sync.RWMutex
	current  Snapshot
	defaults Snapshot
}

// New creates settings starting at defaults. Invalid defaults are replaced
// field by field with the factory values.
func New(defaults Snapshot) *Settings {
	factory := Defaults()
	if !defaults.Mode.Valid() {
		defaults.Mode = factory.Mode
	}
	if validISO(defaults.ISO) != nil {
		defaults.ISO = factory.ISO
	}
	if validCalibration(defaults.Calibration) != nil {
		defaults.Calibration = factory.Calibration
	}
	if validK(defaults.K) != nil {
		defaults.K = factory.K
	}
	return &Settings{current: defaults, defaults: defaults}
}

// Snapshot returns a consistent copy of the current values.
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reset restores the startup defaults.
func (s *Settings) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.defaults
}

// SetMode selects the metering mode.
func (s *Settings) SetMode(mode metering.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: metering mode %d", ErrInvalidConfiguration, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Mode = mode
	return nil
}

// SetISO sets the film/sensor sensitivity. Must be positive.
func (s *Settings) SetISO(iso int) error {
	if err := validISO(iso); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.ISO = iso
	return nil
}

// SetCalibrationFactor sets the shutter speed multiplier. Must be positive.
func (s *Settings) SetCalibrationFactor(f float32) error {
	if err := validCalibration(f); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Calibration = f
	return nil
}

// SetKValue sets the reflected-light constant, 0 <= k <= 100.
func (s *Settings) SetKValue(k float32) error {
	if err := validK(k); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.K = k
	return nil
}

func validISO(iso int) error {
	if iso <= 0 {
		return fmt.Errorf("%w: ISO %d (must be positive)", ErrInvalidConfiguration, iso)
	}
	return nil
}

func validCalibration(f float32) error {
	// Written as a negated comparison so NaN is rejected too
	if !(f > 0) {
		return fmt.Errorf("%w: calibration factor %.2f (must be positive)", ErrInvalidConfiguration, f)
	}
	return nil
}

func validK(k float32) error {
	if !(k >= MinK && k <= MaxK) {
		return fmt.Errorf("%w: K value %.2f (must be within %.0f..%.0f)", ErrInvalidConfiguration, k, MinK, MaxK)
	}
	return nil
}
