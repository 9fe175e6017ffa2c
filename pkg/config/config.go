package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/golightmeter/pkg/exposure"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/settings"
)

// Config represents the startup configuration. Runtime changes made through
// the console are not written back.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Converter   ConverterConfig   `yaml:"converter"`
	Metering    MeteringConfig    `yaml:"metering"`
	Exposure    ExposureConfig    `yaml:"exposure"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ConverterConfig contains the optional ADC calibration curve.
type ConverterConfig struct {
	Curve []CurvePoint `yaml:"curve"`
}

// CurvePoint maps a raw ADC reading to a measured voltage.
type CurvePoint struct {
	Raw        uint16  `yaml:"raw"`
	Millivolts float32 `yaml:"millivolts"`
}

// MeteringConfig contains the metering defaults applied at startup.
type MeteringConfig struct {
	Mode        string  `yaml:"mode"`
	ISO         int     `yaml:"iso"`
	Calibration float32 `yaml:"calibration"`
	K           float32 `yaml:"k"`
}

// ExposureConfig selects the exposure model.
type ExposureConfig struct {
	Model string `yaml:"model"` // "calibrated" or "k"
}

// MeasurementConfig contains sampling parameters.
type MeasurementConfig struct {
	AverageSamples int           `yaml:"average_samples"` // Reads per cell (0 or 1 = single read)
	SampleInterval time.Duration `yaml:"sample_interval"` // Pause between cells
	MuxSettle      time.Duration `yaml:"mux_settle"`      // Delay after selecting a mux input
	Stabilize      time.Duration `yaml:"stabilize"`       // Delay after enabling the measurement circuit
}

// MockConfig contains simulated scene parameters.
type MockConfig struct {
	MinLux    float32 `yaml:"min_lux"`   // Lower bound of the random base level
	MaxLux    float32 `yaml:"max_lux"`   // Upper bound of the random base level
	Variation float32 `yaml:"variation"` // Relative per-cell variation (0.3 = 30%)
	Highlight float32 `yaml:"highlight"` // Brightness multiplier of the highlight cell (0 = none)
	Seed      int64   `yaml:"seed"`      // Random seed (0 = time based)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyUSB0" on Linux/Mac
			BaudRate: 115200,
		},
		Converter: ConverterConfig{},
		Metering: MeteringConfig{
			Mode:        metering.ModeName(metering.Default),
			ISO:         settings.DefaultISO,
			Calibration: exposure.DefaultCalibration,
			K:           exposure.DefaultK,
		},
		Exposure: ExposureConfig{
			Model: exposure.Calibrated{}.Name(),
		},
		Measurement: MeasurementConfig{
			AverageSamples: 1,
			SampleInterval: 50 * time.Millisecond,
			MuxSettle:      1 * time.Millisecond,
			Stabilize:      10 * time.Millisecond,
		},
		Mock: MockConfig{
			MinLux:    5000,
			MaxLux:    100000,
			Variation: 0.3,
			Highlight: 3,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if _, err := cfg.Curve(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if _, err := exposure.ModelByName(cfg.Exposure.Model); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Settings returns the metering defaults as a settings snapshot.
func (c *Config) Settings() settings.Snapshot {
	return settings.Snapshot{
		Mode:        metering.ModeFromName(c.Metering.Mode),
		ISO:         c.Metering.ISO,
		Calibration: c.Metering.Calibration,
		K:           c.Metering.K,
	}
}

// Curve builds the calibration curve. It returns nil when none is configured.
func (c *Config) Curve() (sample.Curve, error) {
	if len(c.Converter.Curve) == 0 {
		return nil, nil
	}
	points := make([]sample.Point, len(c.Converter.Curve))
	for i, p := range c.Converter.Curve {
		points[i] = sample.Point{Raw: sample.Raw(p.Raw), Millivolts: p.Millivolts}
	}
	table, err := sample.NewTable(points)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Model returns the configured exposure model.
func (c *Config) Model() (exposure.Model, error) {
	return exposure.ModelByName(c.Exposure.Model)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Metering.Mode == "" {
		c.Metering.Mode = def.Metering.Mode
	}
	if c.Metering.ISO == 0 {
		c.Metering.ISO = def.Metering.ISO
	}
	if c.Metering.Calibration == 0 {
		c.Metering.Calibration = def.Metering.Calibration
	}
	// K may legitimately be zero, a missing key already keeps the default

	if c.Exposure.Model == "" {
		c.Exposure.Model = def.Exposure.Model
	}

	if c.Measurement.AverageSamples <= 0 {
		c.Measurement.AverageSamples = def.Measurement.AverageSamples
	}

	if c.Mock.MaxLux == 0 {
		c.Mock.MaxLux = def.Mock.MaxLux
	}
	if c.Mock.MinLux > c.Mock.MaxLux {
		c.Mock.MinLux = c.Mock.MaxLux
	}
}
