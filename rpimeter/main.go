//go:build linux && !tinygo

// rpimeter runs the light meter firmware on a Raspberry Pi. The photodiode
// array is multiplexed onto an MCP3208 read over four GPIO lines. The console
// is served on stdin/stdout, or on a serial port when "console" is set.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	"github.com/warthog618/gpiod/device/rpi"
	"go.bug.st/serial"

	"github.com/itohio/golightmeter/pkg/console"
	"github.com/itohio/golightmeter/pkg/exposure"
	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/itohio/golightmeter/pkg/sample"
	"github.com/itohio/golightmeter/pkg/sensor"
	"github.com/itohio/golightmeter/pkg/settings"
)

func main() {
	cfg := loadConfig()

	model, err := exposure.ModelByName(cfg.MustGet("model").String())
	if err != nil {
		log.Fatalf("rpimeter: %v", err)
	}

	arr, err := sensor.NewRPi(rpiConfig(cfg))
	if err != nil {
		log.Fatalf("rpimeter: %v", err)
	}
	defer arr.Close()

	st := settings.New(settings.Snapshot{
		Mode:        metering.ModeFromName(cfg.MustGet("mode").String()),
		ISO:         cfg.MustGet("iso").Int(),
		Calibration: float32(cfg.MustGet("calibration").Float()),
		K:           float32(cfg.MustGet("k").Float()),
	})
	m := meter.New(sample.NewConverter(nil), st, model, meter.Options{
		Logger:         log.New(os.Stderr, "rpimeter: ", log.LstdFlags),
		AverageSamples: cfg.MustGet("samples").Int(),
		SampleInterval: cfg.MustGet("interval").Duration(),
	})

	in, out, closeConsole, err := openConsole(cfg.MustGet("console").String(), cfg.MustGet("baud").Int())
	if err != nil {
		log.Fatalf("rpimeter: %v", err)
	}
	defer closeConsole()

	// A serial terminal expects the firmware to echo what is typed
	echo := cfg.MustGet("console").String() != ""
	session := console.NewSession(m, arr, out, echo)
	session.OnReset = func() {
		if err := arr.Disable(); err != nil {
			log.Printf("rpimeter: disable on reset: %v", err)
		}
	}
	session.Start()
	if err := session.Run(in); err != nil {
		log.Fatalf("rpimeter: %v", err)
	}
}

func rpiConfig(cfg *config.Config) sensor.RPiConfig {
	tclk := cfg.MustGet("tclk").Duration()
	rc := sensor.RPiConfig{
		Chip:      cfg.MustGet("gpiochip").String(),
		Mux0:      cfg.MustGet("mux0").Int(),
		Mux1:      cfg.MustGet("mux1").Int(),
		NEnable:   cfg.MustGet("nenable").Int(),
		CLK:       cfg.MustGet("clk").Int(),
		CSZ:       cfg.MustGet("csz").Int(),
		DI:        cfg.MustGet("di").Int(),
		DO:        cfg.MustGet("do").Int(),
		Tclk:      tclk,
		Tset:      cfg.MustGet("tset").Duration(),
		MuxSettle: cfg.MustGet("muxsettle").Duration(),
		Stabilize: cfg.MustGet("stabilize").Duration(),
	}
	channels := cfg.MustGet("channels").IntSlice()
	if len(channels) != sample.Rows {
		log.Fatalf("rpimeter: need %d ADC channels, got %d", sample.Rows, len(channels))
	}
	copy(rc.Channels[:], channels)
	return rc
}

// openConsole returns stdin/stdout when port is empty, or the opened serial port.
func openConsole(port string, baud int) (io.Reader, io.Writer, func(), error) {
	if port == "" {
		return os.Stdin, os.Stdout, func() {}, nil
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open console %s: %w", port, err)
	}
	return p, p, func() { p.Close() }, nil
}

// defaultConfig returns the wiring of the reference board and the factory
// metering settings.
func defaultConfig() map[string]interface{} {
	defaults := settings.Defaults()
	return map[string]interface{}{
		"gpiochip": "gpiochip0",
		"tclk":     "500ns",
		"tset":     "750ns",
		"clk":      rpi.J8p36,
		"csz":      rpi.J8p37,
		"di":       rpi.J8p38,
		"do":       rpi.J8p40,
		"mux0":     rpi.J8p11,
		"mux1":     rpi.J8p13,
		"nenable":  rpi.J8p15,
		"channels": []int{0, 1, 2, 3, 4},

		"muxsettle": sensor.DefaultMuxSettle.String(),
		"stabilize": sensor.DefaultStabilize.String(),
		"samples":   1,
		"interval":  "50ms",

		"mode":        metering.ModeName(defaults.Mode),
		"iso":         defaults.ISO,
		"calibration": float64(defaults.Calibration),
		"k":           float64(defaults.K),
		"model":       exposure.Calibrated{}.Name(),

		"console": "",
		"baud":    115200,
	}
}

func loadConfig() *config.Config {
	def := dict.New(dict.WithMap(defaultConfig()))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("RPIMETER_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "rpimeter.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}
