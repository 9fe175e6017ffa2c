package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/golightmeter/pkg/metering"
)

var ErrMalformedCommand = errors.New("malformed command")

// Kind identifies a console command.
type Kind int

const (
	None Kind = iota // empty line
	SetISO
	SetMode
	SetCalibration
	SetK
	Measure
	Help
	Reset
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case SetISO:
		return "config iso"
	case SetMode:
		return "config type"
	case SetCalibration:
		return "config calibration"
	case SetK:
		return "config k"
	case Measure:
		return "start measure"
	case Help:
		return "help"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command is a parsed console line. Only the field matching Kind is set.
type Command struct {
	Kind  Kind
	ISO   int
	Mode  metering.Mode
	Value float32 // calibration factor or K value
	Text  string  // the trimmed input line
}

// Parse parses one console line. Keywords are case-insensitive. An empty
// line yields a None command. Anything unrecognised returns an error wrapping
// ErrMalformedCommand; Kind stays None unless the command was recognised but
// its argument was not.
//
// Value ranges are not checked here, that is up to the settings.
func Parse(line string) (Command, error) {
	text := strings.TrimSpace(line)
	cmd := Command{Text: text}
	fields := strings.Fields(text)

	switch {
	case len(fields) == 0:
		return cmd, nil

	case is(fields, "help"):
		cmd.Kind = Help
		return cmd, nil

	case is(fields, "reset"):
		cmd.Kind = Reset
		return cmd, nil

	case is(fields, "start", "measure"):
		cmd.Kind = Measure
		return cmd, nil

	case len(fields) >= 3 && strings.EqualFold(fields[0], "config"):
		return parseConfig(cmd, strings.ToLower(fields[1]), fields[2:])
	}

	return cmd, fmt.Errorf("%w: '%s'", ErrMalformedCommand, text)
}

func parseConfig(cmd Command, key string, args []string) (Command, error) {
	switch key {
	case "iso":
		if len(args) != 1 {
			break
		}
		cmd.Kind = SetISO
		iso, err := strconv.Atoi(args[0])
		if err != nil {
			return cmd, fmt.Errorf("%w: ISO '%s' is not a number", ErrMalformedCommand, args[0])
		}
		cmd.ISO = iso
		return cmd, nil

	case "type", "mode":
		cmd.Kind = SetMode
		cmd.Mode = metering.ModeFromName(strings.Join(args, " "))
		return cmd, nil

	case "calibration", "k":
		if len(args) != 1 {
			break
		}
		cmd.Kind = SetCalibration
		if key == "k" {
			cmd.Kind = SetK
		}
		v, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return cmd, fmt.Errorf("%w: %s '%s' is not a number", ErrMalformedCommand, key, args[0])
		}
		cmd.Value = float32(v)
		return cmd, nil
	}

	return cmd, fmt.Errorf("%w: '%s'", ErrMalformedCommand, cmd.Text)
}

func is(fields []string, words ...string) bool {
	if len(fields) != len(words) {
		return false
	}
	for i, w := range words {
		if !strings.EqualFold(fields[i], w) {
			return false
		}
	}
	return true
}
