package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/itohio/golightmeter/pkg/meter"
	"github.com/itohio/golightmeter/pkg/metering"
)

// Session is the firmware control loop: it applies configuration commands,
// latches measurement triggers and runs them from Poll. It is not safe for
// concurrent use; feed it from a single goroutine.
type Session struct {
	meter   *meter.Meter
	sampler meter.Sampler
	out     io.Writer
	editor  *LineEditor

	pending bool

	// OnReset runs after the settings are restored by a reset command.
	OnReset func()
}

// NewSession creates a session writing to out. When echo is true typed
// characters are echoed back, as a UART terminal expects.
func NewSession(m *meter.Meter, s meter.Sampler, out io.Writer, echo bool) *Session {
	var echoTo io.Writer
	if echo {
		echoTo = out
	}
	return &Session{
		meter:   m,
		sampler: s,
		out:     out,
		editor:  NewLineEditor(echoTo),
	}
}

// Start writes the welcome banner and the first prompt.
func (s *Session) Start() {
	fmt.Fprint(s.out, Banner)
	fmt.Fprint(s.out, Prompt)
}

// Feed consumes one input byte and handles the line once it is complete.
func (s *Session) Feed(b byte) {
	if line, ok := s.editor.Feed(b); ok {
		s.HandleLine(line)
	}
}

// HandleLine parses and handles one line, then writes the prompt.
// Empty lines are ignored.
func (s *Session) HandleLine(line string) {
	cmd, err := Parse(line)
	switch {
	case err != nil:
		s.reportParseError(cmd, err)
	case cmd.Kind == None:
		return
	default:
		if err := s.Handle(cmd); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
	fmt.Fprint(s.out, Prompt)
}

func (s *Session) reportParseError(cmd Command, err error) {
	if cmd.Kind == None {
		fmt.Fprintf(s.out, "Unknown command: '%s'. Type 'help' for available commands.\n", cmd.Text)
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

// Handle applies a parsed command and writes its reply.
func (s *Session) Handle(cmd Command) error {
	st := s.meter.Settings()

	switch cmd.Kind {
	case None:
		return nil

	case SetISO:
		if err := st.SetISO(cmd.ISO); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "ISO configured to: %d\n", cmd.ISO)

	case SetMode:
		if err := st.SetMode(cmd.Mode); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Metering type configured to: %s\n", metering.ModeName(cmd.Mode))

	case SetCalibration:
		if err := st.SetCalibrationFactor(cmd.Value); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Shutter speed calibration set to: %.2f\n", cmd.Value)

	case SetK:
		if err := st.SetKValue(cmd.Value); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "K value set to: %.2f\n", cmd.Value)

	case Measure:
		// A trigger arriving while one is pending collapses into it
		s.pending = true
		fmt.Fprint(s.out, "Measurement started\n")

	case Help:
		fmt.Fprint(s.out, helpText)

	case Reset:
		fmt.Fprint(s.out, "Resetting device...\n")
		s.pending = false
		st.Reset()
		if s.OnReset != nil {
			s.OnReset()
		}

	default:
		return fmt.Errorf("%w: %s", ErrMalformedCommand, cmd.Kind)
	}
	return nil
}

// Pending reports whether a measurement is latched.
func (s *Session) Pending() bool {
	return s.pending
}

// Poll runs the latched measurement, if any, and writes the report. It
// returns true when a cycle was run, successful or not.
func (s *Session) Poll() bool {
	if !s.pending {
		return false
	}
	s.pending = false

	res, err := s.meter.Measure(s.sampler)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		fmt.Fprint(s.out, Prompt)
		return true
	}
	WriteResult(s.out, res)
	return true
}

// Run feeds r into the session byte by byte, polling after every byte, until
// r is exhausted. io.EOF is not reported as an error.
func (s *Session) Run(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.Feed(b)
		s.Poll()
	}
}
