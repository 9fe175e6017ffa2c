package console

import "io"

// MaxLine is the longest command line accepted. Extra characters are dropped.
const MaxLine = 127

const (
	backspace = 0x08
	del       = 0x7F
)

// LineEditor assembles a command line one byte at a time, the way a UART
// terminal delivers it.
type LineEditor struct {
	buf  []byte
	echo io.Writer
}

// NewLineEditor creates an editor. Typed characters are echoed to echo
// unless it is nil.
func NewLineEditor(echo io.Writer) *LineEditor {
	return &LineEditor{buf: make([]byte, 0, MaxLine), echo: echo}
}

// Feed consumes one byte. It returns the completed line and true on CR or LF.
func (e *LineEditor) Feed(b byte) (string, bool) {
	switch b {
	case '\r', '\n':
		e.write("\n")
		line := string(e.buf)
		e.buf = e.buf[:0]
		return line, true

	case backspace, del:
		if len(e.buf) > 0 {
			e.buf = e.buf[:len(e.buf)-1]
			e.write("\b \b")
		}
		return "", false
	}

	e.write(string(b))
	if len(e.buf) < MaxLine {
		e.buf = append(e.buf, b)
	}
	return "", false
}

// Pending returns the partially typed line.
func (e *LineEditor) Pending() string {
	return string(e.buf)
}

func (e *LineEditor) write(s string) {
	if e.echo != nil {
		io.WriteString(e.echo, s)
	}
}
