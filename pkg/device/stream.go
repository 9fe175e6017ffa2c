package device

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"strings"
)

// stream parses console output into reports for one connection.
type stream struct {
	parser  Parser
	reports chan<- Report
	ctx     context.Context
}

// line feeds one output line. It returns false once the connection is closing.
func (s *stream) line(line string) bool {
	r, ok, err := s.parser.Feed(line)
	if err != nil {
		log.Printf("Failed to parse line '%s': %v", strings.TrimSpace(line), err)
		return s.ctx.Err() == nil
	}
	if !ok {
		return s.ctx.Err() == nil
	}

	// Send report to channel (non-blocking)
	select {
	case s.reports <- r:
	case <-s.ctx.Done():
		return false
	default:
		// Channel full, log and skip
		log.Printf("Reports channel full, dropping %s report", r.Kind)
	}
	return true
}

// scan reads lines from r until EOF, a read error or cancellation.
func (s *stream) scan(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !s.line(scanner.Text()) {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && s.ctx.Err() == nil {
		log.Printf("Error reading from device: %v", err)
	}
}

// lineWriter splits writes into lines and feeds them to a stream.
type lineWriter struct {
	s   *stream
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			w.s.line(string(w.buf))
			w.buf = w.buf[:0]
			continue
		}
		w.buf = append(w.buf, b)
	}
	return len(p), nil
}
