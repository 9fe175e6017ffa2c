package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the console baud rate of the meter firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the reports channel buffer.
	DefaultBufferSize = 100
)

var ErrNotConnected = errors.New("not connected")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to the meter firmware console.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	reports   chan Report
	mu        sync.RWMutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool
}

// NewSerial creates a new Serial device with the specified port, baud rate, and buffer size.
func NewSerial(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		reports:  make(chan Report, bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts parsing the console output.
// Every connection gets a fresh reports channel.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.reports = make(chan Report, d.bufSize)
	d.connected = true

	s := &stream{reports: d.reports, ctx: ctx}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		s.scan(port)
	}()

	return nil
}

// Close closes the connection and the reports channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	// Closing the port unblocks the reader
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}
	d.wg.Wait()

	d.connected = false
	close(d.reports)

	return nil
}

// Reports returns the channel of parsed reports of the current connection.
func (d *Serial) Reports() <-chan Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reports
}

// Send writes one command line to the meter.
func (d *Serial) Send(command string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	line := strings.TrimSpace(command) + "\n"
	if _, err := d.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
