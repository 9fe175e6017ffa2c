package device

// Device is a light meter the host talks to over its console (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Send(command string) error
	Reports() <-chan Report
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
