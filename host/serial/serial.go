package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory loopback for testing
type Port interface {
	io.ReadWriteCloser

	// Flush discards any stale buffered input
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this, kept for real UART bridges)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for a serprog device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200, // flashrom's customary serprog baud rate
		ReadTimeout: 200,    // serprog commands answer well within this
	}
}
