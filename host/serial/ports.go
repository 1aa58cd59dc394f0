package serial

import (
	"fmt"

	"go.bug.st/serial"
)

// ListPorts returns the serial port device names present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
