// Package detect locates a serprog programmer by probing serial ports
// with the synchronization handshake.
package detect

import (
	"fmt"

	"gosprog/host/serial"
	"gosprog/host/serprog"
)

// Result describes a detected programmer.
type Result struct {
	Port string
	Name string
}

// Probe tries every serial port on the system and returns the first
// one that completes the serprog handshake.
func Probe(baud int) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(portName, baud)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no serprog device found (last error: %w)", lastErr)
	}
	return nil, fmt.Errorf("no serprog device found")
}

// ProbeOn checks a specific port for a programmer.
func ProbeOn(portName string, baud int) (*Result, error) {
	return tryPort(portName, baud)
}

func tryPort(portName string, baud int) (*Result, error) {
	cfg := serial.DefaultConfig(portName)
	if baud > 0 {
		cfg.Baud = baud
	}

	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	client := serprog.NewClient(port)
	if err := client.Sync(); err != nil {
		return nil, fmt.Errorf("%s: %w", portName, err)
	}

	name, err := client.ProgrammerName()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", portName, err)
	}

	return &Result{Port: portName, Name: name}, nil
}
