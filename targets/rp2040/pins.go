//go:build rp2040 || rp2350

package main

import "machine"

// RPPinDriver implements core.PinDriver. Disabling the output drivers
// floats the chip-select line so the board the flash chip sits on can
// boot and drive its own bus while the programmer stays attached;
// enabling reclaims the line deasserted high.
type RPPinDriver struct {
	enabled bool
}

func NewRPPinDriver() *RPPinDriver {
	// Boot with drivers enabled, matching the SPI init
	return &RPPinDriver{enabled: true}
}

func (p *RPPinDriver) SetPinState(on bool) error {
	if on == p.enabled {
		return nil
	}
	if on {
		pinCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pinCS.High()
	} else {
		pinCS.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	p.enabled = on
	return nil
}
