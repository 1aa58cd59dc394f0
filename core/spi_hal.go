package core

import "tinygo.org/x/drivers"

// SPIDriver is the abstract SPI interface that core code uses.
// Platform-specific implementations handle actual hardware control.
//
// The transfer primitives are the drivers.SPI capability set, which
// machine.SPI satisfies directly on TinyGo targets: Tx performs a
// full-duplex slice transfer (either slice may be nil), Transfer
// clocks a single byte.
type SPIDriver interface {
	drivers.SPI

	// SetFrequency applies the nearest achievable clock rate for the
	// requested one, clamping to the hardware's range, and returns the
	// rate actually in effect.
	SetFrequency(hz uint32) (uint32, error)

	// Select asserts the chip-select line for chip index cs.
	Select(cs uint8) error

	// Deselect releases the chip-select line for chip index cs.
	Deselect(cs uint8) error
}

// Global singleton used by target startup code.
var spiDriver SPIDriver

// SetSPIDriver is called by target-specific code to register its driver.
func SetSPIDriver(d SPIDriver) {
	spiDriver = d
}

// MustSPI returns the configured driver or panics if missing.
func MustSPI() SPIDriver {
	if spiDriver == nil {
		panic("SPI driver not configured")
	}
	return spiDriver
}
