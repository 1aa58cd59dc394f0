package core

// PinDriver controls the programmer's auxiliary output drivers for the
// S_PIN_STATE command: chip-select, write-protect and hold lines are
// driven when enabled and released (high impedance) when disabled, so
// the target board can boot with the programmer still attached.
type PinDriver interface {
	// SetPinState enables or disables the output drivers. Called
	// outside any SPI transaction.
	SetPinState(on bool) error
}

// Global singleton used by target startup code.
var pinDriver PinDriver

// SetPinDriver is called by target-specific code to register its driver.
func SetPinDriver(d PinDriver) {
	pinDriver = d
}

// MustPins returns the configured driver or panics if missing.
func MustPins() PinDriver {
	if pinDriver == nil {
		panic("pin driver not configured")
	}
	return pinDriver
}
