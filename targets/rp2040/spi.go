//go:build rp2040 || rp2350

package main

import (
	"machine"

	"gosprog/core"
)

// Flash programming pinout on SPI0, matching the usual Pico serprog
// wiring: SCK on GPIO2, MOSI on GPIO3, MISO on GPIO4, CS on GPIO5.
const (
	pinSCK  = machine.GPIO2
	pinMOSI = machine.GPIO3
	pinMISO = machine.GPIO4
	pinCS   = machine.GPIO5
)

// clkPeriHz is the peripheral clock feeding the SPI block. The SPI
// serial clock is clk_peri divided by an even divisor >= 2, which sets
// both the ceiling and the quantization of achievable rates.
const clkPeriHz = 125_000_000

// RPSPIDriver implements core.SPIDriver on the RP2040 SPI0 block with
// a GPIO chip-select line.
type RPSPIDriver struct {
	bus  *machine.SPI
	freq uint32
}

// NewRPSPIDriver configures SPI0 at the engine's default rate and the
// chip-select line deasserted.
func NewRPSPIDriver() (*RPSPIDriver, error) {
	d := &RPSPIDriver{bus: machine.SPI0}

	pinCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinCS.High()

	if _, err := d.SetFrequency(core.DefaultFreqHz); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *RPSPIDriver) configure(hz uint32) error {
	return d.bus.Configure(machine.SPIConfig{
		Frequency: hz,
		SCK:       pinSCK,
		SDO:       pinMOSI,
		SDI:       pinMISO,
		Mode:      0, // flash chips use mode 0
	})
}

// SetFrequency clamps hz to the SPI block's range, reprograms the bus
// at the nearest achievable rate at or below the request, and returns
// the rate in effect.
func (d *RPSPIDriver) SetFrequency(hz uint32) (uint32, error) {
	if hz > clkPeriHz/2 {
		hz = clkPeriHz / 2
	}

	// Achievable rates are clk_peri/div; round the divisor up so the
	// applied rate never exceeds the request.
	div := (clkPeriHz + hz - 1) / hz
	if div < 2 {
		div = 2
	}
	achieved := clkPeriHz / div

	if err := d.configure(achieved); err != nil {
		return 0, err
	}
	d.freq = achieved
	return achieved, nil
}

// Select asserts the chip-select line. The board has one flash socket,
// so the chip index is ignored.
func (d *RPSPIDriver) Select(cs uint8) error {
	pinCS.Low()
	return nil
}

// Deselect releases the chip-select line.
func (d *RPSPIDriver) Deselect(cs uint8) error {
	pinCS.High()
	return nil
}

// Tx performs a full-duplex transfer on the SPI block.
func (d *RPSPIDriver) Tx(w, r []byte) error {
	return d.bus.Tx(w, r)
}

// Transfer clocks a single byte.
func (d *RPSPIDriver) Transfer(b byte) (byte, error) {
	return d.bus.Transfer(b)
}
