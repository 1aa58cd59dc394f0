//go:build rp2040 || rp2350

package main

import (
	"time"

	"gosprog/core"
)

func main() {
	InitUSB()

	spi, err := NewRPSPIDriver()
	if err != nil {
		// SPI block failed to come up; nothing useful left to do.
		for {
			time.Sleep(time.Second)
		}
	}
	core.SetSPIDriver(spi)
	core.SetPinDriver(NewRPPinDriver())

	link := NewUSBLink()
	go link.pump()

	engine := core.NewEngine(link, core.MustSPI(), core.MustPins())

	// The transport blocks forever on hardware, so Run never returns.
	_ = engine.Run()
}
