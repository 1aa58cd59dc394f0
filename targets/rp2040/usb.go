//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"gosprog/core"
	"gosprog/protocol"
)

// usbPacketSize is the CDC bulk endpoint size. core.BufferSize is kept
// a multiple of it so a full O_SPIOP payload arrives in whole packets.
const usbPacketSize = 64

// InitUSB initializes USB serial communication.
// On RP2040, machine.Serial is USB CDC-ACM, not a UART; the
// descriptors are set by TinyGo's runtime and the baud rate is ignored.
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// USBLink adapts the interrupt-driven USB CDC endpoint to the blocking
// byte channel the engine expects. A pump goroutine drains the
// endpoint into a FIFO ring; ReadByte spins on the ring with a sleep
// so the engine sees a plain blocking read.
type USBLink struct {
	rx *protocol.FifoBuffer
}

// NewUSBLink creates the link. The ring holds two full scratch buffers
// so the host can stream an O_SPIOP payload ahead of the engine.
func NewUSBLink() *USBLink {
	return &USBLink{rx: protocol.NewFifoBuffer(2 * core.BufferSize)}
}

// pump runs in its own goroutine, moving bytes from the USB endpoint
// into the ring.
func (l *USBLink) pump() {
	for {
		if machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err == nil {
				for !l.rx.WriteByte(b) {
					// Ring full: the engine is mid-command, let it drain
					time.Sleep(100 * time.Microsecond)
				}
				continue
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// ReadByte blocks until the host delivers a byte.
func (l *USBLink) ReadByte() (byte, error) {
	for {
		if b, ok := l.rx.ReadByte(); ok {
			return b, nil
		}
		time.Sleep(50 * time.Microsecond)
	}
}

// Write blocks until the transport accepts all of p.
func (l *USBLink) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
