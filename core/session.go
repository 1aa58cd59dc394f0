package core

import "gosprog/protocol"

// DefaultFreqHz is the SPI clock in effect before the host negotiates
// one. 1 MHz is safe for every flash chip the host tools drive;
// targets configure their hardware to the same rate at boot.
const DefaultFreqHz = 1_000_000

// SessionState is the protocol state negotiated across commands. There
// is exactly one session for the device's power-on lifetime; the state
// lives in the Engine and is mutated only by command handlers.
type SessionState struct {
	// FreqHz is the SPI clock actually applied by the driver, not the
	// rate the host requested.
	FreqHz uint32

	// BusTypes is the active bus bitmask set by S_BUSTYPE.
	BusTypes uint8

	// Synced records that the host completed a SYNC_NOP handshake.
	Synced bool
}

func newSessionState() SessionState {
	return SessionState{
		FreqHz:   DefaultFreqHz,
		BusTypes: protocol.BusSPI,
	}
}
