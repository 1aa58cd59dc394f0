// Package core implements the serprog protocol engine: command
// framing, session state, and the dispatch of bus operations onto the
// SPI and pin drivers. It is pure Go and runs unchanged under the host
// test toolchain; all hardware access goes through the HAL interfaces.
package core

import "gosprog/protocol"

const (
	// BufferSize is the capacity of the static scratch buffer that
	// stages O_SPIOP payloads, and the value reported by Q_SERBUF. The
	// host never issues a transfer whose write+read lengths exceed it.
	// Kept a multiple of the 64-byte USB CDC packet size.
	BufferSize = 256

	// ProgName is the programmer identification reported by Q_PGMNAME,
	// NUL padded to 16 bytes on the wire.
	ProgName = "gosprog"
)

// Engine runs the serprog command loop: read one opcode, read exactly
// that opcode's parameter bytes, execute, write the full response, and
// only then read the next opcode. There is no pipelining and no
// engine-level timeout; reads block until the host delivers bytes.
type Engine struct {
	link  Link
	spi   SPIDriver
	pins  PinDriver
	state SessionState

	// scratch stages O_SPIOP payloads: write bytes at [0:wlen], read
	// bytes at [wlen:wlen+rlen]. Owned exclusively by the running
	// command; there is no concurrency.
	scratch [BufferSize]byte
}

// NewEngine creates an engine over the given transport and drivers.
func NewEngine(link Link, spi SPIDriver, pins PinDriver) *Engine {
	return &Engine{
		link:  link,
		spi:   spi,
		pins:  pins,
		state: newSessionState(),
	}
}

// State returns a copy of the current session state.
func (e *Engine) State() SessionState {
	return e.state
}

// Run executes commands until the transport fails. On hardware the
// transport never fails and Run does not return.
func (e *Engine) Run() error {
	for {
		if err := e.Step(); err != nil {
			return err
		}
	}
}

// Step reads and executes exactly one command. A returned error is a
// transport failure; command-level failures are reported to the host
// in-band via a NAK status and do not surface here.
func (e *Engine) Step() error {
	op, err := e.link.ReadByte()
	if err != nil {
		return err
	}

	if int(op) >= len(commandTable) {
		// Parameter length of an undefined opcode is unknowable, so
		// alignment cannot be preserved. Hosts only send commands
		// advertised in the capability bitmap.
		return e.writeStatus(protocol.Nak)
	}

	cmd := &commandTable[op]

	var params [maxParamLen]byte
	p := params[:cmd.params]
	if err := e.readFull(p); err != nil {
		return err
	}

	return cmd.run(e, p)
}

// readFull blocks until p is filled from the transport.
func (e *Engine) readFull(p []byte) error {
	for i := range p {
		b, err := e.link.ReadByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

// discard reads and drops exactly n bytes to keep the stream
// byte-aligned when a declared payload cannot be acted on.
func (e *Engine) discard(n uint32) error {
	for ; n > 0; n-- {
		if _, err := e.link.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

// writeAll blocks until every byte of p has been accepted.
func (e *Engine) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := e.link.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (e *Engine) writeStatus(status byte) error {
	return e.writeAll([]byte{status})
}

// spiExchange runs one chip-select cycle: transmit w, then clock
// len(r) filler bytes while collecting the responses. The chip is
// selected exactly once and always deselected, even on a driver fault.
func (e *Engine) spiExchange(w, r []byte) error {
	if err := e.spi.Select(0); err != nil {
		return err
	}

	var terr error
	if len(w) > 0 {
		terr = e.spi.Tx(w, nil)
	}
	if terr == nil && len(r) > 0 {
		terr = e.spi.Tx(nil, r)
	}

	if err := e.spi.Deselect(0); err != nil && terr == nil {
		terr = err
	}
	return terr
}
