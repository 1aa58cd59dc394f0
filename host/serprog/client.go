// Package serprog implements the host side of the serprog protocol:
// the synchronization handshake, capability discovery, and bulk SPI
// operations against a programmer device. Higher-level flash
// algorithms (chunked reads, JEDEC identification) are built on the
// O_SPIOP primitive here, not in the firmware.
package serprog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"

	"gosprog/host/serial"
	"gosprog/protocol"
)

var (
	// ErrNak is returned when the programmer refuses a command.
	ErrNak = errors.New("programmer returned NAK")

	// ErrTimeout is returned when the programmer stops answering.
	ErrTimeout = errors.New("timeout waiting for programmer response")

	// ErrSync is returned when the synchronization handshake fails.
	ErrSync = errors.New("could not synchronize with programmer")
)

// emptyReadLimit bounds how many zero-byte reads (serial timeouts)
// readFull tolerates before giving up.
const emptyReadLimit = 50

// Client drives one serprog programmer over a serial port.
type Client struct {
	port serial.Port

	// Capability cache, filled lazily by the query helpers.
	cmdmap    []byte
	serbuf    uint16
	hasSerbuf bool
}

// NewClient creates a client over an open port. Call Sync before
// anything else.
func NewClient(port serial.Port) *Client {
	return &Client{port: port}
}

// command writes one opcode with its parameter block.
func (c *Client) command(op byte, params ...byte) error {
	glog.V(2).Infof("-> %s % X", protocol.OpcodeName(op), params)
	frame := append([]byte{op}, params...)
	if _, err := c.port.Write(frame); err != nil {
		return fmt.Errorf("writing %s: %w", protocol.OpcodeName(op), err)
	}
	return nil
}

// readFull blocks until p is filled, tolerating the port's read
// timeouts up to emptyReadLimit in a row.
func (c *Client) readFull(p []byte) error {
	empty := 0
	for off := 0; off < len(p); {
		n, err := c.port.Read(p[off:])
		if n == 0 {
			// tarm/serial reports a read timeout as 0 bytes, on some
			// platforms with io.EOF attached
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			empty++
			if empty >= emptyReadLimit {
				return ErrTimeout
			}
			continue
		}
		empty = 0
		off += n
	}
	return nil
}

// readStatus consumes the status byte of a response.
func (c *Client) readStatus(op byte) error {
	var status [1]byte
	if err := c.readFull(status[:]); err != nil {
		return err
	}
	switch status[0] {
	case protocol.Ack:
		return nil
	case protocol.Nak:
		glog.V(2).Infof("<- %s NAK", protocol.OpcodeName(op))
		return fmt.Errorf("%s: %w", protocol.OpcodeName(op), ErrNak)
	default:
		return fmt.Errorf("%s: unexpected status byte %#02x", protocol.OpcodeName(op), status[0])
	}
}

// query runs a fixed-size query command and returns its payload.
func (c *Client) query(op byte, respLen int) ([]byte, error) {
	if err := c.command(op); err != nil {
		return nil, err
	}
	if err := c.readStatus(op); err != nil {
		return nil, err
	}
	resp := make([]byte, respLen)
	if err := c.readFull(resp); err != nil {
		return nil, err
	}
	glog.V(2).Infof("<- %s % X", protocol.OpcodeName(op), resp)
	return resp, nil
}

// Sync performs the serprog synchronization handshake: send SYNC_NOP
// and hunt the response stream for its NAK+ACK signature, discarding
// whatever stale bytes were in flight. Retried a few times the way
// flashrom does.
func (c *Client) Sync() error {
	_ = c.port.Flush()

	for attempt := 0; attempt < 8; attempt++ {
		if err := c.command(protocol.OpSyncNop); err != nil {
			return err
		}

		var buf [64]byte
		prev := byte(0)
		empty := 0
		for got := 0; got < len(buf) && empty < emptyReadLimit; {
			n, err := c.port.Read(buf[got:])
			if n == 0 {
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				empty++
				continue
			}
			for _, b := range buf[got : got+n] {
				if prev == protocol.Nak && b == protocol.Ack {
					glog.V(1).Info("synchronized with programmer")
					return nil
				}
				prev = b
			}
			got += n
		}
	}
	return ErrSync
}

// Version returns the protocol interface version (Q_IFACE).
func (c *Client) Version() (uint16, error) {
	resp, err := c.query(protocol.OpQIface, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(resp), nil
}

// CommandMap returns the 32-byte capability bitmap (Q_CMDMAP).
func (c *Client) CommandMap() ([]byte, error) {
	if c.cmdmap != nil {
		return c.cmdmap, nil
	}
	resp, err := c.query(protocol.OpQCmdMap, protocol.CmdMapSize)
	if err != nil {
		return nil, err
	}
	c.cmdmap = resp
	return resp, nil
}

// Supports reports whether the programmer advertises opcode op.
func (c *Client) Supports(op byte) (bool, error) {
	m, err := c.CommandMap()
	if err != nil {
		return false, err
	}
	return protocol.CmdMapHas(m, op), nil
}

// ProgrammerName returns the device identification string (Q_PGMNAME)
// with the NUL padding stripped.
func (c *Client) ProgrammerName() (string, error) {
	resp, err := c.query(protocol.OpQPgmName, protocol.PgmNameSize)
	if err != nil {
		return "", err
	}
	end := len(resp)
	for end > 0 && resp[end-1] == 0 {
		end--
	}
	return string(resp[:end]), nil
}

// SerialBufferSize returns the device's scratch buffer capacity
// (Q_SERBUF); SPI operations never exceed it.
func (c *Client) SerialBufferSize() (uint16, error) {
	if c.hasSerbuf {
		return c.serbuf, nil
	}
	resp, err := c.query(protocol.OpQSerBuf, 2)
	if err != nil {
		return 0, err
	}
	c.serbuf = binary.LittleEndian.Uint16(resp)
	c.hasSerbuf = true
	return c.serbuf, nil
}

// BusTypes returns the supported bus bitmask (Q_BUSTYPE).
func (c *Client) BusTypes() (uint8, error) {
	resp, err := c.query(protocol.OpQBusType, 1)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

// SetBusType selects the active bus types (S_BUSTYPE).
func (c *Client) SetBusType(mask uint8) error {
	if err := c.command(protocol.OpSBusType, mask); err != nil {
		return err
	}
	return c.readStatus(protocol.OpSBusType)
}

// SetSPIFreq requests an SPI clock rate and returns the rate the
// programmer actually applied, which may differ (S_SPI_FREQ).
func (c *Client) SetSPIFreq(hz uint32) (uint32, error) {
	var params [4]byte
	binary.LittleEndian.PutUint32(params[:], hz)
	if err := c.command(protocol.OpSSpiFreq, params[:]...); err != nil {
		return 0, err
	}
	if err := c.readStatus(protocol.OpSSpiFreq); err != nil {
		return 0, err
	}
	var resp [4]byte
	if err := c.readFull(resp[:]); err != nil {
		return 0, err
	}
	applied := binary.LittleEndian.Uint32(resp[:])
	glog.V(1).Infof("SPI clock set to %d Hz (requested %d)", applied, hz)
	return applied, nil
}

// SetPinState enables or disables the programmer's output drivers
// (S_PIN_STATE).
func (c *Client) SetPinState(on bool) error {
	var v byte
	if on {
		v = 1
	}
	if err := c.command(protocol.OpSPinState, v); err != nil {
		return err
	}
	return c.readStatus(protocol.OpSPinState)
}

// SpiOp runs one chip-select cycle: transmit tx, then clock rlen
// response bytes (O_SPIOP).
func (c *Client) SpiOp(tx []byte, rlen int) ([]byte, error) {
	var hdr [6]byte
	protocol.PutUint24(hdr[0:3], uint32(len(tx)))
	protocol.PutUint24(hdr[3:6], uint32(rlen))

	params := append(hdr[:], tx...)
	if err := c.command(protocol.OpSpiOp, params...); err != nil {
		return nil, err
	}
	if err := c.readStatus(protocol.OpSpiOp); err != nil {
		return nil, err
	}

	resp := make([]byte, rlen)
	if err := c.readFull(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// JEDECID issues the 0x9F read-identification command and returns the
// three identity bytes (manufacturer, type, capacity).
func (c *Client) JEDECID() ([3]byte, error) {
	var id [3]byte
	resp, err := c.SpiOp([]byte{0x9F}, 3)
	if err != nil {
		return id, err
	}
	copy(id[:], resp)
	return id, nil
}

// ReadFlash reads n bytes starting at addr using chunked 0x03 read
// commands sized to the device's buffer. progress, if non-nil, is
// called with the byte count of each completed chunk.
func (c *Client) ReadFlash(addr uint32, n int, progress func(int)) ([]byte, error) {
	serbuf, err := c.SerialBufferSize()
	if err != nil {
		return nil, err
	}
	// Each transaction spends 4 scratch bytes on the command header
	chunkMax := int(serbuf) - 4
	if chunkMax <= 0 {
		return nil, fmt.Errorf("device buffer too small for read commands")
	}

	out := make([]byte, 0, n)
	for n > 0 {
		chunk := n
		if chunk > chunkMax {
			chunk = chunkMax
		}

		// 0x03 read: the address goes out most significant byte first
		cmd := []byte{0x03, byte(addr >> 16), byte(addr >> 8), byte(addr)}
		data, err := c.SpiOp(cmd, chunk)
		if err != nil {
			return nil, fmt.Errorf("read at %#06x: %w", addr, err)
		}

		out = append(out, data...)
		addr += uint32(chunk)
		n -= chunk
		if progress != nil {
			progress(chunk)
		}
	}
	return out, nil
}
