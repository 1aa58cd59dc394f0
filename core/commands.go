package core

import (
	"encoding/binary"

	"gosprog/protocol"
)

// supportedBuses is the bus bitmask reported by Q_BUSTYPE. This
// programmer drives exactly one bus type.
const supportedBuses = protocol.BusSPI

// maxParamLen is the largest fixed parameter block in the table.
const maxParamLen = 6

// handlerFunc executes one command. params is the opcode's fixed
// parameter block, already read from the transport; handlers of
// length-prefixed commands read their payload themselves.
type handlerFunc func(e *Engine, params []byte) error

type command struct {
	name      string
	params    int  // fixed parameter block length in bytes
	supported bool // advertised in the Q_CMDMAP bitmap
	run       handlerFunc
}

// commandTable is indexed by opcode. Opcodes the programmer does not
// implement still carry their parameter lengths so the engine can
// consume them and answer NAK without losing stream alignment.
var commandTable = [protocol.OpcodeCount]command{
	protocol.OpNop:        {name: "NOP", params: 0, supported: true, run: handleNop},
	protocol.OpQIface:     {name: "Q_IFACE", params: 0, supported: true, run: handleQIface},
	protocol.OpQCmdMap:    {name: "Q_CMDMAP", params: 0, supported: true, run: handleQCmdMap},
	protocol.OpQPgmName:   {name: "Q_PGMNAME", params: 0, supported: true, run: handleQPgmName},
	protocol.OpQSerBuf:    {name: "Q_SERBUF", params: 0, supported: true, run: handleQSerBuf},
	protocol.OpQBusType:   {name: "Q_BUSTYPE", params: 0, supported: true, run: handleQBusType},
	protocol.OpQChipSize:  {name: "Q_CHIPSIZE", params: 0, run: handleUnsupported},
	protocol.OpQOpBuf:     {name: "Q_OPBUF", params: 0, run: handleUnsupported},
	protocol.OpQWrnMaxLen: {name: "Q_WRNMAXLEN", params: 0, run: handleUnsupported},
	protocol.OpRByte:      {name: "R_BYTE", params: 3, run: handleUnsupported},
	protocol.OpRNBytes:    {name: "R_NBYTES", params: 6, run: handleUnsupported},
	protocol.OpOInit:      {name: "O_INIT", params: 0, run: handleUnsupported},
	protocol.OpOWriteB:    {name: "O_WRITEB", params: 4, run: handleUnsupported},
	protocol.OpOWriteN:    {name: "O_WRITEN", params: 6, run: handleOWriteN},
	protocol.OpODelay:     {name: "O_DELAY", params: 4, run: handleUnsupported},
	protocol.OpOExec:      {name: "O_EXEC", params: 0, run: handleUnsupported},
	protocol.OpSyncNop:    {name: "SYNC_NOP", params: 0, supported: true, run: handleSyncNop},
	protocol.OpQRdnMaxLen: {name: "Q_RDNMAXLEN", params: 0, run: handleUnsupported},
	protocol.OpSBusType:   {name: "S_BUSTYPE", params: 1, supported: true, run: handleSBusType},
	protocol.OpSpiOp:      {name: "O_SPIOP", params: 6, supported: true, run: handleSpiOp},
	protocol.OpSSpiFreq:   {name: "S_SPI_FREQ", params: 4, supported: true, run: handleSSpiFreq},
	protocol.OpSPinState:  {name: "S_PIN_STATE", params: 1, supported: true, run: handleSPinState},
}

// cmdMap is the capability bitmap, derived from the table once at
// startup and constant for the power-on lifetime.
var cmdMap [protocol.CmdMapSize]byte

func init() {
	cmdMap = buildCmdMap()
}

func buildCmdMap() [protocol.CmdMapSize]byte {
	var m [protocol.CmdMapSize]byte
	for op, cmd := range commandTable {
		if cmd.supported {
			m[op/8] |= 1 << (op % 8)
		}
	}
	return m
}

func handleNop(e *Engine, _ []byte) error {
	return e.writeStatus(protocol.Ack)
}

func handleQIface(e *Engine, _ []byte) error {
	var resp [3]byte
	resp[0] = protocol.Ack
	binary.LittleEndian.PutUint16(resp[1:], protocol.IfaceVersion)
	return e.writeAll(resp[:])
}

func handleQCmdMap(e *Engine, _ []byte) error {
	var resp [1 + protocol.CmdMapSize]byte
	resp[0] = protocol.Ack
	copy(resp[1:], cmdMap[:])
	return e.writeAll(resp[:])
}

func handleQPgmName(e *Engine, _ []byte) error {
	var resp [1 + protocol.PgmNameSize]byte
	resp[0] = protocol.Ack
	copy(resp[1:], ProgName)
	return e.writeAll(resp[:])
}

func handleQSerBuf(e *Engine, _ []byte) error {
	var resp [3]byte
	resp[0] = protocol.Ack
	binary.LittleEndian.PutUint16(resp[1:], BufferSize)
	return e.writeAll(resp[:])
}

func handleQBusType(e *Engine, _ []byte) error {
	return e.writeAll([]byte{protocol.Ack, supportedBuses})
}

// handleSyncNop answers NAK then ACK. The host hunts for this pair to
// re-align the stream, so the two bytes are the whole response.
func handleSyncNop(e *Engine, _ []byte) error {
	e.state.Synced = true
	return e.writeAll([]byte{protocol.Nak, protocol.Ack})
}

func handleSBusType(e *Engine, params []byte) error {
	mask := params[0]
	if mask&^supportedBuses != 0 {
		return e.writeStatus(protocol.Nak)
	}
	e.state.BusTypes = mask
	return e.writeStatus(protocol.Ack)
}

func handleSSpiFreq(e *Engine, params []byte) error {
	req := binary.LittleEndian.Uint32(params)
	if req == 0 {
		return e.writeStatus(protocol.Nak)
	}

	applied, err := e.spi.SetFrequency(req)
	if err != nil {
		return e.writeStatus(protocol.Nak)
	}
	e.state.FreqHz = applied

	var resp [5]byte
	resp[0] = protocol.Ack
	binary.LittleEndian.PutUint32(resp[1:], applied)
	return e.writeAll(resp[:])
}

func handleSPinState(e *Engine, params []byte) error {
	if err := e.pins.SetPinState(params[0] != 0); err != nil {
		return e.writeStatus(protocol.Nak)
	}
	return e.writeStatus(protocol.Ack)
}

// handleSpiOp stages the write payload in the scratch buffer, runs one
// chip-select cycle, and returns the read bytes. A transfer that does
// not fit the scratch buffer is drained from the transport and NAKed
// before any chip-select activity.
func handleSpiOp(e *Engine, params []byte) error {
	wlen := protocol.Uint24(params[0:3])
	rlen := protocol.Uint24(params[3:6])

	if wlen+rlen > BufferSize {
		if err := e.discard(wlen); err != nil {
			return err
		}
		return e.writeStatus(protocol.Nak)
	}

	wbuf := e.scratch[:wlen]
	if err := e.readFull(wbuf); err != nil {
		return err
	}

	rbuf := e.scratch[wlen : wlen+rlen]
	if err := e.spiExchange(wbuf, rbuf); err != nil {
		return e.writeStatus(protocol.Nak)
	}

	if err := e.writeStatus(protocol.Ack); err != nil {
		return err
	}
	return e.writeAll(rbuf)
}

// handleUnsupported answers opcodes whose fixed parameters were
// already consumed by the engine.
func handleUnsupported(e *Engine, _ []byte) error {
	return e.writeStatus(protocol.Nak)
}

// handleOWriteN must drain its declared payload before refusing:
// parameters are dlen (24-bit), addr (24-bit), then dlen data bytes.
func handleOWriteN(e *Engine, params []byte) error {
	dlen := protocol.Uint24(params[0:3])
	if err := e.discard(dlen); err != nil {
		return err
	}
	return e.writeStatus(protocol.Nak)
}
