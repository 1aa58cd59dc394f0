// Package protocol holds the wire-level constants and codecs of the
// serprog protocol as consumed by flashrom-class host tools.
//
// Every command starts with a single opcode byte followed by an
// opcode-specific parameter block; every multi-byte integer on the
// wire is little-endian.
package protocol

// serprog opcodes.
const (
	OpNop        = 0x00 // no operation
	OpQIface     = 0x01 // query interface version
	OpQCmdMap    = 0x02 // query supported commands bitmap
	OpQPgmName   = 0x03 // query programmer name
	OpQSerBuf    = 0x04 // query serial buffer size
	OpQBusType   = 0x05 // query supported bus types
	OpQChipSize  = 0x06 // query supported chipsize (parallel)
	OpQOpBuf     = 0x07 // query operation buffer size (parallel)
	OpQWrnMaxLen = 0x08 // query max write-n length (parallel)
	OpRByte      = 0x09 // read byte (parallel)
	OpRNBytes    = 0x0A // read n bytes (parallel)
	OpOInit      = 0x0B // init operation buffer (parallel)
	OpOWriteB    = 0x0C // write byte via operation buffer (parallel)
	OpOWriteN    = 0x0D // write n bytes via operation buffer (parallel)
	OpODelay     = 0x0E // delay via operation buffer (parallel)
	OpOExec      = 0x0F // execute operation buffer (parallel)
	OpSyncNop    = 0x10 // special no-op for stream synchronization
	OpQRdnMaxLen = 0x11 // query max read-n length (parallel)
	OpSBusType   = 0x12 // set used bus types
	OpSpiOp      = 0x13 // perform SPI transaction
	OpSSpiFreq   = 0x14 // set SPI clock frequency
	OpSPinState  = 0x15 // set output drivers on/off

	// OpcodeCount is one past the highest opcode the protocol defines.
	OpcodeCount = 0x16
)

// Response status bytes.
const (
	Ack = 0x06
	Nak = 0x15
)

// Bus type bits for Q_BUSTYPE and S_BUSTYPE.
const (
	BusParallel = 1 << 0
	BusLPC      = 1 << 1
	BusFWH      = 1 << 2
	BusSPI      = 1 << 3
)

const (
	// IfaceVersion is the protocol version reported by Q_IFACE.
	IfaceVersion = 1

	// PgmNameSize is the fixed width of the Q_PGMNAME payload. Shorter
	// names are NUL padded.
	PgmNameSize = 16

	// CmdMapSize is the width of the Q_CMDMAP bitmap in bytes. Bit n of
	// the little-endian bitmap marks opcode n as supported.
	CmdMapSize = 32
)

// opcodeNames is indexed by opcode. Used for host-side tracing only;
// the firmware never formats strings.
var opcodeNames = [OpcodeCount]string{
	"NOP", "Q_IFACE", "Q_CMDMAP", "Q_PGMNAME", "Q_SERBUF", "Q_BUSTYPE",
	"Q_CHIPSIZE", "Q_OPBUF", "Q_WRNMAXLEN", "R_BYTE", "R_NBYTES",
	"O_INIT", "O_WRITEB", "O_WRITEN", "O_DELAY", "O_EXEC",
	"SYNC_NOP", "Q_RDNMAXLEN", "S_BUSTYPE", "O_SPIOP", "S_SPI_FREQ",
	"S_PIN_STATE",
}

// OpcodeName returns a human-readable name for an opcode.
func OpcodeName(op byte) string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// CmdMapHas reports whether bit op is set in a Q_CMDMAP bitmap.
func CmdMapHas(cmdmap []byte, op byte) bool {
	if int(op)/8 >= len(cmdmap) {
		return false
	}
	return cmdmap[op/8]&(1<<(op%8)) != 0
}
