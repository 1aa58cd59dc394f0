package core

import (
	"testing"

	"gosprog/protocol"
)

func TestCommandTableParamWidths(t *testing.T) {
	// Fixed parameter widths are dictated by the serprog protocol and
	// must never drift: a wrong width desynchronizes the stream.
	widths := map[byte]int{
		protocol.OpNop:        0,
		protocol.OpQIface:     0,
		protocol.OpQCmdMap:    0,
		protocol.OpQPgmName:   0,
		protocol.OpQSerBuf:    0,
		protocol.OpQBusType:   0,
		protocol.OpQChipSize:  0,
		protocol.OpQOpBuf:     0,
		protocol.OpQWrnMaxLen: 0,
		protocol.OpRByte:      3,
		protocol.OpRNBytes:    6,
		protocol.OpOInit:      0,
		protocol.OpOWriteB:    4,
		protocol.OpOWriteN:    6,
		protocol.OpODelay:     4,
		protocol.OpOExec:      0,
		protocol.OpSyncNop:    0,
		protocol.OpQRdnMaxLen: 0,
		protocol.OpSBusType:   1,
		protocol.OpSpiOp:      6,
		protocol.OpSSpiFreq:   4,
		protocol.OpSPinState:  1,
	}

	if len(widths) != len(commandTable) {
		t.Fatalf("table covers %d opcodes, want %d", len(commandTable), len(widths))
	}

	for op, want := range widths {
		cmd := &commandTable[op]
		if cmd.params != want {
			t.Errorf("%s parameter width = %d, want %d", cmd.name, cmd.params, want)
		}
		if cmd.params > maxParamLen {
			t.Errorf("%s parameter width %d exceeds maxParamLen", cmd.name, cmd.params)
		}
		if cmd.run == nil {
			t.Errorf("%s has no handler", cmd.name)
		}
	}
}

func TestCommandBitmapBytes(t *testing.T) {
	// Exact bitmap: NOP..Q_BUSTYPE in byte 0, SYNC_NOP/S_BUSTYPE/
	// O_SPIOP/S_SPI_FREQ/S_PIN_STATE in byte 2, nothing else.
	want := [protocol.CmdMapSize]byte{0: 0x3F, 2: 0x3D}

	if cmdMap != want {
		t.Errorf("cmdMap = % X, want % X", cmdMap[:3], want[:3])
	}
}

func TestProgNameFitsWire(t *testing.T) {
	if len(ProgName) > protocol.PgmNameSize {
		t.Errorf("ProgName %q exceeds the %d-byte wire field", ProgName, protocol.PgmNameSize)
	}
}

func TestBufferSizeFitsSerBufField(t *testing.T) {
	if BufferSize > 0xFFFF {
		t.Error("BufferSize does not fit Q_SERBUF's 16-bit field")
	}
	if BufferSize%64 != 0 {
		t.Error("BufferSize should be a multiple of the USB packet size")
	}
}
