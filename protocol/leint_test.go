package protocol

import "testing"

func TestUint24RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 256, 0x1234, 0xFFFF, 0x010000, 0xFFFFFF}

	for _, v := range values {
		var b [3]byte
		PutUint24(b[:], v)
		if got := Uint24(b[:]); got != v {
			t.Errorf("Uint24(PutUint24(%d)) = %d", v, got)
		}
	}
}

func TestPutUint24Encoding(t *testing.T) {
	var b [3]byte

	// 256 encodes as 0x00 0x01 0x00 little-endian
	PutUint24(b[:], 256)
	if b != [3]byte{0x00, 0x01, 0x00} {
		t.Errorf("PutUint24(256) = % X", b)
	}

	PutUint24(b[:], 0x9F0000)
	if b != [3]byte{0x00, 0x00, 0x9F} {
		t.Errorf("PutUint24(0x9F0000) = % X", b)
	}

	// Bits above 24 are discarded
	PutUint24(b[:], 0xFF000001)
	if b != [3]byte{0x01, 0x00, 0x00} {
		t.Errorf("PutUint24(0xFF000001) = % X", b)
	}
}

func TestUint24Decoding(t *testing.T) {
	if got := Uint24([]byte{0x03, 0x00, 0x00}); got != 3 {
		t.Errorf("Uint24(03 00 00) = %d, want 3", got)
	}
	if got := Uint24([]byte{0x00, 0x01, 0x00}); got != 256 {
		t.Errorf("Uint24(00 01 00) = %d, want 256", got)
	}
}
