package protocol

// serprog length and address fields are 24-bit little-endian, a width
// encoding/binary does not cover. 16 and 32-bit fields use
// binary.LittleEndian at the call sites.

// Uint24 decodes a 3-byte little-endian integer.
func Uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// PutUint24 encodes v as a 3-byte little-endian integer. Bits above
// 24 are discarded.
func PutUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
