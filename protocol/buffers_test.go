package protocol

import "testing"

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}

	if fifo.Available() != 0 {
		t.Errorf("Empty FIFO should have 0 available, got %d", fifo.Available())
	}

	// Write some data
	data := []byte{1, 2, 3, 4, 5}
	written := fifo.Write(data)

	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}

	if fifo.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", fifo.Available())
	}

	// Read some data
	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)

	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}

	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read data mismatch: got %v", readBuf)
	}

	if fifo.Available() != 2 {
		t.Errorf("After reading 3, expected 2 available, got %d", fifo.Available())
	}
}

func TestFifoBufferReadByte(t *testing.T) {
	fifo := NewFifoBuffer(4)

	if _, ok := fifo.ReadByte(); ok {
		t.Error("ReadByte on empty FIFO should report empty")
	}

	fifo.Write([]byte{0x13, 0x06})

	b, ok := fifo.ReadByte()
	if !ok || b != 0x13 {
		t.Errorf("ReadByte = %#x, %v; want 0x13, true", b, ok)
	}

	b, ok = fifo.ReadByte()
	if !ok || b != 0x06 {
		t.Errorf("ReadByte = %#x, %v; want 0x06, true", b, ok)
	}

	if !fifo.IsEmpty() {
		t.Error("FIFO should be empty after draining")
	}
}

func TestFifoBufferWriteByte(t *testing.T) {
	fifo := NewFifoBuffer(3)

	// Capacity 3 ring holds 2 bytes
	if !fifo.WriteByte(1) || !fifo.WriteByte(2) {
		t.Error("WriteByte should succeed while space remains")
	}
	if fifo.WriteByte(3) {
		t.Error("WriteByte should fail on a full ring")
	}
	if fifo.Free() != 0 {
		t.Errorf("Full ring should report 0 free, got %d", fifo.Free())
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(8)

	// Fill, drain, fill again to force the indices to wrap
	for cycle := 0; cycle < 4; cycle++ {
		data := []byte{10, 20, 30, 40, 50}
		if n := fifo.Write(data); n != 5 {
			t.Fatalf("cycle %d: wrote %d bytes, want 5", cycle, n)
		}

		out := make([]byte, 5)
		if n := fifo.Read(out); n != 5 {
			t.Fatalf("cycle %d: read %d bytes, want 5", cycle, n)
		}

		for i := range data {
			if out[i] != data[i] {
				t.Fatalf("cycle %d: byte %d = %d, want %d", cycle, i, out[i], data[i])
			}
		}
	}
}

func TestFifoBufferOverflow(t *testing.T) {
	fifo := NewFifoBuffer(5)

	// Capacity 5 ring holds 4 bytes
	data := []byte{1, 2, 3, 4, 5, 6}
	written := fifo.Write(data)

	if written != 4 {
		t.Errorf("Expected to write 4 bytes into full ring, wrote %d", written)
	}

	fifo.Reset()
	if !fifo.IsEmpty() {
		t.Error("FIFO should be empty after Reset")
	}
}
