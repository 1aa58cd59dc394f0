package serprog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"gosprog/core"
	"gosprog/protocol"
)

// engineLink adapts the engine side of the loopback to core.Link.
type engineLink struct {
	r *bufio.Reader
	w *io.PipeWriter
}

func (l *engineLink) ReadByte() (byte, error) {
	return l.r.ReadByte()
}

func (l *engineLink) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

// pipePort adapts the client side of the loopback to serial.Port.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipePort) Flush() error                { return nil }

func (p *pipePort) Close() error {
	p.r.Close()
	p.w.Close()
	return nil
}

// flashSPI emulates a 64 KiB SPI NOR flash behind the engine's SPI
// driver interface: JEDEC identification (0x9F) and slow read (0x03).
type flashSPI struct {
	mem []byte
	id  [3]byte

	cmd   []byte
	rdOff int
	freq  uint32
}

func newFlashSPI() *flashSPI {
	f := &flashSPI{
		mem: make([]byte, 64*1024),
		id:  [3]byte{0xEF, 0x40, 0x18},
	}
	for i := range f.mem {
		f.mem[i] = byte(i*7 + 3)
	}
	return f
}

func (f *flashSPI) SetFrequency(hz uint32) (uint32, error) {
	// Quantize to 100 kHz steps like a divided peripheral clock would
	hz -= hz % 100_000
	if hz == 0 {
		hz = 100_000
	}
	f.freq = hz
	return hz, nil
}

func (f *flashSPI) Select(cs uint8) error {
	f.cmd = f.cmd[:0]
	f.rdOff = 0
	return nil
}

func (f *flashSPI) Deselect(cs uint8) error { return nil }

func (f *flashSPI) Tx(w, r []byte) error {
	if w != nil {
		f.cmd = append(f.cmd, w...)
	}
	for i := range r {
		r[i] = f.respond()
	}
	return nil
}

func (f *flashSPI) Transfer(b byte) (byte, error) {
	var r [1]byte
	if err := f.Tx([]byte{b}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (f *flashSPI) respond() byte {
	defer func() { f.rdOff++ }()

	if len(f.cmd) == 0 {
		return 0xFF
	}
	switch f.cmd[0] {
	case 0x9F:
		if f.rdOff < len(f.id) {
			return f.id[f.rdOff]
		}
	case 0x03:
		if len(f.cmd) >= 4 {
			// Address is transmitted most significant byte first
			addr := int(f.cmd[1])<<16 | int(f.cmd[2])<<8 | int(f.cmd[3])
			return f.mem[(addr+f.rdOff)%len(f.mem)]
		}
	}
	return 0xFF
}

type nullPins struct{}

func (nullPins) SetPinState(on bool) error { return nil }

// newLoopback wires a client to a real engine over in-memory pipes.
func newLoopback(t *testing.T) (*Client, *flashSPI) {
	t.Helper()

	clientR, engineW := io.Pipe()
	engineR, clientW := io.Pipe()

	flash := newFlashSPI()
	engine := core.NewEngine(
		&engineLink{r: bufio.NewReader(engineR), w: engineW},
		flash, nullPins{},
	)
	go func() { _ = engine.Run() }()

	port := &pipePort{r: clientR, w: clientW}
	t.Cleanup(func() {
		port.Close()
		engineR.Close()
		engineW.Close()
	})

	return NewClient(port), flash
}

func TestClientSyncAndQueries(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	version, err := client.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != protocol.IfaceVersion {
		t.Errorf("version = %d, want %d", version, protocol.IfaceVersion)
	}

	name, err := client.ProgrammerName()
	if err != nil {
		t.Fatalf("ProgrammerName failed: %v", err)
	}
	if name != core.ProgName {
		t.Errorf("name = %q, want %q", name, core.ProgName)
	}

	serbuf, err := client.SerialBufferSize()
	if err != nil {
		t.Fatalf("SerialBufferSize failed: %v", err)
	}
	if serbuf != core.BufferSize {
		t.Errorf("serbuf = %d, want %d", serbuf, core.BufferSize)
	}

	buses, err := client.BusTypes()
	if err != nil {
		t.Fatalf("BusTypes failed: %v", err)
	}
	if buses != protocol.BusSPI {
		t.Errorf("bus types = %#x, want SPI only", buses)
	}

	if ok, _ := client.Supports(protocol.OpSpiOp); !ok {
		t.Error("O_SPIOP should be advertised")
	}
	if ok, _ := client.Supports(protocol.OpRByte); ok {
		t.Error("R_BYTE should not be advertised")
	}
}

func TestClientJEDECID(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	id, err := client.JEDECID()
	if err != nil {
		t.Fatalf("JEDECID failed: %v", err)
	}
	if id != [3]byte{0xEF, 0x40, 0x18} {
		t.Errorf("JEDEC ID = % X, want EF 40 18", id[:])
	}
}

func TestClientSetSPIFreq(t *testing.T) {
	client, flash := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	applied, err := client.SetSPIFreq(8_250_000)
	if err != nil {
		t.Fatalf("SetSPIFreq failed: %v", err)
	}
	if applied != 8_200_000 {
		t.Errorf("applied = %d, want quantized 8200000", applied)
	}
	if flash.freq != applied {
		t.Errorf("driver frequency %d does not match reported %d", flash.freq, applied)
	}
}

func TestClientSetBusType(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if err := client.SetBusType(protocol.BusSPI); err != nil {
		t.Errorf("SetBusType(SPI) failed: %v", err)
	}

	err := client.SetBusType(protocol.BusParallel)
	if !errors.Is(err, ErrNak) {
		t.Errorf("SetBusType(parallel) = %v, want ErrNak", err)
	}
}

func TestClientSetPinState(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if err := client.SetPinState(false); err != nil {
		t.Errorf("SetPinState(false) failed: %v", err)
	}
	if err := client.SetPinState(true); err != nil {
		t.Errorf("SetPinState(true) failed: %v", err)
	}
}

func TestClientSpiOpTooLarge(t *testing.T) {
	client, _ := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	// Oversize transfer must NAK without desynchronizing the stream
	_, err := client.SpiOp(make([]byte, core.BufferSize), 1)
	if !errors.Is(err, ErrNak) {
		t.Fatalf("oversize SpiOp = %v, want ErrNak", err)
	}

	// The next command must still parse cleanly
	if _, err := client.Version(); err != nil {
		t.Errorf("Version after refused SpiOp failed: %v", err)
	}
}

func TestClientReadFlash(t *testing.T) {
	client, flash := newLoopback(t)

	if err := client.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	const addr, size = 0x100, 1000

	var progressed int
	data, err := client.ReadFlash(addr, size, func(n int) { progressed += n })
	if err != nil {
		t.Fatalf("ReadFlash failed: %v", err)
	}

	if len(data) != size {
		t.Fatalf("read %d bytes, want %d", len(data), size)
	}
	if progressed != size {
		t.Errorf("progress reported %d bytes, want %d", progressed, size)
	}
	if !bytes.Equal(data, flash.mem[addr:addr+size]) {
		t.Error("read data does not match flash contents")
	}
}
