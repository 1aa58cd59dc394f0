package core

// Link is the abstract transport byte channel the engine talks to the
// host over. Platform code supplies an implementation backed by USB
// CDC; tests supply in-memory fakes.
type Link interface {
	// ReadByte blocks until one byte is available. On hardware it never
	// fails; fakes may return an error to stop the engine.
	ReadByte() (byte, error)

	// Write blocks until all of p has been accepted by the transport.
	Write(p []byte) (int, error)
}
