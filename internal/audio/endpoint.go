package audio

// Packet is one frame packet in the endpoint's native format: Frames frames
// of interleaved float32 samples. Silent packets carry no usable audio and
// are skipped downstream, but must still be released back to the endpoint.
type Packet struct {
	Samples []float32
	Frames  int
	Silent  bool
}

// Endpoint abstracts the host audio subsystem behind the capture engine.
// One concrete adapter exists per platform (WASAPI loopback on Windows,
// miniaudio loopback elsewhere, PortAudio for microphone input), plus fakes
// for tests.
//
// The engine is the sole caller; an Endpoint needs no internal locking beyond
// what its own backend requires.
type Endpoint interface {
	// MixFormat reports the native mix format of the underlying device.
	// Callable before Open; the result is what Open will be asked to use.
	MixFormat() (Format, error)

	// Open activates a shared-mode stream using the given native format.
	// Errors must identify the failing stage (format query, stream
	// activation, capture-client acquisition).
	Open(format Format) error

	// Start begins the stream. Stop halts it; both may be called repeatedly.
	Start() error
	Stop() error

	// ReadPacket returns the next pending frame packet, or (nil, nil) when
	// no data is available yet. Every non-nil packet must be handed back via
	// ReleasePacket before the next ReadPacket call.
	ReadPacket() (*Packet, error)
	ReleasePacket(p *Packet) error

	// Sessions enumerates processes currently rendering audio on the
	// endpoint, up to max entries. Individual sessions that cannot be
	// resolved are skipped; an empty slice is not an error. Adapters for
	// hosts without session tracking return an empty slice.
	Sessions(max int) ([]Session, error)

	// Close releases all OS resources. The endpoint is unusable afterwards.
	Close() error
}
