package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// micFramesPerRead is the blocking-read granularity; at typical device rates
// it bounds ReadPacket at a few tens of milliseconds.
const micFramesPerRead = 512

// micEndpoint captures the default input device (a microphone) through
// PortAudio instead of the render-endpoint mix. An alternate source for
// setups where loopback is unavailable or the user wants to transcribe
// themselves rather than the machine.
type micEndpoint struct {
	log    zerolog.Logger
	device *portaudio.DeviceInfo
	stream *portaudio.Stream
	buf    []float32
	format Format
}

// NewMicEndpoint initializes PortAudio and resolves the default input
// device.
func NewMicEndpoint(logger zerolog.Logger) (Endpoint, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	return &micEndpoint{log: logger, device: device}, nil
}

func (e *micEndpoint) MixFormat() (Format, error) {
	if e.device == nil {
		return Format{}, ErrDeviceUnavailable
	}
	e.format = Format{
		SampleRate:    uint32(e.device.DefaultSampleRate),
		Channels:      1,
		BitsPerSample: 32,
	}
	return e.format, nil
}

func (e *micEndpoint) Open(format Format) error {
	e.buf = make([]float32, micFramesPerRead)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   e.device,
			Channels: int(format.Channels),
			Latency:  e.device.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: len(e.buf),
	}, e.buf)
	if err != nil {
		return fmt.Errorf("stream activation failed: %w", err)
	}

	e.stream = stream
	return nil
}

func (e *micEndpoint) Start() error {
	if e.stream == nil {
		return ErrNotInitialized
	}
	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

func (e *micEndpoint) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

// ReadPacket blocks until one read buffer of frames arrives; the block is
// bounded by the buffer duration, which keeps the capture loop responsive to
// stop signals.
func (e *micEndpoint) ReadPacket() (*Packet, error) {
	if e.stream == nil {
		return nil, ErrNotInitialized
	}
	if err := e.stream.Read(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStream, err)
	}

	samples := make([]float32, len(e.buf))
	copy(samples, e.buf)

	return &Packet{Samples: samples, Frames: len(samples)}, nil
}

func (e *micEndpoint) ReleasePacket(p *Packet) error {
	// The read buffer is reused on the next Read; nothing to hand back.
	return nil
}

// Sessions is empty for microphone input: there is no per-process mix to
// enumerate.
func (e *micEndpoint) Sessions(max int) ([]Session, error) {
	return nil, nil
}

func (e *micEndpoint) Close() error {
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	portaudio.Terminate()
	return nil
}
