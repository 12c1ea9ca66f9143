package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultPollInterval bounds the capture loop's latency when the endpoint has
// no pending packets. A tunable trade between CPU and latency, not a contract.
const defaultPollInterval = 5 * time.Millisecond

type engineState int

const (
	stateCreated engineState = iota
	stateInitialized
	stateCapturing
)

// Engine owns a single capture session against one endpoint. Lifecycle:
//
//	NewEngine -> Initialize -> Start/StartProcess -> Stop -> (restartable) -> Close
//
// Exactly one capture goroutine exists while the engine is capturing; it is
// the sole caller into the endpoint's stream interface. Stop joins that
// goroutine, so no callback runs after Stop returns.
type Engine struct {
	log  zerolog.Logger
	ep   Endpoint
	poll time.Duration

	mu          sync.Mutex
	state       engineState
	native      Format
	nativeKnown bool
	cb          Callback
	stopC       chan struct{}
	doneC       chan struct{}
}

// NewEngine allocates an engine. No OS resources are touched until
// Initialize.
func NewEngine(ep Endpoint, logger zerolog.Logger) *Engine {
	return &Engine{
		log:  logger,
		ep:   ep,
		poll: defaultPollInterval,
	}
}

// SetPollInterval overrides the capture loop's idle sleep. Must be called
// before Start.
func (e *Engine) SetPollInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.poll = d
	}
}

// MixFormat reports the native mix format of the default render endpoint,
// querying the host on first call and returning the cached value afterwards.
// Callable before Initialize.
func (e *Engine) MixFormat() (Format, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixFormatLocked()
}

func (e *Engine) mixFormatLocked() (Format, error) {
	if e.nativeKnown {
		return e.native, nil
	}
	f, err := e.ep.MixFormat()
	if err != nil {
		return Format{}, fmt.Errorf("failed to query mix format: %w", err)
	}
	e.native = f
	e.nativeKnown = true
	return f, nil
}

// TargetFormat reports the format chunks are delivered in: mono float32 at
// 16 kHz.
func (e *Engine) TargetFormat() Format {
	return TargetFormat()
}

// SetCallback registers the sink for captured chunks. By contract it is set
// before Start and not mutated while capturing.
func (e *Engine) SetCallback(cb Callback) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateCapturing {
		return ErrCapturing
	}
	e.cb = cb
	return nil
}

// Initialize negotiates the native format and opens the shared-mode loopback
// stream. On failure the engine stays in its created state and may be
// initialized again.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateCapturing:
		return ErrCapturing
	case stateInitialized:
		return nil
	}

	native, err := e.mixFormatLocked()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	if err := e.ep.Open(native); err != nil {
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	e.log.Debug().
		Uint32("sample_rate", native.SampleRate).
		Uint32("channels", native.Channels).
		Uint32("bits", native.BitsPerSample).
		Msg("capture stream opened")

	e.state = stateInitialized
	return nil
}

// Start begins whole-endpoint loopback capture and spawns the capture
// goroutine.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

// StartProcess begins capture scoped to the given process. The pid must
// appear in the current session enumeration; otherwise ErrProcessNotFound is
// returned and nothing is started.
//
// The host mixes every active render session into the endpoint, so scoping is
// validation plus ordinary loopback: best-effort isolation, not a guarantee.
func (e *Engine) StartProcess(pid uint32) error {
	sessions, err := e.ep.Sessions(0)
	if err != nil {
		return fmt.Errorf("failed to enumerate sessions: %w", err)
	}
	found := false
	for _, s := range sessions {
		if s.PID == pid {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}

	e.log.Info().Uint32("pid", pid).Msg("session validated, starting endpoint loopback")

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	switch e.state {
	case stateCreated:
		return ErrNotInitialized
	case stateCapturing:
		return ErrCapturing
	}

	if err := e.ep.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}

	e.stopC = make(chan struct{})
	e.doneC = make(chan struct{})
	e.state = stateCapturing

	go e.captureLoop(e.native, e.cb, e.poll, e.stopC, e.doneC)

	e.log.Info().Msg("capture started")
	return nil
}

// Stop signals the capture goroutine, joins it, and halts the stream. Safe to
// call from any goroutine and idempotent: stopping an engine that is not
// capturing is a no-op. After Stop returns no further callbacks occur and the
// engine may be started again.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != stateCapturing {
		e.mu.Unlock()
		return
	}
	stopC, doneC := e.stopC, e.doneC
	e.state = stateInitialized
	e.mu.Unlock()

	close(stopC)
	<-doneC

	if err := e.ep.Stop(); err != nil {
		e.log.Warn().Err(err).Msg("failed to stop stream")
	}
	e.log.Info().Msg("capture stopped")
}

// Capturing reports whether the capture goroutine is live. It turns false
// once a mid-capture stream error has terminated the loop, even before Stop
// is called.
func (e *Engine) Capturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateCapturing {
		return false
	}
	select {
	case <-e.doneC:
		return false
	default:
		return true
	}
}

// Applications enumerates processes currently rendering audio, up to max
// entries (0 means no limit). Failures resolving individual sessions are
// skipped; partial results are normal.
func (e *Engine) Applications(max int) ([]Session, error) {
	return e.ep.Sessions(max)
}

// Close stops any active capture and releases the endpoint.
func (e *Engine) Close() error {
	e.Stop()
	return e.ep.Close()
}

// captureLoop runs on a dedicated goroutine while the engine is capturing.
// It busy-polls the endpoint with a bounded sleep, converts each packet to
// the target format, delivers it, and releases the packet. A stream error
// terminates the loop cleanly.
func (e *Engine) captureLoop(native Format, cb Callback, poll time.Duration, stopC <-chan struct{}, doneC chan<- struct{}) {
	defer close(doneC)

	for {
		select {
		case <-stopC:
			return
		default:
		}

		p, err := e.ep.ReadPacket()
		if err != nil {
			e.log.Error().Err(err).Msg("failed to get frame packet, terminating capture")
			return
		}
		if p == nil {
			time.Sleep(poll)
			continue
		}

		// Silent packets carry no audio but still occupy stream buffer space.
		if !p.Silent && p.Frames > 0 && cb != nil {
			mono := downmixInterleaved(p.Samples, int(native.Channels), p.Frames)
			cb(resampleLinear(mono, native.SampleRate, TargetSampleRate))
		}

		if err := e.ep.ReleasePacket(p); err != nil {
			e.log.Error().Err(err).Msg("failed to release frame packet, terminating capture")
			return
		}
	}
}
