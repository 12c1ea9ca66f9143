package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hewenyu/voice-whisper/internal/audio"
)

// vadCheckInterval paces the sliding-window mode: how often the runner looks
// for a pause in speech.
const vadCheckInterval = 100 * time.Millisecond

// Options configure a Runner.
type Options struct {
	// Step is how much new audio accumulates before each recognition pass.
	// A non-positive Step switches to sliding-window mode, where windows are
	// cut when the energy VAD detects a pause.
	Step time.Duration

	// Length bounds the total window handed to the transcriber.
	Length time.Duration

	// Keep is how much trailing audio carries over between windows to
	// soften word-boundary cuts. Clamped to Step.
	Keep time.Duration

	// VADThreshold tunes the end-of-speech energy test (sliding-window
	// mode only).
	VADThreshold float32

	// Sink receives every recognized segment, in order.
	Sink func(Segment)
}

// Runner is the pull side of the capture pipeline: it drains the ring buffer
// on its own cadence, independent of the capture goroutine's push cadence,
// assembles overlapping windows, and feeds them to the Transcriber.
type Runner struct {
	log  zerolog.Logger
	tr   Transcriber
	ring *audio.Ring
	opts Options
}

// NewRunner wires a transcriber to the ring buffer it consumes.
func NewRunner(tr Transcriber, ring *audio.Ring, opts Options, logger zerolog.Logger) *Runner {
	if opts.Keep > opts.Step && opts.Step > 0 {
		opts.Keep = opts.Step
	}
	if opts.Length < opts.Step {
		opts.Length = opts.Step
	}
	return &Runner{
		log:  logger,
		tr:   tr,
		ring: ring,
		opts: opts,
	}
}

// Run consumes audio until the context is cancelled. A transcription failure
// is fatal; buffer underruns and backlog drops are not.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.Step <= 0 {
		return r.runVAD(ctx)
	}
	return r.runStepped(ctx)
}

func samplesFor(d time.Duration) int {
	return int(d.Milliseconds()) * audio.TargetSampleRate / 1000
}

// runStepped transcribes every Step of new audio, carrying Keep worth of
// tail from the previous window.
func (r *Runner) runStepped(ctx context.Context) error {
	stepSamples := samplesFor(r.opts.Step)
	lenSamples := samplesFor(r.opts.Length)
	keepSamples := samplesFor(r.opts.Keep)

	var old []float32

	for {
		fresh, err := r.nextStep(ctx, stepSamples)
		if err != nil {
			return nil // context cancelled
		}

		// Prepend up to Keep+Length-new of the previous window's tail.
		take := keepSamples + lenSamples - len(fresh)
		if take > len(old) {
			take = len(old)
		}
		if take < 0 {
			take = 0
		}

		window := make([]float32, 0, take+len(fresh))
		window = append(window, old[len(old)-take:]...)
		window = append(window, fresh...)

		segments, err := r.tr.Transcribe(window)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		for _, s := range segments {
			r.opts.Sink(s)
		}

		old = window
	}
}

// nextStep blocks until a full step of new audio is buffered, dropping the
// backlog whenever the producer has outrun us by more than two steps.
func (r *Runner) nextStep(ctx context.Context, stepSamples int) ([]float32, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r.ring.Len() > 2*stepSamples {
			r.log.Warn().Msg("cannot transcribe audio fast enough, dropping backlog")
			r.ring.Clear()
			continue
		}

		if chunk := r.ring.Get(r.opts.Step); chunk != nil {
			r.ring.Clear()
			return chunk, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// runVAD waits for speech to pause, then transcribes the whole buffered
// window at once.
func (r *Runner) runVAD(ctx context.Context) error {
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(vadCheckInterval):
		}

		if time.Since(last) < 2*time.Second {
			continue
		}

		probe := r.ring.Get(2 * time.Second)
		if probe == nil {
			continue
		}

		if !endOfSpeech(probe, audio.TargetSampleRate, 1000, r.opts.VADThreshold) {
			continue
		}

		window := r.ring.Get(r.opts.Length)
		if window == nil {
			window = probe
		}
		r.ring.Clear()
		last = time.Now()

		segments, err := r.tr.Transcribe(window)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		for _, s := range segments {
			r.opts.Sink(s)
		}
	}
}
