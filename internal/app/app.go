// Package app assembles the capture pipeline: the audio engine pushes
// converted samples into a ring buffer (and optionally a WAV recorder),
// and the transcription runner drains the other side on its own cadence.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/config"
	"github.com/hewenyu/voice-whisper/internal/transcribe"
)

// Capture is the slice of the audio engine the pipeline drives.
type Capture interface {
	Initialize() error
	SetCallback(audio.Callback) error
	Start() error
	StartProcess(pid uint32) error
	Stop()
}

// SampleWriter receives every converted sample batch as it is captured.
type SampleWriter interface {
	Write(samples []float32) error
}

// Config wires an App. Recorder is optional and may be nil.
type Config struct {
	Capture     Capture
	Transcriber transcribe.Transcriber
	Recorder    SampleWriter
	Config      *config.Config
	Logger      zerolog.Logger
	Sink        func(transcribe.Segment)
}

type App struct {
	capture Capture
	stt     transcribe.Transcriber
	rec     SampleWriter
	cfg     *config.Config
	log     zerolog.Logger
	sink    func(transcribe.Segment)
}

func New(cfg Config) *App {
	return &App{
		capture: cfg.Capture,
		stt:     cfg.Transcriber,
		rec:     cfg.Recorder,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		sink:    cfg.Sink,
	}
}

// Run starts capture and blocks transcribing until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.capture.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize capture: %w", err)
	}

	cc := a.cfg.Capture

	ring := audio.NewRing(time.Duration(cc.LengthMS)*time.Millisecond, audio.TargetSampleRate)

	if err := a.capture.SetCallback(func(samples []float32) {
		ring.Push(samples)
		if a.rec != nil {
			if err := a.rec.Write(samples); err != nil {
				a.log.Warn().Err(err).Msg("Failed to write recording")
			}
		}
	}); err != nil {
		return fmt.Errorf("failed to attach capture callback: %w", err)
	}

	var err error
	if cc.PID > 0 {
		err = a.capture.StartProcess(cc.PID)
	} else {
		err = a.capture.Start()
	}
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer a.capture.Stop()

	runner := transcribe.NewRunner(a.stt, ring, transcribe.Options{
		Step:         time.Duration(cc.StepMS) * time.Millisecond,
		Length:       time.Duration(cc.LengthMS) * time.Millisecond,
		Keep:         time.Duration(cc.KeepMS) * time.Millisecond,
		VADThreshold: cc.VADThreshold,
		Sink:         a.sink,
	}, a.log)

	return runner.Run(ctx)
}
