// Package transcribe turns the capture engine's sample stream into text. A
// whisper.cpp-backed Transcriber recognizes fixed windows of mono 16 kHz
// samples; the Runner pulls those windows from the shared ring buffer on its
// own cadence.
package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/hewenyu/voice-whisper/internal/config"
)

// Segment is one recognized span of speech with offsets relative to the
// start of the window it was recognized in.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcriber converts a window of mono float32 samples at 16 kHz into text
// segments. Implementations are safe for use from a single goroutine.
type Transcriber interface {
	Transcribe(samples []float32) ([]Segment, error)
	Close() error
}

type whisperTranscriber struct {
	mu        sync.Mutex
	model     whisper.Model
	modelPath string
	cfg       config.WhisperConfig
}

// New loads the configured Whisper model, downloading it first if it is not
// present in the models directory.
func New(cfg config.WhisperConfig) (Transcriber, error) {
	modelPath := filepath.Join(config.ModelsPath(), cfg.Model+".bin")

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := downloadModel(cfg.Model, modelPath); err != nil {
			return nil, fmt.Errorf("failed to download model: %w", err)
		}
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	return &whisperTranscriber{
		model:     model,
		modelPath: modelPath,
		cfg:       cfg,
	}, nil
}

func (w *whisperTranscriber) Transcribe(samples []float32) ([]Segment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return nil, fmt.Errorf("model is closed")
	}

	context, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if w.cfg.Threads > 0 {
		context.SetThreads(uint(w.cfg.Threads))
	}
	if w.cfg.Language != "auto" && w.cfg.Language != "" {
		context.SetLanguage(w.cfg.Language)
	}
	context.SetTranslate(w.cfg.Translate)

	if err := context.Process(samples, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper process failed: %w", err)
	}

	var segments []Segment
	for {
		segment, err := context.NextSegment()
		if err != nil {
			break // EOF
		}
		segments = append(segments, Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}

	return segments, nil
}

func (w *whisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model != nil {
		w.model.Close()
		w.model = nil
	}
	return nil
}
