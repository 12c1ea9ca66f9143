// Package recorder persists the capture stream as an uncompressed 16-bit
// PCM WAV file. It is a pure consumer of the same sample callback the ring
// buffer feeds from.
package recorder

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder appends mono float32 samples to a WAV file. Safe for one writer;
// Close finalizes the RIFF header.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *wav.Encoder
	rate int
}

// New creates the output file and writes the WAV header for mono 16-bit PCM
// at sampleRate.
func New(path string, sampleRate int) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	return &Recorder{
		file: file,
		enc:  wav.NewEncoder(file, sampleRate, 16, 1, 1),
		rate: sampleRate,
	}, nil
}

// DefaultFilename names a recording after the moment it started.
func DefaultFilename() string {
	return time.Now().Format("20060102150405") + ".wav"
}

// Write converts samples to 16-bit integers (clamped to full scale) and
// appends them.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return fmt.Errorf("recorder is closed")
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = v
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.rate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := r.enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return nil
	}

	encErr := r.enc.Close()
	fileErr := r.file.Close()
	r.enc = nil
	r.file = nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize recording: %w", encErr)
	}
	return fileErr
}
