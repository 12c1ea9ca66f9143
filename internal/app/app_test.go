package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hewenyu/voice-whisper/internal/audio"
	"github.com/hewenyu/voice-whisper/internal/config"
	"github.com/hewenyu/voice-whisper/internal/transcribe"
)

// Mock implementations for testing

type mockCapture struct {
	mu          sync.Mutex
	initErr     error
	cbErr       error
	initialized bool
	started     bool
	stopped     bool
	pid         uint32
	cb          audio.Callback
}

func (m *mockCapture) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initErr != nil {
		return m.initErr
	}
	m.initialized = true
	return nil
}

func (m *mockCapture) SetCallback(cb audio.Callback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cbErr != nil {
		return m.cbErr
	}
	m.cb = cb
	return nil
}

func (m *mockCapture) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *mockCapture) StartProcess(pid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.pid = pid
	return nil
}

func (m *mockCapture) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockCapture) feed(samples []float32) bool {
	m.mu.Lock()
	cb := m.cb
	started := m.started
	m.mu.Unlock()
	if cb == nil || !started {
		return false
	}
	cb(samples)
	return true
}

type mockTranscriber struct{}

func (m *mockTranscriber) Transcribe(samples []float32) ([]transcribe.Segment, error) {
	return []transcribe.Segment{{Text: "hello"}}, nil
}

func (m *mockTranscriber) Close() error { return nil }

type mockRecorder struct {
	mu      sync.Mutex
	samples int
}

func (m *mockRecorder) Write(samples []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples += len(samples)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 400; i++ {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func testConfig() *config.Config {
	return &config.Config{
		Capture: config.CaptureConfig{
			Source:   config.SourceLoopback,
			StepMS:   100,
			LengthMS: 100,
			KeepMS:   0,
		},
	}
}

func TestRunDeliversSegments(t *testing.T) {
	eng := &mockCapture{}
	rec := &mockRecorder{}

	var mu sync.Mutex
	var got []transcribe.Segment

	a := New(Config{
		Capture:     eng,
		Transcriber: &mockTranscriber{},
		Recorder:    rec,
		Config:      testConfig(),
		Logger:      zerolog.Nop(),
		Sink: func(s transcribe.Segment) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- a.Run(ctx) }()

	// One step of audio at the target rate.
	step := make([]float32, 1600)
	waitFor(t, func() bool { return eng.feed(step) })

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})

	mu.Lock()
	if got[0].Text != "hello" {
		t.Errorf("got segment %q, want %q", got[0].Text, "hello")
	}
	mu.Unlock()

	if rec.count() == 0 {
		t.Error("recorder received no samples")
	}

	cancel()
	if err := <-errC; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if !eng.stopped {
		t.Error("capture was not stopped on shutdown")
	}
}

func TestRunStartsProcessSession(t *testing.T) {
	eng := &mockCapture{}
	cfg := testConfig()
	cfg.Capture.PID = 4242

	a := New(Config{
		Capture:     eng,
		Transcriber: &mockTranscriber{},
		Config:      cfg,
		Logger:      zerolog.Nop(),
		Sink:        func(transcribe.Segment) {},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- a.Run(ctx) }()

	waitFor(t, func() bool {
		eng.mu.Lock()
		defer eng.mu.Unlock()
		return eng.started
	})

	eng.mu.Lock()
	if eng.pid != 4242 {
		t.Errorf("StartProcess got pid %d, want 4242", eng.pid)
	}
	eng.mu.Unlock()

	cancel()
	if err := <-errC; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRunCallbackError(t *testing.T) {
	wantErr := errors.New("already capturing")
	eng := &mockCapture{cbErr: wantErr}

	a := New(Config{
		Capture:     eng,
		Transcriber: &mockTranscriber{},
		Config:      testConfig(),
		Logger:      zerolog.Nop(),
		Sink:        func(transcribe.Segment) {},
	})

	if err := a.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Run returned %v, want wrapped %v", err, wantErr)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.started {
		t.Error("capture must not start when the callback cannot be attached")
	}
}

func TestRunInitializeError(t *testing.T) {
	wantErr := errors.New("no device")
	eng := &mockCapture{initErr: wantErr}

	a := New(Config{
		Capture:     eng,
		Transcriber: &mockTranscriber{},
		Config:      testConfig(),
		Logger:      zerolog.Nop(),
		Sink:        func(transcribe.Segment) {},
	})

	if err := a.Run(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("Run returned %v, want wrapped %v", err, wantErr)
	}
}
