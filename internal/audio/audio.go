// Package audio captures the live audio a machine is rendering (system-wide
// loopback, or scoped to one process's session) and delivers it as a
// continuous stream of mono float32 samples at a fixed target rate.
//
// The Engine owns the capture loop; platform specifics live behind the
// Endpoint interface so the loop itself stays portable and testable.
package audio

import "errors"

// Target format delivered to callbacks: mono float32 at the Whisper rate.
const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 32
)

// Errors reported by the capture engine and its endpoints.
var (
	// ErrDeviceUnavailable means no default render endpoint exists.
	ErrDeviceUnavailable = errors.New("no active render endpoint")

	// ErrInitFailed means stream activation or format negotiation failed.
	ErrInitFailed = errors.New("capture initialization failed")

	// ErrProcessNotFound means the requested pid has no active audio session.
	ErrProcessNotFound = errors.New("process has no active audio session")

	// ErrAccessDenied means the session's owning process could not be queried.
	ErrAccessDenied = errors.New("access denied querying session process")

	// ErrStream means a frame packet could not be obtained or released
	// mid-capture.
	ErrStream = errors.New("audio stream error")

	// ErrNotInitialized means Start was called before Initialize.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrCapturing means the operation is not allowed while capture runs.
	ErrCapturing = errors.New("engine is capturing")
)

// Format describes a PCM stream. Immutable once negotiated for the life of a
// capture session.
type Format struct {
	SampleRate    uint32
	Channels      uint32
	BitsPerSample uint32
}

// TargetFormat is the canonical format every callback chunk is converted to.
func TargetFormat() Format {
	return Format{
		SampleRate:    TargetSampleRate,
		Channels:      TargetChannels,
		BitsPerSample: TargetBitDepth,
	}
}

// Session identifies a process that is currently rendering audio. A Session
// is a snapshot: the process may exit between enumeration and use, so callers
// must tolerate staleness.
type Session struct {
	PID     uint32
	ExePath string
}

// Callback receives each captured chunk of mono samples at the target rate,
// synchronously on the capture goroutine. It must not block for unbounded
// time; it is expected to copy the data into a buffer and return.
type Callback func(samples []float32)
