package audio

import (
	"sync"
	"time"
)

// Ring is a fixed-capacity circular sample buffer shared between the capture
// goroutine (writer) and consumers (readers). A single mutex makes Push and
// Get mutually exclusive, so a Get never observes a torn write. Once full,
// the oldest samples are overwritten; the capture side never blocks and
// never fails.
type Ring struct {
	mu     sync.Mutex
	buf    []float32
	rate   int
	pos    int // next write index
	length int // valid samples, saturates at len(buf)
}

// NewRing creates a ring holding window worth of audio at sampleRate.
func NewRing(window time.Duration, sampleRate int) *Ring {
	n := int(window.Milliseconds()) * sampleRate / 1000
	if n < 1 {
		n = 1
	}
	return &Ring{
		buf:  make([]float32, n),
		rate: sampleRate,
	}
}

// Push appends samples at the write cursor, wrapping at capacity. A chunk
// longer than the whole buffer keeps only its trailing capacity samples.
func (r *Ring) Push(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return
	}
	if n >= len(r.buf) {
		copy(r.buf, samples[n-len(r.buf):])
		r.pos = 0
		r.length = len(r.buf)
		return
	}

	if r.pos+n > len(r.buf) {
		n0 := len(r.buf) - r.pos
		copy(r.buf[r.pos:], samples[:n0])
		copy(r.buf, samples[n0:])
		r.pos = n - n0
	} else {
		copy(r.buf[r.pos:], samples)
		r.pos += n
		if r.pos == len(r.buf) {
			r.pos = 0
		}
	}

	r.length += n
	if r.length > len(r.buf) {
		r.length = len(r.buf)
	}
}

// Get copies the most recent d worth of samples, oldest first. It returns
// nil when the buffer does not yet hold that much audio; the caller is
// expected to retry later rather than treat this as an error.
func (r *Ring) Get(d time.Duration) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int(d.Milliseconds()) * r.rate / 1000
	if n <= 0 || n > r.length {
		return nil
	}

	out := make([]float32, n)

	start := r.pos - n
	if start < 0 {
		start += len(r.buf)
	}

	if start+n <= len(r.buf) {
		copy(out, r.buf[start:start+n])
	} else {
		n0 := len(r.buf) - start
		copy(out, r.buf[start:])
		copy(out[n0:], r.buf[:n-n0])
	}

	return out
}

// Len reports the number of valid samples currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}

// Clear drops all buffered audio without releasing storage. Consumers call
// it when they have fallen too far behind and prefer bounded staleness over
// growing latency.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.length = 0
}
