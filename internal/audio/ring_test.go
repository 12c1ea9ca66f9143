package audio

import (
	"testing"
	"time"
)

func TestRingGetBeforeAnyPush(t *testing.T) {
	r := NewRing(time.Second, 16000)

	if got := r.Get(500 * time.Millisecond); got != nil {
		t.Fatalf("expected nil before any push, got %d samples", len(got))
	}
}

func TestRingPushThenGetReturnsOrder(t *testing.T) {
	r := NewRing(time.Second, 1000)

	r.Push([]float32{1, 2, 3})
	r.Push([]float32{4, 5})

	got := r.Get(5 * time.Millisecond) // 5 samples @1kHz
	want := []float32{1, 2, 3, 4, 5}

	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestRingGetInsufficientReturnsEmpty(t *testing.T) {
	r := NewRing(time.Second, 1000)
	r.Push(make([]float32, 100))

	if got := r.Get(200 * time.Millisecond); got != nil {
		t.Fatalf("expected nil for 200 samples when only 100 valid, got %d", len(got))
	}

	// Exactly the valid amount is fine.
	if got := r.Get(100 * time.Millisecond); len(got) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(got))
	}
}

func TestRingWraparoundKeepsMostRecent(t *testing.T) {
	// Capacity 1s @16kHz = 16000 samples.
	r := NewRing(time.Second, 16000)

	r.Push(make([]float32, 8000)) // zeros, will be half-evicted below

	ones := make([]float32, 16000)
	for i := range ones {
		ones[i] = 1
	}
	r.Push(ones[:8000]) // buffer now full: 8000 zeros + 8000 ones
	r.Push(ones[:8000]) // evicts the zeros

	got := r.Get(time.Second)
	if len(got) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(got))
	}
	for i, v := range got {
		if v != 1 {
			t.Fatalf("sample %d: expected 1 after eviction, got %f", i, v)
		}
	}
}

func TestRingScenarioZerosThenOnes(t *testing.T) {
	r := NewRing(time.Second, 16000)

	r.Push(make([]float32, 8000))
	ones := make([]float32, 8000)
	for i := range ones {
		ones[i] = 1
	}
	r.Push(ones)

	got := r.Get(1000 * time.Millisecond)
	if len(got) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(got))
	}
	for i := 0; i < 8000; i++ {
		if got[i] != 0 {
			t.Fatalf("sample %d: expected 0, got %f", i, got[i])
		}
	}
	for i := 8000; i < 16000; i++ {
		if got[i] != 1 {
			t.Fatalf("sample %d: expected 1, got %f", i, got[i])
		}
	}
}

func TestRingOversizePushKeepsTail(t *testing.T) {
	r := NewRing(10*time.Millisecond, 1000) // capacity 10

	big := make([]float32, 25)
	for i := range big {
		big[i] = float32(i)
	}
	r.Push(big)

	got := r.Get(10 * time.Millisecond)
	if len(got) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(got))
	}
	for i := range got {
		if got[i] != float32(15+i) {
			t.Fatalf("sample %d: expected %f, got %f", i, float32(15+i), got[i])
		}
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(time.Second, 1000)
	r.Push(make([]float32, 500))

	r.Clear()

	if r.Len() != 0 {
		t.Fatalf("expected empty ring after Clear, got %d", r.Len())
	}
	if got := r.Get(100 * time.Millisecond); got != nil {
		t.Fatalf("expected nil after Clear, got %d samples", len(got))
	}

	// Ring remains usable.
	r.Push([]float32{7, 8})
	got := r.Get(2 * time.Millisecond)
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Fatalf("unexpected samples after Clear+Push: %v", got)
	}
}

func TestRingConcurrentPushGet(t *testing.T) {
	r := NewRing(100*time.Millisecond, 16000)

	done := make(chan struct{})
	go func() {
		defer close(done)
		chunk := make([]float32, 160)
		for i := 0; i < 200; i++ {
			r.Push(chunk)
		}
	}()

	// Concurrent reads must never observe a torn or out-of-range result.
	for i := 0; i < 200; i++ {
		got := r.Get(50 * time.Millisecond)
		if got != nil && len(got) != 800 {
			t.Fatalf("expected nil or exactly 800 samples, got %d", len(got))
		}
	}
	<-done
}
