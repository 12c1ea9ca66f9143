package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDownmixInterleavedMono(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}
	got := downmixInterleaved(input, 1, len(input))

	if len(got) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(got))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Fatalf("expected element %d to be %f, got %f", i, input[i], got[i])
		}
	}

	if &got[0] == &input[0] {
		t.Fatal("expected mono result to be copied into a new slice")
	}
}

func TestDownmixInterleavedStereo(t *testing.T) {
	frames := 4
	input := []float32{
		0.0, 1.0,
		0.5, 0.5,
		1.0, 0.0,
		-0.5, 0.5,
	}

	expected := []float32{0.5, 0.5, 0.5, 0.0}

	got := downmixInterleaved(input, 2, frames)
	if len(got) != len(expected) {
		t.Fatalf("expected %d frames, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got[i])
		}
	}
}

func TestDownmixEqualChannelsIsIdentity(t *testing.T) {
	// Mean of N equal values is the value itself.
	const v = float32(0.37)
	frames := 3
	input := make([]float32, frames*6)
	for i := range input {
		input[i] = v
	}

	got := downmixInterleaved(input, 6, frames)
	for i := range got {
		if got[i] != v {
			t.Fatalf("frame %d: expected %f, got %f", i, v, got[i])
		}
	}
}

func TestResampleDCSignalIsConstant(t *testing.T) {
	// Interpolating between equal neighbors must be a no-op — including at
	// non-integer rate ratios like 44.1 kHz, where the fractional weights
	// are nonzero on most output samples.
	const v = float32(0.37)
	cases := []struct {
		srcRate uint32
		in      int
		out     int
	}{
		{48000, 4800, 1600},
		{44100, 441, 160},
	}

	for _, tc := range cases {
		input := make([]float32, tc.in)
		for i := range input {
			input[i] = v
		}

		got := resampleLinear(input, tc.srcRate, 16000)
		if len(got) != tc.out {
			t.Fatalf("%d Hz: expected %d output samples, got %d", tc.srcRate, tc.out, len(got))
		}
		for i := range got {
			if got[i] != v {
				t.Fatalf("%d Hz: sample %d: expected %f, got %f", tc.srcRate, i, v, got[i])
			}
		}
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	input := []float32{0.1, -0.2, 0.3}
	got := resampleLinear(input, 16000, 16000)

	if len(got) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(got))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, input[i], got[i])
		}
	}
	if &got[0] == &input[0] {
		t.Fatal("expected same-rate result to be a copy")
	}
}

func TestResampleUpsampleLength(t *testing.T) {
	input := make([]float32, 160)
	got := resampleLinear(input, 16000, 48000)
	if len(got) != 480 {
		t.Fatalf("expected 480 samples, got %d", len(got))
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], uint16(0))
	binary.LittleEndian.PutUint16(data[2:], uint16(16384))
	binary.LittleEndian.PutUint16(data[4:], 0x8000) // -32768
	binary.LittleEndian.PutUint16(data[6:], 0x7FFF) // 32767

	got := pcm16ToFloat32(data)
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestDecodePCMFloat(t *testing.T) {
	want := []float32{0.5, -0.25}
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(want[0]))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(want[1]))

	got := decodePCM(data, 32)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}
