package audio

import (
	"encoding/binary"
	"math"
)

// downmixInterleaved reduces interleaved multi-channel frames to mono by
// arithmetic mean. Averaging (rather than RMS) preserves phase and bounds
// output amplitude by the input amplitude.
func downmixInterleaved(in []float32, channels, frames int) []float32 {
	out := make([]float32, frames)
	if channels == 1 {
		copy(out, in[:frames])
		return out
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resampleLinear converts mono samples from srcRate to dstRate by linear
// interpolation between the two nearest source samples. Cheap and
// deterministic; recognition quality does not need a better filter.
func resampleLinear(in []float32, srcRate, dstRate uint32) []float32 {
	if srcRate == dstRate || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	ratio := float64(srcRate) / float64(dstRate)
	n := int(float64(len(in)) / ratio)
	if n < 1 {
		n = 1
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		i0 := int(pos)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		// in[i0] + frac*delta rather than the two-product blend: when the
		// neighbors are equal the delta is exactly zero, so a constant
		// signal survives float32 rounding at any rate ratio.
		frac := float32(pos - float64(i0))
		out[i] = in[i0] + frac*(in[i0+1]-in[i0])
	}
	return out
}

// pcm16ToFloat32 decodes little-endian signed 16-bit PCM bytes to float32
// samples in [-1, 1).
func pcm16ToFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// pcmFloatToFloat32 decodes little-endian IEEE 32-bit float PCM bytes.
func pcmFloatToFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// decodePCM converts a raw byte buffer in the given format to float32
// samples. Only 16-bit integer and 32-bit float PCM are produced by the
// endpoints in this package.
func decodePCM(data []byte, bitsPerSample uint32) []float32 {
	switch bitsPerSample {
	case 16:
		return pcm16ToFloat32(data)
	default:
		return pcmFloatToFloat32(data)
	}
}
