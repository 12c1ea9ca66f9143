package transcribe

// endOfSpeech reports whether the trailing lastMS of the buffer has gone
// quiet relative to the buffer as a whole: mean absolute energy of the tail
// below threshold times the mean energy overall. A crude but dependency-free
// voice activity check, good enough to decide when to cut a window.
func endOfSpeech(samples []float32, sampleRate, lastMS int, threshold float32) bool {
	n := len(samples)
	nLast := sampleRate * lastMS / 1000

	if nLast >= n {
		return false
	}

	var energyAll, energyLast float32
	for i, s := range samples {
		if s < 0 {
			s = -s
		}
		energyAll += s
		if i >= n-nLast {
			energyLast += s
		}
	}

	energyAll /= float32(n)
	energyLast /= float32(nLast)

	return energyLast <= threshold*energyAll
}
