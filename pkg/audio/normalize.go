package audio

// Peak returns the maximum absolute sample value in samples,
// or 0 for an empty slice.
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Normalize scales samples in place so the peak absolute value becomes 1.0.
// A slice whose peak is exactly zero is left untouched, so pure silence never
// divides by zero.
func Normalize(samples []float32) {
	peak := Peak(samples)
	if peak == 0 {
		return
	}
	inv := 1 / peak
	for i := range samples {
		samples[i] *= inv
	}
}
