package audio

import "math"

// CalculateRMS calculates the root mean square energy of audio samples.
// Useful for detecting audio levels and silence.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// DetectSilence reports whether the samples fall below the given RMS
// energy threshold.
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}

// ApplyGain multiplies each sample by a scalar, clipping to the int16 range.
// Applied to decoded PCM before container synthesis, never to written bytes.
func ApplyGain(samples []int16, gain float64) []int16 {
	if gain == 1.0 || len(samples) == 0 {
		return samples
	}

	scaled := make([]int16, len(samples))
	for i, sample := range samples {
		v := float64(sample) * gain
		switch {
		case v > math.MaxInt16:
			scaled[i] = math.MaxInt16
		case v < math.MinInt16:
			scaled[i] = math.MinInt16
		default:
			scaled[i] = int16(v)
		}
	}
	return scaled
}
