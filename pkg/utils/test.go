// SPDX-License-Identifier: MIT
// Package utils holds signal generators and small helpers shared by tests.
package utils

import "math"

// GenerateComplexWave returns a 440 Hz tone with two harmonics as int16
// samples at 90% of full scale.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return buffer
}

// GenerateSineWave returns a sine at frequency with the given amplitude in
// [0, 1] relative to int16 full scale.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * amplitude)
	}
	return buffer
}

// Float64s widens int16 samples without rescaling.
func Float64s(in []int16) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
