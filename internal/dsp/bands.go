// SPDX-License-Identifier: MIT
package dsp

import "math"

// band is a half-open range [lo, hi) of FFT magnitude indices.
type band struct {
	lo, hi int
}

func hzToMel(hz float64) float64  { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melBands splits the magnitude spectrum into count bands whose edges are
// evenly spaced on the mel scale between minBandHz and Nyquist. Every band
// covers at least one FFT index so low bands never go silent just because
// the resolution is coarse.
func melBands(count, magnitudeSize int, sampleRate float64, fftSize int) []band {
	nyquist := sampleRate / 2
	lowMel := hzToMel(minBandHz)
	highMel := hzToMel(nyquist)
	binHz := sampleRate / float64(fftSize)

	edges := make([]int, count+1)
	for i := range edges {
		hz := melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(count))
		edges[i] = int(math.Round(hz / binHz))
	}

	bands := make([]band, count)
	prev := 0
	for i := range bands {
		lo := max(edges[i], prev)
		hi := max(edges[i+1], lo+1)
		lo = min(lo, magnitudeSize-1)
		hi = min(hi, magnitudeSize)
		if hi <= lo {
			// Ran out of resolution: reuse the top index.
			lo, hi = magnitudeSize-1, magnitudeSize
		}
		bands[i] = band{lo: lo, hi: hi}
		prev = hi
	}
	return bands
}
