// SPDX-License-Identifier: MIT
package engine

import "visaudio/internal/dsp"

// ApplyVolumeGate fades out quiet input: when fv.Volume is below threshold
// the bins are replaced with binCount zeros and the volume is kept as is.
// Otherwise fv is returned untouched. The bool reports whether the gate closed.
func ApplyVolumeGate(fv dsp.FeatureVector, threshold float64, binCount int) (dsp.FeatureVector, bool) {
	if fv.Volume < threshold {
		fv.Bins = make([]float64, binCount)
		return fv, true
	}
	return fv, false
}
