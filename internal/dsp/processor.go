// SPDX-License-Identifier: MIT
// Package dsp turns a block of raw samples into a FeatureVector: an overall
// volume plus a fixed number of spectral bins.
package dsp

import (
	"errors"
	"slices"

	"visaudio/internal/config"
)

// ErrEmptyInput is returned when Update is called with no samples.
var ErrEmptyInput = errors.New("dsp: empty sample vector")

// FeatureVector is the per-iteration output of an Engine.
type FeatureVector struct {
	Volume float64   `json:"volume"`
	Bins   []float64 `json:"bins"`
}

// Clone returns a deep copy of v.
func (v FeatureVector) Clone() FeatureVector {
	return FeatureVector{Volume: v.Volume, Bins: slices.Clone(v.Bins)}
}

// Engine transforms a sample vector into features. Samples are in int16
// units (-32768..32767) stored as float64. Implementations need not be safe
// for concurrent use; the processing loop owns its engine exclusively.
type Engine interface {
	Update(samples []float64) (FeatureVector, error)
}

// Factory builds an Engine for a configuration snapshot. It is called on
// startup and again after every reload.
type Factory func(snap config.Snapshot) (Engine, error)

// NewSpectrumFactory returns a Factory producing Spectrum engines with the
// given window function.
func NewSpectrumFactory(windowType WindowFunc) Factory {
	return func(snap config.Snapshot) (Engine, error) {
		s, err := NewSpectrum(SpectrumConfig{
			SampleRate:      snap.SampleRate,
			FramesPerBuffer: snap.FramesPerBuffer,
			BinCount:        snap.FFTBinCount,
			Window:          windowType,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
