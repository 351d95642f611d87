// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"visaudio/internal/log"
	"visaudio/pkg/bitint"
)

// WindowFunc selects the window applied before the FFT.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// int16 full scale, used to bring samples into [-1, 1).
const fullScale = 32768.0

// Lowest frequency covered by the first bin.
const minBandHz = 20.0

// SpectrumConfig describes a Spectrum engine.
type SpectrumConfig struct {
	SampleRate      float64
	FramesPerBuffer int
	BinCount        int
	Window          WindowFunc
}

// Spectrum computes RMS volume and mel-spaced band magnitudes with a real FFT.
type Spectrum struct {
	fft      *fourier.FFT
	fftSize  int
	bands    []band
	binCount int

	// Reused between calls.
	input     []float64
	window    []float64
	fftOutput []complex128
	magnitude []float64
}

// NewSpectrum validates cfg and pre-allocates the FFT workspace. The FFT
// size is FramesPerBuffer rounded up to a power of two; shorter inputs are
// zero-padded.
func NewSpectrum(cfg SpectrumConfig) (*Spectrum, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.SampleRate)
	}
	if cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("frames per buffer must be positive, got %d", cfg.FramesPerBuffer)
	}
	if cfg.BinCount <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d", cfg.BinCount)
	}

	fftSize := bitint.NextPowerOfTwo(cfg.FramesPerBuffer)
	magnitudeSize := fftSize/2 + 1

	coeffs := make([]float64, fftSize)
	applyWindow(coeffs, cfg.Window)

	log.Debugf("DSP: spectrum size=%d rate=%.1f bins=%d window=%d", fftSize, cfg.SampleRate, cfg.BinCount, cfg.Window)

	return &Spectrum{
		fft:       fourier.NewFFT(fftSize),
		fftSize:   fftSize,
		bands:     melBands(cfg.BinCount, magnitudeSize, cfg.SampleRate, fftSize),
		binCount:  cfg.BinCount,
		input:     make([]float64, fftSize),
		window:    coeffs,
		fftOutput: make([]complex128, magnitudeSize),
		magnitude: make([]float64, magnitudeSize),
	}, nil
}

// Update implements Engine. The returned Bins slice is freshly allocated and
// owned by the caller.
func (s *Spectrum) Update(samples []float64) (FeatureVector, error) {
	if len(samples) == 0 {
		return FeatureVector{}, ErrEmptyInput
	}

	var sumSquares float64
	for i, v := range samples {
		x := v / fullScale
		sumSquares += x * x
		if i < s.fftSize {
			s.input[i] = x * s.window[i]
		}
	}
	for i := len(samples); i < s.fftSize; i++ {
		s.input[i] = 0
	}

	s.fft.Coefficients(s.fftOutput, s.input)
	norm := 2.0 / float64(s.fftSize)
	for i, c := range s.fftOutput {
		s.magnitude[i] = cmplx.Abs(c) * norm
	}

	bins := make([]float64, s.binCount)
	for i, b := range s.bands {
		var energy float64
		for k := b.lo; k < b.hi; k++ {
			energy += s.magnitude[k] * s.magnitude[k]
		}
		if n := b.hi - b.lo; n > 0 {
			bins[i] = math.Sqrt(energy / float64(n))
		}
	}

	return FeatureVector{
		Volume: math.Sqrt(sumSquares / float64(len(samples))),
		Bins:   bins,
	}, nil
}

// FFTSize returns the number of FFT points.
func (s *Spectrum) FFTSize() int { return s.fftSize }

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names yield Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum window funcs scale in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("DSP: unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
