// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visaudio/internal/dsp"
)

func TestApplyVolumeGate(t *testing.T) {
	tests := []struct {
		name      string
		volume    float64
		threshold float64
		wantGated bool
	}{
		{"below threshold", 0.0005, 0.001, true},
		{"silence", 0, 0.001, true},
		{"at threshold passes", 0.001, 0.001, false},
		{"above threshold", 0.5, 0.001, false},
		{"zero threshold never gates", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := dsp.FeatureVector{Volume: tt.volume, Bins: []float64{0.1, 0.2, 0.3}}
			out, gated := ApplyVolumeGate(in, tt.threshold, 3)

			assert.Equal(t, tt.wantGated, gated)
			assert.Equal(t, tt.volume, out.Volume)
			if tt.wantGated {
				assert.Equal(t, []float64{0, 0, 0}, out.Bins)
			} else {
				assert.Equal(t, []float64{0.1, 0.2, 0.3}, out.Bins)
			}
		})
	}
}

func TestApplyVolumeGateUsesConfiguredLength(t *testing.T) {
	// A short DSP result still yields the configured number of zero bins.
	out, gated := ApplyVolumeGate(dsp.FeatureVector{Volume: 0, Bins: []float64{1}}, 1, 24)
	assert.True(t, gated)
	assert.Len(t, out.Bins, 24)
}

func TestApplyVolumeGateDoesNotAliasInput(t *testing.T) {
	bins := []float64{0.4, 0.5}
	ApplyVolumeGate(dsp.FeatureVector{Volume: 0, Bins: bins}, 1, 2)
	assert.Equal(t, []float64{0.4, 0.5}, bins)
}

func TestFrameLimiter(t *testing.T) {
	l := NewFrameLimiter(100)
	assert.Equal(t, 100.0, l.FPS())

	ctx := context.Background()
	start := time.Now()
	for range 6 {
		assert.NoError(t, l.Wait(ctx))
	}
	// First call is free; the next five are spaced 10ms apart.
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestFrameLimiterUnlimited(t *testing.T) {
	l := NewFrameLimiter(0)
	assert.Equal(t, 0.0, l.FPS())

	start := time.Now()
	for range 1000 {
		assert.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestFrameLimiterCancelled(t *testing.T) {
	l := NewFrameLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, l.Wait(ctx))
	cancel()
	assert.Error(t, l.Wait(ctx))
}
