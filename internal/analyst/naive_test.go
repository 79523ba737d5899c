package analyst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// TestNaiveDefaults tests the zero-argument fallbacks.
func TestNaiveDefaults(t *testing.T) {
	t.Parallel()

	n := NewNaive(0, 0)
	assert.Equal(t, DefaultNaiveWindow, n.window)
	assert.Equal(t, DefaultWarmupDelay, n.warmup)
}

// TestNaiveAlternation tests the fixed-threshold parity property: a
// square wave crossing zero N times records exactly N alternating
// timestamps.
func TestNaiveAlternation(t *testing.T) {
	t.Parallel()

	// Window of one makes the windowed mean the signal itself, and a
	// nanosecond warm-up keeps every second-scale reading eligible.
	n := NewNaive(1, time.Nanosecond)

	const cycles = 4
	sec := 1
	for c := 0; c < cycles; c++ {
		for i := 0; i < 10; i++ {
			n.Ingest(affect.Reading{Valence: 0.5}, time.Duration(sec)*time.Second)
			sec++
		}
		for i := 0; i < 10; i++ {
			n.Ingest(affect.Reading{Valence: -0.5}, time.Duration(sec)*time.Second)
			sec++
		}
	}
	// Final recovery closes the last interval.
	n.Ingest(affect.Reading{Valence: 0.5}, time.Duration(sec)*time.Second)

	times := n.Timeline().Times(LongTermTrouble)
	require.Len(t, times, 2*cycles, "each dip must open once and close once: %v", times)
	for i := 1; i < len(times); i++ {
		assert.Less(t, times[i-1], times[i])
	}
	assert.False(t, n.Timeline().Open(LongTermTrouble))
}

// TestNaiveWindowedMean tests that detection runs on the windowed mean
// rather than the instantaneous signal.
func TestNaiveWindowedMean(t *testing.T) {
	t.Parallel()

	n := NewNaive(4, time.Nanosecond)

	// One negative spike inside a positive stream never drags the
	// 4-reading mean below zero.
	values := []float64{0.5, 0.5, 0.5, -0.8, 0.5, 0.5, 0.5}
	for i, v := range values {
		n.Ingest(affect.Reading{Valence: v}, time.Duration(i+1)*time.Second)
	}

	assert.Empty(t, n.Timeline().Times(LongTermTrouble))
	means := n.WindowedMean()
	require.Len(t, means, len(values))
	assert.InDelta(t, 0.175, means[3], 1e-12, "mean of {0.5,0.5,0.5,-0.8}")
}

// TestNaiveWarmupSuppression tests that sign transitions inside the
// warm-up window are not recorded.
func TestNaiveWarmupSuppression(t *testing.T) {
	t.Parallel()

	n := NewNaive(1, DefaultWarmupDelay)
	n.Ingest(affect.Reading{Valence: 0.5}, 10*time.Second)
	n.Ingest(affect.Reading{Valence: -0.5}, 11*time.Second)
	n.Ingest(affect.Reading{Valence: 0.5}, 12*time.Second)
	assert.Empty(t, n.Events())

	// The same transition at the warm-up boundary is recorded.
	n.Ingest(affect.Reading{Valence: 0.5}, 29*time.Second)
	n.Ingest(affect.Reading{Valence: -0.5}, 30*time.Second)
	times := n.Timeline().Times(LongTermTrouble)
	require.Len(t, times, 1)
	assert.Equal(t, 30*time.Second, times[0])
}

// TestNaiveDetectorContract tests the shared accessor surface used by
// comparison runs.
func TestNaiveDetectorContract(t *testing.T) {
	t.Parallel()

	var d Detector = NewNaive(0, 0)
	d.Ingest(affect.Reading{Valence: 0.1, Arousal: 0.2}, time.Second)
	d.Ingest(affect.Reading{Valence: -0.1, Arousal: -0.2}, 2*time.Second)

	assert.Equal(t, []float64{0.1, -0.1}, d.Valence())
	assert.Equal(t, []float64{0.2, -0.2}, d.Arousal())
	assert.Empty(t, d.Events())
}
