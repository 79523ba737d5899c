package analyst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventKindClassification tests the interval/point split and
// validity checks.
func TestEventKindClassification(t *testing.T) {
	t.Parallel()

	interval := []EventKind{GlobalDeviation, LocalDeviation, GlobalSigmoidDeviation, LocalSigmoidDeviation, LongTermTrouble}
	for _, kind := range interval {
		assert.True(t, kind.Interval(), "%s should be interval-style", kind)
	}
	point := []EventKind{GlobalRapidDeprecation, LocalRapidDeprecation}
	for _, kind := range point {
		assert.False(t, kind.Interval(), "%s should be point-style", kind)
	}

	for _, kind := range Kinds {
		assert.True(t, kind.IsValid())
	}
	assert.False(t, EventKind("bogus").IsValid())
	assert.False(t, EventKind("").IsValid())
}

// TestTimelineParity tests that Open tracks odd sequence length.
func TestTimelineParity(t *testing.T) {
	t.Parallel()

	tl := NewTimeline()
	assert.False(t, tl.Open(GlobalDeviation))

	tl.Record(GlobalDeviation, 31*time.Second)
	assert.True(t, tl.Open(GlobalDeviation))

	tl.Record(GlobalDeviation, 45*time.Second)
	assert.False(t, tl.Open(GlobalDeviation))

	tl.Record(GlobalDeviation, 60*time.Second)
	assert.True(t, tl.Open(GlobalDeviation))

	// Parity is tracked per kind.
	assert.False(t, tl.Open(LocalDeviation))
}

// TestTimelineEventsOrder tests that flattening preserves
// first-recorded kind order with per-kind timestamps in sequence.
func TestTimelineEventsOrder(t *testing.T) {
	t.Parallel()

	tl := NewTimeline()
	tl.Record(LocalDeviation, 31*time.Second)
	tl.Record(GlobalRapidDeprecation, 33*time.Second)
	tl.Record(LocalDeviation, 40*time.Second)

	events := tl.Events()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Elapsed: 31 * time.Second, Kind: LocalDeviation}, events[0])
	assert.Equal(t, Event{Elapsed: 40 * time.Second, Kind: LocalDeviation}, events[1])
	assert.Equal(t, Event{Elapsed: 33 * time.Second, Kind: GlobalRapidDeprecation}, events[2])
	assert.Equal(t, 3, tl.Count())
}

// TestTimelineIntervals tests folding timestamps into rendered spans.
func TestTimelineIntervals(t *testing.T) {
	t.Parallel()

	t.Run("interval kinds pair open and close", func(t *testing.T) {
		tl := NewTimeline()
		tl.Record(GlobalDeviation, 31*time.Second)
		tl.Record(GlobalDeviation, 45*time.Second)
		tl.Record(GlobalDeviation, 50*time.Second)
		tl.Record(GlobalDeviation, 55*time.Second)

		spans := tl.Intervals(90 * time.Second)
		require.Len(t, spans, 2)
		assert.Equal(t, DetectionInterval{Kind: GlobalDeviation, Start: 31 * time.Second, End: 45 * time.Second}, spans[0])
		assert.Equal(t, DetectionInterval{Kind: GlobalDeviation, Start: 50 * time.Second, End: 55 * time.Second}, spans[1])
	})

	t.Run("trailing open closes at stream end", func(t *testing.T) {
		tl := NewTimeline()
		tl.Record(LocalDeviation, 40*time.Second)

		spans := tl.Intervals(72 * time.Second)
		require.Len(t, spans, 1)
		assert.Equal(t, 72*time.Second, spans[0].End)
	})

	t.Run("point kinds become fixed-length spans", func(t *testing.T) {
		tl := NewTimeline()
		tl.Record(LocalRapidDeprecation, 35*time.Second)
		tl.Record(LocalRapidDeprecation, 42*time.Second)

		spans := tl.Intervals(60 * time.Second)
		require.Len(t, spans, 2)
		assert.Equal(t, 35*time.Second+PointEventDuration, spans[0].End)
		assert.Equal(t, 42*time.Second, spans[1].Start)
	})
}
