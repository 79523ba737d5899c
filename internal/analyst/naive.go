package analyst

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// DefaultNaiveWindow is the span, in readings, of sustained negative
// valence the baseline treats as trouble.
const DefaultNaiveWindow = 50

// NaiveAnalyst is the baseline detector: a single long_term_trouble
// interval kind driven by the sign of the windowed valence mean. It
// opens an interval when the mean of the last Window readings drops
// below zero after sitting at or above it, and closes on the reverse
// transition. It shares the Detector contract with Analyst so the two
// can be compared over identical streams.
type NaiveAnalyst struct {
	window int
	warmup time.Duration

	signal   *Buffer
	means    *Buffer
	timeline *Timeline
	reads    int
	elapsed  time.Duration
}

// NewNaive constructs the baseline; zero arguments fall back to
// DefaultNaiveWindow and DefaultWarmupDelay.
func NewNaive(window int, warmup time.Duration) *NaiveAnalyst {
	if window == 0 {
		window = DefaultNaiveWindow
	}
	if warmup == 0 {
		warmup = DefaultWarmupDelay
	}
	return &NaiveAnalyst{
		window:   window,
		warmup:   warmup,
		signal:   NewBuffer(),
		means:    NewBuffer(),
		timeline: NewTimeline(),
	}
}

// Ingest consumes one reading, extends the windowed mean and tests the
// sign transition.
func (n *NaiveAnalyst) Ingest(r affect.Reading, elapsed time.Duration) {
	n.signal.Append(r)

	v, a := affect.Columns(n.signal.Last(n.window))
	n.means.Append(affect.Reading{Valence: stat.Mean(v, nil), Arousal: stat.Mean(a, nil)})

	n.reads++
	n.elapsed = elapsed

	if elapsed < n.warmup || n.means.Len() < 2 {
		return
	}
	cur := n.means.At(-1).Valence
	prev := n.means.At(-2).Valence
	if n.timeline.Open(LongTermTrouble) {
		if cur >= 0 && prev < 0 {
			n.timeline.Record(LongTermTrouble, elapsed)
		}
	} else if cur < 0 && prev >= 0 {
		n.timeline.Record(LongTermTrouble, elapsed)
	}
}

// Reads returns the number of readings consumed.
func (n *NaiveAnalyst) Reads() int {
	return n.reads
}

// Elapsed returns the timestamp of the most recent reading.
func (n *NaiveAnalyst) Elapsed() time.Duration {
	return n.elapsed
}

// Timeline exposes the accumulated detections.
func (n *NaiveAnalyst) Timeline() *Timeline {
	return n.timeline
}

// Events returns the flattened timeline.
func (n *NaiveAnalyst) Events() []Event {
	return n.timeline.Events()
}

// Valence returns the raw valence series.
func (n *NaiveAnalyst) Valence() []float64 {
	v, _ := n.signal.Columns()
	return v
}

// Arousal returns the raw arousal series.
func (n *NaiveAnalyst) Arousal() []float64 {
	_, a := n.signal.Columns()
	return a
}

// WindowedMean returns the valence component of the windowed mean
// series the baseline detects on.
func (n *NaiveAnalyst) WindowedMean() []float64 {
	v, _ := n.means.Columns()
	return v
}
