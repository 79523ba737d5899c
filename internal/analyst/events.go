package analyst

import "time"

// EventKind identifies one detectable anomaly category. The global/
// local prefix names the variance estimator behind the threshold curve
// (incremental vs full-history recompute), not a time window.
type EventKind string

const (
	// Interval-style kinds: timestamps alternate open, close, open, ...
	GlobalDeviation        EventKind = "global_deviation"
	LocalDeviation         EventKind = "local_deviation"
	GlobalSigmoidDeviation EventKind = "global_sigmoid_deviation"
	LocalSigmoidDeviation  EventKind = "local_sigmoid_deviation"

	// Point-style kinds: each timestamp is a single discrete event.
	GlobalRapidDeprecation EventKind = "global_rapid_deprecation"
	LocalRapidDeprecation  EventKind = "local_rapid_deprecation"

	// LongTermTrouble is the interval-style kind emitted by the naive
	// baseline detector.
	LongTermTrouble EventKind = "long_term_trouble"
)

// Kinds lists every event kind in a fixed order.
var Kinds = []EventKind{
	GlobalDeviation,
	LocalDeviation,
	GlobalSigmoidDeviation,
	LocalSigmoidDeviation,
	GlobalRapidDeprecation,
	LocalRapidDeprecation,
	LongTermTrouble,
}

// IsValid reports whether k names a known event kind.
func (k EventKind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Interval reports whether k is interval-style: its timeline entries
// alternate between opening and closing an anomalous interval.
// Point-style kinds record standalone timestamps.
func (k EventKind) Interval() bool {
	switch k {
	case GlobalRapidDeprecation, LocalRapidDeprecation:
		return false
	default:
		return true
	}
}

// Event is one detection: the elapsed session time at which the kind's
// crossing fired.
type Event struct {
	Elapsed time.Duration `json:"elapsed"`
	Kind    EventKind     `json:"kind"`
}

// Timeline accumulates detection timestamps per event kind. Each
// kind's sequence is append-only and monotonically non-decreasing. For
// interval-style kinds the parity of the sequence is state: odd length
// means an anomalous interval is currently open.
type Timeline struct {
	order []EventKind
	times map[EventKind][]time.Duration
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{times: make(map[EventKind][]time.Duration)}
}

// Record appends t to kind's sequence.
func (tl *Timeline) Record(kind EventKind, t time.Duration) {
	if _, seen := tl.times[kind]; !seen {
		tl.order = append(tl.order, kind)
	}
	tl.times[kind] = append(tl.times[kind], t)
}

// Times returns kind's recorded timestamps in order. The returned
// slice is owned by the timeline; callers must not modify it.
func (tl *Timeline) Times(kind EventKind) []time.Duration {
	return tl.times[kind]
}

// Open reports whether kind's sequence has odd length, i.e. an
// interval opened without a matching close.
func (tl *Timeline) Open(kind EventKind) bool {
	return len(tl.times[kind])%2 == 1
}

// Count returns the total number of recorded timestamps across kinds.
func (tl *Timeline) Count() int {
	n := 0
	for _, ts := range tl.times {
		n += len(ts)
	}
	return n
}

// Events flattens the timeline into (elapsed, kind) pairs. Kinds
// appear in first-recorded order with their timestamps in sequence;
// no cross-kind time ordering is guaranteed.
func (tl *Timeline) Events() []Event {
	events := make([]Event, 0, tl.Count())
	for _, kind := range tl.order {
		for _, t := range tl.times[kind] {
			events = append(events, Event{Elapsed: t, Kind: kind})
		}
	}
	return events
}

// PointEventDuration is the rendered length of a point-style event
// when folded into intervals for charts and exports.
const PointEventDuration = time.Second

// DetectionInterval is one rendered anomalous span.
type DetectionInterval struct {
	Kind  EventKind     `json:"kind"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Intervals folds the timeline into rendered spans: interval-style
// timestamps pair up as [open, close], with a trailing unmatched open
// closed at end; point-style timestamps become fixed-length spans of
// PointEventDuration.
func (tl *Timeline) Intervals(end time.Duration) []DetectionInterval {
	var spans []DetectionInterval
	for _, kind := range tl.order {
		ts := tl.times[kind]
		if !kind.Interval() {
			for _, t := range ts {
				spans = append(spans, DetectionInterval{Kind: kind, Start: t, End: t + PointEventDuration})
			}
			continue
		}
		for i := 0; i < len(ts); i += 2 {
			span := DetectionInterval{Kind: kind, Start: ts[i], End: end}
			if i+1 < len(ts) {
				span.End = ts[i+1]
			}
			spans = append(spans, span)
		}
	}
	return spans
}
