package session

import (
	"sync"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// DetectorKind identifies which detector(s) a comparison run feeds.
type DetectorKind string

const (
	// DetectorFull runs only the statistical analyst.
	DetectorFull DetectorKind = "analyst"

	// DetectorNaive runs only the windowed-mean baseline.
	DetectorNaive DetectorKind = "naive"

	// DetectorDual runs both in parallel for comparison.
	DetectorDual DetectorKind = "dual"
)

// String returns the string representation of the detector kind.
func (k DetectorKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is a known valid value.
func (k DetectorKind) IsValid() bool {
	switch k {
	case DetectorFull, DetectorNaive, DetectorDual:
		return true
	default:
		return false
	}
}

// ComparisonConfig holds configuration for a comparison run.
type ComparisonConfig struct {
	Active      DetectorKind   `json:"active"`
	Analyst     analyst.Config `json:"-"`
	NaiveWindow int            `json:"naive_window"`
}

// DefaultComparisonConfig returns a dual run with standard tuning.
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		Active:      DetectorDual,
		Analyst:     analyst.DefaultConfig(),
		NaiveWindow: analyst.DefaultNaiveWindow,
	}
}

// ComparisonRun feeds one stream to the full analyst and the naive
// baseline so their timelines can be compared over identical input.
type ComparisonRun struct {
	config ComparisonConfig

	full  *analyst.Analyst
	naive *analyst.NaiveAnalyst

	stats ComparisonStats
	mu    sync.RWMutex
}

// ComparisonStats tracks per-detector progress for a run.
type ComparisonStats struct {
	ReadingsProcessed int64                     `json:"readings_processed"`
	LastElapsed       time.Duration             `json:"last_elapsed"`
	FullEventCounts   map[analyst.EventKind]int `json:"full_event_counts"`
	NaiveEventCounts  map[analyst.EventKind]int `json:"naive_event_counts"`
}

// NewComparisonRun creates a comparison run with the given configuration.
func NewComparisonRun(config ComparisonConfig) *ComparisonRun {
	if !config.Active.IsValid() {
		config.Active = DetectorDual
	}
	r := &ComparisonRun{config: config}
	if config.Active != DetectorNaive {
		r.full = analyst.New(config.Analyst)
	}
	if config.Active != DetectorFull {
		r.naive = analyst.NewNaive(config.NaiveWindow, config.Analyst.WarmupDelay)
	}
	return r
}

// Ingest feeds one reading to the active detector(s).
func (r *ComparisonRun) Ingest(reading affect.Reading, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full != nil {
		r.full.Ingest(reading, elapsed)
	}
	if r.naive != nil {
		r.naive.Ingest(reading, elapsed)
	}
	r.stats.ReadingsProcessed++
	r.stats.LastElapsed = elapsed
}

// Stats returns a snapshot of run progress with per-kind event counts.
func (r *ComparisonRun) Stats() ComparisonStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := r.stats
	stats.FullEventCounts = make(map[analyst.EventKind]int)
	stats.NaiveEventCounts = make(map[analyst.EventKind]int)
	if r.full != nil {
		for _, kind := range analyst.Kinds {
			if n := len(r.full.Timeline().Times(kind)); n > 0 {
				stats.FullEventCounts[kind] = n
			}
		}
	}
	if r.naive != nil {
		if n := len(r.naive.Timeline().Times(analyst.LongTermTrouble)); n > 0 {
			stats.NaiveEventCounts[analyst.LongTermTrouble] = n
		}
	}
	return stats
}

// Full returns the statistical analyst, or nil when not active.
func (r *ComparisonRun) Full() *analyst.Analyst {
	return r.full
}

// Naive returns the baseline detector, or nil when not active.
func (r *ComparisonRun) Naive() *analyst.NaiveAnalyst {
	return r.naive
}

// Result is the JSON-facing outcome of a finished comparison run.
type Result struct {
	Active      DetectorKind    `json:"active"`
	Stats       ComparisonStats `json:"stats"`
	FullEvents  []analyst.Event `json:"full_events,omitempty"`
	NaiveEvents []analyst.Event `json:"naive_events,omitempty"`
}

// Result collects both timelines into an exportable form.
func (r *ComparisonRun) Result() Result {
	res := Result{Active: r.config.Active, Stats: r.Stats()}
	if r.full != nil {
		res.FullEvents = r.full.Events()
	}
	if r.naive != nil {
		res.NaiveEvents = r.naive.Events()
	}
	return res
}
