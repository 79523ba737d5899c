package analyst

import (
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// Detector is the contract shared by the full engine and the naive
// baseline: push one reading at a time, read back the accumulated
// events and raw series. Implementations are single-threaded; callers
// serialize ingestion per instance. The shared contract lets a harness
// run several detectors side by side over the same stream.
type Detector interface {
	Ingest(r affect.Reading, elapsed time.Duration)
	Events() []Event
	Timeline() *Timeline
	Valence() []float64
	Arousal() []float64
}

var (
	_ Detector = (*Analyst)(nil)
	_ Detector = (*NaiveAnalyst)(nil)
)
