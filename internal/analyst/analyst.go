// Package analyst implements streaming anomaly detection over a
// two-dimensional affect signal. An Analyst consumes one reading per
// processed frame together with its elapsed session time, maintains
// running and windowed moments of the signal and of its first
// difference, derives adaptive threshold curves from those moments,
// and converts threshold crossings of the valence component into a
// timeline of interval and point events.
package analyst

import (
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// Default tuning. Sensitivity multiplies the standard deviation when
// positioning threshold curves below the running mean.
const (
	DefaultSensitivity                   = 1.9
	DefaultMovingAverageWindow           = 5
	DefaultDerivativeMovingAverageWindow = 5
	DefaultWarmupDelay                   = 30 * time.Second
)

// Config fixes a detector's tuning at construction so differently
// tuned instances can run side by side in one process.
type Config struct {
	// Sensitivity is the standard-deviation multiplier for all
	// threshold curves.
	Sensitivity float64

	// MovingAverageWindow is the window, in readings, of the raw
	// signal's moving average (the data line for deviation kinds).
	MovingAverageWindow int

	// DerivativeMovingAverageWindow is the window of the derivative
	// signal's moving average (the data line for rapid-deprecation
	// kinds).
	DerivativeMovingAverageWindow int

	// WarmupDelay suppresses event emission until this much signal
	// time has elapsed. Statistics are still updated during warm-up.
	WarmupDelay time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Sensitivity:                   DefaultSensitivity,
		MovingAverageWindow:           DefaultMovingAverageWindow,
		DerivativeMovingAverageWindow: DefaultDerivativeMovingAverageWindow,
		WarmupDelay:                   DefaultWarmupDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.Sensitivity == 0 {
		c.Sensitivity = DefaultSensitivity
	}
	if c.MovingAverageWindow < 1 {
		c.MovingAverageWindow = DefaultMovingAverageWindow
	}
	if c.DerivativeMovingAverageWindow < 1 {
		c.DerivativeMovingAverageWindow = DefaultDerivativeMovingAverageWindow
	}
	if c.WarmupDelay == 0 {
		c.WarmupDelay = DefaultWarmupDelay
	}
	return c
}

// thresholdCurves holds one control line per event kind, extended by
// one point per ingested reading. All six derive from the cumulative
// mean; the global/local split is the std estimator feeding them.
type thresholdCurves struct {
	devGlobal   *Buffer
	devLocal    *Buffer
	sigGlobal   *Buffer
	sigLocal    *Buffer
	derivGlobal *Buffer
	derivLocal  *Buffer
}

func newThresholdCurves() thresholdCurves {
	return thresholdCurves{
		devGlobal:   NewBuffer(),
		devLocal:    NewBuffer(),
		sigGlobal:   NewBuffer(),
		sigLocal:    NewBuffer(),
		derivGlobal: NewBuffer(),
		derivLocal:  NewBuffer(),
	}
}

// crossingRule binds one event kind to the pair of curves whose
// valence components are compared each step. Interval rules also run
// the reversed closing test, gated on an open interval.
type crossingRule struct {
	kind     EventKind
	data     *Buffer
	control  *Buffer
	interval bool
}

// Analyst is the streaming engine. Not safe for concurrent ingestion;
// the caller serializes readings per instance. Memory grows with
// session length, so unbounded live streams need externally bounded
// sessions.
type Analyst struct {
	cfg Config

	raw        signalStats
	derivative signalStats
	curves     thresholdCurves
	rules      []crossingRule

	timeline *Timeline
	reads    int
	elapsed  time.Duration
}

// New constructs an Analyst with cfg; zero-valued fields fall back to
// defaults.
func New(cfg Config) *Analyst {
	cfg = cfg.withDefaults()
	a := &Analyst{
		cfg:        cfg,
		raw:        newSignalStats(cfg.MovingAverageWindow),
		derivative: newSignalStats(cfg.DerivativeMovingAverageWindow),
		curves:     newThresholdCurves(),
		timeline:   NewTimeline(),
	}
	a.rules = []crossingRule{
		{GlobalDeviation, a.raw.movingAvg.avg, a.curves.devGlobal, true},
		{LocalDeviation, a.raw.movingAvg.avg, a.curves.devLocal, true},
		{GlobalSigmoidDeviation, a.raw.movingAvg.avg, a.curves.sigGlobal, true},
		{LocalSigmoidDeviation, a.raw.movingAvg.avg, a.curves.sigLocal, true},
		{GlobalRapidDeprecation, a.derivative.movingAvg.avg, a.curves.derivGlobal, false},
		{LocalRapidDeprecation, a.derivative.movingAvg.avg, a.curves.derivLocal, false},
	}
	return a
}

// Config returns the tuning the Analyst was constructed with.
func (a *Analyst) Config() Config {
	return a.cfg
}

// Ingest consumes one reading at the given elapsed session time:
// every statistics track is refreshed, each threshold curve gains one
// point, and crossing detection runs against the extended curves.
// Runs to completion synchronously.
func (a *Analyst) Ingest(r affect.Reading, elapsed time.Duration) {
	a.raw.signal.Append(r)
	a.raw.movingAvg.update(a.raw.signal)
	a.raw.cumulative.update(a.raw.signal)
	a.raw.incremental.update(r, a.reads, a.raw.signal)

	d := a.deriveStep()
	a.derivative.signal.Append(d)
	a.derivative.movingAvg.update(a.derivative.signal)
	a.derivative.cumulative.update(a.derivative.signal)
	// The variance bootstrap reads the raw history for both tracks.
	a.derivative.incremental.update(d, a.reads, a.raw.signal)

	a.extendCurves()

	a.reads++
	a.elapsed = elapsed
	a.detect(elapsed)
}

// deriveStep returns the first difference of the raw signal, or a zero
// reading while fewer than two readings exist.
func (a *Analyst) deriveStep() affect.Reading {
	if a.raw.signal.Len() < 2 {
		return affect.Reading{}
	}
	return a.raw.signal.At(-1).Sub(a.raw.signal.At(-2))
}

// extendCurves appends the newest point to each threshold curve. The
// mean term is always the cumulative-recompute mean; only the std
// source differs between the global and local variants.
func (a *Analyst) extendCurves() {
	mean := a.raw.cumulative.mean.At(-1)
	devGlobal := thresholdPoint(mean, a.raw.incremental.std.At(-1), a.cfg.Sensitivity)
	devLocal := thresholdPoint(mean, a.raw.cumulative.std.At(-1), a.cfg.Sensitivity)
	a.curves.devGlobal.Append(devGlobal)
	a.curves.devLocal.Append(devLocal)
	a.curves.sigGlobal.Append(sigmoidReading(devGlobal))
	a.curves.sigLocal.Append(sigmoidReading(devLocal))

	derivMean := a.derivative.cumulative.mean.At(-1)
	a.curves.derivGlobal.Append(thresholdPoint(derivMean, a.derivative.incremental.std.At(-1), a.cfg.Sensitivity))
	a.curves.derivLocal.Append(thresholdPoint(derivMean, a.derivative.cumulative.std.At(-1), a.cfg.Sensitivity))
}

// detect runs the crossing table once event emission is out of
// warm-up. Opening tests run for every kind first, then the reversed
// closing tests for interval kinds, so a close recorded this step sees
// parity as left by this step's opens.
func (a *Analyst) detect(elapsed time.Duration) {
	if elapsed < a.cfg.WarmupDelay {
		return
	}

	for _, rule := range a.rules {
		if crossedFromAbove(rule.data, rule.control) {
			a.timeline.Record(rule.kind, elapsed)
		}
	}

	for _, rule := range a.rules {
		if !rule.interval || !a.timeline.Open(rule.kind) {
			continue
		}
		if crossedFromAbove(rule.control, rule.data) {
			a.timeline.Record(rule.kind, elapsed)
		}
	}
}

// crossedFromAbove reports whether the data curve crossed the control
// curve from above at the newest step: strictly above one step ago and
// strictly below now, compared on the valence component. Fewer than
// two points on either curve never detects.
func crossedFromAbove(data, control *Buffer) bool {
	if data.Len() < 2 || control.Len() < 2 {
		return false
	}
	return data.At(-1).Valence < control.At(-1).Valence &&
		data.At(-2).Valence > control.At(-2).Valence
}

// Reads returns the number of readings consumed.
func (a *Analyst) Reads() int {
	return a.reads
}

// Elapsed returns the timestamp of the most recent reading.
func (a *Analyst) Elapsed() time.Duration {
	return a.elapsed
}

// Timeline exposes the accumulated detections.
func (a *Analyst) Timeline() *Timeline {
	return a.timeline
}

// Events returns the timeline flattened into (elapsed, kind) pairs.
func (a *Analyst) Events() []Event {
	return a.timeline.Events()
}

// Valence returns the raw valence series, one value per reading.
func (a *Analyst) Valence() []float64 {
	v, _ := a.raw.signal.Columns()
	return v
}

// Arousal returns the raw arousal series, one value per reading.
func (a *Analyst) Arousal() []float64 {
	_, ar := a.raw.signal.Columns()
	return ar
}

// MovingAverage returns the valence component of the raw signal's
// moving average, the data line for deviation kinds.
func (a *Analyst) MovingAverage() []float64 {
	v, _ := a.raw.movingAvg.avg.Columns()
	return v
}

// Derivative returns the valence component of the first-difference
// signal.
func (a *Analyst) Derivative() []float64 {
	v, _ := a.derivative.signal.Columns()
	return v
}

// DerivativeMovingAverage returns the valence component of the
// derivative's moving average, the data line for rapid-deprecation
// kinds.
func (a *Analyst) DerivativeMovingAverage() []float64 {
	v, _ := a.derivative.movingAvg.avg.Columns()
	return v
}

// ThresholdCurve returns the valence component of the control line for
// kind, one point per ingested reading, or nil for kinds without a
// curve.
func (a *Analyst) ThresholdCurve(kind EventKind) []float64 {
	var curve *Buffer
	switch kind {
	case GlobalDeviation:
		curve = a.curves.devGlobal
	case LocalDeviation:
		curve = a.curves.devLocal
	case GlobalSigmoidDeviation:
		curve = a.curves.sigGlobal
	case LocalSigmoidDeviation:
		curve = a.curves.sigLocal
	case GlobalRapidDeprecation:
		curve = a.curves.derivGlobal
	case LocalRapidDeprecation:
		curve = a.curves.derivLocal
	default:
		return nil
	}
	v, _ := curve.Columns()
	return v
}
