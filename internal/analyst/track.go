package analyst

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// The engine keeps two independent estimator families per signal. The
// cumulative track recomputes its moments over the full history each
// step (O(n), drift-free); the incremental track maintains them with a
// one-pass recurrence (O(1)). Neither is windowed: "local" and
// "global" in event kind names refer to these two algorithms. The
// moving average is the only genuinely windowed statistic.

// movingAverageTrack appends the arithmetic mean of the last W signal
// readings on each update. Short histories average whatever is
// present.
type movingAverageTrack struct {
	window int
	avg    *Buffer
}

func newMovingAverageTrack(window int) movingAverageTrack {
	return movingAverageTrack{window: window, avg: NewBuffer()}
}

func (t *movingAverageTrack) update(signal *Buffer) {
	v, a := affect.Columns(signal.Last(t.window))
	t.avg.Append(affect.Reading{Valence: stat.Mean(v, nil), Arousal: stat.Mean(a, nil)})
}

// cumulativeTrack recomputes mean and population standard deviation
// over the entire signal history on each update.
type cumulativeTrack struct {
	mean *Buffer
	std  *Buffer
}

func newCumulativeTrack() cumulativeTrack {
	return cumulativeTrack{mean: NewBuffer(), std: NewBuffer()}
}

func (t *cumulativeTrack) update(signal *Buffer) {
	v, a := signal.Columns()
	t.mean.Append(affect.Reading{Valence: stat.Mean(v, nil), Arousal: stat.Mean(a, nil)})
	t.std.Append(affect.Reading{Valence: stat.PopStdDev(v, nil), Arousal: stat.PopStdDev(a, nil)})
}

// incrementalTrack maintains mean and variance with a one-pass
// recurrence:
//
//	mean[n] = (mean[n-1]*n + x[n]) / (n+1)
//	variance[n] = (variance[n-1]*n + (x[n]-mean[n])*(x[n]-mean[n-1])) / (n+1)
//
// where n counts the readings consumed before x[n]. While fewer than
// two mean samples exist the variance falls back to the population
// variance of the bootstrap history; this only ever fires on the first
// reading and yields zero, and the bootstrap is always the raw signal
// buffer even for the derivative track. Preserved exactly: downstream
// threshold curves depend on reproducing it.
type incrementalTrack struct {
	mean     *Buffer
	variance *Buffer
	std      *Buffer
}

func newIncrementalTrack() incrementalTrack {
	return incrementalTrack{mean: NewBuffer(), variance: NewBuffer(), std: NewBuffer()}
}

func (t *incrementalTrack) update(x affect.Reading, priorReads int, bootstrap *Buffer) {
	n := float64(priorReads)

	if t.mean.Empty() {
		t.mean.Append(x)
	} else {
		t.mean.Append(t.mean.At(-1).Scale(n).Add(x).DivScale(n + 1))
	}

	if t.mean.Len() < 2 {
		v, a := bootstrap.Columns()
		t.variance.Append(affect.Reading{Valence: stat.PopVariance(v, nil), Arousal: stat.PopVariance(a, nil)})
	} else {
		spread := x.Sub(t.mean.At(-1)).Mul(x.Sub(t.mean.At(-2)))
		t.variance.Append(t.variance.At(-1).Scale(n).Add(spread).DivScale(n + 1))
	}

	last := t.variance.At(-1)
	t.std.Append(affect.Reading{Valence: math.Sqrt(last.Valence), Arousal: math.Sqrt(last.Arousal)})
}

// signalStats bundles every track maintained over one signal.
type signalStats struct {
	signal      *Buffer
	movingAvg   movingAverageTrack
	cumulative  cumulativeTrack
	incremental incrementalTrack
}

func newSignalStats(window int) signalStats {
	return signalStats{
		signal:      NewBuffer(),
		movingAvg:   newMovingAverageTrack(window),
		cumulative:  newCumulativeTrack(),
		incremental: newIncrementalTrack(),
	}
}

// sigmoid squashes x into (-1, 1) with the fixed steepness the
// threshold curves are calibrated against.
func sigmoid(x float64) float64 {
	return 2/(1+math.Exp(-2.2*x)) - 1
}

func sigmoidReading(r affect.Reading) affect.Reading {
	return affect.Reading{Valence: sigmoid(r.Valence), Arousal: sigmoid(r.Arousal)}
}

// thresholdPoint extends a threshold curve by one step:
// mean - std*sensitivity, elementwise.
func thresholdPoint(mean, std affect.Reading, sensitivity float64) affect.Reading {
	return mean.Sub(std.Scale(sensitivity))
}
