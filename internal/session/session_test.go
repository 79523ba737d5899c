package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// feedStep drives a session with a flat-then-negative valence signal
// that reliably produces deviation events after warm-up.
func feedStep(t *testing.T, s *Session) []analyst.Event {
	t.Helper()

	var all []analyst.Event
	for sec := 1; sec <= 40; sec++ {
		fresh, err := s.Feed(affect.Reading{Valence: 0}, time.Duration(sec)*time.Second)
		require.NoError(t, err)
		all = append(all, fresh...)
	}
	for sec := 41; sec <= 60; sec++ {
		fresh, err := s.Feed(affect.Reading{Valence: -0.9}, time.Duration(sec)*time.Second)
		require.NoError(t, err)
		all = append(all, fresh...)
	}
	return all
}

// TestSessionFeedReturnsFreshEvents tests that Feed surfaces newly
// detected events exactly once, matching the analyst's own timeline.
func TestSessionFeedReturnsFreshEvents(t *testing.T) {
	t.Parallel()

	s := New("clip.mp4", "cnn", analyst.DefaultConfig(), 0)
	all := feedStep(t, s)

	require.NotEmpty(t, all, "step signal should produce events after warm-up")
	assert.Equal(t, s.Analyst().Timeline().Count(), len(all))
	assert.Equal(t, int64(60), s.Seq())
}

func TestSessionFinish(t *testing.T) {
	t.Parallel()

	s := New("clip.mp4", "cnn", analyst.DefaultConfig(), 0)
	_, err := s.Feed(affect.Reading{Valence: 0.1}, time.Second)
	require.NoError(t, err)

	s.Finish()
	assert.True(t, s.Finished())

	_, err = s.Feed(affect.Reading{Valence: 0.1}, 2*time.Second)
	assert.Error(t, err)
}

func TestSessionInfo(t *testing.T) {
	t.Parallel()

	s := New("cam0", "rnn", analyst.Config{Sensitivity: 2.5}, 25)
	_, err := s.Feed(affect.Reading{Valence: 0.3, Arousal: 0.1}, time.Second)
	require.NoError(t, err)

	info := s.Info()
	assert.Equal(t, s.ID, info.ID)
	assert.Equal(t, "cam0", info.Source)
	assert.Equal(t, "rnn", info.Model)
	assert.Equal(t, int64(1), info.Readings)
	assert.False(t, info.Finished)
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := New("cam0", "cnn", analyst.DefaultConfig(), 0)
	b := New("cam0", "rnn", analyst.DefaultConfig(), 0)
	r.Add(a)
	r.Add(b)

	assert.Equal(t, a, r.Get(a.ID))
	assert.Nil(t, r.Get("missing"))
	assert.Equal(t, a, r.BySource("cam0", "cnn"))
	assert.Equal(t, b, r.BySource("cam0", "rnn"))
	assert.Nil(t, r.BySource("cam1", "cnn"))

	assert.Len(t, r.List(), 2)

	a.Finish()
	assert.Nil(t, r.BySource("cam0", "cnn"), "finished sessions are not routed to")

	r.Remove(b.ID)
	assert.Nil(t, r.Get(b.ID))
	assert.Len(t, r.List(), 1)
}

func TestRegistryBySourcePrefersNewest(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	old := New("cam0", "cnn", analyst.DefaultConfig(), 0)
	old.StartedAt = time.Now().Add(-time.Hour)
	r.Add(old)

	fresh := New("cam0", "cnn", analyst.DefaultConfig(), 0)
	r.Add(fresh)

	assert.Equal(t, fresh, r.BySource("cam0", "cnn"))
}

func TestDetectorKindValidity(t *testing.T) {
	t.Parallel()

	assert.True(t, DetectorFull.IsValid())
	assert.True(t, DetectorNaive.IsValid())
	assert.True(t, DetectorDual.IsValid())
	assert.False(t, DetectorKind("hybrid").IsValid())
	assert.Equal(t, "dual", DetectorDual.String())
}

// TestComparisonRunDual tests that both detectors see the same stream
// and the stats reflect their separate timelines.
func TestComparisonRunDual(t *testing.T) {
	t.Parallel()

	run := NewComparisonRun(DefaultComparisonConfig())
	for sec := 1; sec <= 40; sec++ {
		run.Ingest(affect.Reading{Valence: 0.1}, time.Duration(sec)*time.Second)
	}
	for sec := 41; sec <= 120; sec++ {
		run.Ingest(affect.Reading{Valence: -0.8}, time.Duration(sec)*time.Second)
	}

	stats := run.Stats()
	assert.Equal(t, int64(120), stats.ReadingsProcessed)
	assert.Equal(t, 120*time.Second, stats.LastElapsed)
	assert.NotEmpty(t, stats.FullEventCounts, "full analyst should detect the step")
	assert.NotEmpty(t, stats.NaiveEventCounts, "naive baseline should detect sustained negative valence")

	res := run.Result()
	assert.Equal(t, DetectorDual, res.Active)
	assert.NotEmpty(t, res.FullEvents)
	assert.NotEmpty(t, res.NaiveEvents)
}

func TestComparisonRunSingleDetector(t *testing.T) {
	t.Parallel()

	full := NewComparisonRun(ComparisonConfig{Active: DetectorFull, Analyst: analyst.DefaultConfig()})
	assert.NotNil(t, full.Full())
	assert.Nil(t, full.Naive())

	naive := NewComparisonRun(ComparisonConfig{Active: DetectorNaive, Analyst: analyst.DefaultConfig()})
	assert.Nil(t, naive.Full())
	assert.NotNil(t, naive.Naive())

	// Unknown kinds fall back to dual.
	fallback := NewComparisonRun(ComparisonConfig{Active: DetectorKind("bogus"), Analyst: analyst.DefaultConfig()})
	assert.NotNil(t, fallback.Full())
	assert.NotNil(t, fallback.Naive())
}
