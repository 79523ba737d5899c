// Package session ties one analysis run to one input source: a video
// file or a live perception stream. Each session owns a freshly
// constructed detector pair; finishing a source and starting the next
// never reuses detector state.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// Session is one analysis run over one input source. Ingestion is
// serialized internally, so a UDP listener and an HTTP handler can feed
// the same session without external locking.
type Session struct {
	ID        string
	Source    string
	Model     string
	StartedAt time.Time
	Tuning    analyst.Config

	mu       sync.Mutex
	full     *analyst.Analyst
	naive    *analyst.NaiveAnalyst
	seq      int64
	elapsed  []float64
	finished bool
}

// New constructs a session with a fresh Analyst and naive baseline.
func New(source, model string, cfg analyst.Config, naiveWindow int) *Session {
	a := analyst.New(cfg)
	return &Session{
		ID:        uuid.NewString(),
		Source:    source,
		Model:     model,
		StartedAt: time.Now(),
		Tuning:    a.Config(),
		full:      a,
		naive:     analyst.NewNaive(naiveWindow, a.Config().WarmupDelay),
	}
}

// Feed ingests one reading into both detectors and returns the events
// newly recorded by the full analyst during this ingestion, so callers
// can persist them as they appear.
func (s *Session) Feed(r affect.Reading, elapsed time.Duration) ([]analyst.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil, fmt.Errorf("session %s is finished", s.ID)
	}

	before := make(map[analyst.EventKind]int, len(analyst.Kinds))
	for _, kind := range analyst.Kinds {
		before[kind] = len(s.full.Timeline().Times(kind))
	}

	s.full.Ingest(r, elapsed)
	s.naive.Ingest(r, elapsed)
	s.seq++
	s.elapsed = append(s.elapsed, elapsed.Seconds())

	var fresh []analyst.Event
	for _, kind := range analyst.Kinds {
		ts := s.full.Timeline().Times(kind)
		for _, t := range ts[before[kind]:] {
			fresh = append(fresh, analyst.Event{Elapsed: t, Kind: kind})
		}
	}
	return fresh, nil
}

// Finish marks the session closed; further feeds fail.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

// Finished reports whether the session has been closed.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// ElapsedSeconds returns the per-frame stream timestamps fed so far,
// as seconds, aligned with the detector series.
func (s *Session) ElapsedSeconds() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.elapsed))
	copy(out, s.elapsed)
	return out
}

// Seq returns the number of readings fed so far.
func (s *Session) Seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Analyst returns the full detector. Callers must not ingest through it
// directly; Feed owns ingestion.
func (s *Session) Analyst() *analyst.Analyst {
	return s.full
}

// Naive returns the baseline detector.
func (s *Session) Naive() *analyst.NaiveAnalyst {
	return s.naive
}

// Info is the JSON-facing snapshot of a session.
type Info struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
	Readings  int64     `json:"readings"`
	Events    int       `json:"events"`
	Finished  bool      `json:"finished"`
}

// Info returns a snapshot of the session for listings.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID,
		Source:    s.Source,
		Model:     s.Model,
		StartedAt: s.StartedAt,
		Readings:  s.seq,
		Events:    s.full.Timeline().Count(),
		Finished:  s.finished,
	}
}

// Registry owns the live sessions of one process, keyed by session ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session with the given ID, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// BySource returns the most recently started unfinished session for a
// source/model pair, or nil. The UDP ingest path uses this to route
// datagrams without carrying session IDs on the wire.
func (r *Registry) BySource(source, model string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Session
	for _, s := range r.sessions {
		if s.Source != source || s.Model != model || s.Finished() {
			continue
		}
		if best == nil || s.StartedAt.After(best.StartedAt) {
			best = s
		}
	}
	return best
}

// List returns session snapshots sorted by start time, newest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.After(infos[j].StartedAt)
	})
	return infos
}

// Remove drops a session from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
