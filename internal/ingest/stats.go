package ingest

import (
	"sync"

	"github.com/ethogram-labs/affect.monitor/internal/monitoring"
)

// StatsInterface provides datagram statistics management for the
// listener and replay sources.
type StatsInterface interface {
	AddDatagram(bytes int)
	AddMalformed()
	AddDropped()
	LogStats()
}

// DatagramStats counts listener traffic for periodic logging.
type DatagramStats struct {
	mu        sync.Mutex
	datagrams int64
	bytes     int64
	malformed int64
	dropped   int64
}

// NewDatagramStats returns zeroed counters.
func NewDatagramStats() *DatagramStats {
	return &DatagramStats{}
}

// AddDatagram records one received datagram of the given size.
func (s *DatagramStats) AddDatagram(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datagrams++
	s.bytes += int64(bytes)
}

// AddMalformed records one datagram that failed to parse.
func (s *DatagramStats) AddMalformed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformed++
}

// AddDropped records one reading the handler rejected.
func (s *DatagramStats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped++
}

// Snapshot returns the current counter values.
func (s *DatagramStats) Snapshot() (datagrams, bytes, malformed, dropped int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datagrams, s.bytes, s.malformed, s.dropped
}

// LogStats writes one line of counters through the package logger.
func (s *DatagramStats) LogStats() {
	datagrams, bytes, malformed, dropped := s.Snapshot()
	monitoring.Logf("ingest stats: datagrams=%d bytes=%d malformed=%d dropped=%d",
		datagrams, bytes, malformed, dropped)
}

// noopStats is a StatsInterface implementation that does nothing. It is
// used as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddDatagram(bytes int) {}
func (noopStats) AddMalformed()         {}
func (noopStats) AddDropped()           {}
func (noopStats) LogStats()             {}
