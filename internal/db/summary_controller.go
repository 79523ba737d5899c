package db

import (
	"context"
	"log"
	"sync"
	"time"
)

// SummaryController manages the state and execution of the summary
// worker. It provides thread-safe control over whether the worker runs,
// and supports manual triggering from the API.
type SummaryController struct {
	worker        *SummaryWorker
	enabled       bool
	mu            sync.RWMutex
	manualTrigger chan struct{}
	fullHistory   chan struct{}

	// Status tracking
	lastRunAt    time.Time
	lastRunError error
	runCount     int64
	currentRun   *SummaryRunInfo
	lastRun      *SummaryRunInfo
}

// SummaryRunInfo captures details about a single summary worker run.
type SummaryRunInfo struct {
	Trigger    string    `json:"trigger,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// SummaryStatus represents the current state of the summary worker.
type SummaryStatus struct {
	Enabled      bool            `json:"enabled"`
	LastRunAt    time.Time       `json:"last_run_at"`
	LastRunError string          `json:"last_run_error,omitempty"`
	RunCount     int64           `json:"run_count"`
	IsHealthy    bool            `json:"is_healthy"`
	CurrentRun   *SummaryRunInfo `json:"current_run,omitempty"`
	LastRun      *SummaryRunInfo `json:"last_run,omitempty"`
}

// NewSummaryController creates a new controller for the summary worker.
func NewSummaryController(worker *SummaryWorker) *SummaryController {
	return &SummaryController{
		worker:  worker,
		enabled: true, // Default to enabled on boot
		// Buffered channel of size 1 to coalesce multiple rapid trigger
		// requests. If a trigger is already pending, subsequent triggers
		// are skipped.
		manualTrigger: make(chan struct{}, 1),
		fullHistory:   make(chan struct{}, 1),
	}
}

// IsEnabled returns whether the summary worker is currently enabled.
func (sc *SummaryController) IsEnabled() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.enabled
}

// SetEnabled sets whether the summary worker should run.
// If enabling, it also triggers an immediate run.
func (sc *SummaryController) SetEnabled(enabled bool) {
	sc.mu.Lock()
	sc.enabled = enabled
	sc.mu.Unlock()

	if enabled {
		sc.TriggerManualRun()
	}
}

// TriggerManualRun triggers a manual run of the summary worker.
// This is non-blocking and safe to call multiple times.
func (sc *SummaryController) TriggerManualRun() {
	select {
	case sc.manualTrigger <- struct{}{}:
	default:
		log.Printf("Summary worker manual trigger skipped (already pending)")
	}
}

// TriggerFullHistoryRun triggers a full-history run of the summary
// worker. This is non-blocking and safe to call multiple times.
func (sc *SummaryController) TriggerFullHistoryRun() {
	select {
	case sc.fullHistory <- struct{}{}:
	default:
		log.Printf("Summary worker full-history trigger skipped (already pending)")
	}
}

// GetStatus returns the current status of the summary worker.
func (sc *SummaryController) GetStatus() SummaryStatus {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	status := SummaryStatus{
		Enabled:   sc.enabled,
		LastRunAt: sc.lastRunAt,
		RunCount:  sc.runCount,
		IsHealthy: true,
	}

	if sc.lastRunError != nil {
		status.LastRunError = sc.lastRunError.Error()
		status.IsHealthy = false
	}
	if sc.currentRun != nil {
		runCopy := *sc.currentRun
		status.CurrentRun = &runCopy
	}
	if sc.lastRun != nil {
		runCopy := *sc.lastRun
		status.LastRun = &runCopy
	}

	// Consider unhealthy if enabled but hasn't run in 2x the interval.
	if sc.enabled && !sc.lastRunAt.IsZero() {
		if time.Since(sc.lastRunAt) > sc.worker.Interval*2 {
			status.IsHealthy = false
		}
	}

	return status
}

func (sc *SummaryController) startRun(trigger string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.currentRun = &SummaryRunInfo{
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
}

func (sc *SummaryController) finishRun(err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	now := time.Now()
	if sc.currentRun == nil {
		sc.currentRun = &SummaryRunInfo{
			Trigger:   "unknown",
			StartedAt: now,
		}
	}
	sc.currentRun.FinishedAt = now
	sc.currentRun.DurationMs = now.Sub(sc.currentRun.StartedAt).Milliseconds()
	if err != nil {
		sc.currentRun.Error = err.Error()
	}

	sc.lastRun = sc.currentRun
	sc.currentRun = nil

	sc.lastRunAt = now
	sc.lastRunError = err
	sc.runCount++
}

// Run starts the summary worker loop. This should be called in a
// goroutine. It runs periodically based on the worker's Interval, but
// only when enabled, and responds to manual triggers from the API.
func (sc *SummaryController) Run(ctx context.Context) error {
	ticker := time.NewTicker(sc.worker.Interval)
	defer ticker.Stop()
	log.Printf("Summary worker loop started: enabled=%t interval=%s window=%s", sc.IsEnabled(), sc.worker.Interval, sc.worker.Window)

	// Run once immediately on startup if enabled.
	if sc.IsEnabled() {
		sc.startRun("initial")
		err := sc.worker.RunOnce(ctx)
		sc.finishRun(err)
		if err != nil {
			log.Printf("Summary worker initial run error: %v", err)
		}
	}

	for {
		select {
		case <-ticker.C:
			if sc.IsEnabled() {
				sc.startRun("periodic")
				err := sc.worker.RunOnce(ctx)
				sc.finishRun(err)
				if err != nil {
					log.Printf("Summary worker periodic run error: %v", err)
				}
			} else {
				log.Printf("Summary worker skipped (disabled): last_run_at=%v run_count=%d", sc.lastRunAt, sc.runCount)
			}
		case <-sc.manualTrigger:
			if sc.IsEnabled() {
				log.Printf("Summary worker manual run triggered")
				sc.startRun("manual")
				err := sc.worker.RunOnce(ctx)
				sc.finishRun(err)
				if err != nil {
					log.Printf("Summary worker manual run error: %v", err)
				}
			} else {
				log.Printf("Summary worker manual run skipped (disabled)")
			}
		case <-sc.fullHistory:
			if sc.IsEnabled() {
				log.Printf("Summary worker full-history run triggered")
				sc.startRun("full-history")
				err := sc.worker.RunFullHistory(ctx)
				sc.finishRun(err)
				if err != nil {
					log.Printf("Summary worker full-history run error: %v", err)
				}
			} else {
				log.Printf("Summary worker full-history run skipped (disabled)")
			}
		case <-ctx.Done():
			log.Printf("Summary worker terminated")
			return ctx.Err()
		}
	}
}
