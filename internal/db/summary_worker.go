package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	mstats "github.com/montanaflynn/stats"
)

// SummaryWorker periodically aggregates recent readings and events into
// per-session summary windows. Designed to run every few minutes and
// process the last Window (with overlap so re-runs update in place).
type SummaryWorker struct {
	DB       *DB
	Interval time.Duration // how often to run (e.g., 5m)
	Window   time.Duration // lookback window (e.g., 10m)
	StopChan chan struct{}
}

func NewSummaryWorker(db *DB, interval, window time.Duration) *SummaryWorker {
	return &SummaryWorker{
		DB:       db,
		Interval: interval,
		Window:   window,
		StopChan: make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine.
func (w *SummaryWorker) Start() {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.RunOnce(context.Background()); err != nil {
					log.Printf("summary worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *SummaryWorker) Stop() {
	close(w.StopChan)
}

// RunOnce aggregates the last w.Window and upserts summaries.
func (w *SummaryWorker) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	return w.RunRange(ctx, now.Add(-w.Window).Unix(), now.Unix())
}

// RunFullHistory aggregates over the full recorded session range.
func (w *SummaryWorker) RunFullHistory(ctx context.Context) error {
	var start, end sql.NullInt64
	err := w.DB.QueryRowContext(ctx, `
		SELECT MIN(s.started_at_unix), MAX(s.started_at_unix + CAST(r.elapsed_seconds AS INTEGER))
		FROM sessions s JOIN readings r ON r.session_id = s.session_id`).Scan(&start, &end)
	if err != nil {
		return err
	}
	if !start.Valid || !end.Valid {
		log.Printf("Summary worker full-history run skipped (no readings)")
		return nil
	}
	return w.RunRange(ctx, start.Int64, end.Int64+1)
}

// RunRange aggregates readings whose wall-clock time falls in
// [start, end] unix seconds, one summary row per (session, window).
// Overlapping rows from earlier runs are deleted first so re-runs
// refresh rather than duplicate.
func (w *SummaryWorker) RunRange(ctx context.Context, start, end int64) error {
	windowSec := int64(w.Window / time.Second)
	if windowSec <= 0 {
		return fmt.Errorf("summary window must be positive, got %s", w.Window)
	}
	// Align to window boundaries so repeated runs land on the same rows.
	alignedStart := (start / windowSec) * windowSec

	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM summaries
		WHERE (window_start_unix BETWEEN ? AND ?)
		   OR (window_end_unix BETWEEN ? AND ?)
		   OR (window_start_unix <= ? AND window_end_unix >= ?)`,
		alignedStart, end, alignedStart, end, alignedStart, end)
	if err != nil {
		return fmt.Errorf("failed to delete overlapping summaries: %w", err)
	}
	if deleted, _ := result.RowsAffected(); deleted > 0 {
		log.Printf("Summary worker: deleted %d overlapping summaries in range [%d, %d]", deleted, alignedStart, end)
	}

	// Readings carry stream-relative time; the session start anchors
	// them to the wall clock.
	rows, err := tx.QueryContext(ctx, `
		SELECT r.session_id, s.started_at_unix + r.elapsed_seconds, r.valence, r.arousal
		FROM readings r JOIN sessions s ON s.session_id = r.session_id
		WHERE s.started_at_unix + r.elapsed_seconds BETWEEN ? AND ?
		ORDER BY r.session_id, r.seq`, alignedStart, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	type bucket struct {
		valence []float64
		arousal []float64
	}
	type bucketKey struct {
		sessionID   string
		windowStart int64
	}
	buckets := make(map[bucketKey]*bucket)
	for rows.Next() {
		var sessionID string
		var ts, valence, arousal float64
		if err := rows.Scan(&sessionID, &ts, &valence, &arousal); err != nil {
			return err
		}
		key := bucketKey{sessionID, (int64(ts) / windowSec) * windowSec}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.valence = append(b.valence, valence)
		b.arousal = append(b.arousal, arousal)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO summaries (
			session_id, window_start_unix, window_end_unix, reading_count,
			valence_mean, valence_min, valence_max, valence_median, valence_p10,
			arousal_mean, event_count, created_at_unix, updated_at_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UNIXEPOCH(), UNIXEPOCH())`)
	if err != nil {
		return err
	}
	defer upsert.Close()

	for key, b := range buckets {
		windowEnd := key.windowStart + windowSec

		valenceMean, err := mstats.Mean(b.valence)
		if err != nil {
			return fmt.Errorf("valence mean: %w", err)
		}
		valenceMin, err := mstats.Min(b.valence)
		if err != nil {
			return fmt.Errorf("valence min: %w", err)
		}
		valenceMax, err := mstats.Max(b.valence)
		if err != nil {
			return fmt.Errorf("valence max: %w", err)
		}
		valenceMedian, err := mstats.Median(b.valence)
		if err != nil {
			return fmt.Errorf("valence median: %w", err)
		}
		valenceP10, err := mstats.Percentile(b.valence, 10)
		if err != nil {
			// Percentile needs more than one sample; fall back to the
			// minimum for tiny windows.
			valenceP10 = valenceMin
		}
		arousalMean, err := mstats.Mean(b.arousal)
		if err != nil {
			return fmt.Errorf("arousal mean: %w", err)
		}

		var eventCount int64
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM events e JOIN sessions s ON s.session_id = e.session_id
			WHERE e.session_id = ?
			  AND s.started_at_unix + e.elapsed_seconds >= ?
			  AND s.started_at_unix + e.elapsed_seconds < ?`,
			key.sessionID, key.windowStart, windowEnd).Scan(&eventCount)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}

		if _, err := upsert.ExecContext(ctx,
			key.sessionID, key.windowStart, windowEnd, len(b.valence),
			valenceMean, valenceMin, valenceMax, valenceMedian, valenceP10,
			arousalMean, eventCount); err != nil {
			return fmt.Errorf("insert summary %s/%d: %w", key.sessionID, key.windowStart, err)
		}
	}

	return tx.Commit()
}
