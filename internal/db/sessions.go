package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionRecord is a persisted monitoring session together with the
// tuning it was started with.
type SessionRecord struct {
	SessionID                     string   `json:"session_id"`
	Source                        string   `json:"source"`
	Model                         string   `json:"model"`
	StartedAt                     int64    `json:"started_at_unix"`
	FinishedAt                    *int64   `json:"finished_at_unix,omitempty"`
	Sensitivity                   float64  `json:"sensitivity"`
	MovingAverageWindow           int      `json:"moving_average_window"`
	DerivativeMovingAverageWindow int      `json:"derivative_moving_average_window"`
	WarmupSeconds                 float64  `json:"warmup_seconds"`
	NominalFPS                    int      `json:"nominal_fps"`
	MinimumFPS                    int      `json:"minimum_fps"`
}

// ReadingRecord is one persisted frame of the affect stream.
type ReadingRecord struct {
	SessionID      string  `json:"session_id"`
	Seq            int64   `json:"seq"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Valence        float64 `json:"valence"`
	Arousal        float64 `json:"arousal"`
}

// EventRecord is one persisted timeline event.
type EventRecord struct {
	EventID        int64   `json:"event_id"`
	SessionID      string  `json:"session_id"`
	Kind           string  `json:"kind"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// SummaryRecord aggregates the readings and events of one wall-clock
// window across sessions. Written by the summary worker.
type SummaryRecord struct {
	SessionID      string  `json:"session_id"`
	WindowStart    int64   `json:"window_start_unix"`
	WindowEnd      int64   `json:"window_end_unix"`
	ReadingCount   int64   `json:"reading_count"`
	ValenceMean    float64 `json:"valence_mean"`
	ValenceMin     float64 `json:"valence_min"`
	ValenceMax     float64 `json:"valence_max"`
	ValenceMedian  float64 `json:"valence_median"`
	ValenceP10     float64 `json:"valence_p10"`
	ArousalMean    float64 `json:"arousal_mean"`
	EventCount     int64   `json:"event_count"`
	CreatedAtUnix  int64   `json:"created_at_unix"`
	UpdatedAtUnix  int64   `json:"updated_at_unix"`
}

// InsertSession stores a newly started session.
func (db *DB) InsertSession(rec SessionRecord) error {
	_, err := db.Exec(`
		INSERT INTO sessions (
			session_id, source, model, started_at_unix, finished_at_unix,
			sensitivity, moving_average_window, derivative_moving_average_window,
			warmup_seconds, nominal_fps, minimum_fps
		) VALUES (?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Source, rec.Model, rec.StartedAt,
		rec.Sensitivity, rec.MovingAverageWindow, rec.DerivativeMovingAverageWindow,
		rec.WarmupSeconds, rec.NominalFPS, rec.MinimumFPS)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

// FinishSession marks a session finished at the given wall-clock time.
func (db *DB) FinishSession(sessionID string, finishedAt time.Time) error {
	res, err := db.Exec(`UPDATE sessions SET finished_at_unix = ? WHERE session_id = ?`,
		finishedAt.Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: no such session", sessionID)
	}
	return nil
}

// GetSession loads one session by ID. Returns sql.ErrNoRows when the
// session does not exist.
func (db *DB) GetSession(sessionID string) (SessionRecord, error) {
	var rec SessionRecord
	err := db.QueryRow(`
		SELECT session_id, source, model, started_at_unix, finished_at_unix,
		       sensitivity, moving_average_window, derivative_moving_average_window,
		       warmup_seconds, nominal_fps, minimum_fps
		FROM sessions WHERE session_id = ?`, sessionID).Scan(
		&rec.SessionID, &rec.Source, &rec.Model, &rec.StartedAt, &rec.FinishedAt,
		&rec.Sensitivity, &rec.MovingAverageWindow, &rec.DerivativeMovingAverageWindow,
		&rec.WarmupSeconds, &rec.NominalFPS, &rec.MinimumFPS)
	if err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// ListSessions returns sessions newest-first, capped at limit
// (0 means no cap).
func (db *DB) ListSessions(limit int) ([]SessionRecord, error) {
	query := `
		SELECT session_id, source, model, started_at_unix, finished_at_unix,
		       sensitivity, moving_average_window, derivative_moving_average_window,
		       warmup_seconds, nominal_fps, minimum_fps
		FROM sessions ORDER BY started_at_unix DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(
			&rec.SessionID, &rec.Source, &rec.Model, &rec.StartedAt, &rec.FinishedAt,
			&rec.Sensitivity, &rec.MovingAverageWindow, &rec.DerivativeMovingAverageWindow,
			&rec.WarmupSeconds, &rec.NominalFPS, &rec.MinimumFPS); err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// InsertReading stores one frame. The (session, seq) pair is the
// primary key, so replayed duplicates fail rather than silently
// overwrite.
func (db *DB) InsertReading(rec ReadingRecord) error {
	_, err := db.Exec(`
		INSERT INTO readings (session_id, seq, elapsed_seconds, valence, arousal)
		VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Seq, rec.ElapsedSeconds, rec.Valence, rec.Arousal)
	if err != nil {
		return fmt.Errorf("insert reading %s/%d: %w", rec.SessionID, rec.Seq, err)
	}
	return nil
}

// InsertEvent stores one timeline event and returns its row ID.
func (db *DB) InsertEvent(sessionID, kind string, elapsedSeconds float64) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO events (session_id, kind, elapsed_seconds)
		VALUES (?, ?, ?)`, sessionID, kind, elapsedSeconds)
	if err != nil {
		return 0, fmt.Errorf("insert event %s/%s: %w", sessionID, kind, err)
	}
	return res.LastInsertId()
}

// ReadingsForSession returns a session's readings in stream order,
// restricted to [fromSeconds, toSeconds] when toSeconds > 0.
func (db *DB) ReadingsForSession(sessionID string, fromSeconds, toSeconds float64) ([]ReadingRecord, error) {
	query := `
		SELECT session_id, seq, elapsed_seconds, valence, arousal
		FROM readings WHERE session_id = ? AND elapsed_seconds >= ?`
	args := []interface{}{sessionID, fromSeconds}
	if toSeconds > 0 {
		query += " AND elapsed_seconds <= ?"
		args = append(args, toSeconds)
	}
	query += " ORDER BY seq"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("readings for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var readings []ReadingRecord
	for rows.Next() {
		var rec ReadingRecord
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.ElapsedSeconds, &rec.Valence, &rec.Arousal); err != nil {
			return nil, err
		}
		readings = append(readings, rec)
	}
	return readings, rows.Err()
}

// EventsForSession returns a session's events in stream order.
func (db *DB) EventsForSession(sessionID string) ([]EventRecord, error) {
	rows, err := db.Query(`
		SELECT event_id, session_id, kind, elapsed_seconds
		FROM events WHERE session_id = ?
		ORDER BY elapsed_seconds, event_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("events for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(&rec.EventID, &rec.SessionID, &rec.Kind, &rec.ElapsedSeconds); err != nil {
			return nil, err
		}
		events = append(events, rec)
	}
	return events, rows.Err()
}

// SummariesForSession returns a session's summary windows in time
// order.
func (db *DB) SummariesForSession(sessionID string) ([]SummaryRecord, error) {
	rows, err := db.Query(`
		SELECT session_id, window_start_unix, window_end_unix, reading_count,
		       valence_mean, valence_min, valence_max, valence_median, valence_p10,
		       arousal_mean, event_count, created_at_unix, updated_at_unix
		FROM summaries WHERE session_id = ?
		ORDER BY window_start_unix`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("summaries for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var summaries []SummaryRecord
	for rows.Next() {
		var rec SummaryRecord
		if err := rows.Scan(
			&rec.SessionID, &rec.WindowStart, &rec.WindowEnd, &rec.ReadingCount,
			&rec.ValenceMean, &rec.ValenceMin, &rec.ValenceMax, &rec.ValenceMedian, &rec.ValenceP10,
			&rec.ArousalMean, &rec.EventCount, &rec.CreatedAtUnix, &rec.UpdatedAtUnix); err != nil {
			return nil, err
		}
		summaries = append(summaries, rec)
	}
	return summaries, rows.Err()
}
