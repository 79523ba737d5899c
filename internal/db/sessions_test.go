package db

import (
	"database/sql"
	"testing"
	"time"
)

func testSession(id string, startedAt int64) SessionRecord {
	return SessionRecord{
		SessionID:                     id,
		Source:                        "webcam-0",
		Model:                         "cnn",
		StartedAt:                     startedAt,
		Sensitivity:                   1.9,
		MovingAverageWindow:           5,
		DerivativeMovingAverageWindow: 5,
		WarmupSeconds:                 30,
		NominalFPS:                    30,
		MinimumFPS:                    20,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	database := newTestDB(t)

	rec := testSession("sess-1", 1700000000)
	if err := database.InsertSession(rec); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	got, err := database.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Source != "webcam-0" || got.Model != "cnn" {
		t.Errorf("unexpected session: %+v", got)
	}
	if got.FinishedAt != nil {
		t.Errorf("new session should not be finished")
	}
	if got.Sensitivity != 1.9 || got.MovingAverageWindow != 5 {
		t.Errorf("tuning not preserved: %+v", got)
	}
}

func TestGetSessionMissing(t *testing.T) {
	database := newTestDB(t)

	if _, err := database.GetSession("nope"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestFinishSession(t *testing.T) {
	database := newTestDB(t)

	if err := database.InsertSession(testSession("sess-1", 1700000000)); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	finished := time.Unix(1700000500, 0)
	if err := database.FinishSession("sess-1", finished); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	got, err := database.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.FinishedAt == nil || *got.FinishedAt != finished.Unix() {
		t.Errorf("FinishedAt = %v, want %d", got.FinishedAt, finished.Unix())
	}

	if err := database.FinishSession("missing", finished); err == nil {
		t.Error("finishing a missing session should fail")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	database := newTestDB(t)

	for i, id := range []string{"old", "mid", "new"} {
		if err := database.InsertSession(testSession(id, 1700000000+int64(i)*100)); err != nil {
			t.Fatalf("InsertSession %s: %v", id, err)
		}
	}

	sessions, err := database.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	if sessions[0].SessionID != "new" || sessions[2].SessionID != "old" {
		t.Errorf("sessions not newest-first: %v %v %v", sessions[0].SessionID, sessions[1].SessionID, sessions[2].SessionID)
	}

	limited, err := database.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d sessions, want 2", len(limited))
	}
}

func TestReadingsAndEvents(t *testing.T) {
	database := newTestDB(t)

	if err := database.InsertSession(testSession("sess-1", 1700000000)); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	for i := 0; i < 5; i++ {
		rec := ReadingRecord{
			SessionID:      "sess-1",
			Seq:            int64(i),
			ElapsedSeconds: float64(i) * 0.5,
			Valence:        0.1 * float64(i),
			Arousal:        0.5,
		}
		if err := database.InsertReading(rec); err != nil {
			t.Fatalf("InsertReading %d: %v", i, err)
		}
	}

	// Duplicate (session, seq) must be rejected.
	dup := ReadingRecord{SessionID: "sess-1", Seq: 0, ElapsedSeconds: 0, Valence: 0, Arousal: 0}
	if err := database.InsertReading(dup); err == nil {
		t.Error("duplicate reading should fail")
	}

	all, err := database.ReadingsForSession("sess-1", 0, 0)
	if err != nil {
		t.Fatalf("ReadingsForSession: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d readings, want 5", len(all))
	}
	if all[4].Seq != 4 || all[4].ElapsedSeconds != 2.0 {
		t.Errorf("unexpected last reading: %+v", all[4])
	}

	windowed, err := database.ReadingsForSession("sess-1", 0.5, 1.5)
	if err != nil {
		t.Fatalf("ReadingsForSession windowed: %v", err)
	}
	if len(windowed) != 3 {
		t.Errorf("got %d windowed readings, want 3", len(windowed))
	}

	if _, err := database.InsertEvent("sess-1", "entering_trouble", 42.5); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if _, err := database.InsertEvent("sess-1", "exiting_trouble", 50.0); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	events, err := database.EventsForSession("sess-1")
	if err != nil {
		t.Fatalf("EventsForSession: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != "entering_trouble" || events[0].ElapsedSeconds != 42.5 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
}
