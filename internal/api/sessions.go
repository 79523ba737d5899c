package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
	"github.com/ethogram-labs/affect.monitor/internal/analyst"
	"github.com/ethogram-labs/affect.monitor/internal/boris"
	"github.com/ethogram-labs/affect.monitor/internal/charts"
	"github.com/ethogram-labs/affect.monitor/internal/db"
	"github.com/ethogram-labs/affect.monitor/internal/session"
)

// sessionSubtree routes /api/sessions/{id}[/...].
func (s *Server) sessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "session ID required")
		return
	}

	sess := s.registry.Get(id)
	if sess == nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no such session: %s", id))
		return
	}

	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch sub {
	case "":
		s.sessionInfo(w, r, sess)
	case "finish":
		s.finishSession(w, r, sess)
	case "events":
		s.sessionEvents(w, r, sess)
	case "series":
		s.sessionSeries(w, r, sess)
	case "intervals":
		s.sessionIntervals(w, r, sess)
	case "summaries":
		s.sessionSummaries(w, r, sess)
	case "export/boris":
		s.sessionBorisExport(w, r, sess)
	case "charts/affect", "charts/deviation", "charts/deprecation":
		s.sessionChart(w, r, sess, strings.TrimPrefix(sub, "charts/"))
	default:
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown session endpoint: %s", sub))
	}
}

func (s *Server) sessionInfo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, sess.Info())
}

func (s *Server) finishSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess.Finish()
	if s.persistent {
		if err := s.db.FinishSession(sess.ID, time.Now()); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist finish: %v", err))
			return
		}
	}
	s.writeJSON(w, sess.Info())
}

func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	type eventOut struct {
		Kind           analyst.EventKind `json:"kind"`
		ElapsedSeconds float64           `json:"elapsed_seconds"`
	}

	events := sess.Analyst().Events()
	out := make([]eventOut, 0, len(events))
	for _, e := range events {
		out = append(out, eventOut{Kind: e.Kind, ElapsedSeconds: e.Elapsed.Seconds()})
	}
	if naive := r.URL.Query().Get("naive"); naive == "1" || naive == "true" {
		for _, e := range sess.Naive().Events() {
			out = append(out, eventOut{Kind: e.Kind, ElapsedSeconds: e.Elapsed.Seconds()})
		}
	}
	s.writeJSON(w, out)
}

func (s *Server) sessionSeries(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a := sess.Analyst()
	thresholds := make(map[string][]float64, len(analyst.Kinds))
	for _, kind := range analyst.Kinds {
		if kind == analyst.LongTermTrouble {
			continue
		}
		thresholds[string(kind)] = a.ThresholdCurve(kind)
	}

	s.writeJSON(w, map[string]interface{}{
		"elapsed_seconds":           sess.ElapsedSeconds(),
		"valence":                   a.Valence(),
		"arousal":                   a.Arousal(),
		"moving_average":            a.MovingAverage(),
		"derivative":                a.Derivative(),
		"derivative_moving_average": a.DerivativeMovingAverage(),
		"thresholds":                thresholds,
	})
}

func (s *Server) sessionIntervals(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a := sess.Analyst()
	type intervalOut struct {
		Kind         analyst.EventKind `json:"kind"`
		StartSeconds float64           `json:"start_seconds"`
		EndSeconds   float64           `json:"end_seconds"`
	}

	spans := a.Timeline().Intervals(a.Elapsed())
	out := make([]intervalOut, 0, len(spans))
	for _, span := range spans {
		out = append(out, intervalOut{
			Kind:         span.Kind,
			StartSeconds: span.Start.Seconds(),
			EndSeconds:   span.End.Seconds(),
		})
	}
	s.writeJSON(w, out)
}

func (s *Server) sessionSummaries(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !s.persistent {
		s.writeJSONError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	summaries, err := s.db.SummariesForSession(sess.ID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load summaries: %v", err))
		return
	}
	if summaries == nil {
		summaries = []db.SummaryRecord{}
	}
	s.writeJSON(w, summaries)
}

// sessionBorisExport streams the session's events as a BORIS-importable
// annotation table.
func (s *Server) sessionBorisExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.boris.tsv", sess.ID))
	if err := boris.WriteAnnotations(w, sess.Analyst().Events()); err != nil {
		// Headers are gone; the truncated body is the best we can do.
		fmt.Fprintf(w, "# export error: %v\n", err)
	}
}

func (s *Server) sessionChart(w http.ResponseWriter, r *http.Request, sess *session.Session, chart string) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a := sess.Analyst()
	x := sess.ElapsedSeconds()
	subtitle := fmt.Sprintf("session=%s source=%s model=%s readings=%d", sess.ID, sess.Source, sess.Model, a.Reads())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var err error
	switch chart {
	case "affect":
		err = charts.RenderAffect(w, subtitle, x, a.Valence(), a.Arousal())
	case "deviation":
		err = charts.RenderDeviation(w, subtitle, x, a)
	case "deprecation":
		err = charts.RenderDeprecation(w, subtitle, x, a)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

// ingestRequest is the POST /api/readings payload. Elapsed is stream
// time in seconds, matching the wire format of the UDP path.
type ingestRequest struct {
	SessionID      string  `json:"session_id"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Valence        float64 `json:"valence"`
	Arousal        float64 `json:"arousal"`
}

// ingestReading feeds one reading into a session over HTTP. This is the
// slow-path alternative to the UDP listener, useful for tests and
// offline tools.
func (s *Server) ingestReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	sess := s.registry.Get(req.SessionID)
	if sess == nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no such session: %s", req.SessionID))
		return
	}

	seq := sess.Seq()
	elapsed := time.Duration(req.ElapsedSeconds * float64(time.Second))
	fresh, err := sess.Feed(affect.Reading{Valence: req.Valence, Arousal: req.Arousal}, elapsed)
	if err != nil {
		s.writeJSONError(w, http.StatusConflict, err.Error())
		return
	}

	if s.persistent {
		rec := db.ReadingRecord{
			SessionID:      sess.ID,
			Seq:            seq,
			ElapsedSeconds: req.ElapsedSeconds,
			Valence:        req.Valence,
			Arousal:        req.Arousal,
		}
		if err := s.db.InsertReading(rec); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist reading: %v", err))
			return
		}
		for _, e := range fresh {
			if _, err := s.db.InsertEvent(sess.ID, string(e.Kind), e.Elapsed.Seconds()); err != nil {
				s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist event: %v", err))
				return
			}
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"seq":        seq,
		"new_events": len(fresh),
	})
}

func (s *Server) summaryStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.summaries == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "summary worker not running")
		return
	}
	s.writeJSON(w, s.summaries.GetStatus())
}

func (s *Server) summaryTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.summaries == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "summary worker not running")
		return
	}

	if r.URL.Query().Get("full_history") == "true" {
		s.summaries.TriggerFullHistoryRun()
	} else {
		s.summaries.TriggerManualRun()
	}
	s.writeJSON(w, map[string]string{"status": "triggered"})
}
