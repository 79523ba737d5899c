// Package api exposes sessions, detections, and charts over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ethogram-labs/affect.monitor/internal/config"
	"github.com/ethogram-labs/affect.monitor/internal/db"
	"github.com/ethogram-labs/affect.monitor/internal/session"
	"github.com/ethogram-labs/affect.monitor/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db         *db.DB
	registry   *session.Registry
	tuning     *config.TuningConfig
	summaries  *db.SummaryController
	persistent bool
}

// NewServer wires the API against a registry of live sessions and the
// persistence layer. A nil summary controller disables the worker
// endpoints; persistence is skipped when database is nil.
func NewServer(database *db.DB, registry *session.Registry, tuning *config.TuningConfig, summaries *db.SummaryController) *Server {
	return &Server{
		db:         database,
		registry:   registry,
		tuning:     tuning,
		summaries:  summaries,
		persistent: database != nil,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.health)
	mux.HandleFunc("/api/sessions", s.sessions)
	mux.HandleFunc("/api/sessions/", s.sessionSubtree)
	mux.HandleFunc("/api/readings", s.ingestReading)
	mux.HandleFunc("/api/summary_worker/status", s.summaryStatus)
	mux.HandleFunc("/api/summary_worker/run", s.summaryTrigger)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"sensitivity":                      s.tuning.GetSensitivity(),
		"moving_average_window":            s.tuning.GetMovingAverageWindow(),
		"derivative_moving_average_window": s.tuning.GetDerivativeMovingAverageWindow(),
		"warmup_delay":                     s.tuning.GetWarmupDelay().String(),
		"naive_window":                     s.tuning.GetNaiveWindow(),
		"nominal_fps":                      s.tuning.GetNominalFPS(),
		"minimum_fps":                      s.tuning.GetMinimumFPS(),
		"max_chart_points":                 s.tuning.GetMaxChartPoints(),
	})
}

// createSessionRequest is the POST /api/sessions payload.
type createSessionRequest struct {
	Source string `json:"source"`
	Model  string `json:"model"`
}

// sessions handles GET (list) and POST (create) on /api/sessions.
func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.registry.List())

	case http.MethodPost:
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Source == "" || req.Model == "" {
			s.writeJSONError(w, http.StatusBadRequest, "source and model are required")
			return
		}

		sess := session.New(req.Source, req.Model, s.tuning.AnalystConfig(), s.tuning.GetNaiveWindow())
		s.registry.Add(sess)

		if s.persistent {
			if err := s.db.InsertSession(sessionRecord(sess, s.tuning)); err != nil {
				s.registry.Remove(sess.ID)
				s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist session: %v", err))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sess.Info())

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func sessionRecord(sess *session.Session, tuning *config.TuningConfig) db.SessionRecord {
	return db.SessionRecord{
		SessionID:                     sess.ID,
		Source:                        sess.Source,
		Model:                         sess.Model,
		StartedAt:                     sess.StartedAt.Unix(),
		Sensitivity:                   sess.Tuning.Sensitivity,
		MovingAverageWindow:           sess.Tuning.MovingAverageWindow,
		DerivativeMovingAverageWindow: sess.Tuning.DerivativeMovingAverageWindow,
		WarmupSeconds:                 sess.Tuning.WarmupDelay.Seconds(),
		NominalFPS:                    int(tuning.GetNominalFPS()),
		MinimumFPS:                    int(tuning.GetMinimumFPS()),
	}
}
