// Package server exposes the timer controller over a local JSON API
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
	"github.com/barsamuebles/cronos/store"
	"github.com/barsamuebles/cronos/timer"
)

type (
	// StartRequest is the optional body of a start command.
	StartRequest struct {
		Checkpoint int64 `json:"checkpoint"`
	}

	// FinalizeRequest is the optional body of a finalize command. A nil At
	// finalizes at the time the request is handled.
	FinalizeRequest struct {
		At *time.Time `json:"at,omitempty"`
	}

	// ErrorResponse is the body of every non-2xx response.
	ErrorResponse struct {
		Error string `json:"error"`
	}

	// Health is returned by GET /health.
	Health struct {
		Version string `json:"version"`
		Active  int    `json:"active"`
	}
)

// Server routes HTTP requests to a timer.Controller.
type Server struct {
	ctrl   *timer.Controller
	logger *slog.Logger
	clock  timeutil.Clock
}

// New returns a Server for ctrl.
func New(ctrl *timer.Controller, logger *slog.Logger, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}

	return &Server{
		ctrl:   ctrl,
		logger: logger,
		clock:  clock,
	}
}

type errorHandler func(w http.ResponseWriter, r *http.Request) error

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadJobID), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, timer.ErrTimerFinished),
		errors.Is(err, store.ErrRecordFinished):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) wrap(h errorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		code := statusFor(err)

		if code >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
		}

		writeJSON(w, code, ErrorResponse{Error: err.Error()})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errBadBody.Wrap(err)
	}

	return nil
}

func jobID(r *http.Request) (int64, error) {
	raw := r.PathValue("job")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadJobID.Fmt(raw)
	}

	return id, nil
}

func timerKey(r *http.Request) (models.TimerKey, error) {
	id, err := jobID(r)
	if err != nil {
		return models.TimerKey{}, err
	}

	return models.NewKey(id, r.PathValue("stage")), nil
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", s.wrap(s.health))
	mux.Handle("GET /timers", s.wrap(s.list))
	mux.Handle("GET /timers/{job}/{stage}", s.wrap(s.status))
	mux.Handle("POST /timers/{job}/{stage}/start", s.wrap(s.start))
	mux.Handle("POST /timers/{job}/{stage}/pause", s.wrap(s.pause))
	mux.Handle("POST /timers/{job}/{stage}/reset", s.wrap(s.reset))
	mux.Handle("POST /timers/{job}/{stage}/finalize", s.wrap(s.finalize))
	mux.Handle("POST /jobs/{job}/stop", s.wrap(s.stopJob))
	mux.Handle("GET /jobs/{job}/records", s.wrap(s.records))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, Health{
		Version: config.Version,
		Active:  len(s.ctrl.ActiveKeys()),
	})

	return nil
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) error {
	statuses := s.ctrl.Statuses()
	if statuses == nil {
		statuses = []models.Status{}
	}

	writeJSON(w, http.StatusOK, statuses)

	return nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) error {
	key, err := timerKey(r)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status(key.JobID, key.Stage))

	return nil
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) error {
	key, err := timerKey(r)
	if err != nil {
		return err
	}

	var req StartRequest

	if err = decodeBody(r, &req); err != nil {
		return err
	}

	if req.Checkpoint < 0 {
		return errBadBody
	}

	err = s.ctrl.HandleStartCommand(r.Context(), key.JobID, key.Stage, req.Checkpoint)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status(key.JobID, key.Stage))

	return nil
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) error {
	key, err := timerKey(r)
	if err != nil {
		return err
	}

	done := s.ctrl.HandlePauseCommand(r.Context(), key.JobID, key.Stage)

	select {
	case err = <-done:
	case <-r.Context().Done():
		err = r.Context().Err()
	}

	if err != nil {
		if errors.Is(err, timer.ErrTimerFinished) {
			return err
		}

		return errPauseNotSaved.Wrap(err)
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status(key.JobID, key.Stage))

	return nil
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) error {
	key, err := timerKey(r)
	if err != nil {
		return err
	}

	err = s.ctrl.HandleResetCommand(r.Context(), key.JobID, key.Stage)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status(key.JobID, key.Stage))

	return nil
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) error {
	key, err := timerKey(r)
	if err != nil {
		return err
	}

	var req FinalizeRequest

	if err = decodeBody(r, &req); err != nil {
		return err
	}

	at := s.clock.Now()
	if req.At != nil {
		at = *req.At
	}

	_, err = s.ctrl.HandleFinalizeCommand(r.Context(), key.JobID, key.Stage, at)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, s.ctrl.Status(key.JobID, key.Stage))

	return nil
}

func (s *Server) stopJob(w http.ResponseWriter, r *http.Request) error {
	id, err := jobID(r)
	if err != nil {
		return err
	}

	err = s.ctrl.StopAllForJob(r.Context(), id)
	if err != nil {
		return errStopJob.Fmt(id).Wrap(err)
	}

	statuses := []models.Status{}

	for _, st := range s.ctrl.Statuses() {
		if st.Key.JobID == id {
			statuses = append(statuses, st)
		}
	}

	writeJSON(w, http.StatusOK, statuses)

	return nil
}

func (s *Server) records(w http.ResponseWriter, r *http.Request) error {
	id, err := jobID(r)
	if err != nil {
		return err
	}

	records, err := s.ctrl.Records(r.Context(), id)
	if err != nil {
		return err
	}

	if records == nil {
		records = []models.TimerRecord{}
	}

	writeJSON(w, http.StatusOK, records)

	return nil
}
