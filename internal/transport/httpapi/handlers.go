package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"timerd/internal/services/manager"
	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

type createRequest struct {
	Name            string           `json:"name,omitempty"`
	Duration        float64          `json:"duration"` // seconds
	Actions         timer.ActionList `json:"actions"`
	RestartBehavior string           `json:"restart_behavior,omitempty"`
	Groups          []string         `json:"groups,omitempty"`
}

type extendRequest struct {
	AddDuration float64 `json:"add_duration,omitempty"` // seconds
	NewExpiry   string  `json:"new_expiry,omitempty"`
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthz", s.wrap(s.handleHealthz))
	mux.HandleFunc("GET /v1/timers", s.wrap(s.handleList))
	mux.HandleFunc("POST /v1/timers", s.wrap(s.handleCreate))
	mux.HandleFunc("POST /v1/timers/{name}/pause", s.wrap(s.handlePause))
	mux.HandleFunc("POST /v1/timers/{name}/resume", s.wrap(s.handleResume))
	mux.HandleFunc("POST /v1/timers/{name}/extend", s.wrap(s.handleExtend))
	mux.HandleFunc("DELETE /v1/timers/{name}", s.wrap(s.handleCancel))
	mux.HandleFunc("POST /v1/groups/{group}/pause", s.wrap(s.handlePauseGroup))
	mux.HandleFunc("POST /v1/groups/{group}/resume", s.wrap(s.handleResumeGroup))
	mux.HandleFunc("POST /v1/groups/{group}/extend", s.wrap(s.handleExtendGroup))
	mux.HandleFunc("DELETE /v1/groups/{group}", s.wrap(s.handleCancelGroup))

	return mux
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !s.mgr.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": s.mgr.Ready()})
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	timers := s.mgr.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"timers": timers,
		"count":  len(timers),
	})
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	name, err := s.mgr.Create(r.Context(), manager.CreateRequest{
		Name:            req.Name,
		Duration:        secondsToDuration(req.Duration),
		Actions:         req.Actions,
		RestartBehavior: timer.RestartBehavior(req.RestartBehavior),
		Groups:          req.Groups,
	})
	if err != nil {
		writeManagerErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": name})
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Pause(r.Context(), r.PathValue("name")); err != nil {
		writeManagerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Resume(r.Context(), r.PathValue("name")); err != nil {
		writeManagerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Cancel(r.Context(), r.PathValue("name")); err != nil {
		writeManagerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	err := s.mgr.Extend(r.Context(), r.PathValue("name"), secondsToDuration(req.AddDuration), req.NewExpiry)
	if err != nil {
		writeManagerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handlePauseGroup(w http.ResponseWriter, r *http.Request) {
	count, err := s.mgr.PauseGroup(r.Context(), r.PathValue("group"))
	s.writeGroupResult(w, count, err)
}

func (s *Service) handleResumeGroup(w http.ResponseWriter, r *http.Request) {
	count, err := s.mgr.ResumeGroup(r.Context(), r.PathValue("group"))
	s.writeGroupResult(w, count, err)
}

func (s *Service) handleCancelGroup(w http.ResponseWriter, r *http.Request) {
	count, err := s.mgr.CancelGroup(r.Context(), r.PathValue("group"))
	s.writeGroupResult(w, count, err)
}

func (s *Service) handleExtendGroup(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	count, err := s.mgr.ExtendGroup(r.Context(), r.PathValue("group"), secondsToDuration(req.AddDuration), req.NewExpiry)
	s.writeGroupResult(w, count, err)
}

// writeGroupResult reports the fan-out count even when some members failed;
// member failures are independent and already logged.
func (s *Service) writeGroupResult(w http.ResponseWriter, count int, err error) {
	if err != nil {
		s.log.Warn("group operation had failures", logx.Err(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func writeManagerErr(w http.ResponseWriter, err error) {
	if errors.Is(err, manager.ErrInvalid) {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
