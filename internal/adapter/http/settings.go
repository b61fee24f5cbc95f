package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-alarm-service/internal/settings"
	"github.com/couchcryptid/weather-alarm-service/internal/worker"
)

// settingsRequest carries a partial update; omitted fields are unchanged.
type settingsRequest struct {
	MasterEnabled     *bool `json:"master_enabled"`
	UserAlarmEnabled  *bool `json:"user_alarm_enabled"`
	SmartAlertEnabled *bool `json:"smart_alert_enabled"`
	TempAdjustment    *int  `json:"temp_adjustment"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.deps.Settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, cur)
}

// handleUpdateSettings applies the request as one update; an invalid field
// rejects the whole request.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cur, err := s.deps.Settings.Apply(r.Context(), settings.Patch{
		MasterEnabled:     req.MasterEnabled,
		UserAlarmEnabled:  req.UserAlarmEnabled,
		SmartAlertEnabled: req.SmartAlertEnabled,
		TempAdjustment:    req.TempAdjustment,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, cur)
}

func (s *Server) handleRunWorker(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.deps.Jobs.Enqueue(name)
	switch {
	case errors.Is(err, worker.ErrUnknownJob):
		writeErrorStatus(w, http.StatusNotFound, err)
	case errors.Is(err, worker.ErrQueueFull):
		writeErrorStatus(w, http.StatusServiceUnavailable, err)
	case err != nil:
		s.writeError(w, r, err)
	default:
		sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "job": name})
	}
}
