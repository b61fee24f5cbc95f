package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

type alarmRequest struct {
	Hour   int      `json:"hour"`
	Minute int      `json:"minute"`
	Days   []string `json:"days"`
	Date   *string  `json:"date"`
}

type alarmResponse struct {
	ID          int64      `json:"id"`
	Hour        int        `json:"hour"`
	Minute      int        `json:"minute"`
	Days        []string   `json:"days"`
	Date        *string    `json:"date"`
	Enabled     bool       `json:"enabled"`
	NextTrigger *time.Time `json:"next_trigger"`
}

func (req alarmRequest) parse() ([]time.Weekday, *time.Time, error) {
	var days []time.Weekday
	for _, name := range req.Days {
		d, err := domain.ParseWeekday(name)
		if err != nil {
			return nil, nil, badRequest(err.Error())
		}
		days = append(days, d)
	}
	if req.Date == nil || *req.Date == "" {
		return days, nil, nil
	}
	date, err := time.ParseInLocation(domain.DateLayout, *req.Date, time.Local)
	if err != nil {
		return nil, nil, badRequest("date must be YYYY-MM-DD")
	}
	return days, &date, nil
}

func (s *Server) toAlarmResponse(a domain.Alarm) alarmResponse {
	resp := alarmResponse{
		ID:      a.ID,
		Hour:    a.Hour,
		Minute:  a.Minute,
		Days:    make([]string, 0, len(a.Days)),
		Enabled: a.Enabled,
	}
	for _, d := range a.Days {
		resp.Days = append(resp.Days, domain.WeekdayName(d))
	}
	if a.Date != nil {
		d := a.Date.Format(domain.DateLayout)
		resp.Date = &d
	}
	if next, ok := s.deps.Alarms.NextFire(a.ID); ok {
		resp.NextTrigger = &next
	}
	return resp
}

func (s *Server) toAlarmResponses(alarms []domain.Alarm) []alarmResponse {
	out := make([]alarmResponse, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, s.toAlarmResponse(a))
	}
	return out
}

func (s *Server) handleListAlarms(w http.ResponseWriter, r *http.Request) {
	alarms, err := s.deps.Alarms.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.toAlarmResponses(alarms))
}

func (s *Server) handleCreateAlarm(w http.ResponseWriter, r *http.Request) {
	var req alarmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	days, date, err := req.parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.deps.Alarms.Add(r.Context(), req.Hour, req.Minute, days, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, s.toAlarmResponse(a))
}

func (s *Server) handleAlarmConflicts(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil {
		s.writeError(w, r, badRequest("hour is required"))
		return
	}
	minute, err := strconv.Atoi(r.URL.Query().Get("minute"))
	if err != nil {
		s.writeError(w, r, badRequest("minute is required"))
		return
	}
	alarms, err := s.deps.Alarms.Conflicts(r.Context(), hour, minute)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.toAlarmResponses(alarms))
}

func (s *Server) handleGetAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := alarmID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.deps.Alarms.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.toAlarmResponse(a))
}

func (s *Server) handleUpdateAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := alarmID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req alarmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	days, date, err := req.parse()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.deps.Alarms.Update(r.Context(), id, req.Hour, req.Minute, days, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.toAlarmResponse(a))
}

func (s *Server) handleToggleAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := alarmID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.deps.Alarms.Toggle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.toAlarmResponse(a))
}

func (s *Server) handleDeleteAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := alarmID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Alarms.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func alarmID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("alarm id must be a positive integer")
	}
	return id, nil
}
