package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// Service is the alarm API used by the HTTP layer. Every change is persisted
// first and then reflected in the scheduler.
type Service struct {
	store  Store
	sched  *Scheduler
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(store Store, sched *Scheduler, logger *slog.Logger) *Service {
	return &Service{store: store, sched: sched, logger: logger}
}

// List returns all alarms ordered by time of day.
func (s *Service) List(ctx context.Context) ([]domain.Alarm, error) {
	return s.store.ListAlarms(ctx)
}

// Get returns domain.ErrAlarmNotFound when id does not exist.
func (s *Service) Get(ctx context.Context, id int64) (domain.Alarm, error) {
	return s.store.GetAlarm(ctx, id)
}

// Add creates an enabled alarm and schedules it. A non-nil date makes it
// one-off and days are ignored.
func (s *Service) Add(ctx context.Context, hour, minute int, days []time.Weekday, date *time.Time) (domain.Alarm, error) {
	a, err := domain.Alarm{Hour: hour, Minute: minute, Days: days, Date: date, Enabled: true}.Normalize()
	if err != nil {
		return domain.Alarm{}, err
	}
	id, err := s.store.InsertAlarm(ctx, a)
	if err != nil {
		return domain.Alarm{}, err
	}
	a.ID = id
	s.sched.Schedule(a)
	s.logger.Info("alarm added", "alarm_id", id, "hour", hour, "minute", minute, "days", domain.FormatWeekdays(a.Days))
	return a, nil
}

// Update replaces an alarm's time and recurrence. The alarm is re-enabled
// and rescheduled.
func (s *Service) Update(ctx context.Context, id int64, hour, minute int, days []time.Weekday, date *time.Time) (domain.Alarm, error) {
	a, err := domain.Alarm{ID: id, Hour: hour, Minute: minute, Days: days, Date: date, Enabled: true}.Normalize()
	if err != nil {
		return domain.Alarm{}, err
	}
	if err := s.store.UpdateAlarm(ctx, a); err != nil {
		return domain.Alarm{}, err
	}
	s.sched.Schedule(a)
	return a, nil
}

// Toggle flips the enabled flag, arming or disarming the timer to match.
func (s *Service) Toggle(ctx context.Context, id int64) (domain.Alarm, error) {
	a, err := s.store.GetAlarm(ctx, id)
	if err != nil {
		return domain.Alarm{}, err
	}
	a.Enabled = !a.Enabled
	if err := s.store.UpdateAlarm(ctx, a); err != nil {
		return domain.Alarm{}, fmt.Errorf("toggle alarm %d: %w", id, err)
	}
	if a.Enabled {
		s.sched.Schedule(a)
	} else {
		s.sched.Cancel(id)
	}
	return a, nil
}

// Delete removes the alarm and disarms its timer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteAlarm(ctx, id); err != nil {
		return err
	}
	s.sched.Cancel(id)
	s.logger.Info("alarm deleted", "alarm_id", id)
	return nil
}

// Conflicts returns existing alarms at the same time of day.
func (s *Service) Conflicts(ctx context.Context, hour, minute int) ([]domain.Alarm, error) {
	return s.store.AlarmsAt(ctx, hour, minute)
}

// NextFire returns when the alarm is next due, if it is armed.
func (s *Service) NextFire(id int64) (time.Time, bool) {
	return s.sched.NextFire(id)
}
