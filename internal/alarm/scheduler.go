// Package alarm manages user alarms and arms a timer for each enabled one.
// When an alarm fires it queues a weather briefing.
package alarm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
	"github.com/couchcryptid/weather-alarm-service/internal/worker"
)

// fireTimeout bounds the store work done when an alarm fires.
const fireTimeout = 10 * time.Second

// Store is the alarm persistence used by the scheduler and service.
type Store interface {
	ListAlarms(ctx context.Context) ([]domain.Alarm, error)
	GetAlarm(ctx context.Context, id int64) (domain.Alarm, error)
	InsertAlarm(ctx context.Context, a domain.Alarm) (int64, error)
	UpdateAlarm(ctx context.Context, a domain.Alarm) error
	DisableAlarm(ctx context.Context, a domain.Alarm) (bool, error)
	DeleteAlarm(ctx context.Context, id int64) error
	AlarmsAt(ctx context.Context, hour, minute int) ([]domain.Alarm, error)
}

// JobQueue accepts named background jobs.
type JobQueue interface {
	Enqueue(name string) error
}

// Switches reports the user's notification switches.
type Switches interface {
	Notifications(ctx context.Context) (domain.NotificationSettings, error)
}

type armed struct {
	timer clockwork.Timer
	at    time.Time
}

// Scheduler keeps one timer per enabled alarm on the domain clock.
type Scheduler struct {
	store    Store
	jobs     JobQueue
	switches Switches
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	timers  map[int64]*armed
	gens    map[int64]uint64 // bumped on every schedule or cancel
	seq     uint64
	stopped bool
	ready   atomic.Bool
}

// NewScheduler creates a Scheduler. Nothing is armed until RescheduleAll or
// Schedule is called.
func NewScheduler(store Store, jobs JobQueue, switches Switches, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		jobs:     jobs,
		switches: switches,
		metrics:  metrics,
		logger:   logger,
		timers:   make(map[int64]*armed),
		gens:     make(map[int64]uint64),
	}
}

// Schedule arms a timer for a's next trigger, replacing any existing one.
// Disabled alarms and one-off alarms whose time has passed are left unarmed.
func (s *Scheduler) Schedule(a domain.Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(a)
}

func (s *Scheduler) scheduleLocked(a domain.Alarm) {
	s.cancelLocked(a.ID)
	defer s.updateGauge()

	if s.stopped || !a.Enabled {
		return
	}

	now := domain.Now()
	next, ok := a.NextTrigger(now)
	if !ok {
		s.logger.Warn("alarm time has passed, not scheduling",
			"alarm_id", a.ID,
			"date", a.Date.Format(domain.DateLayout),
			"hour", a.Hour,
			"minute", a.Minute,
		)
		return
	}

	id := a.ID
	entry := &armed{at: next}
	entry.timer = domain.Clock().AfterFunc(next.Sub(now), func() { s.fire(id, entry) })
	s.timers[id] = entry
	s.logger.Debug("alarm scheduled", "alarm_id", id, "at", next)
}

// Cancel disarms the alarm's timer if one is set.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
	delete(s.gens, id)
	s.updateGauge()
}

// NextFire returns when the alarm is next due, if it is armed.
func (s *Scheduler) NextFire(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return time.Time{}, false
	}
	return e.at, true
}

// RescheduleAll arms every enabled alarm in the store. It is called once at
// startup and marks the scheduler ready.
func (s *Scheduler) RescheduleAll(ctx context.Context) error {
	alarms, err := s.store.ListAlarms(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		s.Schedule(a)
		n++
	}
	s.ready.Store(true)
	s.logger.Info("alarms restored", "enabled", n, "total", len(alarms))
	return nil
}

// Restore calls RescheduleAll until it succeeds, backing off between
// attempts. It returns the context error if ctx ends first.
func (s *Scheduler) Restore(ctx context.Context, initialBackoff, maxBackoff time.Duration) error {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := s.RescheduleAll(ctx)
		if err == nil {
			return nil
		}
		s.logger.Error("restore alarms failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// CheckReadiness returns an error until RescheduleAll has succeeded.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("alarms have not been restored yet")
	}
	return nil
}

// Stop disarms every timer. Later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.cancelLocked(id)
	}
	s.stopped = true
	s.updateGauge()
}

func (s *Scheduler) cancelLocked(id int64) {
	if e, ok := s.timers[id]; ok {
		e.timer.Stop()
		delete(s.timers, id)
	}
	s.seq++
	s.gens[id] = s.seq
}

func (s *Scheduler) updateGauge() {
	s.metrics.AlarmsScheduled.Set(float64(len(s.timers)))
}

// fire runs when an alarm's timer expires. The alarm is re-read from the
// store so edits made after arming win, and edits made while it fires are
// never overwritten.
func (s *Scheduler) fire(id int64, entry *armed) {
	s.mu.Lock()
	if s.timers[id] != entry {
		// Replaced or cancelled after the timer expired.
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	gen := s.gens[id]
	s.updateGauge()
	s.mu.Unlock()

	s.metrics.AlarmsFired.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	a, err := s.store.GetAlarm(ctx, id)
	if err != nil {
		s.logger.Error("load fired alarm failed", "alarm_id", id, "error", err)
		return
	}
	if !a.Enabled {
		s.logger.Info("alarm switched off before firing", "alarm_id", id)
		return
	}
	s.logger.Info("alarm fired", "alarm_id", id, "hour", a.Hour, "minute", a.Minute)

	s.queueBriefing(ctx, id)

	if a.IsOneOff() {
		disabled, err := s.store.DisableAlarm(ctx, a)
		switch {
		case err != nil:
			s.logger.Error("disable one-off alarm failed", "alarm_id", id, "error", err)
		case !disabled:
			s.logger.Info("one-off alarm edited while firing, keeping the edit", "alarm_id", id)
		}
		return
	}
	s.rearm(a, gen)
}

// rearm schedules a again unless it was rescheduled or cancelled since gen
// was taken.
func (s *Scheduler) rearm(a domain.Alarm, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[a.ID] != gen {
		s.logger.Debug("alarm changed while firing, not re-arming", "alarm_id", a.ID)
		return
	}
	s.scheduleLocked(a)
}

func (s *Scheduler) queueBriefing(ctx context.Context, id int64) {
	sw, err := s.switches.Notifications(ctx)
	if err != nil {
		s.logger.Warn("read notification switches failed, using defaults", "error", err)
		sw = domain.DefaultNotificationSettings()
	}
	if !sw.BriefingsAllowed() {
		s.logger.Info("alarm briefings disabled, skipping", "alarm_id", id)
		return
	}
	if err := s.jobs.Enqueue(worker.JobBriefing); err != nil {
		s.logger.Error("queue briefing failed", "alarm_id", id, "error", err)
	}
}
