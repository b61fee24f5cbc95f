package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/notify"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingJob struct {
	calls    atomic.Int64
	failures int64
	err      error
}

func (j *countingJob) Run(_ context.Context) error {
	n := j.calls.Add(1)
	if j.err != nil && (j.failures == 0 || n <= j.failures) {
		return j.err
	}
	return nil
}

func TestSleepWithContext(t *testing.T) {
	assert.True(t, sleepWithContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
}

func runInBackground(t *testing.T, run func(context.Context) error) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("worker did not stop")
		}
	})
	return cancel
}

func TestRunner_RetriesThenSucceeds(t *testing.T) {
	job := &countingJob{err: errors.New("upstream down"), failures: 2}
	m := observability.NewMetricsForTesting()
	r := NewRunner("smart-alert", job, time.Hour, m, discardLogger())
	r.backoff = 0

	runInBackground(t, r.Run)

	assert.Eventually(t, func() bool { return job.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.WorkerRuns.WithLabelValues("smart-alert", "success")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkerRuns.WithLabelValues("smart-alert", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerRunning.WithLabelValues("smart-alert")))
}

func TestRunner_GivesUpUntilNextTick(t *testing.T) {
	job := &countingJob{err: errors.New("always broken")}
	m := observability.NewMetricsForTesting()
	r := NewRunner("briefing", job, time.Hour, m, discardLogger())
	r.backoff = 0

	runInBackground(t, r.Run)

	assert.Eventually(t, func() bool { return job.calls.Load() == int64(maxRetries+1) }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(maxRetries+1), job.calls.Load(), "no retries beyond the limit")
}

func TestRunner_RunsOnEveryTick(t *testing.T) {
	fc := clockwork.NewFakeClock()
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })

	job := &countingJob{}
	r := NewRunner("smart-alert", job, 3*time.Hour, observability.NewMetricsForTesting(), discardLogger())
	runInBackground(t, r.Run)

	assert.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond, "runs immediately")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(3 * time.Hour)

	assert.Eventually(t, func() bool { return job.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRunner_StopsWhenCancelled(t *testing.T) {
	job := &countingJob{}
	m := observability.NewMetricsForTesting()
	r := NewRunner("briefing", job, time.Hour, m, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WorkerRunning.WithLabelValues("briefing")))
}

func TestDispatcher_Enqueue(t *testing.T) {
	d := NewDispatcher(1, observability.NewMetricsForTesting(), discardLogger())
	d.Register(JobBriefing, &countingJob{})

	assert.ErrorIs(t, d.Enqueue("reboot"), ErrUnknownJob)
	require.NoError(t, d.Enqueue(JobBriefing))
	assert.ErrorIs(t, d.Enqueue(JobBriefing), ErrQueueFull)
}

func TestDispatcher_RunsQueuedJobs(t *testing.T) {
	m := observability.NewMetricsForTesting()
	d := NewDispatcher(4, m, discardLogger())
	briefing := &countingJob{}
	d.Register(JobBriefing, briefing)
	d.Register(JobSmartAlert, JobFunc(func(context.Context) error {
		return ErrSkipped
	}))

	runInBackground(t, d.Run)

	require.NoError(t, d.Enqueue(JobBriefing))
	require.NoError(t, d.Enqueue(JobSmartAlert))
	require.NoError(t, d.Enqueue(JobBriefing))

	assert.Eventually(t, func() bool { return briefing.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.WorkerRuns.WithLabelValues(JobSmartAlert, "skipped")) == 1
	}, time.Second, 5*time.Millisecond)
}

// --- fakes for the weather workers ---

type fakePrefs struct {
	mu        sync.Mutex
	switches  domain.NotificationSettings
	adj       int
	last      *domain.Location
	lastErr   error
	lastAlert time.Time
	saved     []domain.Location
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{switches: domain.DefaultNotificationSettings()}
}

func (p *fakePrefs) LastLocation(context.Context) (domain.Location, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr != nil {
		return domain.Location{}, false, p.lastErr
	}
	if p.last == nil {
		return domain.Location{}, false, nil
	}
	return *p.last, true, nil
}

func (p *fakePrefs) SetLastLocation(_ context.Context, loc domain.Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, loc)
	return nil
}

func (p *fakePrefs) Notifications(context.Context) (domain.NotificationSettings, error) {
	return p.switches, nil
}

func (p *fakePrefs) TempAdjustment(context.Context) (int, error) { return p.adj, nil }

func (p *fakePrefs) LastAlertTime(context.Context) (time.Time, error) { return p.lastAlert, nil }

func (p *fakePrefs) SetLastAlertTime(_ context.Context, t time.Time) error {
	p.lastAlert = t
	return nil
}

type fakeCache struct {
	state domain.WeatherState
	err   error
}

func (c fakeCache) Cached(context.Context) (domain.WeatherState, error) { return c.state, c.err }

type fakeWeather struct {
	state domain.WeatherState
	err   error
	calls []fetchCall
}

type fetchCall struct {
	lat, lon float64
	adj      int
}

func (f *fakeWeather) Fetch(_ context.Context, lat, lon float64, adj int) (domain.WeatherState, error) {
	f.calls = append(f.calls, fetchCall{lat, lon, adj})
	return f.state, f.err
}

type captureNotifier struct {
	sent []domain.Notification
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, n domain.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, n)
	return nil
}

var seoul = domain.Location{Lat: 37.5665, Lon: 126.978}

func rainySnapshot() domain.WeatherState {
	return domain.WeatherState{
		Current: domain.CurrentWeather{Temperature: "12°", Description: "흐림", FeelsLike: "10°", MaxTemp: "15°", MinTemp: "9°"},
		Details: domain.WeatherDetails{Humidity: "80%", Precipitation: "0.0 mm", Wind: "5.5 m/s", PM10: "45"},
		Hourly: []domain.HourlyForecast{
			{Time: "11:00", PTY: "0"},
			{Time: "12:00", PTY: "0"},
			{Time: "13:00", PTY: "1"},
			{Time: "14:00", PTY: "1"},
		},
		Latitude:  seoul.Lat,
		Longitude: seoul.Lon,
	}
}

func drySnapshot() domain.WeatherState {
	s := rainySnapshot()
	s.Hourly = []domain.HourlyForecast{{PTY: "0"}, {PTY: "0"}, {PTY: "0"}, {PTY: "1"}}
	return s
}

func TestLocator_Chain(t *testing.T) {
	fallback := domain.Location{Lat: 35.1796, Lon: 129.0756}

	t.Run("saved location wins", func(t *testing.T) {
		prefs := newFakePrefs()
		prefs.last = &seoul
		l := NewLocator(prefs, fakeCache{state: drySnapshot()}, &fallback, discardLogger())
		got, err := l.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, seoul, got)
		assert.Empty(t, prefs.saved)
	})

	t.Run("cached snapshot is saved for next time", func(t *testing.T) {
		prefs := newFakePrefs()
		prefs.lastErr = errors.New("locked")
		l := NewLocator(prefs, fakeCache{state: drySnapshot()}, &fallback, discardLogger())
		got, err := l.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, seoul, got)
		assert.Equal(t, []domain.Location{seoul}, prefs.saved)
	})

	t.Run("configured default", func(t *testing.T) {
		l := NewLocator(newFakePrefs(), fakeCache{err: errors.New("empty")}, &fallback, discardLogger())
		got, err := l.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})

	t.Run("nothing available", func(t *testing.T) {
		l := NewLocator(newFakePrefs(), fakeCache{err: errors.New("empty")}, nil, discardLogger())
		_, err := l.Resolve(context.Background())
		assert.ErrorIs(t, err, ErrNoLocation)
	})
}

func TestBriefingWorker_SendsBriefing(t *testing.T) {
	prefs := newFakePrefs()
	prefs.last = &seoul
	prefs.adj = -1
	weather := &fakeWeather{state: rainySnapshot()}
	notifier := &captureNotifier{}
	w := NewBriefingWorker(weather, prefs, NewLocator(prefs, fakeCache{}, nil, discardLogger()), notifier, discardLogger())

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []fetchCall{{seoul.Lat, seoul.Lon, -1}}, weather.calls)
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, domain.KindBriefing, n.Kind)
	assert.Equal(t, BriefingTitle, n.Title)
	assert.Contains(t, n.Body, "It is 12° with 흐림 skies.")
	assert.Contains(t, n.Body, "What to wear: ")
	assert.Contains(t, n.Body, "• PM10: moderate")
	assert.Contains(t, n.Body, "Rain or snow expected within 3 hours.")
	assert.Equal(t, []domain.Location{seoul}, prefs.saved)
}

func TestBriefingWorker_Skipped(t *testing.T) {
	prefs := newFakePrefs()
	prefs.switches.UserAlarmEnabled = false
	notifier := &captureNotifier{}
	w := NewBriefingWorker(&fakeWeather{}, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()), notifier, discardLogger())

	assert.ErrorIs(t, w.Run(context.Background()), ErrSkipped)
	assert.Empty(t, notifier.sent)
}

func TestBriefingWorker_Failures(t *testing.T) {
	prefs := newFakePrefs()
	notifier := &captureNotifier{}
	w := NewBriefingWorker(&fakeWeather{}, prefs, NewLocator(prefs, fakeCache{err: errors.New("empty")}, nil, discardLogger()), notifier, discardLogger())
	assert.ErrorIs(t, w.Run(context.Background()), ErrNoLocation)

	w = NewBriefingWorker(&fakeWeather{err: errors.New("timeout")}, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()), notifier, discardLogger())
	assert.ErrorContains(t, w.Run(context.Background()), "timeout")
	assert.Empty(t, notifier.sent)
}

func TestBriefingBody_NoRain(t *testing.T) {
	body := BriefingBody(drySnapshot(), time.April)
	assert.NotContains(t, body, "Rain or snow expected")
	assert.Contains(t, body, "• PM10: moderate")
}

func TestSmartAlertWorker(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2024, 4, 24, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })

	prefs := newFakePrefs()
	prefs.last = &seoul
	prefs.adj = 3
	weather := &fakeWeather{state: drySnapshot()}
	notifier := &captureNotifier{}
	w := NewSmartAlertWorker(weather, prefs, NewLocator(prefs, fakeCache{}, nil, discardLogger()), notifier, 6*time.Hour, discardLogger())
	ctx := context.Background()

	require.NoError(t, w.Run(ctx))
	assert.Empty(t, notifier.sent, "dry forecast sends nothing")
	assert.Equal(t, 0, weather.calls[0].adj, "smart alerts ignore the adjustment")

	weather.state = rainySnapshot()
	require.NoError(t, w.Run(ctx))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, domain.KindSmartAlert, notifier.sent[0].Kind)
	assert.Equal(t, SmartAlertBody, notifier.sent[0].Body)
	assert.True(t, prefs.lastAlert.Equal(fc.Now()))

	fc.Advance(5 * time.Hour)
	assert.ErrorIs(t, w.Run(ctx), ErrSkipped, "too soon after the last alert")
	assert.Len(t, notifier.sent, 1)

	fc.Advance(time.Hour)
	require.NoError(t, w.Run(ctx))
	assert.Len(t, notifier.sent, 2)
}

func TestSmartAlertWorker_SwitchedOff(t *testing.T) {
	prefs := newFakePrefs()
	prefs.switches.MasterEnabled = false
	weather := &fakeWeather{state: rainySnapshot()}
	w := NewSmartAlertWorker(weather, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()), &captureNotifier{}, time.Hour, discardLogger())

	assert.ErrorIs(t, w.Run(context.Background()), ErrSkipped)
	assert.Empty(t, weather.calls)
}

func TestSmartAlertWorker_NotifyFailureKeepsAlertTime(t *testing.T) {
	prefs := newFakePrefs()
	w := NewSmartAlertWorker(&fakeWeather{state: rainySnapshot()}, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()),
		&captureNotifier{err: errors.New("smtp down")}, time.Hour, discardLogger())

	require.Error(t, w.Run(context.Background()))
	assert.True(t, prefs.lastAlert.IsZero())
}

func TestSmartAlertWorker_PartialDeliveryCountsAsSent(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2024, 4, 24, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(nil) })

	prefs := newFakePrefs()
	healthy := &captureNotifier{}
	m := observability.NewMetricsForTesting()
	fanout := notify.NewFanout(m, discardLogger(),
		notify.Sink{Name: "log", Notifier: healthy},
		notify.Sink{Name: "smtp", Notifier: &captureNotifier{err: errors.New("connection refused")}},
	)
	w := NewSmartAlertWorker(&fakeWeather{state: rainySnapshot()}, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()),
		fanout, 6*time.Hour, discardLogger())
	r := NewRunner(JobSmartAlert, w, time.Hour, m, discardLogger())
	r.backoff = 0

	r.runWithRetry(context.Background())
	assert.Len(t, healthy.sent, 1, "a partial delivery is not retried")
	assert.True(t, prefs.lastAlert.Equal(fc.Now()))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WorkerRuns.WithLabelValues(JobSmartAlert, "error")))

	fc.Advance(time.Hour)
	r.runWithRetry(context.Background())
	assert.Len(t, healthy.sent, 1, "the gap applies after a partial delivery")
}

func TestBriefingWorker_PartialDeliveryCountsAsSent(t *testing.T) {
	prefs := newFakePrefs()
	healthy := &captureNotifier{}
	fanout := notify.NewFanout(observability.NewMetricsForTesting(), discardLogger(),
		notify.Sink{Name: "kafka", Notifier: &captureNotifier{err: errors.New("broker unreachable")}},
		notify.Sink{Name: "log", Notifier: healthy},
	)
	w := NewBriefingWorker(&fakeWeather{state: drySnapshot()}, prefs, NewLocator(prefs, fakeCache{}, &seoul, discardLogger()), fanout, discardLogger())

	require.NoError(t, w.Run(context.Background()))
	assert.Len(t, healthy.sent, 1)
}
