// Package settings exposes typed user preferences on top of the key/value
// preference table.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-alarm-service/internal/domain"
)

// Preference keys.
const (
	KeyMasterEnabled     = "master_enabled"
	KeyUserAlarmEnabled  = "user_alarm_enabled"
	KeySmartAlarmEnabled = "smart_alarm_enabled"
	KeyTempAdjustment    = "temp_adjustment"
	KeySetupComplete     = "is_setup_complete"
	KeyLastAlertTime     = "last_alert_time"
	KeyLastLat           = "last_lat"
	KeyLastLon           = "last_lon"
)

// Bounds of the user's feels-like temperature adjustment.
const (
	MinTempAdjustment = -3
	MaxTempAdjustment = 3
)

// ErrInvalidAdjustment is returned for adjustments outside the allowed range.
var ErrInvalidAdjustment = fmt.Errorf("temperature adjustment must be between %d and %d", MinTempAdjustment, MaxTempAdjustment)

// PrefStore is the raw key/value preference storage.
type PrefStore interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
	SetPrefs(ctx context.Context, values map[string]string) error
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	MasterEnabled     *bool
	UserAlarmEnabled  *bool
	SmartAlertEnabled *bool
	TempAdjustment    *int
}

// Settings is a snapshot of everything the HTTP API exposes.
type Settings struct {
	domain.NotificationSettings
	TempAdjustment int  `json:"temp_adjustment"`
	SetupComplete  bool `json:"setup_complete"`
}

// Service reads and writes typed preferences.
type Service struct {
	store PrefStore
}

// New creates a Service backed by store.
func New(store PrefStore) *Service {
	return &Service{store: store}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	n, err := s.Notifications(ctx)
	if err != nil {
		return Settings{}, err
	}
	adj, err := s.TempAdjustment(ctx)
	if err != nil {
		return Settings{}, err
	}
	done, err := s.SetupComplete(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Settings{NotificationSettings: n, TempAdjustment: adj, SetupComplete: done}, nil
}

// Notifications returns the notification switches. Unset switches are on.
func (s *Service) Notifications(ctx context.Context) (domain.NotificationSettings, error) {
	def := domain.DefaultNotificationSettings()
	var (
		out domain.NotificationSettings
		err error
	)
	if out.MasterEnabled, err = s.getBool(ctx, KeyMasterEnabled, def.MasterEnabled); err != nil {
		return out, err
	}
	if out.UserAlarmEnabled, err = s.getBool(ctx, KeyUserAlarmEnabled, def.UserAlarmEnabled); err != nil {
		return out, err
	}
	if out.SmartAlertEnabled, err = s.getBool(ctx, KeySmartAlarmEnabled, def.SmartAlertEnabled); err != nil {
		return out, err
	}
	return out, nil
}

// SetNotifications persists all three switches.
func (s *Service) SetNotifications(ctx context.Context, n domain.NotificationSettings) error {
	_, err := s.Apply(ctx, Patch{
		MasterEnabled:     &n.MasterEnabled,
		UserAlarmEnabled:  &n.UserAlarmEnabled,
		SmartAlertEnabled: &n.SmartAlertEnabled,
	})
	return err
}

// Apply validates p and writes it in one transaction, so a rejected or
// failed update leaves every setting as it was. It returns the settings
// after the update.
func (s *Service) Apply(ctx context.Context, p Patch) (Settings, error) {
	if p.TempAdjustment != nil && (*p.TempAdjustment < MinTempAdjustment || *p.TempAdjustment > MaxTempAdjustment) {
		return Settings{}, ErrInvalidAdjustment
	}

	values := make(map[string]string, 5)
	for key, v := range map[string]*bool{
		KeyMasterEnabled:     p.MasterEnabled,
		KeyUserAlarmEnabled:  p.UserAlarmEnabled,
		KeySmartAlarmEnabled: p.SmartAlertEnabled,
	} {
		if v != nil {
			values[key] = strconv.FormatBool(*v)
		}
	}
	if p.TempAdjustment != nil {
		values[KeyTempAdjustment] = strconv.Itoa(*p.TempAdjustment)
		values[KeySetupComplete] = strconv.FormatBool(true)
	}

	if len(values) > 0 {
		if err := s.store.SetPrefs(ctx, values); err != nil {
			return Settings{}, fmt.Errorf("update settings: %w", err)
		}
	}
	return s.Get(ctx)
}

// TempAdjustment returns the feels-like adjustment, 0 when unset.
func (s *Service) TempAdjustment(ctx context.Context) (int, error) {
	v, ok, err := s.store.GetPref(ctx, KeyTempAdjustment)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", KeyTempAdjustment, v, err)
	}
	return n, nil
}

// SetTempAdjustment stores the adjustment and marks initial setup complete.
func (s *Service) SetTempAdjustment(ctx context.Context, adj int) error {
	_, err := s.Apply(ctx, Patch{TempAdjustment: &adj})
	return err
}

// SetupComplete reports whether the user has chosen a temperature adjustment.
func (s *Service) SetupComplete(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeySetupComplete, false)
}

// LastAlertTime returns when the last smart alert was sent. The zero time
// means never.
func (s *Service) LastAlertTime(ctx context.Context) (time.Time, error) {
	v, ok, err := s.store.GetPref(ctx, KeyLastAlertTime)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %q: %w", KeyLastAlertTime, v, err)
	}
	return time.UnixMilli(ms), nil
}

// SetLastAlertTime records when a smart alert was sent.
func (s *Service) SetLastAlertTime(ctx context.Context, t time.Time) error {
	return s.store.SetPref(ctx, KeyLastAlertTime, strconv.FormatInt(t.UnixMilli(), 10))
}

// LastLocation returns the last location the user looked up.
func (s *Service) LastLocation(ctx context.Context) (domain.Location, bool, error) {
	latStr, ok, err := s.store.GetPref(ctx, KeyLastLat)
	if err != nil || !ok {
		return domain.Location{}, false, err
	}
	lonStr, ok, err := s.store.GetPref(ctx, KeyLastLon)
	if err != nil || !ok {
		return domain.Location{}, false, err
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if err := errors.Join(latErr, lonErr); err != nil {
		return domain.Location{}, false, fmt.Errorf("parse last location: %w", err)
	}
	return domain.Location{Lat: lat, Lon: lon}, true, nil
}

// SetLastLocation remembers loc for the background workers.
func (s *Service) SetLastLocation(ctx context.Context, loc domain.Location) error {
	return s.store.SetPrefs(ctx, map[string]string{
		KeyLastLat: strconv.FormatFloat(loc.Lat, 'f', -1, 64),
		KeyLastLon: strconv.FormatFloat(loc.Lon, 'f', -1, 64),
	})
}

func (s *Service) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.store.GetPref(ctx, key)
	if err != nil {
		return def, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("parse %s %q: %w", key, v, err)
	}
	return b, nil
}
