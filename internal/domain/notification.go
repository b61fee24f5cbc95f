package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds.
const (
	KindBriefing   = "briefing"
	KindSmartAlert = "smart_alert"
)

// Notification is a message produced by a worker for delivery to the user.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification stamps a notification with a fresh ID and the current time.
func NewNotification(kind, title, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: clock.Now().UTC(),
	}
}

// NotificationSettings are the user's notification switches. The master
// switch gates both alarm briefings and smart alerts.
type NotificationSettings struct {
	MasterEnabled     bool `json:"master_enabled"`
	UserAlarmEnabled  bool `json:"user_alarm_enabled"`
	SmartAlertEnabled bool `json:"smart_alert_enabled"`
}

// DefaultNotificationSettings has every switch on.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{MasterEnabled: true, UserAlarmEnabled: true, SmartAlertEnabled: true}
}

// BriefingsAllowed reports whether alarm briefings may be sent.
func (s NotificationSettings) BriefingsAllowed() bool {
	return s.MasterEnabled && s.UserAlarmEnabled
}

// SmartAlertsAllowed reports whether smart alerts may be sent.
func (s NotificationSettings) SmartAlertsAllowed() bool {
	return s.MasterEnabled && s.SmartAlertEnabled
}
