// Package domain defines the persistence models for the fitness backend.
// This file covers the notification subsystem: device push tokens, declarative
// triggers, and the per-user notification log written by the pipeline.
package domain

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Trigger types understood by the pipeline. A streak-milestone trigger encodes
// its threshold in the type string, e.g. "streak_milestone_7".
const (
	TriggerNoLogin3Days   = "no_login_3_days"
	TriggerNoWorkoutToday = "no_workout_today"
	TriggerNoMealToday    = "no_meal_today"
	TriggerWeeklySummary  = "weekly_summary"
	TriggerDailyReminder  = "daily_reminder"

	// triggerStreakPrefix prefixes streak-milestone trigger types.
	triggerStreakPrefix = "streak_milestone_"
)

// StreakMilestone extracts the milestone threshold from a
// "streak_milestone_<N>" trigger type. It returns (0, false) for any other
// type or a malformed suffix.
func StreakMilestone(triggerType string) (int, bool) {
	if !strings.HasPrefix(triggerType, triggerStreakPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(triggerType, triggerStreakPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Notification log statuses. A log row is written as draft and transitions to
// sent exactly once; no other mutation is permitted after creation.
const (
	NotificationDraft = "draft"
	NotificationSent  = "sent"
)

// DeviceToken is one registered push token for a user's device. A user may
// hold zero, one, or many tokens; the token value itself is globally unique.
type DeviceToken struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"  gorm:"type:char(36);not null;index:idx_user_tokens"`
	Token     string         `json:"token"    gorm:"type:varchar(255);not null;uniqueIndex:ux_device_token"`
	Platform  string         `json:"platform" gorm:"type:varchar(16);not null;check:platform IN ('ios','android')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

// TableName returns the database table name for DeviceToken.
func (DeviceToken) TableName() string { return "device_tokens" }

// NotificationTrigger is a declarative rule evaluated by the scheduled
// pipeline: when its user-behavior condition matches, the configured title
// and message are logged and pushed. Triggers are read-only from the
// pipeline's perspective; the admin dashboard owns their lifecycle.
type NotificationTrigger struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	TriggerType string         `json:"trigger_type" gorm:"type:varchar(64);not null;index"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	Message     string         `json:"message"      gorm:"type:text;not null"`
	Type        string         `json:"type"         gorm:"type:varchar(32);not null;default:'reminder'"`
	// IsActive carries no column default: GORM omits zero-valued fields from
	// INSERTs, so a default of true would silently flip deactivated triggers
	// back on when they are created inactive.
	IsActive    bool           `json:"is_active"    gorm:"not null;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for NotificationTrigger.
func (NotificationTrigger) TableName() string { return "notification_triggers" }

// NotificationLog is the durable record of one notification addressed to one
// user. Exactly one row is written per (trigger, matched user) per pipeline
// run, whether or not the user has any push-capable device; push delivery
// failure never suppresses the row.
//
// Rows are immutable after creation except for the draft -> sent status
// transition recorded once delivery has been attempted.
type NotificationLog struct {
	ID        string     `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string     `json:"user_id"  gorm:"type:char(36);not null;index:idx_user_notifications,priority:1"`
	TriggerID *string    `json:"trigger_id,omitempty" gorm:"type:char(36);index"`
	Title     string     `json:"title"    gorm:"type:varchar(255);not null"`
	Message   string     `json:"message"  gorm:"type:text;not null"`
	Type      string     `json:"type"     gorm:"type:varchar(32);not null"`
	Status    string     `json:"status"   gorm:"type:varchar(16);not null;default:'draft';check:status IN ('draft','sent')"`
	Metadata  string     `json:"metadata,omitempty" gorm:"type:text"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_user_notifications,priority:2"`
}

// TableName returns the database table name for NotificationLog.
func (NotificationLog) TableName() string { return "notification_logs" }
