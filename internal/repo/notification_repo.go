// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for notification
// triggers and the notification log written by the pipeline.
//
// Error semantics follow the package convention: ErrNotFound for missing
// rows, raw gorm errors otherwise.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// ListActiveTriggers returns every trigger with is_active = true, in creation
// order. The pipeline treats these rows as read-only.
func ListActiveTriggers(ctx context.Context, db *gorm.DB) ([]domain.NotificationTrigger, error) {
	var out []domain.NotificationTrigger
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CreateTrigger inserts a trigger row. Owned by the admin dashboard; exposed
// here mainly for seeding and tests.
func CreateTrigger(ctx context.Context, db *gorm.DB, t *domain.NotificationTrigger) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(t).Error
}

// CreateNotificationLog inserts a draft log row for one (user, notification).
// The row is the durable record of the notification and must exist whether or
// not any push token does.
func CreateNotificationLog(ctx context.Context, db *gorm.DB, l *domain.NotificationLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = domain.NotificationDraft
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// MarkNotificationSent transitions a log row draft -> sent and stamps
// sent_at. It is the only permitted mutation of a notification log.
func MarkNotificationSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.NotificationLog{}).
		Where("id = ? AND status = ?", id, domain.NotificationDraft).
		Updates(map[string]any{"status": domain.NotificationSent, "sent_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountNotifications returns the total log rows for a user.
func CountNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.NotificationLog{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// ListNotificationsPage returns a page of a user's notification log, newest
// first. Use CountNotifications for pagination metadata.
func ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.NotificationLog, error) {
	var out []domain.NotificationLog
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// NotificationStats returns aggregate log counts for the admin dashboard:
// total rows and how many have reached the sent status.
func NotificationStats(ctx context.Context, db *gorm.DB) (total, sent int64, err error) {
	q := db.WithContext(ctx).Model(&domain.NotificationLog{})
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	err = db.WithContext(ctx).
		Model(&domain.NotificationLog{}).
		Where("status = ?", domain.NotificationSent).
		Count(&sent).Error
	return total, sent, err
}
