// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model, including the engagement queries the notification pipeline matches
// users against.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a profile is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetProfile fetches a profile by user id, or ErrNotFound if missing.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts a new profile row. The caller supplies the id
// (typically the external auth user id).
func CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(p).Error
}

// TouchLastLogin stamps the user's last_login_at with now.
func TouchLastLogin(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", userID).
		Update("last_login_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateStreak sets the user's current workout streak.
func UpdateStreak(ctx context.Context, db *gorm.DB, userID string, streak int) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", userID).
		Update("current_streak", streak)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUserIDs returns the ids of all profiles, ordered by creation time.
// Used by broadcast triggers and the ad-hoc broadcast path.
func ListUserIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}

// ListInactiveUserIDs returns ids of users whose last login is strictly
// before cutoff, including users who never logged in. The comparison is
// strict: a login exactly at the cutoff does not match.
func ListInactiveUserIDs(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("last_login_at IS NULL OR last_login_at < ?", cutoff).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}

// ListUserIDsWithStreak returns ids of users whose current streak equals
// exactly the given milestone.
func ListUserIDsWithStreak(ctx context.Context, db *gorm.DB, streak int) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("current_streak = ?", streak).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}
