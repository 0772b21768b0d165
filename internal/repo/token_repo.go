// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for device push
// tokens.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// ListDeviceTokens returns all registered push tokens for one user.
func ListDeviceTokens(ctx context.Context, db *gorm.DB, userID string) ([]domain.DeviceToken, error) {
	var out []domain.DeviceToken
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// UpsertDeviceToken registers a push token for a user. Re-registering an
// existing token value re-homes it to the new user (a device may change
// accounts) and refreshes its platform tag.
func UpsertDeviceToken(ctx context.Context, db *gorm.DB, userID, token, platform string) (*domain.DeviceToken, error) {
	now := time.Now().UTC()
	t := &domain.DeviceToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
	}
	err := db.WithContext(ctx).Create(t).Error
	if err == nil {
		return t, nil
	}

	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	if !errors.Is(err, gorm.ErrDuplicatedKey) &&
		!strings.Contains(low, "unique constraint failed") &&
		!strings.Contains(low, "constraint failed: unique") {
		return nil, err
	}

	// Unscoped so a previously unregistered (soft-deleted) token can be
	// revived; the unique index still holds its row.
	res := db.WithContext(ctx).Unscoped().
		Model(&domain.DeviceToken{}).
		Where("token = ?", token).
		Updates(map[string]any{"user_id": userID, "platform": platform, "updated_at": now, "deleted_at": nil})
	if res.Error != nil {
		return nil, res.Error
	}
	var existing domain.DeviceToken
	if err := db.WithContext(ctx).Where("token = ?", token).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// DeleteDeviceToken removes a token owned by userID. Returns ErrNotFound when
// no such token exists for that user.
func DeleteDeviceToken(ctx context.Context, db *gorm.DB, userID, token string) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&domain.DeviceToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
