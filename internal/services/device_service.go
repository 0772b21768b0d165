// Package services – DeviceService
//
// Registration and removal of device push tokens. Thin by design: the only
// business rules are payload validation and the platform allowlist.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/repo"
)

// DeviceService manages device push-token registration.
type DeviceService struct {
	DB *gorm.DB
}

// Register stores (or re-homes) a push token for userID. The platform must
// be "ios" or "android".
func (s *DeviceService) Register(ctx context.Context, userID, token, platform string) (*domain.DeviceToken, error) {
	token = strings.TrimSpace(token)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if token == "" || (platform != "ios" && platform != "android") {
		return nil, ErrInvalidDevice
	}
	return repo.UpsertDeviceToken(ctx, s.DB, userID, token, platform)
}

// Unregister removes a token owned by userID. Removing a token that does not
// exist is reported as gorm.ErrRecordNotFound by the repo layer and passed
// through for the handler to map.
func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	return repo.DeleteDeviceToken(ctx, s.DB, userID, strings.TrimSpace(token))
}
