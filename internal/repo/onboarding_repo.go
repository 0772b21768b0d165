// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read queries behind the onboarding
// resolver's predicates: body-fat capture, subscription state, saved workout
// templates, and the active meal plan.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// GetBodyFatProfile fetches a user's body-fat profile, or ErrNotFound if the
// capture screen was never completed.
func GetBodyFatProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.BodyFatProfile, error) {
	var b domain.BodyFatProfile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBodyFatProfile creates or replaces a user's body-fat profile.
func UpsertBodyFatProfile(ctx context.Context, db *gorm.DB, b *domain.BodyFatProfile) error {
	var existing domain.BodyFatProfile
	err := db.WithContext(ctx).Where("user_id = ?", b.UserID).First(&existing).Error
	if err == nil {
		return db.WithContext(ctx).
			Model(&existing).
			Updates(map[string]any{"current_pct": b.CurrentPct, "goal_pct": b.GoalPct}).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return db.WithContext(ctx).Create(b).Error
}

// GetLatestSubscription returns the user's most recent subscription row by
// creation time, or ErrNotFound when the user never subscribed. A user may
// hold several rows (renewals, cancellations); only the newest one counts.
func GetLatestSubscription(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubscription inserts a subscription row.
func CreateSubscription(ctx context.Context, db *gorm.DB, s *domain.Subscription) error {
	return db.WithContext(ctx).Create(s).Error
}

// CountWorkoutTemplates returns the number of workout templates a user has
// saved. The onboarding predicate only needs count > 0.
func CountWorkoutTemplates(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.WorkoutTemplate{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// GetActiveMealPlan returns the user's active meal plan, or ErrNotFound when
// no plan is marked active.
func GetActiveMealPlan(ctx context.Context, db *gorm.DB, userID string) (*domain.MealPlan, error) {
	var m domain.MealPlan
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
