// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers activity rows (workout templates, workout
// logs, meal plans, meal logs) and the "nobody logged X since" queries that
// drive the behavior triggers.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// CreateWorkoutTemplate inserts a saved workout template for a user.
func CreateWorkoutTemplate(ctx context.Context, db *gorm.DB, userID, name, focus string) (*domain.WorkoutTemplate, error) {
	w := &domain.WorkoutTemplate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Focus:     focus,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkoutTemplates returns all templates for a user, newest first.
func ListWorkoutTemplates(ctx context.Context, db *gorm.DB, userID string) ([]domain.WorkoutTemplate, error) {
	var out []domain.WorkoutTemplate
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetWorkoutTemplate fetches a single template owned by userID.
func GetWorkoutTemplate(ctx context.Context, db *gorm.DB, id, userID string) (*domain.WorkoutTemplate, error) {
	var w domain.WorkoutTemplate
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWorkoutLog records one completed workout session.
func CreateWorkoutLog(ctx context.Context, db *gorm.DB, l *domain.WorkoutLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// CountWorkoutLogsSince counts a user's workout logs completed at or after since.
func CountWorkoutLogsSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.WorkoutLog{}).
		Where("user_id = ? AND completed_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

// ListUserIDsWithoutWorkoutSince returns ids of users with no workout log
// completed at or after since. Matching is done with a NOT IN subquery so the
// evaluation order stays the profile creation order.
func ListUserIDsWithoutWorkoutSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error) {
	sub := db.Model(&domain.WorkoutLog{}).
		Select("user_id").
		Where("completed_at >= ?", since)

	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id NOT IN (?)", sub).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}

// ListMealPlans returns all meal plans for a user, active first.
func ListMealPlans(ctx context.Context, db *gorm.DB, userID string) ([]domain.MealPlan, error) {
	var out []domain.MealPlan
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_active desc, created_at desc").
		Find(&out).Error
	return out, err
}

// CreateMealPlan inserts a meal plan row.
func CreateMealPlan(ctx context.Context, db *gorm.DB, m *domain.MealPlan) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(m).Error
}

// CreateMealLog records one logged meal.
func CreateMealLog(ctx context.Context, db *gorm.DB, l *domain.MealLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(l).Error
}

// ListUserIDsWithoutMealSince returns ids of users with no meal logged at or
// after since.
func ListUserIDsWithoutMealSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error) {
	sub := db.Model(&domain.MealLog{}).
		Select("user_id").
		Where("logged_at >= ?", since)

	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id NOT IN (?)", sub).
		Order("created_at asc").
		Pluck("id", &ids).Error
	return ids, err
}
