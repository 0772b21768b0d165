// Package domain defines the persistence models for user profiles,
// onboarding state, subscriptions, workouts, and meal plans. These types are
// mapped with GORM and form the core data layer of the fitness backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Profile represents a user's account-level fitness profile. One row exists
// per user; the primary key is the external auth user id.
//
// Three groups of fields drive the onboarding resolver:
//   - basic info: Gender, Age, HeightCm, WeightKg
//   - workout preferences: FitnessLevel, TrainingLocation,
//     WorkoutDurationMin, WorkoutFrequency
//   - meal preferences: MealType, CalorieGoal, MealsPerDay
//
// All preference fields are nullable: a NULL means the corresponding
// registration step has not been completed yet.
type Profile struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email     string         `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName string         `json:"first_name" gorm:"type:varchar(100)"`

	// Basic info
	Gender   *string  `json:"gender,omitempty"    gorm:"type:varchar(16)"`
	Age      *int     `json:"age,omitempty"`
	HeightCm *float64 `json:"height_cm,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`

	// Workout preferences
	FitnessLevel       *string `json:"fitness_level,omitempty"     gorm:"type:varchar(32)"`
	TrainingLocation   *string `json:"training_location,omitempty" gorm:"type:varchar(32)"`
	WorkoutDurationMin *int    `json:"workout_duration_min,omitempty"`
	WorkoutFrequency   *int    `json:"workout_frequency,omitempty"`

	// Meal preferences
	MealType    *string `json:"meal_type,omitempty" gorm:"type:varchar(32)"`
	CalorieGoal *int    `json:"calorie_goal,omitempty"`
	MealsPerDay *int    `json:"meals_per_day,omitempty"`

	// Engagement
	IsAdmin       bool       `json:"is_admin"       gorm:"not null;default:false"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" gorm:"index"`
	CurrentStreak int        `json:"current_streak" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// HasBasicInfo reports whether all basic-info fields are present.
func (p *Profile) HasBasicInfo() bool {
	return p.Gender != nil && p.Age != nil && p.HeightCm != nil && p.WeightKg != nil
}

// HasWorkoutPreferences reports whether all workout-preference fields are present.
func (p *Profile) HasWorkoutPreferences() bool {
	return p.FitnessLevel != nil && p.TrainingLocation != nil &&
		p.WorkoutDurationMin != nil && p.WorkoutFrequency != nil
}

// HasMealPreferences reports whether all meal-preference fields are present.
func (p *Profile) HasMealPreferences() bool {
	return p.MealType != nil && p.CalorieGoal != nil && p.MealsPerDay != nil
}

// BodyFatProfile holds a user's current and goal body-fat percentages,
// captured on the body-fat onboarding screen. Both values are required for
// the onboarding step to count as complete; either alone is insufficient.
type BodyFatProfile struct {
	ID         string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id" gorm:"type:char(36);not null;uniqueIndex"`
	CurrentPct *float64       `json:"current_pct,omitempty"`
	GoalPct    *float64       `json:"goal_pct,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for BodyFatProfile.
func (BodyFatProfile) TableName() string { return "body_fat_profiles" }

// Subscription statuses. Only an active subscription satisfies the paywall
// onboarding step; a user may accumulate multiple rows over time and the most
// recent one (by creation time) is authoritative.
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

// Subscription represents one purchased (or granted) subscription period.
type Subscription struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:char(36);not null;index:idx_user_subs"`
	Plan      string         `json:"plan"    gorm:"type:varchar(64);not null"`
	Status    string         `json:"status"  gorm:"type:varchar(16);not null;check:status IN ('active','canceled','expired')"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// WorkoutTemplate is a saved workout a user picked on the workout-selection
// screen. Having at least one template completes the workout onboarding step.
type WorkoutTemplate struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:char(36);not null;index:idx_user_workouts"`
	Name      string         `json:"name"    gorm:"type:varchar(255);not null"`
	Focus     string         `json:"focus"   gorm:"type:varchar(64)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for WorkoutTemplate.
func (WorkoutTemplate) TableName() string { return "workout_templates" }

// WorkoutLog records one completed workout session. The notification
// pipeline's "no workout logged today" trigger and the streak counter are
// both derived from these rows.
type WorkoutLog struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:char(36);not null;index:idx_user_workout_logs,priority:1"`
	TemplateID  string    `json:"template_id"  gorm:"type:char(36);not null"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null;index:idx_user_workout_logs,priority:2"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for WorkoutLog.
func (WorkoutLog) TableName() string { return "workout_logs" }

// MealPlan is a user's selected meal plan. Exactly one plan per user is
// expected to be active; the onboarding resolver only checks IsActive.
type MealPlan struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:char(36);not null;index:idx_user_mealplans"`
	Name      string         `json:"name"      gorm:"type:varchar(255);not null"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:false;index"`
	Calories  int            `json:"calories"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for MealPlan.
func (MealPlan) TableName() string { return "meal_plans" }

// MealLog records one logged meal, feeding the "no meal logged today" trigger.
type MealLog struct {
	ID       string    `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID   string    `json:"user_id"   gorm:"type:char(36);not null;index:idx_user_meal_logs,priority:1"`
	PlanID   string    `json:"plan_id"   gorm:"type:char(36)"`
	Name     string    `json:"name"      gorm:"type:varchar(255)"`
	Calories int       `json:"calories"`
	LoggedAt time.Time `json:"logged_at" gorm:"not null;index:idx_user_meal_logs,priority:2"`
}

// TableName returns the database table name for MealLog.
func (MealLog) TableName() string { return "meal_logs" }
