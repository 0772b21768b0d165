// Package services – OnboardingService
//
// This file implements the onboarding resolver: given a user id, it computes
// the single next onboarding screen from the persisted profile, body-fat,
// subscription, workout, and meal-plan state. Resolution walks a canonical
// linear step order and returns the first unmet requirement; a "continue"
// entry point re-runs the same walk starting after the caller's current
// screen, so steps satisfied in the meantime (e.g., a subscription granted
// externally) are skipped.
//
// The resolver is deliberately conservative: it never returns an error to its
// caller. Any predicate that cannot be evaluated (database failure, missing
// profile) resolves to the registration step, which can only re-ask the user
// for data that is already known. Being asked twice is annoying; being stuck
// on a broken screen is worse.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// OnboardingRepo defines the repository contract required by OnboardingService.
// Each method backs exactly one resolver predicate.
type OnboardingRepo interface {
	// GetProfile fetches the profile row holding basic info and preferences.
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)

	// GetBodyFatProfile fetches the body-fat capture, if any.
	GetBodyFatProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.BodyFatProfile, error)

	// GetLatestSubscription returns the most recent subscription row.
	GetLatestSubscription(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error)

	// CountWorkoutTemplates counts the user's saved workout templates.
	CountWorkoutTemplates(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// GetActiveMealPlan returns the meal plan with is_active = true, if any.
	GetActiveMealPlan(ctx context.Context, db *gorm.DB, userID string) (*domain.MealPlan, error)

	// TouchLastLogin stamps the profile's last_login_at column.
	TouchLastLogin(ctx context.Context, db *gorm.DB, userID string, now time.Time) error
}

// OnboardingService resolves the next onboarding step for a user.
type OnboardingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the predicate repository used by this service.
	Repo OnboardingRepo
}

// NewOnboardingService constructs an OnboardingService.
func NewOnboardingService(db *gorm.DB, r OnboardingRepo) *OnboardingService {
	return &OnboardingService{DB: db, Repo: r}
}

// NextStep resolves the next onboarding screen from scratch. The first unmet
// requirement in the canonical order wins; a user with everything satisfied
// resolves to StepHome. Never returns an error: unresolvable state yields
// StepRegistration.
func (s *OnboardingService) NextStep(ctx context.Context, userID string) domain.Step {
	tr := otel.Tracer("services/OnboardingService")
	ctx, span := tr.Start(ctx, "NextStep",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	step := s.resolveFrom(ctx, userID, 0)
	span.SetAttributes(attribute.String("onboarding.step", string(step)))
	return step
}

// NextStepAfter resolves the next screen for a "Continue" action from
// current: the same checks run, but starting from the step after current in
// the canonical order. An unknown current step falls back to a from-scratch
// resolution. Never returns an error.
func (s *OnboardingService) NextStepAfter(ctx context.Context, current domain.Step, userID string) domain.Step {
	tr := otel.Tracer("services/OnboardingService")
	ctx, span := tr.Start(ctx, "NextStepAfter",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("onboarding.current", string(current)),
		),
	)
	defer span.End()

	idx := domain.StepIndex(current)
	if idx < 0 {
		return s.resolveFrom(ctx, userID, 0)
	}
	step := s.resolveFrom(ctx, userID, idx+1)
	span.SetAttributes(attribute.String("onboarding.step", string(step)))
	return step
}

// RecordLogin stamps the user's last_login_at with the current time. The
// no-login inactivity trigger keys off this column, so every authenticated
// entry point should call it. A missing profile is not an error here.
func (s *OnboardingService) RecordLogin(ctx context.Context, userID string) error {
	tr := otel.Tracer("services/OnboardingService")
	ctx, span := tr.Start(ctx, "RecordLogin",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	err := s.Repo.TouchLastLogin(ctx, s.DB, userID, time.Now().UTC())
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	return err
}

// Status reports the completeness of every onboarding dimension
// independently, for diagnostic display. Unlike NextStep it surfaces read
// errors, since its callers want to know the data is unavailable rather than
// receive a safe default.
func (s *OnboardingService) Status(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	tr := otel.Tracer("services/OnboardingService")
	ctx, span := tr.Start(ctx, "Status",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	profile, err := s.Repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	st := &domain.OnboardingStatus{
		HasBasicInfo:          profile.HasBasicInfo(),
		HasWorkoutPreferences: profile.HasWorkoutPreferences(),
		HasMealPreferences:    profile.HasMealPreferences(),
		Profile:               profile,
	}
	st.RegistrationComplete = st.HasBasicInfo && st.HasWorkoutPreferences && st.HasMealPreferences

	if st.HasBodyFat, err = s.hasBodyFat(ctx, userID); err != nil {
		return nil, err
	}
	if st.HasSubscription, err = s.hasActiveSubscription(ctx, userID); err != nil {
		return nil, err
	}
	if st.HasWorkouts, err = s.hasWorkouts(ctx, userID); err != nil {
		return nil, err
	}
	if st.HasMealPlan, err = s.hasMealPlan(ctx, userID); err != nil {
		return nil, err
	}
	return st, nil
}

// resolveFrom walks the canonical step order starting at index from and
// returns the first step whose requirement is unmet. Any predicate failure
// resolves to StepRegistration (fail closed).
func (s *OnboardingService) resolveFrom(ctx context.Context, userID string, from int) domain.Step {
	for i := from; i < len(domain.StepOrder); i++ {
		switch step := domain.StepOrder[i]; step {
		case domain.StepRegistration:
			profile, err := s.Repo.GetProfile(ctx, s.DB, userID)
			if err != nil {
				return domain.StepRegistration
			}
			if !(profile.HasBasicInfo() && profile.HasWorkoutPreferences() && profile.HasMealPreferences()) {
				return domain.StepRegistration
			}

		case domain.StepBodyFat:
			ok, err := s.hasBodyFat(ctx, userID)
			if err != nil {
				return domain.StepRegistration
			}
			if !ok {
				return domain.StepBodyFat
			}

		case domain.StepSubscription:
			ok, err := s.hasActiveSubscription(ctx, userID)
			if err != nil {
				return domain.StepRegistration
			}
			if !ok {
				return domain.StepSubscription
			}

		case domain.StepWorkouts:
			ok, err := s.hasWorkouts(ctx, userID)
			if err != nil {
				return domain.StepRegistration
			}
			if !ok {
				return domain.StepWorkouts
			}

		case domain.StepMealPlan:
			ok, err := s.hasMealPlan(ctx, userID)
			if err != nil {
				return domain.StepRegistration
			}
			if !ok {
				return domain.StepMealPlan
			}

		case domain.StepHome:
			return domain.StepHome
		}
	}
	return domain.StepHome
}

// hasBodyFat requires BOTH current and goal percentages; either alone does
// not complete the capture step.
func (s *OnboardingService) hasBodyFat(ctx context.Context, userID string) (bool, error) {
	b, err := s.Repo.GetBodyFatProfile(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return b.CurrentPct != nil && b.GoalPct != nil, nil
}

// hasActiveSubscription checks the most recent subscription row only.
func (s *OnboardingService) hasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	sub, err := s.Repo.GetLatestSubscription(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return sub.Status == domain.SubscriptionActive, nil
}

func (s *OnboardingService) hasWorkouts(ctx context.Context, userID string) (bool, error) {
	n, err := s.Repo.CountWorkoutTemplates(ctx, s.DB, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *OnboardingService) hasMealPlan(ctx context.Context, userID string) (bool, error) {
	_, err := s.Repo.GetActiveMealPlan(ctx, s.DB, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
