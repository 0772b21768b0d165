package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// fakeOnboardingRepo satisfies OnboardingRepo with canned values per
// predicate. A nil error with a nil row is not a valid combination; tests set
// gorm.ErrRecordNotFound for absence.
type fakeOnboardingRepo struct {
	profile    *domain.Profile
	profileErr error

	bodyFat    *domain.BodyFatProfile
	bodyFatErr error

	sub    *domain.Subscription
	subErr error

	workoutCount    int64
	workoutCountErr error

	mealPlan    *domain.MealPlan
	mealPlanErr error

	touchedUser string
	touchedAt   time.Time
	touchErr    error
}

func (f *fakeOnboardingRepo) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeOnboardingRepo) GetBodyFatProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.BodyFatProfile, error) {
	return f.bodyFat, f.bodyFatErr
}

func (f *fakeOnboardingRepo) GetLatestSubscription(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	return f.sub, f.subErr
}

func (f *fakeOnboardingRepo) CountWorkoutTemplates(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return f.workoutCount, f.workoutCountErr
}

func (f *fakeOnboardingRepo) GetActiveMealPlan(ctx context.Context, db *gorm.DB, userID string) (*domain.MealPlan, error) {
	return f.mealPlan, f.mealPlanErr
}

func (f *fakeOnboardingRepo) TouchLastLogin(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	f.touchedUser = userID
	f.touchedAt = now
	return f.touchErr
}

func strPtr(s string) *string    { return &s }
func intPtr(n int) *int          { return &n }
func floatPtr(f float64) *float64 { return &f }

// completeProfile returns a profile with every registration field present.
func completeProfile() *domain.Profile {
	return &domain.Profile{
		ID:                 "u1",
		Email:              "u1@example.com",
		Gender:             strPtr("female"),
		Age:                intPtr(30),
		HeightCm:           floatPtr(170),
		WeightKg:           floatPtr(65),
		FitnessLevel:       strPtr("intermediate"),
		TrainingLocation:   strPtr("gym"),
		WorkoutDurationMin: intPtr(45),
		WorkoutFrequency:   intPtr(3),
		MealType:           strPtr("balanced"),
		CalorieGoal:        intPtr(2000),
		MealsPerDay:        intPtr(3),
	}
}

// completedRepo returns a repo where every onboarding requirement is met.
func completedRepo() *fakeOnboardingRepo {
	return &fakeOnboardingRepo{
		profile:      completeProfile(),
		bodyFat:      &domain.BodyFatProfile{ID: "bf1", UserID: "u1", CurrentPct: floatPtr(22), GoalPct: floatPtr(18)},
		sub:          &domain.Subscription{ID: "s1", UserID: "u1", Plan: "monthly", Status: domain.SubscriptionActive},
		workoutCount: 2,
		mealPlan:     &domain.MealPlan{ID: "mp1", UserID: "u1", Name: "Lean", IsActive: true},
	}
}

func TestNextStep_WalksCanonicalOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeOnboardingRepo)
		want   domain.Step
	}{
		{
			name:   "missing profile resolves to registration",
			mutate: func(f *fakeOnboardingRepo) { f.profile, f.profileErr = nil, gorm.ErrRecordNotFound },
			want:   domain.StepRegistration,
		},
		{
			name:   "incomplete basic info resolves to registration",
			mutate: func(f *fakeOnboardingRepo) { f.profile.Age = nil },
			want:   domain.StepRegistration,
		},
		{
			name:   "incomplete workout prefs resolves to registration",
			mutate: func(f *fakeOnboardingRepo) { f.profile.FitnessLevel = nil },
			want:   domain.StepRegistration,
		},
		{
			name:   "incomplete meal prefs resolves to registration",
			mutate: func(f *fakeOnboardingRepo) { f.profile.MealsPerDay = nil },
			want:   domain.StepRegistration,
		},
		{
			name:   "no body fat capture resolves to bodyfat",
			mutate: func(f *fakeOnboardingRepo) { f.bodyFat, f.bodyFatErr = nil, gorm.ErrRecordNotFound },
			want:   domain.StepBodyFat,
		},
		{
			name:   "body fat missing goal pct resolves to bodyfat",
			mutate: func(f *fakeOnboardingRepo) { f.bodyFat.GoalPct = nil },
			want:   domain.StepBodyFat,
		},
		{
			name:   "body fat missing current pct resolves to bodyfat",
			mutate: func(f *fakeOnboardingRepo) { f.bodyFat.CurrentPct = nil },
			want:   domain.StepBodyFat,
		},
		{
			name:   "no subscription resolves to subscription",
			mutate: func(f *fakeOnboardingRepo) { f.sub, f.subErr = nil, gorm.ErrRecordNotFound },
			want:   domain.StepSubscription,
		},
		{
			name:   "latest subscription canceled resolves to subscription",
			mutate: func(f *fakeOnboardingRepo) { f.sub.Status = domain.SubscriptionCanceled },
			want:   domain.StepSubscription,
		},
		{
			name:   "zero workout templates resolves to workouts",
			mutate: func(f *fakeOnboardingRepo) { f.workoutCount = 0 },
			want:   domain.StepWorkouts,
		},
		{
			name:   "no active meal plan resolves to mealplan",
			mutate: func(f *fakeOnboardingRepo) { f.mealPlan, f.mealPlanErr = nil, gorm.ErrRecordNotFound },
			want:   domain.StepMealPlan,
		},
		{
			name:   "everything satisfied resolves to home",
			mutate: func(*fakeOnboardingRepo) {},
			want:   domain.StepHome,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := completedRepo()
			tc.mutate(f)
			svc := NewOnboardingService(nil, f)
			if got := svc.NextStep(context.Background(), "u1"); got != tc.want {
				t.Fatalf("NextStep = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNextStep_FailsClosedOnPredicateErrors(t *testing.T) {
	boom := errors.New("db down")
	tests := []struct {
		name   string
		mutate func(*fakeOnboardingRepo)
	}{
		{"profile read fails", func(f *fakeOnboardingRepo) { f.profileErr = boom }},
		{"body fat read fails", func(f *fakeOnboardingRepo) { f.bodyFatErr = boom }},
		{"subscription read fails", func(f *fakeOnboardingRepo) { f.subErr = boom }},
		{"workout count fails", func(f *fakeOnboardingRepo) { f.workoutCountErr = boom }},
		{"meal plan read fails", func(f *fakeOnboardingRepo) { f.mealPlanErr = boom }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := completedRepo()
			tc.mutate(f)
			svc := NewOnboardingService(nil, f)
			if got := svc.NextStep(context.Background(), "u1"); got != domain.StepRegistration {
				t.Fatalf("NextStep on predicate error = %q, want registration", got)
			}
		})
	}
}

func TestNextStepAfter_StartsAfterCurrentStep(t *testing.T) {
	// Registration is incomplete, but a Continue from the registration screen
	// must not re-check it; the walk starts at bodyfat.
	f := completedRepo()
	f.profile.Age = nil
	f.bodyFat, f.bodyFatErr = nil, gorm.ErrRecordNotFound
	svc := NewOnboardingService(nil, f)

	if got := svc.NextStepAfter(context.Background(), domain.StepRegistration, "u1"); got != domain.StepBodyFat {
		t.Fatalf("NextStepAfter(registration) = %q, want bodyfat", got)
	}
}

func TestNextStepAfter_SkipsStepsSatisfiedMeanwhile(t *testing.T) {
	// A subscription granted externally lets Continue from bodyfat jump
	// straight to the workout step.
	f := completedRepo()
	f.workoutCount = 0
	svc := NewOnboardingService(nil, f)

	if got := svc.NextStepAfter(context.Background(), domain.StepBodyFat, "u1"); got != domain.StepWorkouts {
		t.Fatalf("NextStepAfter(bodyfat) = %q, want workouts", got)
	}
}

func TestNextStepAfter_UnknownStepFallsBackToFullResolve(t *testing.T) {
	f := completedRepo()
	f.profile.Age = nil
	svc := NewOnboardingService(nil, f)

	if got := svc.NextStepAfter(context.Background(), domain.Step("bogus"), "u1"); got != domain.StepRegistration {
		t.Fatalf("NextStepAfter(bogus) = %q, want registration", got)
	}
}

func TestNextStepAfter_HomeIsTerminal(t *testing.T) {
	f := completedRepo()
	svc := NewOnboardingService(nil, f)

	if got := svc.NextStepAfter(context.Background(), domain.StepHome, "u1"); got != domain.StepHome {
		t.Fatalf("NextStepAfter(home) = %q, want home", got)
	}
}

func TestNextStepAfter_AgreesWithNextStepWhenComplete(t *testing.T) {
	f := completedRepo()
	svc := NewOnboardingService(nil, f)

	for _, current := range domain.StepOrder {
		if got := svc.NextStepAfter(context.Background(), current, "u1"); got != domain.StepHome {
			t.Fatalf("NextStepAfter(%q) = %q, want home for a complete user", current, got)
		}
	}
}

func TestStatus_ReportsEachDimension(t *testing.T) {
	f := completedRepo()
	f.workoutCount = 0
	f.bodyFat.GoalPct = nil
	svc := NewOnboardingService(nil, f)

	st, err := svc.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.HasBasicInfo || !st.HasWorkoutPreferences || !st.HasMealPreferences || !st.RegistrationComplete {
		t.Fatalf("registration dimensions wrong: %+v", st)
	}
	if st.HasBodyFat {
		t.Fatalf("body fat with missing goal should not count as complete")
	}
	if !st.HasSubscription || st.HasWorkouts || !st.HasMealPlan {
		t.Fatalf("dimension flags wrong: %+v", st)
	}
	if st.Profile == nil || st.Profile.ID != "u1" {
		t.Fatalf("status should carry the source profile")
	}
}

func TestStatus_MissingProfile(t *testing.T) {
	f := &fakeOnboardingRepo{profileErr: gorm.ErrRecordNotFound}
	svc := NewOnboardingService(nil, f)

	if _, err := svc.Status(context.Background(), "u1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStatus_SurfacesReadErrors(t *testing.T) {
	boom := errors.New("db down")
	f := completedRepo()
	f.subErr = boom
	svc := NewOnboardingService(nil, f)

	if _, err := svc.Status(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Fatalf("expected read error to surface, got %v", err)
	}
}

func TestRecordLogin_StampsUTCNow(t *testing.T) {
	f := completedRepo()
	svc := NewOnboardingService(nil, f)

	before := time.Now().UTC()
	if err := svc.RecordLogin(context.Background(), "u1"); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	after := time.Now().UTC()

	if f.touchedUser != "u1" {
		t.Fatalf("wrong user touched: %q", f.touchedUser)
	}
	if f.touchedAt.Before(before) || f.touchedAt.After(after) {
		t.Fatalf("touched time %v outside [%v, %v]", f.touchedAt, before, after)
	}
	if f.touchedAt.Location() != time.UTC {
		t.Fatalf("login stamp must be UTC")
	}
}

func TestRecordLogin_MissingProfileIsNotAnError(t *testing.T) {
	f := &fakeOnboardingRepo{touchErr: gorm.ErrRecordNotFound}
	svc := NewOnboardingService(nil, f)

	if err := svc.RecordLogin(context.Background(), "ghost"); err != nil {
		t.Fatalf("missing profile should be swallowed, got %v", err)
	}
}

func TestRecordLogin_SurfacesOtherErrors(t *testing.T) {
	boom := errors.New("db down")
	f := &fakeOnboardingRepo{touchErr: boom}
	svc := NewOnboardingService(nil, f)

	if err := svc.RecordLogin(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Fatalf("expected error to surface, got %v", err)
	}
}
