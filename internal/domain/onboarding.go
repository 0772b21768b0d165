package domain

// Step identifies one onboarding screen. Steps form a fixed linear order;
// the resolver walks them front to back and returns the first unmet one.
type Step string

// Onboarding steps in canonical order. StepHome is terminal.
const (
	StepRegistration Step = "registration"
	StepBodyFat      Step = "bodyfat"
	StepSubscription Step = "subscription"
	StepWorkouts     Step = "workouts"
	StepMealPlan     Step = "mealplan"
	StepHome         Step = "home"
)

// StepOrder is the canonical linear order used by both resolver entry points.
// "Continue" navigation starts from the step after the current one; from-
// scratch resolution starts from the front. Both agree on StepHome once every
// requirement is satisfied.
var StepOrder = []Step{
	StepRegistration,
	StepBodyFat,
	StepSubscription,
	StepWorkouts,
	StepMealPlan,
	StepHome,
}

// StepIndex returns the position of s in StepOrder, or -1 when unknown.
func StepIndex(s Step) int {
	for i, v := range StepOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// OnboardingStatus is a derived view over a user's persisted profile,
// subscription, workout, and meal records. It is computed fresh on every
// call and never persisted or cached.
type OnboardingStatus struct {
	HasBasicInfo          bool `json:"has_basic_info"`
	HasWorkoutPreferences bool `json:"has_workout_preferences"`
	HasMealPreferences    bool `json:"has_meal_preferences"`
	RegistrationComplete  bool `json:"registration_complete"`
	HasBodyFat            bool `json:"has_body_fat"`
	HasSubscription       bool `json:"has_subscription"`
	HasWorkouts           bool `json:"has_workouts"`
	HasMealPlan           bool `json:"has_meal_plan"`

	// Profile is the row the predicates above were computed from.
	Profile *Profile `json:"profile,omitempty"`
}
