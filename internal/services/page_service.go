// Package services – PageService
//
// This file implements cached page-data assembly. Each screen's data is
// served through the page cache with a read-through Resource; write paths
// follow a two-phase contract: apply an optimistic projection to the cache so
// the UI can move on immediately, issue the authoritative write, then
// reconcile by invalidating the affected namespaces and re-reading from the
// source of truth. The optimistic value is never trusted long-term.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fitstack/go-fitness-backend/internal/cache"
	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/events"
	"github.com/fitstack/go-fitness-backend/internal/repo"
)

// Page namespaces served by PageService.
const (
	PageHome     = "home"
	PageWorkouts = "workouts"
	PageMealPlan = "mealplan"
	PageProgress = "progress"
)

// pageNames maps namespace ids to human-readable display names.
var pageNames = map[string]string{
	PageHome:     "home",
	PageWorkouts: "workouts",
	PageMealPlan: "meal plan",
	PageProgress: "progress",
}

// titleCaser renders display titles ("meal plan" -> "Meal Plan").
var titleCaser = cases.Title(language.English)

// WorkoutsPageData backs the workout screens.
type WorkoutsPageData struct {
	Title          string                   `json:"title"`
	Templates      []domain.WorkoutTemplate `json:"templates"`
	CompletedToday int64                    `json:"completed_today"`
}

// MealPlanPageData backs the meal-plan screens.
type MealPlanPageData struct {
	Title  string            `json:"title"`
	Active *domain.MealPlan  `json:"active,omitempty"`
	Plans  []domain.MealPlan `json:"plans"`
}

// ProgressPageData backs the streak/progress screen.
type ProgressPageData struct {
	Title            string `json:"title"`
	Streak           int    `json:"streak"`
	WorkoutsThisWeek int64  `json:"workouts_this_week"`
}

// PageService assembles per-screen data through the page cache.
type PageService struct {
	DB    *gorm.DB
	Cache *cache.PageCache

	// Bus, when set, carries post-write invalidation events instead of the
	// service touching the cache itself. NewPageService subscribes the cache
	// to the topic; construct the service through it so the events land
	// somewhere.
	Bus *events.Bus

	// Now is a seam for tests; defaults to time.Now when nil.
	Now func() time.Time
}

// NewPageService constructs a PageService and, when both a cache and a bus
// are given, subscribes the cache to pages-invalidated events. Other
// listeners (metrics, websockets) subscribe to the same topic on their own.
func NewPageService(db *gorm.DB, c *cache.PageCache, bus *events.Bus) *PageService {
	if c != nil && bus != nil {
		bus.Subscribe(events.TopicPagesInvalidated, func(payload any) {
			if pages, ok := payload.([]string); ok {
				c.InvalidateMany(pages)
			}
		})
	}
	return &PageService{DB: db, Cache: c, Bus: bus}
}

// invalidatePages reconciles the cached namespaces after a durable write. The
// invalidation rides the event bus when one is wired so every listener sees
// the same signal; without a bus the cache is invalidated directly.
func (s *PageService) invalidatePages(pages []string) {
	if s.Bus != nil {
		s.Bus.Publish(events.TopicPagesInvalidated, pages)
		return
	}
	s.Cache.InvalidateMany(pages)
}

func (s *PageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Page serves one page's data by namespace id, read-through cached per user.
// Unknown page ids return ErrUnknownPage.
func (s *PageService) Page(ctx context.Context, page, userID string) (cache.Result, error) {
	tr := otel.Tracer("services/PageService")
	ctx, span := tr.Start(ctx, "Page",
		trace.WithAttributes(
			attribute.String("page", page),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	var loader cache.LoaderFunc
	switch page {
	case PageWorkouts:
		loader = func(ctx context.Context) (any, error) { return s.loadWorkouts(ctx, userID) }
	case PageMealPlan:
		loader = func(ctx context.Context) (any, error) { return s.loadMealPlan(ctx, userID) }
	case PageProgress, PageHome:
		loader = func(ctx context.Context) (any, error) { return s.loadProgress(ctx, userID) }
	default:
		return cache.Result{}, ErrUnknownPage
	}

	res := &cache.Resource{Cache: s.Cache, Page: page, Key: userID, Loader: loader}
	out, err := res.Get(ctx)
	span.SetAttributes(attribute.Bool("cache.hit", out.Cached))
	return out, err
}

// CompleteWorkout records a finished session and bumps the streak when it is
// the first workout of the day. The cached progress page gets an optimistic
// projection first; after the durable write all affected namespaces are
// invalidated and the result is re-read from the database.
func (s *PageService) CompleteWorkout(ctx context.Context, userID, templateID string, durationMin int) (*ProgressPageData, error) {
	tr := otel.Tracer("services/PageService")
	ctx, span := tr.Start(ctx, "CompleteWorkout",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("template.id", templateID),
		),
	)
	defer span.End()

	if _, err := repo.GetWorkoutTemplate(ctx, s.DB, templateID, userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	profile, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today, err := repo.CountWorkoutLogsSince(ctx, s.DB, userID, startOfDay(now))
	if err != nil {
		return nil, err
	}
	newStreak := profile.CurrentStreak
	if today == 0 {
		newStreak++
	}

	// Phase 1: optimistic projection so the UI reflects the action at once.
	s.Cache.Set(PageProgress, userID, &ProgressPageData{
		Title:  pageTitle(PageProgress),
		Streak: newStreak,
	}, 0)

	// Phase 2: authoritative write.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateWorkoutLog(ctx, tx, &domain.WorkoutLog{
			UserID:      userID,
			TemplateID:  templateID,
			CompletedAt: now,
			DurationMin: durationMin,
		}); err != nil {
			return err
		}
		if newStreak != profile.CurrentStreak {
			return repo.UpdateStreak(ctx, tx, userID, newStreak)
		}
		return nil
	})
	if err != nil {
		// Discard the projection; the next read resolves the truth.
		s.Cache.Invalidate(PageProgress, userID)
		return nil, err
	}

	// Phase 3: reconcile from the source of truth.
	s.invalidatePages([]string{PageHome, PageWorkouts, PageProgress})
	return s.loadProgress(ctx, userID)
}

// LogMeal records a logged meal and reconciles the meal-plan and home pages.
func (s *PageService) LogMeal(ctx context.Context, userID, name string, calories int) (*MealPlanPageData, error) {
	tr := otel.Tracer("services/PageService")
	ctx, span := tr.Start(ctx, "LogMeal",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	planID := ""
	if plan, err := repo.GetActiveMealPlan(ctx, s.DB, userID); err == nil {
		planID = plan.ID
	}

	err := repo.CreateMealLog(ctx, s.DB, &domain.MealLog{
		UserID:   userID,
		PlanID:   planID,
		Name:     name,
		Calories: calories,
		LoggedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePages([]string{PageHome, PageMealPlan})
	return s.loadMealPlan(ctx, userID)
}

func (s *PageService) loadWorkouts(ctx context.Context, userID string) (*WorkoutsPageData, error) {
	templates, err := repo.ListWorkoutTemplates(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	today, err := repo.CountWorkoutLogsSince(ctx, s.DB, userID, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}
	return &WorkoutsPageData{
		Title:          pageTitle(PageWorkouts),
		Templates:      templates,
		CompletedToday: today,
	}, nil
}

func (s *PageService) loadMealPlan(ctx context.Context, userID string) (*MealPlanPageData, error) {
	plans, err := repo.ListMealPlans(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	data := &MealPlanPageData{Title: pageTitle(PageMealPlan), Plans: plans}
	for i := range plans {
		if plans[i].IsActive {
			data.Active = &plans[i]
			break
		}
	}
	return data, nil
}

func (s *PageService) loadProgress(ctx context.Context, userID string) (*ProgressPageData, error) {
	profile, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	week, err := repo.CountWorkoutLogsSince(ctx, s.DB, userID, startOfDay(s.now()).AddDate(0, 0, -6))
	if err != nil {
		return nil, err
	}
	return &ProgressPageData{
		Title:            pageTitle(PageProgress),
		Streak:           profile.CurrentStreak,
		WorkoutsThisWeek: week,
	}, nil
}

// pageTitle renders the display title for a page namespace.
func pageTitle(page string) string {
	name, ok := pageNames[page]
	if !ok {
		name = page
	}
	return titleCaser.String(name)
}
