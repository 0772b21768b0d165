// Page-data HTTP handlers.
//
// This file exposes REST endpoints for the cached page-data reads and the
// activity writes that invalidate them:
//   - GET  /pages/{page}               (cached read-through page data)
//   - POST /workouts/{id}/complete     (record a session, bump the streak)
//   - POST /meals/log                  (record a meal)
//
// Reads report whether they were served from cache and whether the payload
// is stale (served from an expired entry because the database read failed).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitstack/go-fitness-backend/internal/cache"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// PageDataService defines the cached page reads and activity writes consumed
// by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PageDataService interface {
	// Page serves one page's data by namespace id, read-through cached.
	Page(ctx context.Context, page, userID string) (cache.Result, error)
	// CompleteWorkout records a finished session and returns fresh progress.
	CompleteWorkout(ctx context.Context, userID, templateID string, durationMin int) (*services.ProgressPageData, error)
	// LogMeal records a meal and returns the fresh meal-plan page.
	LogMeal(ctx context.Context, userID, name string, calories int) (*services.MealPlanPageData, error)
}

//
// DTOs
//

// PageResponse wraps one page's data with cache provenance flags.
type PageResponse struct {
	// Page is the namespace id that was requested.
	Page string `json:"page" example:"mealplan"`
	// Data is the page payload.
	Data any `json:"data"`
	// Cached reports whether the payload came from the in-memory cache.
	Cached bool `json:"cached"`
	// Stale reports whether an expired cache entry was served because the
	// underlying read failed.
	Stale bool `json:"stale,omitempty"`
}

// CompleteWorkoutRequest is the JSON payload for completing a workout.
type CompleteWorkoutRequest struct {
	// DurationMin is the session length in minutes.
	DurationMin int `json:"duration_min" binding:"required,min=1" example:"45"`
}

// LogMealRequest is the JSON payload for logging a meal.
type LogMealRequest struct {
	// Name identifies the meal (1-255 chars).
	Name string `json:"name" binding:"required,min=1,max=255" example:"Chicken and rice"`
	// Calories is the meal's energy content.
	Calories int `json:"calories" binding:"required,min=1" example:"650"`
}

//
// Handlers
//

// GetPage godoc
// @ID          getPage
// @Summary     Fetch one page's data
// @Description Returns the data backing a mobile page, served from the per-user cache when fresh.
// @Tags        Pages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       path    string  true  "Page id"  Enums(home, workouts, mealplan, progress)
//
// @Success     200  {object}  handlers.PageResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown page"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pages/{page} [get]
func (h *Handlers) GetPage(c *gin.Context) {
	page := strings.ToLower(strings.TrimSpace(c.Param("page")))

	res, err := h.pageSvc.Page(c.Request.Context(), page, userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUnknownPage) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown page")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, PageResponse{
		Page:   page,
		Data:   res.Data,
		Cached: res.Cached,
		Stale:  res.Stale,
	})
}

// CompleteWorkout godoc
// @ID          completeWorkout
// @Summary     Complete a workout session
// @Description Records a finished session against a workout template, bumps the daily streak, and returns the refreshed progress page.
// @Tags        Workouts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Workout template ID (UUID)"  format(uuid)
// @Param       body       body    handlers.CompleteWorkoutRequest  true  "Session details"
//
// @Success     200  {object}  services.ProgressPageData
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Workout not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /workouts/{id}/complete [post]
func (h *Handlers) CompleteWorkout(c *gin.Context) {
	templateID := c.Param("id")
	if _, err := uuid.Parse(templateID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "workout id must be a UUID")
		return
	}

	var req CompleteWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DurationMin < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "duration_min required (>= 1)")
		return
	}

	progress, err := h.pageSvc.CompleteWorkout(c.Request.Context(), userID(c), templateID, req.DurationMin)
	if err != nil {
		if errors.Is(err, services.ErrWorkoutNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "workout not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLogFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, progress)
}

// LogMeal godoc
// @ID          logMeal
// @Summary     Log a meal
// @Description Records a meal against the user's active plan and returns the refreshed meal-plan page.
// @Tags        Meals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.LogMealRequest  true  "Meal details"
//
// @Success     200  {object}  services.MealPlanPageData
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /meals/log [post]
func (h *Handlers) LogMeal(c *gin.Context) {
	var req LogMealRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || req.Calories < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and calories (>= 1) required")
		return
	}

	plan, err := h.pageSvc.LogMeal(c.Request.Context(), userID(c), strings.TrimSpace(req.Name), req.Calories)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeLogFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, plan)
}
