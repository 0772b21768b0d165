// Onboarding HTTP handlers.
//
// This file exposes REST endpoints for onboarding resolution:
//   - GET  /onboarding/next      (resolve the next screen from scratch)
//   - POST /onboarding/continue  (resolve the screen after the current one)
//   - GET  /onboarding/status    (per-dimension completeness diagnostics)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The resolver endpoints never
// surface 5xx for resolution itself: the service resolves unreadable state to
// the registration step.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/services"
	"github.com/fitstack/go-fitness-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// OnboardingService defines the onboarding resolution operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OnboardingService interface {
	// NextStep resolves the next onboarding screen from scratch.
	NextStep(ctx context.Context, userID string) domain.Step
	// NextStepAfter resolves the screen after current for a Continue action.
	NextStepAfter(ctx context.Context, current domain.Step, userID string) domain.Step
	// Status reports per-dimension onboarding completeness.
	Status(ctx context.Context, userID string) (*domain.OnboardingStatus, error)
	// RecordLogin stamps the user's last_login_at.
	RecordLogin(ctx context.Context, userID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for onboarding, pages, notifications, and
// device tokens. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	onbSvc   OnboardingService
	pageSvc  PageDataService
	notifSvc NotificationService
	devSvc   DeviceService

	// idemTTL is how long a stored Idempotency-Key answer stays replayable.
	idemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// idemTTL values <= 0 fall back to 24h.
func New(onbSvc OnboardingService, pageSvc PageDataService, notifSvc NotificationService, devSvc DeviceService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{onbSvc: onbSvc, pageSvc: pageSvc, notifSvc: notifSvc, devSvc: devSvc, idemTTL: idemTTL}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// NextStepResponse carries the resolved onboarding screen.
type NextStepResponse struct {
	// NextStep is the screen the client should navigate to.
	NextStep domain.Step `json:"next_step" example:"bodyfat"`
}

// ContinueRequest is the JSON payload for the Continue navigation action.
type ContinueRequest struct {
	// CurrentStep is the screen the user is leaving.
	CurrentStep domain.Step `json:"current_step" binding:"required" example:"registration"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// NextStep godoc
// @ID          onboardingNextStep
// @Summary     Resolve the next onboarding screen
// @Description Computes the next onboarding screen from the user's persisted state. Also records a login for inactivity tracking.
// @Tags        Onboarding
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  handlers.NextStepResponse
// @Router      /onboarding/next [get]
func (h *Handlers) NextStep(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// Resolution doubles as an app-open signal for the inactivity trigger.
	// A failed stamp must not block navigation.
	_ = h.onbSvc.RecordLogin(ctx, uid)

	step := h.onbSvc.NextStep(ctx, uid)
	ok(c, http.StatusOK, NextStepResponse{NextStep: step})
}

// ContinueStep godoc
// @ID          onboardingContinue
// @Summary     Resolve the screen after the current one
// @Description Re-runs the resolver starting after the caller's current screen, skipping steps satisfied in the meantime.
// @Tags        Onboarding
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.ContinueRequest  true  "Current screen"
//
// @Success     200  {object}  handlers.NextStepResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /onboarding/continue [post]
func (h *Handlers) ContinueStep(c *gin.Context) {
	var req ContinueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	step := h.onbSvc.NextStepAfter(c.Request.Context(), req.CurrentStep, userID(c))
	ok(c, http.StatusOK, NextStepResponse{NextStep: step})
}

// OnboardingStatus godoc
// @ID          onboardingStatus
// @Summary     Report onboarding completeness
// @Description Returns per-dimension onboarding completeness for the current user.
// @Tags        Onboarding
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  domain.OnboardingStatus
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /onboarding/status [get]
func (h *Handlers) OnboardingStatus(c *gin.Context) {
	st, err := h.onbSvc.Status(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeResolveFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
