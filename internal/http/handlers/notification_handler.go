// Notification HTTP handlers.
//
// This file exposes REST endpoints for the notification log and the admin
// control surface of the trigger pipeline:
//   - GET  /notifications        (list own log, paginated)
//   - GET  /notifications/stats  (aggregate counts, admin)
//   - POST /notifications/notify (ad-hoc fan-out, admin)
//   - POST /notifications/run    (run the trigger pipeline now, admin)
//
// The admin check lives in the service layer; handlers only translate
// ErrNotAdmin into 403.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/http/middleware"
	"github.com/fitstack/go-fitness-backend/internal/repo"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// NotificationService defines the notification operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type NotificationService interface {
	// ListPage returns a page of one user's notification log and the total.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.NotificationLog, int64, error)
	// Stats returns aggregate log counts. Admin only.
	Stats(ctx context.Context, actorID string) (total, sent int64, err error)
	// Notify performs an ad-hoc fan-out. Admin only.
	Notify(ctx context.Context, actorID string, req services.NotifyRequest) (*services.NotifyResult, error)
	// RunTriggers evaluates every active trigger immediately.
	RunTriggers(ctx context.Context) (*services.RunSummary, error)
	// AuthorizeAdmin reports whether the actor may use the admin surface.
	AuthorizeAdmin(ctx context.Context, actorID string) error
}

//
// DTOs
//

// ListNotificationsResponse wraps a page of notification-log rows and
// pagination information.
type ListNotificationsResponse struct {
	Notifications []domain.NotificationLog `json:"notifications"`
	Pagination    Pagination               `json:"pagination"`
}

// NotificationStatsResponse carries aggregate log counts.
type NotificationStatsResponse struct {
	Total int64 `json:"total"`
	Sent  int64 `json:"sent"`
	Draft int64 `json:"draft"`
}

//
// Handlers
//

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List own notifications (paginated)
// @Description Returns a page of the current user's notification log, newest first.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.notifSvc.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListNotificationsResponse{
		Notifications: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// NotificationStats godoc
// @ID          notificationStats
// @Summary     Aggregate notification counts
// @Description Returns total and sent log counts across all users. Requires an admin profile.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin1)
//
// @Success     200  {object}  handlers.NotificationStatsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/stats [get]
func (h *Handlers) NotificationStats(c *gin.Context) {
	total, sent, err := h.notifSvc.Stats(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotAdmin) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, NotificationStatsResponse{Total: total, Sent: sent, Draft: total - sent})
}

// Notify godoc
// @ID          notify
// @Summary     Send an ad-hoc notification
// @Description Fans a notification out to one user or, with an empty user_id, to every user. Requires an admin profile.
// @Tags        Notifications
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(admin1)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    services.NotifyRequest  true  "Notification payload"
//
// @Success     200  {object}  services.NotifyResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Target not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/notify [post]
func (h *Handlers) Notify(c *gin.Context) {
	ctx := c.Request.Context()
	actor := userID(c)

	var req services.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	// Idempotency (replay path): a retried key answers with the recorded
	// fan-out instead of writing and pushing again. The scope must match the
	// validator middleware's, which keys on the matched route pattern.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	scope := c.FullPath()
	if scope == "" {
		scope = c.Request.URL.Path
	}
	if idemKey != "" {
		if svc, okSvc := h.notifSvc.(*services.NotificationService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, actor, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, services.NotifyResult{NotificationID: rec.NotificationID})
				return
			}
		}
	}

	result, err := h.notifSvc.Notify(ctx, actor, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotAdmin):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
		case errors.Is(err, services.ErrInvalidNotification):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "target user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeNotifyFailed, err.Error())
		}
		return
	}

	// Idempotency (store path): best effort, a lost record only costs one
	// extra fan-out on retry.
	if idemKey != "" {
		if svc, okSvc := h.notifSvc.(*services.NotificationService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, actor, scope, idemKey, result.NotificationID, http.StatusOK, h.idemTTL)
		}
	}

	ok(c, http.StatusOK, result)
}

// RunTriggers godoc
// @ID          runTriggers
// @Summary     Run the trigger pipeline now
// @Description Evaluates every active trigger immediately and returns the run summary. Requires an admin profile.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin1)
//
// @Success     200  {object}  services.RunSummary
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/run [post]
func (h *Handlers) RunTriggers(c *gin.Context) {
	// The pipeline itself has no actor; the endpoint is gated separately.
	if err := h.notifSvc.AuthorizeAdmin(c.Request.Context(), userID(c)); err != nil {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
		return
	}

	summary, err := h.notifSvc.RunTriggers(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeNotifyFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, summary)
}
