package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// fakeNotifications satisfies NotificationService with canned results.
type fakeNotifications struct {
	items    []domain.NotificationLog
	total    int64
	listErr  error
	gotPage  int
	gotSize  int
	statsErr error
	result   *services.NotifyResult
	notiErr  error
	gotReq   services.NotifyRequest
	summary  *services.RunSummary
	runErr   error
	admins   map[string]bool
}

func (f *fakeNotifications) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.NotificationLog, int64, error) {
	f.gotPage, f.gotSize = page, pageSize
	return f.items, f.total, f.listErr
}

func (f *fakeNotifications) Stats(ctx context.Context, actorID string) (int64, int64, error) {
	if err := f.AuthorizeAdmin(ctx, actorID); err != nil {
		return 0, 0, err
	}
	return f.total, f.total / 2, f.statsErr
}

func (f *fakeNotifications) Notify(ctx context.Context, actorID string, req services.NotifyRequest) (*services.NotifyResult, error) {
	f.gotReq = req
	return f.result, f.notiErr
}

func (f *fakeNotifications) RunTriggers(ctx context.Context) (*services.RunSummary, error) {
	return f.summary, f.runErr
}

func (f *fakeNotifications) AuthorizeAdmin(ctx context.Context, actorID string) error {
	if f.admins[actorID] {
		return nil
	}
	return services.ErrNotAdmin
}

func newNotificationRouter(f *fakeNotifications) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, f, nil, 0)
	r := gin.New()
	r.GET("/notifications", h.ListNotifications)
	r.GET("/notifications/stats", h.NotificationStats)
	r.POST("/notifications/notify", h.Notify)
	r.POST("/notifications/run", h.RunTriggers)
	return r
}

func TestListNotificationsHandler(t *testing.T) {
	f := &fakeNotifications{
		items: []domain.NotificationLog{{ID: "n1", UserID: "u1", Title: "Hi"}},
		total: 45,
	}
	r := newNotificationRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications?page=2&page_size=20", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if f.gotPage != 2 || f.gotSize != 20 {
		t.Fatalf("pagination not forwarded: (%d, %d)", f.gotPage, f.gotSize)
	}
	var resp ListNotificationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 20 || p.Total != 45 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination meta wrong: %+v", p)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].ID != "n1" {
		t.Fatalf("items wrong: %+v", resp.Notifications)
	}
}

func TestListNotificationsHandler_Error(t *testing.T) {
	r := newNotificationRouter(&fakeNotifications{listErr: errors.New("db down")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != ErrCodeListFailed {
		t.Fatalf("envelope %+v, %v", er, err)
	}
}

func TestNotificationStatsHandler(t *testing.T) {
	f := &fakeNotifications{total: 10, admins: map[string]bool{"admin1": true}}
	r := newNotificationRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/stats", nil)
	req.Header.Set("X-User-ID", "admin1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp NotificationStatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Total != 10 || resp.Sent != 5 || resp.Draft != 5 {
		t.Fatalf("stats wrong: %+v", resp)
	}
}

func TestNotificationStatsHandler_Forbidden(t *testing.T) {
	r := newNotificationRouter(&fakeNotifications{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/stats", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestNotifyHandler(t *testing.T) {
	f := &fakeNotifications{result: &services.NotifyResult{NotificationID: "fan-1", Recipients: 2, LogsWritten: 2}}
	r := newNotificationRouter(f)

	body := `{"user_id":"u1","title":"Hi","message":"There","data":{"screen":"home"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "admin1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.gotReq.UserID != "u1" || f.gotReq.Title != "Hi" || f.gotReq.Data["screen"] != "home" {
		t.Fatalf("request not forwarded: %+v", f.gotReq)
	}
	var res services.NotifyResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.NotificationID != "fan-1" {
		t.Fatalf("body %+v, %v", res, err)
	}
}

func TestNotifyHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"not admin", services.ErrNotAdmin, http.StatusForbidden, ErrCodeForbidden},
		{"invalid payload", services.ErrInvalidNotification, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing target", services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"fan-out failure", errors.New("gateway down"), http.StatusInternalServerError, ErrCodeNotifyFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newNotificationRouter(&fakeNotifications{notiErr: tc.err})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/notifications/notify", strings.NewReader(`{"title":"a","message":"b"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantCode)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != tc.wantErr {
				t.Fatalf("envelope %+v, %v", er, err)
			}
		})
	}
}

func TestNotifyHandler_BadJSON(t *testing.T) {
	r := newNotificationRouter(&fakeNotifications{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/notify", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRunTriggersHandler(t *testing.T) {
	f := &fakeNotifications{
		summary: &services.RunSummary{TriggersEvaluated: 3, LogsWritten: 12},
		admins:  map[string]bool{"admin1": true},
	}
	r := newNotificationRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/run", nil)
	req.Header.Set("X-User-ID", "admin1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var sum services.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil || sum.LogsWritten != 12 {
		t.Fatalf("body %+v, %v", sum, err)
	}
}

func TestRunTriggersHandler_Forbidden(t *testing.T) {
	f := &fakeNotifications{summary: &services.RunSummary{}}
	r := newNotificationRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/run", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRunTriggersHandler_RunFailure(t *testing.T) {
	f := &fakeNotifications{runErr: errors.New("db down"), admins: map[string]bool{"admin1": true}}
	r := newNotificationRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/run", nil)
	req.Header.Set("X-User-ID", "admin1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}
