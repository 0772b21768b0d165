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
	"github.com/google/uuid"

	"github.com/fitstack/go-fitness-backend/internal/cache"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// fakePages satisfies PageDataService with canned results.
type fakePages struct {
	result    cache.Result
	pageErr   error
	gotPage   string
	progress  *services.ProgressPageData
	workErr   error
	gotUserID string
	gotTmpl   string
	gotDur    int
	mealPage  *services.MealPlanPageData
	mealErr   error
	gotMeal   string
	gotCals   int
}

func (f *fakePages) Page(ctx context.Context, page, userID string) (cache.Result, error) {
	f.gotPage, f.gotUserID = page, userID
	return f.result, f.pageErr
}

func (f *fakePages) CompleteWorkout(ctx context.Context, userID, templateID string, durationMin int) (*services.ProgressPageData, error) {
	f.gotUserID, f.gotTmpl, f.gotDur = userID, templateID, durationMin
	return f.progress, f.workErr
}

func (f *fakePages) LogMeal(ctx context.Context, userID, name string, calories int) (*services.MealPlanPageData, error) {
	f.gotUserID, f.gotMeal, f.gotCals = userID, name, calories
	return f.mealPage, f.mealErr
}

func newPageRouter(f *fakePages) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, f, nil, nil, 0)
	r := gin.New()
	r.GET("/pages/:page", h.GetPage)
	r.POST("/workouts/:id/complete", h.CompleteWorkout)
	r.POST("/meals/log", h.LogMeal)
	return r
}

func TestGetPageHandler(t *testing.T) {
	f := &fakePages{result: cache.Result{Data: map[string]any{"streak": 3}, Cached: true}}
	r := newPageRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/Progress", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	// Page ids are normalized to lowercase before the service call.
	if f.gotPage != "progress" || f.gotUserID != "u1" {
		t.Fatalf("service got (%q, %q)", f.gotPage, f.gotUserID)
	}
	var resp PageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Page != "progress" || !resp.Cached || resp.Stale {
		t.Fatalf("response wrong: %+v", resp)
	}
}

func TestGetPageHandler_StaleFlagSurfaces(t *testing.T) {
	f := &fakePages{result: cache.Result{Data: "old", Cached: true, Stale: true}}
	r := newPageRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pages/home", nil))

	var resp PageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.Stale {
		t.Fatalf("stale flag lost: %+v", resp)
	}
}

func TestGetPageHandler_Errors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown page", services.ErrUnknownPage, http.StatusNotFound},
		{"read failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newPageRouter(&fakePages{pageErr: tc.err})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pages/settings", nil))
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}

func TestCompleteWorkoutHandler(t *testing.T) {
	id := uuid.NewString()
	f := &fakePages{progress: &services.ProgressPageData{Title: "Progress", Streak: 4}}
	r := newPageRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workouts/"+id+"/complete", strings.NewReader(`{"duration_min":45}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.gotTmpl != id || f.gotDur != 45 || f.gotUserID != "u1" {
		t.Fatalf("service got (%q, %d, %q)", f.gotTmpl, f.gotDur, f.gotUserID)
	}
	var data services.ProgressPageData
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil || data.Streak != 4 {
		t.Fatalf("body %+v, %v", data, err)
	}
}

func TestCompleteWorkoutHandler_Validation(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name string
		path string
		body string
	}{
		{"non-uuid id", "/workouts/not-a-uuid/complete", `{"duration_min":45}`},
		{"missing duration", "/workouts/" + id + "/complete", `{}`},
		{"zero duration", "/workouts/" + id + "/complete", `{"duration_min":0}`},
		{"bad json", "/workouts/" + id + "/complete", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newPageRouter(&fakePages{})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
		})
	}
}

func TestCompleteWorkoutHandler_Errors(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"unknown template", services.ErrWorkoutNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"write failure", errors.New("db down"), http.StatusInternalServerError, ErrCodeLogFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newPageRouter(&fakePages{workErr: tc.err})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/workouts/"+id+"/complete", strings.NewReader(`{"duration_min":30}`))
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

func TestLogMealHandler(t *testing.T) {
	f := &fakePages{mealPage: &services.MealPlanPageData{Title: "Meal Plan"}}
	r := newPageRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/meals/log", strings.NewReader(`{"name":"  Oatmeal  ","calories":350}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.gotMeal != "Oatmeal" || f.gotCals != 350 {
		t.Fatalf("service got (%q, %d)", f.gotMeal, f.gotCals)
	}
}

func TestLogMealHandler_Validation(t *testing.T) {
	for _, body := range []string{`{}`, `{"name":"","calories":100}`, `{"name":"   ","calories":100}`, `{"name":"Snack","calories":0}`, `{`} {
		r := newPageRouter(&fakePages{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/meals/log", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status=%d", body, w.Code)
		}
	}
}
