package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResource_Get_LoadsAndStoresOnMiss(t *testing.T) {
	c, _ := newTestCache(Options{})
	calls := 0
	r := &Resource{
		Cache: c,
		Page:  "home",
		Key:   "u1",
		Loader: func(context.Context) (any, error) {
			calls++
			return "fresh", nil
		},
	}

	res, err := r.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Data != "fresh" || res.Cached || res.Stale {
		t.Fatalf("first read should be a loader result: %+v", res)
	}

	res, err = r.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Data != "fresh" || !res.Cached || res.Stale {
		t.Fatalf("second read should be a cache hit: %+v", res)
	}
	if calls != 1 {
		t.Fatalf("loader should run once, ran %d times", calls)
	}
}

func TestResource_Get_LoaderErrorWithoutStaleSurfaces(t *testing.T) {
	c, _ := newTestCache(Options{})
	wantErr := errors.New("backend down")
	r := &Resource{
		Cache:  c,
		Page:   "home",
		Key:    "u1",
		Loader: func(context.Context) (any, error) { return nil, wantErr },
	}

	if _, err := r.Get(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestResource_Get_ServesStaleOnLoaderError(t *testing.T) {
	c, clk := newTestCache(Options{DefaultTTL: time.Second})
	fail := false
	r := &Resource{
		Cache: c,
		Page:  "progress",
		Key:   "u1",
		Loader: func(context.Context) (any, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return "known-good", nil
		},
	}

	if _, err := r.Get(context.Background()); err != nil {
		t.Fatalf("priming read: %v", err)
	}

	// Entry expires, then the loader starts failing.
	clk.advance(time.Minute)
	fail = true

	res, err := r.Get(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if res.Data != "known-good" || !res.Stale || !res.Cached {
		t.Fatalf("expected stale last-known value: %+v", res)
	}
}

func TestResource_Get_StaleEntryPurgedByGetLeavesError(t *testing.T) {
	c, clk := newTestCache(Options{DefaultTTL: time.Second})
	r := &Resource{
		Cache:  c,
		Page:   "progress",
		Key:    "u1",
		Loader: func(context.Context) (any, error) { return nil, errors.New("down") },
	}
	c.Set("progress", "u1", "old", 0)
	clk.advance(time.Minute)

	// A direct Get purges the expired entry before the Resource read runs.
	if _, ok := c.Get("progress", "u1"); ok {
		t.Fatalf("entry should be expired")
	}

	if _, err := r.Get(context.Background()); err == nil {
		t.Fatalf("no stale entry remains, error must surface")
	}
}

func TestResource_Refresh_BypassesCacheAndStaleFallback(t *testing.T) {
	c, clk := newTestCache(Options{DefaultTTL: time.Hour})
	fail := false
	calls := 0
	r := &Resource{
		Cache: c,
		Page:  "mealplan",
		Key:   "u1",
		TTL:   time.Minute,
		Loader: func(context.Context) (any, error) {
			calls++
			if fail {
				return nil, errors.New("down")
			}
			return calls, nil
		},
	}

	// Even with a fresh cached value, Refresh hits the loader.
	c.Set("mealplan", "u1", "cached", 0)
	res, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Data != 1 || res.Cached || res.Stale {
		t.Fatalf("Refresh should return the loader value: %+v", res)
	}

	// The refreshed value was stored under the explicit TTL.
	clk.advance(2 * time.Minute)
	if _, ok := c.Get("mealplan", "u1"); ok {
		t.Fatalf("refreshed entry should honor the explicit TTL")
	}

	// A failing Refresh surfaces the error even though a value was cached.
	c.Set("mealplan", "u1", "cached-again", 0)
	fail = true
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh must not serve stale on loader failure")
	}
}
