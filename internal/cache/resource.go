// Package cache implements the process-wide page-data cache. This file
// provides Resource, a read-through convenience wrapper binding a loader
// function to one cache slot.
package cache

import (
	"context"
	"time"
)

// LoaderFunc produces the authoritative value for a cache slot. It is invoked
// on cache misses and explicit refreshes.
type LoaderFunc func(ctx context.Context) (any, error)

// Result carries the outcome of a Resource read.
type Result struct {
	// Data is the resolved value, from cache or loader.
	Data any
	// Cached reports whether Data was served from the cache.
	Cached bool
	// Stale reports whether Data is a last-known expired entry served
	// because the loader failed.
	Stale bool
}

// Resource is a cached view over an arbitrary loader. On read it checks the
// cache first; on a miss it invokes the loader and stores the result. When
// the loader fails and a stale entry survives in the cache, the stale value
// is served instead of the error (serve-stale-on-error): a degraded read
// beats a broken screen.
type Resource struct {
	Cache  *PageCache
	Page   string
	Key    string
	Loader LoaderFunc

	// TTL overrides the cache's TTL resolution when > 0.
	TTL time.Duration
}

// Get resolves the resource value: cache hit, loader call, or stale fallback.
// The returned error is non-nil only when the loader failed and no stale
// entry exists. The cache read is a peek rather than a Get so that an expired
// entry survives long enough to serve as the fallback; a successful reload
// overwrites it via Set.
func (r *Resource) Get(ctx context.Context) (Result, error) {
	e, found, fresh := r.Cache.peek(r.Page, r.Key)
	if fresh {
		return Result{Data: e.data, Cached: true}, nil
	}
	data, err := r.Loader(ctx)
	if err != nil {
		if found {
			return Result{Data: e.data, Cached: true, Stale: true}, nil
		}
		return Result{}, err
	}
	r.Cache.Set(r.Page, r.Key, data, r.TTL)
	return Result{Data: data}, nil
}

// Refresh bypasses the cache, invokes the loader, and stores the fresh value.
// Unlike Get it never serves a stale fallback: an explicit refresh that fails
// must surface its error.
func (r *Resource) Refresh(ctx context.Context) (Result, error) {
	data, err := r.Loader(ctx)
	if err != nil {
		return Result{}, err
	}
	r.Cache.Set(r.Page, r.Key, data, r.TTL)
	return Result{Data: data}, nil
}
