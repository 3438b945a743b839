package cache

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Get returns the value stored under key as V.
//
// On a miss with a nil loader Get returns the zero V and false. Otherwise the
// loader fills the key: concurrent callers for the same key share one loader
// call and observe the same value or error. A successful result is stored
// with ttl; a failed one is not stored, so the next call loads again.
//
// Cancelling ctx only stops this caller from waiting. The shared load keeps
// running and its result is still stored.
func Get[V any](ctx context.Context, e *Engine, key string, loader Loader[V], ttl time.Duration) (V, bool, error) {
	var zero V

	e.mu.Lock()
	if raw, ok := e.items[key]; ok {
		e.hits++
		e.mu.Unlock()
		e.log.Debug("hit: " + key)

		value, err := as[V](raw)
		if err != nil {
			return zero, false, err
		}
		return value, true, nil
	}
	e.misses++
	_, waiting := e.pending[key]
	e.mu.Unlock()
	e.log.Debug("miss: " + key)

	if loader == nil {
		return zero, false, nil
	}
	if waiting {
		e.log.Debug("waiting for pending request: " + key)
	}

	loadCtx := context.WithoutCancel(ctx)
	results := e.flights.DoChan(key, func() (any, error) {
		return e.runFill(loadCtx, key, ttl, func(ctx context.Context) (any, error) {
			return loader(ctx)
		})
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return zero, false, res.Err
		}
		value, err := as[V](res.Val)
		if err != nil {
			return zero, false, err
		}
		return value, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// runFill runs inside a single flight for key. It registers itself as the
// key's pending fill, runs the loader and stores the result unless the fill
// was dropped by Remove or Reset in the meantime.
func (e *Engine) runFill(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	e.mu.Lock()
	// a previous flight may have stored the key after our miss
	if raw, ok := e.items[key]; ok {
		e.mu.Unlock()
		return raw, nil
	}
	owner := &fill{started: time.Now()}
	e.pending[key] = owner
	e.mu.Unlock()

	value, err := e.runLoader(ctx, key, loader)

	e.mu.Lock()
	current := e.pending[key] == owner
	if current {
		delete(e.pending, key)
	}
	stored := current && err == nil
	if stored {
		e.setLocked(key, value, ttl)
	}
	e.mu.Unlock()

	if stored {
		e.emit(CacheEvent{Type: CacheEventSet, Key: key})
	}
	return value, err
}

func (e *Engine) runLoader(ctx context.Context, key string, loader func(context.Context) (any, error)) (value any, err error) {
	ctx, span := e.startLoadSpan(ctx, key)
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("%w: %v", ErrLoaderPanic, r)
		}
		endLoadSpan(span, err)
	}()
	return loader(ctx)
}

func as[V any](raw any) (V, error) {
	var zero V
	if raw == nil {
		return zero, nil
	}
	value, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("%w: have %T, want %s", ErrTypeMismatch, raw, reflect.TypeOf((*V)(nil)).Elem())
	}
	return value, nil
}
