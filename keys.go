package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// CacheKey maps typed keys onto the string keys of an Engine.
type CacheKey[K comparable] interface {
	Marshal(K) string
	Unmarshal(string) (K, error)
}

type StringCacheKey struct {
}

func (k *StringCacheKey) Marshal(key string) string {
	return key
}

func (k *StringCacheKey) Unmarshal(data string) (string, error) {
	return data, nil
}

type IntCacheKey struct {
}

func (k *IntCacheKey) Marshal(key int) string {
	return fmt.Sprintf("%d", key)
}

func (k *IntCacheKey) Unmarshal(data string) (int, error) {
	return strconv.Atoi(data)
}

// View is a typed window onto an Engine. Several views with different value
// types may share one engine as long as their keys do not collide.
type View[K comparable, V any] struct {
	Engine   *Engine
	CacheKey CacheKey[K]
}

func NewView[K comparable, V any](engine *Engine, cacheKey CacheKey[K]) *View[K, V] {
	if cacheKey == nil {
		panic("CacheKey must be provided")
	}
	return &View[K, V]{
		Engine:   engine,
		CacheKey: cacheKey,
	}
}

func (v *View[K, V]) Get(ctx context.Context, key K, loader Loader[V], ttl time.Duration) (V, bool, error) {
	return Get(ctx, v.Engine, v.CacheKey.Marshal(key), loader, ttl)
}

func (v *View[K, V]) Set(key K, value V, ttl time.Duration) {
	v.Engine.Set(v.CacheKey.Marshal(key), value, ttl)
}

func (v *View[K, V]) Remove(key K) {
	v.Engine.Remove(v.CacheKey.Marshal(key))
}

func (v *View[K, V]) Contains(key K) bool {
	return v.Engine.Contains(v.CacheKey.Marshal(key))
}

// Keys returns the stored keys that unmarshal into K. Keys that fail to
// unmarshal are skipped and reported in the joined error.
func (v *View[K, V]) Keys() ([]K, error) {
	var errs []error
	keys := []K{}
	for _, raw := range v.Engine.keys() {
		key, err := v.CacheKey.Unmarshal(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("key %q: %w", raw, err))
			continue
		}
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}
