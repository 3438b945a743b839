package cache

import (
	"context"
	"errors"
)

var (
	// ErrTypeMismatch is returned when a stored value cannot be read as the requested type.
	ErrTypeMismatch = errors.New("cache: stored value has a different type")
	// ErrLoaderPanic wraps the value recovered from a panicking loader.
	ErrLoaderPanic = errors.New("cache: loader panicked")
)

// Loader produces the value for a key on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

type CacheEventType int

const (
	CacheEventSet CacheEventType = iota
	CacheEventRemove
	CacheEventExpire
	CacheEventReset
)

func (t CacheEventType) String() string {
	switch t {
	case CacheEventSet:
		return "set"
	case CacheEventRemove:
		return "remove"
	case CacheEventExpire:
		return "expire"
	case CacheEventReset:
		return "reset"
	}
	return "unknown"
}

// CacheEvent is published to callbacks after the engine state changed.
// Key is empty for CacheEventReset.
type CacheEvent struct {
	Type CacheEventType
	Key  string
}

// Report is a point-in-time snapshot of the engine statistics.
type Report struct {
	NumItems int
	// HitRate is hits/(hits+misses) in percent, rounded to two decimals.
	HitRate float64
	// SizeKB is an estimate derived from serialized values, not an exact
	// memory footprint.
	SizeKB int
	Hits   uint64
	Misses uint64
}
