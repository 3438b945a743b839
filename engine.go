package cache

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Engine is an in-memory string keyed cache with per-key TTL timers,
// coalesced loads and hit/miss accounting. Engines share no state.
type Engine struct {
	Options *Options

	mu      sync.Mutex
	items   map[string]any
	timers  map[string]*expiry
	pending map[string]*fill
	hits    uint64
	misses  uint64

	flights  singleflight.Group
	patterns *patternCache

	callbacks   []func(CacheEvent)
	callbacksMu sync.RWMutex

	name    string
	log     Logger
	codec   Codec
	tracer  trace.Tracer
	metrics metric.Registration
}

// expiry is the identity of a scheduled deletion. A timer that fires after
// being replaced finds a different *expiry in the table and does nothing.
type expiry struct {
	timer *time.Timer
}

// fill marks the owner of a key's in-flight load. Remove and Reset drop it,
// which stops the load from writing its result.
type fill struct {
	started time.Time
}

func New(options *Options) *Engine {
	if options == nil {
		options = &Options{}
	}
	e := &Engine{
		Options:  options,
		items:    make(map[string]any),
		timers:   make(map[string]*expiry),
		pending:  make(map[string]*fill),
		patterns: newPatternCache(options.GetPatternCacheSize()),
		name:     options.GetName(),
		log:      options.GetLogger(),
		codec:    options.GetCodec(),
		tracer:   options.GetTracerProvider().Tracer(instrumentationName),
	}
	registration, err := e.registerMetrics(options.GetMeterProvider())
	if err != nil {
		e.log.Warn("metrics registration failed: " + err.Error())
	}
	e.metrics = registration
	return e
}

// Close resets the engine and unregisters its metrics callback.
func (e *Engine) Close() error {
	e.Reset()
	if e.metrics == nil {
		return nil
	}
	return e.metrics.Unregister()
}

// Set stores value under key, replacing any previous value and expiration.
// A ttl <= 0 stores the value without expiration.
func (e *Engine) Set(key string, value any, ttl time.Duration) {
	e.mu.Lock()
	e.setLocked(key, value, ttl)
	e.mu.Unlock()

	e.emit(CacheEvent{Type: CacheEventSet, Key: key})
}

func (e *Engine) setLocked(key string, value any, ttl time.Duration) {
	e.log.Debug("set: " + key)
	e.stopTimerLocked(key)
	e.items[key] = value
	if ttl > 0 {
		exp := &expiry{}
		exp.timer = time.AfterFunc(ttl, func() { e.expire(key, exp) })
		e.timers[key] = exp
	}
}

func (e *Engine) stopTimerLocked(key string) {
	if exp, ok := e.timers[key]; ok {
		exp.timer.Stop()
		delete(e.timers, key)
	}
}

func (e *Engine) expire(key string, exp *expiry) {
	e.mu.Lock()
	if e.timers[key] != exp {
		e.mu.Unlock()
		return
	}
	delete(e.timers, key)
	delete(e.items, key)
	e.mu.Unlock()

	e.emit(CacheEvent{Type: CacheEventExpire, Key: key})
}

// Remove deletes key, its expiration and any in-flight load for it.
func (e *Engine) Remove(key string) {
	e.mu.Lock()
	existed := e.removeLocked(key)
	e.mu.Unlock()

	if existed {
		e.emit(CacheEvent{Type: CacheEventRemove, Key: key})
	}
}

// RemovePattern removes every stored key matched by re.
func (e *Engine) RemovePattern(re *regexp.Regexp) {
	e.removeWhere(re.MatchString)
}

// RemoveMatching compiles expr and removes every stored key it matches.
func (e *Engine) RemoveMatching(expr string) error {
	re, err := e.patterns.compile(expr)
	if err != nil {
		return err
	}
	e.RemovePattern(re)
	return nil
}

func (e *Engine) RemovePrefix(prefix string) {
	e.removeWhere(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (e *Engine) removeWhere(match func(string) bool) {
	var removed []string
	e.mu.Lock()
	for key := range e.items {
		if match(key) {
			e.removeLocked(key)
			removed = append(removed, key)
		}
	}
	e.mu.Unlock()

	for _, key := range removed {
		e.emit(CacheEvent{Type: CacheEventRemove, Key: key})
	}
}

func (e *Engine) removeLocked(key string) bool {
	_, existed := e.items[key]
	delete(e.items, key)
	e.stopTimerLocked(key)
	if _, ok := e.pending[key]; ok {
		delete(e.pending, key)
		e.flights.Forget(key)
	}
	return existed
}

// Reset drops all entries, timers and in-flight loads and zeroes the counters.
func (e *Engine) Reset() {
	e.mu.Lock()
	for key, exp := range e.timers {
		exp.timer.Stop()
		delete(e.timers, key)
	}
	for key := range e.pending {
		e.flights.Forget(key)
	}
	e.items = make(map[string]any)
	e.pending = make(map[string]*fill)
	e.hits = 0
	e.misses = 0
	e.mu.Unlock()

	e.emit(CacheEvent{Type: CacheEventReset})
}

// Contains reports whether key is stored without counting a hit or miss.
func (e *Engine) Contains(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.items[key]
	return ok
}

func (e *Engine) Report() Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := 0
	for key, value := range e.items {
		size += entrySize(e.codec, key, value)
	}
	return Report{
		NumItems: len(e.items),
		HitRate:  hitRate(e.hits, e.misses),
		SizeKB:   bytesToKB(size),
		Hits:     e.hits,
		Misses:   e.misses,
	}
}

// keys returns a snapshot of the stored keys.
func (e *Engine) keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.items))
	for key := range e.items {
		keys = append(keys, key)
	}
	return keys
}

func (e *Engine) AddCallback(callback func(CacheEvent)) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	e.callbacks = append(e.callbacks, callback)
}

func (e *Engine) emit(event CacheEvent) {
	e.callbacksMu.RLock()
	defer e.callbacksMu.RUnlock()
	for _, callback := range e.callbacks {
		callback(event)
	}
}
