package cache

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookup(t *testing.T, e *Engine, key string) (any, bool) {
	t.Helper()
	value, ok, err := Get[any](context.Background(), e, key, nil, 0)
	assert.Nil(t, err)
	return value, ok
}

func TestEngineSetGet(t *testing.T) {
	type TestStruct struct {
		Foo  string
		Bars []int
	}

	e := New(nil)

	e.Set("string", "bar", 0)
	e.Set("int", 42, 0)
	e.Set("struct", TestStruct{Foo: "bar", Bars: []int{1, 2}}, 0)
	e.Set("nil", nil, 0)
	e.Set("", "empty key", 0)

	value, ok := lookup(t, e, "string")
	assert.True(t, ok)
	assert.Equal(t, "bar", value)

	value, ok = lookup(t, e, "int")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	value, ok = lookup(t, e, "struct")
	assert.True(t, ok)
	assert.Equal(t, TestStruct{Foo: "bar", Bars: []int{1, 2}}, value)

	value, ok = lookup(t, e, "nil")
	assert.True(t, ok)
	assert.Nil(t, value)

	value, ok = lookup(t, e, "")
	assert.True(t, ok)
	assert.Equal(t, "empty key", value)

	value, ok = lookup(t, e, "missing")
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestEngineTypedGet(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	e.Set("foo", "bar", 0)
	value, ok, err := Get[string](ctx, e, "foo", nil, 0)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", value)

	number, ok, err := Get[int](ctx, e, "foo", nil, 0)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.False(t, ok)
	assert.Equal(t, 0, number)

	e.Set("nothing", nil, 0)
	ptr, ok, err := Get[*int](ctx, e, "nothing", nil, 0)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Nil(t, ptr)
}

func TestEngineExpiration(t *testing.T) {
	e := New(nil)

	e.Set("foo", "bar", 50*time.Millisecond)
	_, ok := lookup(t, e, "foo")
	assert.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	_, ok = lookup(t, e, "foo")
	assert.False(t, ok)
	assert.Equal(t, 0, e.Report().NumItems)
}

func TestEngineNoExpiration(t *testing.T) {
	e := New(nil)

	e.Set("zero", "bar", 0)
	e.Set("negative", "bar", -time.Second)

	time.Sleep(50 * time.Millisecond)

	assert.True(t, e.Contains("zero"))
	assert.True(t, e.Contains("negative"))

	e.mu.Lock()
	assert.Empty(t, e.timers)
	e.mu.Unlock()
}

func TestEngineSetReplacesTimer(t *testing.T) {
	e := New(nil)

	e.Set("foo", "v1", 200*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	e.Set("foo", "v2", 200*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	// the first timer would have fired by now
	value, ok := lookup(t, e, "foo")
	assert.True(t, ok)
	assert.Equal(t, "v2", value)

	time.Sleep(100 * time.Millisecond)
	_, ok = lookup(t, e, "foo")
	assert.False(t, ok)
}

func TestEngineSetWithoutTTLCancelsTimer(t *testing.T) {
	e := New(nil)

	e.Set("foo", "v1", 50*time.Millisecond)
	e.Set("foo", "v2", 0)
	time.Sleep(100 * time.Millisecond)

	value, ok := lookup(t, e, "foo")
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
}

func TestEngineRemove(t *testing.T) {
	e := New(nil)

	e.Set("foo", "bar", 50*time.Millisecond)
	e.Set("fizz", "buzz", 0)

	e.Remove("foo")
	e.Remove("does-not-exist")

	assert.False(t, e.Contains("foo"))
	assert.True(t, e.Contains("fizz"))

	e.mu.Lock()
	assert.NotContains(t, e.timers, "foo")
	e.mu.Unlock()
}

func TestEngineRemovePattern(t *testing.T) {
	e := New(nil)

	e.Set("user:1", "a", time.Hour)
	e.Set("user:2", "b", 0)
	e.Set("session:1", "c", time.Hour)
	e.Set("other", "d", 0)

	e.RemovePattern(regexp.MustCompile(`^user:`))

	assert.False(t, e.Contains("user:1"))
	assert.False(t, e.Contains("user:2"))
	assert.True(t, e.Contains("session:1"))
	assert.True(t, e.Contains("other"))

	e.mu.Lock()
	assert.NotContains(t, e.timers, "user:1")
	assert.Contains(t, e.timers, "session:1")
	e.mu.Unlock()

	e.RemovePattern(regexp.MustCompile(`nothing-matches`))
	assert.Equal(t, 2, e.Report().NumItems)
}

func TestEngineRemoveMatching(t *testing.T) {
	e := New(&Options{PatternCacheSize: 1})

	e.Set("foo:fizz", "bar", 0)
	e.Set("foo:buzz", "fizz", 0)
	e.Set("bar:fizz", "buzz", 0)

	assert.Nil(t, e.RemoveMatching(`:fizz$`))
	assert.True(t, e.Contains("foo:buzz"))
	assert.False(t, e.Contains("foo:fizz"))
	assert.False(t, e.Contains("bar:fizz"))

	// cached pattern is reused
	e.Set("baz:fizz", "x", 0)
	assert.Nil(t, e.RemoveMatching(`:fizz$`))
	assert.False(t, e.Contains("baz:fizz"))

	assert.NotNil(t, e.RemoveMatching(`(`))
	assert.True(t, e.Contains("foo:buzz"))
}

func TestEngineRemovePrefix(t *testing.T) {
	e := New(nil)

	e.Set("prefix:one", "1", 0)
	e.Set("prefix:two", "2", 0)
	e.Set("foo", "bar", 0)
	e.Set("other:one", "x", 0)

	e.RemovePrefix("prefix:")

	assert.False(t, e.Contains("prefix:one"))
	assert.False(t, e.Contains("prefix:two"))
	assert.True(t, e.Contains("foo"))
	assert.True(t, e.Contains("other:one"))
}

func TestEngineReset(t *testing.T) {
	e := New(nil)

	e.Set("a", 1, time.Hour)
	e.Set("b", 2, 0)
	lookup(t, e, "a")
	lookup(t, e, "c")

	e.Reset()
	e.Reset()

	assert.Equal(t, Report{}, e.Report())
	e.mu.Lock()
	assert.Empty(t, e.timers)
	assert.Empty(t, e.pending)
	e.mu.Unlock()
}

func TestEngineInstancesAreIsolated(t *testing.T) {
	one := New(nil)
	two := New(nil)

	one.Set("foo", "bar", 0)
	assert.False(t, two.Contains("foo"))

	lookup(t, two, "foo")
	assert.Equal(t, uint64(0), one.Report().Misses)
	assert.Equal(t, uint64(1), two.Report().Misses)
}

func TestEngineCallbacks(t *testing.T) {
	e := New(nil)

	lock := &sync.Mutex{}
	var events []CacheEvent
	e.AddCallback(func(event CacheEvent) {
		lock.Lock()
		events = append(events, event)
		lock.Unlock()
	})

	e.Set("foo", "bar", 0)
	e.Set("fizz", "buzz", 20*time.Millisecond)
	e.Remove("foo")
	e.Remove("foo")
	time.Sleep(60 * time.Millisecond)
	e.Reset()

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []CacheEvent{
		{Type: CacheEventSet, Key: "foo"},
		{Type: CacheEventSet, Key: "fizz"},
		{Type: CacheEventRemove, Key: "foo"},
		{Type: CacheEventExpire, Key: "fizz"},
		{Type: CacheEventReset},
	}, events)
	assert.Equal(t, "expire", CacheEventExpire.String())
}
