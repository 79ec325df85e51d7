package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Unix(1700000000, 0)}
	l := New(limit, window)
	l.now = c.now
	return l, c
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client"), "request %d", i)
	}
	assert.False(t, l.Allow("client"))
	assert.True(t, l.Allow("other"))
}

func TestLimiter_Refills(t *testing.T) {
	l, c := newTestLimiter(2, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	c.t = c.t.Add(31 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// refill is capped at the limit
	c.t = c.t.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	l, c := newTestLimiter(5, time.Minute)
	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	c.t = c.t.Add(3 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_RetryAfter(t *testing.T) {
	l, _ := newTestLimiter(60, time.Minute)
	assert.Equal(t, time.Second, l.RetryAfter())
}
