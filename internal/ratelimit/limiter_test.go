package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUpToMax(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "attempt %d should pass", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4"), "attempt past the cap is refused")
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "another IP has its own window")
}

func TestWindowResets(t *testing.T) {
	l := New(1, time.Minute)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	current = current.Add(61 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"), "a fresh window starts after the period")
}

func TestSweep(t *testing.T) {
	l := New(1, time.Minute)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	l.Allow("1.2.3.4")
	l.Allow("5.6.7.8")
	assert.Equal(t, 2, l.Len())

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Len())
}
