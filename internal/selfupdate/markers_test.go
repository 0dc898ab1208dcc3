package selfupdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldIgnoreFalseForUnknownUser(t *testing.T) {
	m := New()
	assert.False(t, m.ShouldIgnore("user-1"))
}

func TestShouldIgnoreTrueWithinWindow(t *testing.T) {
	m := New()
	m.Record("user-1")
	assert.True(t, m.ShouldIgnore("user-1"))
}

func TestShouldIgnoreFalseAfterWindowElapses(t *testing.T) {
	base := time.Now()
	m := New()
	m.now = func() time.Time { return base }
	m.Record("user-1")

	m.now = func() time.Time { return base.Add(Window + time.Second) }
	assert.False(t, m.ShouldIgnore("user-1"))
}

func TestShouldIgnoreIsPerUser(t *testing.T) {
	m := New()
	m.Record("user-1")
	assert.False(t, m.ShouldIgnore("user-2"))
}
