package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaDecrementUntilExhausted(t *testing.T) {
	q := NewQuota(2)
	assert.True(t, q.Decrement())
	assert.True(t, q.Decrement())
	assert.False(t, q.Decrement())
	assert.Equal(t, 0, q.Remaining())
}

func TestQuotaZeroLimitNeverDecrements(t *testing.T) {
	q := NewQuota(0)
	assert.False(t, q.Decrement())
}

func TestQuotaRollsOverOnDateChange(t *testing.T) {
	q := NewQuota(1)
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return day1 }

	assert.True(t, q.Decrement())
	assert.False(t, q.Decrement())

	day2 := day1.Add(24 * time.Hour)
	q.now = func() time.Time { return day2 }
	assert.Equal(t, 1, q.Remaining())
	assert.True(t, q.Decrement())
}

func TestQuotaSetLimitAffectsNextRollover(t *testing.T) {
	q := NewQuota(1)
	day1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return day1 }
	q.Decrement()

	q.SetLimit(5)
	day2 := day1.Add(24 * time.Hour)
	q.now = func() time.Time { return day2 }
	assert.Equal(t, 5, q.Remaining())
}
