package lifecycle

import (
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHasActiveSubscriptionIgnoresStaleFlag(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, HasActiveSubscription(domain.Subscription{Active: true, DateOfExpiration: &past}, now))
	assert.False(t, HasActiveSubscription(domain.Subscription{Active: true}, now))
	assert.False(t, HasActiveSubscription(domain.Subscription{Active: false, DateOfExpiration: &future}, now))
	assert.True(t, HasActiveSubscription(domain.Subscription{Active: true, DateOfExpiration: &future}, now))
}

func TestCountdownBorrowCascade(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want Remaining
	}{
		{24 * time.Hour, Remaining{0, 23, 59, 60}},
		{24*time.Hour - time.Second, Remaining{0, 23, 59, 59}},
		{48 * time.Hour, Remaining{1, 23, 59, 60}},
		{time.Hour, Remaining{0, 0, 59, 60}},
		{time.Minute, Remaining{0, 0, 0, 60}},
		{time.Hour + 5*time.Second, Remaining{0, 1, 0, 5}},
		{90*time.Minute + 30*time.Second, Remaining{0, 1, 30, 30}},
		{1500 * time.Millisecond, Remaining{0, 0, 0, 2}},
		{time.Millisecond, Remaining{0, 0, 0, 1}},
		{0, Remaining{}},
		{-time.Hour, Remaining{}},
	}
	for _, tc := range cases {
		got := Countdown(tc.in)
		assert.Equal(t, tc.want, got, tc.in.String())
		if tc.in > 0 {
			assert.False(t, got.Zero(), tc.in.String())
		}
	}
}

func TestCountdownPreservesTotal(t *testing.T) {
	for s := 1; s <= 3*86400; s += 97 {
		d := time.Duration(s) * time.Second
		r := Countdown(d)
		assert.Equal(t, d, r.Total())
		assert.True(t, r.Seconds >= 1 && r.Seconds <= 60)
		assert.True(t, r.Minutes >= 0 && r.Minutes <= 59)
		assert.True(t, r.Hours >= 0 && r.Hours <= 23)
	}
}

func TestRemainingString(t *testing.T) {
	assert.Equal(t, "0d 23h 59m 60s", Countdown(24*time.Hour).String())
}
