package main

import (
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestRenderState(t *testing.T) {
	label := "1 Day"
	exp := time.Now().Add(time.Hour)
	active := lifecycle.State{
		Subscription: domain.Subscription{Active: true, SubscriptionDuration: &label, DateOfExpiration: &exp},
		Active:       true,
		Remaining:    lifecycle.Countdown(24 * time.Hour),
	}

	assert.Equal(t, "Subscription active (1 Day, 0d 23h 59m 60s left)", renderState(active))
	assert.Equal(t, "Subscription expired, updating...", renderState(lifecycle.State{Expiring: true}))
	assert.Equal(t, "No active subscription [error: boom]", renderState(lifecycle.State{Err: errors.New("boom")}))
}

func TestStatusCommandRequiresCredentials(t *testing.T) {
	old := opts
	defer func() { opts = old }()

	rootCmd.SetArgs([]string{"status", "--token", "", "--username", ""})
	err := rootCmd.Execute()
	assert.Error(t, err)
}
