package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSub(start time.Time, d time.Duration) domain.NewSubscription {
	return domain.NewSubscription{
		Duration:           "1 Day",
		DateOfSubscription: start,
		DateOfExpiration:   start.Add(d),
		Cost:               50,
	}
}

func TestInMemoryGetReturnsEmptySentinel(t *testing.T) {
	repo := NewInMemorySubscriptionRepository(logger.NewNop())

	sub, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, sub.IsEmpty())
}

func TestInMemoryCreateConflictAndOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySubscriptionRepository(logger.NewNop())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	first, err := repo.Create(ctx, newSub(start, 24*time.Hour), false)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSub(start.Add(time.Hour), 48*time.Hour), false)
	require.Error(t, err)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.True(t, conflict.ActiveUntil.Equal(*first.DateOfExpiration))

	second, err := repo.Create(ctx, newSub(start.Add(time.Hour), 48*time.Hour), true)
	require.NoError(t, err)
	assert.True(t, second.DateOfExpiration.After(*first.DateOfExpiration))
}

func TestInMemoryCreateOverExpiredRecordNeedsNoOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySubscriptionRepository(logger.NewNop())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, newSub(start, time.Hour), false)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newSub(start.Add(2*time.Hour), time.Hour), false)
	assert.NoError(t, err)
}

func TestInMemoryExpireAtIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySubscriptionRepository(logger.NewNop())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	first, err := repo.Create(ctx, newSub(start, time.Hour), false)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newSub(start, 2*time.Hour), true)
	require.NoError(t, err)

	// Истечение по старому моменту не трогает новую подписку
	expired, err := repo.ExpireAt(ctx, *first.DateOfExpiration)
	require.NoError(t, err)
	assert.False(t, expired)

	current, _ := repo.Get(ctx)
	assert.True(t, current.Active)

	expired, err = repo.ExpireAt(ctx, *current.DateOfExpiration)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = repo.ExpireAt(ctx, *current.DateOfExpiration)
	require.NoError(t, err)
	assert.False(t, expired)

	after, _ := repo.Get(ctx)
	assert.True(t, after.IsEmpty())
}

func TestInMemoryConcurrentCreateHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySubscriptionRepository(logger.NewNop())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, newSub(start, time.Hour), false); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestInMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemorySubscriptionRepository(logger.NewNop())
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	_, err := repo.Create(ctx, newSub(start, time.Hour), false)
	require.NoError(t, err)

	got, _ := repo.Get(ctx)
	*got.Cost = 999

	again, _ := repo.Get(ctx)
	assert.Equal(t, 50.0, *again.Cost)
}

func TestInMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryUserRepository(logger.NewNop())

	created, err := repo.Create(ctx, domain.User{Username: "Dev", Role: domain.RoleDeveloper})
	require.NoError(t, err)
	assert.NotEqual(t, "", created.ID.String())

	_, err = repo.Create(ctx, domain.User{Username: "dev"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := repo.GetByUsername(ctx, "DEV")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDeveloper, got.Role)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
