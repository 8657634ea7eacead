package repository

import (
	"context"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
)

// CachedSubscriptionRepository реализует SubscriptionRepository с кешированием.
// Ошибки кеша не прерывают операцию, источник истины всегда repo.
type CachedSubscriptionRepository struct {
	repo  SubscriptionRepository
	cache SubscriptionCache
	log   *logger.Logger
}

// NewCachedSubscriptionRepository создает новый репозиторий с кешированием
func NewCachedSubscriptionRepository(repo SubscriptionRepository, cache SubscriptionCache, log *logger.Logger) *CachedSubscriptionRepository {
	return &CachedSubscriptionRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Get читает из кеша, при промахе из хранилища
func (r *CachedSubscriptionRepository) Get(ctx context.Context) (domain.Subscription, error) {
	cached, err := r.cache.Get(ctx)
	if err != nil {
		r.log.Warnw("Error getting subscription from cache", "error", err)
	}
	if cached != nil {
		return *cached, nil
	}

	sub, err := r.repo.Get(ctx)
	if err != nil {
		return domain.Subscription{}, err
	}

	r.store(ctx, sub)
	return sub, nil
}

// Create сохраняет подписку и обновляет кеш
func (r *CachedSubscriptionRepository) Create(ctx context.Context, sub domain.NewSubscription, overwrite bool) (domain.Subscription, error) {
	created, err := r.repo.Create(ctx, sub, overwrite)
	if err != nil {
		// Конфликт мог возникнуть из-за устаревшего кеша у соседнего узла
		r.invalidate(ctx)
		return domain.Subscription{}, err
	}

	r.store(ctx, created)
	return created, nil
}

// Clear очищает запись и кеш
func (r *CachedSubscriptionRepository) Clear(ctx context.Context) (domain.Subscription, error) {
	cleared, err := r.repo.Clear(ctx)
	if err != nil {
		return domain.Subscription{}, err
	}

	r.store(ctx, cleared)
	return cleared, nil
}

// ExpireAt очищает запись; при любом исходе кеш сбрасывается
func (r *CachedSubscriptionRepository) ExpireAt(ctx context.Context, expiration time.Time) (bool, error) {
	expired, err := r.repo.ExpireAt(ctx, expiration)
	r.invalidate(ctx)
	return expired, err
}

func (r *CachedSubscriptionRepository) store(ctx context.Context, sub domain.Subscription) {
	if err := r.cache.Set(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache subscription", "error", err)
	}
}

func (r *CachedSubscriptionRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx); err != nil {
		r.log.Warnw("Failed to invalidate subscription cache", "error", err)
	}
}
