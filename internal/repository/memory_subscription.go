package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
)

// InMemorySubscriptionRepository реализация хранилища подписки в памяти
type InMemorySubscriptionRepository struct {
	record domain.Subscription
	mutex  sync.RWMutex
	log    *logger.Logger
}

// NewInMemorySubscriptionRepository создает новое хранилище подписки в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		record: domain.EmptySubscription(),
		log:    log,
	}
}

// Get возвращает копию записи
func (r *InMemorySubscriptionRepository) Get(ctx context.Context) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return copySubscription(r.record), nil
}

// Create записывает подписку под одной блокировкой вместе с проверкой конфликта
func (r *InMemorySubscriptionRepository) Create(ctx context.Context, sub domain.NewSubscription, overwrite bool) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !overwrite && r.record.IsLive(sub.DateOfSubscription) {
		r.log.Debugw("Create rejected, live subscription exists", "expiresAt", *r.record.DateOfExpiration)
		return domain.Subscription{}, &domain.ConflictError{ActiveUntil: *r.record.DateOfExpiration}
	}

	r.record = sub.Record()
	return copySubscription(r.record), nil
}

// Clear очищает запись
func (r *InMemorySubscriptionRepository) Clear(ctx context.Context) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.record = domain.EmptySubscription()
	return r.record, nil
}

// ExpireAt очищает запись, если она всё ещё относится к expiration
func (r *InMemorySubscriptionRepository) ExpireAt(ctx context.Context, expiration time.Time) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.record.Active || r.record.DateOfExpiration == nil || !r.record.DateOfExpiration.Equal(expiration) {
		return false, nil
	}

	r.record = domain.EmptySubscription()
	return true, nil
}

func copySubscription(s domain.Subscription) domain.Subscription {
	out := domain.Subscription{Active: s.Active}
	if s.SubscriptionDuration != nil {
		v := *s.SubscriptionDuration
		out.SubscriptionDuration = &v
	}
	if s.DateOfSubscription != nil {
		v := *s.DateOfSubscription
		out.DateOfSubscription = &v
	}
	if s.DateOfExpiration != nil {
		v := *s.DateOfExpiration
		out.DateOfExpiration = &v
	}
	if s.Cost != nil {
		v := *s.Cost
		out.Cost = &v
	}
	if s.Note != nil {
		v := *s.Note
		out.Note = &v
	}
	return out
}
