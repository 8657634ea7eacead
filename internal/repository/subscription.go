package repository

import (
	"context"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
)

// SubscriptionRepository хранилище единственной записи подписки.
// Все изменяющие методы атомарны на стороне хранилища.
type SubscriptionRepository interface {
	// Get возвращает запись как она хранится, либо пустую запись. Отсутствие не ошибка.
	Get(ctx context.Context) (domain.Subscription, error)

	// Create сохраняет новую подписку. Если действующая (на момент sub.DateOfSubscription)
	// подписка существует и overwrite=false, возвращает *domain.ConflictError.
	// Проверка и запись выполняются одной операцией.
	Create(ctx context.Context, sub domain.NewSubscription, overwrite bool) (domain.Subscription, error)

	// Clear безусловно очищает запись.
	Clear(ctx context.Context) (domain.Subscription, error)

	// ExpireAt очищает запись, только если она активна и её дата истечения равна
	// expiration. Возвращает true, если очистка произошла.
	ExpireAt(ctx context.Context, expiration time.Time) (bool, error)
}

// UserRepository хранилище учетных записей
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
}
