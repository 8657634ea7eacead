package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `active, subscription_duration, date_of_subscription, date_of_expiration, cost::float8, note`

// PostgresSubscriptionRepository хранит подписку в строке с id = 1
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписки
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

// Get возвращает запись или пустую запись, если строки нет
func (r *PostgresSubscriptionRepository) Get(ctx context.Context) (domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscription WHERE id = 1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptySubscription(), nil
		}
		return domain.Subscription{}, fmt.Errorf("repository: failed to get subscription: %w", err)
	}
	return sub, nil
}

// Create вставляет или заменяет запись одним оператором. Замена происходит
// только при overwrite либо когда текущая запись не действует на момент $2.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub domain.NewSubscription, overwrite bool) (domain.Subscription, error) {
	query := `
		INSERT INTO subscription (id, active, subscription_duration, date_of_subscription, date_of_expiration, cost, note, updated_at)
		VALUES (1, TRUE, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			active = TRUE,
			subscription_duration = EXCLUDED.subscription_duration,
			date_of_subscription = EXCLUDED.date_of_subscription,
			date_of_expiration = EXCLUDED.date_of_expiration,
			cost = EXCLUDED.cost,
			note = EXCLUDED.note,
			updated_at = NOW()
		WHERE $6
			OR NOT subscription.active
			OR subscription.date_of_expiration IS NULL
			OR subscription.date_of_expiration <= $2
		RETURNING ` + subscriptionColumns

	created, err := scanSubscription(r.db.QueryRow(ctx, query,
		sub.Duration, sub.DateOfSubscription, sub.DateOfExpiration, sub.Cost, sub.Note, overwrite,
	))
	if err == nil {
		r.log.Debugw("Subscription stored", "expiresAt", sub.DateOfExpiration, "overwrite", overwrite)
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, fmt.Errorf("repository: failed to create subscription: %w", err)
	}

	// Условие WHERE не выполнилось: действующая подписка уже есть
	current, getErr := r.Get(ctx)
	if getErr != nil {
		return domain.Subscription{}, getErr
	}
	until := sub.DateOfSubscription
	if current.DateOfExpiration != nil {
		until = *current.DateOfExpiration
	}
	return domain.Subscription{}, &domain.ConflictError{ActiveUntil: until}
}

// Clear безусловно очищает запись
func (r *PostgresSubscriptionRepository) Clear(ctx context.Context) (domain.Subscription, error) {
	query := `
		UPDATE subscription SET
			active = FALSE,
			subscription_duration = NULL,
			date_of_subscription = NULL,
			date_of_expiration = NULL,
			cost = NULL,
			note = NULL,
			updated_at = NOW()
		WHERE id = 1`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return domain.Subscription{}, fmt.Errorf("repository: failed to clear subscription: %w", err)
	}
	return domain.EmptySubscription(), nil
}

// ExpireAt очищает запись, только если она всё ещё относится к expiration
func (r *PostgresSubscriptionRepository) ExpireAt(ctx context.Context, expiration time.Time) (bool, error) {
	query := `
		UPDATE subscription SET
			active = FALSE,
			subscription_duration = NULL,
			date_of_subscription = NULL,
			date_of_expiration = NULL,
			cost = NULL,
			note = NULL,
			updated_at = NOW()
		WHERE id = 1 AND active AND date_of_expiration = $1`

	tag, err := r.db.Exec(ctx, query, expiration)
	if err != nil {
		return false, fmt.Errorf("repository: failed to expire subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.Active,
		&sub.SubscriptionDuration,
		&sub.DateOfSubscription,
		&sub.DateOfExpiration,
		&sub.Cost,
		&sub.Note,
	)
	if err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}
