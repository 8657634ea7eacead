package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Ключ единственной записи подписки
	subscriptionKey = "attendance:subscription"

	// TTL для кэша
	defaultCacheTTL = time.Minute
)

// SubscriptionCache кеш записи подписки
type SubscriptionCache interface {
	// Get возвращает nil, nil при промахе
	Get(ctx context.Context) (*domain.Subscription, error)
	Set(ctx context.Context, sub domain.Subscription) error
	Delete(ctx context.Context) error
}

// RedisCacheRepository реализует кеширование подписки в Redis
type RedisCacheRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis кеша и проверяет соединение
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return NewRedisCacheWithClient(client, ttl, log), nil
}

// NewRedisCacheWithClient оборачивает уже созданный клиент
func NewRedisCacheWithClient(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCacheRepository{client: client, ttl: ttl, log: log}
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get получает подписку из кеша
func (r *RedisCacheRepository) Get(ctx context.Context) (*domain.Subscription, error) {
	data, err := r.client.Get(ctx, subscriptionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.log.Debugw("Subscription not found in cache")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription from cache: %w", err)
	}

	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached subscription: %w", err)
	}

	return &sub, nil
}

// Set кеширует подписку
func (r *RedisCacheRepository) Set(ctx context.Context, sub domain.Subscription) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	if err := r.client.Set(ctx, subscriptionKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache subscription: %w", err)
	}
	return nil
}

// Delete удаляет подписку из кеша
func (r *RedisCacheRepository) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, subscriptionKey).Err(); err != nil {
		return fmt.Errorf("failed to delete subscription from cache: %w", err)
	}
	return nil
}
