package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/kafka"
	"github.com/Dhoini/attendance-service/internal/metrics"
	"github.com/Dhoini/attendance-service/internal/repository"
	"github.com/Dhoini/attendance-service/pkg/logger"
)

// Источники истечения для метрик и событий
const (
	ExpireSourceRequest = "request"
	ExpireSourceRead    = "read"
	ExpireSourceLogin   = "login"
)

// Clock возвращает текущее время; подменяется в тестах
type Clock func() time.Time

// SubscriptionService интерфейс сервиса подписки
type SubscriptionService interface {
	// Get возвращает запись; просроченная запись очищается и возвращается пустой
	Get(ctx context.Context) (domain.Subscription, error)
	Create(ctx context.Context, req domain.SubscriptionRequest) (domain.Subscription, error)
	Cancel(ctx context.Context, role domain.Role) (domain.Subscription, error)
	// Expire очищает запись, срок которой вышел. Действующая и неактивная
	// записи возвращаются без изменений.
	Expire(ctx context.Context) (domain.Subscription, error)
	// Evaluate перечитывает запись по авторитетному времени для проверки при входе.
	// expiredNow=true, если этот вызов застал запись просроченной, даже когда
	// очистить её не удалось.
	Evaluate(ctx context.Context, source string) (sub domain.Subscription, expiredNow bool, err error)
}

// Option настраивает сервис
type Option func(*subscriptionService)

// WithClock подменяет источник времени
func WithClock(clock Clock) Option {
	return func(s *subscriptionService) {
		s.clock = clock
	}
}

type subscriptionService struct {
	repo      repository.SubscriptionRepository
	publisher kafka.EventPublisher
	metrics   metrics.SubscriptionMetrics
	log       *logger.Logger
	clock     Clock
}

// NewSubscriptionService создает новый сервис подписки
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	publisher kafka.EventPublisher,
	m metrics.SubscriptionMetrics,
	log *logger.Logger,
	opts ...Option,
) SubscriptionService {
	s := &subscriptionService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		log:       log,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now приводится к точности Postgres, чтобы дата истечения совпадала при сравнении
func (s *subscriptionService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// Get возвращает текущую запись
func (s *subscriptionService) Get(ctx context.Context) (domain.Subscription, error) {
	sub, _, err := s.Evaluate(ctx, ExpireSourceRead)
	return sub, err
}

// Evaluate читает запись и очищает её, если срок вышел
func (s *subscriptionService) Evaluate(ctx context.Context, source string) (domain.Subscription, bool, error) {
	sub, err := s.repo.Get(ctx)
	if err != nil {
		s.log.Error("Failed to read subscription: %v", err)
		return domain.Subscription{}, false, err
	}

	now := s.now()
	if !sub.IsStale(now) {
		s.metrics.SetActive(sub.IsLive(now))
		return sub, false, nil
	}

	s.log.Infow("Subscription past its expiration, clearing", "expiresAt", sub.DateOfExpiration, "source", source)
	expired, err := s.expire(ctx, sub, source)
	if err != nil {
		// Срок вышел независимо от записи; очистка повторится при следующем чтении
		s.log.Warnw("Failed to clear expired subscription", "error", err, "source", source)
		s.metrics.SetActive(false)
		return domain.EmptySubscription(), true, nil
	}
	if !expired {
		// Кто-то успел изменить запись; берём актуальную
		return s.reread(ctx, source)
	}
	return domain.EmptySubscription(), true, nil
}

func (s *subscriptionService) reread(ctx context.Context, source string) (domain.Subscription, bool, error) {
	sub, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Subscription{}, false, err
	}
	if sub.IsStale(s.now()) {
		// Новая запись тоже просрочена, её очистит следующее чтение
		s.log.Debugw("Re-read subscription is stale as well", "source", source)
		s.metrics.SetActive(false)
		return domain.EmptySubscription(), false, nil
	}
	s.metrics.SetActive(sub.IsLive(s.now()))
	return sub, false, nil
}

// Create валидирует запрос и сохраняет новую подписку
func (s *subscriptionService) Create(ctx context.Context, req domain.SubscriptionRequest) (domain.Subscription, error) {
	var verrs domain.ValidationErrors

	if req.SubscriptionDuration <= 0 {
		verrs.Add("subscription_duration", "subscription_duration must be a positive integer")
	}
	durationType, err := domain.ParseDurationType(req.DurationType)
	if err != nil {
		verrs.Add("duration_type", err.Error())
	}
	cost, err := domain.ParseCost(req.Cost)
	if err != nil {
		verrs.Add("cost", err.Error())
	}
	if verrs.HasErrors() {
		s.log.Warn("Invalid subscription request: %v", verrs)
		return domain.Subscription{}, verrs
	}

	var note *string
	if req.Note != nil {
		if trimmed := strings.TrimSpace(*req.Note); trimmed != "" {
			note = &trimmed
		}
	}

	now := s.now()
	expiresAt := durationType.AddTo(now, req.SubscriptionDuration)
	if !expiresAt.After(now) {
		verrs.Add("subscription_duration", "subscription_duration is out of range")
		return domain.Subscription{}, verrs
	}

	created, err := s.repo.Create(ctx, domain.NewSubscription{
		Duration:           durationType.Label(req.SubscriptionDuration),
		DateOfSubscription: now,
		DateOfExpiration:   expiresAt,
		Cost:               cost,
		Note:               note,
	}, req.Overwrite)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.IncConflict()
			s.log.Infow("Subscription create rejected", "error", err)
			return domain.Subscription{}, err
		}
		s.log.Error("Failed to create subscription: %v", err)
		return domain.Subscription{}, err
	}

	s.metrics.IncCreated(string(durationType), req.Overwrite)
	s.metrics.SetActive(true)
	s.log.Infow("Subscription created", "duration", *created.SubscriptionDuration, "expiresAt", expiresAt, "overwrite", req.Overwrite)

	if err := s.publisher.PublishCreated(ctx, created); err != nil {
		s.log.Warnw("Failed to publish subscription created event", "error", err)
	}
	return created, nil
}

// Cancel безусловно очищает запись; доступно только привилегированной роли
func (s *subscriptionService) Cancel(ctx context.Context, role domain.Role) (domain.Subscription, error) {
	if !role.Privileged() {
		s.log.Warnw("Cancel rejected", "role", role)
		return domain.Subscription{}, &domain.AuthorizationError{Role: role, Action: "cancel the subscription"}
	}

	cleared, err := s.repo.Clear(ctx)
	if err != nil {
		s.log.Error("Failed to cancel subscription: %v", err)
		return domain.Subscription{}, err
	}

	s.metrics.IncCancelled()
	s.metrics.SetActive(false)
	s.log.Infow("Subscription cancelled", "role", role)

	if err := s.publisher.PublishCancelled(ctx); err != nil {
		s.log.Warnw("Failed to publish subscription cancelled event", "error", err)
	}
	return cleared, nil
}

// Expire очищает просроченную запись. Срок сверяется по серверному времени,
// поэтому запись, продленная с overwrite, остается нетронутой.
func (s *subscriptionService) Expire(ctx context.Context) (domain.Subscription, error) {
	sub, err := s.repo.Get(ctx)
	if err != nil {
		s.log.Error("Failed to read subscription: %v", err)
		return domain.Subscription{}, err
	}
	if !sub.Active || sub.DateOfExpiration == nil {
		s.log.Debugw("Expire requested for inactive subscription, nothing to do")
		return sub, nil
	}
	if sub.IsLive(s.now()) {
		s.log.Infow("Expire requested before expiration, keeping subscription", "expiresAt", sub.DateOfExpiration)
		s.metrics.SetActive(true)
		return sub, nil
	}

	expired, err := s.expire(ctx, sub, ExpireSourceRequest)
	if err != nil {
		s.log.Error("Failed to expire subscription: %v", err)
		return domain.Subscription{}, err
	}
	if !expired {
		current, _, err := s.reread(ctx, ExpireSourceRequest)
		return current, err
	}
	return domain.EmptySubscription(), nil
}

// expire очищает запись, привязанную к дате истечения sub
func (s *subscriptionService) expire(ctx context.Context, sub domain.Subscription, source string) (bool, error) {
	expired, err := s.repo.ExpireAt(ctx, *sub.DateOfExpiration)
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}

	s.metrics.IncExpired(source)
	s.metrics.SetActive(false)
	s.log.Infow("Subscription expired", "expiresAt", sub.DateOfExpiration, "source", source)

	if err := s.publisher.PublishExpired(ctx, sub, source); err != nil {
		s.log.Warnw("Failed to publish subscription expired event", "error", err)
	}
	return true, nil
}
