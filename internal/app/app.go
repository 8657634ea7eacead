package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/attendance-service/config"
	"github.com/Dhoini/attendance-service/internal/api/rest"
	"github.com/Dhoini/attendance-service/internal/api/rest/handlers"
	"github.com/Dhoini/attendance-service/internal/auth"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/kafka"
	"github.com/Dhoini/attendance-service/internal/metrics"
	"github.com/Dhoini/attendance-service/internal/repository"
	"github.com/Dhoini/attendance-service/internal/repository/postgres"
	"github.com/Dhoini/attendance-service/internal/service"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Registry      *prometheus.Registry
	Subscriptions service.SubscriptionService
	Auth          service.AuthService
	Router        *gin.Engine

	systemMetrics metrics.SystemMetrics
	closers       []func() error
}

// New собирает приложение: хранилище, кеш, события, сервисы и роутер.
// Redis и Kafka необязательны: без адреса они не подключаются.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	healthChecks := map[string]handlers.Checker{}

	subscriptionRepo, userRepo, err := a.initStore(ctx, healthChecks)
	if err != nil {
		a.Close()
		return nil, err
	}
	subscriptionRepo = a.initCache(subscriptionRepo, healthChecks)
	publisher := a.initPublisher()

	subscriptionMetrics := metrics.NewSubscriptionMetrics(a.Registry)
	a.systemMetrics = metrics.NewSystemMetrics(a.Registry, log)
	a.systemMetrics.StartRecording(ctx, 15*time.Second)
	a.closers = append(a.closers, func() error {
		a.systemMetrics.Stop()
		return nil
	})

	tokens := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime())
	a.Subscriptions = service.NewSubscriptionService(subscriptionRepo, publisher, subscriptionMetrics, log)
	a.Auth = service.NewAuthService(userRepo, a.Subscriptions, tokens, subscriptionMetrics, log)

	if err := a.seed(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Router = rest.SetupRouter(log, a.Registry, rest.Dependencies{
		Subscriptions: a.Subscriptions,
		Auth:          a.Auth,
		Tokens:        tokens,
		HealthChecks:  healthChecks,
	})
	return a, nil
}

func (a *App) initStore(ctx context.Context, checks map[string]handlers.Checker) (repository.SubscriptionRepository, repository.UserRepository, error) {
	switch a.Config.Store.Driver {
	case "memory":
		a.Logger.Warnw("Using in-memory store, data is lost on restart")
		return repository.NewInMemorySubscriptionRepository(a.Logger), repository.NewInMemoryUserRepository(a.Logger), nil
	case "postgres":
		pool, err := postgres.NewConnection(ctx, a.Config.Database.GetDSN(), a.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if err := postgres.Migrate(ctx, pool, a.Logger); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		checks["postgres"] = pool.Ping
		return postgres.NewPostgresSubscriptionRepository(pool, a.Logger), postgres.NewPostgresUserRepository(pool, a.Logger), nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

func (a *App) initCache(repo repository.SubscriptionRepository, checks map[string]handlers.Checker) repository.SubscriptionRepository {
	if !a.Config.Redis.Enabled() {
		a.Logger.Infow("Redis address not set, using non-cached subscription repository")
		return repo
	}

	cache, err := repository.NewRedisCacheRepository(
		a.Config.Redis.Addr,
		a.Config.Redis.Password,
		a.Config.Redis.DB,
		a.Config.Redis.CacheTTL(),
		a.Logger,
	)
	if err != nil {
		a.Logger.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		return repo
	}

	a.closers = append(a.closers, cache.Close)
	checks["redis"] = cache.Ping
	a.Logger.Infow("Using cached subscription repository")
	return repository.NewCachedSubscriptionRepository(repo, cache, a.Logger)
}

func (a *App) initPublisher() kafka.EventPublisher {
	if !a.Config.Kafka.Enabled() {
		a.Logger.Infow("Kafka brokers not set, subscription events are not published")
		return kafka.NopPublisher{}
	}

	kafkaCfg := kafka.NewConfig(a.Config.Kafka.Brokers, a.Config.Kafka.Topic)
	if err := kafka.EnsureTopic(kafkaCfg, a.Logger); err != nil {
		a.Logger.Warnw("Failed to ensure Kafka topic", "topic", kafkaCfg.Topic, "error", err)
	}

	publisher, err := kafka.NewProducer(kafkaCfg, a.Logger)
	if err != nil {
		a.Logger.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		return kafka.NopPublisher{}
	}
	a.closers = append(a.closers, publisher.Close)
	a.Logger.Infow("Kafka producer initialized", "topic", kafkaCfg.Topic)
	return publisher
}

// seed создает учетную запись разработчика, если она задана в конфигурации
func (a *App) seed(ctx context.Context) error {
	username := a.Config.Seed.DeveloperUsername
	if username == "" {
		return nil
	}
	if a.Config.Seed.DeveloperPassword == "" {
		return fmt.Errorf("seed developer %q has no password", username)
	}
	if _, err := a.Auth.EnsureUser(ctx, username, a.Config.Seed.DeveloperPassword, domain.RoleDeveloper); err != nil {
		return fmt.Errorf("failed to seed developer account: %w", err)
	}
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Errorw("Error closing resource", "error", err)
		}
	}
	a.closers = nil
}
