package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Dhoini/attendance-service/internal/api/client"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/cenkalti/backoff/v4"
)

// SubscriptionAPI часть API, которую использует контроллер
type SubscriptionAPI interface {
	GetSubscription(ctx context.Context) (domain.Subscription, error)
	ExpireSubscription(ctx context.Context) (domain.Subscription, error)
}

// Ticker источник тиков; подменяется в тестах
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Config параметры контроллера
type Config struct {
	TickInterval  time.Duration
	PollInterval  time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
}

// DefaultConfig тик раз в секунду, опрос раз в 3 минуты, 2 повтора истечения
func DefaultConfig() Config {
	return Config{
		TickInterval:  time.Second,
		PollInterval:  3 * time.Minute,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	}
}

// State снимок для отображения
type State struct {
	Subscription domain.Subscription
	Active       bool
	Remaining    Remaining
	// Expiring true, пока запрос истечения в полете
	Expiring bool
	Err      error
}

// Option настраивает контроллер
type Option func(*Controller)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithTickerFactory подменяет создание тикеров
func WithTickerFactory(f func(time.Duration) Ticker) Option {
	return func(c *Controller) {
		c.newTicker = f
	}
}

// WithObserver получает State после каждого изменения и тика.
// Вызывается из цикла контроллера.
func WithObserver(f func(State)) Option {
	return func(c *Controller) {
		c.observer = f
	}
}

type expireOutcome int

const (
	expireDone expireOutcome = iota
	// 400 и 401 считаются обработанными: повтор не нужен
	expireHandled
	expireFailed
)

type expireResult struct {
	key     int64
	outcome expireOutcome
	sub     domain.Subscription
	err     error
}

// Controller ведет отсчет до истечения подписки и один раз на каждую дату
// истечения вызывает expire. Сервер проверяет подписку сам при входе,
// контроллер только синхронизирует отображение и запись.
type Controller struct {
	api       SubscriptionAPI
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	observer  func(State)

	refresh  chan struct{}
	results  chan expireResult
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Состояние ниже принадлежит циклу Run
	sub     domain.Subscription
	guard   int64
	pending bool
	lastErr error
	tick    Ticker
}

// NewController создает контроллер
func NewController(api SubscriptionAPI, cfg Config, log *logger.Logger, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}

	c := &Controller{
		api:       api,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		newTicker: newRealTicker,
		observer:  func(State) {},
		refresh:   make(chan struct{}, 1),
		results:   make(chan expireResult),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		sub:       domain.EmptySubscription(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh запрашивает внеочередное чтение записи
func (c *Controller) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Stop останавливает цикл. Результаты запросов, завершившихся позже, игнорируются.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// Done закрывается после выхода из Run
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run блокируется до Stop или отмены ctx
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.stopTicker()

	poll := c.newTicker(c.cfg.PollInterval)
	defer poll.Stop()

	c.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			c.log.Debugw("Lifecycle controller stopped by context")
			return ctx.Err()
		case <-c.stop:
			c.log.Debugw("Lifecycle controller stopped")
			return nil
		case <-c.tickC():
			c.evaluate(ctx)
		case <-poll.C():
			c.fetch(ctx)
		case <-c.refresh:
			c.fetch(ctx)
		case r := <-c.results:
			c.handleResult(r)
		}
	}
}

func (c *Controller) tickC() <-chan time.Time {
	if c.tick == nil {
		return nil
	}
	return c.tick.C()
}

func (c *Controller) fetch(ctx context.Context) {
	sub, err := c.api.GetSubscription(ctx)
	if err != nil {
		c.log.Warnw("Failed to fetch subscription", "error", err)
		c.lastErr = err
		c.publish()
		return
	}

	c.lastErr = nil
	if sub.ExpirationUnix() != c.sub.ExpirationUnix() {
		c.log.Debugw("Subscription changed", "active", sub.Active, "expiresAt", sub.DateOfExpiration)
	}
	c.sub = sub
	c.evaluate(ctx)
}

// evaluate пересчитывает отсчет и при необходимости отправляет expire
func (c *Controller) evaluate(ctx context.Context) {
	now := c.now()
	key := c.sub.ExpirationUnix()

	if c.sub.Active && key != 0 && !HasActiveSubscription(c.sub, now) && c.guard != key {
		c.dispatchExpire(ctx, key)
	}

	c.syncTicker(now)
	c.publish()
}

// Тик нужен, пока подписка действует или пока истечение ещё не отправлено
func (c *Controller) syncTicker(now time.Time) {
	key := c.sub.ExpirationUnix()
	needed := c.sub.Active && key != 0 && (HasActiveSubscription(c.sub, now) || c.guard != key)

	switch {
	case needed && c.tick == nil:
		c.tick = c.newTicker(c.cfg.TickInterval)
	case !needed && c.tick != nil:
		c.stopTicker()
	}
}

func (c *Controller) stopTicker() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
}

func (c *Controller) dispatchExpire(ctx context.Context, key int64) {
	c.guard = key
	c.pending = true
	c.log.Infow("Subscription reached expiration, expiring", "expiresAt", c.sub.DateOfExpiration)

	go func() {
		r := c.expire(ctx, key)
		select {
		case c.results <- r:
		case <-c.done:
		}
	}()
}

func (c *Controller) expire(ctx context.Context, key int64) expireResult {
	var sub domain.Subscription
	op := func() error {
		var err error
		sub, err = c.api.ExpireSubscription(ctx)
		if err == nil {
			return nil
		}
		if isHandled(err) {
			return backoff.Permanent(err)
		}
		c.log.Debugw("Expire attempt failed", "error", err)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInterval
	bo.MaxInterval = 10 * c.cfg.RetryInterval
	bo.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))

	switch {
	case err == nil:
		return expireResult{key: key, outcome: expireDone, sub: sub}
	case isHandled(err):
		return expireResult{key: key, outcome: expireHandled, err: err}
	default:
		return expireResult{key: key, outcome: expireFailed, err: err}
	}
}

// isHandled 400 и 401 на expire означают, что действовать дальше не нужно
func isHandled(err error) bool {
	var se *client.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized
}

func (c *Controller) handleResult(r expireResult) {
	if r.key == c.guard {
		c.pending = false
	}

	switch r.outcome {
	case expireDone:
		c.log.Infow("Subscription expired")
		c.lastErr = nil
		if r.key == c.sub.ExpirationUnix() {
			c.sub = r.sub
		}
	case expireHandled:
		c.log.Infow("Expire rejected by server, not retrying", "error", r.err)
	case expireFailed:
		c.log.Warnw("Expire failed, will retry on next tick", "error", r.err)
		c.lastErr = r.err
		if r.key == c.guard {
			c.guard = 0
		}
	}

	c.syncTicker(c.now())
	c.publish()
}

func (c *Controller) publish() {
	now := c.now()
	active := HasActiveSubscription(c.sub, now)

	var remaining Remaining
	if active {
		remaining = Countdown(c.sub.DateOfExpiration.Sub(now))
	}

	c.observer(State{
		Subscription: c.sub,
		Active:       active,
		Remaining:    remaining,
		Expiring:     c.pending,
		Err:          c.lastErr,
	})
}
