package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/internal/api/client"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type fakeTicker struct {
	ch chan time.Time
	mu sync.Mutex
	on bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.on = false
	f.mu.Unlock()
}

func (f *fakeTicker) running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// fakeTickers отдает по одному каналу на интервал, чтобы тест мог слать тики
type fakeTickers struct {
	mu      sync.Mutex
	tickers map[time.Duration]*fakeTicker
}

func newFakeTickers() *fakeTickers {
	return &fakeTickers{tickers: map[time.Duration]*fakeTicker{}}
}

func (f *fakeTickers) get(d time.Duration) *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickers[d]
	if !ok {
		t = &fakeTicker{ch: make(chan time.Time)}
		f.tickers[d] = t
	}
	return t
}

func (f *fakeTickers) factory(d time.Duration) Ticker {
	t := f.get(d)
	t.mu.Lock()
	t.on = true
	t.mu.Unlock()
	return t
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAPI struct {
	mu          sync.Mutex
	record      domain.Subscription
	expireErr   error
	expireCalls int
	block       chan struct{}
}

func (a *fakeAPI) set(sub domain.Subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record = sub
}

func (a *fakeAPI) setExpireErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireErr = err
}

func (a *fakeAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expireCalls
}

func (a *fakeAPI) GetSubscription(context.Context) (domain.Subscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record, nil
}

func (a *fakeAPI) ExpireSubscription(context.Context) (domain.Subscription, error) {
	a.mu.Lock()
	a.expireCalls++
	block := a.block
	err := a.expireErr
	a.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return domain.Subscription{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.record = domain.EmptySubscription()
	return a.record, nil
}

type harness struct {
	ctrl    *Controller
	api     *fakeAPI
	clock   *fakeClock
	tickers *fakeTickers
	states  chan State
	cfg     Config
}

func liveRecord(exp time.Time) domain.Subscription {
	label := "1 Day"
	return domain.Subscription{Active: true, SubscriptionDuration: &label, DateOfExpiration: &exp}
}

func newHarness(t *testing.T, initial domain.Subscription) *harness {
	t.Helper()
	h := &harness{
		api:     &fakeAPI{record: initial},
		clock:   &fakeClock{now: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
		tickers: newFakeTickers(),
		states:  make(chan State, 256),
		cfg: Config{
			TickInterval:  time.Second,
			PollInterval:  3 * time.Minute,
			MaxRetries:    2,
			RetryInterval: time.Millisecond,
		},
	}
	h.ctrl = NewController(h.api, h.cfg, logger.NewNop(),
		WithClock(h.clock.Now),
		WithTickerFactory(h.tickers.factory),
		WithObserver(func(s State) { h.states <- s }),
	)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	go h.ctrl.Run(context.Background())
	t.Cleanup(func() {
		h.ctrl.Stop()
		<-h.ctrl.Done()
	})
	h.next(t)
}

func (h *harness) next(t *testing.T) State {
	t.Helper()
	select {
	case s := <-h.states:
		return s
	case <-time.After(waitTimeout):
		t.Fatal("no state published")
		return State{}
	}
}

// until читает состояния, пока pred не выполнится
func (h *harness) until(t *testing.T, pred func(State) bool) State {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-h.states:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("condition not reached")
			return State{}
		}
	}
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	ticker := h.tickers.get(h.cfg.TickInterval)
	require.True(t, ticker.running(), "tick ticker is not running")
	select {
	case ticker.ch <- h.clock.Now():
	case <-time.After(waitTimeout):
		t.Fatal("tick not consumed")
	}
}

func (h *harness) poll(t *testing.T) {
	t.Helper()
	select {
	case h.tickers.get(h.cfg.PollInterval).ch <- h.clock.Now():
	case <-time.After(waitTimeout):
		t.Fatal("poll not consumed")
	}
}

func TestControllerCountsDown(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	h.api.set(liveRecord(h.clock.Now().Add(24 * time.Hour)))
	h.start(t)

	h.ctrl.Refresh()
	s := h.until(t, func(s State) bool { return s.Active })
	assert.Equal(t, Remaining{0, 23, 59, 60}, s.Remaining)

	h.clock.Advance(time.Second)
	h.tick(t)
	s = h.next(t)
	assert.Equal(t, Remaining{0, 23, 59, 59}, s.Remaining)
	assert.Equal(t, 0, h.api.calls())
}

func TestControllerExpiresOncePerInstant(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	exp := h.clock.Now().Add(2 * time.Second)
	h.api.set(liveRecord(exp))
	h.start(t)
	h.ctrl.Refresh()
	h.until(t, func(s State) bool { return s.Active })

	h.clock.Advance(2 * time.Second)
	h.tick(t)
	s := h.until(t, func(s State) bool { return !s.Expiring && s.Subscription.IsEmpty() })
	assert.False(t, s.Active)
	assert.Equal(t, 1, h.api.calls())

	// Сервер ещё отдает старую запись: та же дата, повторного вызова нет
	h.api.set(liveRecord(exp))
	h.poll(t)
	h.next(t)
	assert.Equal(t, 1, h.api.calls())
	assert.False(t, h.tickers.get(h.cfg.TickInterval).running())

	// Новая подписка с новой датой не блокируется старым ключом
	next := h.clock.Now().Add(time.Second)
	h.api.set(liveRecord(next))
	h.ctrl.Refresh()
	h.until(t, func(s State) bool { return s.Active })

	h.clock.Advance(time.Second)
	h.tick(t)
	h.until(t, func(s State) bool { return !s.Expiring && s.Subscription.IsEmpty() })
	assert.Equal(t, 2, h.api.calls())
}

func TestControllerExpiresStaleRecordOnFetch(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	h.api.set(liveRecord(h.clock.Now().Add(-time.Second)))
	h.start(t)

	h.ctrl.Refresh()
	h.until(t, func(s State) bool { return !s.Expiring && s.Subscription.IsEmpty() })
	assert.Equal(t, 1, h.api.calls())
}

func TestControllerRetriesTransientFailuresThenReleasesGuard(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	h.api.setExpireErr(&client.StatusError{StatusCode: http.StatusBadGateway})
	h.api.set(liveRecord(h.clock.Now().Add(time.Second)))
	h.start(t)
	h.ctrl.Refresh()
	h.until(t, func(s State) bool { return s.Active })

	h.clock.Advance(time.Second)
	h.tick(t)
	s := h.until(t, func(s State) bool { return !s.Expiring && s.Err != nil })
	assert.Equal(t, 3, h.api.calls())
	assert.True(t, s.Subscription.Active)

	// Охрана снята, следующий тик пробует снова
	h.api.setExpireErr(nil)
	h.tick(t)
	h.until(t, func(s State) bool { return !s.Expiring && s.Subscription.IsEmpty() })
	assert.Equal(t, 4, h.api.calls())
}

func TestControllerTreatsAuthFailuresAsHandled(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := newHarness(t, domain.EmptySubscription())
			h.api.setExpireErr(&client.StatusError{StatusCode: status})
			exp := h.clock.Now().Add(-time.Minute)
			h.api.set(liveRecord(exp))
			h.start(t)

			h.ctrl.Refresh()
			s := h.until(t, func(s State) bool { return !s.Expiring && s.Subscription.Active })
			assert.Nil(t, s.Err)
			assert.Equal(t, 1, h.api.calls())

			h.ctrl.Refresh()
			h.next(t)
			assert.Equal(t, 1, h.api.calls())
			assert.False(t, h.tickers.get(h.cfg.TickInterval).running())
		})
	}
}

func TestControllerIgnoresResultAfterStop(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	block := make(chan struct{})
	h.api.block = block
	h.api.set(liveRecord(h.clock.Now().Add(-time.Second)))

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background()) }()
	h.until(t, func(s State) bool { return s.Expiring })

	h.ctrl.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("controller did not stop")
	}

	close(block)
	time.Sleep(20 * time.Millisecond)
	select {
	case s := <-h.states:
		t.Fatalf("state published after stop: %+v", s)
	default:
	}
	assert.False(t, h.tickers.get(h.cfg.PollInterval).running())
}

func TestControllerStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, domain.EmptySubscription())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()
	h.next(t)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(waitTimeout):
		t.Fatal("controller did not stop")
	}
}
