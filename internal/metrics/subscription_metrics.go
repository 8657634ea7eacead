package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubscriptionMetrics метрики жизненного цикла подписки
type SubscriptionMetrics interface {
	IncCreated(durationType string, overwrite bool)
	IncConflict()
	IncCancelled()
	// IncExpired source: "request", "read", "login"
	IncExpired(source string)
	IncLoginDenied(code string)
	SetActive(active bool)
}

type subscriptionMetrics struct {
	created      *prometheus.CounterVec
	conflicts    prometheus.Counter
	cancelled    prometheus.Counter
	expired      *prometheus.CounterVec
	loginDenied  *prometheus.CounterVec
	activeStatus prometheus.Gauge
}

// NewSubscriptionMetrics регистрирует метрики подписки в registry
func NewSubscriptionMetrics(registry prometheus.Registerer) SubscriptionMetrics {
	factory := promauto.With(registry)

	return &subscriptionMetrics{
		created: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_created_total",
				Help: "The total number of created subscriptions",
			},
			[]string{"duration_type", "overwrite"},
		),
		conflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_conflicts_total",
				Help: "Create attempts rejected because a live subscription exists",
			},
		),
		cancelled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_cancelled_total",
				Help: "The total number of cancelled subscriptions",
			},
		),
		expired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriptions_expired_total",
				Help: "Effective expirations by trigger",
			},
			[]string{"source"},
		),
		loginDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_denied_total",
				Help: "Rejected login attempts by error code",
			},
			[]string{"code"},
		),
		activeStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "subscription_active",
				Help: "1 if a live subscription exists as of the last observation",
			},
		),
	}
}

// IncCreated увеличивает счетчик созданных подписок
func (m *subscriptionMetrics) IncCreated(durationType string, overwrite bool) {
	label := "false"
	if overwrite {
		label = "true"
	}
	m.created.WithLabelValues(durationType, label).Inc()
}

// IncConflict увеличивает счетчик конфликтов
func (m *subscriptionMetrics) IncConflict() {
	m.conflicts.Inc()
}

// IncCancelled увеличивает счетчик отмен
func (m *subscriptionMetrics) IncCancelled() {
	m.cancelled.Inc()
}

// IncExpired увеличивает счетчик истечений
func (m *subscriptionMetrics) IncExpired(source string) {
	m.expired.WithLabelValues(source).Inc()
}

// IncLoginDenied увеличивает счетчик отказов во входе
func (m *subscriptionMetrics) IncLoginDenied(code string) {
	m.loginDenied.WithLabelValues(code).Inc()
}

// SetActive отражает текущее состояние подписки
func (m *subscriptionMetrics) SetActive(active bool) {
	if active {
		m.activeStatus.Set(1)
		return
	}
	m.activeStatus.Set(0)
}

// NopSubscriptionMetrics ничего не записывает
type NopSubscriptionMetrics struct{}

func (NopSubscriptionMetrics) IncCreated(string, bool) {}

func (NopSubscriptionMetrics) IncConflict() {}

func (NopSubscriptionMetrics) IncCancelled() {}

func (NopSubscriptionMetrics) IncExpired(string) {}

func (NopSubscriptionMetrics) IncLoginDenied(string) {}

func (NopSubscriptionMetrics) SetActive(bool) {}
