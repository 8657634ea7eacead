package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSubscriptionMetrics(registry).(*subscriptionMetrics)

	m.IncCreated("day", false)
	m.IncCreated("day", true)
	m.IncConflict()
	m.IncExpired("login")
	m.IncExpired("login")
	m.IncLoginDenied("subscription_expired")
	m.SetActive(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.created.WithLabelValues("day", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.expired.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginDenied.WithLabelValues("subscription_expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeStatus))

	m.SetActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeStatus))
}

func TestSystemMetricsStopIsIdempotent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSystemMetrics(registry, logger.NewNop())

	m.StartRecording(context.Background(), time.Hour)
	m.Stop()
	m.Stop()

	assert.Greater(t, testutil.ToFloat64(m.(*systemMetrics).goroutines), 0.0)
}
