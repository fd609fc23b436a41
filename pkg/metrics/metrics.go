package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabflow_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// RefreshRotations counts refresh token rotations and their outcome (success|invalid|expired).
	RefreshRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabflow_refresh_rotations_total",
			Help: "Total number of refresh token rotation attempts",
		},
		[]string{"result"},
	)

	// InviteRedemptions counts invite redemption attempts by outcome.
	InviteRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabflow_invite_redemptions_total",
			Help: "Total number of invite redemption attempts",
		},
		[]string{"result"},
	)

	// ActiveRefreshTokens tracks persisted refresh tokens that have not expired.
	ActiveRefreshTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collabflow_active_refresh_tokens",
			Help: "Number of active refresh tokens",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collabflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
