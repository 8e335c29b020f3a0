package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Rotation result labels.
const (
	RotationOK           = "ok"
	RotationUnauthorized = "unauthorized"
	RotationExpired      = "expired"
	RotationError        = "error"
)

// TokenMetrics exposes Prometheus collectors for the token lifecycle.
type TokenMetrics struct {
	Issued    prometheus.Counter
	Rotations *prometheus.CounterVec
	Revoked   prometheus.Counter
	Swept     prometheus.Counter
}

// NewTokenMetrics constructs and registers the lifecycle collectors with the
// provided registerer (DefaultRegisterer when nil).
func NewTokenMetrics(reg prometheus.Registerer) (*TokenMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	issued := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "letip",
		Subsystem: "auth",
		Name:      "sessions_issued_total",
		Help:      "Total number of sessions created by successful logins.",
	})
	if err := registerCounter(reg, &issued); err != nil {
		return nil, err
	}

	rotations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "letip",
		Subsystem: "auth",
		Name:      "token_rotations_total",
		Help:      "Total number of refresh-token rotation attempts partitioned by result.",
	}, []string{"result"})
	if err := reg.Register(rotations); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				rotations = existing
			} else {
				return nil, fmt.Errorf("existing rotations collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register rotations collector: %w", err)
		}
	}

	revoked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "letip",
		Subsystem: "auth",
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions removed by logout or logout-everywhere.",
	})
	if err := registerCounter(reg, &revoked); err != nil {
		return nil, err
	}

	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "letip",
		Subsystem: "auth",
		Name:      "sessions_swept_total",
		Help:      "Total number of expired sessions removed by the sweeper.",
	})
	if err := registerCounter(reg, &swept); err != nil {
		return nil, err
	}

	return &TokenMetrics{
		Issued:    issued,
		Rotations: rotations,
		Revoked:   revoked,
		Swept:     swept,
	}, nil
}

func registerCounter(reg prometheus.Registerer, counter *prometheus.Counter) error {
	if err := reg.Register(*counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				*counter = existing
				return nil
			}
			return fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return fmt.Errorf("register counter: %w", err)
	}
	return nil
}
