package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker tuning for one upstream API.
type BreakerConfig struct {
	// Name identifies the breaker in logs and the status endpoint.
	Name string

	// HalfOpenRequests is the number of probe requests allowed while
	// half-open. Default: 1
	HalfOpenRequests uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// ConsecutiveFailures trips the breaker after this many failures in a
	// row. Default: 5
	ConsecutiveFailures uint32

	// OnStateChange, if set, is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

func (cfg BreakerConfig) withDefaults() BreakerConfig {
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	return cfg
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*responseEnvelope] {
	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return gobreaker.NewCircuitBreaker[*responseEnvelope](settings)
}
