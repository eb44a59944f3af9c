package task

import (
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitConfig parameterizes the per-service breaker's trip threshold and
// cool-off. The breaker opens after FailureThreshold consecutive failed
// attempts; a success resets the count, and no time window applies.
type CircuitConfig struct {
	FailureThreshold     uint32
	CoolOff              time.Duration
	HalfOpenMaxRequests  uint32
	HalfOpenSuccessCount uint32
}

// DefaultCircuitConfig matches the defaults in pkg/config.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold:     5,
		CoolOff:              30 * time.Second,
		HalfOpenMaxRequests:  2,
		HalfOpenSuccessCount: 2,
	}
}

// CircuitRegistry is the process-wide map of hostname to circuit breaker
// described in the design notes: one map behind a single mutex, since state
// transitions are rare relative to request volume.
type CircuitRegistry struct {
	cfg      CircuitConfig
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewCircuitRegistry builds an empty registry. Breakers are created lazily,
// one per hostname, the first time that hostname is seen.
func NewCircuitRegistry(cfg CircuitConfig) *CircuitRegistry {
	return &CircuitRegistry{cfg: cfg, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// HostnameOf derives the circuit key from a resolved request URL. An
// unparseable URL degrades to the raw string so every request still gets a
// breaker rather than silently skipping circuit protection.
func HostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func (r *CircuitRegistry) breakerFor(hostname string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[hostname]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: hostname,
		// gobreaker closes the breaker once consecutive half-open
		// successes reach MaxRequests, so that knob carries
		// HalfOpenSuccessCount rather than HalfOpenMaxRequests.
		MaxRequests: r.cfg.HalfOpenSuccessCount,
		Interval:    0,
		Timeout:     r.cfg.CoolOff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.FailureThreshold
		},
	})
	r.breakers[hostname] = b
	return b
}

// Allow reports whether an attempt against hostname may proceed, and
// returns a done func the caller must invoke with the attempt's outcome.
// Allow itself never blocks or performs I/O.
func (r *CircuitRegistry) Allow(hostname string) (ok bool, done func(success bool)) {
	b := r.breakerFor(hostname)
	if b.State() == gobreaker.StateOpen {
		return false, func(bool) {}
	}
	return true, func(success bool) {
		_, _ = b.Execute(func() (any, error) {
			if success {
				return nil, nil
			}
			return nil, errCircuitObservedFailure
		})
	}
}

var errCircuitObservedFailure = circuitObservedFailure{}

type circuitObservedFailure struct{}

func (circuitObservedFailure) Error() string { return "observed failure" }
