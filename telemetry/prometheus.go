package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink is a Sink backed by github.com/prometheus/client_golang.
// It generalizes the teacher's examples/prometheus CircuitBreakerCollector
// (originally a single-breaker, example-only collector) into a reusable
// sink that every primitive in this module can share, registered once at
// startup via NewPrometheusSink.
type PrometheusSink struct {
	stateChanges   *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	outcomeLatency *prometheus.HistogramVec
	rateDecisions  *prometheus.CounterVec
	tokensLeft     *prometheus.GaugeVec
	retryAttempts  *prometheus.CounterVec
	retryDelay     *prometheus.HistogramVec
	frames         *prometheus.CounterVec
	frameBytes     *prometheus.HistogramVec
}

// NewPrometheusSink creates and registers the collectors on reg. Pass
// prometheus.DefaultRegisterer to use the global default registry, or a
// dedicated prometheus.NewRegistry() for isolated tests.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"name", "from", "to"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_circuit_breaker_outcomes_total",
			Help: "Guarded call outcomes recorded by the circuit breaker.",
		}, []string{"name", "success"}),
		outcomeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentinel_circuit_breaker_call_duration_seconds",
			Help: "Duration of guarded calls.",
		}, []string{"name"}),
		rateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_rate_limiter_decisions_total",
			Help: "Rate limiter allow/refuse decisions.",
		}, []string{"name", "allowed"}),
		tokensLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_rate_limiter_tokens",
			Help: "Tokens remaining after the last decision.",
		}, []string{"name"}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_retry_attempts_total",
			Help: "Retry attempts recorded by the retry policy.",
		}, []string{"name", "succeeded"}),
		retryDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentinel_retry_backoff_seconds",
			Help: "Computed backoff delay before each retry attempt.",
		}, []string{"name"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_ipc_frames_total",
			Help: "IPC frames read or written.",
		}, []string{"name", "direction", "result"}),
		frameBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentinel_ipc_frame_bytes",
			Help: "Payload size of IPC frames.",
		}, []string{"name", "direction"}),
	}

	reg.MustRegister(s.stateChanges, s.outcomes, s.outcomeLatency,
		s.rateDecisions, s.tokensLeft, s.retryAttempts, s.retryDelay,
		s.frames, s.frameBytes)

	return s
}

func (s *PrometheusSink) RecordStateChange(name string, from, to string) {
	s.stateChanges.WithLabelValues(name, from, to).Inc()
}

func (s *PrometheusSink) RecordOutcome(name string, success bool, duration time.Duration) {
	s.outcomes.WithLabelValues(name, boolLabel(success)).Inc()
	s.outcomeLatency.WithLabelValues(name).Observe(duration.Seconds())
}

func (s *PrometheusSink) RecordRateLimitDecision(name string, allowed bool, tokensRemaining float64) {
	s.rateDecisions.WithLabelValues(name, boolLabel(allowed)).Inc()
	s.tokensLeft.WithLabelValues(name).Set(tokensRemaining)
}

func (s *PrometheusSink) RecordRetryAttempt(name string, attempt int, succeeded bool, delay time.Duration) {
	s.retryAttempts.WithLabelValues(name, boolLabel(succeeded)).Inc()
	s.retryDelay.WithLabelValues(name).Observe(delay.Seconds())
}

func (s *PrometheusSink) RecordFrame(name string, direction string, bytes int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.frames.WithLabelValues(name, direction, result).Inc()
	s.frameBytes.WithLabelValues(name, direction).Observe(float64(bytes))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
