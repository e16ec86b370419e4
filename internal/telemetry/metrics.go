package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

const namespace = "trivia"

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opentdb",
			Name:      "requests_total",
			Help:      "Requests sent to the trivia service, by endpoint and HTTP status.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "opentdb",
			Name:      "request_duration_seconds",
			Help:      "Round trip time of requests sent to the trivia service.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	upstreamResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "opentdb",
			Name:      "response_codes_total",
			Help:      "Response codes embedded in trivia service payloads.",
		},
		[]string{"endpoint", "response_code"},
	)

	questionsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_served_total",
			Help:      "Decoded questions handed to callers.",
		},
	)

	tokenUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_updates_total",
			Help:      "Session tokens obtained, by command.",
		},
		[]string{"command"},
	)

	redisCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Redis commands issued by the token store and notifier, by command and outcome.",
		},
		[]string{"command", "status"},
	)
)

// ObserveRequest records one round trip. Status 0 means the request never got
// an HTTP response.
func ObserveRequest(endpoint string, status int, d time.Duration) {
	s := "error"
	if status != 0 {
		s = strconv.Itoa(status)
	}

	upstreamRequests.WithLabelValues(endpoint, s).Inc()
	upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func ObserveResponseCode(endpoint string, code domain.ResponseCode) {
	upstreamResponseCodes.WithLabelValues(endpoint, strconv.Itoa(int(code))).Inc()
}

// CountDomainEvents keeps the question and token counters in step with the
// facade's events.
func CountDomainEvents(eb *event.Bus) {
	eb.Subscribe(domain.EventNameQuestionsFetched, func(_ context.Context, e event.Event) error {
		questionsServed.Add(float64(e.(domain.EventQuestionsFetched).Count))
		return nil
	})

	eb.Subscribe(domain.EventNameTokenUpdated, func(_ context.Context, e event.Event) error {
		tokenUpdates.WithLabelValues(string(e.(domain.EventTokenUpdated).Command)).Inc()
		return nil
	})
}
