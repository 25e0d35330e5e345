package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus collectors for the HTTP boundary. Collectors
// are registered on a per-server registry so tests can spin up independent
// servers without duplicate registration panics.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	answerFragments    prometheus.Counter
	fallbackAnswers    prometheus.Counter
	ingestedChunks     prometheus.Counter
	conversationErrors prometheus.Counter
}

func newMetrics() *metrics {
	collectors := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragline_http_requests_total",
				Help: "Total HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragline_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		answerFragments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragline_answer_fragments_total",
			Help: "Answer fragments streamed to clients.",
		}),
		fallbackAnswers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragline_fallback_answers_total",
			Help: "Conversations answered with the fixed fallback message.",
		}),
		ingestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragline_ingested_chunks_total",
			Help: "Knowledge base chunks written by document uploads.",
		}),
		conversationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragline_conversation_errors_total",
			Help: "Conversation runs terminated by an error.",
		}),
	}

	collectors.registry.MustRegister(
		collectors.requestsTotal,
		collectors.requestDuration,
		collectors.answerFragments,
		collectors.fallbackAnswers,
		collectors.ingestedChunks,
		collectors.conversationErrors,
	)
	return collectors
}
