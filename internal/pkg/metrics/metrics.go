package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var WebhookEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "instagrowth",
	Subsystem: "billing",
	Name:      "webhook_events_total",
	Help:      "Count of received payment webhook events by type and outcome",
}, []string{"type", "outcome"})

var CommentDraftsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "instagrowth",
	Subsystem: "drafting",
	Name:      "comment_drafts_total",
	Help:      "Count of comment drafting requests by outcome",
}, []string{"outcome"})

var CommentDraftDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "instagrowth",
	Subsystem: "drafting",
	Name:      "comment_draft_duration_seconds",
	Help:      "Latency of inference calls used to draft comments",
	Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
})

// Outcome labels shared by the counters above.
const (
	OutcomeApplied          = "applied"
	OutcomeIgnored          = "ignored"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeInvalidPayload   = "invalid_payload"
	OutcomeSuccess          = "success"
	OutcomeRejected         = "rejected"
	OutcomeLimited          = "limited"
	OutcomeError            = "error"
)
