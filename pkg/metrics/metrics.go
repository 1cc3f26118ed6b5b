package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "buyza"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	webhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_requests_total",
		Help:      "Webhook requests by method and outcome",
	}, []string{"method", "outcome"}) // outcome=success|failure

	inboundMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbound_messages_total",
		Help:      "Inbound customer messages by conversation state",
	}, []string{"state"})

	duplicateMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_messages_total",
		Help:      "Inbound messages skipped because they were already handled",
	})

	outboundMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbound_messages_total",
		Help:      "WhatsApp sends by outcome",
	}, []string{"outcome"})

	sheetsOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sheets_operations_total",
		Help:      "Google Sheets API calls by operation and outcome",
	}, []string{"op", "outcome"})

	sheetsOperationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sheets_operation_duration_seconds",
		Help:      "Google Sheets API call latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	ordersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders created by order type",
	}, []string{"type"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_exceeded_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"route"})
)

func IncWebhookRequest(method, outcome string) {
	webhookRequestsTotal.WithLabelValues(method, outcome).Inc()
}

func IncInboundMessage(state string) { inboundMessagesTotal.WithLabelValues(state).Inc() }
func IncDuplicateMessage()           { duplicateMessagesTotal.Inc() }

func IncOutboundMessage(err error) { outboundMessagesTotal.WithLabelValues(outcome(err)).Inc() }

// ObserveSheetsOperation records one Sheets API call
func ObserveSheetsOperation(op string, seconds float64, err error) {
	sheetsOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
	sheetsOperationSeconds.WithLabelValues(op).Observe(seconds)
}

func IncOrderCreated(orderType string) { ordersCreatedTotal.WithLabelValues(orderType).Inc() }
func IncRateLimited(route string)      { rateLimitedTotal.WithLabelValues(route).Inc() }

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
