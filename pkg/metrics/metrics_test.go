package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncOutboundMessage(t *testing.T) {
	okBefore := testutil.ToFloat64(outboundMessagesTotal.WithLabelValues(OutcomeSuccess))
	failBefore := testutil.ToFloat64(outboundMessagesTotal.WithLabelValues(OutcomeFailure))

	IncOutboundMessage(nil)
	IncOutboundMessage(errors.New("boom"))
	IncOutboundMessage(errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(outboundMessagesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, failBefore+2, testutil.ToFloat64(outboundMessagesTotal.WithLabelValues(OutcomeFailure)))
}

func TestObserveSheetsOperation(t *testing.T) {
	before := testutil.ToFloat64(sheetsOperationsTotal.WithLabelValues("append", OutcomeSuccess))
	ObserveSheetsOperation("append", 0.05, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(sheetsOperationsTotal.WithLabelValues("append", OutcomeSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(sheetsOperationSeconds, "buyza_sheets_operation_duration_seconds"))
}

func TestCountersByLabel(t *testing.T) {
	IncWebhookRequest("POST", "accepted")
	IncInboundMessage("menu")
	IncDuplicateMessage()
	IncOrderCreated("Online Order")
	IncRateLimited("webhook")

	assert.Equal(t, float64(1), testutil.ToFloat64(webhookRequestsTotal.WithLabelValues("POST", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(inboundMessagesTotal.WithLabelValues("menu")))
	assert.Equal(t, float64(1), testutil.ToFloat64(duplicateMessagesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(ordersCreatedTotal.WithLabelValues("Online Order")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rateLimitedTotal.WithLabelValues("webhook")))
}
