package whatsapp

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SimulatedPayload builds the webhook payload Meta would post for a single
// text message from a user.
func SimulatedPayload(from, message string, at time.Time) WebhookPayload {
	return WebhookPayload{
		Object: ObjectWhatsAppBusinessAccount,
		Entry: []Entry{{
			Changes: []Change{{
				Field: "messages",
				Value: Value{
					MessagingProduct: "whatsapp",
					Messages: []Message{{
						From:      from,
						ID:        "SIMULATED-" + uuid.NewString(),
						Timestamp: strconv.FormatInt(at.Unix(), 10),
						Type:      "text",
						Text:      &Text{Body: message},
					}},
				},
			}},
		}},
	}
}
