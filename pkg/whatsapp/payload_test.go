package whatsapp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textWebhook = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "263780000000", "phone_number_id": "111"},
        "contacts": [{"wa_id": "263771234567", "profile": {"name": "Tendai"}}],
        "messages": [{
          "from": "263771234567",
          "id": "wamid.1",
          "timestamp": "1700000000",
          "type": "text",
          "text": {"body": "Hi, I want to order"}
        }]
      }
    }]
  }]
}`

func TestParsePayload_TextMessage(t *testing.T) {
	payload, err := ParsePayload([]byte(textWebhook))
	require.NoError(t, err)
	assert.Equal(t, ObjectWhatsAppBusinessAccount, payload.Object)

	msgs := payload.InboundMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "wamid.1", msgs[0].ID)
	assert.Equal(t, "263771234567", msgs[0].From)
	assert.Equal(t, "Tendai", msgs[0].ContactName)
	assert.Equal(t, "Hi, I want to order", msgs[0].Text)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].ReceivedAt)
}

func TestParsePayload_Invalid(t *testing.T) {
	_, err := ParsePayload([]byte("{not json"))
	assert.ErrorContains(t, err, "invalid webhook payload")
}

func TestInboundMessages_InteractiveAndButton(t *testing.T) {
	payload := WebhookPayload{
		Entry: []Entry{{
			Changes: []Change{
				{Value: Value{Messages: []Message{
					{From: "1", ID: "a", Type: "interactive", Interactive: &Interactive{ButtonReply: &Reply{ID: "yes", Title: "YES"}}},
					{From: "2", ID: "b", Type: "interactive", Interactive: &Interactive{ListReply: &Reply{ID: "opt1", Title: "1"}}},
				}}},
				{Value: Value{Messages: []Message{
					{From: "3", ID: "c", Type: "button", Button: &Button{Text: "Menu", Payload: "MENU"}},
					{From: "", ID: "d", Type: "text", Text: &Text{Body: "dropped"}},
				}}},
			},
		}},
	}

	msgs := payload.InboundMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "YES", msgs[0].Text)
	assert.Equal(t, "1", msgs[1].Text)
	assert.Equal(t, "Menu", msgs[2].Text)
}

func TestInboundMessages_StatusesOnly(t *testing.T) {
	payload := WebhookPayload{
		Entry: []Entry{{Changes: []Change{{Value: Value{
			Statuses: []Status{{ID: "wamid.9", Status: "delivered", RecipientID: "263771234567"}},
		}}}}},
	}
	assert.Empty(t, payload.InboundMessages())

	var nilPayload *WebhookPayload
	assert.Nil(t, nilPayload.InboundMessages())
}

func TestSimulatedPayload(t *testing.T) {
	at := time.Unix(1700000100, 0)
	payload := SimulatedPayload("263771234567", `He said "hi"`, at)

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	parsed, err := ParsePayload(data)
	require.NoError(t, err)

	msgs := parsed.InboundMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `He said "hi"`, msgs[0].Text)
	assert.Equal(t, at.UTC(), msgs[0].ReceivedAt)
	assert.Contains(t, msgs[0].ID, "SIMULATED-")
}
