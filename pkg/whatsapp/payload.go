package whatsapp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ObjectWhatsAppBusinessAccount is the webhook object type for WhatsApp events
const ObjectWhatsAppBusinessAccount = "whatsapp_business_account"

// WebhookPayload is the envelope Meta posts to the webhook
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account
type Entry struct {
	ID      string   `json:"id,omitempty"`
	Changes []Change `json:"changes"`
}

// Change is a single field change notification
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries messages, contacts and delivery statuses
type Value struct {
	MessagingProduct string    `json:"messaging_product,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

// Metadata identifies the receiving business number
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number,omitempty"`
	PhoneNumberID      string `json:"phone_number_id,omitempty"`
}

// Contact is the sender profile attached to messages
type Contact struct {
	WaID    string         `json:"wa_id"`
	Profile ContactProfile `json:"profile"`
}

// ContactProfile holds the WhatsApp display name
type ContactProfile struct {
	Name string `json:"name"`
}

// Message is one inbound message
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
	Button      *Button      `json:"button,omitempty"`
}

// Text is the body of a text message
type Text struct {
	Body string `json:"body"`
}

// Interactive holds button and list replies
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply is an interactive reply option
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Button is a quick reply button press on a template message
type Button struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Status is a delivery status callback for an outbound message
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InboundMessage is a flattened, bot friendly view of a Message
type InboundMessage struct {
	ID          string
	From        string
	ContactName string
	Type        string
	Text        string
	ReceivedAt  time.Time
}

// ParsePayload decodes a webhook body
func ParsePayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &payload, nil
}

// InboundMessages flattens every message across entries and changes.
// Status callbacks are skipped.
func (p *WebhookPayload) InboundMessages() []InboundMessage {
	if p == nil {
		return nil
	}
	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				if m.From == "" {
					continue
				}
				out = append(out, InboundMessage{
					ID:          m.ID,
					From:        m.From,
					ContactName: names[m.From],
					Type:        m.Type,
					Text:        m.text(),
					ReceivedAt:  parseUnix(m.Timestamp),
				})
			}
		}
	}
	return out
}

func (m Message) text() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		return m.Interactive.ButtonReply.Title
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		return m.Interactive.ListReply.Title
	case m.Button != nil:
		return m.Button.Text
	}
	return ""
}

func parseUnix(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
