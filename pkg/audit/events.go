package audit

import "fmt"

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// MessageEvent records an inbound customer message handled by the flow
type MessageEvent struct {
	Phone       string
	WAMessageID string
	FromState   string
	ToState     string
	OrderID     string
	Success     bool
	Error       string
}

func (e MessageEvent) MessageID() string {
	return "message"
}

func (e MessageEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s message handled (%s -> %s)", e.Phone, e.FromState, e.ToState)
	}
	msg := fmt.Sprintf("%s message failed in state %s", e.Phone, e.FromState)
	if e.Error != "" {
		msg += ": " + e.Error
	}
	return msg
}

func (e MessageEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityError
}

func (e MessageEvent) Facility() int {
	return FacilityUser
}

func (e MessageEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"phone":   e.Phone,
			"message": e.WAMessageID,
		},
		SDIDAction: {
			"operation": "handle",
			"from":      e.FromState,
			"to":        e.ToState,
			"result":    result(e.Success),
		},
	}
	if e.OrderID != "" {
		sd[SDIDOrder] = map[string]string{"id": e.OrderID}
	}
	return sd
}

// OrderEvent records a ledger order being created or changed
type OrderEvent struct {
	OrderID   string
	Phone     string
	Operation string
	Status    string
	Success   bool
	Error     string
}

func (e OrderEvent) MessageID() string {
	return "order"
}

func (e OrderEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("order %s %s (status %s)", e.OrderID, e.Operation, e.Status)
	}
	msg := fmt.Sprintf("order %s could not be %s", e.OrderID, e.Operation)
	if e.Error != "" {
		msg += ": " + e.Error
	}
	return msg
}

func (e OrderEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e OrderEvent) Facility() int {
	return FacilityUser
}

func (e OrderEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDOrder: {
			"id":     e.OrderID,
			"status": e.Status,
		},
		SDIDSubject: {
			"phone": e.Phone,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
}

// Webhook operations
const (
	WebhookVerify    = "verify"
	WebhookSignature = "signature"
)

// WebhookEvent records the subscription handshake and signature checks
type WebhookEvent struct {
	Operation string
	ClientIP  string
	Success   bool
	Error     string
}

func (e WebhookEvent) MessageID() string {
	return "webhook"
}

func (e WebhookEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("webhook %s succeeded from %s", e.Operation, e.ClientIP)
	}
	msg := fmt.Sprintf("webhook %s failed from %s", e.Operation, e.ClientIP)
	if e.Error != "" {
		msg += ": " + e.Error
	}
	return msg
}

func (e WebhookEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e WebhookEvent) Facility() int {
	return FacilityAuth
}

func (e WebhookEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
}

// AdminEvent records an agent action through the admin API
type AdminEvent struct {
	Agent     string
	ClientIP  string
	Operation string
	Target    string
	Success   bool
	Error     string
}

func (e AdminEvent) MessageID() string {
	return "admin"
}

func (e AdminEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s performed %s on %s", e.Agent, e.Operation, e.Target)
	}
	msg := fmt.Sprintf("%s failed to perform %s on %s", e.Agent, e.Operation, e.Target)
	if e.Error != "" {
		msg += ": " + e.Error
	}
	return msg
}

func (e AdminEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e AdminEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AdminEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAgent: {
			"user": e.Agent,
		},
		SDIDSubject: {
			"target": e.Target,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
}
