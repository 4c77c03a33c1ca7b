package models

// Webhook event types. The firing code and WebhookConfig validation must
// agree on this set; extend both together.
const (
	EventDistributionSent       = "distribution.sent"
	EventDistributionFailed     = "distribution.failed"
	EventApprovalRequested      = "approval.requested"
	EventApprovalApproved       = "approval.approved"
	EventApprovalRejected       = "approval.rejected"
	EventEscalationTriggered    = "escalation.triggered"
	EventEscalationAcknowledged = "escalation.acknowledged"
	EventEscalationExhausted    = "escalation.exhausted"
)

var webhookEventTypes = map[string]bool{
	EventDistributionSent:       true,
	EventDistributionFailed:     true,
	EventApprovalRequested:      true,
	EventApprovalApproved:       true,
	EventApprovalRejected:       true,
	EventEscalationTriggered:    true,
	EventEscalationAcknowledged: true,
	EventEscalationExhausted:    true,
}

func ValidEventType(s string) bool {
	return webhookEventTypes[s]
}

type WebhookConfig struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Secret         string            `json:"secret,omitempty"`
	Events         []string          `json:"events"` // JSON array in DB
	Headers        map[string]string `json:"headers,omitempty"`
	RetryCount     int               `json:"retry_count"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      int64             `json:"created_at"`
	UpdatedAt      int64             `json:"updated_at"`
}

// WebhookDelivery records one outbound POST attempt, success or failure.
type WebhookDelivery struct {
	ID             string `json:"id"`
	WebhookID      string `json:"webhook_id"`
	EventID        string `json:"event_id"`
	EventType      string `json:"event_type"`
	Attempt        int    `json:"attempt"`
	ResponseStatus *int   `json:"response_status,omitempty"`
	DeliveredAt    *int64 `json:"delivered_at,omitempty"`
	FailedAt       *int64 `json:"failed_at,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

type WebhookEvent struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}
