package models

import "fmt"

// Channel is a delivery mechanism for an escalation step.
type Channel string

const (
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelSMS       Channel = "sms"
	ChannelVoiceCall Channel = "voice_call"
)

// ParseChannel validates a raw channel string at configuration-write time so
// a typo in a rule fails on save, not at dispatch.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWhatsApp, ChannelSMS, ChannelVoiceCall:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel: %q", s)
}

// Case statuses.
const (
	CaseStatusPending      = "pending"
	CaseStatusAcknowledged = "acknowledged"
	CaseStatusExhausted    = "exhausted"
)

// Delivery attempt statuses.
const (
	AttemptStatusSent   = "sent"
	AttemptStatusFailed = "failed"
)

type UrgentKeyword struct {
	ID            string `json:"id"`
	Keyword       string `json:"keyword"`
	PriorityLevel int    `json:"priority_level"`
	AutoEscalate  bool   `json:"auto_escalate"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

type EscalationRule struct {
	ID              string  `json:"id"`
	RuleName        string  `json:"rule_name"`
	PriorityLevel   int     `json:"priority_level"`
	StepOrder       int     `json:"step_order"`
	WaitTimeMinutes int     `json:"wait_time_minutes"`
	EscalateTo      Channel `json:"escalate_to"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

// EscalationCase is one in-flight urgent-notification workflow instance.
// CurrentStep is the index of the next rule step to handle when the case
// comes due; once it runs past the last step the case is exhausted.
type EscalationCase struct {
	ID              string `json:"id"`
	TriggerSource   string `json:"trigger_source"`
	Keyword         string `json:"keyword"`
	PriorityLevel   int    `json:"priority_level"`
	Recipient       string `json:"recipient"`
	Message         string `json:"message"`
	CurrentStep     int    `json:"current_step"`
	Status          string `json:"status"`
	NextDueAt       int64  `json:"next_due_at"`
	LastEscalatedAt *int64 `json:"last_escalated_at,omitempty"`
	AcknowledgedAt  *int64 `json:"acknowledged_at,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// DeliveryAttempt is an append-only ledger row; never mutated once written.
type DeliveryAttempt struct {
	ID           string  `json:"id"`
	CaseID       string  `json:"case_id"`
	Step         int     `json:"step"`
	Channel      Channel `json:"channel"`
	Recipient    string  `json:"recipient"`
	Status       string  `json:"status"`
	ProviderRef  string  `json:"provider_ref,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	SentAt       int64   `json:"sent_at"`
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	LastLoginAt  *int64 `json:"last_login_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}
