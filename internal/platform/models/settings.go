package models

// Provider setting types, keyed by setting_type in communication_settings.
const (
	SettingTypeWhatsApp = "whatsapp"
	SettingTypeSMS      = "sms"
	SettingTypeFreePBX  = "freepbx"
)

func ValidSettingType(s string) bool {
	switch s {
	case SettingTypeWhatsApp, SettingTypeSMS, SettingTypeFreePBX:
		return true
	}
	return false
}

// SMS provider identifiers.
const (
	SMSProviderEthioTelecom  = "ethio_telecom"
	SMSProviderAfricaTalking = "africa_talking"
	SMSProviderTwilio        = "twilio"
)

type WhatsAppSettings struct {
	APIEndpoint   string `json:"api_endpoint"`
	APIKey        string `json:"api_key"`
	BusinessPhone string `json:"business_phone"`
	WebhookURL    string `json:"webhook_url,omitempty"`
	TimeoutSecs   int    `json:"timeout_seconds,omitempty"`
}

type SMSSettings struct {
	Provider    string `json:"provider"` // ethio_telecom, africa_talking, twilio
	APIEndpoint string `json:"api_endpoint"`
	APIKey      string `json:"api_key"`
	SenderID    string `json:"sender_id"`
	Username    string `json:"username,omitempty"` // africa_talking account
	TimeoutSecs int    `json:"timeout_seconds,omitempty"`
}

type FreePBXSettings struct {
	ServerURL   string `json:"server_url"`
	APIKey      string `json:"api_key"`
	Extension   string `json:"extension"`
	CallerID    string `json:"caller_id"`
	TimeoutSecs int    `json:"timeout_seconds,omitempty"`
}
