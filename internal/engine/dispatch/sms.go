package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentinel/internal/platform/models"
)

// SMSSender delivers over one of the supported SMS gateways. The provider
// field in settings selects the wire format; the Deliver contract is the
// same for all three.
type SMSSender struct {
	settings models.SMSSettings
	client   *http.Client
}

func NewSMSSender(settings models.SMSSettings) (*SMSSender, error) {
	switch settings.Provider {
	case models.SMSProviderEthioTelecom, models.SMSProviderAfricaTalking, models.SMSProviderTwilio:
	default:
		return nil, fmt.Errorf("unknown sms provider: %q", settings.Provider)
	}

	timeout := time.Duration(settings.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMSSender{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (s *SMSSender) Channel() models.Channel {
	return models.ChannelSMS
}

func (s *SMSSender) Deliver(ctx context.Context, msg Message) (*Result, error) {
	switch s.settings.Provider {
	case models.SMSProviderTwilio:
		return s.deliverTwilio(ctx, msg)
	case models.SMSProviderAfricaTalking:
		return s.deliverAfricaTalking(ctx, msg)
	default:
		return s.deliverEthioTelecom(ctx, msg)
	}
}

// Twilio: form-encoded POST, basic auth with "sid:token" in api_key.
func (s *SMSSender) deliverTwilio(ctx context.Context, msg Message) (*Result, error) {
	form := url.Values{}
	form.Set("To", msg.Recipient)
	form.Set("From", s.settings.SenderID)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.APIEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sid, token, ok := strings.Cut(s.settings.APIKey, ":")
	if ok {
		req.SetBasicAuth(sid, token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Provider: "twilio", Status: resp.StatusCode}
	}

	var body struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		return &Result{ProviderRef: body.SID}, nil
	}
	return &Result{}, nil
}

// Africa's Talking: form-encoded POST with apiKey header.
func (s *SMSSender) deliverAfricaTalking(ctx context.Context, msg Message) (*Result, error) {
	form := url.Values{}
	form.Set("username", s.settings.Username)
	form.Set("to", msg.Recipient)
	form.Set("from", s.settings.SenderID)
	form.Set("message", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.APIEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create africastalking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.settings.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("africastalking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Provider: "africastalking", Status: resp.StatusCode}
	}

	var body struct {
		SMSMessageData struct {
			Recipients []struct {
				MessageID string `json:"messageId"`
			} `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && len(body.SMSMessageData.Recipients) > 0 {
		return &Result{ProviderRef: body.SMSMessageData.Recipients[0].MessageID}, nil
	}
	return &Result{}, nil
}

// Ethio Telecom: JSON POST with bearer key.
func (s *SMSSender) deliverEthioTelecom(ctx context.Context, msg Message) (*Result, error) {
	payload, err := json.Marshal(map[string]string{
		"to":        msg.Recipient,
		"sender_id": s.settings.SenderID,
		"message":   msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ethio telecom request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.APIEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ethio telecom request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.settings.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ethio telecom request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Provider: "ethio telecom", Status: resp.StatusCode}
	}

	var body struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		return &Result{ProviderRef: body.MessageID}, nil
	}
	return &Result{}, nil
}
