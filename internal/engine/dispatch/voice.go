package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sentinel/internal/platform/models"
)

// VoiceCallSender originates a call through a FreePBX server. The call plays
// a text-to-speech rendering of the message body; that side is FreePBX
// dialplan configuration, not ours.
type VoiceCallSender struct {
	settings models.FreePBXSettings
	client   *http.Client
}

func NewVoiceCallSender(settings models.FreePBXSettings) *VoiceCallSender {
	timeout := time.Duration(settings.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VoiceCallSender{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *VoiceCallSender) Channel() models.Channel {
	return models.ChannelVoiceCall
}

type originateRequest struct {
	Extension   string `json:"extension"`
	Destination string `json:"destination"`
	CallerID    string `json:"caller_id"`
	Message     string `json:"message"`
}

type originateResponse struct {
	CallID string `json:"call_id"`
}

func (s *VoiceCallSender) Deliver(ctx context.Context, msg Message) (*Result, error) {
	payload, err := json.Marshal(originateRequest{
		Extension:   s.settings.Extension,
		Destination: msg.Recipient,
		CallerID:    s.settings.CallerID,
		Message:     msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal originate request: %w", err)
	}

	url := strings.TrimRight(s.settings.ServerURL, "/") + "/api/originate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create originate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.settings.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freepbx request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Provider: "freepbx", Status: resp.StatusCode}
	}

	var body originateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		return &Result{ProviderRef: body.CallID}, nil
	}
	return &Result{}, nil
}
