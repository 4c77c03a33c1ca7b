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

// WhatsAppSender delivers through the WhatsApp Business Cloud API.
type WhatsAppSender struct {
	settings models.WhatsAppSettings
	client   *http.Client
}

func NewWhatsAppSender(settings models.WhatsAppSettings) *WhatsAppSender {
	timeout := time.Duration(settings.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppSender{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *WhatsAppSender) Channel() models.Channel {
	return models.ChannelWhatsApp
}

type whatsAppRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             whatsAppTextBody `json:"text"`
}

type whatsAppTextBody struct {
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (s *WhatsAppSender) Deliver(ctx context.Context, msg Message) (*Result, error) {
	payload, err := json.Marshal(whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               msg.Recipient,
		Type:             "text",
		Text:             whatsAppTextBody{Body: msg.Body},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal whatsapp request: %w", err)
	}

	url := strings.TrimRight(s.settings.APIEndpoint, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.settings.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Provider: "whatsapp", Status: resp.StatusCode}
	}

	var body whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && len(body.Messages) > 0 {
		return &Result{ProviderRef: body.Messages[0].ID}, nil
	}
	return &Result{}, nil
}
