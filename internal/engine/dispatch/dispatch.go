package dispatch

import (
	"context"
	"errors"
	"fmt"

	"sentinel/internal/platform/models"
)

// ErrChannelNotConfigured means no provider settings exist for a channel.
// The scheduler records the step as failed and keeps the case moving.
var ErrChannelNotConfigured = errors.New("channel not configured")

// Message is one outbound notification.
type Message struct {
	CaseID    string
	Recipient string
	Body      string
}

// Result reports a provider's answer to a delivery.
type Result struct {
	ProviderRef string
}

// StatusError is a provider rejection carrying the HTTP status, so callers
// can tell quota and rate-limit rejections from everything else.
type StatusError struct {
	Provider string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.Status)
}

// Sender delivers a message through one concrete provider. Senders do not
// retry; a failed step is retried only by the next policy step.
type Sender interface {
	Deliver(ctx context.Context, msg Message) (*Result, error)
	Channel() models.Channel
}

// Dispatcher routes a delivery to the sender for its channel. Provider
// credentials are loaded once at process start and injected here; there is
// no runtime settings lookup.
type Dispatcher struct {
	senders map[models.Channel]Sender
}

func NewDispatcher(senders ...Sender) *Dispatcher {
	m := make(map[models.Channel]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Dispatcher{senders: m}
}

func (d *Dispatcher) Deliver(ctx context.Context, channel models.Channel, msg Message) (*Result, error) {
	sender, ok := d.senders[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotConfigured, channel)
	}
	return sender.Deliver(ctx, msg)
}

// Configured reports whether a sender exists for the channel.
func (d *Dispatcher) Configured(channel models.Channel) bool {
	_, ok := d.senders[channel]
	return ok
}
