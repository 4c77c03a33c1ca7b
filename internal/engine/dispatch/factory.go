package dispatch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"sentinel/internal/platform/repositories"
)

// FromSettings builds a Dispatcher from persisted provider settings, loaded
// once at process start. Channels without stored settings are simply absent;
// dispatching to them yields ErrChannelNotConfigured.
func FromSettings(settings *repositories.SettingsRepository) (*Dispatcher, error) {
	var senders []Sender

	wa, err := settings.GetWhatsApp()
	switch {
	case err == nil:
		senders = append(senders, NewWhatsAppSender(*wa))
	case errors.Is(err, repositories.ErrSettingNotFound):
		log.Warn().Msg("whatsapp settings missing, channel disabled")
	default:
		return nil, err
	}

	sms, err := settings.GetSMS()
	switch {
	case err == nil:
		sender, err := NewSMSSender(*sms)
		if err != nil {
			return nil, err
		}
		senders = append(senders, sender)
	case errors.Is(err, repositories.ErrSettingNotFound):
		log.Warn().Msg("sms settings missing, channel disabled")
	default:
		return nil, err
	}

	pbx, err := settings.GetFreePBX()
	switch {
	case err == nil:
		senders = append(senders, NewVoiceCallSender(*pbx))
	case errors.Is(err, repositories.ErrSettingNotFound):
		log.Warn().Msg("freepbx settings missing, channel disabled")
	default:
		return nil, err
	}

	return NewDispatcher(senders...), nil
}
