package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"sentinel/internal/pkg/errors"
	"sentinel/internal/platform/audit"
	"sentinel/internal/platform/models"
	"sentinel/internal/platform/repositories"
)

// SettingsHandler manages provider configuration rows keyed by setting_type.
// Changes take effect on the next worker start; the dispatcher holds an
// immutable snapshot for its process lifetime.
type SettingsHandler struct {
	repo  *repositories.SettingsRepository
	audit *audit.Logger
}

func NewSettingsHandler(repo *repositories.SettingsRepository, auditLog *audit.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, audit: auditLog}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settingType := paramFromContext(r, "setting_type")
	if !models.ValidSettingType(settingType) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "unknown setting_type", nil)
		return
	}

	raw, err := h.repo.Get(settingType)
	if stderrors.Is(err, repositories.ErrSettingNotFound) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Setting not configured", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load setting", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	settingType := paramFromContext(r, "setting_type")
	if !models.ValidSettingType(settingType) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "unknown setting_type", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read body", nil)
		return
	}

	if msg, ok := validateSetting(settingType, body); !ok {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, msg, nil)
		return
	}

	if err := h.repo.Put(settingType, body); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to save setting", nil)
		return
	}

	h.audit.Log(r.Context(), "settings.updated", "communication_setting", settingType, nil)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// validateSetting parses the payload into the typed settings struct for the
// setting type, checking required fields before persisting.
func validateSetting(settingType string, body []byte) (string, bool) {
	switch settingType {
	case models.SettingTypeWhatsApp:
		var s models.WhatsAppSettings
		if err := json.Unmarshal(body, &s); err != nil {
			return "invalid whatsapp settings: " + err.Error(), false
		}
		if s.APIEndpoint == "" || s.APIKey == "" {
			return "api_endpoint and api_key are required", false
		}
	case models.SettingTypeSMS:
		var s models.SMSSettings
		if err := json.Unmarshal(body, &s); err != nil {
			return "invalid sms settings: " + err.Error(), false
		}
		switch s.Provider {
		case models.SMSProviderEthioTelecom, models.SMSProviderAfricaTalking, models.SMSProviderTwilio:
		default:
			return "provider must be ethio_telecom, africa_talking or twilio", false
		}
		if s.APIEndpoint == "" || s.APIKey == "" {
			return "api_endpoint and api_key are required", false
		}
	case models.SettingTypeFreePBX:
		var s models.FreePBXSettings
		if err := json.Unmarshal(body, &s); err != nil {
			return "invalid freepbx settings: " + err.Error(), false
		}
		if s.ServerURL == "" || s.APIKey == "" {
			return "server_url and api_key are required", false
		}
	}
	return "", true
}
