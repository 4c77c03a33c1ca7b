package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"sentinel/internal/platform/models"
)

// ErrSettingNotFound means no provider configuration is stored for a
// setting type. Callers treat this as "channel not configured".
var ErrSettingNotFound = errors.New("setting not found")

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(settingType string) (json.RawMessage, error) {
	var value []byte
	err := r.db.QueryRow(`SELECT value FROM communication_settings WHERE setting_type = ?`, settingType).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

func (r *SettingsRepository) Put(settingType string, value json.RawMessage) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO communication_settings (setting_type, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(setting_type) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query, settingType, string(value), now, now)
	return err
}

func (r *SettingsRepository) GetWhatsApp() (*models.WhatsAppSettings, error) {
	raw, err := r.Get(models.SettingTypeWhatsApp)
	if err != nil {
		return nil, err
	}
	var s models.WhatsAppSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) GetSMS() (*models.SMSSettings, error) {
	raw, err := r.Get(models.SettingTypeSMS)
	if err != nil {
		return nil, err
	}
	var s models.SMSSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) GetFreePBX() (*models.FreePBXSettings, error) {
	raw, err := r.Get(models.SettingTypeFreePBX)
	if err != nil {
		return nil, err
	}
	var s models.FreePBXSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
