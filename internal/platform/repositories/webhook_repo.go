package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(webhook *models.WebhookConfig) error {
	webhook.ID = "wh_" + uuid.New().String()
	webhook.CreatedAt = time.Now().Unix()
	webhook.UpdatedAt = webhook.CreatedAt
	webhook.IsActive = true

	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return err
	}
	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhooks (id, name, url, secret, events, headers, retry_count, timeout_seconds, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, webhook.ID, webhook.Name, webhook.URL, webhook.Secret,
		string(eventsJSON), string(headersJSON), webhook.RetryCount, webhook.TimeoutSeconds,
		webhook.IsActive, webhook.CreatedAt, webhook.UpdatedAt)
	return err
}

const webhookColumns = `id, name, url, secret, events, headers, retry_count, timeout_seconds, is_active, created_at, updated_at`

func (r *WebhookRepository) GetByID(id string) (*models.WebhookConfig, error) {
	row := r.db.QueryRow(`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	return scanWebhook(row)
}

func (r *WebhookRepository) List() ([]*models.WebhookConfig, error) {
	rows, err := r.db.Query(`SELECT ` + webhookColumns + ` FROM webhooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var webhooks []*models.WebhookConfig
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// ListByEvent returns active webhooks subscribed to the given event type.
// The events column is a JSON array; filtering happens here rather than in
// SQL to keep the schema portable.
func (r *WebhookRepository) ListByEvent(eventType string) ([]*models.WebhookConfig, error) {
	rows, err := r.db.Query(`SELECT ` + webhookColumns + ` FROM webhooks WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*models.WebhookConfig
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		for _, e := range w.Events {
			if e == eventType {
				matched = append(matched, w)
				break
			}
		}
	}
	return matched, rows.Err()
}

func (r *WebhookRepository) Update(webhook *models.WebhookConfig) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return err
	}
	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return err
	}
	webhook.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE webhooks
		SET name = ?, url = ?, secret = ?, events = ?, headers = ?, retry_count = ?, timeout_seconds = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query, webhook.Name, webhook.URL, webhook.Secret, string(eventsJSON),
		string(headersJSON), webhook.RetryCount, webhook.TimeoutSeconds, webhook.IsActive,
		webhook.UpdatedAt, webhook.ID)
	return err
}

func (r *WebhookRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	return err
}

// RecordDelivery appends one delivery-attempt row; rows are never updated.
func (r *WebhookRepository) RecordDelivery(d *models.WebhookDelivery) error {
	d.ID = "whd_" + uuid.New().String()
	d.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, event_id, event_type, attempt, response_status, delivered_at, failed_at, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.WebhookID, d.EventID, d.EventType, d.Attempt,
		nullableInt(d.ResponseStatus), nullableInt64(d.DeliveredAt), nullableInt64(d.FailedAt),
		d.ErrorMessage, d.CreatedAt)
	return err
}

func (r *WebhookRepository) ListDeliveries(webhookID string, limit int) ([]*models.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, webhook_id, event_id, event_type, attempt, response_status, delivered_at, failed_at, error_message, created_at
		FROM webhook_deliveries
		WHERE webhook_id = ?
		ORDER BY created_at DESC, attempt DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		var d models.WebhookDelivery
		var responseStatus sql.NullInt64
		var deliveredAt, failedAt sql.NullInt64
		var errMsg sql.NullString

		if err := rows.Scan(&d.ID, &d.WebhookID, &d.EventID, &d.EventType, &d.Attempt,
			&responseStatus, &deliveredAt, &failedAt, &errMsg, &d.CreatedAt); err != nil {
			return nil, err
		}
		if responseStatus.Valid {
			val := int(responseStatus.Int64)
			d.ResponseStatus = &val
		}
		if deliveredAt.Valid {
			val := deliveredAt.Int64
			d.DeliveredAt = &val
		}
		if failedAt.Valid {
			val := failedAt.Int64
			d.FailedAt = &val
		}
		if errMsg.Valid {
			d.ErrorMessage = errMsg.String
		}
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

func scanWebhook(s interface {
	Scan(dest ...interface{}) error
}) (*models.WebhookConfig, error) {
	var w models.WebhookConfig
	var eventsRaw, headersRaw []byte
	var secret sql.NullString

	err := s.Scan(&w.ID, &w.Name, &w.URL, &secret, &eventsRaw, &headersRaw,
		&w.RetryCount, &w.TimeoutSeconds, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if secret.Valid {
		w.Secret = secret.String
	}
	if len(eventsRaw) > 0 {
		if err := json.Unmarshal(eventsRaw, &w.Events); err != nil {
			return nil, fmt.Errorf("decode webhook %s events: %w", w.ID, err)
		}
	}
	if len(headersRaw) > 0 {
		if err := json.Unmarshal(headersRaw, &w.Headers); err != nil {
			return nil, fmt.Errorf("decode webhook %s headers: %w", w.ID, err)
		}
	}
	return &w, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
