package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apiContext "sentinel/internal/api/context"
	"sentinel/internal/platform/auth"
)

// AuditLog records one administrative change to escalation configuration
// (keywords, rules, webhooks, provider settings).
type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    int64                  `json:"created_at"`
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log is best effort; an audit write failure must not fail the change itself.
func (l *Logger) Log(ctx context.Context, action, resourceType, resourceID string, metadata map[string]interface{}) {
	var userID string
	if claims, ok := ctx.Value(apiContext.Claims).(*auth.Claims); ok {
		userID = claims.UserID
	}

	entry := AuditLog{
		ID:           "aud_" + uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().Unix(),
	}

	metaJSON, _ := json.Marshal(entry.Metadata)

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := l.db.Exec(query, entry.ID, entry.UserID, entry.Action, entry.ResourceType,
		entry.ResourceID, string(metaJSON), entry.CreatedAt); err != nil {
		log.Error().Err(err).Str("action", action).Str("resource_id", resourceID).Msg("failed to write audit log")
	}
}

func (l *Logger) List(limit, offset int) ([]*AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, action, resource_type, resource_id, metadata, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := l.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditLog
	for rows.Next() {
		var e AuditLog
		var metaRaw []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &metaRaw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaRaw) > 0 {
			json.Unmarshal(metaRaw, &e.Metadata)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
