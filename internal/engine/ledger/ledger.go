package ledger

import (
	"database/sql"

	"github.com/google/uuid"

	"sentinel/internal/platform/models"
)

// Ledger is the append-only record of every delivery attempt. Rows are
// inserted once and never mutated; escalation progress is decided by the
// scheduler's own compare-and-set, never by ledger writes.
type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Record(a *models.DeliveryAttempt) error {
	if a.ID == "" {
		a.ID = "att_" + uuid.New().String()
	}

	query := `
		INSERT INTO delivery_attempts (id, case_id, step, channel, recipient, status, provider_ref, error_message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.Exec(query, a.ID, a.CaseID, a.Step, string(a.Channel), a.Recipient,
		a.Status, a.ProviderRef, a.ErrorMessage, a.SentAt)
	return err
}

// History returns all attempts for a case in the order they were made.
func (l *Ledger) History(caseID string) ([]*models.DeliveryAttempt, error) {
	query := `
		SELECT id, case_id, step, channel, recipient, status, provider_ref, error_message, sent_at
		FROM delivery_attempts
		WHERE case_id = ?
		ORDER BY sent_at, step
	`
	rows, err := l.db.Query(query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		var a models.DeliveryAttempt
		var channel string
		var providerRef, errMsg sql.NullString

		if err := rows.Scan(&a.ID, &a.CaseID, &a.Step, &channel, &a.Recipient,
			&a.Status, &providerRef, &errMsg, &a.SentAt); err != nil {
			return nil, err
		}
		a.Channel = models.Channel(channel)
		if providerRef.Valid {
			a.ProviderRef = providerRef.String
		}
		if errMsg.Valid {
			a.ErrorMessage = errMsg.String
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
