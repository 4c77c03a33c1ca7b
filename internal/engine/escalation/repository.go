package escalation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/platform/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const caseColumns = `id, trigger_source, keyword, priority_level, recipient, message, current_step, status, next_due_at, last_escalated_at, acknowledged_at, created_at, updated_at`

func (r *Repository) Create(c *models.EscalationCase) error {
	if c.ID == "" {
		c.ID = "case_" + uuid.New().String()
	}
	now := time.Now().Unix()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Status = models.CaseStatusPending

	query := `
		INSERT INTO escalation_cases (id, trigger_source, keyword, priority_level, recipient, message, current_step, status, next_due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, c.ID, c.TriggerSource, c.Keyword, c.PriorityLevel, c.Recipient,
		c.Message, c.CurrentStep, c.Status, c.NextDueAt, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repository) GetByID(id string) (*models.EscalationCase, error) {
	row := r.db.QueryRow(`SELECT `+caseColumns+` FROM escalation_cases WHERE id = ?`, id)
	return scanCase(row)
}

func (r *Repository) List(status string, limit, offset int) ([]*models.EscalationCase, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = r.db.Query(`SELECT `+caseColumns+` FROM escalation_cases WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			status, limit, offset)
	} else {
		rows, err = r.db.Query(`SELECT `+caseColumns+` FROM escalation_cases ORDER BY created_at DESC LIMIT ? OFFSET ?`,
			limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCases(rows)
}

// ListDue returns pending cases whose timer has expired. Due timers are
// re-derived from the table on every tick, so a process restart loses
// nothing.
func (r *Repository) ListDue(now int64, limit int) ([]*models.EscalationCase, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM escalation_cases
		WHERE status = ? AND next_due_at <= ?
		ORDER BY next_due_at
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.CaseStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCases(rows)
}

// AdvanceStep moves a pending case past the step it just dispatched. The
// WHERE clause is a compare-and-set on (status, current_step): if an
// acknowledgment or a concurrent tick got there first, no row matches and
// the caller's advancement is dropped.
func (r *Repository) AdvanceStep(id string, fromStep int, nextDueAt, now int64) (bool, error) {
	query := `
		UPDATE escalation_cases
		SET current_step = current_step + 1, next_due_at = ?, last_escalated_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND current_step = ?
	`
	res, err := r.db.Exec(query, nextDueAt, now, now, id, models.CaseStatusPending, fromStep)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// MarkExhausted terminates a pending case that has run out of steps, guarded
// the same way as AdvanceStep.
func (r *Repository) MarkExhausted(id string, fromStep int, now int64) (bool, error) {
	query := `
		UPDATE escalation_cases
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND current_step = ?
	`
	res, err := r.db.Exec(query, models.CaseStatusExhausted, now, id, models.CaseStatusPending, fromStep)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// Acknowledge moves any pending case straight to acknowledged. The losing
// side of an ack-vs-timer race sees zero rows affected and discards its
// write silently.
func (r *Repository) Acknowledge(id string, now int64) (bool, error) {
	query := `
		UPDATE escalation_cases
		SET status = ?, acknowledged_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.db.Exec(query, models.CaseStatusAcknowledged, now, now, id, models.CaseStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func collectCases(rows *sql.Rows) ([]*models.EscalationCase, error) {
	var cases []*models.EscalationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func scanCase(s interface {
	Scan(dest ...interface{}) error
}) (*models.EscalationCase, error) {
	var c models.EscalationCase
	var lastEscalatedAt, acknowledgedAt sql.NullInt64

	err := s.Scan(&c.ID, &c.TriggerSource, &c.Keyword, &c.PriorityLevel, &c.Recipient,
		&c.Message, &c.CurrentStep, &c.Status, &c.NextDueAt, &lastEscalatedAt, &acknowledgedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastEscalatedAt.Valid {
		val := lastEscalatedAt.Int64
		c.LastEscalatedAt = &val
	}
	if acknowledgedAt.Valid {
		val := acknowledgedAt.Int64
		c.AcknowledgedAt = &val
	}
	return &c, nil
}
