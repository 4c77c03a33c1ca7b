package detect

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

const keywordColumns = `id, keyword, priority_level, auto_escalate, is_active, created_at, updated_at`

func (r *Repository) Create(kw *models.UrgentKeyword) error {
	kw.ID = "kw_" + uuid.New().String()
	now := time.Now().Unix()
	kw.CreatedAt = now
	kw.UpdatedAt = now

	query := `
		INSERT INTO urgent_keywords (id, keyword, priority_level, auto_escalate, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, kw.ID, kw.Keyword, kw.PriorityLevel, kw.AutoEscalate, kw.IsActive, kw.CreatedAt, kw.UpdatedAt)
	return err
}

func (r *Repository) GetByID(id string) (*models.UrgentKeyword, error) {
	row := r.db.QueryRow(`SELECT `+keywordColumns+` FROM urgent_keywords WHERE id = ?`, id)
	return scanKeyword(row)
}

func (r *Repository) List() ([]*models.UrgentKeyword, error) {
	return r.query(`SELECT ` + keywordColumns + ` FROM urgent_keywords ORDER BY priority_level DESC, keyword`)
}

func (r *Repository) ListActive() ([]*models.UrgentKeyword, error) {
	return r.query(`SELECT ` + keywordColumns + ` FROM urgent_keywords WHERE is_active = 1 ORDER BY priority_level DESC, keyword`)
}

func (r *Repository) Update(kw *models.UrgentKeyword) error {
	kw.UpdatedAt = time.Now().Unix()
	query := `
		UPDATE urgent_keywords
		SET keyword = ?, priority_level = ?, auto_escalate = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, kw.Keyword, kw.PriorityLevel, kw.AutoEscalate, kw.IsActive, kw.UpdatedAt, kw.ID)
	return err
}

// Delete removes the keyword outright. Soft-disable goes through is_active.
func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM urgent_keywords WHERE id = ?`, id)
	return err
}

func (r *Repository) query(q string, args ...interface{}) ([]*models.UrgentKeyword, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []*models.UrgentKeyword
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}

func scanKeyword(s interface {
	Scan(dest ...interface{}) error
}) (*models.UrgentKeyword, error) {
	var kw models.UrgentKeyword
	err := s.Scan(&kw.ID, &kw.Keyword, &kw.PriorityLevel, &kw.AutoEscalate, &kw.IsActive, &kw.CreatedAt, &kw.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &kw, nil
}
