package policy

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/platform/models"
)

// ErrPolicyNotFound means no active rules exist for a priority level. Callers
// treat this as "no escalation configured", not a fatal error.
var ErrPolicyNotFound = errors.New("no escalation policy for priority level")

// ErrDuplicateStep means an active rule already claims the same
// (priority_level, step_order) slot.
var ErrDuplicateStep = errors.New("duplicate step order for priority level")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const ruleColumns = `id, rule_name, priority_level, step_order, wait_time_minutes, escalate_to, is_active, created_at, updated_at`

// RulesFor returns the active escalation chain for a priority level, ordered
// by step_order.
func (s *Store) RulesFor(priorityLevel int) ([]*models.EscalationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM escalation_rules
		WHERE priority_level = ? AND is_active = 1
		ORDER BY step_order
	`
	rules, err := s.query(query, priorityLevel)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrPolicyNotFound
	}
	return rules, nil
}

func (s *Store) Create(rule *models.EscalationRule) error {
	if err := s.validate(rule, ""); err != nil {
		return err
	}

	rule.ID = "rule_" + uuid.New().String()
	now := time.Now().Unix()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO escalation_rules (id, rule_name, priority_level, step_order, wait_time_minutes, escalate_to, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, rule.ID, rule.RuleName, rule.PriorityLevel, rule.StepOrder,
		rule.WaitTimeMinutes, string(rule.EscalateTo), rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	return err
}

func (s *Store) GetByID(id string) (*models.EscalationRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM escalation_rules WHERE id = ?`, id)
	return scanRule(row)
}

func (s *Store) List() ([]*models.EscalationRule, error) {
	return s.query(`SELECT ` + ruleColumns + ` FROM escalation_rules ORDER BY priority_level DESC, step_order`)
}

func (s *Store) Update(rule *models.EscalationRule) error {
	if err := s.validate(rule, rule.ID); err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().Unix()
	query := `
		UPDATE escalation_rules
		SET rule_name = ?, priority_level = ?, step_order = ?, wait_time_minutes = ?, escalate_to = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := s.db.Exec(query, rule.RuleName, rule.PriorityLevel, rule.StepOrder,
		rule.WaitTimeMinutes, string(rule.EscalateTo), rule.IsActive, rule.UpdatedAt, rule.ID)
	return err
}

func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM escalation_rules WHERE id = ?`, id)
	return err
}

// validate fails fast at configuration-write time: channel typos and
// ambiguous step slots never reach the dispatcher.
func (s *Store) validate(rule *models.EscalationRule, excludeID string) error {
	if _, err := models.ParseChannel(string(rule.EscalateTo)); err != nil {
		return err
	}
	if rule.PriorityLevel < 1 || rule.PriorityLevel > 5 {
		return fmt.Errorf("priority_level must be 1..5, got %d", rule.PriorityLevel)
	}
	if rule.StepOrder < 0 {
		return fmt.Errorf("step_order must be >= 0, got %d", rule.StepOrder)
	}
	if rule.WaitTimeMinutes < 0 {
		return fmt.Errorf("wait_time_minutes must be >= 0, got %d", rule.WaitTimeMinutes)
	}

	if !rule.IsActive {
		return nil
	}

	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM escalation_rules
			WHERE priority_level = ? AND step_order = ? AND is_active = 1 AND id != ?
		)
	`
	if err := s.db.QueryRow(query, rule.PriorityLevel, rule.StepOrder, excludeID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrDuplicateStep
	}
	return nil
}

func (s *Store) query(q string, args ...interface{}) ([]*models.EscalationRule, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.EscalationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(s interface {
	Scan(dest ...interface{}) error
}) (*models.EscalationRule, error) {
	var rule models.EscalationRule
	var channel string
	err := s.Scan(&rule.ID, &rule.RuleName, &rule.PriorityLevel, &rule.StepOrder,
		&rule.WaitTimeMinutes, &channel, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.EscalateTo = models.Channel(channel)
	return &rule, nil
}
