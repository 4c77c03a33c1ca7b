package repositories

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func webhookRow(events, headers string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "url", "secret", "events", "headers",
		"retry_count", "timeout_seconds", "is_active", "created_at", "updated_at"}).
		AddRow("wh_1", "ops", "http://example.invalid/hook", "s3cret", events, headers,
			3, 10, true, 1700000000, 1700000000)
}

func TestWebhookRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewWebhookRepository(db)

	t.Run("Decodes JSON Columns", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE id = ?").
			WithArgs("wh_1").
			WillReturnRows(webhookRow(`["distribution.sent"]`, `{"X-Team":"oncall"}`))

		webhook, err := repo.GetByID("wh_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(webhook.Events) != 1 || webhook.Events[0] != "distribution.sent" {
			t.Errorf("expected events decoded, got %v", webhook.Events)
		}
		if webhook.Headers["X-Team"] != "oncall" {
			t.Errorf("expected headers decoded, got %v", webhook.Headers)
		}
	})

	t.Run("Corrupted Events Column", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE id = ?").
			WithArgs("wh_1").
			WillReturnRows(webhookRow(`not json`, `{}`))

		_, err := repo.GetByID("wh_1")
		if err == nil {
			t.Fatal("expected decode error for corrupted events column, got nil")
		}
		if !strings.Contains(err.Error(), "events") {
			t.Errorf("error should name the events column, got: %v", err)
		}
	})

	t.Run("Corrupted Headers Column", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE id = ?").
			WithArgs("wh_1").
			WillReturnRows(webhookRow(`[]`, `not json`))

		_, err := repo.GetByID("wh_1")
		if err == nil {
			t.Fatal("expected decode error for corrupted headers column, got nil")
		}
		if !strings.Contains(err.Error(), "headers") {
			t.Errorf("error should name the headers column, got: %v", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
