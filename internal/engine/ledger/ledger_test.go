package ledger

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"sentinel/internal/platform/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	query := `
	CREATE TABLE delivery_attempts (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		channel TEXT NOT NULL,
		recipient TEXT NOT NULL,
		status TEXT NOT NULL,
		provider_ref TEXT,
		error_message TEXT,
		sent_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestLedger_RecordAndHistory(t *testing.T) {
	ldg := New(setupTestDB(t))

	attempts := []*models.DeliveryAttempt{
		{CaseID: "case_1", Step: 0, Channel: models.ChannelWhatsApp, Recipient: "+15550001", Status: models.AttemptStatusSent, ProviderRef: "wamid.1", SentAt: 100},
		{CaseID: "case_1", Step: 1, Channel: models.ChannelSMS, Recipient: "+15550001", Status: models.AttemptStatusFailed, ErrorMessage: "HTTP 502", SentAt: 700},
		{CaseID: "case_2", Step: 0, Channel: models.ChannelVoiceCall, Recipient: "+15550002", Status: models.AttemptStatusSent, SentAt: 200},
	}
	for _, a := range attempts {
		if err := ldg.Record(a); err != nil {
			t.Fatalf("Failed to record attempt: %v", err)
		}
	}

	history, err := ldg.History("case_1")
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 attempts for case_1, got %d", len(history))
	}
	if history[0].Channel != models.ChannelWhatsApp || history[1].Channel != models.ChannelSMS {
		t.Errorf("History out of order: %+v", history)
	}
	if history[1].ErrorMessage != "HTTP 502" {
		t.Errorf("Expected error message preserved, got %q", history[1].ErrorMessage)
	}
}

func TestLedger_HistoryEmpty(t *testing.T) {
	ldg := New(setupTestDB(t))

	history, err := ldg.History("case_missing")
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history, got %d rows", len(history))
	}
}
