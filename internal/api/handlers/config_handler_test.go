package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"sentinel/internal/engine/detect"
	"sentinel/internal/engine/policy"
	"sentinel/internal/platform/audit"
)

func setupConfigHandlers(t *testing.T) (*KeywordHandler, *RuleHandler, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE urgent_keywords (
		id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		priority_level INTEGER NOT NULL,
		auto_escalate INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE escalation_rules (
		id TEXT PRIMARY KEY,
		rule_name TEXT NOT NULL,
		priority_level INTEGER NOT NULL,
		step_order INTEGER NOT NULL,
		wait_time_minutes INTEGER NOT NULL,
		escalate_to TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	auditLog := audit.NewLogger(db)
	return NewKeywordHandler(detect.NewRepository(db), auditLog),
		NewRuleHandler(policy.NewStore(db), auditLog),
		db
}

func TestKeywordCreate_ActiveByDefault(t *testing.T) {
	kh, _, db := setupConfigHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/keywords",
		strings.NewReader(`{"keyword":"outage","priority_level":5,"auto_escalate":true}`))
	rr := httptest.NewRecorder()
	kh.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["is_active"] != true {
		t.Errorf("keyword created without is_active should be active, got %v", resp["is_active"])
	}

	// The fresh keyword must actually match inbound text.
	detector := detect.NewDetector(detect.NewRepository(db))
	matches, err := detector.Detect("we have an OUTAGE")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected fresh keyword to match, got %d matches", len(matches))
	}
	if !matches[0].AutoEscalate {
		t.Error("expected auto_escalate to carry through")
	}
}

func TestKeywordCreate_ExplicitInactiveRespected(t *testing.T) {
	kh, _, db := setupConfigHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/keywords",
		strings.NewReader(`{"keyword":"outage","priority_level":5,"is_active":false}`))
	rr := httptest.NewRecorder()
	kh.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	detector := detect.NewDetector(detect.NewRepository(db))
	matches, err := detector.Detect("outage in progress")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("explicitly inactive keyword must not match, got %d matches", len(matches))
	}
}

func TestRuleCreate_ActiveByDefault(t *testing.T) {
	_, rh, db := setupConfigHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/rules",
		strings.NewReader(`{"rule_name":"first contact","priority_level":5,"step_order":0,"wait_time_minutes":10,"escalate_to":"whatsapp"}`))
	rr := httptest.NewRecorder()
	rh.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["is_active"] != true {
		t.Errorf("rule created without is_active should be active, got %v", resp["is_active"])
	}

	// The fresh rule must be part of the escalation chain.
	rules, err := policy.NewStore(db).RulesFor(5)
	if err != nil {
		t.Fatalf("expected active policy for priority 5, got %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
}
