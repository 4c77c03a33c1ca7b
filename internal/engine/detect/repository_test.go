package detect

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
	CREATE TABLE urgent_keywords (
		id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		priority_level INTEGER NOT NULL,
		auto_escalate INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	kw := &models.UrgentKeyword{
		Keyword:       "outage",
		PriorityLevel: 5,
		AutoEscalate:  true,
		IsActive:      true,
	}
	if err := repo.Create(kw); err != nil {
		t.Fatalf("Failed to create keyword: %v", err)
	}
	if kw.ID == "" {
		t.Fatal("Expected generated ID")
	}

	fetched, err := repo.GetByID(kw.ID)
	if err != nil {
		t.Fatalf("Failed to get keyword: %v", err)
	}
	if fetched.Keyword != "outage" || fetched.PriorityLevel != 5 || !fetched.AutoEscalate {
		t.Errorf("Fetched keyword mismatch: %+v", fetched)
	}
}

func TestRepository_ListActiveExcludesDisabled(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	active := &models.UrgentKeyword{Keyword: "urgent", PriorityLevel: 4, IsActive: true}
	disabled := &models.UrgentKeyword{Keyword: "legacy", PriorityLevel: 2, IsActive: false}
	for _, kw := range []*models.UrgentKeyword{active, disabled} {
		if err := repo.Create(kw); err != nil {
			t.Fatalf("Failed to create keyword: %v", err)
		}
	}

	keywords, err := repo.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active keywords: %v", err)
	}
	if len(keywords) != 1 {
		t.Fatalf("Expected 1 active keyword, got %d", len(keywords))
	}
	if keywords[0].Keyword != "urgent" {
		t.Errorf("Expected urgent, got %s", keywords[0].Keyword)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	kw := &models.UrgentKeyword{Keyword: "gone", PriorityLevel: 1, IsActive: true}
	if err := repo.Create(kw); err != nil {
		t.Fatalf("Failed to create keyword: %v", err)
	}
	if err := repo.Delete(kw.ID); err != nil {
		t.Fatalf("Failed to delete keyword: %v", err)
	}

	if _, err := repo.GetByID(kw.ID); err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestDetector_DetectAgainstRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	detector := NewDetector(repo)

	kw := &models.UrgentKeyword{Keyword: "escalate now", PriorityLevel: 5, AutoEscalate: true, IsActive: true}
	if err := repo.Create(kw); err != nil {
		t.Fatalf("Failed to create keyword: %v", err)
	}

	matches, err := detector.Detect("please ESCALATE NOW, the call dropped")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(matches) != 1 || matches[0].KeywordID != kw.ID {
		t.Errorf("Expected one match for %s, got %+v", kw.ID, matches)
	}

	matches, err = detector.Detect("routine status update")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches, got %+v", matches)
	}
}
