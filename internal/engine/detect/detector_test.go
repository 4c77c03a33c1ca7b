package detect

import (
	"testing"

	"sentinel/internal/platform/models"
)

func TestMatchKeywords(t *testing.T) {
	keywords := []*models.UrgentKeyword{
		{ID: "kw_1", Keyword: "outage", PriorityLevel: 5, AutoEscalate: true},
		{ID: "kw_2", Keyword: "Deadline", PriorityLevel: 3, AutoEscalate: true},
		{ID: "kw_3", Keyword: "budget", PriorityLevel: 2, AutoEscalate: false},
	}

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Exact Match",
			text:     "we have an outage in production",
			expected: []string{"outage"},
		},
		{
			name:     "Case Insensitive",
			text:     "TOTAL OUTAGE and the DEADLINE slipped",
			expected: []string{"outage", "Deadline"},
		},
		{
			name:     "Substring Match",
			text:     "pre-deadline review moved",
			expected: []string{"Deadline"},
		},
		{
			name:     "No Match",
			text:     "everything is fine",
			expected: nil,
		},
		{
			name:     "Empty Text",
			text:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := matchKeywords(tt.text, keywords)
			if len(matches) != len(tt.expected) {
				t.Fatalf("Expected %d matches, got %d", len(tt.expected), len(matches))
			}
			for i, m := range matches {
				if m.Keyword != tt.expected[i] {
					t.Errorf("Expected match %q, got %q", tt.expected[i], m.Keyword)
				}
			}
		})
	}
}

func TestMatchKeywords_PriorityCarried(t *testing.T) {
	keywords := []*models.UrgentKeyword{
		{ID: "kw_1", Keyword: "emergency", PriorityLevel: 5, AutoEscalate: true},
	}

	matches := matchKeywords("this is an EMERGENCY", keywords)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].PriorityLevel != 5 {
		t.Errorf("Expected priority 5, got %d", matches[0].PriorityLevel)
	}
	if !matches[0].AutoEscalate {
		t.Error("Expected auto_escalate to carry over")
	}
}

func TestTop(t *testing.T) {
	if Top(nil) != nil {
		t.Error("Expected nil for no matches")
	}

	matches := []Match{
		{Keyword: "budget", PriorityLevel: 2},
		{Keyword: "outage", PriorityLevel: 5},
		{Keyword: "deadline", PriorityLevel: 3},
	}

	top := Top(matches)
	if top == nil {
		t.Fatal("Expected a top match")
	}
	if top.Keyword != "outage" {
		t.Errorf("Expected highest priority keyword outage, got %s", top.Keyword)
	}
}
