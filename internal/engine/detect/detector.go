package detect

import (
	"strings"

	"sentinel/internal/platform/models"
)

// Match is one keyword found in a piece of inbound text.
type Match struct {
	KeywordID     string `json:"keyword_id"`
	Keyword       string `json:"keyword"`
	PriorityLevel int    `json:"priority_level"`
	AutoEscalate  bool   `json:"auto_escalate"`
}

type Detector struct {
	repo *Repository
}

func NewDetector(repo *Repository) *Detector {
	return &Detector{repo: repo}
}

// Detect scans text against all active keywords. Matching is
// case-insensitive substring matching; no stemming or fuzzy matching.
func (d *Detector) Detect(text string) ([]Match, error) {
	keywords, err := d.repo.ListActive()
	if err != nil {
		return nil, err
	}
	return matchKeywords(text, keywords), nil
}

func matchKeywords(text string, keywords []*models.UrgentKeyword) []Match {
	lowered := strings.ToLower(text)

	var matches []Match
	for _, kw := range keywords {
		if kw.Keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(kw.Keyword)) {
			matches = append(matches, Match{
				KeywordID:     kw.ID,
				Keyword:       kw.Keyword,
				PriorityLevel: kw.PriorityLevel,
				AutoEscalate:  kw.AutoEscalate,
			})
		}
	}
	return matches
}

// Top returns the match with the highest priority level, or nil if there are
// none. When several keywords match, the highest priority wins for
// escalation; all matches are still reported to the caller for logging.
func Top(matches []Match) *Match {
	var top *Match
	for i := range matches {
		if top == nil || matches[i].PriorityLevel > top.PriorityLevel {
			top = &matches[i]
		}
	}
	return top
}
