package escalation

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"sentinel/internal/engine/detect"
	"sentinel/internal/engine/policy"
	"sentinel/internal/engine/webhooks"
	"sentinel/internal/pkg/metrics"
	"sentinel/internal/platform/models"
)

// ErrNoRecipient means neither the trigger nor configuration named anyone to
// notify, so no case can be opened.
var ErrNoRecipient = errors.New("no recipient for escalation")

// Service opens and acknowledges cases. It is the API server's view of the
// engine; the timer side lives in Scheduler.
type Service struct {
	cases            *Repository
	policy           *policy.Store
	notifier         *webhooks.Notifier
	metrics          *metrics.Metrics
	defaultRecipient string
}

func NewService(cases *Repository, policyStore *policy.Store, notifier *webhooks.Notifier, m *metrics.Metrics, defaultRecipient string) *Service {
	return &Service{
		cases:            cases,
		policy:           policyStore,
		notifier:         notifier,
		metrics:          m,
		defaultRecipient: defaultRecipient,
	}
}

// Open creates a pending case for a keyword match, due immediately so the
// scheduler dispatches step 0 on its next tick. Returns
// policy.ErrPolicyNotFound when the priority level has no active rules;
// callers log that and skip escalation.
func (s *Service) Open(source, text string, match detect.Match, recipient string) (*models.EscalationCase, error) {
	if _, err := s.policy.RulesFor(match.PriorityLevel); err != nil {
		return nil, err
	}

	if recipient == "" {
		recipient = s.defaultRecipient
	}
	if recipient == "" {
		return nil, ErrNoRecipient
	}

	now := time.Now().Unix()
	c := &models.EscalationCase{
		TriggerSource: source,
		Keyword:       match.Keyword,
		PriorityLevel: match.PriorityLevel,
		Recipient:     recipient,
		Message:       buildMessage(source, match, text),
		CurrentStep:   0,
		NextDueAt:     now,
	}

	if err := s.cases.Create(c); err != nil {
		return nil, err
	}

	s.metrics.CasesTriggered.Inc()
	s.notifier.Notify(models.EventEscalationTriggered, c)

	log.Info().
		Str("case_id", c.ID).
		Str("keyword", match.Keyword).
		Int("priority", match.PriorityLevel).
		Msg("escalation case opened")

	return c, nil
}

// Acknowledge handles the external acknowledgment signal. The second return
// is false when the case was already terminal; per the race contract the
// late signal is discarded without error.
func (s *Service) Acknowledge(id string) (*models.EscalationCase, bool, error) {
	acked, err := s.cases.Acknowledge(id, time.Now().Unix())
	if err != nil {
		return nil, false, err
	}

	c, getErr := s.cases.GetByID(id)
	if getErr != nil {
		return nil, acked, getErr
	}

	if acked {
		s.metrics.CasesAcknowledged.Inc()
		s.notifier.Notify(models.EventEscalationAcknowledged, c)
		log.Info().Str("case_id", id).Msg("escalation case acknowledged")
	} else {
		log.Debug().Str("case_id", id).Str("status", c.Status).Msg("acknowledgment for terminal case discarded")
	}
	return c, acked, nil
}

func (s *Service) Get(id string) (*models.EscalationCase, error) {
	return s.cases.GetByID(id)
}

func (s *Service) List(status string, limit, offset int) ([]*models.EscalationCase, error) {
	return s.cases.List(status, limit, offset)
}

func buildMessage(source string, match detect.Match, text string) string {
	excerpt := text
	if len(excerpt) > 200 {
		// Back off to a rune boundary so the excerpt stays valid UTF-8.
		cut := 200
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut] + "..."
	}
	return fmt.Sprintf("URGENT (P%d) %q detected in %s: %s", match.PriorityLevel, match.Keyword, source, excerpt)
}
