package escalation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"sentinel/internal/engine/dispatch"
	"sentinel/internal/engine/ledger"
	"sentinel/internal/engine/policy"
	"sentinel/internal/engine/webhooks"
	pkgerrors "sentinel/internal/pkg/errors"
	"sentinel/internal/pkg/metrics"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/models"
)

// Scheduler drives pending cases through their policy steps. Timers are not
// held in memory: every tick re-reads due cases from the database, so a
// restart picks up exactly where the previous process stopped.
type Scheduler struct {
	cases      *Repository
	policy     *policy.Store
	dispatcher *dispatch.Dispatcher
	ledger     *ledger.Ledger
	notifier   *webhooks.Notifier
	metrics    *metrics.Metrics
	cfg        config.SchedulerConfig

	// now is swapped out in tests to walk the clock.
	now func() time.Time
}

func NewScheduler(cases *Repository, policyStore *policy.Store, dispatcher *dispatch.Dispatcher,
	ldg *ledger.Ledger, notifier *webhooks.Notifier, m *metrics.Metrics, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cases:      cases,
		policy:     policyStore,
		dispatcher: dispatcher,
		ledger:     ldg,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.cfg.TickInterval).Msg("escalation scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("escalation scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// Tick processes every due case once. A single case's failure is logged and
// isolated; it never stalls the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context) error {
	start := s.now()
	defer func() {
		s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := s.cases.ListDue(start.Unix(), s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, c := range due {
		if err := s.process(ctx, c); err != nil {
			log.Error().Err(err).Str("case_id", c.ID).Msg("failed to process due case")
		}
	}
	return nil
}

// process handles one due case: dispatch the current step and arm the next
// timer, or exhaust the case if no steps remain.
func (s *Scheduler) process(ctx context.Context, c *models.EscalationCase) error {
	now := s.now()

	rules, err := s.policy.RulesFor(c.PriorityLevel)
	if errors.Is(err, policy.ErrPolicyNotFound) {
		// Policy was deleted mid-flight; nothing left to dispatch.
		return s.exhaust(c, now)
	}
	if err != nil {
		return err
	}

	if c.CurrentStep >= len(rules) {
		return s.exhaust(c, now)
	}

	step := rules[c.CurrentStep]
	attempt := s.dispatchStep(ctx, c, step, now)

	if err := s.ledger.Record(attempt); err != nil {
		log.Error().Err(err).Str("case_id", c.ID).Msg("failed to record delivery attempt")
	}

	if attempt.Status == models.AttemptStatusSent {
		s.notifier.Notify(models.EventDistributionSent, attempt)
	} else {
		s.notifier.Notify(models.EventDistributionFailed, attempt)
	}

	nextDue := now.Unix() + int64(step.WaitTimeMinutes)*60
	advanced, err := s.cases.AdvanceStep(c.ID, c.CurrentStep, nextDue, now.Unix())
	if err != nil {
		return err
	}
	if !advanced {
		// Acknowledged (or handled by a concurrent tick) between the due
		// query and here; the loser drops its transition.
		log.Debug().Str("case_id", c.ID).Int("step", c.CurrentStep).Msg("step advance lost race, dropped")
	}
	return nil
}

func (s *Scheduler) dispatchStep(ctx context.Context, c *models.EscalationCase, step *models.EscalationRule, now time.Time) *models.DeliveryAttempt {
	attempt := &models.DeliveryAttempt{
		CaseID:    c.ID,
		Step:      c.CurrentStep,
		Channel:   step.EscalateTo,
		Recipient: c.Recipient,
		SentAt:    now.Unix(),
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	start := s.now()
	result, err := s.dispatcher.Deliver(dctx, step.EscalateTo, dispatch.Message{
		CaseID:    c.ID,
		Recipient: c.Recipient,
		Body:      c.Message,
	})
	s.metrics.DispatchDuration.WithLabelValues(string(step.EscalateTo)).Observe(time.Since(start).Seconds())

	if err != nil {
		attempt.Status = models.AttemptStatusFailed
		attempt.ErrorMessage = err.Error()
		s.metrics.Deliveries.WithLabelValues(string(step.EscalateTo), models.AttemptStatusFailed).Inc()

		evt := log.Warn().Err(err).
			Str("case_id", c.ID).
			Str("channel", string(step.EscalateTo)).
			Int("step", c.CurrentStep)
		var statusErr *dispatch.StatusError
		if errors.As(err, &statusErr) {
			evt = evt.Str("error_code", pkgerrors.UpstreamCode(statusErr.Status))
		}
		evt.Msg("channel delivery failed")
		return attempt
	}

	attempt.Status = models.AttemptStatusSent
	attempt.ProviderRef = result.ProviderRef
	s.metrics.Deliveries.WithLabelValues(string(step.EscalateTo), models.AttemptStatusSent).Inc()

	log.Info().
		Str("case_id", c.ID).
		Str("channel", string(step.EscalateTo)).
		Int("step", c.CurrentStep).
		Str("provider_ref", result.ProviderRef).
		Msg("escalation step dispatched")
	return attempt
}

func (s *Scheduler) exhaust(c *models.EscalationCase, now time.Time) error {
	exhausted, err := s.cases.MarkExhausted(c.ID, c.CurrentStep, now.Unix())
	if err != nil {
		return err
	}
	if exhausted {
		s.metrics.CasesExhausted.Inc()
		s.notifier.Notify(models.EventEscalationExhausted, c)
		log.Info().Str("case_id", c.ID).Msg("escalation case exhausted")
	}
	return nil
}
