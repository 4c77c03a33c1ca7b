package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/platform/models"
)

func TestRepository_ListDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := int64(1700000000)
	mk := func(source string, dueAt int64) *models.EscalationCase {
		c := &models.EscalationCase{
			TriggerSource: source,
			Keyword:       "outage",
			PriorityLevel: 5,
			Recipient:     "+15550001",
			Message:       "msg",
			NextDueAt:     dueAt,
		}
		require.NoError(t, repo.Create(c))
		return c
	}

	overdue := mk("a", now-60)
	dueNow := mk("b", now)
	mk("c", now+60)

	terminal := mk("d", now-60)
	acked, err := repo.Acknowledge(terminal.ID, now)
	require.NoError(t, err)
	require.True(t, acked)

	due, err := repo.ListDue(now, 100)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, overdue.ID, due[0].ID)
	assert.Equal(t, dueNow.ID, due[1].ID)
}

func TestRepository_AcknowledgeIsIdempotentLoser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	c := &models.EscalationCase{
		TriggerSource: "meeting_1",
		Keyword:       "critical",
		PriorityLevel: 4,
		Recipient:     "+15550002",
		Message:       "msg",
		NextDueAt:     1700000000,
	}
	require.NoError(t, repo.Create(c))

	acked, err := repo.Acknowledge(c.ID, 1700000100)
	require.NoError(t, err)
	assert.True(t, acked)

	// The second acknowledger finds no pending row and loses cleanly.
	acked, err = repo.Acknowledge(c.ID, 1700000200)
	require.NoError(t, err)
	assert.False(t, acked)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusAcknowledged, got.Status)
	require.NotNil(t, got.AcknowledgedAt)
	assert.Equal(t, int64(1700000100), *got.AcknowledgedAt)
}

func TestRepository_AdvanceStepLosesToAcknowledgment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	c := &models.EscalationCase{
		TriggerSource: "meeting_2",
		Keyword:       "emergency",
		PriorityLevel: 5,
		Recipient:     "+15550003",
		Message:       "msg",
		NextDueAt:     1700000000,
	}
	require.NoError(t, repo.Create(c))

	// Ack lands between the scheduler's due query and its advance.
	acked, err := repo.Acknowledge(c.ID, 1700000050)
	require.NoError(t, err)
	require.True(t, acked)

	advanced, err := repo.AdvanceStep(c.ID, 0, 1700000600, 1700000060)
	require.NoError(t, err)
	assert.False(t, advanced)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusAcknowledged, got.Status)
	assert.Equal(t, 0, got.CurrentStep)
	assert.Nil(t, got.LastEscalatedAt)
}

func TestRepository_AdvanceStepGuardsOnStep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	c := &models.EscalationCase{
		TriggerSource: "meeting_3",
		Keyword:       "urgent",
		PriorityLevel: 3,
		Recipient:     "+15550004",
		Message:       "msg",
		NextDueAt:     1700000000,
	}
	require.NoError(t, repo.Create(c))

	advanced, err := repo.AdvanceStep(c.ID, 0, 1700000600, 1700000000)
	require.NoError(t, err)
	require.True(t, advanced)

	// A stale tick replaying step 0 matches nothing.
	advanced, err = repo.AdvanceStep(c.ID, 0, 1700000900, 1700000010)
	require.NoError(t, err)
	assert.False(t, advanced)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)
	assert.Equal(t, int64(1700000600), got.NextDueAt)
}

func TestRepository_MarkExhausted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	c := &models.EscalationCase{
		TriggerSource: "meeting_4",
		Keyword:       "down",
		PriorityLevel: 2,
		Recipient:     "+15550005",
		Message:       "msg",
		CurrentStep:   0,
		NextDueAt:     1700000000,
	}
	require.NoError(t, repo.Create(c))

	done, err := repo.MarkExhausted(c.ID, 0, 1700000300)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = repo.MarkExhausted(c.ID, 0, 1700000400)
	require.NoError(t, err)
	assert.False(t, done)

	got, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusExhausted, got.Status)
}

func TestRepository_ListFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	a := &models.EscalationCase{TriggerSource: "s1", Keyword: "k", PriorityLevel: 1, Recipient: "r", Message: "m", NextDueAt: 1}
	b := &models.EscalationCase{TriggerSource: "s2", Keyword: "k", PriorityLevel: 1, Recipient: "r", Message: "m", NextDueAt: 1}
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))

	acked, err := repo.Acknowledge(b.ID, 100)
	require.NoError(t, err)
	require.True(t, acked)

	pending, err := repo.List(models.CaseStatusPending, 50, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	all, err := repo.List("", 50, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
