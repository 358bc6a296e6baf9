package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *memory.Persistence {
	t.Helper()

	store := memory.NewPersistence(memory.WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	require.NoError(t, store.CandidateRepository().Save(ctx, &models.Candidate{
		ID:         "cand-1",
		FullName:   "Avery Chen",
		Status:     "screening",
		Attributes: map[string]any{"score": 91},
		UpdatedAt:  fixedNow.Add(-30 * time.Hour),
	}))
	require.NoError(t, store.CandidateRepository().Save(ctx, &models.Candidate{
		ID:     "cand-2",
		Status: "pending",
	}))
	require.NoError(t, store.RuleRepository().Save(ctx, &models.TransitionRule{
		ID:         "rule-1",
		Name:       "Strong screening score",
		FromStage:  "screening",
		ToStage:    "interview_scheduled",
		Enabled:    true,
		Conditions: models.Condition{"kind": "field", "field": "score", "op": "gte", "value": 90},
	}))
	require.NoError(t, store.RuleRepository().Save(ctx, &models.TransitionRule{
		ID:        "rule-2",
		Name:      "Disabled",
		FromStage: "screening",
		ToStage:   "rejected",
		Enabled:   false,
	}))
	require.NoError(t, store.RuleRepository().Save(ctx, &models.TransitionRule{
		ID:         "rule-3",
		Name:       "Broken",
		FromStage:  "pending",
		ToStage:    "screening",
		Enabled:    true,
		Conditions: models.Condition{"kind": "unknown"},
	}))

	return store
}

func TestCandidateRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	repo := store.CandidateRepository()

	candidate, err := repo.GetByID(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "screening", candidate.Status)
	assert.Equal(t, fixedNow, candidate.CreatedAt)

	candidate.Attributes["score"] = 1

	again, err := repo.GetByID(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, 91, again.Attributes["score"], "returned candidates must not alias stored state")

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsCandidateNotFound(err))

	list, err := repo.ListByStage(ctx, "screening")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cand-1", list[0].ID)

	at := fixedNow.Add(time.Minute)
	require.NoError(t, repo.UpdateStage(ctx, "cand-1", "interview_scheduled", at))

	updated, err := repo.GetByID(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "interview_scheduled", updated.Status)
	assert.Equal(t, at, updated.UpdatedAt)

	entry, err := store.ActivityLogRepository().LatestTransition(ctx, "cand-1", "screening", "interview_scheduled")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, at, entry.CreatedAt)

	none, err := store.ActivityLogRepository().LatestTransition(ctx, "cand-1", "screening", "rejected")
	require.NoError(t, err)
	assert.Nil(t, none)

	err = repo.UpdateStage(ctx, "missing", "screening", at)
	assert.True(t, persistence.IsCandidateNotFound(err))
}

func TestRuleRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	repo := store.RuleRepository()

	rule, err := repo.GetByID(ctx, "rule-2")
	require.NoError(t, err)
	assert.False(t, rule.Enabled)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	byStage, err := repo.ListEnabledByStage(ctx, "screening")
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, "rule-1", byStage[0].ID)

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
}

func TestExecutionRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	repo := store.ExecutionRepository()

	older := &models.TransitionExecution{
		CandidateID: "cand-1",
		RuleID:      "rule-1",
		FromStage:   "screening",
		ToStage:     "interview_scheduled",
		Result:      models.ExecutionResultSuccess,
		ExecutedAt:  fixedNow.Add(-2 * time.Minute),
	}
	newer := &models.TransitionExecution{
		CandidateID: "cand-1",
		RuleID:      "rule-1",
		FromStage:   "screening",
		ToStage:     "interview_scheduled",
		Result:      models.ExecutionResultSuccess,
		ExecutedAt:  fixedNow.Add(-30 * time.Second),
	}
	failed := &models.TransitionExecution{
		CandidateID: "cand-1",
		RuleID:      "rule-1",
		FromStage:   "screening",
		ToStage:     "interview_scheduled",
		Result:      models.ExecutionResultError,
		ExecutedAt:  fixedNow,
	}

	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, failed))
	assert.NotEmpty(t, older.ID)

	recent, err := repo.RecentSuccess(ctx, "cand-1", "screening", "interview_scheduled", fixedNow.Add(-time.Minute))
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, newer.ID, recent.ID)

	none, err := repo.RecentSuccess(ctx, "cand-1", "screening", "interview_scheduled", fixedNow.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, none)

	emailID := "email-1"
	require.NoError(t, repo.UpdateNotification(ctx, newer.ID, true, &emailID))
	assert.ErrorIs(t, repo.UpdateNotification(ctx, "missing", true, nil), persistence.ErrExecutionNotFound)

	list, err := repo.ListByCandidate(ctx, "cand-1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, failed.ID, list[0].ID)
	assert.Equal(t, newer.ID, list[1].ID)
	assert.True(t, list[1].NotificationSent)
	require.NotNil(t, list[1].NotificationID)
	assert.Equal(t, "email-1", *list[1].NotificationID)
}

func TestConditionChecker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	checker := store.ConditionChecker()

	result, err := checker.CheckConditions(ctx, "cand-1", "rule-1")
	require.NoError(t, err)
	assert.True(t, result.Met)

	result, err = checker.CheckConditions(ctx, "cand-2", "rule-3")
	require.NoError(t, err)
	assert.False(t, result.Met)
	assert.Contains(t, result.Error, "unknown kind")

	_, err = checker.CheckConditions(ctx, "missing", "rule-1")
	assert.True(t, persistence.IsCandidateNotFound(err))

	_, err = checker.CheckConditions(ctx, "cand-1", "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.Close(ctx))
}
