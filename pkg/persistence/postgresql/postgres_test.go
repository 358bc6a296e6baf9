package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"transition_executions", "pipeline_activity_logs", "transition_rules", "candidates", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	_, err = db.ExecContext(ctx, "DROP FUNCTION IF EXISTS log_candidate_stage_change() CASCADE")
	require.NoError(t, err)

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("stageflow_test"),
			postgres.WithUsername("stageflow"),
			postgres.WithPassword("stageflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func seed(ctx context.Context, t *testing.T, p *postgresql.Persistence) {
	t.Helper()

	require.NoError(t, p.CandidateRepository().Save(ctx, &models.Candidate{
		ID:         "cand-1",
		FullName:   "Sam Okafor",
		Email:      "sam@example.com",
		Status:     "screening",
		Attributes: map[string]any{"score": 88},
	}))
	require.NoError(t, p.RuleRepository().Save(ctx, &models.TransitionRule{
		ID:                   "rule-1",
		Name:                 "Score gate",
		FromStage:            "screening",
		ToStage:              "interview_scheduled",
		Enabled:              true,
		Conditions:           models.Condition{"kind": "field", "field": "score", "op": "gte", "value": 80},
		AutoSendNotification: true,
	}))
	require.NoError(t, p.RuleRepository().Save(ctx, &models.TransitionRule{
		ID:        "rule-2",
		Name:      "Disabled rule",
		FromStage: "screening",
		ToStage:   "rejected",
		Enabled:   false,
	}))
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"candidates", "transition_rules", "pipeline_activity_logs", "transition_executions", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	version, err := postgresql.NewMigrationManager(slog.Default(), db).CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestCandidateRepository_UpdateStageRecordsActivity(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	seed(ctx, t, p)

	candidate, err := p.CandidateRepository().GetByID(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "screening", candidate.Status)
	assert.InDelta(t, 88.0, candidate.Attributes["score"], 0.001)

	_, err = p.CandidateRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsCandidateNotFound(err))

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, p.CandidateRepository().UpdateStage(ctx, "cand-1", "interview_scheduled", at))

	err = p.CandidateRepository().UpdateStage(ctx, "missing", "interview_scheduled", at)
	assert.True(t, persistence.IsCandidateNotFound(err))

	entry, err := p.ActivityLogRepository().LatestTransition(ctx, "cand-1", "screening", "interview_scheduled")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEmpty(t, entry.ID)
	assert.True(t, at.Equal(entry.CreatedAt))

	none, err := p.ActivityLogRepository().LatestTransition(ctx, "cand-1", "screening", "rejected")
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := p.CandidateRepository().ListByStage(ctx, "interview_scheduled")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cand-1", list[0].ID)
}

func TestRuleRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	seed(ctx, t, p)

	rule, err := p.RuleRepository().GetByID(ctx, "rule-1")
	require.NoError(t, err)
	assert.True(t, rule.AutoSendNotification)
	assert.Equal(t, models.DefaultNotificationTemplate, rule.NotificationType())
	assert.Equal(t, "gte", rule.Conditions["op"])

	_, err = p.RuleRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	byStage, err := p.RuleRepository().ListEnabledByStage(ctx, "screening")
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, "rule-1", byStage[0].ID)

	enabled, err := p.RuleRepository().ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)
}

func TestExecutionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	seed(ctx, t, p)

	repo := p.ExecutionRepository()
	now := time.Now().UTC()

	execution := &models.TransitionExecution{
		CandidateID:   "cand-1",
		RuleID:        "rule-1",
		FromStage:     "screening",
		ToStage:       "interview_scheduled",
		ExecutionType: models.ExecutionTypeAutomatic,
		TriggeredBy:   models.TriggeredBySystem,
		ConditionsMet: map[string]any{"kind": "field"},
		Result:        models.ExecutionResultSuccess,
		ExecutedAt:    now,
	}

	require.NoError(t, repo.Create(ctx, execution))
	assert.NotEmpty(t, execution.ID)

	recent, err := repo.RecentSuccess(ctx, "cand-1", "screening", "interview_scheduled", now.Add(-time.Minute))
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, execution.ID, recent.ID)
	assert.False(t, recent.NotificationSent)
	assert.Equal(t, "field", recent.ConditionsMet["kind"])

	stale, err := repo.RecentSuccess(ctx, "cand-1", "screening", "interview_scheduled", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, stale)

	emailID := "email-42"
	require.NoError(t, repo.UpdateNotification(ctx, execution.ID, true, &emailID))
	assert.ErrorIs(t, repo.UpdateNotification(ctx, "missing", true, nil), persistence.ErrExecutionNotFound)

	list, err := repo.ListByCandidate(ctx, "cand-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].NotificationSent)
	require.NotNil(t, list[0].NotificationID)
	assert.Equal(t, emailID, *list[0].NotificationID)
	assert.Nil(t, list[0].ActivityLogID)
}

func TestConditionChecker(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	seed(ctx, t, p)

	result, err := p.ConditionChecker().CheckConditions(ctx, "cand-1", "rule-1")
	require.NoError(t, err)
	assert.True(t, result.Met)

	result, err = p.ConditionChecker().CheckConditions(ctx, "cand-1", "rule-2")
	require.NoError(t, err)
	assert.True(t, result.Met, "rules without conditions are satisfied")

	_, err = p.ConditionChecker().CheckConditions(ctx, "cand-1", "missing")
	assert.True(t, persistence.IsRuleNotFound(err))
}
