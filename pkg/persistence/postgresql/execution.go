package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
)

// ExecutionRepository handles the transition audit log.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
			id
		  , candidate_id
		  , rule_id
		  , from_stage
		  , to_stage
		  , execution_type
		  , triggered_by
		  , conditions_met
		  , execution_result
		  , activity_log_id
		  , notification_sent
		  , notification_id
		  , error_message
		  , executed_at
`

// Create appends an execution record, assigning its ID and timestamp when unset.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.TransitionExecution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	if execution.ExecutedAt.IsZero() {
		execution.ExecutedAt = time.Now().UTC()
	}

	conditionsJSON, err := nullableJSON(execution.ConditionsMet)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions met: %w", err)
	}

	query := `
		INSERT INTO transition_executions (id, candidate_id, rule_id, from_stage, to_stage,
			execution_type, triggered_by, conditions_met, execution_result, activity_log_id,
			notification_sent, notification_id, error_message, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.CandidateID,
		execution.RuleID,
		execution.FromStage,
		execution.ToStage,
		string(execution.ExecutionType),
		string(execution.TriggeredBy),
		conditionsJSON,
		string(execution.Result),
		nullString(execution.ActivityLogID),
		execution.NotificationSent,
		nullString(execution.NotificationID),
		sql.NullString{String: execution.ErrorMessage, Valid: execution.ErrorMessage != ""},
		execution.ExecutedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transition execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateNotification(ctx context.Context, id string, sent bool, notificationID *string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE transition_executions SET notification_sent = $2, notification_id = $3 WHERE id = $1",
		id, sent, nullString(notificationID),
	)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

func (r *ExecutionRepository) RecentSuccess(
	ctx context.Context,
	candidateID, fromStage, toStage string,
	since time.Time,
) (*models.TransitionExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM transition_executions
		WHERE candidate_id = $1
		  AND from_stage = $2
		  AND to_stage = $3
		  AND execution_result = 'success'
		  AND executed_at >= $4
		ORDER BY executed_at DESC
		LIMIT 1`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, candidateID, fromStage, toStage, since.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]*models.TransitionExecution, error) {
	query := `SELECT ` + executionColumns + `
		FROM transition_executions
		WHERE candidate_id = $1
		ORDER BY executed_at DESC`

	args := []any{candidateID}
	if limit > 0 {
		query += " LIMIT $2"

		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.TransitionExecution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) scanExecution(row scanner) (*models.TransitionExecution, error) {
	var (
		execution      models.TransitionExecution
		executionType  string
		triggeredBy    string
		result         string
		conditionsJSON []byte
		activityLogID  sql.NullString
		notificationID sql.NullString
		errorMessage   sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.CandidateID,
		&execution.RuleID,
		&execution.FromStage,
		&execution.ToStage,
		&executionType,
		&triggeredBy,
		&conditionsJSON,
		&result,
		&activityLogID,
		&execution.NotificationSent,
		&notificationID,
		&errorMessage,
		&execution.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.ExecutionType = models.ExecutionType(executionType)
	execution.TriggeredBy = models.TriggeredBy(triggeredBy)
	execution.Result = models.ExecutionResult(result)
	execution.ActivityLogID = stringPtr(activityLogID)
	execution.NotificationID = stringPtr(notificationID)
	execution.ErrorMessage = errorMessage.String

	if len(conditionsJSON) > 0 {
		err = json.Unmarshal(conditionsJSON, &execution.ConditionsMet)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions met: %w", err)
		}
	}

	return &execution, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}

	return &s.String
}
