package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hirezen/stageflow/pkg/models"
)

// ActivityLogRepository reads entries written by the candidates_stage_change trigger.
type ActivityLogRepository struct {
	db *sql.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) LatestTransition(
	ctx context.Context,
	candidateID, oldStage, newStage string,
) (*models.ActivityLog, error) {
	query := `
		SELECT id, candidate_id, old_stage, new_stage, created_at
		FROM pipeline_activity_logs
		WHERE candidate_id = $1 AND old_stage = $2 AND new_stage = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry models.ActivityLog

	err := r.db.QueryRowContext(ctx, query, candidateID, oldStage, newStage).Scan(
		&entry.ID,
		&entry.CandidateID,
		&entry.OldStage,
		&entry.NewStage,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}

	return &entry, nil
}
