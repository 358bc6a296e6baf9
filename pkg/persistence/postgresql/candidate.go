package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
)

// CandidateRepository handles candidate-related database operations.
type CandidateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCandidateRepository creates a new candidate repository.
func NewCandidateRepository(db *sql.DB, logger *slog.Logger) *CandidateRepository {
	return &CandidateRepository{db: db, logger: logger}
}

const candidateColumns = `
			id
		  , full_name
		  , email
		  , status
		  , job_id
		  , attributes
		  , created_at
		  , updated_at
`

func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	candidate, err := r.scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCandidateError("GetByID", id, persistence.ErrCandidateNotFound)
		}

		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}

	return candidate, nil
}

func (r *CandidateRepository) ListByStage(ctx context.Context, stage string) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE status = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	candidates := make([]*models.Candidate, 0)

	for rows.Next() {
		candidate, err := r.scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}

		candidates = append(candidates, candidate)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

// UpdateStage sets the candidate's status. The candidates_stage_change trigger
// records the matching pipeline activity log entry.
func (r *CandidateRepository) UpdateStage(ctx context.Context, id, stage string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE candidates SET status = $2, updated_at = $3 WHERE id = $1",
		id, stage, at.UTC(),
	)
	if err != nil {
		return persistence.NewCandidateError("UpdateStage", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewCandidateError("UpdateStage", id, persistence.ErrCandidateNotFound)
	}

	return nil
}

// Save inserts or updates a candidate.
func (r *CandidateRepository) Save(ctx context.Context, candidate *models.Candidate) error {
	now := time.Now().UTC()

	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = now
	}

	if candidate.UpdatedAt.IsZero() {
		candidate.UpdatedAt = now
	}

	attributes := candidate.Attributes
	if attributes == nil {
		attributes = map[string]any{}
	}

	attributesJSON, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	query := `
		INSERT INTO candidates (id, full_name, email, status, job_id, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			job_id = EXCLUDED.job_id,
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		candidate.ID,
		candidate.FullName,
		candidate.Email,
		candidate.Status,
		sql.NullString{String: candidate.JobID, Valid: candidate.JobID != ""},
		attributesJSON,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}

	return nil
}

func (r *CandidateRepository) scanCandidate(row scanner) (*models.Candidate, error) {
	var (
		candidate      models.Candidate
		jobID          sql.NullString
		attributesJSON []byte
	)

	err := row.Scan(
		&candidate.ID,
		&candidate.FullName,
		&candidate.Email,
		&candidate.Status,
		&jobID,
		&attributesJSON,
		&candidate.CreatedAt,
		&candidate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	candidate.JobID = jobID.String

	if len(attributesJSON) > 0 {
		err = json.Unmarshal(attributesJSON, &candidate.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}

	return &candidate, nil
}
