// Package postgresql provides the PostgreSQL persistence implementation for
// candidates, transition rules, and the transition audit log.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/conditions"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	candidateRepo   *CandidateRepository
	ruleRepo        *RuleRepository
	executionRepo   *ExecutionRepository
	activityLogRepo *ActivityLogRepository
	checker         *ConditionChecker
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = NewMigrationManager(logger, database).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	candidateRepo := NewCandidateRepository(database, logger)
	ruleRepo := NewRuleRepository(database, logger)

	return &Persistence{
		db:              database,
		logger:          logger,
		candidateRepo:   candidateRepo,
		ruleRepo:        ruleRepo,
		executionRepo:   NewExecutionRepository(database, logger),
		activityLogRepo: NewActivityLogRepository(database),
		checker:         NewConditionChecker(candidateRepo, ruleRepo, conditions.NewEvaluator()),
	}, nil
}

// NewMigrationManager returns the migration manager for the stageflow schema.
func NewMigrationManager(logger *slog.Logger, db *sql.DB) *sqlbase.MigrationManager {
	return sqlbase.NewMigrationManager(logger, db, migrations())
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) CandidateRepository() persistence.CandidateRepository {
	return p.candidateRepo
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.ruleRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) ActivityLogRepository() persistence.ActivityLogRepository {
	return p.activityLogRepo
}

func (p *Persistence) ConditionChecker() persistence.ConditionChecker {
	return p.checker
}

// nullableJSON encodes a JSONB parameter, mapping a nil map to SQL NULL.
func nullableJSON(value map[string]any) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}

	return sql.NullString{String: string(raw), Valid: true}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
