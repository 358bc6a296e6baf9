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

// RuleRepository handles transition rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
			id
		  , name
		  , from_stage
		  , to_stage
		  , enabled
		  , conditions
		  , auto_send_notification
		  , notification_template
		  , require_approval
		  , created_at
		  , updated_at
`

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.TransitionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM transition_rules WHERE id = $1`

	rule, err := r.scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) ListEnabledByStage(ctx context.Context, fromStage string) ([]*models.TransitionRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM transition_rules
		WHERE enabled AND from_stage = $1
		ORDER BY created_at, id`

	return r.list(ctx, query, fromStage)
}

func (r *RuleRepository) ListEnabled(ctx context.Context) ([]*models.TransitionRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM transition_rules
		WHERE enabled
		ORDER BY created_at, id`

	return r.list(ctx, query)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]*models.TransitionRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.TransitionRule, 0)

	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// Save inserts or updates a transition rule.
func (r *RuleRepository) Save(ctx context.Context, rule *models.TransitionRule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	conditionsJSON, err := nullableJSON(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	query := `
		INSERT INTO transition_rules (id, name, from_stage, to_stage, enabled, conditions,
			auto_send_notification, notification_template, require_approval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			from_stage = EXCLUDED.from_stage,
			to_stage = EXCLUDED.to_stage,
			enabled = EXCLUDED.enabled,
			conditions = EXCLUDED.conditions,
			auto_send_notification = EXCLUDED.auto_send_notification,
			notification_template = EXCLUDED.notification_template,
			require_approval = EXCLUDED.require_approval,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.FromStage,
		rule.ToStage,
		rule.Enabled,
		conditionsJSON,
		rule.AutoSendNotification,
		sql.NullString{String: rule.NotificationTemplate, Valid: rule.NotificationTemplate != ""},
		rule.RequireApproval,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) scanRule(row scanner) (*models.TransitionRule, error) {
	var (
		rule           models.TransitionRule
		conditionsJSON []byte
		template       sql.NullString
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.FromStage,
		&rule.ToStage,
		&rule.Enabled,
		&conditionsJSON,
		&rule.AutoSendNotification,
		&template,
		&rule.RequireApproval,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.NotificationTemplate = template.String

	if len(conditionsJSON) > 0 {
		err = json.Unmarshal(conditionsJSON, &rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	return &rule, nil
}
