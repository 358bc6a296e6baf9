package conditions_test

import (
	"testing"
	"time"

	"github.com/hirezen/stageflow/pkg/conditions"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocument(t *testing.T, updatedAt time.Time) conditions.Document {
	t.Helper()

	doc, err := conditions.NewDocument(&models.Candidate{
		ID:       "cand-1",
		FullName: "Jordan Reyes",
		Email:    "jordan@example.com",
		Status:   "screening",
		JobID:    "job-7",
		Attributes: map[string]any{
			"score":       82,
			"source":      "referral",
			"assessments": map[string]any{"technical": "passed"},
		},
		CreatedAt: updatedAt.Add(-72 * time.Hour),
		UpdatedAt: updatedAt,
	})
	require.NoError(t, err)

	return doc
}

func TestEvaluator_Evaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	evaluator := conditions.NewEvaluator(conditions.WithClock(func() time.Time { return now }))
	doc := newDocument(t, now.Add(-50*time.Hour))

	tests := []struct {
		name       string
		condition  models.Condition
		wantMet    bool
		wantReason string
	}{
		{
			name:       "empty condition is met",
			condition:  nil,
			wantMet:    true,
			wantReason: "no conditions configured",
		},
		{
			name:      "always",
			condition: models.Condition{"kind": "always"},
			wantMet:   true,
		},
		{
			name:       "never",
			condition:  models.Condition{"kind": "never"},
			wantMet:    false,
			wantReason: "never",
		},
		{
			name:      "field equals status",
			condition: models.Condition{"kind": "field", "field": "status", "op": "eq", "value": "screening"},
			wantMet:   true,
		},
		{
			name:      "field defaults to eq",
			condition: models.Condition{"kind": "field", "field": "source", "value": "referral"},
			wantMet:   true,
		},
		{
			name:      "nested attribute path",
			condition: models.Condition{"kind": "field", "field": "attributes.assessments.technical", "value": "passed"},
			wantMet:   true,
		},
		{
			name:      "numeric comparison across int and float",
			condition: models.Condition{"kind": "field", "field": "attributes.score", "op": "gte", "value": 80},
			wantMet:   true,
		},
		{
			name:      "numeric comparison not satisfied",
			condition: models.Condition{"kind": "field", "field": "score", "op": "gt", "value": 90.5},
			wantMet:   false,
		},
		{
			name:      "in list",
			condition: models.Condition{"kind": "field", "field": "source", "op": "in", "value": []any{"referral", "agency"}},
			wantMet:   true,
		},
		{
			name:      "not in list",
			condition: models.Condition{"kind": "field", "field": "source", "op": "nin", "value": []string{"agency"}},
			wantMet:   true,
		},
		{
			name:       "missing field",
			condition:  models.Condition{"kind": "field", "field": "attributes.offer", "op": "eq", "value": true},
			wantMet:    false,
			wantReason: "attributes.offer is not set",
		},
		{
			name:      "exists false on missing field",
			condition: models.Condition{"kind": "field", "field": "attributes.offer", "op": "exists", "value": false},
			wantMet:   true,
		},
		{
			name:      "time in stage satisfied",
			condition: models.Condition{"kind": "time_in_stage", "hours": 48},
			wantMet:   true,
		},
		{
			name:       "time in stage not satisfied",
			condition:  models.Condition{"kind": "time_in_stage", "hours": 72},
			wantMet:    false,
			wantReason: "in stage for less than 72 hours",
		},
		{
			name: "schema satisfied",
			condition: models.Condition{
				"kind": "schema",
				"schema": map[string]any{
					"type":     "object",
					"required": []any{"email", "job_id"},
				},
			},
			wantMet: true,
		},
		{
			name: "schema violated",
			condition: models.Condition{
				"kind": "schema",
				"schema": map[string]any{
					"type":     "object",
					"required": []any{"resume_url"},
				},
			},
			wantMet: false,
		},
		{
			name: "all with one failing child",
			condition: models.Condition{
				"kind": "all",
				"conditions": []any{
					map[string]any{"kind": "always"},
					map[string]any{"kind": "never"},
				},
			},
			wantMet:    false,
			wantReason: "never",
		},
		{
			name: "any with one passing child",
			condition: models.Condition{
				"kind": "any",
				"conditions": []any{
					map[string]any{"kind": "never"},
					map[string]any{"kind": "field", "field": "status", "value": "screening"},
				},
			},
			wantMet:    true,
			wantReason: "1 of 2 conditions met",
		},
		{
			name:       "not inverts",
			condition:  models.Condition{"kind": "not", "condition": map[string]any{"kind": "never"}},
			wantMet:    true,
			wantReason: "not (never)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := evaluator.Evaluate(tt.condition, doc)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, tt.wantMet, result.Met)
			assert.Empty(t, result.Error)

			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, result.Reason)
			}
		})
	}
}

func TestEvaluator_Evaluate_Malformed(t *testing.T) {
	t.Parallel()

	evaluator := conditions.NewEvaluator()
	doc := newDocument(t, time.Now())

	tests := []struct {
		name      string
		condition models.Condition
	}{
		{name: "missing kind", condition: models.Condition{"field": "status"}},
		{name: "unknown kind", condition: models.Condition{"kind": "score_above"}},
		{name: "field without name", condition: models.Condition{"kind": "field", "value": 1}},
		{name: "unknown operator", condition: models.Condition{"kind": "field", "field": "status", "op": "like"}},
		{name: "in without list", condition: models.Condition{"kind": "field", "field": "status", "op": "in", "value": "x"}},
		{name: "gt without number", condition: models.Condition{"kind": "field", "field": "score", "op": "gt", "value": "high"}},
		{name: "time in stage without hours", condition: models.Condition{"kind": "time_in_stage"}},
		{name: "empty group", condition: models.Condition{"kind": "all"}},
		{name: "not without child", condition: models.Condition{"kind": "not"}},
		{name: "bad child in group", condition: models.Condition{"kind": "any", "conditions": []any{map[string]any{"kind": "bogus"}}}},
		{name: "undecodable node", condition: models.Condition{"kind": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := evaluator.Evaluate(tt.condition, doc)
			require.ErrorIs(t, err, conditions.ErrMalformedCondition)
			assert.Nil(t, result)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	doc := conditions.Document{
		"status": "screening",
		"attributes": map[string]any{
			"score": 10.0,
		},
	}

	value, ok := conditions.Lookup(doc, "attributes.score")
	assert.True(t, ok)
	assert.InDelta(t, 10.0, value, 0.0001)

	_, ok = conditions.Lookup(doc, "status.nested")
	assert.False(t, ok)

	_, ok = conditions.Lookup(doc, "missing")
	assert.False(t, ok)
}
