// Package conditions evaluates declarative transition conditions against a
// candidate document. It backs the store-side condition check; the transition
// engine itself never parses condition documents.
package conditions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

// Condition kinds.
const (
	KindAlways      = "always"
	KindNever       = "never"
	KindField       = "field"
	KindTimeInStage = "time_in_stage"
	KindSchema      = "schema"
	KindAll         = "all"
	KindAny         = "any"
	KindNot         = "not"
)

// ErrMalformedCondition is returned when a condition document cannot be interpreted.
var ErrMalformedCondition = errors.New("malformed condition")

// Document is the JSON view of a candidate that conditions are evaluated against.
type Document map[string]any

type node struct {
	Kind       string           `mapstructure:"kind"`
	Field      string           `mapstructure:"field"`
	Op         string           `mapstructure:"op"`
	Value      any              `mapstructure:"value"`
	Hours      float64          `mapstructure:"hours"`
	Schema     map[string]any   `mapstructure:"schema"`
	Conditions []map[string]any `mapstructure:"conditions"`
	Condition  map[string]any   `mapstructure:"condition"`
}

type outcome struct {
	met     bool
	reason  string
	details map[string]any
}

// Evaluator interprets condition documents.
type Evaluator struct {
	now func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source used by time_in_stage conditions.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewDocument builds the document view of a candidate. Attributes are exposed
// under "attributes" and also merged at the top level when they do not shadow
// a built-in field.
func NewDocument(candidate *models.Candidate) (Document, error) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidate: %w", err)
	}

	doc := Document{}

	err = json.Unmarshal(raw, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate document: %w", err)
	}

	if attrs, ok := doc["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			if _, exists := doc[k]; !exists {
				doc[k] = v
			}
		}
	}

	return doc, nil
}

// Evaluate checks cond against doc. A nil or empty condition is satisfied.
func (e *Evaluator) Evaluate(cond models.Condition, doc Document) (*models.ConditionResult, error) {
	if len(cond) == 0 {
		return &models.ConditionResult{
			Met:     true,
			Reason:  "no conditions configured",
			Details: map[string]any{"kind": KindAlways},
		}, nil
	}

	out, err := e.evaluate(cond, doc)
	if err != nil {
		return nil, err
	}

	return &models.ConditionResult{
		Met:     out.met,
		Reason:  out.reason,
		Details: out.details,
	}, nil
}

func (e *Evaluator) evaluate(raw map[string]any, doc Document) (outcome, error) {
	var n node

	err := mapstructure.Decode(raw, &n)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %w", ErrMalformedCondition, err)
	}

	switch n.Kind {
	case KindAlways:
		return outcome{met: true, reason: "always", details: map[string]any{"kind": KindAlways}}, nil
	case KindNever:
		return outcome{met: false, reason: "never", details: map[string]any{"kind": KindNever}}, nil
	case KindField:
		return e.evaluateField(n, doc)
	case KindTimeInStage:
		return e.evaluateTimeInStage(n, doc)
	case KindSchema:
		return e.evaluateSchema(n, doc)
	case KindAll, KindAny:
		return e.evaluateGroup(n, doc)
	case KindNot:
		if n.Condition == nil {
			return outcome{}, fmt.Errorf("%w: not requires a condition", ErrMalformedCondition)
		}

		inner, err := e.evaluate(n.Condition, doc)
		if err != nil {
			return outcome{}, err
		}

		return outcome{
			met:     !inner.met,
			reason:  "not (" + inner.reason + ")",
			details: map[string]any{"kind": KindNot, "result": inner.details},
		}, nil
	case "":
		return outcome{}, fmt.Errorf("%w: missing kind", ErrMalformedCondition)
	default:
		return outcome{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedCondition, n.Kind)
	}
}

func (e *Evaluator) evaluateGroup(n node, doc Document) (outcome, error) {
	if len(n.Conditions) == 0 {
		return outcome{}, fmt.Errorf("%w: %s requires conditions", ErrMalformedCondition, n.Kind)
	}

	results := make([]any, 0, len(n.Conditions))
	failed := make([]string, 0)
	passed := 0

	for _, child := range n.Conditions {
		out, err := e.evaluate(child, doc)
		if err != nil {
			return outcome{}, err
		}

		results = append(results, map[string]any{
			"met":     out.met,
			"reason":  out.reason,
			"details": out.details,
		})

		if out.met {
			passed++
		} else {
			failed = append(failed, out.reason)
		}
	}

	details := map[string]any{
		"kind":    n.Kind,
		"passed":  passed,
		"total":   len(n.Conditions),
		"results": results,
	}

	if n.Kind == KindAll {
		if len(failed) > 0 {
			return outcome{met: false, reason: strings.Join(failed, "; "), details: details}, nil
		}

		return outcome{met: true, reason: "all conditions met", details: details}, nil
	}

	if passed > 0 {
		return outcome{met: true, reason: fmt.Sprintf("%d of %d conditions met", passed, len(n.Conditions)), details: details}, nil
	}

	return outcome{met: false, reason: "no condition met: " + strings.Join(failed, "; "), details: details}, nil
}

func (e *Evaluator) evaluateTimeInStage(n node, doc Document) (outcome, error) {
	if n.Hours <= 0 {
		return outcome{}, fmt.Errorf("%w: time_in_stage requires positive hours", ErrMalformedCondition)
	}

	raw, ok := doc["updated_at"].(string)
	if !ok {
		return outcome{}, fmt.Errorf("%w: candidate has no updated_at", ErrMalformedCondition)
	}

	since, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return outcome{}, fmt.Errorf("invalid updated_at %q: %w", raw, err)
	}

	elapsed := e.now().Sub(since)
	required := time.Duration(n.Hours * float64(time.Hour))
	details := map[string]any{
		"kind":           KindTimeInStage,
		"required_hours": n.Hours,
		"elapsed_hours":  elapsed.Hours(),
	}

	if elapsed >= required {
		return outcome{met: true, reason: fmt.Sprintf("in stage for at least %g hours", n.Hours), details: details}, nil
	}

	return outcome{met: false, reason: fmt.Sprintf("in stage for less than %g hours", n.Hours), details: details}, nil
}

func (e *Evaluator) evaluateSchema(n node, doc Document) (outcome, error) {
	if len(n.Schema) == 0 {
		return outcome{}, fmt.Errorf("%w: schema condition requires a schema", ErrMalformedCondition)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(n.Schema), gojsonschema.NewGoLoader(map[string]any(doc)))
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %w", ErrMalformedCondition, err)
	}

	if result.Valid() {
		return outcome{met: true, reason: "candidate matches schema", details: map[string]any{"kind": KindSchema}}, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		violations = append(violations, violation.String())
	}

	return outcome{
		met:     false,
		reason:  "schema validation failed: " + strings.Join(violations, "; "),
		details: map[string]any{"kind": KindSchema, "violations": violations},
	}, nil
}
