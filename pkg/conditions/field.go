package conditions

import (
	"fmt"
	"reflect"
	"strings"
)

// Field comparison operators.
const (
	OpEq     = "eq"
	OpNeq    = "neq"
	OpIn     = "in"
	OpNotIn  = "nin"
	OpGt     = "gt"
	OpGte    = "gte"
	OpLt     = "lt"
	OpLte    = "lte"
	OpExists = "exists"
)

func (e *Evaluator) evaluateField(n node, doc Document) (outcome, error) {
	if n.Field == "" {
		return outcome{}, fmt.Errorf("%w: field condition requires a field", ErrMalformedCondition)
	}

	op := n.Op
	if op == "" {
		op = OpEq
	}

	actual, found := Lookup(doc, n.Field)
	details := map[string]any{
		"kind":     KindField,
		"field":    n.Field,
		"op":       op,
		"expected": n.Value,
		"actual":   actual,
	}

	met, err := compare(op, actual, found, n.Value)
	if err != nil {
		return outcome{}, err
	}

	if met {
		return outcome{met: true, reason: fmt.Sprintf("%s %s %v", n.Field, op, n.Value), details: details}, nil
	}

	if !found && op != OpExists {
		return outcome{met: false, reason: n.Field + " is not set", details: details}, nil
	}

	return outcome{met: false, reason: fmt.Sprintf("%s does not satisfy %s %v", n.Field, op, n.Value), details: details}, nil
}

// Lookup resolves a dotted path such as "attributes.score" in doc.
func Lookup(doc Document, path string) (any, bool) {
	var current any = map[string]any(doc)

	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func compare(op string, actual any, found bool, expected any) (bool, error) {
	switch op {
	case OpExists:
		want := true
		if b, ok := expected.(bool); ok {
			want = b
		}

		return (found && actual != nil) == want, nil
	case OpEq:
		return found && equal(actual, expected), nil
	case OpNeq:
		return !found || !equal(actual, expected), nil
	case OpIn, OpNotIn:
		list, ok := toSlice(expected)
		if !ok {
			return false, fmt.Errorf("%w: %s requires a list value", ErrMalformedCondition, op)
		}

		contained := false

		if found {
			for _, item := range list {
				if equal(actual, item) {
					contained = true
					break
				}
			}
		}

		if op == OpIn {
			return contained, nil
		}

		return !contained, nil
	case OpGt, OpGte, OpLt, OpLte:
		want, ok := toFloat(expected)
		if !ok {
			return false, fmt.Errorf("%w: %s requires a numeric value", ErrMalformedCondition, op)
		}

		if !found {
			return false, nil
		}

		got, ok := toFloat(actual)
		if !ok {
			return false, nil
		}

		switch op {
		case OpGt:
			return got > want, nil
		case OpGte:
			return got >= want, nil
		case OpLt:
			return got < want, nil
		default:
			return got <= want, nil
		}
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrMalformedCondition, op)
	}
}

func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	if aok && bok {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
