package narrative

import (
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

// gateHolds evaluates a content block or section gate for the sentence at
// base. Expression gates that fail to evaluate are treated as closed.
func (r *renderer) gateHolds(gate model.Gate, base values.Path) bool {
	if expr := strings.TrimSpace(gate.Expr); expr != "" {
		local, _ := values.Subtree(r.tree, base)
		ctx := visibility.Context{
			Values: values.Flatten(local),
			Extras: r.extras(),
		}
		ok, err := r.cfg.evaluator.Eval(base.String(), expr, ctx)
		return err == nil && ok
	}

	field := strings.TrimSpace(gate.Field)
	if field == "" {
		return true
	}
	var path values.Path
	if strings.Contains(field, ".") {
		path = values.ParsePath(field)
	} else {
		path = base.Append(values.Field(field))
	}
	current, _ := values.Lookup(r.tree, path)
	return Compare(gate.Operator, current, gate.Value)
}

// Compare applies a gate operator. equals (the default) with no expected
// value holds when current is answered; arrays compare by membership.
func Compare(op model.Operator, current, expected any) bool {
	switch op {
	case model.OperatorNot:
		return !Compare(model.OperatorEquals, current, expected)
	case model.OperatorContains:
		if text, ok := current.(string); ok {
			return expected != nil && strings.Contains(text, values.Key(expected))
		}
		return values.Intersects(values.Coerce(current), values.Coerce(expected))
	case model.OperatorIn:
		return values.Intersects(values.Coerce(current), values.Coerce(expected))
	default:
		if expected == nil {
			return !values.IsEmpty(current)
		}
		if _, ok := values.AsSlice(expected); ok {
			return values.Intersects(values.Coerce(current), values.Coerce(expected))
		}
		if members, ok := values.AsSlice(current); ok {
			return values.Intersects(members, []any{expected})
		}
		return values.Equal(current, expected)
	}
}

func (r *renderer) extras() map[string]any {
	if r.flatRoot == nil {
		r.flatRoot = values.Flatten(r.tree)
		for key, value := range r.cfg.extras {
			r.flatRoot[key] = value
		}
	}
	return r.flatRoot
}
