package visibility

import (
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Evaluator decides an expression-based rule, such as the `expr` gate of a
// content block, against flattened values.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the values local to
// the sentence being rendered, keyed by dotted path; Extras holds the whole
// module's flattened values and any caller supplied data.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// IsVisible reports whether the field addressed by path is shown for the
// given values. Only the field's own conditions count: those whose hide list
// names the field and those whose show list does. A holding hide condition
// always wins; otherwise, when show conditions exist, at least one must hold.
// Fields without conditions, or whose conditions name other fields only, are
// visible. Paths that do not resolve are not.
func IsVisible(root model.Scope, tree values.Tree, path values.Path) bool {
	target, ok := values.Resolve(root, path)
	if !ok || target.Field == nil {
		return false
	}
	if len(target.Field.Conditions) == 0 {
		return true
	}
	last, _ := path.Last()
	show, hide := partition(target.Field.Conditions, last.Name)
	if len(show) == 0 && len(hide) == 0 {
		return true
	}
	base := path.Parent()
	for _, cond := range hide {
		if Holds(root, tree, base, cond) {
			return false
		}
	}
	if len(show) == 0 {
		return true
	}
	for _, cond := range show {
		if Holds(root, tree, base, cond) {
			return true
		}
	}
	return false
}

// IsLive reports whether every field along path is visible and every
// expansion segment is selected by its field's current value. It is the
// check renderers and "visible errors only" filters need: a visible field
// inside an inactive or hidden branch is not live.
func IsLive(root model.Scope, tree values.Tree, path values.Path) bool {
	if _, ok := values.Resolve(root, path); !ok {
		return false
	}
	for i, segment := range path {
		prefix := path[:i+1 : i+1]
		switch segment.Kind {
		case values.SegmentField:
			if !IsVisible(root, tree, prefix) {
				return false
			}
		case values.SegmentExpansion:
			current, _ := values.Get(root, tree, prefix.Parent())
			if !values.Selects(current, segment.Name) {
				return false
			}
		}
	}
	return true
}

// Holds evaluates a single condition. SourceField resolves next to the target
// field (base is the target's parent path) unless it is a dotted path, which
// is read from the module root. Array triggers hold on any intersection with
// the array-coerced source value; scalar triggers hold on equality, or on
// membership when the source is an array.
func Holds(root model.Scope, tree values.Tree, base values.Path, cond model.Condition) bool {
	source := strings.TrimSpace(cond.SourceField)
	if source == "" {
		return false
	}
	var sourcePath values.Path
	if strings.Contains(source, ".") {
		sourcePath = values.ParsePath(source)
	} else {
		sourcePath = base.Append(values.Field(source))
	}
	current, _ := values.Get(root, tree, sourcePath)

	if triggers, ok := values.AsSlice(cond.TriggerValue); ok {
		return values.Intersects(values.Coerce(current), triggers)
	}
	if cond.TriggerValue == nil {
		return values.IsEmpty(current)
	}
	if members, ok := values.AsSlice(current); ok {
		return values.Intersects(members, []any{cond.TriggerValue})
	}
	return values.Equal(current, cond.TriggerValue)
}

func partition(conditions []model.Condition, id string) (show, hide []model.Condition) {
	for _, cond := range conditions {
		if contains(cond.Hide, id) {
			hide = append(hide, cond)
		}
		if contains(cond.Show, id) {
			show = append(show, cond)
		}
	}
	return show, hide
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if strings.TrimSpace(candidate) == id {
			return true
		}
	}
	return false
}
