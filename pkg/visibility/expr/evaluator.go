package expr

import (
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

// Program is a compiled expression.
type Program struct {
	source string
	root   node
}

// Compile parses rule. Supported forms:
//
//	enabled                       truthy check
//	!enabled, not enabled         negation
//	level == "deidentified"       equality (numbers and booleans coerce)
//	level != 3
//	sources contains "registry"   membership for arrays, substring for strings
//	phase in ["one", "two"]       membership in a literal list
//	a && (b || c), a and b or c   composition
//
// Identifiers are dotted value paths such as
// `identifiability_level.expansion_deidentified.method`. The `extras.`
// prefix reads from Context.Extras instead of Context.Values.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return &Program{}, nil
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Program{source: trimmed, root: root}, nil
}

// Source returns the trimmed expression text.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval runs the program. An empty program is always true.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(func(name string) (any, bool) {
		return lookup(ctx, name)
	})
}

// Evaluator implements visibility.Evaluator and caches compiled programs by
// rule text. It is safe for concurrent use.
type Evaluator struct {
	cache sync.Map
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator { return &Evaluator{} }

// Eval compiles (or reuses) rule and evaluates it against ctx.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	program, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	return program.Eval(ctx)
}

func (e *Evaluator) compile(rule string) (*Program, error) {
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(*Program), nil
	}
	program, err := Compile(rule)
	if err != nil {
		return nil, err
	}
	e.cache.Store(rule, program)
	return program, nil
}

var _ visibility.Evaluator = (*Evaluator)(nil)

func lookup(ctx visibility.Context, name string) (any, bool) {
	if rest, ok := cutPrefixFold(name, "extras."); ok {
		return lookupPath(ctx.Extras, rest)
	}
	return lookupPath(ctx.Values, name)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func lookupPath(source map[string]any, path string) (any, bool) {
	if len(source) == 0 || path == "" {
		return nil, false
	}
	// flattened maps carry dotted keys directly
	if value, ok := source[path]; ok {
		return value, true
	}
	var current any = source
	for _, part := range strings.Split(path, ".") {
		nested, ok := values.StringMap(current)
		if !ok {
			return nil, false
		}
		current, ok = nested[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func matches(value, operand any) bool {
	if operand == nil {
		return values.IsEmpty(value)
	}
	if items, ok := values.AsSlice(value); ok {
		for _, item := range items {
			if matchScalar(item, operand) {
				return true
			}
		}
		return false
	}
	return matchScalar(value, operand)
}

func matchScalar(value, operand any) bool {
	if value == nil {
		return false
	}
	switch want := operand.(type) {
	case bool:
		got, ok := asBool(value)
		return ok && got == want
	case float64:
		got, ok := values.Number(value)
		return ok && got == want
	default:
		return values.Key(value) == values.Key(operand)
	}
}

func contains(value, operand any) bool {
	if _, ok := values.AsSlice(value); ok {
		return matches(value, operand)
	}
	if text, ok := value.(string); ok {
		return strings.Contains(text, values.Key(operand))
	}
	return matches(value, operand)
}

func asBool(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed, err == nil
	}
	if n, ok := values.Number(value); ok && values.IsNumber(value) {
		return n != 0, true
	}
	return false, false
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		trimmed := strings.TrimSpace(typed)
		return trimmed != "" && !strings.EqualFold(trimmed, "false")
	}
	if items, ok := values.AsSlice(value); ok {
		return len(items) > 0
	}
	if nested, ok := values.StringMap(value); ok {
		return len(nested) > 0
	}
	if n, ok := values.Number(value); ok && values.IsNumber(value) {
		return n != 0
	}
	return true
}
