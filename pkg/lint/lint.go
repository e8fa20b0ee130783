// Package lint checks schema modules for authoring mistakes the runtime
// tolerates silently: placeholders naming undeclared fields, ids that collide
// with reserved path segments, conditions pointing nowhere, expansions no
// option can trigger and rules or gates that cannot be evaluated.
package lint

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility/expr"
)

// Kind classifies an Issue.
type Kind string

const (
	KindUndeclaredField Kind = "undeclared_field"
	KindDuplicateField  Kind = "duplicate_field"
	KindReservedID      Kind = "reserved_id"
	KindInvalidType     Kind = "invalid_type"
	KindMissingOptions  Kind = "missing_options"
	KindUnknownTrigger  Kind = "unknown_trigger"
	KindInvalidRule     Kind = "invalid_rule"
	KindUnknownSource   Kind = "unknown_source"
	KindUnknownTarget   Kind = "unknown_target"
	KindInvalidGate     Kind = "invalid_gate"
	KindMissingID       Kind = "missing_id"
)

// Issue is one lint finding. Path is the dotted value path of the offending
// field, or of the sentence when the issue is not tied to a field.
type Issue struct {
	Module  string `json:"module"`
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	location := i.Path
	if location == "" {
		location = "(root)"
	}
	return fmt.Sprintf("%s: %s -> %s", i.Module, location, i.Message)
}

// Module lints a single module. Issues are sorted by path, then kind.
func Module(module *model.Module) []Issue {
	if module == nil {
		return nil
	}
	l := &linter{module: module.ID}
	if strings.TrimSpace(module.ID) == "" {
		l.report(nil, KindMissingID, "module id is required")
	}
	seenSub := make(map[string]struct{}, len(module.Submodules))
	for _, sub := range module.Submodules {
		if strings.TrimSpace(sub.ID) == "" {
			l.report(nil, KindMissingID, "submodule id is required")
			continue
		}
		if _, dup := seenSub[sub.ID]; dup {
			l.report(nil, KindMissingID, fmt.Sprintf("submodule %q declared twice", sub.ID))
		}
		seenSub[sub.ID] = struct{}{}
	}
	l.scope(module.Scope(), nil)
	sort.SliceStable(l.issues, func(a, b int) bool {
		if l.issues[a].Path == l.issues[b].Path {
			if l.issues[a].Kind == l.issues[b].Kind {
				return l.issues[a].Message < l.issues[b].Message
			}
			return l.issues[a].Kind < l.issues[b].Kind
		}
		return l.issues[a].Path < l.issues[b].Path
	})
	return l.issues
}

// Modules lints every module and concatenates the results.
func Modules(modules []*model.Module) []Issue {
	var out []Issue
	for _, module := range modules {
		out = append(out, Module(module)...)
	}
	return out
}

type linter struct {
	module string
	issues []Issue
}

func (l *linter) report(path values.Path, kind Kind, message string) {
	l.issues = append(l.issues, Issue{Module: l.module, Path: path.String(), Kind: kind, Message: message})
}

func (l *linter) scope(scope model.Scope, base values.Path) {
	if len(scope) == 0 {
		return
	}
	declared := make(map[string]struct{})
	for _, sentence := range scope {
		for _, id := range sentence.FieldIDs() {
			if _, dup := declared[id]; dup {
				l.report(base.Append(values.Field(id)), KindDuplicateField,
					fmt.Sprintf("field %q is declared by more than one sentence in this scope; the first declaration wins", id))
				continue
			}
			declared[id] = struct{}{}
		}
	}

	maxChildren := 0
	for _, sentence := range scope {
		l.sentence(sentence, scope, base)
		if len(sentence.Children) > maxChildren {
			maxChildren = len(sentence.Children)
		}
	}
	for idx := 0; idx < maxChildren; idx++ {
		l.scope(scope.Child(idx), base.Append(values.Child(idx)))
	}
}

func (l *linter) sentence(sentence *model.Sentence, scope model.Scope, base values.Path) {
	for _, id := range model.Placeholders(sentence.Template) {
		if _, ok := sentence.Field(id); !ok {
			l.report(base, KindUndeclaredField, fmt.Sprintf("template references undeclared field %q", id))
		}
	}
	for _, block := range sentence.Blocks {
		l.placeholders(sentence, block.Template, base)
		l.gate(block.When, scope, base)
	}
	for _, section := range sentence.Sections {
		l.placeholders(sentence, section.Template, base)
		l.gate(section.When, scope, base)
	}
	for _, id := range sentence.FieldIDs() {
		field, ok := sentence.Field(id)
		path := base.Append(values.Field(id))
		if !ok {
			l.report(path, KindInvalidType, "field declaration is empty")
			continue
		}
		l.field(id, field, scope, path)
	}
}

func (l *linter) placeholders(sentence *model.Sentence, template string, base values.Path) {
	for _, id := range model.Placeholders(template) {
		if _, ok := sentence.Field(id); !ok {
			l.report(base, KindUndeclaredField, fmt.Sprintf("block template references undeclared field %q", id))
		}
	}
}

func (l *linter) field(id string, field *model.Field, scope model.Scope, path values.Path) {
	if reserved(id) {
		l.report(path, KindReservedID, fmt.Sprintf("field id %q collides with path syntax", id))
	}
	if field.ID != "" && field.ID != id {
		l.report(path, KindReservedID, fmt.Sprintf("field id %q does not match its key %q", field.ID, id))
	}
	if !field.Type.Valid() {
		l.report(path, KindInvalidType, fmt.Sprintf("unknown field type %q", field.Type))
	}
	if field.Type.Selectable() && len(field.Options) == 0 {
		l.report(path, KindMissingOptions, fmt.Sprintf("%s field declares no options", field.Type))
	}
	l.rules(field, path)
	l.conditions(field, scope, path)

	options := make(map[string]struct{}, len(field.Options))
	for _, option := range field.Options {
		options[option.Value] = struct{}{}
	}
	for _, key := range field.ExpansionKeys() {
		if strings.Contains(key, ".") {
			l.report(path, KindReservedID, fmt.Sprintf("expansion key %q must not contain '.'", key))
		}
		if field.Type == model.FieldTypeBoolean && key != "true" && key != "false" {
			l.report(path, KindUnknownTrigger, fmt.Sprintf("boolean expansion key %q is never selected", key))
		}
		if len(options) > 0 {
			if _, ok := options[key]; !ok {
				l.report(path, KindUnknownTrigger, fmt.Sprintf("expansion key %q matches no option", key))
			}
		}
		expansion, _ := field.Expansion(key)
		l.scope(model.Single(expansion), path.Append(values.Expansion(key)))
	}
}

func (l *linter) rules(field *model.Field, path values.Path) {
	var minimum, maximum *float64
	for i := range field.Rules {
		rule := field.Rules[i]
		switch rule.Kind {
		case model.RuleRequired:
		case model.RuleMin:
			minimum = &field.Rules[i].Value
		case model.RuleMax:
			maximum = &field.Rules[i].Value
		case model.RulePattern:
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				l.report(path, KindInvalidRule, fmt.Sprintf("pattern %q does not compile: %v", rule.Pattern, err))
			}
		case model.RuleCustom:
			if rule.Check == nil && strings.TrimSpace(rule.Custom) == "" {
				l.report(path, KindInvalidRule, "custom rule names no predicate")
			}
		default:
			l.report(path, KindInvalidRule, fmt.Sprintf("unknown rule kind %q", rule.Kind))
		}
	}
	if minimum != nil && maximum != nil && *minimum > *maximum {
		l.report(path, KindInvalidRule, fmt.Sprintf("min %v exceeds max %v", *minimum, *maximum))
	}
}

func (l *linter) conditions(field *model.Field, scope model.Scope, path values.Path) {
	for _, cond := range field.Conditions {
		source := strings.TrimSpace(cond.SourceField)
		switch {
		case source == "":
			l.report(path, KindUnknownSource, "condition has no source field")
		case strings.Contains(source, "."):
			// absolute paths resolve from the root; checked when values exist
		default:
			if _, _, ok := scope.Field(source); !ok {
				l.report(path, KindUnknownSource, fmt.Sprintf("condition source %q is not declared in this scope", source))
			}
		}
		for _, target := range append(append([]string(nil), cond.Show...), cond.Hide...) {
			if _, _, ok := scope.Field(strings.TrimSpace(target)); !ok {
				l.report(path, KindUnknownTarget, fmt.Sprintf("condition target %q is not declared in this scope", target))
			}
		}
	}
}

func (l *linter) gate(gate model.Gate, scope model.Scope, base values.Path) {
	if rule := strings.TrimSpace(gate.Expr); rule != "" {
		if _, err := expr.Compile(rule); err != nil {
			l.report(base, KindInvalidGate, err.Error())
		}
		return
	}
	if !gate.Operator.Valid() {
		l.report(base, KindInvalidGate, fmt.Sprintf("unknown operator %q", gate.Operator))
	}
	field := strings.TrimSpace(gate.Field)
	if field == "" || strings.Contains(field, ".") {
		return
	}
	if _, _, ok := scope.Field(field); !ok {
		l.report(base, KindInvalidGate, fmt.Sprintf("gate field %q is not declared in this scope", field))
	}
}

func reserved(id string) bool {
	return strings.Contains(id, ".") || strings.HasPrefix(id, "expansion_") || strings.HasPrefix(id, "child_")
}
