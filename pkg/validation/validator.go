package validation

import (
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

// Validator walks sentences and applies field rules. The zero value is ready
// to use; custom rules referenced by name need a Registry.
type Validator struct {
	Registry *Registry
}

// New returns a Validator resolving named custom rules through registry.
func New(registry *Registry) *Validator {
	return &Validator{Registry: registry}
}

var defaultValidator = &Validator{}

// ValidateSentence validates sentence against tree using the default
// validator. See Validator.ValidateSentence.
func ValidateSentence(sentence *model.Sentence, tree values.Tree, path values.Path) Errors {
	return defaultValidator.ValidateSentence(sentence, tree, path)
}

// ValidateModule validates every top-level sentence of module at the root.
func ValidateModule(module *model.Module, tree values.Tree) Errors {
	return defaultValidator.ValidateModule(module, tree)
}

// ApplyRules evaluates rules against value with the default validator.
func ApplyRules(value any, rules []model.Rule) []Failure {
	return defaultValidator.ApplyRules(value, rules, false)
}

// ApplyField evaluates the field's rules with the default validator.
func ApplyField(field *model.Field, value any) []Failure {
	return defaultValidator.ApplyField(field, value)
}

// ValidateModule validates every sentence of the module's root scope at the
// empty path and merges the results.
func (v *Validator) ValidateModule(module *model.Module, tree values.Tree) Errors {
	out := Errors{}
	for _, sentence := range module.Scope() {
		v.walk(sentence, tree, nil, out)
	}
	return out
}

// ValidateSentence walks sentence at path. For every field it records the
// failures of its rules under the field's dotted path, then recurses into the
// expansion selected by the field's value (each selected member for arrays)
// and finally into every child sentence under child_<i>. The walk depends only
// on values: hidden fields are validated, and dormant expansion data is not.
// The result is never nil.
func (v *Validator) ValidateSentence(sentence *model.Sentence, tree values.Tree, path values.Path) Errors {
	out := Errors{}
	v.walk(sentence, tree, path, out)
	return out
}

func (v *Validator) walk(sentence *model.Sentence, tree values.Tree, path values.Path, out Errors) {
	if sentence == nil {
		return
	}
	for _, id := range sentence.FieldIDs() {
		field, ok := sentence.Field(id)
		if !ok {
			continue
		}
		fieldPath := path.Append(values.Field(id))
		value, _ := values.Lookup(tree, fieldPath)
		out.add(fieldPath.String(), v.ApplyField(field, value))

		for _, key := range values.ActiveKeys(value) {
			expansion, ok := field.Expansion(key)
			if !ok {
				continue
			}
			v.walk(expansion, tree, fieldPath.Append(values.Expansion(key)), out)
		}
	}
	for idx, child := range sentence.Children {
		v.walk(child, tree, path.Append(values.Child(idx)), out)
	}
}

// ApplyField evaluates the field's rules. Number fields compare numeric
// strings by value rather than by length.
func (v *Validator) ApplyField(field *model.Field, value any) []Failure {
	if field == nil {
		return nil
	}
	return v.ApplyRules(value, field.Rules, field.Type == model.FieldTypeNumber)
}

// ApplyRules evaluates every rule and reports each failure, in rule order.
// Only required reports emptiness: min, max and pattern pass on empty values.
// Invalid patterns and unknown custom rule names fail.
func (v *Validator) ApplyRules(value any, rules []model.Rule, numeric bool) []Failure {
	var out []Failure
	empty := values.IsEmpty(value)
	for _, rule := range rules {
		switch rule.Kind {
		case model.RuleRequired:
			if empty {
				out = append(out, failure(rule, messageRequired))
			}
		case model.RuleMin, model.RuleMax:
			if empty {
				continue
			}
			m := measureValue(value, numeric)
			if !m.ok {
				out = append(out, failure(rule, boundMessage(rule.Kind, rule.Value, m.unit)))
				continue
			}
			if (rule.Kind == model.RuleMin && m.amount < rule.Value) ||
				(rule.Kind == model.RuleMax && m.amount > rule.Value) {
				out = append(out, failure(rule, boundMessage(rule.Kind, rule.Value, m.unit)))
			}
		case model.RulePattern:
			if empty {
				continue
			}
			if !matchesPattern(rule.Pattern, value) {
				out = append(out, failure(rule, messagePattern))
			}
		case model.RuleCustom:
			if !v.custom(rule, value) {
				out = append(out, failure(rule, messageCustom))
			}
		}
	}
	return out
}

func (v *Validator) custom(rule model.Rule, value any) bool {
	if rule.Check != nil {
		return rule.Check(value)
	}
	predicate, ok := v.Registry.Lookup(rule.Custom)
	if !ok {
		return false
	}
	return predicate(value)
}

func matchesPattern(expr string, value any) bool {
	re, err := compilePattern(expr)
	if err != nil {
		return false
	}
	if items, ok := values.AsSlice(value); ok {
		for _, item := range items {
			if !re.MatchString(values.Key(item)) {
				return false
			}
		}
		return true
	}
	return re.MatchString(values.Key(value))
}

// FilterVisible keeps the failures whose path is live: every field along it
// visible and every expansion along it selected.
func FilterVisible(errs Errors, root model.Scope, tree values.Tree) Errors {
	out := Errors{}
	for path, failures := range errs {
		if visibility.IsLive(root, tree, values.ParsePath(path)) {
			out.add(path, failures)
		}
	}
	return out
}
