package validation_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

func identifiabilitySentence() *model.Sentence {
	return &model.Sentence{
		Template: "Data will be {identifiability_level}.",
		Fields: map[string]*model.Field{
			"identifiability_level": {
				ID:   "identifiability_level",
				Type: model.FieldTypeSelect,
				Options: []model.Option{
					{Value: "identified", Label: "identified"},
					{Value: "deidentified", Label: "de-identified"},
				},
				Expansions: map[string]*model.Sentence{
					"deidentified": {
						Template: "using {method} with {details}",
						Fields: map[string]*model.Field{
							"method": {ID: "method", Type: model.FieldTypeText, Rules: []model.Rule{
								model.Required(""),
							}},
							"details": {ID: "details", Type: model.FieldTypeTextarea, Rules: []model.Rule{
								model.Required(""),
								model.Min(20, ""),
							}},
						},
					},
					"identified": {
						Template: "stored in {location}",
						Fields: map[string]*model.Field{
							"location": {ID: "location", Type: model.FieldTypeText, Rules: []model.Rule{
								model.Required("Location is required"),
							}},
						},
					},
				},
			},
		},
	}
}

func TestValidateSentenceIdentifiabilityScenario(t *testing.T) {
	t.Parallel()

	sentence := identifiabilitySentence()
	root := model.Single(sentence)

	tree := values.Set(root, values.Empty(), values.ParsePath("identifiability_level"), "deidentified")
	got := validation.ValidateSentence(sentence, tree, nil)
	want := validation.Errors{
		"identifiability_level.expansion_deidentified.method": {
			{Kind: model.RuleRequired, Message: "This field is required"},
		},
		"identifiability_level.expansion_deidentified.details": {
			{Kind: model.RuleRequired, Message: "This field is required"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	tree = values.Set(root, tree, values.ParsePath("identifiability_level.expansion_deidentified.method"), "safe harbor")
	tree = values.Set(root, tree, values.ParsePath("identifiability_level.expansion_deidentified.details"), "all eighteen identifiers removed")
	got = validation.ValidateSentence(sentence, tree, nil)
	if diff := cmp.Diff(validation.Errors{}, got); diff != "" {
		t.Fatalf("expected no errors (-want +got):\n%s", diff)
	}
}

func TestValidateSentenceExpansionGating(t *testing.T) {
	t.Parallel()

	sentence := identifiabilitySentence()
	root := model.Single(sentence)
	level := values.ParsePath("identifiability_level")

	tree := values.Set(root, values.Empty(), level, "deidentified")
	tree = values.Set(root, tree, values.ParsePath("identifiability_level.expansion_deidentified.details"), "too short")

	tree = values.Set(root, tree, level, "identified")
	got := validation.ValidateSentence(sentence, tree, nil)
	if diff := cmp.Diff([]string{"identifiability_level.expansion_identified.location"}, got.Paths()); diff != "" {
		t.Fatalf("expected only the identified branch to validate (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Location is required"}, got.Messages("identifiability_level.expansion_identified.location")); diff != "" {
		t.Fatalf("custom message mismatch:\n%s", diff)
	}

	tree = values.Set(root, tree, level, "deidentified")
	got = validation.ValidateSentence(sentence, tree, nil)
	details := got.Messages("identifiability_level.expansion_deidentified.details")
	if diff := cmp.Diff([]string{"Must be at least 20 characters"}, details); diff != "" {
		t.Fatalf("expected restored details to be validated again (-want +got):\n%s", diff)
	}
	if got.Has("identifiability_level.expansion_identified.location") {
		t.Fatalf("inactive branch should not be validated")
	}
}

func TestValidateSentenceDeterministic(t *testing.T) {
	t.Parallel()

	sentence := identifiabilitySentence()
	root := model.Single(sentence)
	tree := values.Set(root, values.Empty(), values.ParsePath("identifiability_level"), "deidentified")

	first := validation.ValidateSentence(sentence, tree, nil)
	second := validation.ValidateSentence(sentence, tree, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("validation not deterministic:\n%s", diff)
	}
}

func TestValidateSentenceChildrenAndArrays(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{title}",
		Fields: map[string]*model.Field{
			"title": {ID: "title", Type: model.FieldTypeText},
		},
		Children: []*model.Sentence{
			{
				Template: "Sources: {sources}",
				Fields: map[string]*model.Field{
					"sources": {
						ID:    "sources",
						Type:  model.FieldTypeMultiSelect,
						Rules: []model.Rule{model.Min(1, ""), model.Max(2, "")},
						Expansions: map[string]*model.Sentence{
							"registry": {
								Template: "from {registry_name}",
								Fields: map[string]*model.Field{
									"registry_name": {ID: "registry_name", Type: model.FieldTypeText, Rules: []model.Rule{model.Required("")}},
								},
							},
						},
					},
				},
			},
		},
	}
	root := model.Single(sentence)
	tree := values.Set(root, values.Empty(), values.ParsePath("child_0.sources"), []string{"ehr", "registry", "claims"})

	got := validation.ValidateSentence(sentence, tree, nil)
	want := validation.Errors{
		"child_0.sources": {{Kind: model.RuleMax, Message: "Select at most 2 options"}},
		"child_0.sources.expansion_registry.registry_name": {
			{Kind: model.RuleRequired, Message: "This field is required"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRulesAccumulates(t *testing.T) {
	t.Parallel()

	rules := []model.Rule{
		model.Min(5, ""),
		model.Pattern(`^[0-9]+$`, "Digits only"),
		model.Custom(func(v any) bool { return !strings.Contains(v.(string), "x") }, "No x"),
	}
	got := validation.ApplyRules("ax", rules)
	want := []validation.Failure{
		{Kind: model.RuleMin, Message: "Must be at least 5 characters"},
		{Kind: model.RulePattern, Message: "Digits only"},
		{Kind: model.RuleCustom, Message: "No x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("failures mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRulesSemantics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		field *model.Field
		value any
		want  []model.RuleKind
	}{
		{name: "required nil", field: &model.Field{Rules: []model.Rule{model.Required("")}}, value: nil, want: []model.RuleKind{model.RuleRequired}},
		{name: "required blank", field: &model.Field{Rules: []model.Rule{model.Required("")}}, value: "   ", want: []model.RuleKind{model.RuleRequired}},
		{name: "required empty array", field: &model.Field{Rules: []model.Rule{model.Required("")}}, value: []any{}, want: []model.RuleKind{model.RuleRequired}},
		{name: "required false is answered", field: &model.Field{Rules: []model.Rule{model.Required("")}}, value: false},
		{name: "min skips empty", field: &model.Field{Rules: []model.Rule{model.Min(3, "")}}, value: ""},
		{name: "numeric min", field: &model.Field{Type: model.FieldTypeNumber, Rules: []model.Rule{model.Min(18, "")}}, value: float64(12), want: []model.RuleKind{model.RuleMin}},
		{name: "numeric string", field: &model.Field{Type: model.FieldTypeNumber, Rules: []model.Rule{model.Max(100, "")}}, value: "250", want: []model.RuleKind{model.RuleMax}},
		{name: "numeric string within", field: &model.Field{Type: model.FieldTypeNumber, Rules: []model.Rule{model.Min(10, "")}}, value: "12"},
		{name: "not a number", field: &model.Field{Type: model.FieldTypeNumber, Rules: []model.Rule{model.Min(10, "")}}, value: "lots", want: []model.RuleKind{model.RuleMin}},
		{name: "invalid pattern fails", field: &model.Field{Rules: []model.Rule{model.Pattern("(", "")}}, value: "x", want: []model.RuleKind{model.RulePattern}},
		{name: "unknown custom fails", field: &model.Field{Rules: []model.Rule{{Kind: model.RuleCustom, Custom: "missing"}}}, value: "x", want: []model.RuleKind{model.RuleCustom}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got []model.RuleKind
			for _, failure := range validation.ApplyField(tc.field, tc.value) {
				got = append(got, failure.Kind)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistryCustomRules(t *testing.T) {
	t.Parallel()

	registry := validation.NewRegistry()
	registry.MustRegister("irb_number", func(v any) bool {
		s, _ := v.(string)
		return strings.HasPrefix(s, "IRB-")
	})
	if err := registry.Register("", func(any) bool { return true }); err == nil {
		t.Fatalf("expected error for empty name")
	}

	validator := validation.New(registry)
	rules := []model.Rule{{Kind: model.RuleCustom, Custom: "irb_number", Message: "Use the IRB-#### format"}}
	if failures := validator.ApplyRules("IRB-2024", rules, false); len(failures) != 0 {
		t.Fatalf("expected registered predicate to pass, got %v", failures)
	}
	failures := validator.ApplyRules("2024", rules, false)
	if len(failures) != 1 || failures[0].Message != "Use the IRB-#### format" {
		t.Fatalf("unexpected failures %v", failures)
	}
	if diff := cmp.Diff([]string{"irb_number"}, registry.Names()); diff != "" {
		t.Fatalf("names mismatch:\n%s", diff)
	}
}

func TestFilterVisible(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{test_field} {another_field}",
		Fields: map[string]*model.Field{
			"test_field": {ID: "test_field", Type: model.FieldTypeSelect},
			"another_field": {
				ID:    "another_field",
				Type:  model.FieldTypeText,
				Rules: []model.Rule{model.Required("")},
				Conditions: []model.Condition{
					{SourceField: "test_field", TriggerValue: "show_field", Show: []string{"another_field"}},
				},
			},
		},
	}
	module := &model.Module{ID: "m", Sentences: []*model.Sentence{sentence}}
	root := module.Scope()

	tree := values.Empty()
	all := validation.ValidateModule(module, tree)
	if all.Count() != 1 {
		t.Fatalf("hidden fields are still validated, got %v", all)
	}
	if visible := validation.FilterVisible(all, root, tree); visible.Count() != 0 {
		t.Fatalf("expected hidden failure to be filtered, got %v", visible)
	}

	tree = values.Set(root, tree, values.ParsePath("test_field"), "show_field")
	if visible := validation.FilterVisible(validation.ValidateModule(module, tree), root, tree); !visible.Has("another_field") {
		t.Fatalf("expected visible failure to remain, got %v", visible)
	}
}

func TestFilterVisibleKeepsDottedExpansionKeys(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "Protocol {version}.",
		Fields: map[string]*model.Field{
			"version": {
				ID:      "version",
				Type:    model.FieldTypeSelect,
				Options: []model.Option{{Value: "v1.0"}, {Value: "v2"}},
				Expansions: map[string]*model.Sentence{
					"v1.0": {
						Template: "approved by {approver}",
						Fields: map[string]*model.Field{
							"approver": {ID: "approver", Type: model.FieldTypeText, Rules: []model.Rule{model.Required("")}},
						},
					},
				},
			},
		},
	}
	module := &model.Module{ID: "m", Sentences: []*model.Sentence{sentence}}
	root := module.Scope()

	tree := values.Set(root, values.Empty(), values.ParsePath("version"), "v1.0")
	all := validation.ValidateModule(module, tree)
	key := values.Path{values.Field("version"), values.Expansion("v1.0"), values.Field("approver")}.String()
	if !all.Has(key) {
		t.Fatalf("expected failure under %q, got %v", key, all.Paths())
	}
	if visible := validation.FilterVisible(all, root, tree); !visible.Has(key) {
		t.Fatalf("live failure under a dotted expansion key was dropped: %v", visible.Paths())
	}

	tree = values.Set(root, tree, values.ParsePath("version"), "v2")
	if visible := validation.FilterVisible(validation.ValidateModule(module, tree), root, tree); visible.Count() != 0 {
		t.Fatalf("expected dormant branch to be filtered, got %v", visible.Paths())
	}
}

func TestErrorsHelpers(t *testing.T) {
	t.Parallel()

	a := validation.Errors{"x": {{Kind: model.RuleRequired, Message: "one"}}}
	b := validation.Errors{"x": {{Kind: model.RuleMin, Message: "two"}}, "y": {{Kind: model.RuleMax, Message: "three"}}}
	merged := a.Merge(b)
	if merged.Count() != 3 || len(a["x"]) != 1 {
		t.Fatalf("merge should not modify inputs: %v / %v", merged, a)
	}
	if diff := cmp.Diff(map[string][]string{"x": {"one", "two"}, "y": {"three"}}, merged.Strings()); diff != "" {
		t.Fatalf("strings mismatch:\n%s", diff)
	}
}
