package visibility_test

import (
	"testing"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

func conditionalSentence() *model.Sentence {
	return &model.Sentence{
		Template: "This is a {test_field} with {another_field}.",
		Fields: map[string]*model.Field{
			"test_field": {ID: "test_field", Type: model.FieldTypeSelect, Options: []model.Option{
				{Value: "show_field", Label: "Show"},
				{Value: "other", Label: "Other"},
			}},
			"another_field": {
				ID:   "another_field",
				Type: model.FieldTypeText,
				Conditions: []model.Condition{
					{SourceField: "test_field", TriggerValue: "show_field", Show: []string{"another_field"}},
				},
			},
		},
	}
}

func TestIsVisibleConditionalField(t *testing.T) {
	t.Parallel()

	root := model.Single(conditionalSentence())
	target := values.ParsePath("another_field")

	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "unset", value: nil, want: false},
		{name: "other value", value: "other", want: false},
		{name: "trigger", value: "show_field", want: true},
		{name: "empty string", value: "", want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tree := values.Empty()
			if tc.value != nil {
				tree = values.Set(root, tree, values.ParsePath("test_field"), tc.value)
			}
			if got := visibility.IsVisible(root, tree, target); got != tc.want {
				t.Fatalf("IsVisible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsVisibleDefaultOpen(t *testing.T) {
	t.Parallel()

	root := model.Single(conditionalSentence())
	trees := []values.Tree{
		values.Empty(),
		values.Set(root, values.Empty(), values.ParsePath("test_field"), "other"),
		values.Set(root, values.Empty(), values.ParsePath("another_field"), "text"),
	}
	for i, tree := range trees {
		if !visibility.IsVisible(root, tree, values.ParsePath("test_field")) {
			t.Fatalf("tree %d: field without conditions should be visible", i)
		}
	}
}

func TestIsVisibleHideWins(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{mode} {flag} {target}",
		Fields: map[string]*model.Field{
			"mode": {ID: "mode", Type: model.FieldTypeText},
			"flag": {ID: "flag", Type: model.FieldTypeBoolean},
			"target": {ID: "target", Type: model.FieldTypeText, Conditions: []model.Condition{
				{SourceField: "mode", TriggerValue: "on", Show: []string{"target"}},
				{SourceField: "flag", TriggerValue: true, Hide: []string{"target"}},
			}},
		},
	}
	root := model.Single(sentence)
	target := values.ParsePath("target")
	if visibility.IsVisible(root, values.Empty(), target) {
		t.Fatalf("expected target hidden until its show condition holds")
	}
	tree := values.Set(root, values.Empty(), values.ParsePath("mode"), "on")
	if !visibility.IsVisible(root, tree, target) {
		t.Fatalf("expected show condition to reveal target")
	}
	tree = values.Set(root, tree, values.ParsePath("flag"), true)
	if visibility.IsVisible(root, tree, target) {
		t.Fatalf("expected hide condition to win over show")
	}
}

func TestIsVisibleIgnoresOtherFieldsConditions(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{mode} {flag} {target}",
		Fields: map[string]*model.Field{
			"mode": {ID: "mode", Type: model.FieldTypeText, Conditions: []model.Condition{
				{SourceField: "mode", TriggerValue: "on", Show: []string{"target"}},
			}},
			"flag": {ID: "flag", Type: model.FieldTypeBoolean, Conditions: []model.Condition{
				{SourceField: "flag", TriggerValue: true, Hide: []string{"target"}},
			}},
			"target": {ID: "target", Type: model.FieldTypeText},
		},
	}
	root := model.Single(sentence)
	target := values.ParsePath("target")

	trees := []values.Tree{
		values.Empty(),
		values.Set(root, values.Empty(), values.ParsePath("mode"), "off"),
		values.Set(root, values.Empty(), values.ParsePath("flag"), true),
	}
	for i, tree := range trees {
		if !visibility.IsVisible(root, tree, target) {
			t.Fatalf("tree %d: field without conditions should be visible", i)
		}
	}
}

func TestIsVisibleUntargetedConditionsDefaultOpen(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{mode} {own}",
		Fields: map[string]*model.Field{
			"mode": {ID: "mode", Type: model.FieldTypeText},
			"own": {ID: "own", Type: model.FieldTypeText, Conditions: []model.Condition{
				{SourceField: "mode", TriggerValue: "on"},
				{SourceField: "mode", TriggerValue: "off", Hide: []string{"mode"}},
			}},
		},
	}
	root := model.Single(sentence)
	own := values.ParsePath("own")

	for _, mode := range []any{nil, "on", "off"} {
		tree := values.Empty()
		if mode != nil {
			tree = values.Set(root, tree, values.ParsePath("mode"), mode)
		}
		if !visibility.IsVisible(root, tree, own) {
			t.Fatalf("mode=%v: conditions naming no target should leave the field visible", mode)
		}
	}
}

func TestIsVisibleArrayTrigger(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{sources} {registry_name}",
		Fields: map[string]*model.Field{
			"sources": {ID: "sources", Type: model.FieldTypeMultiSelect},
			"registry_name": {ID: "registry_name", Type: model.FieldTypeText, Conditions: []model.Condition{
				{SourceField: "sources", TriggerValue: []any{"registry", "claims"}, Show: []string{"registry_name"}},
			}},
		},
	}
	root := model.Single(sentence)
	target := values.ParsePath("registry_name")

	tree := values.Set(root, values.Empty(), values.ParsePath("sources"), []string{"ehr"})
	if visibility.IsVisible(root, tree, target) {
		t.Fatalf("expected hidden without intersection")
	}
	tree = values.Set(root, tree, values.ParsePath("sources"), []string{"ehr", "claims"})
	if !visibility.IsVisible(root, tree, target) {
		t.Fatalf("expected visible on intersection")
	}
}

func TestIsVisibleUnresolvedPath(t *testing.T) {
	t.Parallel()

	root := model.Single(conditionalSentence())
	for _, raw := range []string{"missing", "test_field.expansion_x", "child_0.test_field", ""} {
		if visibility.IsVisible(root, values.Empty(), values.ParsePath(raw)) {
			t.Fatalf("expected %q to be invisible", raw)
		}
	}
}

func TestIsVisibleInsideExpansion(t *testing.T) {
	t.Parallel()

	sentence := &model.Sentence{
		Template: "{level}",
		Fields: map[string]*model.Field{
			"level": {ID: "level", Type: model.FieldTypeSelect, Expansions: map[string]*model.Sentence{
				"deidentified": {
					Template: "using {method} {other}",
					Fields: map[string]*model.Field{
						"method": {ID: "method", Type: model.FieldTypeSelect},
						"other": {ID: "other", Type: model.FieldTypeText, Conditions: []model.Condition{
							{SourceField: "method", TriggerValue: "other", Show: []string{"other"}},
						}},
					},
				},
			}},
		},
	}
	root := model.Single(sentence)
	other := values.ParsePath("level.expansion_deidentified.other")
	method := values.ParsePath("level.expansion_deidentified.method")

	if visibility.IsVisible(root, values.Empty(), other) {
		t.Fatalf("expected other hidden until method selects it")
	}
	tree := values.Set(root, values.Empty(), method, "other")
	if !visibility.IsVisible(root, tree, other) {
		t.Fatalf("expected sibling source to resolve inside the expansion")
	}
	if visibility.IsLive(root, tree, other) {
		t.Fatalf("expected branch to be dormant until level selects it")
	}
	tree = values.Set(root, tree, values.ParsePath("level"), "deidentified")
	if !visibility.IsLive(root, tree, other) {
		t.Fatalf("expected branch to be live once selected")
	}
}
