package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-narrative/pkg/form"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

func protocolModule() *model.Module {
	return &model.Module{
		ID:    "protocol",
		Title: "Protocol",
		Sentences: []*model.Sentence{{
			Template: "This is a {test_field} study{another_field}.",
			Fields: map[string]*model.Field{
				"test_field": {ID: "test_field", Type: model.FieldTypeText, Rules: []model.Rule{model.Required("")}},
				"another_field": {
					ID:          "another_field",
					Type:        model.FieldTypeText,
					Placeholder: "detail",
					Rules:       []model.Rule{model.Required("Detail is required")},
					Conditions: []model.Condition{
						{SourceField: "test_field", TriggerValue: "show_field", Show: []string{"another_field"}},
					},
				},
			},
		}},
		Submodules: []model.Submodule{{
			ID:    "data",
			Title: "Data",
			Sentences: []*model.Sentence{{
				Template: "Data will be {identifiability_level}.",
				Fields: map[string]*model.Field{
					"identifiability_level": {
						ID:      "identifiability_level",
						Type:    model.FieldTypeSelect,
						Options: []model.Option{{Value: "identified"}, {Value: "deidentified", Label: "de-identified"}},
						Expansions: map[string]*model.Sentence{
							"deidentified": {
								Template: "using {method} with {details}",
								Fields: map[string]*model.Field{
									"method":  {ID: "method", Type: model.FieldTypeText, Rules: []model.Rule{model.Required("")}},
									"details": {ID: "details", Type: model.FieldTypeText, Rules: []model.Rule{model.Required(""), model.Min(20, "")}},
								},
							},
						},
					},
				},
			}},
		}},
	}
}

func TestControllerIdentifiabilityFlow(t *testing.T) {
	t.Parallel()

	c := form.New(protocolModule())
	if c.ValidateForm() {
		t.Fatalf("expected required test_field to fail initially")
	}
	if !c.Update("test_field", "pilot") {
		t.Fatalf("expected update to resolve")
	}

	c.Update("identifiability_level", "deidentified")
	want := []string{
		"another_field",
		"identifiability_level.expansion_deidentified.details",
		"identifiability_level.expansion_deidentified.method",
	}
	if diff := cmp.Diff(want, c.Errors().Paths()); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}

	c.Update("identifiability_level.expansion_deidentified.method", "safe harbor")
	c.Update("identifiability_level.expansion_deidentified.details", "all direct identifiers removed")
	if diff := cmp.Diff([]string{"another_field"}, c.Errors().Paths()); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerVisibleErrorsOnly(t *testing.T) {
	t.Parallel()

	c := form.New(protocolModule(), form.WithVisibleErrorsOnly(true))
	c.Update("test_field", "pilot")
	if !c.ValidateForm() {
		t.Fatalf("hidden another_field should not block the form: %v", c.Errors())
	}
	c.Update("test_field", "show_field")
	if c.ValidateForm() {
		t.Fatalf("visible another_field should block the form")
	}
	if diff := cmp.Diff([]string{"Detail is required"}, c.FieldErrors(values.ParsePath("another_field"))); diff != "" {
		t.Fatalf("field errors mismatch:\n%s", diff)
	}
}

func TestControllerIsFieldVisible(t *testing.T) {
	t.Parallel()

	c := form.New(protocolModule())
	target := values.ParsePath("another_field")
	if c.IsFieldVisible(target) {
		t.Fatalf("expected hidden while test_field is unset")
	}
	c.Update("test_field", "other")
	if c.IsFieldVisible(target) {
		t.Fatalf("expected hidden for other values")
	}
	c.Update("test_field", "show_field")
	if !c.IsFieldVisible(target) {
		t.Fatalf("expected visible when test_field is show_field")
	}
}

func TestControllerListenersAndUnresolvedUpdates(t *testing.T) {
	t.Parallel()

	var snapshots []form.Snapshot
	c := form.New(protocolModule(), form.WithListener(func(s form.Snapshot) {
		snapshots = append(snapshots, s)
	}))

	if c.Update("missing.path", "x") {
		t.Fatalf("expected unresolved update to be rejected")
	}
	if len(snapshots) != 0 {
		t.Fatalf("listeners should not fire for rejected updates")
	}

	before := c.Values()
	c.Update("test_field", "show_field")
	if len(snapshots) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(snapshots))
	}
	snap := snapshots[0]
	if !snap.IsFieldVisible(values.ParsePath("another_field")) {
		t.Fatalf("snapshot visibility should reflect the update")
	}
	if _, ok := values.Lookup(before, values.ParsePath("test_field")); ok {
		t.Fatalf("earlier trees must not observe later updates")
	}

	snap.Errors["injected"] = nil
	if c.Errors().Has("injected") {
		t.Fatalf("snapshot errors must be a copy")
	}
}

func TestControllerResetAndInitialValues(t *testing.T) {
	t.Parallel()

	initial, err := values.FromMap(map[string]any{"test_field": "seeded"})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	c := form.New(protocolModule(), form.WithInitialValues(initial))
	if c.Errors().Has("test_field") {
		t.Fatalf("seeded value should satisfy required")
	}
	c.Update("test_field", "")
	if !c.Errors().Has("test_field") {
		t.Fatalf("cleared value should fail required")
	}
	c.Reset()
	if got, _ := c.Value(values.ParsePath("test_field")); got != "seeded" {
		t.Fatalf("Reset should restore initial values, got %v", got)
	}
}

func TestControllerCheckAndRegistry(t *testing.T) {
	t.Parallel()

	module := protocolModule()
	module.Sentences[0].Fields["test_field"].Rules = []model.Rule{{Kind: model.RuleCustom, Custom: "no_spaces"}}

	registry := validation.NewRegistry()
	registry.MustRegister("no_spaces", func(v any) bool {
		s, _ := v.(string)
		for _, r := range s {
			if r == ' ' {
				return false
			}
		}
		return true
	})
	c := form.New(module, form.WithRegistry(registry))

	if failures := c.Check(values.ParsePath("test_field"), "two words"); len(failures) != 1 {
		t.Fatalf("expected custom failure, got %v", failures)
	}
	if failures := c.Check(values.ParsePath("test_field"), "oneword"); len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	if failures := c.Check(values.ParsePath("nope"), "x"); failures != nil {
		t.Fatalf("unresolved paths have no rules, got %v", failures)
	}
}

func TestControllerRender(t *testing.T) {
	t.Parallel()

	c := form.New(protocolModule())
	c.Update("test_field", "pilot")
	paragraphs := c.Render(narrative.ModePreview)
	got := narrative.Document(paragraphs)
	want := "Protocol\nThis is a pilot study.\n\nData\nData will be ____."
	if got != want {
		t.Fatalf("Document = %q, want %q", got, want)
	}
}

func TestControllerLogsUpdates(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	c := form.New(protocolModule(), form.WithLogger(zap.New(core)), form.WithSessionID("session-1"))
	c.Update("test_field", "pilot")

	entries := logs.FilterMessage("value updated").All()
	if len(entries) != 1 {
		t.Fatalf("expected one update entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["session"] != "session-1" || fields["path"] != "test_field" {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if c.ID() != "session-1" {
		t.Fatalf("ID = %q", c.ID())
	}
}
