// Package testsupport holds fixtures and golden-file helpers shared by the
// package tests.
package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-narrative/pkg/lint"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/schema"
	"github.com/goliatone/go-narrative/pkg/values"
)

// ProtocolModule returns a study protocol module exercising conditions,
// single and multi-select expansions, children and gated sections:
//
//	protocol: "This is a {test_field} study{another_field}."
//	  another_field is shown only while test_field == "show_field"
//	data submodule: identifiability_level (deidentified -> method, details)
//	  and data_sources (multiselect with per-source expansions)
//
// Each call returns a fresh value so tests may mutate it.
func ProtocolModule() *model.Module {
	return &model.Module{
		ID:    "protocol",
		Title: "Protocol",
		Sentences: []*model.Sentence{{
			ID:       "design",
			Template: "This is a {test_field} study{another_field}.",
			Fields: map[string]*model.Field{
				"test_field": {
					ID:          "test_field",
					Type:        model.FieldTypeText,
					Label:       "Test field",
					Placeholder: "study design",
					Rules:       []model.Rule{model.Required("")},
				},
				"another_field": {
					ID:          "another_field",
					Type:        model.FieldTypeText,
					Label:       "Another field",
					Placeholder: "detail",
					Conditions: []model.Condition{
						{SourceField: "test_field", TriggerValue: "show_field", Show: []string{"another_field"}},
					},
				},
			},
		}},
		Submodules: []model.Submodule{{
			ID:    "data",
			Title: "Data",
			Sentences: []*model.Sentence{
				{
					ID:       "identifiability",
					Template: "Data will be {identifiability_level}.",
					Fields: map[string]*model.Field{
						"identifiability_level": {
							ID:    "identifiability_level",
							Type:  model.FieldTypeSelect,
							Label: "Identifiability level",
							Options: []model.Option{
								{Value: "identified"},
								{Value: "deidentified", Label: "de-identified"},
							},
							Expansions: map[string]*model.Sentence{
								"deidentified": {
									Template: "using {method} with {details}",
									Fields: map[string]*model.Field{
										"method": {
											ID:    "method",
											Type:  model.FieldTypeText,
											Label: "Method",
											Rules: []model.Rule{model.Required("")},
										},
										"details": {
											ID:    "details",
											Type:  model.FieldTypeTextarea,
											Label: "Details",
											Rules: []model.Rule{model.Required(""), model.Min(20, "")},
										},
									},
								},
							},
						},
					},
				},
				{
					ID:       "sources",
					Template: "Data come from {data_sources}.",
					Fields: map[string]*model.Field{
						"data_sources": {
							ID:    "data_sources",
							Type:  model.FieldTypeMultiSelect,
							Label: "Data sources",
							Options: []model.Option{
								{Value: "ehr", Label: "health records"},
								{Value: "registry", Label: "a registry"},
								{Value: "surveys", Label: "surveys"},
							},
							Rules: []model.Rule{model.Max(2, "")},
							Expansions: map[string]*model.Sentence{
								"ehr": {
									Template: "held by {custodian}",
									Fields: map[string]*model.Field{
										"custodian": {ID: "custodian", Type: model.FieldTypeText, Label: "Custodian"},
									},
								},
								"registry": {
									Template: "named {registry_name}",
									Fields: map[string]*model.Field{
										"registry_name": {ID: "registry_name", Type: model.FieldTypeText, Label: "Registry name"},
									},
								},
							},
						},
					},
					Sections: []model.Section{{
						ID:       "linkage",
						Title:    "Linkage",
						When:     model.Gate{Expr: "data_sources contains 'ehr' and data_sources contains 'registry'"},
						Template: "Records will be linked across sources.",
					}},
				},
			},
		}},
	}
}

// FilledTree returns values for ProtocolModule with the design answered,
// de-identification chosen (details missing) and two data sources selected.
func FilledTree(t testing.TB) values.Tree {
	t.Helper()

	return MustTree(t, map[string]any{
		"test_field": "pilot",
		"identifiability_level": map[string]any{
			values.CurrentKey:        "deidentified",
			"expansion_deidentified": map[string]any{"method": "safe harbor"},
		},
		"data_sources": map[string]any{
			values.CurrentKey: []any{"ehr", "registry"},
			"expansion_ehr":   map[string]any{"custodian": "the hospital"},
		},
	})
}

// MustTree builds a value tree from a nested map, failing the test on
// malformed input.
func MustTree(t testing.TB, raw map[string]any) values.Tree {
	t.Helper()

	tree, err := values.FromMap(raw)
	if err != nil {
		t.Fatalf("build value tree: %v", err)
	}
	return tree
}

// MustLint fails the test when module has lint issues.
func MustLint(t testing.TB, module *model.Module) {
	t.Helper()

	for _, issue := range lint.Module(module) {
		t.Errorf("lint: %s", issue)
	}
}

// MustLoadModule loads a schema file or directory and returns the module
// registered under id.
func MustLoadModule(t testing.TB, path, id string) *model.Module {
	t.Helper()

	store, err := schema.Load(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	module, ok := store.Module(id)
	if !ok {
		t.Fatalf("module %q not found in %s (have %v)", id, path, store.IDs())
	}
	return module
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t testing.TB, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	WriteMaybeGolden(t, path, payload)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t testing.TB, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGolden compares got with the golden file at path, rewriting the file
// instead when UPDATE_GOLDENS is set.
func AssertGolden(t testing.TB, path string, got []byte) {
	t.Helper()
	if WriteMaybeGolden(t, path, got) {
		return
	}
	want := MustReadGolden(t, path)
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureOutput runs fn with a buffer and returns what it wrote.
func CaptureOutput(t testing.TB, fn func(io.Writer) error) string {
	t.Helper()

	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		t.Fatalf("capture output: %v", err)
	}
	return buf.String()
}
