package schema_test

import (
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-narrative/pkg/lint"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/schema"
)

func TestLoadFSFixtures(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(os.DirFS("testdata"))
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"consent", "protocol"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if got := store.Source("protocol"); got != "protocol.yaml" {
		t.Fatalf("Source = %q", got)
	}
	if diff := cmp.Diff([]string{"known_consent"}, store.CustomRules()); diff != "" {
		t.Fatalf("custom rules mismatch:\n%s", diff)
	}
	for _, issue := range lint.Modules(store.Modules()) {
		t.Errorf("fixture lint issue: %s", issue)
	}
}

func TestParseShorthands(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(os.DirFS("testdata"))
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	protocol, ok := store.Module("protocol")
	if !ok {
		t.Fatalf("protocol module missing")
	}

	design := protocol.Sentences[0].Fields["study_design"]
	wantOptions := []model.Option{
		{Value: "observational"},
		{Value: "interventional", Label: "interventional trial"},
	}
	if diff := cmp.Diff(wantOptions, design.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if design.Label != "Study design" {
		t.Fatalf("default label = %q", design.Label)
	}

	detail := protocol.Sentences[0].Fields["design_detail"]
	wantCond := []model.Condition{{
		SourceField:  "study_design",
		TriggerValue: "interventional",
		Show:         []string{"design_detail"},
	}}
	if diff := cmp.Diff(wantCond, detail.Conditions); diff != "" {
		t.Fatalf("conditions mismatch (-want +got):\n%s", diff)
	}
	if detail.Rules[0].Kind != model.RuleRequired || detail.Rules[0].Message != "Describe the intervention" {
		t.Fatalf("unexpected rule %+v", detail.Rules[0])
	}

	level := protocol.Submodules[0].Sentences[0].Fields["identifiability_level"]
	expansion, ok := level.Expansion("deidentified")
	if !ok {
		t.Fatalf("expansion missing")
	}
	method := expansion.Fields["method"]
	if method.Type != model.FieldTypeText || method.ID != "method" {
		t.Fatalf("method defaults not applied: %+v", method)
	}
	details := expansion.Fields["details"]
	wantRules := []model.Rule{model.Required(""), model.Min(20, "")}
	if diff := cmp.Diff(wantRules, details.Rules, cmp.Comparer(func(a, b func(any) bool) bool { return a == nil && b == nil })); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}

	block := protocol.Submodules[0].Sentences[1].Blocks[0]
	if block.When.Operator != model.OperatorIn {
		t.Fatalf("operator = %q", block.When.Operator)
	}
	if diff := cmp.Diff([]any{18, 19, 20}, block.When.Value); diff != "" {
		t.Fatalf("gate value mismatch:\n%s", diff)
	}

	consent, _ := store.Module("consent")
	verbal, ok := consent.Sentences[0].Fields["consent_type"].Expansion("verbal")
	if !ok || verbal.Template != "with a witness present" {
		t.Fatalf("sentence shorthand not decoded: %+v", verbal)
	}
	if got := consent.Sentences[0].Sections[0].When.Expr; got != "consent_type contains 'verbal'" {
		t.Fatalf("expr = %q", got)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want string
	}{
		{name: "empty", doc: "  ", want: "is empty"},
		{name: "not an object", doc: "[1, 2]", want: "must be an object"},
		{name: "missing id", doc: "title: x", want: "has no id"},
		{name: "unknown type", doc: "id: m\nsentences:\n  - template: '{a}'\n    fields:\n      a: {type: color}", want: `unknown field type "color"`},
		{name: "unknown rule", doc: "id: m\nsentences:\n  - fields:\n      a: {rules: [{kind: between}]}", want: `unknown rule kind "between"`},
		{name: "min without value", doc: "id: m\nsentences:\n  - fields:\n      a: {rules: [{kind: min}]}", want: "min rule requires a value"},
		{name: "unknown operator", doc: "id: m\nsentences:\n  - blocks:\n      - when: {field: a, operator: like}", want: `unknown operator "like"`},
		{name: "unknown key", doc: "id: m\ncolour: red", want: "colour"},
		{name: "submodule id", doc: "id: m\nsubmodules:\n  - title: x", want: "submodule has no id"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := schema.Parse([]byte(tc.doc), "inline.yaml")
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestLoadFSDuplicateModules(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.json":    {Data: []byte(`{"id": "dup"}`)},
		"b/c.yml":   {Data: []byte("id: dup\n")},
		"notes.txt": {Data: []byte("ignored")},
	}
	_, err := schema.LoadFS(fsys)
	if err == nil || !strings.Contains(err.Error(), `duplicate module "dup"`) {
		t.Fatalf("expected duplicate module error, got %v", err)
	}
}

func TestLoadFSNilAndDecorators(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(nil)
	if err != nil || !store.Empty() {
		t.Fatalf("nil fs should yield empty store, got %v %v", store, err)
	}

	var seen []string
	fsys := fstest.MapFS{"one.yaml": {Data: []byte("id: one\nsentences:\n  - template: '{name}'\n    fields:\n      name: {}\n")}}
	store, err = schema.LoadFS(fsys, schema.WithDecorators(model.DecoratorFunc(func(m *model.Module) error {
		seen = append(seen, m.ID+":"+m.Sentences[0].Fields["name"].Label)
		return nil
	})))
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"one:Name"}, seen); diff != "" {
		t.Fatalf("decorators should run after default labels:\n%s", diff)
	}
	if store.Empty() {
		t.Fatalf("store should not be empty")
	}
}

func TestDocumentWrapper(t *testing.T) {
	t.Parallel()

	if _, err := schema.NewDocument(nil, []byte("id: x")); err == nil {
		t.Fatalf("expected error for nil source")
	}
	doc := schema.MustNewDocument(schema.SourceFromBytes(""), []byte("id: x"))
	if doc.Location() != "<inline>" || doc.Source().Kind() != schema.SourceKindBytes {
		t.Fatalf("unexpected source %q", doc.Location())
	}
	modules, err := doc.Modules()
	if err != nil || len(modules) != 1 || modules[0].ID != "x" {
		t.Fatalf("Modules = %v, %v", modules, err)
	}
}
