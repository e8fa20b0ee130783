package values_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

func protocolScope() model.Scope {
	sentence := &model.Sentence{
		ID:       "identifiability",
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
							"method":  {ID: "method", Type: model.FieldTypeText},
							"details": {ID: "details", Type: model.FieldTypeTextarea},
						},
					},
					"identified": {
						Template: "stored in {location}",
						Fields: map[string]*model.Field{
							"location": {ID: "location", Type: model.FieldTypeText},
						},
					},
				},
			},
			"title": {ID: "title", Type: model.FieldTypeText},
		},
		Children: []*model.Sentence{
			{
				Template: "Sources include {sources}.",
				Fields: map[string]*model.Field{
					"sources": {ID: "sources", Type: model.FieldTypeMultiSelect},
				},
			},
		},
	}
	return model.Single(sentence)
}

func TestPathRoundTrip(t *testing.T) {
	t.Parallel()

	root := protocolScope()
	cases := []struct {
		path  string
		value any
	}{
		{path: "title", value: "Protocol"},
		{path: "identifiability_level", value: "deidentified"},
		{path: "identifiability_level.expansion_deidentified.method", value: "safe harbor"},
		{path: "identifiability_level.expansion_identified.location", value: "vault"},
		{path: "child_0.sources", value: []any{"ehr", "registry"}},
		{path: "title", value: float64(3)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			path := values.ParsePath(tc.path)
			if path.String() != tc.path {
				t.Fatalf("path string = %q, want %q", path.String(), tc.path)
			}
			tree := values.Set(root, values.Empty(), path, tc.value)
			got, ok := values.Get(root, tree, path)
			if !ok {
				t.Fatalf("Get(%q) reported missing", tc.path)
			}
			if diff := cmp.Diff(tc.value, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	root := protocolScope()
	base := values.Set(root, values.Empty(), values.ParsePath("title"), "Original")
	base = values.Set(root, base, values.ParsePath("child_0.sources"), []any{"ehr"})
	before := base.ToMap()

	next := values.Set(root, base, values.ParsePath("title"), "Changed")
	next = values.Set(root, next, values.ParsePath("identifiability_level.expansion_identified.location"), "vault")

	if diff := cmp.Diff(before, base.ToMap()); diff != "" {
		t.Fatalf("input tree mutated (-before +after):\n%s", diff)
	}
	got, _ := values.Get(root, next, values.ParsePath("child_0.sources"))
	if diff := cmp.Diff([]any{"ehr"}, got); diff != "" {
		t.Fatalf("sibling changed (-want +got):\n%s", diff)
	}
}

func TestExpansionDataSurvivesSwitching(t *testing.T) {
	t.Parallel()

	root := protocolScope()
	level := values.ParsePath("identifiability_level")
	method := values.ParsePath("identifiability_level.expansion_deidentified.method")

	tree := values.Set(root, values.Empty(), level, "deidentified")
	tree = values.Set(root, tree, method, "safe harbor")
	tree = values.Set(root, tree, level, "identified")
	tree = values.Set(root, tree, level, "deidentified")

	got, ok := values.Get(root, tree, method)
	if !ok || got != "safe harbor" {
		t.Fatalf("expected expansion value to be restored, got %v (%v)", got, ok)
	}
	current, _ := values.Get(root, tree, level)
	if current != "deidentified" {
		t.Fatalf("expected current value deidentified, got %v", current)
	}
}

func TestUnresolvedPathsAreNoops(t *testing.T) {
	t.Parallel()

	root := protocolScope()
	tree := values.Set(root, values.Empty(), values.ParsePath("title"), "Protocol")
	for _, raw := range []string{
		"missing",
		"identifiability_level.expansion_unknown.method",
		"identifiability_level.expansion_deidentified",
		"child_3.sources",
		"title.method",
	} {
		next := values.Set(root, tree, values.ParsePath(raw), "x")
		if diff := cmp.Diff(tree.ToMap(), next.ToMap()); diff != "" {
			t.Fatalf("Set(%q) changed the tree:\n%s", raw, diff)
		}
		if got, ok := values.Get(root, next, values.ParsePath(raw)); ok || got != nil {
			t.Fatalf("Get(%q) = (%v, %v), want (nil, false)", raw, got, ok)
		}
	}
}

func TestMapRoundTrip(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"title": "Protocol",
		"identifiability_level": map[string]any{
			"current": "identified",
			"expansion_deidentified": map[string]any{
				"method": "safe harbor",
			},
		},
		"child_0": map[string]any{
			"sources": []any{"ehr"},
		},
	}
	tree, err := values.FromMap(raw)
	if err != nil {
		t.Fatalf("FromMap returned error: %v", err)
	}
	if diff := cmp.Diff(raw, tree.ToMap()); diff != "" {
		t.Fatalf("ToMap mismatch (-want +got):\n%s", diff)
	}

	flat := values.Flatten(tree)
	want := map[string]any{
		"title":                 "Protocol",
		"identifiability_level": "identified",
		"identifiability_level.expansion_deidentified.method": "safe harbor",
		"child_0.sources": []any{"ehr"},
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Fatalf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMapRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]any{
		"top-level expansion": {"expansion_x": map[string]any{}},
		"scalar child":        {"child_0": "x"},
		"unknown wrapper key": {"level": map[string]any{"value": "x"}},
		"nested array":        {"level": []any{map[string]any{"a": 1}}},
	}
	for name, raw := range cases {
		if _, err := values.FromMap(raw); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestKeyAndSelects(t *testing.T) {
	t.Parallel()

	if values.Key(float64(3)) != "3" || values.Key(3) != "3" || values.Key(true) != "true" {
		t.Fatalf("unexpected canonical keys")
	}
	if !values.Equal(3, "3") || values.Equal(nil, "") || !values.Equal(nil, nil) {
		t.Fatalf("unexpected equality results")
	}
	if !values.Selects([]any{"a", "b"}, "b") || values.Selects("", "") {
		t.Fatalf("unexpected selection results")
	}
	if diff := cmp.Diff([]string{"a", "b"}, values.ActiveKeys([]any{"a", "b", "a", ""})); diff != "" {
		t.Fatalf("ActiveKeys mismatch:\n%s", diff)
	}
}

func TestPathHelpers(t *testing.T) {
	t.Parallel()

	path := values.PathOf("level", "expansion_v1.2", "method")
	if len(path) != 3 || path[1].Name != "v1.2" {
		t.Fatalf("PathOf should not split dotted keys: %#v", path)
	}
	parent := path.Parent()
	extended := parent.Append(values.Field("other"))
	if !path.HasPrefix(parent) || extended.Equal(path) {
		t.Fatalf("unexpected prefix/equality behaviour")
	}
	if last, _ := path.Last(); last.Name != "method" {
		t.Fatalf("unexpected last segment %v", last)
	}
	if got := path.String(); got != `level.expansion_v1\.2.method` {
		t.Fatalf("dotted key not escaped: %q", got)
	}
	if !values.ParsePath(path.String()).Equal(path) {
		t.Fatalf("ParsePath should invert String for dotted keys")
	}
	odd := values.PathOf(`expansion_a\b`)
	if !values.ParsePath(odd.String()).Equal(odd) {
		t.Fatalf("backslashes should round trip, got %q", odd.String())
	}
	if got := values.ParsePath(" a . child_2 .. b ").String(); got != "a.child_2.b" {
		t.Fatalf("ParsePath normalisation = %q", got)
	}
}
