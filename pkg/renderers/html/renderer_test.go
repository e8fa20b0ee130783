package html_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/renderers/html"
	"github.com/goliatone/go-narrative/pkg/testsupport"
	"github.com/goliatone/go-narrative/pkg/values"
)

func TestRendererMarkup(t *testing.T) {
	t.Parallel()

	r, err := html.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	module := testsupport.ProtocolModule()
	tree := testsupport.FilledTree(t)
	tree = values.Set(module.Scope(), tree, values.ParsePath("test_field"), `<script>alert("x")</script>pilot`)

	out, err := r.Render(testsupport.Context(), module, tree, render.Options{
		Mode:          narrative.ModeInteractive,
		IncludeErrors: true,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc := string(out)

	for _, want := range []string{
		`<article class="narrative" data-module="protocol" data-mode="interactive">`,
		`<h1 class="narrative-title">Protocol</h1>`,
		`<h2>Data</h2>`,
		`data-path="identifiability_level.expansion_deidentified.details"`,
		`class="narrative-placeholder has-error"`,
		`aria-invalid="true" title="This field is required"`,
		`data-editable="true"`,
		`<span class="narrative-list" data-path="data_sources">`,
		`<span class="narrative-item" data-key="ehr"><strong>health records</strong> held by `,
		`<li>Details: This field is required</li>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("output missing %q\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "<script>") {
		t.Fatalf("user values must be sanitised:\n%s", doc)
	}
}

func TestRendererCustomTemplate(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"plain.html": {Data: []byte(`{% for p in paragraphs %}[{{ p.ID }}]{% for node in p.Nodes %}{{ node|narrative_node:errors }}{% endfor %}{% endfor %}`)},
	}
	r, err := html.New(html.WithTemplatesFS(fsys), html.WithTemplateName("plain.html"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := r.Render(testsupport.Context(), testsupport.ProtocolModule(), values.Empty(), render.Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(out), `[protocol]This is a <span class="narrative-placeholder" data-path="test_field" data-field="test_field">[study design]</span> study.[data]`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRendererMissingTemplate(t *testing.T) {
	t.Parallel()

	if _, err := html.New(html.WithTemplateName("missing.html")); err == nil {
		t.Fatalf("expected error for missing template")
	}
}
