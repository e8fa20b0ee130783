package terminal_test

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/renderers/terminal"
	"github.com/goliatone/go-narrative/pkg/testsupport"
)

func TestRendererPlainProfile(t *testing.T) {
	t.Parallel()

	r := terminal.New(terminal.WithProfile(termenv.Ascii), terminal.WithWordWrap(0))
	out, err := r.Render(testsupport.Context(), testsupport.ProtocolModule(), testsupport.FilledTree(t), render.Options{
		Mode:          narrative.ModePreview,
		IncludeErrors: true,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc := string(out)
	for _, want := range []string{"Protocol", "pilot", "safe harbor", "1 problem(s) in 1 field", "✗ Details: This field is required"} {
		if !strings.Contains(doc, want) {
			t.Errorf("output missing %q\n%s", want, doc)
		}
	}
}

func TestRendererMetadata(t *testing.T) {
	t.Parallel()

	r := terminal.New()
	if r.Name() != terminal.Name || !strings.HasPrefix(r.ContentType(), "text/plain") {
		t.Fatalf("unexpected metadata %q %q", r.Name(), r.ContentType())
	}
	if _, err := r.Render(testsupport.Context(), nil, testsupport.FilledTree(t), render.Options{}); err == nil {
		t.Fatalf("expected error for nil module")
	}
}
