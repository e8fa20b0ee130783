// Package text renders module narratives as plain text.
package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Name is the registry name of the renderer.
const Name = "text"

// Renderer produces titled paragraphs separated by blank lines, followed by
// a problem list when errors are included.
type Renderer struct{}

// New constructs the plain text renderer.
func New() *Renderer { return &Renderer{} }

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/plain; charset=utf-8" }

func (r *Renderer) Render(_ context.Context, module *model.Module, tree values.Tree, opts render.Options) ([]byte, error) {
	if module == nil {
		return nil, fmt.Errorf("text renderer: module is required")
	}
	doc := narrative.Document(render.Paragraphs(module, tree, opts))
	failures := opts.Failures(module, tree)
	if lines := render.Lines(module, failures); len(lines) > 0 {
		var b strings.Builder
		if doc != "" {
			b.WriteString(doc)
			b.WriteString("\n\n")
		}
		b.WriteString("Problems (")
		b.WriteString(render.Summarize(failures).String())
		b.WriteString("):")
		for _, line := range lines {
			b.WriteString("\n  - ")
			b.WriteString(line)
		}
		doc = b.String()
	}
	if doc == "" {
		return nil, nil
	}
	return []byte(doc + "\n"), nil
}
