// Package render defines the document renderer contract, a registry to look
// renderers up by name and the helpers they share for turning validation
// errors into presentable summaries.
package render

import (
	"context"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Renderer converts a module and its current values into a document (plain
// text, markdown, HTML, ANSI terminal output).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, module *model.Module, tree values.Tree, options Options) ([]byte, error)
}

// Paragraphs renders the module narrative with the options' mode, gate extras
// and evaluator, keeping only the paragraphs the subset selects. Renderers
// build their documents from the result.
func Paragraphs(module *model.Module, tree values.Tree, options Options) []narrative.Paragraph {
	paragraphs := narrative.RenderModule(module, tree, options.Mode, options.narrativeOptions()...)
	return ApplySubset(paragraphs, options.Subset)
}
