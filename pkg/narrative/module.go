package narrative

import (
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Paragraph is the rendered narrative of a module's own sentences or of one
// submodule.
type Paragraph struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Nodes []Node `json:"nodes"`
}

// Text returns the paragraph as plain text.
func (p Paragraph) Text() string {
	return PlainText(p.Nodes)
}

// RenderModule renders the module's top-level sentences, then each
// submodule, one paragraph per group. Sentences of a group are joined with a
// space. Hidden fields are omitted. Groups without sentences are skipped.
func RenderModule(module *model.Module, tree values.Tree, mode Mode, opts ...Option) []Paragraph {
	if module == nil {
		return nil
	}
	opts = append([]Option{WithRoot(module.Scope())}, opts...)
	var out []Paragraph
	if len(module.Sentences) > 0 {
		out = append(out, Paragraph{
			ID:    module.ID,
			Title: module.Title,
			Nodes: renderGroup(module.Sentences, tree, mode, opts),
		})
	}
	for _, sub := range module.Submodules {
		if len(sub.Sentences) == 0 {
			continue
		}
		out = append(out, Paragraph{
			ID:    sub.ID,
			Title: sub.Title,
			Nodes: renderGroup(sub.Sentences, tree, mode, opts),
		})
	}
	return out
}

func renderGroup(sentences []*model.Sentence, tree values.Tree, mode Mode, opts []Option) []Node {
	var out []Node
	for _, sentence := range sentences {
		out = join(out, Render(sentence, tree, mode, opts...))
	}
	return out
}

// Document renders the module as plain text: titled paragraphs separated by
// blank lines.
func Document(paragraphs []Paragraph) string {
	parts := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		text := strings.TrimSpace(paragraph.Text())
		if text == "" {
			continue
		}
		if title := strings.TrimSpace(paragraph.Title); title != "" {
			text = title + "\n" + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
