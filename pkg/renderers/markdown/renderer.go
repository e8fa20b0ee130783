// Package markdown renders module narratives as CommonMark: the module title
// as a level one heading, one section per submodule, answered values in bold
// and unanswered fields in italics.
package markdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Name is the registry name of the renderer.
const Name = "markdown"

// Option configures the renderer.
type Option func(*Renderer)

// WithHeadingLevel sets the level of the module heading; submodules use the
// next level. Levels are clamped to 1..5.
func WithHeadingLevel(level int) Option {
	return func(r *Renderer) {
		if level < 1 {
			level = 1
		}
		if level > 5 {
			level = 5
		}
		r.level = level
	}
}

// Renderer produces markdown documents.
type Renderer struct {
	level int
}

// New constructs the markdown renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{level: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/markdown; charset=utf-8" }

func (r *Renderer) Render(_ context.Context, module *model.Module, tree values.Tree, opts render.Options) ([]byte, error) {
	if module == nil {
		return nil, fmt.Errorf("markdown renderer: module is required")
	}
	paragraphs := render.Paragraphs(module, tree, opts)
	return []byte(Document(module, paragraphs, opts.Failures(module, tree), r.level)), nil
}

// Document assembles the markdown for already rendered paragraphs. Failures,
// when present, are listed in a trailing "Problems" section.
func Document(module *model.Module, paragraphs []narrative.Paragraph, failures validation.Errors, level int) string {
	if level < 1 {
		level = 1
	}
	var blocks []string
	if title := strings.TrimSpace(module.Title); title != "" {
		blocks = append(blocks, heading(level, title))
	}
	if description := strings.TrimSpace(module.Description); description != "" {
		blocks = append(blocks, Escape(description))
	}
	for _, paragraph := range paragraphs {
		body := strings.TrimSpace(Inline(paragraph.Nodes))
		if body == "" {
			continue
		}
		if paragraph.ID != module.ID {
			if title := strings.TrimSpace(paragraph.Title); title != "" {
				blocks = append(blocks, heading(level+1, title))
			}
		}
		blocks = append(blocks, body)
	}
	if lines := render.Lines(module, failures); len(lines) > 0 {
		blocks = append(blocks, heading(level+1, "Problems"))
		items := make([]string, len(lines))
		for i, line := range lines {
			items[i] = "- " + Escape(line)
		}
		blocks = append(blocks, strings.Join(items, "\n"))
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Inline renders nodes as a markdown fragment.
func Inline(nodes []narrative.Node) string {
	var b strings.Builder
	for _, node := range nodes {
		switch node.Kind {
		case narrative.NodeValue:
			b.WriteString(emphasis("**", node.Text))
		case narrative.NodePlaceholder:
			b.WriteString(emphasis("_", node.Text))
		case narrative.NodeList:
			for i, item := range node.Items {
				if i > 0 {
					b.WriteString("; ")
				}
				b.WriteString(emphasis("**", item.Label))
				if rest := Inline(item.Nodes); rest != "" {
					b.WriteString(" ")
					b.WriteString(rest)
				}
			}
		default:
			b.WriteString(Escape(node.Text))
		}
	}
	return b.String()
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

// Escape backslash-escapes markdown syntax characters in s.
func Escape(s string) string {
	return escaper.Replace(s)
}

// emphasis wraps text in marker, keeping surrounding whitespace outside the
// delimiters so the emphasis still parses.
func emphasis(marker, text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	lead := text[:strings.Index(text, trimmed)]
	tail := text[len(lead)+len(trimmed):]
	return lead + marker + Escape(trimmed) + marker + tail
}

func heading(level int, title string) string {
	return strings.Repeat("#", level) + " " + Escape(title)
}
