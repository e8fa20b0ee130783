// Package html renders module narratives as HTML fragments. Layout lives in
// pongo2 templates; every string that reaches the markup passes through a
// bluemonday policy first.
package html

import (
	"context"
	"embed"
	"fmt"
	stdhtml "html"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

const (
	// Name is the registry name of the renderer.
	Name = "html"
	// DefaultTemplate is the template rendered unless WithTemplateName
	// overrides it.
	DefaultTemplate = "templates/document.html"

	nodeFilter = "narrative_node"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded template bundle.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS   fs.FS
	templateName string
	policy       *bluemonday.Policy
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateName selects the template rendered from the bundle.
func WithTemplateName(name string) Option {
	return func(cfg *config) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.templateName = name
		}
	}
}

// WithPolicy replaces the strict sanitising policy applied to text.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// Renderer produces HTML fragments.
type Renderer struct {
	template *pongo2.Template
	policy   *bluemonday.Policy
}

// New compiles the configured template.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:   TemplatesFS(),
		templateName: DefaultTemplate,
		policy:       bluemonday.StrictPolicy(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := registerFilters(); err != nil {
		return nil, fmt.Errorf("html renderer: register filters: %w", err)
	}

	set := pongo2.NewSet("narrative", pongo2.NewFSLoader(cfg.templateFS))
	tpl, err := set.FromFile(cfg.templateName)
	if err != nil {
		return nil, fmt.Errorf("html renderer: load template %q: %w", cfg.templateName, err)
	}
	return &Renderer{template: tpl, policy: cfg.policy}, nil
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

func (r *Renderer) Render(_ context.Context, module *model.Module, tree values.Tree, opts render.Options) ([]byte, error) {
	if module == nil {
		return nil, fmt.Errorf("html renderer: module is required")
	}
	if r.template == nil {
		return nil, fmt.Errorf("html renderer: template is nil")
	}

	failures := opts.Failures(module, tree)
	paragraphs := render.Paragraphs(module, tree, opts)
	views := make([]paragraphView, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		view := paragraphView{ID: paragraph.ID, Nodes: paragraph.Nodes}
		if paragraph.ID != module.ID {
			view.Heading = r.sanitize(paragraph.Title)
		}
		views = append(views, view)
	}

	problems := render.Lines(module, failures)
	for i, line := range problems {
		problems[i] = r.sanitize(line)
	}

	out, err := r.template.ExecuteBytes(pongo2.Context{
		"module":      module,
		"mode":        string(opts.Mode),
		"title":       r.sanitize(module.Title),
		"description": r.sanitize(module.Description),
		"paragraphs":  views,
		"problems":    problems,
		"summary":     render.Summarize(failures).String(),
		"errors":      &nodeWriter{policy: r.policy, errors: failures},
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return out, nil
}

func (r *Renderer) sanitize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return r.policy.Sanitize(text)
}

type paragraphView struct {
	ID      string
	Heading string
	Nodes   []narrative.Node
}

var (
	filtersOnce sync.Once
	filtersErr  error
)

func registerFilters() error {
	filtersOnce.Do(func() {
		if pongo2.FilterExists(nodeFilter) {
			return
		}
		filtersErr = pongo2.RegisterFilter(nodeFilter, func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			node, ok := in.Interface().(narrative.Node)
			if !ok {
				return nil, &pongo2.Error{Sender: "filter:" + nodeFilter, OrigError: fmt.Errorf("expected narrative.Node, got %T", in.Interface())}
			}
			writer, _ := param.Interface().(*nodeWriter)
			if writer == nil {
				writer = &nodeWriter{policy: bluemonday.StrictPolicy()}
			}
			return pongo2.AsSafeValue(writer.node(node)), nil
		})
	})
	return filtersErr
}

// nodeWriter turns narrative nodes into spans. Fields carry data-path so
// front ends can bind editors to them.
type nodeWriter struct {
	policy *bluemonday.Policy
	errors validation.Errors
}

func (w *nodeWriter) node(node narrative.Node) string {
	switch node.Kind {
	case narrative.NodeValue, narrative.NodePlaceholder:
		return w.field(node)
	case narrative.NodeList:
		return w.list(node)
	default:
		return w.policy.Sanitize(node.Text)
	}
}

func (w *nodeWriter) nodes(nodes []narrative.Node) string {
	var b strings.Builder
	for _, node := range nodes {
		b.WriteString(w.node(node))
	}
	return b.String()
}

func (w *nodeWriter) field(node narrative.Node) string {
	classes := []string{"narrative-" + string(node.Kind)}
	messages := w.errors.Messages(node.Path)
	if len(messages) > 0 {
		classes = append(classes, "has-error")
	}

	var b strings.Builder
	b.WriteString(`<span class="`)
	b.WriteString(strings.Join(classes, " "))
	b.WriteString(`" data-path="`)
	b.WriteString(stdhtml.EscapeString(node.Path))
	b.WriteString(`" data-field="`)
	b.WriteString(stdhtml.EscapeString(node.FieldID))
	b.WriteString(`"`)
	if node.Editable {
		b.WriteString(` data-editable="true" tabindex="0"`)
	}
	if len(messages) > 0 {
		b.WriteString(` aria-invalid="true" title="`)
		b.WriteString(stdhtml.EscapeString(strings.Join(messages, "; ")))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(w.policy.Sanitize(node.Text))
	b.WriteString("</span>")
	return b.String()
}

func (w *nodeWriter) list(node narrative.Node) string {
	var b strings.Builder
	b.WriteString(`<span class="narrative-list" data-path="`)
	b.WriteString(stdhtml.EscapeString(node.Path))
	b.WriteString(`">`)
	for i, item := range node.Items {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(`<span class="narrative-item" data-key="`)
		b.WriteString(stdhtml.EscapeString(item.Key))
		b.WriteString(`"><strong>`)
		b.WriteString(w.policy.Sanitize(item.Label))
		b.WriteString("</strong>")
		if rest := w.nodes(item.Nodes); rest != "" {
			b.WriteString(" ")
			b.WriteString(rest)
		}
		b.WriteString("</span>")
	}
	b.WriteString("</span>")
	return b.String()
}
