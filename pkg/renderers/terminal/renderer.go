// Package terminal renders module narratives for a terminal: the markdown
// document is laid out by glamour and the problem list is coloured with
// termenv.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/renderers/markdown"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Name is the registry name of the renderer.
const Name = "terminal"

const (
	errorColor   = "#fb7185"
	summaryColor = "#818cf8"
)

// Option configures the renderer.
type Option func(*Renderer)

// WithProfile fixes the colour profile. termenv.Ascii disables colour and
// selects the plain glamour style.
func WithProfile(profile termenv.Profile) Option {
	return func(r *Renderer) {
		r.profile = profile
		r.detect = false
	}
}

// WithWordWrap sets the wrap width. Zero disables wrapping.
func WithWordWrap(width int) Option {
	return func(r *Renderer) {
		if width >= 0 {
			r.wrap = width
		}
	}
}

// WithStyle selects a glamour standard style (dark, light, notty, ascii...).
func WithStyle(style string) Option {
	return func(r *Renderer) {
		if style = strings.TrimSpace(style); style != "" {
			r.style = style
		}
	}
}

// WithOutput detects the colour profile from w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		if w != nil {
			r.out = w
		}
	}
}

// Renderer produces ANSI styled text.
type Renderer struct {
	profile termenv.Profile
	detect  bool
	wrap    int
	style   string
	out     io.Writer
}

// New constructs the terminal renderer. Without WithProfile the colour
// profile is detected from the output when rendering.
func New(opts ...Option) *Renderer {
	r := &Renderer{detect: true, wrap: 80, out: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Renderer) Name() string        { return Name }
func (r *Renderer) ContentType() string { return "text/plain; charset=utf-8" }

func (r *Renderer) Render(_ context.Context, module *model.Module, tree values.Tree, opts render.Options) ([]byte, error) {
	if module == nil {
		return nil, fmt.Errorf("terminal renderer: module is required")
	}
	profile := r.profile
	if r.detect {
		profile = termenv.NewOutput(r.out).EnvColorProfile()
	}

	doc := markdown.Document(module, render.Paragraphs(module, tree, opts), nil, 1)
	body, err := r.markdown(doc, profile)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(body)
	failures := opts.Failures(module, tree)
	if lines := render.Lines(module, failures); len(lines) > 0 {
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(profile.String(render.Summarize(failures).String()).Foreground(profile.Color(summaryColor)).String())
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString("  ")
			b.WriteString(profile.String("✗ " + line).Foreground(profile.Color(errorColor)).String())
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

func (r *Renderer) markdown(doc string, profile termenv.Profile) (string, error) {
	style := r.style
	if style == "" {
		style = "dark"
		if profile == termenv.Ascii {
			style = "notty"
		}
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(r.wrap),
		glamour.WithColorProfile(profile),
	)
	if err != nil {
		return "", fmt.Errorf("terminal renderer: configure glamour: %w", err)
	}
	out, err := renderer.Render(doc)
	if err != nil {
		return "", fmt.Errorf("terminal renderer: render markdown: %w", err)
	}
	return out, nil
}
