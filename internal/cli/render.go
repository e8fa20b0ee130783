package cli

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/render"
	"github.com/goliatone/go-narrative/pkg/renderers/html"
	"github.com/goliatone/go-narrative/pkg/renderers/markdown"
	"github.com/goliatone/go-narrative/pkg/renderers/terminal"
	"github.com/goliatone/go-narrative/pkg/renderers/text"
)

type renderFlags struct {
	format        string
	mode          string
	includeErrors bool
	templatesDir  string
	noColor       bool
	wrap          int
	only          string
	out           string
}

func newRenderCommand(a *app) *cobra.Command {
	var flags renderFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a module's narrative for the --values file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			module, controller, err := a.loadModule()
			if err != nil {
				return err
			}
			registry, err := newRegistry(flags, cmd)
			if err != nil {
				return err
			}
			renderer, err := registry.Get(flags.format)
			if err != nil {
				return err
			}

			opts := render.Options{
				Mode:          narrative.ParseMode(flags.mode),
				IncludeErrors: flags.includeErrors,
				Subset:        render.ParseSubset(flags.only),
			}
			if flags.includeErrors {
				opts.Errors = controller.Errors()
			}
			output, err := renderer.Render(cmd.Context(), module, controller.Values(), opts)
			if err != nil {
				return err
			}
			a.log().Debug("rendered module",
				zap.String("module", module.ID),
				zap.String("renderer", renderer.Name()),
				zap.Int("bytes", len(output)),
			)
			return writeOutput(cmd.OutOrStdout(), flags.out, output)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.format, "format", text.Name, "output format (text, markdown, html, terminal)")
	f.StringVar(&flags.mode, "mode", string(narrative.ModePreview), "render mode (preview, interactive)")
	f.BoolVar(&flags.includeErrors, "errors", false, "append validation problems")
	f.StringVar(&flags.templatesDir, "templates", "", "directory of pongo2 templates for the html format")
	f.BoolVar(&flags.noColor, "no-color", false, "disable colour in the terminal format")
	f.IntVar(&flags.wrap, "wrap", 80, "word wrap width for the terminal format (0 disables)")
	f.StringVar(&flags.only, "only", "", "comma separated paragraph ids or titles to render")
	f.StringVar(&flags.out, "out", "", "write to file instead of stdout")
	return cmd
}

func newRegistry(flags renderFlags, cmd *cobra.Command) (*render.Registry, error) {
	var htmlOpts []html.Option
	if dir := strings.TrimSpace(flags.templatesDir); dir != "" {
		htmlOpts = append(htmlOpts, html.WithTemplatesDir(dir))
	}
	htmlRenderer, err := html.New(htmlOpts...)
	if err != nil {
		return nil, err
	}

	termOpts := []terminal.Option{
		terminal.WithOutput(cmd.OutOrStdout()),
		terminal.WithWordWrap(flags.wrap),
	}
	if flags.noColor {
		termOpts = append(termOpts, terminal.WithProfile(termenv.Ascii))
	}

	registry := render.NewRegistry()
	for _, renderer := range []render.Renderer{
		text.New(),
		markdown.New(),
		htmlRenderer,
		terminal.New(termOpts...),
	} {
		if err := registry.Register(renderer); err != nil {
			return nil, fmt.Errorf("register %s renderer: %w", renderer.Name(), err)
		}
	}
	return registry, nil
}
