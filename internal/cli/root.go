// Package cli implements the narrative command: lint schemas, validate value
// files, render narratives and fill modules interactively.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-narrative/internal/logging"
	"github.com/goliatone/go-narrative/pkg/form"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/renderers/tui"
	"github.com/goliatone/go-narrative/pkg/schema"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

// app carries the persistent flags and the collaborators commands share.
type app struct {
	schemaPath string
	moduleID   string
	valuesPath string
	logLevel   string
	logFormat  string
	skipCustom bool

	logger *zap.Logger
	// driver overrides the survey prompt driver used by fill.
	driver tui.PromptDriver
}

// Execute runs the root command against the process streams.
func Execute() error {
	return newRootCommand(&app{}).Execute()
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "narrative",
		Short: "Render form schemas as narrative documents",
		Long: `narrative loads sentence-based module schemas (YAML or JSON), validates
answers against their rules and renders the resulting prose.

  narrative lint --schema ./schemas
  narrative render --schema ./schemas --module protocol --values answers.yaml
  narrative fill --schema ./schemas --module protocol --out answers.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if a.logger != nil {
				return nil
			}
			logger, err := logging.New(a.logLevel, a.logFormat)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.schemaPath, "schema", ".", "schema file or directory")
	flags.StringVar(&a.moduleID, "module", "", "module id (optional when the schema holds one module)")
	flags.StringVar(&a.valuesPath, "values", "", "values file (yaml or json)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "console", "log format (console, json)")
	flags.BoolVar(&a.skipCustom, "skip-custom", false, "accept values for named custom rules instead of failing them")

	root.AddCommand(newLintCommand(a))
	root.AddCommand(newValidateCommand(a))
	root.AddCommand(newRenderCommand(a))
	root.AddCommand(newFillCommand(a))
	return root
}

func (a *app) log() *zap.Logger {
	return logging.OrNop(a.logger)
}

func (a *app) loadStore() (*schema.Store, error) {
	store, err := schema.Load(a.schemaPath, schema.WithLogger(a.log()))
	if err != nil {
		return nil, err
	}
	if store.Empty() {
		return nil, fmt.Errorf("no modules found in %s", a.schemaPath)
	}
	return store, nil
}

// loadModule returns the module selected by --module together with a
// controller primed with the --values file.
func (a *app) loadModule() (*model.Module, *form.Controller, error) {
	store, err := a.loadStore()
	if err != nil {
		return nil, nil, err
	}
	ids := store.IDs()
	id := strings.TrimSpace(a.moduleID)
	if id == "" {
		if len(ids) != 1 {
			return nil, nil, fmt.Errorf("--module is required: %s defines %s", a.schemaPath, strings.Join(ids, ", "))
		}
		id = ids[0]
	}
	module, ok := store.Module(id)
	if !ok {
		return nil, nil, fmt.Errorf("module %q not found (available: %s)", id, strings.Join(ids, ", "))
	}
	a.log().Debug("module loaded", zap.String("module", id), zap.String("source", store.Source(id)))

	tree, err := a.loadValues()
	if err != nil {
		return nil, nil, err
	}
	controller := form.New(module,
		form.WithInitialValues(tree),
		form.WithRegistry(a.registry(store)),
		form.WithVisibleErrorsOnly(true),
		form.WithLogger(a.log()),
	)
	return module, controller, nil
}

// registry accepts every custom rule the schema names when --skip-custom is
// set. Otherwise unknown custom rules fail validation.
func (a *app) registry(store *schema.Store) *validation.Registry {
	if !a.skipCustom {
		return nil
	}
	registry := validation.NewRegistry()
	for _, name := range store.CustomRules() {
		registry.MustRegister(name, func(any) bool { return true })
	}
	return registry
}

// loadValues reads the --values file. A missing flag yields an empty tree.
func (a *app) loadValues() (values.Tree, error) {
	if strings.TrimSpace(a.valuesPath) == "" {
		return values.Empty(), nil
	}
	data, err := os.ReadFile(a.valuesPath)
	if err != nil {
		return values.Tree{}, fmt.Errorf("read values: %w", err)
	}
	return decodeValues(data, a.valuesPath)
}

// decodeValues accepts YAML or JSON; JSON documents parse as YAML.
func decodeValues(data []byte, source string) (values.Tree, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return values.Tree{}, fmt.Errorf("parse values %s: %w", source, err)
	}
	if raw == nil {
		return values.Empty(), nil
	}
	fields, ok := values.StringMap(raw)
	if !ok {
		return values.Tree{}, fmt.Errorf("parse values %s: expected a mapping at the top level", source)
	}
	tree, err := values.FromMap(fields)
	if err != nil {
		return values.Tree{}, fmt.Errorf("parse values %s: %w", source, err)
	}
	return tree, nil
}

// encodeValues serialises tree as "json" or "yaml". An empty format is
// inferred from path's extension and defaults to yaml.
func encodeValues(tree values.Tree, format, path string) ([]byte, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			format = "json"
		default:
			format = "yaml"
		}
	}
	raw := tree.ToMap()
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(raw, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(raw)
	default:
		return nil, fmt.Errorf("unknown values format %q (want yaml or json)", format)
	}
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
