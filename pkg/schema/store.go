// Package schema supplies modules from JSON or YAML documents. Loaders accept
// an fs.FS so schemas can be embedded, read from disk or served from tests.
package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/pkg/model"
)

// Store holds the modules loaded from one or more documents, keyed by id.
type Store struct {
	modules    map[string]*model.Module
	sources    map[string]string
	decorators []model.Decorator
	logger     *zap.Logger
}

// Option configures loading.
type Option func(*Store)

// WithDecorators runs decorators on every module after it is decoded, after
// the default label decorator.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(s *Store) {
		for _, decorator := range decorators {
			if decorator != nil {
				s.decorators = append(s.decorators, decorator)
			}
		}
	}
}

// WithLogger logs every loaded document at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		modules:    make(map[string]*model.Module),
		sources:    make(map[string]string),
		decorators: []model.Decorator{model.DefaultLabels()},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LoadFS walks the provided filesystem and parses .json, .yaml and .yml
// files. When fsys is nil or no schema files are present, the returned store
// is empty. Module ids must be unique across files.
func LoadFS(fsys fs.FS, opts ...Option) (*Store, error) {
	store := NewStore(opts...)
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := NewDocument(SourceFromFS(path), data)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", path, err)
		}
		return store.AddDocument(doc)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Load reads a schema file or every schema file below a directory.
func Load(path string, opts ...Option) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(path), opts...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	doc, err := NewDocument(SourceFromFile(path), data)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", path, err)
	}
	store := NewStore(opts...)
	if err := store.AddDocument(doc); err != nil {
		return nil, err
	}
	return store, nil
}

// AddDocument decodes doc, decorates its modules and adds them to the store.
func (s *Store) AddDocument(doc Document) error {
	modules, err := doc.Modules()
	if err != nil {
		return err
	}
	for _, module := range modules {
		if err := s.Add(module, doc.Location()); err != nil {
			return err
		}
	}
	s.logger.Debug("schema document loaded",
		zap.String("source", doc.Location()),
		zap.Int("modules", len(modules)),
	)
	return nil
}

// Add decorates module and registers it under its id.
func (s *Store) Add(module *model.Module, source string) error {
	if module == nil {
		return fmt.Errorf("schema: %s: nil module", source)
	}
	id := strings.TrimSpace(module.ID)
	if id == "" {
		return fmt.Errorf("schema: %s: module has no id", source)
	}
	if previous, exists := s.sources[id]; exists {
		return fmt.Errorf("schema: duplicate module %q (files %s and %s)", id, previous, source)
	}
	for _, decorator := range s.decorators {
		if err := decorator.Decorate(module); err != nil {
			return fmt.Errorf("schema: decorate module %q: %w", id, err)
		}
	}
	s.modules[id] = module
	s.sources[id] = source
	return nil
}

// Module returns the module registered under id.
func (s *Store) Module(id string) (*model.Module, bool) {
	if s == nil {
		return nil, false
	}
	module, ok := s.modules[id]
	return module, ok
}

// IDs returns the registered module ids sorted.
func (s *Store) IDs() []string {
	if s == nil || len(s.modules) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.modules))
	for id := range s.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Modules returns every module ordered by id.
func (s *Store) Modules() []*model.Module {
	ids := s.IDs()
	out := make([]*model.Module, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.modules[id])
	}
	return out
}

// Source returns the location the module was loaded from.
func (s *Store) Source(id string) string {
	if s == nil {
		return ""
	}
	return s.sources[id]
}

// Empty reports whether the store holds any modules.
func (s *Store) Empty() bool {
	return s == nil || len(s.modules) == 0
}

// CustomRules returns the sorted, de-duplicated names of custom predicates
// referenced by rules across every module. Callers check them against their
// validation registry.
func (s *Store) CustomRules() []string {
	seen := make(map[string]struct{})
	for _, module := range s.Modules() {
		model.WalkSentences(module, func(sentence *model.Sentence) {
			for _, field := range sentence.Fields {
				if field == nil {
					continue
				}
				for _, rule := range field.Rules {
					if rule.Kind == model.RuleCustom && rule.Custom != "" {
						seen[rule.Custom] = struct{}{}
					}
				}
			}
		})
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
