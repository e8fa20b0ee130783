// Package form holds the state controller: the single owner of a session's
// value tree. Every update replaces the tree through values.Set and then
// revalidates the whole module, so errors always match values.
package form

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/internal/logging"
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

// Controller drives one session. It is synchronous and not safe for
// concurrent use; separate sessions use separate controllers.
type Controller struct {
	id          string
	module      *model.Module
	root        model.Scope
	validator   *validation.Validator
	logger      *zap.Logger
	listeners   []Listener
	visibleOnly bool

	initial values.Tree
	tree    values.Tree
	errors  validation.Errors
}

// Snapshot is the state published to listeners after every update.
type Snapshot struct {
	Values values.Tree
	Errors validation.Errors
	// Visible reports field visibility against Values.
	Visible func(path values.Path) bool
}

// IsFieldVisible is a convenience wrapper around Visible.
func (s Snapshot) IsFieldVisible(path values.Path) bool {
	if s.Visible == nil {
		return false
	}
	return s.Visible(path)
}

// New returns a controller for module and validates the initial values.
func New(module *model.Module, opts ...Option) *Controller {
	if module == nil {
		module = &model.Module{}
	}
	c := &Controller{
		id:        uuid.NewString(),
		module:    module,
		root:      module.Scope(),
		validator: &validation.Validator{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.String("session", c.id), zap.String("module", module.ID))
	c.tree = c.initial
	c.revalidate()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Module returns the schema the controller drives.
func (c *Controller) Module() *model.Module { return c.module }

// UpdateValue sets the value at path, revalidates and notifies listeners. It
// reports false, leaving state untouched, when path does not resolve to a
// field.
func (c *Controller) UpdateValue(path values.Path, value any) bool {
	target, ok := values.Resolve(c.root, path)
	if !ok || target.Field == nil {
		c.logger.Debug("ignored update for unresolved path", zap.String("path", path.String()))
		return false
	}
	c.tree = values.Set(c.root, c.tree, path, value)
	c.revalidate()
	c.logger.Debug("value updated",
		zap.String("path", path.String()),
		zap.Int("errors", c.errors.Count()),
	)
	c.notify()
	return true
}

// Update is UpdateValue with a dotted path.
func (c *Controller) Update(path string, value any) bool {
	return c.UpdateValue(values.ParsePath(path), value)
}

// ValidateForm revalidates and reports whether no errors remain.
func (c *Controller) ValidateForm() bool {
	c.revalidate()
	valid := len(c.errors) == 0
	c.logger.Debug("form validated", zap.Bool("valid", valid), zap.Int("errors", c.errors.Count()))
	return valid
}

// IsFieldVisible reports the visibility of the field at path.
func (c *Controller) IsFieldVisible(path values.Path) bool {
	return visibility.IsVisible(c.root, c.tree, path)
}

// IsLive reports whether the field at path is visible and sits on selected
// branches only.
func (c *Controller) IsLive(path values.Path) bool {
	return visibility.IsLive(c.root, c.tree, path)
}

// Values returns the current tree. Trees are immutable, so the result is a
// stable snapshot.
func (c *Controller) Values() values.Tree { return c.tree }

// Value returns the current value at path.
func (c *Controller) Value(path values.Path) (any, bool) {
	return values.Get(c.root, c.tree, path)
}

// Errors returns a copy of the current errors.
func (c *Controller) Errors() validation.Errors { return c.errors.Clone() }

// FieldErrors returns the messages recorded for the field at path.
func (c *Controller) FieldErrors(path values.Path) []string {
	return c.errors.Messages(path.String())
}

// Check evaluates the rules of the field at path against a candidate value
// without storing it.
func (c *Controller) Check(path values.Path, value any) []validation.Failure {
	target, ok := values.Resolve(c.root, path)
	if !ok || target.Field == nil {
		return nil
	}
	return c.validator.ApplyField(target.Field, value)
}

// Render renders the module narrative for the current values.
func (c *Controller) Render(mode narrative.Mode, opts ...narrative.Option) []narrative.Paragraph {
	return narrative.RenderModule(c.module, c.tree, mode, opts...)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	tree := c.tree
	root := c.root
	return Snapshot{
		Values: tree,
		Errors: c.errors.Clone(),
		Visible: func(path values.Path) bool {
			return visibility.IsVisible(root, tree, path)
		},
	}
}

// Reset restores the initial values, revalidates and notifies listeners.
func (c *Controller) Reset() {
	c.tree = c.initial
	c.revalidate()
	c.logger.Debug("session reset")
	c.notify()
}

func (c *Controller) revalidate() {
	errs := c.validator.ValidateModule(c.module, c.tree)
	if c.visibleOnly {
		errs = validation.FilterVisible(errs, c.root, c.tree)
	}
	c.errors = errs
}

func (c *Controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	snapshot := c.Snapshot()
	for _, listener := range c.listeners {
		listener(snapshot)
	}
}
