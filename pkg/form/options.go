package form

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Listener receives a snapshot after every update.
type Listener func(Snapshot)

// Option configures a Controller.
type Option func(*Controller)

// WithInitialValues seeds the value tree. Reset returns to it.
func WithInitialValues(tree values.Tree) Option {
	return func(c *Controller) {
		c.initial = tree
	}
}

// WithRegistry resolves named custom rules during validation.
func WithRegistry(registry *validation.Registry) Option {
	return func(c *Controller) {
		if registry != nil {
			c.validator = validation.New(registry)
		}
	}
}

// WithLogger attaches a logger. Updates and validation outcomes are logged at
// debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithListener registers a listener called synchronously after every update.
func WithListener(listener Listener) Option {
	return func(c *Controller) {
		if listener != nil {
			c.listeners = append(c.listeners, listener)
		}
	}
}

// WithVisibleErrorsOnly restricts Errors and ValidateForm to live fields:
// failures of hidden fields, or of fields inside hidden branches, are
// dropped.
func WithVisibleErrorsOnly(enabled bool) Option {
	return func(c *Controller) {
		c.visibleOnly = enabled
	}
}

// WithSessionID overrides the generated session id used in log entries.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.id = id
		}
	}
}
