package render

import (
	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/narrative"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
	"github.com/goliatone/go-narrative/pkg/visibility"
)

// Options describe per-request data that renderers use to customise their
// output without touching the module.
type Options struct {
	// Mode selects preview placeholders or interactive questions.
	Mode narrative.Mode
	// Errors surfaces validation feedback keyed by dotted value path. When
	// IncludeErrors is set and Errors is nil, renderers validate the values
	// themselves.
	Errors        validation.Errors
	IncludeErrors bool
	// Extras are exposed to expression gates under the "extras." prefix.
	Extras map[string]any
	// Evaluator overrides the expression evaluator used by gates.
	Evaluator visibility.Evaluator
	// Subset limits the document to some paragraphs.
	Subset Subset
}

// Failures returns the errors to present: nil unless IncludeErrors is set,
// Errors when supplied, otherwise the module's live validation failures.
func (o Options) Failures(module *model.Module, tree values.Tree) validation.Errors {
	if !o.IncludeErrors {
		return nil
	}
	if o.Errors != nil {
		return o.Errors
	}
	errs := validation.ValidateModule(module, tree)
	return validation.FilterVisible(errs, module.Scope(), tree)
}

func (o Options) narrativeOptions() []narrative.Option {
	var opts []narrative.Option
	if len(o.Extras) > 0 {
		opts = append(opts, narrative.WithExtras(o.Extras))
	}
	if o.Evaluator != nil {
		opts = append(opts, narrative.WithEvaluator(o.Evaluator))
	}
	return opts
}
