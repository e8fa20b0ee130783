package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

// Predicate backs a named custom rule. It receives the raw field value.
type Predicate func(value any) bool

// Registry resolves custom rule names to predicates. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{predicates: make(map[string]Predicate)}
}

// Register stores predicate under name, replacing any previous entry.
func (r *Registry) Register(name string, predicate Predicate) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("validation: custom rule name is required")
	}
	if predicate == nil {
		return fmt.Errorf("validation: custom rule %q: predicate is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.predicates == nil {
		r.predicates = make(map[string]Predicate)
	}
	r.predicates[name] = predicate
	return nil
}

// MustRegister registers predicate and panics on error.
func (r *Registry) MustRegister(name string, predicate Predicate) {
	if err := r.Register(name, predicate); err != nil {
		panic(err)
	}
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	predicate, ok := r.predicates[strings.TrimSpace(name)]
	return predicate, ok
}

// Names lists registered rule names sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var patternCache sync.Map

func compilePattern(expr string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache.Store(expr, re)
	return re, nil
}

// measure returns the quantity min/max compare against and the unit used in
// default messages.
type measure struct {
	amount float64
	unit   string
	ok     bool
}

func measureValue(value any, numeric bool) measure {
	if items, ok := values.AsSlice(value); ok {
		return measure{amount: float64(len(items)), unit: "options", ok: true}
	}
	if numeric || values.IsNumber(value) {
		n, ok := values.Number(value)
		return measure{amount: n, ok: ok}
	}
	if text, ok := value.(string); ok {
		return measure{amount: float64(utf8.RuneCountInString(text)), unit: "characters", ok: true}
	}
	return measure{}
}

func boundMessage(kind model.RuleKind, limit float64, unit string) string {
	bound := values.Key(limit)
	switch {
	case kind == model.RuleMin && unit == "options":
		return fmt.Sprintf("Select at least %s options", bound)
	case kind == model.RuleMax && unit == "options":
		return fmt.Sprintf("Select at most %s options", bound)
	case kind == model.RuleMin && unit != "":
		return fmt.Sprintf("Must be at least %s %s", bound, unit)
	case kind == model.RuleMax && unit != "":
		return fmt.Sprintf("Must be at most %s %s", bound, unit)
	case kind == model.RuleMin:
		return fmt.Sprintf("Must be at least %s", bound)
	default:
		return fmt.Sprintf("Must be at most %s", bound)
	}
}

const (
	messageRequired = "This field is required"
	messagePattern  = "Invalid format"
	messageCustom   = "Invalid value"
)

func failure(rule model.Rule, fallback string) Failure {
	message := strings.TrimSpace(rule.Message)
	if message == "" {
		message = fallback
	}
	return Failure{Kind: rule.Kind, Message: message}
}
