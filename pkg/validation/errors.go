package validation

import (
	"sort"

	"github.com/goliatone/go-narrative/pkg/model"
)

// Failure is one failed rule. Kind is the rule kind that produced it.
type Failure struct {
	Kind    model.RuleKind `json:"kind"`
	Message string         `json:"message"`
}

// Errors maps dotted value paths to the failures recorded there. Paths with
// no failures are absent. Methods never modify the receiver in place unless
// documented otherwise.
type Errors map[string][]Failure

// Merge returns a new map holding the failures of e followed by other's.
func (e Errors) Merge(other Errors) Errors {
	out := make(Errors, len(e)+len(other))
	for path, failures := range e {
		out[path] = append([]Failure(nil), failures...)
	}
	for path, failures := range other {
		out[path] = append(out[path], failures...)
	}
	return out
}

// Clone returns a deep copy.
func (e Errors) Clone() Errors {
	return Errors{}.Merge(e)
}

// Count returns the total number of failures across all paths.
func (e Errors) Count() int {
	total := 0
	for _, failures := range e {
		total += len(failures)
	}
	return total
}

// Has reports whether failures were recorded at path.
func (e Errors) Has(path string) bool {
	return len(e[path]) > 0
}

// Paths returns the failing paths sorted.
func (e Errors) Paths() []string {
	if len(e) == 0 {
		return nil
	}
	out := make([]string, 0, len(e))
	for path := range e {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Messages returns the messages recorded at path in rule order.
func (e Errors) Messages(path string) []string {
	failures := e[path]
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, len(failures))
	for i, failure := range failures {
		out[i] = failure.Message
	}
	return out
}

// Strings flattens the map into path-keyed message lists, the shape
// presentation layers render next to fields.
func (e Errors) Strings() map[string][]string {
	if len(e) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e))
	for path := range e {
		out[path] = e.Messages(path)
	}
	return out
}

func (e Errors) add(path string, failures []Failure) {
	if len(failures) == 0 {
		return
	}
	e[path] = append(e[path], failures...)
}
