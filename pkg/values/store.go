package values

import "github.com/goliatone/go-narrative/pkg/model"

// Target is the schema node a path resolves to. Field is nil when the path
// addresses a sentence level (ending in an expansion or child segment).
type Target struct {
	Field    *model.Field
	Sentence *model.Sentence
	Scope    model.Scope
}

// Resolve walks path against the schema rooted at scope. It reports false for
// any segment that does not resolve: unknown field ids, expansion keys the
// field does not declare, child indexes no sentence has, or an expansion
// segment that does not follow a field.
func Resolve(scope model.Scope, path Path) (Target, bool) {
	current := scope
	if len(path) == 0 {
		return Target{Scope: current}, len(current) > 0
	}
	for i := 0; i < len(path); i++ {
		segment := path[i]
		switch segment.Kind {
		case SegmentField:
			field, sentence, ok := current.Field(segment.Name)
			if !ok {
				return Target{}, false
			}
			if i == len(path)-1 {
				return Target{Field: field, Sentence: sentence, Scope: current}, true
			}
			next := path[i+1]
			if next.Kind != SegmentExpansion {
				return Target{}, false
			}
			expansion, ok := field.Expansion(next.Name)
			if !ok {
				return Target{}, false
			}
			current = model.Single(expansion)
			i++
		case SegmentChild:
			current = current.Child(segment.Index)
			if len(current) == 0 {
				return Target{}, false
			}
		default:
			return Target{}, false
		}
	}
	var sentence *model.Sentence
	if len(current) == 1 {
		sentence = current[0]
	}
	return Target{Sentence: sentence, Scope: current}, true
}

// Get returns the current value of the field at path. Paths that do not
// resolve against the schema, or that resolve to a sentence level, return
// (nil, false).
func Get(scope model.Scope, t Tree, path Path) (any, bool) {
	target, ok := Resolve(scope, path)
	if !ok || target.Field == nil {
		return nil, false
	}
	return Lookup(t, path)
}

// Set returns a copy of t with the field at path set to value. Every ancestor
// along path is shallow-copied; siblings are shared. Expansion data retained
// under the field is preserved, so switching a select back to an earlier
// trigger restores what was entered there. Unresolvable paths leave t
// untouched.
func Set(scope model.Scope, t Tree, path Path, value any) Tree {
	target, ok := Resolve(scope, path)
	if !ok || target.Field == nil {
		return t
	}
	next, ok := Put(t, path, value)
	if !ok {
		return t
	}
	return next
}
