package values

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// CurrentKey is the wrapper key used by ToMap/FromMap for fields that retain
// expansion data alongside their value.
const CurrentKey = "current"

// Normalize converts typed slices into []any so that every stored value is
// nil, a scalar, or []any of scalars. Scalars pass through untouched.
func Normalize(value any) any {
	if value == nil {
		return nil
	}
	if items, ok := AsSlice(value); ok {
		out := make([]any, len(items))
		copy(out, items)
		return out
	}
	return value
}

// AsSlice reports whether value is a slice and returns its members as []any.
func AsSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, false
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, true
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Coerce returns value as a slice: arrays are returned as-is, empty values
// as nil and scalars wrapped in a single-member slice.
func Coerce(value any) []any {
	if IsEmpty(value) {
		return nil
	}
	if items, ok := AsSlice(value); ok {
		return items
	}
	return []any{value}
}

// IsEmpty reports whether value counts as unanswered: nil, a blank string or
// an empty array.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	}
	if items, ok := AsSlice(value); ok {
		return len(items) == 0
	}
	return false
}

// Key returns the canonical string form of a scalar. It is the form used for
// expansion keys, option values and condition comparisons, so 3 and 3.0 and
// "3" share a key.
func Key(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(typed).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(typed).Uint(), 10)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case time.Time:
		return typed.Format("2006-01-02")
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(value)
	}
}

// Equal compares two scalars by canonical key. nil only equals nil.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Key(a) == Key(b)
}

// Intersects reports whether any member of a equals any member of b.
func Intersects(a, b []any) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, item := range a {
		if item == nil {
			continue
		}
		seen[Key(item)] = struct{}{}
	}
	for _, item := range b {
		if item == nil {
			continue
		}
		if _, ok := seen[Key(item)]; ok {
			return true
		}
	}
	return false
}

// Number converts numeric scalars and numeric strings to float64.
func Number(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8, int16, int32, int64:
		return float64(reflect.ValueOf(typed).Int()), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(typed).Uint()), true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumber reports whether value is a Go numeric type (strings excluded).
func IsNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}

// FromMap builds a tree from the plain nested form produced by ToMap, as read
// from JSON or YAML. Keys named child_<n> hold child trees; any other key is a
// field whose value is either the value itself or, when it retains expansion
// data, a map with a "current" key and expansion_<key> subtrees.
func FromMap(raw map[string]any) (Tree, error) {
	return fromMap(raw, "")
}

func fromMap(raw map[string]any, prefix string) (Tree, error) {
	var tree Tree
	for key, value := range raw {
		at := joinKey(prefix, key)
		segment := ParseSegment(key)
		switch segment.Kind {
		case SegmentChild:
			nested, ok := StringMap(value)
			if !ok {
				return Tree{}, fmt.Errorf("values: %s: child entries must be objects", at)
			}
			child, err := fromMap(nested, at)
			if err != nil {
				return Tree{}, err
			}
			if tree.children == nil {
				tree.children = make(map[int]Tree)
			}
			tree.children[segment.Index] = child
		case SegmentExpansion:
			return Tree{}, fmt.Errorf("values: %s: expansion entries must be nested under a field", at)
		default:
			entry, err := entryFromValue(value, at)
			if err != nil {
				return Tree{}, err
			}
			if tree.fields == nil {
				tree.fields = make(map[string]Entry)
			}
			tree.fields[key] = entry
		}
	}
	return tree, nil
}

func entryFromValue(value any, at string) (Entry, error) {
	wrapper, ok := StringMap(value)
	if !ok {
		if items, isSlice := AsSlice(value); isSlice {
			for idx, item := range items {
				if _, nested := StringMap(item); nested {
					return Entry{}, fmt.Errorf("values: %s[%d]: arrays may only hold scalars", at, idx)
				}
			}
		}
		return Entry{Current: Normalize(value)}, nil
	}
	entry := Entry{}
	for key, nested := range wrapper {
		if key == CurrentKey {
			entry.Current = Normalize(nested)
			continue
		}
		segment := ParseSegment(key)
		if segment.Kind != SegmentExpansion {
			return Entry{}, fmt.Errorf("values: %s: unexpected key %q in field wrapper", at, key)
		}
		subMap, ok := StringMap(nested)
		if !ok {
			return Entry{}, fmt.Errorf("values: %s.%s: expansion entries must be objects", at, key)
		}
		sub, err := fromMap(subMap, joinKey(at, key))
		if err != nil {
			return Entry{}, err
		}
		if entry.expansions == nil {
			entry.expansions = make(map[string]Tree)
		}
		entry.expansions[segment.Name] = sub
	}
	return entry, nil
}

// ToMap exports the tree in the plain nested form accepted by FromMap.
func (t Tree) ToMap() map[string]any {
	out := make(map[string]any, len(t.fields)+len(t.children))
	for id, entry := range t.fields {
		if len(entry.expansions) == 0 {
			out[id] = entry.Current
			continue
		}
		wrapper := make(map[string]any, len(entry.expansions)+1)
		wrapper[CurrentKey] = entry.Current
		for key, sub := range entry.expansions {
			wrapper[Expansion(key).String()] = sub.ToMap()
		}
		out[id] = wrapper
	}
	for idx, child := range t.children {
		out[Child(idx).String()] = child.ToMap()
	}
	return out
}

// Flatten returns every stored value keyed by its dotted path, including
// values retained under inactive expansions.
func Flatten(t Tree) map[string]any {
	out := make(map[string]any)
	flatten(t, "", out)
	return out
}

func flatten(t Tree, prefix string, out map[string]any) {
	for id, entry := range t.fields {
		at := joinKey(prefix, id)
		out[at] = entry.Current
		for key, sub := range entry.expansions {
			flatten(sub, joinKey(at, Expansion(key).String()), out)
		}
	}
	for idx, child := range t.children {
		flatten(child, joinKey(prefix, Child(idx).String()), out)
	}
}

// StringMap converts decoded JSON/YAML objects into map[string]any. YAML
// documents may produce map[any]any when keys are not strings (for example
// `true:`); keys are stringified with Key.
func StringMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, nested := range typed {
			out[Key(key)] = nested
		}
		return out, true
	default:
		return nil, false
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// ActiveKeys returns the canonical keys value selects: one key for a scalar,
// one per distinct member for an array, none for an empty value. A field's
// expansion is active while its key is among them.
func ActiveKeys(value any) []string {
	if IsEmpty(value) {
		return nil
	}
	items, ok := AsSlice(value)
	if !ok {
		return []string{Key(value)}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if IsEmpty(item) {
			continue
		}
		key := Key(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Selects reports whether value activates the expansion keyed by key.
func Selects(value any, key string) bool {
	for _, candidate := range ActiveKeys(value) {
		if candidate == key {
			return true
		}
	}
	return false
}
