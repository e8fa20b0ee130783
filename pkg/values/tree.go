package values

import "sort"

// Tree is an immutable value tree for one level of a sentence hierarchy:
// field entries keyed by id and child subtrees keyed by index. The zero value
// is an empty tree. Updates go through Put/Set, which copy only the ancestors
// along the updated path and share every untouched branch by reference.
type Tree struct {
	fields   map[string]Entry
	children map[int]Tree
}

// Entry is the stored state of a single field. Current is the single,
// authoritative value: nil, a scalar, or []any of scalars. The expansion
// subtrees are kept only so that data entered under a trigger value survives
// while another value is selected.
type Entry struct {
	Current    any
	expansions map[string]Tree
}

// Empty returns an empty tree.
func Empty() Tree {
	return Tree{}
}

// IsEmpty reports whether the tree holds no entries and no children.
func (t Tree) IsEmpty() bool {
	return len(t.fields) == 0 && len(t.children) == 0
}

// Entry returns the entry stored under a field id.
func (t Tree) Entry(id string) (Entry, bool) {
	entry, ok := t.fields[id]
	return entry, ok
}

// Child returns the subtree stored for the index-th child sentence.
func (t Tree) Child(index int) (Tree, bool) {
	child, ok := t.children[index]
	return child, ok
}

// FieldIDs returns the stored field ids sorted.
func (t Tree) FieldIDs() []string {
	if len(t.fields) == 0 {
		return nil
	}
	ids := make([]string, 0, len(t.fields))
	for id := range t.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChildIndexes returns the stored child indexes sorted.
func (t Tree) ChildIndexes() []int {
	if len(t.children) == 0 {
		return nil
	}
	out := make([]int, 0, len(t.children))
	for idx := range t.children {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Expansion returns the subtree retained for a trigger key.
func (e Entry) Expansion(key string) (Tree, bool) {
	tree, ok := e.expansions[key]
	return tree, ok
}

// ExpansionKeys returns the retained trigger keys sorted, whether or not they
// are currently active.
func (e Entry) ExpansionKeys() []string {
	if len(e.expansions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.expansions))
	for key := range e.expansions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (t Tree) withEntry(id string, entry Entry) Tree {
	fields := make(map[string]Entry, len(t.fields)+1)
	for key, value := range t.fields {
		fields[key] = value
	}
	fields[id] = entry
	return Tree{fields: fields, children: t.children}
}

func (t Tree) withChild(index int, child Tree) Tree {
	children := make(map[int]Tree, len(t.children)+1)
	for key, value := range t.children {
		children[key] = value
	}
	children[index] = child
	return Tree{fields: t.fields, children: children}
}

func (e Entry) withExpansion(key string, tree Tree) Entry {
	expansions := make(map[string]Tree, len(e.expansions)+1)
	for k, v := range e.expansions {
		expansions[k] = v
	}
	expansions[key] = tree
	return Entry{Current: e.Current, expansions: expansions}
}

// Lookup reads the value at path without consulting a schema. Paths ending in
// an expansion or child segment address a subtree, not a value, and report
// false.
func Lookup(t Tree, path Path) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent, ok := Subtree(t, path.Parent())
	if !ok {
		return nil, false
	}
	last, _ := path.Last()
	if last.Kind != SegmentField {
		return nil, false
	}
	entry, ok := parent.fields[last.Name]
	if !ok {
		return nil, false
	}
	return entry.Current, true
}

// Subtree returns the tree addressed by a path made of field/expansion pairs
// and child segments. The empty path addresses t itself.
func Subtree(t Tree, path Path) (Tree, bool) {
	current := t
	for i := 0; i < len(path); i++ {
		segment := path[i]
		switch segment.Kind {
		case SegmentChild:
			child, ok := current.children[segment.Index]
			if !ok {
				return Tree{}, false
			}
			current = child
		case SegmentField:
			if i+1 >= len(path) || path[i+1].Kind != SegmentExpansion {
				return Tree{}, false
			}
			entry, ok := current.fields[segment.Name]
			if !ok {
				return Tree{}, false
			}
			sub, ok := entry.expansions[path[i+1].Name]
			if !ok {
				return Tree{}, false
			}
			current = sub
			i++
		default:
			return Tree{}, false
		}
	}
	return current, true
}

// Put writes value at path without consulting a schema and returns the new
// tree. The input tree is never modified. Structurally invalid paths (an
// expansion segment not preceded by a field, a path ending on a subtree)
// return t unchanged with ok=false.
func Put(t Tree, path Path, value any) (Tree, bool) {
	if len(path) == 0 {
		return t, false
	}
	return put(t, path, Normalize(value))
}

func put(t Tree, path Path, value any) (Tree, bool) {
	segment := path[0]
	switch segment.Kind {
	case SegmentField:
		entry := t.fields[segment.Name]
		if len(path) == 1 {
			entry = Entry{Current: value, expansions: entry.expansions}
			return t.withEntry(segment.Name, entry), true
		}
		next := path[1]
		if next.Kind != SegmentExpansion || len(path) == 2 {
			return t, false
		}
		sub, ok := put(entry.expansions[next.Name], path[2:], value)
		if !ok {
			return t, false
		}
		return t.withEntry(segment.Name, entry.withExpansion(next.Name, sub)), true
	case SegmentChild:
		if len(path) == 1 {
			return t, false
		}
		child, ok := put(t.children[segment.Index], path[1:], value)
		if !ok {
			return t, false
		}
		return t.withChild(segment.Index, child), true
	default:
		return t, false
	}
}
