package model

import (
	"regexp"
	"sort"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

// Placeholders returns the field ids referenced by template in order of first
// appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FieldIDs returns the sentence's field ids: those referenced by the template
// first, in template order, followed by the remaining ids sorted.
func (s *Sentence) FieldIDs() []string {
	if s == nil || len(s.Fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Fields))
	seen := make(map[string]struct{}, len(s.Fields))
	for _, id := range Placeholders(s.Template) {
		if _, ok := s.Fields[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	var rest []string
	for id := range s.Fields {
		if _, ok := seen[id]; ok {
			continue
		}
		rest = append(rest, id)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Field returns the field declared under id.
func (s *Sentence) Field(id string) (*Field, bool) {
	if s == nil || s.Fields == nil {
		return nil, false
	}
	field, ok := s.Fields[id]
	if !ok || field == nil {
		return nil, false
	}
	return field, true
}

// Expansion returns the nested sentence triggered by key.
func (f *Field) Expansion(key string) (*Sentence, bool) {
	if f == nil || f.Expansions == nil {
		return nil, false
	}
	sentence, ok := f.Expansions[key]
	if !ok || sentence == nil {
		return nil, false
	}
	return sentence, true
}

// ExpansionKeys returns the declared trigger keys sorted.
func (f *Field) ExpansionKeys() []string {
	if f == nil || len(f.Expansions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f.Expansions))
	for key, sentence := range f.Expansions {
		if sentence == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Scope is an ordered set of sentences sharing one field namespace. The
// top-level sentences of a module form the root scope; child and expansion
// segments of a path narrow it.
type Scope []*Sentence

// Scope returns the module's root scope: module-level sentences followed by
// every submodule's sentences in declaration order.
func (m *Module) Scope() Scope {
	if m == nil {
		return nil
	}
	out := make(Scope, 0, len(m.Sentences))
	for _, sentence := range m.Sentences {
		if sentence != nil {
			out = append(out, sentence)
		}
	}
	for _, sub := range m.Submodules {
		for _, sentence := range sub.Sentences {
			if sentence != nil {
				out = append(out, sentence)
			}
		}
	}
	return out
}

// Field resolves id against the scope. The first sentence declaring it wins.
func (s Scope) Field(id string) (*Field, *Sentence, bool) {
	for _, sentence := range s {
		if field, ok := sentence.Field(id); ok {
			return field, sentence, true
		}
	}
	return nil, nil, false
}

// Child narrows the scope to the index-th child of each sentence that has one.
func (s Scope) Child(index int) Scope {
	if index < 0 {
		return nil
	}
	var out Scope
	for _, sentence := range s {
		if sentence == nil || index >= len(sentence.Children) {
			continue
		}
		if child := sentence.Children[index]; child != nil {
			out = append(out, child)
		}
	}
	return out
}

// Single returns a scope holding only sentence.
func Single(sentence *Sentence) Scope {
	if sentence == nil {
		return nil
	}
	return Scope{sentence}
}
