package values

import (
	"strconv"
	"strings"
)

const (
	expansionPrefix = "expansion_"
	childPrefix     = "child_"
)

// SegmentKind classifies a path segment.
type SegmentKind int

const (
	// SegmentField addresses a field by id.
	SegmentField SegmentKind = iota
	// SegmentExpansion descends into the sentence triggered by Key.
	SegmentExpansion
	// SegmentChild descends into the Index-th unconditional child sentence.
	SegmentChild
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

// Field returns a field segment.
func Field(id string) Segment {
	return Segment{Kind: SegmentField, Name: id}
}

// Expansion returns an expansion segment for the trigger key.
func Expansion(key string) Segment {
	return Segment{Kind: SegmentExpansion, Name: key}
}

// Child returns a child segment.
func Child(index int) Segment {
	return Segment{Kind: SegmentChild, Index: index}
}

// ParseSegment classifies a raw segment. "expansion_<key>" and "child_<n>"
// are reserved; anything else is a field id.
func ParseSegment(raw string) Segment {
	if strings.HasPrefix(raw, expansionPrefix) {
		return Expansion(strings.TrimPrefix(raw, expansionPrefix))
	}
	if strings.HasPrefix(raw, childPrefix) {
		if idx, err := strconv.Atoi(strings.TrimPrefix(raw, childPrefix)); err == nil && idx >= 0 {
			return Child(idx)
		}
	}
	return Field(raw)
}

// String renders the segment in its wire form.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentExpansion:
		return expansionPrefix + s.Name
	case SegmentChild:
		return childPrefix + strconv.Itoa(s.Index)
	default:
		return s.Name
	}
}

// Path addresses a node of a value tree.
type Path []Segment

// ParsePath splits a dotted path such as
// "identifiability_level.expansion_deidentified.method". A backslash escapes
// the next character, so "level.expansion_v1\.0" addresses the expansion
// keyed "v1.0". Empty segments are dropped. ParsePath inverts Path.String.
func ParsePath(raw string) Path {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := splitEscaped(raw)
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, ParseSegment(part))
	}
	return out
}

func splitEscaped(raw string) []string {
	if !strings.Contains(raw, `\`) {
		return strings.Split(raw, ".")
	}
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(parts, current.String())
}

var segmentEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`)

// PathOf builds a path from raw segments without splitting on dots, which
// keeps expansion keys containing dots intact.
func PathOf(segments ...string) Path {
	out := make(Path, 0, len(segments))
	for _, segment := range segments {
		out = append(out, ParseSegment(segment))
	}
	return out
}

// String joins the segments with dots, escaping dots and backslashes inside
// segment names. It is the key used in error maps.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, segment := range p {
		parts[i] = segmentEscaper.Replace(segment.String())
	}
	return strings.Join(parts, ".")
}

// Append returns a new path with segments added. The receiver is never
// modified, so sibling paths built from a shared prefix stay independent.
func (p Path) Append(segments ...Segment) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final segment.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// Equal reports whether both paths hold the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading subsequence of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}
