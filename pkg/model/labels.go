package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler converts a field id into a human-friendly label. It splits
// on underscores/dashes and camelCase boundaries.
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	words := splitWordsPattern.Split(name, -1)
	var segments []string
	for _, word := range words {
		if word == "" {
			continue
		}
		segment := strings.ToLower(splitCamel(word))
		if len(segments) == 0 {
			segment = upperFirst(segment)
		}
		segments = append(segments, segment)
	}
	return strings.TrimSpace(strings.Join(segments, " "))
}

// DisplayLabel returns the label shown for the field, falling back to the
// placeholder and finally to a label derived from the id.
func (f *Field) DisplayLabel() string {
	if f == nil {
		return ""
	}
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	if placeholder := strings.TrimSpace(f.Placeholder); placeholder != "" {
		return placeholder
	}
	return DefaultLabeler(f.ID)
}

// OptionLabel returns the label of the option whose value equals value. The
// value itself is returned when no option matches or the option has no label.
func (f *Field) OptionLabel(value string) string {
	if f == nil {
		return value
	}
	for _, option := range f.Options {
		if option.Value != value {
			continue
		}
		if label := strings.TrimSpace(option.Label); label != "" {
			return label
		}
		return value
	}
	return value
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }

func upperFirst(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
