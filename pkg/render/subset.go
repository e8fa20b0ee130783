package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-narrative/pkg/narrative"
)

// Subset restricts a document to some of its paragraphs. Paragraphs are
// matched by id (the module id for the module's own sentences, submodule ids
// otherwise) or by title, case-insensitively. The zero value keeps every
// paragraph.
type Subset struct {
	Paragraphs []string
}

// ParseSubset reads a comma separated list or a JSON array of paragraph ids.
func ParseSubset(raw string) Subset {
	return Subset{Paragraphs: parseTokenList(raw)}
}

// Empty reports whether the subset keeps every paragraph.
func (s Subset) Empty() bool {
	return len(normaliseTokens(s.Paragraphs)) == 0
}

// ApplySubset returns the paragraphs selected by subset, in document order.
// An empty subset returns paragraphs unchanged.
func ApplySubset(paragraphs []narrative.Paragraph, subset Subset) []narrative.Paragraph {
	wanted := normaliseTokens(subset.Paragraphs)
	if len(wanted) == 0 {
		return paragraphs
	}
	var out []narrative.Paragraph
	for _, paragraph := range paragraphs {
		if _, ok := wanted[normaliseToken(paragraph.ID)]; ok {
			out = append(out, paragraph)
			continue
		}
		if title := normaliseToken(paragraph.Title); title != "" {
			if _, ok := wanted[title]; ok {
				out = append(out, paragraph)
			}
		}
	}
	return out
}

func normaliseTokens(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]struct{}, len(values))
	for _, value := range values {
		token := normaliseToken(value)
		if token == "" {
			continue
		}
		result[token] = struct{}{}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func normaliseToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func parseTokenList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var parsed []any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			tokens := make([]string, 0, len(parsed))
			for _, entry := range parsed {
				if token := normaliseToken(fmt.Sprint(entry)); token != "" && entry != nil {
					tokens = append(tokens, token)
				}
			}
			return dedupe(tokens)
		}
	}

	var tokens []string
	for _, part := range strings.Split(raw, ",") {
		if token := normaliseToken(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return dedupe(tokens)
}
