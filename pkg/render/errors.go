package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/validation"
	"github.com/goliatone/go-narrative/pkg/values"
)

// ErrorMapping splits an external error payload into field-level and
// form-level messages keyed by dotted value paths.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Summary aggregates validation failures for a form-level banner.
type Summary struct {
	Count    int      `json:"count"`
	Fields   []string `json:"fields,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// Empty reports whether the summary holds no failures.
func (s Summary) Empty() bool {
	return s.Count == 0
}

func (s Summary) String() string {
	switch {
	case s.Count == 0:
		return "no problems"
	case len(s.Fields) == 1:
		return fmt.Sprintf("%d problem(s) in 1 field", s.Count)
	default:
		return fmt.Sprintf("%d problem(s) in %d fields", s.Count, len(s.Fields))
	}
}

// Summarize counts failures and lists the failing paths in order along with
// their de-duplicated messages.
func Summarize(errs validation.Errors) Summary {
	summary := Summary{Count: errs.Count(), Fields: errs.Paths()}
	var messages []string
	for _, path := range summary.Fields {
		messages = append(messages, errs.Messages(path)...)
	}
	summary.Messages = normalizeMessages(messages)
	return summary
}

// Lines formats every failure as "Label: message", labels resolved against
// module and falling back to the dotted path.
func Lines(module *model.Module, errs validation.Errors) []string {
	scope := module.Scope()
	var out []string
	for _, path := range errs.Paths() {
		label := path
		if target, ok := values.Resolve(scope, values.ParsePath(path)); ok && target.Field != nil {
			label = target.Field.DisplayLabel()
		}
		for _, message := range normalizeMessages(errs.Messages(path)) {
			out = append(out, label+": "+message)
		}
	}
	return out
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload normalises server error payloads (JSON pointers, bracketed
// indexes, wrapper prefixes such as body/data) into the dotted value paths of
// module. Numeric segments address child sentences. Unknown paths are treated
// as form-level errors so messages are not lost.
func MapErrorPayload(module *model.Module, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		return mapping
	}

	fieldPaths := make(map[string]struct{})
	collectFieldPaths(module.Scope(), nil, fieldPaths)

	for rawPath, messages := range payload {
		normalizedMessages := normalizeMessages(messages)
		if len(normalizedMessages) == 0 {
			continue
		}

		mapped, formLevel := mapErrorPath(rawPath, fieldPaths)
		if formLevel || mapped == "" {
			mapping.Form = append(mapping.Form, normalizedMessages...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], normalizedMessages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// Errors converts the field-level messages into custom failures so they can
// be merged with locally computed validation errors.
func (m ErrorMapping) Errors() validation.Errors {
	if len(m.Fields) == 0 {
		return nil
	}
	out := make(validation.Errors, len(m.Fields))
	for path, messages := range m.Fields {
		for _, message := range normalizeMessages(messages) {
			out[path] = append(out[path], validation.Failure{Kind: model.RuleCustom, Message: message})
		}
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, fieldPaths map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}

	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", true
	}

	best := ""
	for _, variant := range buildSegmentVariants(segments) {
		if path := longestMatchingPath(variant, fieldPaths); path != "" {
			if len(pathSegments(path)) > len(pathSegments(best)) {
				best = path
			}
		}
	}

	if best != "" {
		return best, false
	}
	return "", true
}

func parsePathSegments(path string) []string {
	if path == "" {
		return nil
	}

	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$/")
	clean = strings.TrimPrefix(clean, "$.")
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = replacer.Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func buildSegmentVariants(segments []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)

	appendVariant := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, append([]string(nil), candidate...))
	}

	appendVariant(segments)

	noWrappers := dropWrapperSegments(segments)
	appendVariant(noWrappers)
	appendVariant(childSegments(segments))
	appendVariant(childSegments(noWrappers))

	return variants
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"values":  {},
	}

	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; ok {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

// childSegments rewrites bare indexes into child_<n> segments.
func childSegments(segments []string) []string {
	out := make([]string, len(segments))
	for i, segment := range segments {
		if n, err := strconv.Atoi(segment); err == nil && n >= 0 {
			out[i] = values.Child(n).String()
			continue
		}
		out[i] = segment
	}
	return out
}

func longestMatchingPath(segments []string, fieldPaths map[string]struct{}) string {
	if len(segments) == 0 || len(fieldPaths) == 0 {
		return ""
	}

	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := fieldPaths[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func pathSegments(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// collectFieldPaths records the path of every field reachable from scope,
// including fields inside expansions and child sentences.
func collectFieldPaths(scope model.Scope, base values.Path, dest map[string]struct{}) {
	maxChildren := 0
	for _, sentence := range scope {
		for _, id := range sentence.FieldIDs() {
			field, ok := sentence.Field(id)
			if !ok {
				continue
			}
			path := base.Append(values.Field(id))
			dest[path.String()] = struct{}{}
			for _, key := range field.ExpansionKeys() {
				expansion, _ := field.Expansion(key)
				collectFieldPaths(model.Single(expansion), path.Append(values.Expansion(key)), dest)
			}
		}
		if len(sentence.Children) > maxChildren {
			maxChildren = len(sentence.Children)
		}
	}
	for idx := 0; idx < maxChildren; idx++ {
		collectFieldPaths(scope.Child(idx), base.Append(values.Child(idx)), dest)
	}
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "module", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
