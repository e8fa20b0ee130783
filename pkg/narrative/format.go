package narrative

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-narrative/pkg/model"
	"github.com/goliatone/go-narrative/pkg/values"
)

// EmptyPlaceholder is the preview text for an unanswered field with neither
// placeholder nor label.
const EmptyPlaceholder = "____"

// FormatList joins items in prose: "a", "a and b", "a, b, and c".
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

// DisplayValue renders a non-empty value for the narrative. Scalars resolve
// through the field's option labels; arrays are label-resolved per member and
// joined with FormatList; booleans read "yes"/"no"; numbers drop trailing
// zeros; anything else is shown as entered.
func DisplayValue(field *model.Field, value any) string {
	if items, ok := values.AsSlice(value); ok {
		labels := make([]string, 0, len(items))
		for _, item := range items {
			if values.IsEmpty(item) {
				continue
			}
			labels = append(labels, displayScalar(field, item))
		}
		return FormatList(labels)
	}
	return displayScalar(field, value)
}

func displayScalar(field *model.Field, value any) string {
	if flag, ok := boolValue(field, value); ok {
		if flag {
			return "yes"
		}
		return "no"
	}
	key := values.Key(value)
	if field != nil && len(field.Options) > 0 {
		return field.OptionLabel(key)
	}
	return key
}

func boolValue(field *model.Field, value any) (bool, bool) {
	if flag, ok := value.(bool); ok {
		return flag, true
	}
	if field == nil || field.Type != model.FieldTypeBoolean || len(field.Options) > 0 {
		return false, false
	}
	text, ok := value.(string)
	if !ok {
		return false, false
	}
	flag, err := strconv.ParseBool(strings.TrimSpace(text))
	return flag, err == nil
}

// PreviewPlaceholder is the bracketed fallback shown in preview mode.
func PreviewPlaceholder(field *model.Field) string {
	if field != nil {
		if text := strings.TrimSpace(field.Placeholder); text != "" {
			return "[" + text + "]"
		}
		if text := strings.TrimSpace(field.Label); text != "" {
			return "[" + text + "]"
		}
	}
	return EmptyPlaceholder
}

var (
	imperativeVerbs = map[string]bool{"enter": true, "provide": true, "specify": true, "type": true, "describe": true, "input": true}
	selectionVerbs  = map[string]bool{"select": true, "choose": true, "pick": true}
	questionWords   = map[string]bool{
		"what": true, "which": true, "who": true, "whom": true, "whose": true, "how": true, "when": true,
		"where": true, "why": true, "is": true, "are": true, "do": true, "does": true, "will": true, "can": true,
	}
	articles = map[string]bool{"a": true, "an": true, "the": true}
)

// QuestionLabel turns a field's label into the question shown on an
// interactive placeholder: "Enter X" reads "What is X?", "Select X" reads
// "Which X?", and text that already asks a question passes through.
func QuestionLabel(field *model.Field) string {
	if field == nil {
		return ""
	}
	return Question(field.DisplayLabel())
}

// Question rewrites a single label. See QuestionLabel.
func Question(label string) string {
	label = strings.TrimSpace(label)
	if strings.HasSuffix(label, "?") {
		return label
	}
	label = strings.TrimSpace(strings.TrimRight(label, ":."))
	if label == "" {
		return ""
	}
	words := strings.Fields(label)
	first := strings.ToLower(words[0])
	rest := words[1:]
	switch {
	case imperativeVerbs[first] && len(rest) > 0:
		return "What is " + strings.Join(lowerLead(rest), " ") + "?"
	case selectionVerbs[first] && len(rest) > 0:
		if articles[strings.ToLower(rest[0])] && len(rest) > 1 {
			rest = rest[1:]
		}
		return "Which " + strings.Join(lowerLead(rest), " ") + "?"
	case questionWords[first]:
		return label + "?"
	default:
		return "What is " + strings.Join(lowerLead(words), " ") + "?"
	}
}

// lowerLead lowercases the first word unless it looks like an acronym.
func lowerLead(words []string) []string {
	if len(words) == 0 {
		return words
	}
	out := append([]string(nil), words...)
	first := out[0]
	r, size := utf8.DecodeRuneInString(first)
	if size < len(first) {
		next, _ := utf8.DecodeRuneInString(first[size:])
		if unicode.IsUpper(next) {
			return out
		}
	}
	out[0] = string(unicode.ToLower(r)) + first[size:]
	return out
}
