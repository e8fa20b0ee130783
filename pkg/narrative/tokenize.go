package narrative

import "regexp"

// TokenKind distinguishes literal template text from field references.
type TokenKind string

const (
	TokenText  TokenKind = "text"
	TokenField TokenKind = "field"
)

// Token is one piece of a split template.
type Token struct {
	Kind    TokenKind
	Text    string
	FieldID string
}

var fieldToken = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

// Tokenize splits template into literal text and {fieldId} references, in
// order. Braces that do not enclose a valid id stay in the literal text.
func Tokenize(template string) []Token {
	if template == "" {
		return nil
	}
	matches := fieldToken.FindAllStringSubmatchIndex(template, -1)
	out := make([]Token, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			out = append(out, Token{Kind: TokenText, Text: template[last:m[0]]})
		}
		id := template[m[2]:m[3]]
		out = append(out, Token{Kind: TokenField, Text: template[m[0]:m[1]], FieldID: id})
		last = m[1]
	}
	if last < len(template) {
		out = append(out, Token{Kind: TokenText, Text: template[last:]})
	}
	return out
}
