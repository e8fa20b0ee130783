package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenContains
	tokenIn
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// keywords are matched case-insensitively so schema authors can write
// `a and not b` as well as `a && !b`.
var keywords = map[string]tokenKind{
	"and":      tokenAnd,
	"or":       tokenOr,
	"not":      tokenNot,
	"contains": tokenContains,
	"in":       tokenIn,
	"true":     tokenBool,
	"false":    tokenBool,
	"null":     tokenNull,
	"nil":      tokenNull,
}

func lex(input string) ([]token, error) {
	var out []token
	for pos := 0; pos < len(input); {
		ch := input[pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			pos++
		case ch == '(':
			out = append(out, token{kind: tokenLParen, text: "(", pos: pos})
			pos++
		case ch == ')':
			out = append(out, token{kind: tokenRParen, text: ")", pos: pos})
			pos++
		case ch == '[':
			out = append(out, token{kind: tokenLBracket, text: "[", pos: pos})
			pos++
		case ch == ']':
			out = append(out, token{kind: tokenRBracket, text: "]", pos: pos})
			pos++
		case ch == ',':
			out = append(out, token{kind: tokenComma, text: ",", pos: pos})
			pos++
		case ch == '!':
			if strings.HasPrefix(input[pos:], "!=") {
				out = append(out, token{kind: tokenNeq, text: "!=", pos: pos})
				pos += 2
				continue
			}
			out = append(out, token{kind: tokenNot, text: "!", pos: pos})
			pos++
		case ch == '=':
			if !strings.HasPrefix(input[pos:], "==") {
				return nil, fmt.Errorf("visibility/expr: unexpected '=' at %d; use '=='", pos)
			}
			out = append(out, token{kind: tokenEq, text: "==", pos: pos})
			pos += 2
		case ch == '&':
			if !strings.HasPrefix(input[pos:], "&&") {
				return nil, fmt.Errorf("visibility/expr: unexpected '&' at %d; use '&&'", pos)
			}
			out = append(out, token{kind: tokenAnd, text: "&&", pos: pos})
			pos += 2
		case ch == '|':
			if !strings.HasPrefix(input[pos:], "||") {
				return nil, fmt.Errorf("visibility/expr: unexpected '|' at %d; use '||'", pos)
			}
			out = append(out, token{kind: tokenOr, text: "||", pos: pos})
			pos += 2
		case ch == '"' || ch == '\'':
			text, next, err := lexString(input, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokenString, text: text, pos: pos})
			pos = next
		default:
			start := pos
			for pos < len(input) && isWordByte(input[pos]) {
				pos++
			}
			if start == pos {
				return nil, fmt.Errorf("visibility/expr: unexpected %q at %d", ch, pos)
			}
			out = append(out, classifyWord(input[start:pos], start))
		}
	}
	return out, nil
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for pos := start + 1; pos < len(input); pos++ {
		c := input[pos]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			body := input[start+1 : pos]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			text, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", 0, fmt.Errorf("visibility/expr: invalid string literal at %d: %w", start, err)
			}
			return text, pos + 1, nil
		}
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' || c == '+' || c == '$' ||
		unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func classifyWord(word string, pos int) token {
	if kind, ok := keywords[strings.ToLower(word)]; ok {
		text := strings.ToLower(word)
		if kind == tokenNull {
			text = "null"
		}
		return token{kind: kind, text: text, pos: pos}
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokenNumber, text: word, pos: pos}
	}
	return token{kind: tokenIdent, text: word, pos: pos}
}
