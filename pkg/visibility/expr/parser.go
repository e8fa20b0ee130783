package expr

import (
	"errors"
	"fmt"
	"strconv"
)

type node interface {
	eval(env lookupFunc) (bool, error)
}

type lookupFunc func(name string) (any, bool)

type orNode struct{ left, right node }

func (n orNode) eval(env lookupFunc) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(env)
}

type andNode struct{ left, right node }

func (n andNode) eval(env lookupFunc) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(env)
}

type notNode struct{ inner node }

func (n notNode) eval(env lookupFunc) (bool, error) {
	ok, err := n.inner.eval(env)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ name string }

func (n truthyNode) eval(env lookupFunc) (bool, error) {
	value, ok := env(n.name)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type compareNode struct {
	name     string
	op       tokenKind
	operands []any
}

func (n compareNode) eval(env lookupFunc) (bool, error) {
	value, _ := env(n.name)
	switch n.op {
	case tokenEq:
		return matches(value, n.operands[0]), nil
	case tokenNeq:
		return !matches(value, n.operands[0]), nil
	case tokenContains:
		return contains(value, n.operands[0]), nil
	case tokenIn:
		for _, operand := range n.operands {
			if matches(value, operand) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("visibility/expr: unsupported operator on %q", n.name)
	}
}

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, fmt.Errorf("visibility/expr: unexpected %q at %d", tok.text, tok.pos)
	}
	return root, nil
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokenAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokenNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(tokenLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	tok, ok := p.peek()
	if !ok {
		return nil, errors.New("visibility/expr: unexpected end of expression")
	}
	if tok.kind != tokenIdent {
		return nil, fmt.Errorf("visibility/expr: expected field name at %d, got %q", tok.pos, tok.text)
	}
	p.pos++

	switch {
	case p.accept(tokenEq):
		return p.compare(tok.text, tokenEq)
	case p.accept(tokenNeq):
		return p.compare(tok.text, tokenNeq)
	case p.accept(tokenContains):
		return p.compare(tok.text, tokenContains)
	case p.accept(tokenIn):
		list, err := p.list()
		if err != nil {
			return nil, err
		}
		return compareNode{name: tok.text, op: tokenIn, operands: list}, nil
	default:
		return truthyNode{name: tok.text}, nil
	}
}

func (p *parser) compare(name string, op tokenKind) (node, error) {
	operand, err := p.literal()
	if err != nil {
		return nil, err
	}
	return compareNode{name: name, op: op, operands: []any{operand}}, nil
}

func (p *parser) list() ([]any, error) {
	if !p.accept(tokenLBracket) {
		return nil, errors.New("visibility/expr: 'in' expects a [list]")
	}
	var out []any
	if p.accept(tokenRBracket) {
		return out, nil
	}
	for {
		item, err := p.literal()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		if p.accept(tokenRBracket) {
			return out, nil
		}
		if !p.accept(tokenComma) {
			return nil, errors.New("visibility/expr: expected ',' or ']' in list")
		}
	}
}

func (p *parser) literal() (any, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, errors.New("visibility/expr: missing literal")
	}
	p.pos++
	switch tok.kind {
	case tokenString, tokenIdent:
		// bare words compare as strings
		return tok.text, nil
	case tokenNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("visibility/expr: invalid number %q", tok.text)
		}
		return f, nil
	case tokenBool:
		return tok.text == "true", nil
	case tokenNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("visibility/expr: expected literal at %d, got %q", tok.pos, tok.text)
	}
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	tok, ok := p.peek()
	if !ok || tok.kind != kind {
		return false
	}
	p.pos++
	return true
}
