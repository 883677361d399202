package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expr is a node of a parsed marker expression.
type Expr interface {
	String() string
	Eval(s *Scope) (interface{}, error)
}

type literal struct {
	value interface{}
}

func (n *literal) String() string {
	if str, ok := n.value.(string); ok {
		return strconv.Quote(str)
	}
	return fmt.Sprintf("%v", n.value)
}

func (n *literal) Eval(*Scope) (interface{}, error) { return n.value, nil }

type variable struct {
	name string
}

func (n *variable) String() string { return n.name }

// Eval resolves the variable. Missing variables evaluate to nil so that
// {{if optional}} works without declaring every key.
func (n *variable) Eval(s *Scope) (interface{}, error) {
	v, _ := s.Lookup(n.name)
	return v, nil
}

type binary struct {
	left  Expr
	op    string
	right Expr
}

func (n *binary) String() string {
	return fmt.Sprintf("(%s %s %s)", n.left, n.op, n.right)
}

func (n *binary) Eval(s *Scope) (interface{}, error) {
	left, err := n.left.Eval(s)
	if err != nil {
		return nil, err
	}
	// & and | short-circuit so guards like {{if x & x.y > 1}} are safe.
	switch n.op {
	case "&":
		if !Truthy(left) {
			return false, nil
		}
	case "|":
		if Truthy(left) {
			return true, nil
		}
	}
	right, err := n.right.Eval(s)
	if err != nil {
		return nil, err
	}
	return binaryOp(left, n.op, right)
}

type unary struct {
	op      string
	operand Expr
}

func (n *unary) String() string { return n.op + n.operand.String() }

func (n *unary) Eval(s *Scope) (interface{}, error) {
	v, err := n.operand.Eval(s)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !Truthy(v), nil
	case "-", "+":
		num, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot apply unary %s to %T", n.op, v)
		}
		if n.op == "-" {
			num = -num
		}
		if isInteger(v) {
			return int(num), nil
		}
		return num, nil
	}
	return nil, fmt.Errorf("unknown unary operator: %s", n.op)
}

type field struct {
	object Expr
	name   string
}

func (n *field) String() string { return n.object.String() + "." + n.name }

func (n *field) Eval(s *Scope) (interface{}, error) {
	obj, err := n.object.Eval(s)
	if err != nil {
		return nil, err
	}
	return mapField(obj, n.name), nil
}

type index struct {
	object Expr
	index  Expr
}

func (n *index) String() string { return fmt.Sprintf("%s[%s]", n.object, n.index) }

func (n *index) Eval(s *Scope) (interface{}, error) {
	obj, err := n.object.Eval(s)
	if err != nil {
		return nil, err
	}
	idx, err := n.index.Eval(s)
	if err != nil {
		return nil, err
	}
	if key, ok := idx.(string); ok {
		return mapField(obj, key), nil
	}
	if i, ok := toInt(idx); ok {
		return sliceIndex(obj, i), nil
	}
	return nil, fmt.Errorf("invalid index type: %T", idx)
}

type call struct {
	name string
	args []Expr
}

func (n *call) String() string {
	args := make([]string, len(n.args))
	for i, arg := range n.args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.name, strings.Join(args, ", "))
}

func (n *call) Eval(s *Scope) (interface{}, error) {
	if n.name == "data" && len(n.args) == 0 {
		return s.root(), nil
	}
	fn, ok := s.funcs.Lookup(n.name)
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", n.name)
	}
	args := make([]interface{}, len(n.args))
	for i, arg := range n.args {
		v, err := arg.Eval(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, n.name, err)
		}
		args[i] = v
	}
	out, err := fn.Call(args...)
	if err != nil {
		return nil, NewFunctionError(n.name, args, err)
	}
	return out, nil
}

type exprTokenType int

const (
	exprIdent exprTokenType = iota
	exprNumber
	exprString
	exprOperator
	exprLeftParen
	exprRightParen
	exprComma
	exprEOF
)

type exprToken struct {
	typ   exprTokenType
	value string
	pos   int
}

var (
	identRegex    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`)
	numberRegex   = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
	dqStringRegex = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	sqStringRegex = regexp.MustCompile(`^'([^'\\]|\\.)*'`)
	// Word replaces straight quotes while typing.
	curlyStringRegex = regexp.MustCompile("^[“„]([^“”\"])*[“”\"]")
	operatorRegex    = regexp.MustCompile(`^(==|!=|<=|>=|\+|-|\*|/|%|&&|\|\||&|\||!|<|>|\.|\[|\])`)
)

func tokenizeExpr(expr string) ([]exprToken, error) {
	var tokens []exprToken
	pos := 0
	for pos < len(expr) {
		switch expr[pos] {
		case ' ', '\t', '\n':
			pos++
			continue
		case '(':
			tokens = append(tokens, exprToken{exprLeftParen, "(", pos})
			pos++
			continue
		case ')':
			tokens = append(tokens, exprToken{exprRightParen, ")", pos})
			pos++
			continue
		case ',':
			tokens = append(tokens, exprToken{exprComma, ",", pos})
			pos++
			continue
		}

		rest := expr[pos:]
		if m := identRegex.FindString(rest); m != "" {
			tokens = append(tokens, exprToken{exprIdent, m, pos})
			pos += len(m)
			continue
		}
		if m := numberRegex.FindString(rest); m != "" {
			tokens = append(tokens, exprToken{exprNumber, m, pos})
			pos += len(m)
			continue
		}
		if m := dqStringRegex.FindString(rest); m != "" {
			tokens = append(tokens, exprToken{exprString, unescape(m[1:len(m)-1], `"`), pos})
			pos += len(m)
			continue
		}
		if m := sqStringRegex.FindString(rest); m != "" {
			tokens = append(tokens, exprToken{exprString, unescape(m[1:len(m)-1], `'`), pos})
			pos += len(m)
			continue
		}
		if m := curlyStringRegex.FindString(rest); m != "" {
			r := []rune(m)
			tokens = append(tokens, exprToken{exprString, string(r[1 : len(r)-1]), pos})
			pos += len(m)
			continue
		}
		if m := operatorRegex.FindString(rest); m != "" {
			op := m
			switch m {
			case "&&":
				op = "&"
			case "||":
				op = "|"
			}
			tokens = append(tokens, exprToken{exprOperator, op, pos})
			pos += len(m)
			continue
		}
		return nil, NewParseError(fmt.Sprintf("unexpected character '%c'", expr[pos]), expr, pos)
	}
	return append(tokens, exprToken{typ: exprEOF, pos: pos}), nil
}

func unescape(s, quote string) string {
	s = strings.ReplaceAll(s, `\`+quote, quote)
	return strings.ReplaceAll(s, `\\`, `\`)
}

// ParseExpression parses a marker expression. Trailing tokens are rejected.
func ParseExpression(expr string) (Expr, error) {
	tokens, err := tokenizeExpr(expr)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens, source: expr}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.typ != exprEOF {
		return nil, NewParseError("unexpected trailing token", tok.value, tok.pos)
	}
	return node, nil
}

type exprParser struct {
	tokens []exprToken
	pos    int
	source string
}

func (p *exprParser) current() exprToken {
	if p.pos >= len(p.tokens) {
		return exprToken{typ: exprEOF}
	}
	return p.tokens[p.pos]
}

func (p *exprParser) advance() { p.pos++ }

func (p *exprParser) isOperator(ops ...string) (string, bool) {
	tok := p.current()
	if tok.typ != exprOperator {
		return "", false
	}
	for _, op := range ops {
		if tok.value == op {
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) errorf(format string, args ...interface{}) error {
	tok := p.current()
	return NewParseError(fmt.Sprintf(format, args...), tok.value, tok.pos)
}

// binaryLevel parses one left-associative precedence level.
func (p *exprParser) binaryLevel(next func() (Expr, error), ops ...string) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOperator(ops...)
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binary{left: left, op: op, right: right}
	}
}

func (p *exprParser) parseOr() (Expr, error) { return p.binaryLevel(p.parseAnd, "|") }

func (p *exprParser) parseAnd() (Expr, error) { return p.binaryLevel(p.parseEquality, "&") }

func (p *exprParser) parseEquality() (Expr, error) {
	return p.binaryLevel(p.parseComparison, "==", "!=")
}

func (p *exprParser) parseComparison() (Expr, error) {
	return p.binaryLevel(p.parseTerm, "<", ">", "<=", ">=")
}

func (p *exprParser) parseTerm() (Expr, error) { return p.binaryLevel(p.parseFactor, "+", "-") }

func (p *exprParser) parseFactor() (Expr, error) {
	return p.binaryLevel(p.parseUnary, "*", "/", "%")
}

func (p *exprParser) parseUnary() (Expr, error) {
	if op, ok := p.isOperator("!", "-", "+"); ok {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{op: op, operand: operand}, nil
	}
	return p.parseAccess()
}

func (p *exprParser) parseAccess() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.isOperator("."); ok {
			p.advance()
			if p.current().typ != exprIdent {
				return nil, p.errorf("expected identifier after '.'")
			}
			left = &field{object: left, name: p.current().value}
			p.advance()
			continue
		}
		if _, ok := p.isOperator("["); ok {
			p.advance()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.isOperator("]"); !ok {
				return nil, p.errorf("expected ']' after index")
			}
			p.advance()
			left = &index{object: left, index: idx}
			continue
		}
		return left, nil
	}
}

func (p *exprParser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.typ {
	case exprNumber:
		p.advance()
		if i, err := strconv.Atoi(tok.value); err == nil {
			return &literal{value: i}, nil
		}
		f, err := strconv.ParseFloat(tok.value, 64)
		if err != nil {
			return nil, NewParseError("invalid number", tok.value, tok.pos)
		}
		return &literal{value: f}, nil

	case exprString:
		p.advance()
		return &literal{value: tok.value}, nil

	case exprIdent:
		p.advance()
		switch tok.value {
		case "true", "True":
			return &literal{value: true}, nil
		case "false", "False":
			return &literal{value: false}, nil
		case "null", "nil", "None":
			return &literal{value: nil}, nil
		}
		if p.current().typ == exprLeftParen {
			return p.parseCall(tok.value)
		}
		return &variable{name: tok.value}, nil

	case exprLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current().typ != exprRightParen {
			return nil, p.errorf("expected ')'")
		}
		p.advance()
		return inner, nil

	case exprEOF:
		return nil, NewParseError("unexpected end of expression", p.source, tok.pos)
	}
	return nil, p.errorf("unexpected token")
}

func (p *exprParser) parseCall(name string) (Expr, error) {
	p.advance() // (
	node := &call{name: name}
	if p.current().typ == exprRightParen {
		p.advance()
		return node, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		node.args = append(node.args, arg)
		switch p.current().typ {
		case exprComma:
			p.advance()
		case exprRightParen:
			p.advance()
			return node, nil
		default:
			return nil, p.errorf("expected ',' or ')' in arguments of %s", name)
		}
	}
}
