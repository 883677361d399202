package template

import (
	"fmt"
	"strings"
)

// Markup is document markup returned by a function. Inline markup holds
// runs or hyperlinks and is spliced into the current paragraph; block
// markup holds paragraphs or tables and replaces the paragraph containing
// the marker.
type Markup struct {
	XML   string
	Block bool
}

// InlineMarkup wraps run level XML.
func InlineMarkup(xml string) Markup { return Markup{XML: xml} }

// BlockMarkup wraps body level XML.
func BlockMarkup(xml string) Markup { return Markup{XML: xml, Block: true} }

type segment struct {
	text   string
	markup *Markup
}

// output collects rendered text and markup in order.
type output struct {
	segments []segment
}

func (o *output) text(s string) {
	if s == "" {
		return
	}
	if n := len(o.segments); n > 0 && o.segments[n-1].markup == nil {
		o.segments[n-1].text += s
		return
	}
	o.segments = append(o.segments, segment{text: s})
}

func (o *output) value(v interface{}) {
	switch m := v.(type) {
	case Markup:
		o.segments = append(o.segments, segment{markup: &m})
	case *Markup:
		if m != nil {
			o.segments = append(o.segments, segment{markup: m})
		}
	default:
		o.text(FormatValue(v))
	}
}

// String flattens the output, writing markup as its XML.
func (o *output) String() string {
	var b strings.Builder
	for _, seg := range o.segments {
		if seg.markup != nil {
			b.WriteString(seg.markup.XML)
			continue
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

// node is an element of an inline template.
type node interface {
	render(s *Scope, out *output) error
}

type textNode string

func (n textNode) render(_ *Scope, out *output) error {
	out.text(string(n))
	return nil
}

type exprNode struct {
	source string
	expr   Expr
}

func (n *exprNode) render(s *Scope, out *output) error {
	v, err := evaluate(n.source, n.expr, s)
	if err != nil {
		return err
	}
	out.value(v)
	return nil
}

// clause is one arm of an if/unless chain. A nil condition is the else arm.
type clause struct {
	source string
	cond   Expr
	negate bool
	body   []node
}

type condNode struct {
	clauses []*clause
}

func (n *condNode) render(s *Scope, out *output) error {
	for _, c := range n.clauses {
		ok, err := c.holds(s)
		if err != nil {
			return err
		}
		if ok {
			return renderNodes(c.body, s, out)
		}
	}
	return nil
}

func (c *clause) holds(s *Scope) (bool, error) {
	if c.cond == nil {
		return true, nil
	}
	v, err := evaluate(c.source, c.cond, s)
	if err != nil {
		return false, err
	}
	return Truthy(v) != c.negate, nil
}

type forNode struct {
	loop *loop
	body []node
}

func (n *forNode) render(s *Scope, out *output) error {
	scopes, err := n.loop.scopes(s)
	if err != nil {
		return err
	}
	for _, iter := range scopes {
		if err := renderNodes(n.body, iter, out); err != nil {
			return err
		}
	}
	return nil
}

func renderNodes(nodes []node, s *Scope, out *output) error {
	for _, n := range nodes {
		if err := n.render(s, out); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(source string, expr Expr, s *Scope) (interface{}, error) {
	v, err := expr.Eval(s)
	if err != nil {
		if _, ok := err.(*FunctionError); ok {
			return nil, err
		}
		return nil, NewEvaluationError(source, err)
	}
	return v, nil
}

// loop is the header of a for structure: "item in items" or
// "i, item in items".
type loop struct {
	source     string
	index      string
	item       string
	collection Expr
}

func parseLoop(header string) (*loop, error) {
	header = strings.TrimSpace(header)
	at := strings.Index(header, " in ")
	if at < 0 {
		return nil, NewParseError("invalid for loop syntax: missing 'in' keyword", header, 0)
	}
	l := &loop{source: header}
	vars := strings.Split(header[:at], ",")
	switch len(vars) {
	case 1:
		l.item = strings.TrimSpace(vars[0])
	case 2:
		l.index = strings.TrimSpace(vars[0])
		l.item = strings.TrimSpace(vars[1])
	default:
		return nil, NewParseError("invalid for loop variables", header[:at], 0)
	}
	for _, name := range []string{l.index, l.item} {
		if name != "" && identRegex.FindString(name) != name {
			return nil, NewParseError("invalid loop variable", name, 0)
		}
	}
	if l.item == "" {
		return nil, NewParseError("missing loop variable", header, 0)
	}
	expr, err := ParseExpression(header[at+4:])
	if err != nil {
		return nil, err
	}
	l.collection = expr
	return l, nil
}

// scopes evaluates the collection and returns one scope per item.
func (l *loop) scopes(s *Scope) ([]*Scope, error) {
	v, err := evaluate(l.source, l.collection, s)
	if err != nil {
		return nil, err
	}
	items, err := toSlice(v)
	if err != nil {
		return nil, NewEvaluationError(l.source, err)
	}
	out := make([]*Scope, len(items))
	for i, item := range items {
		vars := map[string]interface{}{l.item: item}
		if l.index != "" {
			vars[l.index] = i
		}
		out[i] = s.Child(vars)
	}
	return out, nil
}

// newClause builds an if, elsif or unless arm from its token.
func newClause(tok Token) (*clause, error) {
	if tok.Value == "" {
		return nil, NewParseError(fmt.Sprintf("missing condition after %s", tok.Type), "", tok.Pos)
	}
	expr, err := ParseExpression(tok.Value)
	if err != nil {
		return nil, err
	}
	return &clause{source: tok.Value, cond: expr, negate: tok.Type == TokenUnless}, nil
}

// parse compiles inline template text, such as the text of one run.
func parse(text string) ([]node, error) {
	p := &parser{tokens: Tokenize(text)}
	nodes, stop, err := p.body()
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, NewParseError(fmt.Sprintf("unexpected {{%s}}", stop.Type), stop.Value, stop.Pos)
	}
	return nodes, nil
}

type parser struct {
	tokens []Token
	pos    int
}

// body parses nodes until end of input or a token that closes or
// continues the enclosing structure, which is returned.
func (p *parser) body() ([]node, *Token, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		switch tok.Type {
		case TokenText:
			nodes = append(nodes, textNode(tok.Value))
		case TokenExpression:
			expr, err := ParseExpression(tok.Value)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, &exprNode{source: tok.Value, expr: expr})
		case TokenIf, TokenUnless:
			n, err := p.conditional(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case TokenFor:
			l, err := parseLoop(tok.Value)
			if err != nil {
				return nil, nil, err
			}
			inner, stop, err := p.body()
			if err != nil {
				return nil, nil, err
			}
			if stop == nil || stop.Type != TokenEnd {
				return nil, nil, unterminated(tok)
			}
			nodes = append(nodes, &forNode{loop: l, body: inner})
		default:
			return nodes, &tok, nil
		}
	}
	return nodes, nil, nil
}

func (p *parser) conditional(open Token) (node, error) {
	first, err := newClause(open)
	if err != nil {
		return nil, err
	}
	n := &condNode{clauses: []*clause{first}}
	current := first
	for {
		inner, stop, err := p.body()
		if err != nil {
			return nil, err
		}
		current.body = inner
		if stop == nil {
			return nil, unterminated(open)
		}
		switch {
		case stop.Type == TokenEnd:
			return n, nil
		case stop.Type == TokenElsif && open.Type == TokenIf && current.cond != nil:
			current, err = newClause(*stop)
			if err != nil {
				return nil, err
			}
		case stop.Type == TokenElse && current.cond != nil:
			current = &clause{}
		default:
			return nil, NewParseError(fmt.Sprintf("unexpected {{%s}}", stop.Type), stop.Value, stop.Pos)
		}
		n.clauses = append(n.clauses, current)
	}
}

func unterminated(open Token) error {
	return NewParseError(fmt.Sprintf("missing {{end}} for {{%s}}", open.Type), open.Value, open.Pos)
}

// Render evaluates inline template text to plain text. Markup values are
// written as their XML.
func Render(text string, data Data, funcs *Registry) (string, error) {
	nodes, err := parse(text)
	if err != nil {
		return "", err
	}
	var out output
	if err := renderNodes(nodes, NewScope(data, funcs), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}
