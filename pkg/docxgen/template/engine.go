package template

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
)

// Engine renders markers in a WordprocessingML tree in place.
//
// A paragraph (or table row) whose only content is a control marker such
// as {{if cond}}, {{for x in xs}}, {{else}} or {{end}} controls the
// paragraphs (or rows) that follow it. Any other marker is rendered inside
// its run.
type Engine struct {
	funcs *Registry
	log   *logging.Logger
}

// NewEngine creates an engine calling the functions of funcs.
func NewEngine(funcs *Registry, logger *logging.Logger) *Engine {
	if funcs == nil {
		funcs = NewRegistry()
	}
	return &Engine{funcs: funcs, log: logging.OrDiscard(logger)}
}

// Render processes every marker below root, which is typically w:body,
// w:hdr or w:ftr.
func (e *Engine) Render(root *etree.Element, data Data) error {
	for _, p := range docx.Descendants(root, tagParagraph) {
		mergeRuns(p)
	}
	return e.container(root, NewScope(data, e.funcs))
}

// container renders the children of parent and puts the result back.
func (e *Engine) container(parent *etree.Element, s *Scope) error {
	children := parent.ChildElements()
	out, err := e.elements(children, s)
	if err != nil {
		return err
	}
	for _, c := range children {
		parent.RemoveChild(c)
	}
	for _, c := range out {
		parent.AddChild(c)
	}
	return nil
}

func (e *Engine) elements(list []*etree.Element, s *Scope) ([]*etree.Element, error) {
	var out []*etree.Element
	for i := 0; i < len(list); {
		tok, ok := blockControl(list[i])
		if !ok {
			rendered, err := e.element(list[i], s)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
			i++
			continue
		}

		st, err := findStructure(list, i, tok)
		if err != nil {
			return nil, err
		}
		e.log.Debug("Rendering {{%s %s}} over %d elements", tok.Type, tok.Value, st.end-i-1)

		switch tok.Type {
		case TokenIf, TokenUnless:
			body, err := st.choose(s)
			if err != nil {
				return nil, err
			}
			rendered, err := e.elements(list[body.start:body.stop], s)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
		case TokenFor:
			l, err := parseLoop(tok.Value)
			if err != nil {
				return nil, err
			}
			scopes, err := l.scopes(s)
			if err != nil {
				return nil, err
			}
			for _, iter := range scopes {
				rendered, err := e.elements(copyAll(list[i+1:st.end]), iter)
				if err != nil {
					return nil, err
				}
				out = append(out, rendered...)
			}
		}
		i = st.end + 1
	}
	return out, nil
}

func copyAll(list []*etree.Element) []*etree.Element {
	out := make([]*etree.Element, len(list))
	for i, el := range list {
		out[i] = el.Copy()
	}
	return out
}

func (e *Engine) element(el *etree.Element, s *Scope) ([]*etree.Element, error) {
	switch el.FullTag() {
	case tagParagraph:
		return e.paragraph(el, s)
	case tagTable, tagRow, tagSdtContent, "w:sdt":
		if err := e.container(el, s); err != nil {
			return nil, err
		}
	case tagCell:
		if err := e.container(el, s); err != nil {
			return nil, err
		}
		// A cell must end with a paragraph.
		children := el.ChildElements()
		if len(children) == 0 || children[len(children)-1].FullTag() != tagParagraph {
			el.CreateElement(tagParagraph)
		}
	}
	return []*etree.Element{el}, nil
}

// blockControl returns the control token when el is a paragraph or a row
// holding a single control marker and nothing else.
func blockControl(el *etree.Element) (Token, bool) {
	if el.FullTag() != tagParagraph && el.FullTag() != tagRow {
		return Token{}, false
	}
	text := strings.TrimSpace(docx.ParagraphText(el))
	if !strings.HasPrefix(text, "{{") {
		return Token{}, false
	}
	tokens := Tokenize(text)
	if len(tokens) != 1 || !tokens[0].Type.control() {
		return Token{}, false
	}
	return tokens[0], true
}

// arm is one branch of a block structure: the control token and the
// elements it governs.
type arm struct {
	tok   Token
	start int
	stop  int
}

type structure struct {
	arms []arm
	end  int
}

// findStructure locates the {{end}} matching the control at list[open]
// and the else/elsif arms at the same depth.
func findStructure(list []*etree.Element, open int, tok Token) (*structure, error) {
	switch tok.Type {
	case TokenIf, TokenUnless, TokenFor:
	default:
		return nil, NewParseError(fmt.Sprintf("unexpected {{%s}}", tok.Type), tok.Value, open)
	}

	st := &structure{arms: []arm{{tok: tok, start: open + 1}}}
	depth := 1
	for i := open + 1; i < len(list); i++ {
		t, ok := blockControl(list[i])
		if !ok {
			continue
		}
		switch {
		case t.Type.opens():
			depth++
		case t.Type == TokenEnd:
			depth--
			if depth == 0 {
				st.arms[len(st.arms)-1].stop = i
				st.end = i
				return st, nil
			}
		case depth == 1 && (t.Type == TokenElse || t.Type == TokenElsif):
			last := &st.arms[len(st.arms)-1]
			if tok.Type == TokenFor || last.tok.Type == TokenElse || (t.Type == TokenElsif && tok.Type == TokenUnless) {
				return nil, NewParseError(fmt.Sprintf("unexpected {{%s}}", t.Type), t.Value, i)
			}
			last.stop = i
			st.arms = append(st.arms, arm{tok: t, start: i + 1})
		}
	}
	return nil, unterminated(tok)
}

// choose returns the arm whose condition holds, or an empty arm.
func (st *structure) choose(s *Scope) (arm, error) {
	for _, a := range st.arms {
		c := &clause{}
		if a.tok.Type != TokenElse {
			var err error
			if c, err = newClause(a.tok); err != nil {
				return arm{}, err
			}
		}
		ok, err := c.holds(s)
		if err != nil {
			return arm{}, err
		}
		if ok {
			return a, nil
		}
	}
	return arm{}, nil
}

// piece is a rendered paragraph child, or a group of body elements that
// splits the paragraph.
type piece struct {
	el    *etree.Element
	block []*etree.Element
	split bool
}

func (e *Engine) paragraph(p *etree.Element, s *Scope) ([]*etree.Element, error) {
	if !strings.Contains(docx.ParagraphText(p), "{{") {
		return []*etree.Element{p}, nil
	}

	var pieces []piece
	split := false
	for _, c := range p.ChildElements() {
		switch c.FullTag() {
		case tagRun:
			rendered, err := e.run(c, s)
			if err != nil {
				return nil, err
			}
			for _, pc := range rendered {
				split = split || pc.split
			}
			pieces = append(pieces, rendered...)
		case tagHyperlink:
			if err := e.hyperlink(c, s); err != nil {
				return nil, err
			}
			pieces = append(pieces, piece{el: c})
		default:
			pieces = append(pieces, piece{el: c})
		}
	}

	if !split {
		for _, c := range p.ChildElements() {
			p.RemoveChild(c)
		}
		for _, pc := range pieces {
			p.AddChild(pc.el)
		}
		return []*etree.Element{p}, nil
	}

	pPr := p.SelectElement(tagParaProps)
	shell := func() *etree.Element {
		np := etree.NewElement(tagParagraph)
		if pPr != nil {
			np.AddChild(pPr.Copy())
		}
		return np
	}

	var out []*etree.Element
	cur := shell()
	for _, pc := range pieces {
		switch {
		case pc.split:
			if hasContent(cur) {
				out = append(out, cur)
			}
			out = append(out, pc.block...)
			cur = shell()
		case pc.el.FullTag() != tagParaProps:
			cur.AddChild(pc.el)
		}
	}
	if hasContent(cur) {
		out = append(out, cur)
	}
	return out, nil
}

// hasContent reports whether a paragraph shows anything.
func hasContent(p *etree.Element) bool {
	for _, t := range docx.Descendants(p, tagText) {
		if strings.TrimSpace(t.Text()) != "" {
			return true
		}
	}
	return p.FindElement(".//w:drawing") != nil || p.FindElement(".//w:pict") != nil
}

// run renders the markers of one run. Markup values end the current run:
// inline markup is inserted next to it, block markup splits the paragraph.
func (e *Engine) run(r *etree.Element, s *Scope) ([]piece, error) {
	if !strings.Contains(runText(r), "{{") {
		return []piece{{el: r}}, nil
	}

	rPr := r.SelectElement(tagRunProps)
	var pieces []piece
	cur := newRun(rPr)
	flush := func() {
		if hasRunContent(cur) {
			pieces = append(pieces, piece{el: cur})
		}
		cur = newRun(rPr)
	}

	for _, c := range r.ChildElements() {
		switch c.FullTag() {
		case tagRunProps:
			continue
		case tagText:
			nodes, err := parse(c.Text())
			if err != nil {
				return nil, err
			}
			var o output
			if err := renderNodes(nodes, s, &o); err != nil {
				return nil, err
			}
			for _, seg := range o.segments {
				if seg.markup == nil {
					appendText(cur, seg.text)
					continue
				}
				flush()
				els, err := docx.ParseFragment(seg.markup.XML)
				if err != nil {
					return nil, err
				}
				if seg.markup.Block {
					pieces = append(pieces, piece{block: els, split: true})
					continue
				}
				for _, el := range els {
					pieces = append(pieces, piece{el: el})
				}
			}
		default:
			r.RemoveChild(c)
			cur.AddChild(c)
		}
	}
	flush()
	return pieces, nil
}

func (e *Engine) hyperlink(h *etree.Element, s *Scope) error {
	var out []*etree.Element
	for _, c := range h.ChildElements() {
		if c.FullTag() != tagRun {
			out = append(out, c)
			continue
		}
		pieces, err := e.run(c, s)
		if err != nil {
			return err
		}
		for _, pc := range pieces {
			if pc.split {
				return fmt.Errorf("block content cannot be placed inside a hyperlink")
			}
			out = append(out, pc.el)
		}
	}
	for _, c := range h.ChildElements() {
		h.RemoveChild(c)
	}
	for _, c := range out {
		h.AddChild(c)
	}
	return nil
}
