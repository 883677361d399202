package markup

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
)

const defaultTableProperties = `<w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>`

func (c *context) document(doc ast.Node) {
	c.blocks(doc)
	c.warnings.Merge(c.bundle.Warnings())
}

func (c *context) blocks(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		c.block(n)
	}
}

// block renders one block node. A paragraph rendered while paragraphs are
// suppressed returns its inline content instead of emitting it.
func (c *context) block(n ast.Node) string {
	c.debug(n)
	switch n := n.(type) {
	case *ast.Heading:
		c.paragraph(c.bundle.Fragment(styles.HeaderRole(n.Level)), c.inlines(n))
	case *ast.Paragraph, *ast.TextBlock:
		inner := c.inlines(n)
		if top(c.suppressParagraph) {
			return inner
		}
		c.paragraph(c.bundle.Fragment(styles.RoleParagraph), inner)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		c.codeBlock(n)
	case *ast.Blockquote:
		c.quote(n)
	case *ast.List:
		c.list(n)
	case *ast.ThematicBreak:
		c.warnings.Add("Markdown ThematicBreak is not implemented. It will be ignored")
	case *ast.HTMLBlock:
		c.warnings.Add("Markdown HTMLBlock is not implemented. It will be ignored")
	case *east.Table:
		c.table(n)
	default:
		c.blocks(n)
	}
	return ""
}

func (c *context) paragraph(pPr, inner string) {
	c.out.WriteString("<w:p>")
	c.out.WriteString(pPr)
	c.out.WriteString(inner)
	c.out.WriteString("</w:p>")
}

func (c *context) codeBlock(n ast.Node) {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.source))
	}
	code := strings.TrimRight(b.String(), "\n")
	c.paragraph(c.bundle.Fragment(styles.RoleCode), run("", escape(code)))
}

// quote keeps only the inline content of the first quoted block.
func (c *context) quote(n *ast.Blockquote) {
	inner := ""
	if first := n.FirstChild(); first != nil {
		inner = c.inlines(first)
	}
	c.paragraph(c.bundle.Fragment(styles.RoleQuote), inner)
}

func (c *context) list(n *ast.List) {
	role := styles.RoleUnordered
	if n.IsOrdered() {
		role = styles.RoleOrdered
	}
	pop := c.pushList(c.bundle.Fragment(role), n.IsOrdered())
	defer pop()

	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		if li, ok := item.(*ast.ListItem); ok {
			c.listItem(li)
		}
	}
}

// listItem emits the item paragraph followed by any nested blocks. Text
// following a nested block goes to a plain paragraph.
func (c *context) listItem(n *ast.ListItem) {
	c.debug(n)
	frame := c.lists[len(c.lists)-1]
	pop := push(&c.suppressParagraph, true)
	defer pop()

	var inline strings.Builder
	opened := false
	flush := func() {
		if !opened {
			c.paragraph(c.listProperties(frame), inline.String())
			opened = true
		} else if inline.Len() > 0 {
			c.paragraph(c.bundle.Fragment(styles.RoleParagraph), inline.String())
		}
		inline.Reset()
	}

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			inline.WriteString(c.block(child))
		default:
			if !opened || inline.Len() > 0 {
				flush()
			}
			c.block(child)
		}
	}
	if !opened || inline.Len() > 0 {
		flush()
	}
}

// listProperties derives the item's w:pPr from the list fragment: the
// numbering level follows the nesting depth, and with an allocator ordered
// lists get their own restarting numbering instance.
func (c *context) listProperties(frame *listFrame) string {
	pPr := etree.NewElement("w:pPr")
	if els, err := docx.ParseFragment(frame.fragment); err == nil && len(els) == 1 && els[0].FullTag() == "w:pPr" {
		pPr = els[0]
	}
	props := numbering.Properties{PPr: pPr}
	props.SetLevel(c.level)

	if alloc := c.opts.Numbering; alloc != nil {
		if frame.ordered {
			prev := frame.prev
			if prev == nil {
				prev = c.enclosingOrdered()
			}
			alloc.Assign(props, prev, c.level, true)
		} else if _, ok := props.ListNumbering(); !ok {
			alloc.Assign(props, frame.prev, c.level, false)
		}
	}
	frame.prev = props
	return docx.ElementXML(pPr)
}

// enclosingOrdered returns the last item of the nearest outer ordered list.
func (c *context) enclosingOrdered() numbering.Item {
	for i := len(c.lists) - 2; i >= 0; i-- {
		if c.lists[i].ordered && c.lists[i].prev != nil {
			return c.lists[i].prev
		}
	}
	return nil
}

func (c *context) table(n *east.Table) {
	cols := 0
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		if cells := row.ChildCount(); cells > cols {
			cols = cells
		}
	}
	if cols == 0 {
		return
	}
	width := c.opts.TableWidth / cols

	tblPr, ok := c.bundle.Get(styles.RoleTable)
	if !ok {
		tblPr = defaultTableProperties
	}
	pPr := c.bundle.Fragment(styles.RoleParagraph)

	var b strings.Builder
	b.WriteString("<w:tbl>")
	b.WriteString(tblPr)
	b.WriteString("<w:tblGrid>")
	for i := 0; i < cols; i++ {
		b.WriteString(`<w:gridCol w:w="` + strconv.Itoa(width) + `"/>`)
	}
	b.WriteString("</w:tblGrid>")

	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		c.debug(row)
		b.WriteString("<w:tr>")
		written := 0
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			b.WriteString(tableCell(width, pPr, c.inlines(cell)))
			written++
		}
		for ; written < cols; written++ {
			b.WriteString(tableCell(width, pPr, ""))
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
	c.out.WriteString(b.String())
}

func tableCell(width int, pPr, inner string) string {
	return `<w:tc><w:tcPr><w:tcW w:w="` + strconv.Itoa(width) + `" w:type="dxa"/></w:tcPr><w:p>` +
		pPr + inner + `</w:p></w:tc>`
}
