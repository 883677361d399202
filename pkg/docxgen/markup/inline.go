package markup

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
)

func (c *context) inlines(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b.WriteString(c.inline(n))
	}
	return b.String()
}

func (c *context) inline(n ast.Node) string {
	c.debug(n)
	switch n := n.(type) {
	case *ast.Text:
		out := c.text(escape(string(n.Segment.Value(c.source))))
		if n.HardLineBreak() || n.SoftLineBreak() {
			out += c.lineBreak()
		}
		return out
	case *ast.String:
		return c.text(escape(string(n.Value)))
	case *ast.Emphasis:
		if n.Level >= 2 {
			return c.styledRun(styles.RoleStrong, n)
		}
		return c.styledRun(styles.RoleItalic, n)
	case *ast.CodeSpan:
		return c.styledRun(styles.RoleInlineCode, n)
	case *east.Strikethrough:
		return c.styledRun(styles.RoleStrike, n)
	case *ast.Link:
		return c.link(n)
	case *ast.Image:
		return c.image(n)
	case *ast.AutoLink:
		c.warnings.Add("Markdown AutoLink is not implemented. It will be ignored")
		return ""
	case *ast.RawHTML:
		c.warnings.Add("Markdown RawHTML is not implemented. It will be ignored")
		return ""
	default:
		return c.inlines(n)
	}
}

func (c *context) text(escaped string) string {
	if top(c.suppressRun) {
		return escaped
	}
	return run("", escaped)
}

func (c *context) lineBreak() string {
	if top(c.suppressRun) {
		return "\n"
	}
	return "<w:r><w:br/></w:r>"
}

// styledRun wraps the text of n in one run carrying the role's formatting.
// Inside another styled run only the text is kept.
func (c *context) styledRun(role styles.Role, n ast.Node) string {
	if top(c.suppressRun) {
		return c.inlines(n)
	}
	pop := push(&c.suppressRun, true)
	inner := c.inlines(n)
	pop()
	return run(c.bundle.Fragment(role), inner)
}

func (c *context) link(n *ast.Link) string {
	if top(c.suppressRun) {
		return c.inlines(n)
	}
	target := escapeURL(string(n.Destination))

	pop := push(&c.suppressRun, true)
	inner := c.inlines(n)
	pop()

	r := run(c.bundle.Fragment(styles.RoleHyperlink), inner)
	if c.opts.Links == nil {
		c.warnings.Add("Markdown Link to %s rendered as text. Hyperlinks are not available", target)
		return r
	}
	id, err := c.opts.Links.AddHyperlink(target)
	if err != nil {
		c.warnings.Add("Markdown Link to %s could not be added: %v", target, err)
		return r
	}
	return `<w:hyperlink r:id="` + escape(id) + `" w:tgtFrame="_blank">` + r + `</w:hyperlink>`
}

func (c *context) image(n *ast.Image) string {
	src := string(n.Destination)
	switch {
	case c.opts.Images == nil:
		c.warnings.Add("Markdown Image is not available. It will be ignored")
		return ""
	case top(c.suppressRun):
		c.warnings.Add("Markdown Image inside formatted text is not supported. It will be ignored")
		return ""
	}
	xml, err := c.opts.Images.InlinePicture(src)
	if err != nil {
		c.warnings.Add("Markdown Image %s could not be added: %v", src, err)
		return ""
	}
	return xml
}

// run builds a w:r from escaped text; newlines become w:br.
func run(rPr, escaped string) string {
	const open = `<w:t xml:space="preserve">`
	return "<w:r>" + rPr + open +
		strings.ReplaceAll(escaped, "\n", `</w:t><w:br/>`+open) +
		"</w:t></w:r>"
}
