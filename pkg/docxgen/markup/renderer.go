// Package markup renders Markdown text into WordprocessingML body fragments
// using the formatting fragments of a style bundle.
package markup

import (
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
)

// DefaultTableWidth is the grid width, in twips, shared by table columns.
const DefaultTableWidth = 9016

// LinkResolver registers an external hyperlink target and returns its
// relationship id.
type LinkResolver interface {
	AddHyperlink(url string) (string, error)
}

// ImageSource turns an image reference into an inline w:r fragment.
type ImageSource interface {
	InlinePicture(src string) (string, error)
}

// Options wires the renderer to the document being generated. Every field
// is optional.
type Options struct {
	// Numbering restarts ordered lists. Without it list items keep the
	// numbering of the bundle's list fragments.
	Numbering  *numbering.Allocator
	Links      LinkResolver
	Images     ImageSource
	TableWidth int
	Logger     *logging.Logger
}

// Result is one rendered fragment and the warnings collected while
// producing it.
type Result struct {
	XML      string
	Warnings []string
}

// Renderer converts Markdown (or HTML, through Markdown) to body XML.
type Renderer struct {
	opts     Options
	markdown goldmark.Markdown
	html     *md.Converter
}

// New creates a renderer.
func New(opts Options) *Renderer {
	if opts.TableWidth <= 0 {
		opts.TableWidth = DefaultTableWidth
	}
	opts.Logger = logging.OrDiscard(opts.Logger)

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Renderer{
		opts: opts,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		),
		html: converter,
	}
}

// Render converts Markdown source. Each call starts from an empty context.
func (r *Renderer) Render(source string, bundle *styles.Bundle) (Result, error) {
	if bundle == nil {
		return Result{}, rendering.New("No style available to render markdown")
	}

	src := []byte(source)
	doc := r.markdown.Parser().Parse(text.NewReader(src))

	c := newContext(r, src, bundle)
	c.document(doc)

	res := Result{XML: c.out.String(), Warnings: c.warnings.List()}
	for _, warn := range res.Warnings {
		r.opts.Logger.Info("%s", warn)
	}
	r.opts.Logger.Info("Adding Markdown after processing ... %d characters.", len(res.XML))
	return res, nil
}

// RenderHTML converts HTML to Markdown and renders the result.
func (r *Renderer) RenderHTML(html string, bundle *styles.Bundle) (Result, error) {
	source, err := r.html.ConvertString(html)
	if err != nil {
		return Result{}, rendering.Wrap(err, "Unable to convert HTML content")
	}
	return r.Render(source, bundle)
}

// listFrame is one open list.
type listFrame struct {
	fragment string
	ordered  bool
	prev     numbering.Item
}

// context holds the state of one Render call.
type context struct {
	*Renderer
	source []byte
	bundle *styles.Bundle
	out    strings.Builder

	// Top true: inline content is returned to the enclosing list item
	// instead of being wrapped in a paragraph.
	suppressParagraph []bool
	// Top true: text is returned escaped instead of being wrapped in a run.
	suppressRun []bool
	lists       []*listFrame
	level       int

	warnings rendering.Warnings
}

func newContext(r *Renderer, src []byte, bundle *styles.Bundle) *context {
	return &context{
		Renderer:          r,
		source:            src,
		bundle:            bundle,
		suppressParagraph: []bool{false},
		suppressRun:       []bool{false},
		level:             -1,
	}
}

// push sets a new top on stack and returns the matching pop.
func push(stack *[]bool, v bool) func() {
	*stack = append(*stack, v)
	return func() { *stack = (*stack)[:len(*stack)-1] }
}

func top(stack []bool) bool {
	return stack[len(stack)-1]
}

func (c *context) pushList(fragment string, ordered bool) func() {
	c.lists = append(c.lists, &listFrame{fragment: fragment, ordered: ordered})
	c.level++
	return func() {
		c.level--
		c.lists = c.lists[:len(c.lists)-1]
	}
}

func (c *context) debug(n ast.Node) {
	if c.opts.Logger.IsDebugMode() {
		c.opts.Logger.Debug("Rendering %s.", n.Kind())
	}
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape makes s safe as w:t character data. Characters XML cannot carry
// become U+FFFD.
func escape(s string) string {
	if strings.IndexFunc(s, invalidXMLRune) >= 0 {
		s = strings.Map(func(r rune) rune {
			if invalidXMLRune(r) {
				return utf8.RuneError
			}
			return r
		}, s)
	}
	return textEscaper.Replace(s)
}

func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
		return true
	}
	return false
}

const urlSafe = "/#:;?=@&+$,-_.~"

// escapeURL percent-encodes every byte outside the unreserved set and the
// URL delimiters.
func escapeURL(raw string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || strings.IndexByte(urlSafe, ch) >= 0 {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0F])
	}
	return b.String()
}
