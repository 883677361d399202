package richtext

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/wml"
)

const (
	codeFont      = "Courier New"
	codeHighlight = "lightGray"

	captionPrefix      = "Figure "
	captionInstruction = ` SEQ Figure \* ARABIC`
	captionSeparator   = ": "
)

// Pictures resolves image nodes to inline drawings. A nil drawing with a
// nil error means the image was deliberately skipped.
type Pictures interface {
	PictureFromUUID(id string) (*wml.Drawing, error)
	PictureFromPath(path string) (*wml.Drawing, error)
}

// Options wires the renderer to the document being generated.
type Options struct {
	// StyleMapping maps node types to paragraph style ids.
	StyleMapping map[string]string
	Numbering    *numbering.Allocator
	Pictures     Pictures
	// PageWidth is the usable page width in EMU. Wider pictures are scaled
	// down to it.
	PageWidth int64
	Logger    *logging.Logger
}

// Subdocument is the result of one render.
type Subdocument struct {
	ID       string
	Blocks   []wml.Block
	Warnings []string
}

// XML serializes the blocks.
func (s *Subdocument) XML() (string, error) {
	return wml.Marshal(s.Blocks...)
}

// Renderer converts rich-text JSON into blocks. Render calls share nothing.
type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.PageWidth <= 0 {
		opts.PageWidth = docx.DefaultContentWidth * docx.EMUPerTwip
	}
	opts.Logger = logging.OrDiscard(opts.Logger)
	return &Renderer{opts: opts}
}

// CorrelationID identifies the log lines of one render.
func CorrelationID(jsonText string) string {
	sum := sha1.Sum([]byte(jsonText))
	return hex.EncodeToString(sum[:])
}

// Render never fails: malformed JSON becomes a single error paragraph and
// failing nodes are left out.
func (r *Renderer) Render(jsonText string) *Subdocument {
	id := CorrelationID(jsonText)
	log := r.opts.Logger.WithField("richtext", id)
	log.Info("Starting RichText rendering")

	nodes, err := ParseOrFallback(jsonText)
	if err != nil {
		log.Error("An error occurred during loading data into JSON")
		log.Debug("%v", err)
	}

	w := &walker{Options: r.opts, log: log}
	var out blocks
	for _, n := range nodes {
		w.node(n, &out, "")
	}
	return &Subdocument{ID: id, Blocks: out, Warnings: w.warnings.List()}
}

// sink receives rendered blocks.
type sink interface {
	add(b wml.Block)
	paragraph() *wml.Paragraph
}

// blocks is a sink at document level, and the staging area of a handler.
type blocks []wml.Block

func (b *blocks) add(blk wml.Block) { *b = append(*b, blk) }

func (b *blocks) paragraph() *wml.Paragraph {
	p := &wml.Paragraph{}
	b.add(p)
	return p
}

// cellSink writes into a table cell.
type cellSink struct{ cell *wml.TableCell }

func (c cellSink) add(blk wml.Block) { c.cell.AddBlock(blk) }

func (c cellSink) paragraph() *wml.Paragraph {
	p := &wml.Paragraph{}
	c.cell.AddBlock(p)
	return p
}

// handler renders into a staging sink. The returned paragraph, if any, is
// the one list numbering applies to.
type handler func(dst sink) (*wml.Paragraph, error)

type walker struct {
	Options
	log      *logging.Logger
	warnings rendering.Warnings
}

// renderOrSkip runs h against a staging sink and commits the staged blocks
// to dst only if h succeeds. Failures, panics included, omit the node.
func (w *walker) renderOrSkip(dst sink, label string, h handler) *wml.Paragraph {
	w.log.Debug("[+] Rendering %s", label)

	var staged blocks
	p, err := w.try(h, &staged)
	if err != nil {
		w.log.Error("An error occurred during %s rendering", label)
		w.log.Debug("Rendering error: %v", err)
		w.warnings.Add("%s skipped: %v", label, err)
		return nil
	}
	for _, b := range staged {
		dst.add(b)
	}
	return p
}

func (w *walker) try(h handler, staged *blocks) (p *wml.Paragraph, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, recovered(rec)
		}
	}()
	return h(staged)
}

func recovered(rec interface{}) error {
	switch v := rec.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// node dispatches one node. forced overrides the style of generic blocks.
func (w *walker) node(n Node, dst sink, forced string) *wml.Paragraph {
	switch n := n.(type) {
	case *ImageByID:
		return w.renderOrSkip(dst, "image from uuid", func(dst sink) (*wml.Paragraph, error) {
			return w.picture(dst, func(p Pictures) (*wml.Drawing, error) { return p.PictureFromUUID(n.UUID) })
		})
	case *ImageByPath:
		return w.renderOrSkip(dst, "image from path", func(dst sink) (*wml.Paragraph, error) {
			return w.picture(dst, func(p Pictures) (*wml.Drawing, error) { return p.PictureFromPath(n.Path) })
		})
	case *Caption:
		return w.renderOrSkip(dst, "caption", func(dst sink) (*wml.Paragraph, error) {
			return w.caption(n, dst), nil
		})
	case *List:
		return w.renderOrSkip(dst, n.Type, func(dst sink) (*wml.Paragraph, error) {
			w.list(n, dst)
			return nil, nil
		})
	case *Table:
		return w.renderOrSkip(dst, "table", func(dst sink) (*wml.Paragraph, error) {
			return nil, w.table(n, dst)
		})
	case *TableRow:
		return w.node(&Block{Type: TypeTableRow, Children: n.Children}, dst, forced)
	case *TableCell:
		return w.node(&Block{Type: TypeTableCell, Align: n.Align, Children: n.Children}, dst, forced)
	case *Block:
		return w.renderOrSkip(dst, n.Type, func(dst sink) (*wml.Paragraph, error) {
			return w.block(n, dst, forced), nil
		})
	case *Text:
		w.log.Debug("Ignoring text outside of a paragraph")
	}
	return nil
}

var errNoPictures = errors.New("pictures are not available")

func (w *walker) picture(dst sink, fetch func(Pictures) (*wml.Drawing, error)) (*wml.Paragraph, error) {
	if w.Pictures == nil {
		return nil, errNoPictures
	}
	drawing, err := fetch(w.Pictures)
	if err != nil {
		return nil, err
	}
	if drawing == nil {
		return nil, nil
	}
	drawing.ScaleToWidth(w.PageWidth)
	p := dst.paragraph()
	p.AddRun(&wml.Run{Content: []wml.RunContent{drawing}})
	return p, nil
}

func (w *walker) caption(n *Caption, dst sink) *wml.Paragraph {
	p := dst.paragraph()
	p.SetStyle(w.StyleMapping[TypeCaption])
	if jc, ok := wml.Alignment(n.Align); ok {
		p.SetAlignment(jc)
	}
	p.AddText(captionPrefix)
	p.AddRun(&wml.Run{Content: []wml.RunContent{
		&wml.FieldChar{Type: "begin"},
		&wml.InstrText{Space: "preserve", Value: captionInstruction},
		&wml.FieldChar{Type: "end"},
	}})
	p.AddText(captionSeparator)
	for _, child := range n.Children {
		if t, ok := child.(*Text); ok {
			p.AddRun(textRun(t))
		}
	}
	return p
}

// list renders each item with the list's style and links its numbering to
// the previous rendered item. Items that fail are left out of the chain.
func (w *walker) list(n *List, dst sink) {
	forced := w.StyleMapping[n.Type]
	var prev numbering.Item
	for _, child := range n.Children {
		p := w.node(child, dst, forced)
		if p == nil {
			continue
		}
		if w.Numbering != nil {
			w.Numbering.Assign(p, prev, -1, n.Ordered)
		}
		prev = p
	}
}

func (w *walker) table(n *Table, dst sink) error {
	var rows [][]*TableCell
	cols := 0
	for _, child := range n.Children {
		row, ok := child.(*TableRow)
		if !ok {
			continue
		}
		var cells []*TableCell
		for _, c := range row.Children {
			if cell, ok := c.(*TableCell); ok {
				cells = append(cells, cell)
			}
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return errors.New("table has no rows")
	}
	if cols == 0 {
		return errors.New("table has no cells")
	}

	tbl := wml.NewTable(len(rows), cols, int(w.PageWidth/docx.EMUPerTwip))
	tbl.SetStyle(w.StyleMapping[TypeTable])
	for i, cells := range rows {
		w.log.Debug("\t[+] Processing table row")
		for j, cell := range cells {
			w.log.Debug("\t\t[+] Processing table cell")
			if len(cell.Children) == 0 {
				continue
			}
			target := tbl.Cell(i, j)
			target.ClearPlaceholder()
			for _, child := range cell.Children {
				w.node(child, cellSink{cell: target}, "")
			}
			if jc, ok := wml.Alignment(cell.Align); ok {
				alignUnset(target.Blocks, jc)
			}
		}
	}
	dst.add(tbl)
	return nil
}

// block renders a generic node as a paragraph. Nested non-text children
// follow it in the same container.
func (w *walker) block(n *Block, dst sink, forced string) *wml.Paragraph {
	p := dst.paragraph()
	style := forced
	if style == "" {
		style = w.StyleMapping[n.Type]
	}
	p.SetStyle(style)
	if jc, ok := wml.Alignment(n.Align); ok {
		p.SetAlignment(jc)
	}
	for _, child := range n.Children {
		if t, ok := child.(*Text); ok {
			w.log.Debug("|___ [+] Rendering text value")
			p.AddRun(textRun(t))
			continue
		}
		w.node(child, dst, "")
	}
	return p
}

// alignUnset applies a cell's alignment to paragraphs that have none.
func alignUnset(blocks []wml.Block, jc string) {
	for _, b := range blocks {
		p, ok := b.(*wml.Paragraph)
		if !ok || (p.Properties != nil && p.Properties.Alignment != nil) {
			continue
		}
		p.SetAlignment(jc)
	}
}

func textRun(t *Text) *wml.Run {
	run := wml.NewRun(t.Text)
	if t.Bold {
		run.SetBold()
	}
	if t.Italic {
		run.SetItalic()
	}
	if t.Underline {
		run.SetUnderline()
	}
	if t.Strike {
		run.SetStrike()
	}
	if t.Code {
		run.SetFont(codeFont)
		run.SetHighlight(codeHighlight)
	}
	return run
}
