package richtext

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/wml"
)

const testNumbering = `<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="2"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="1"/></w:num>` +
	`</w:numbering>`

func testAllocator(t *testing.T) (*numbering.Allocator, *etree.Element) {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(testNumbering); err != nil {
		t.Fatal(err)
	}
	return numbering.New(doc.Root()), doc.Root()
}

func render(t *testing.T, opts Options, input string) (*Subdocument, []*etree.Element) {
	t.Helper()
	sub := New(opts).Render(input)
	out, err := sub.XML()
	if err != nil {
		t.Fatalf("XML() failed: %v", err)
	}
	els, err := docx.ParseFragment(out)
	if err != nil {
		t.Fatalf("output is not well-formed: %v\n%s", err, out)
	}
	return sub, els
}

func attr(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return found.SelectAttrValue("w:val", "")
	}
	return ""
}

func TestRenderMalformedJSON(t *testing.T) {
	for _, input := range []string{`{"type": "paragraph"`, `null`, `{"type": "paragraph"}`, ``} {
		t.Run(input, func(t *testing.T) {
			sub, els := render(t, Options{}, input)
			if len(els) != 1 {
				t.Fatalf("expected one paragraph, got %d", len(els))
			}
			if runs := els[0].SelectElements("w:r"); len(runs) != 1 {
				t.Errorf("expected a single run, got %d", len(runs))
			}
			if got := docx.ParagraphText(els[0]); got != parseErrorText {
				t.Errorf("text = %q", got)
			}
			if sub.ID != CorrelationID(input) {
				t.Errorf("ID = %q", sub.ID)
			}
		})
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	sub := New(Options{}).Render(`[]`)
	if len(sub.Blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(sub.Blocks))
	}
}

func TestRenderParagraphStyleAndAlignment(t *testing.T) {
	input := `[
		{"type": "paragraph", "align": "Justify", "children": [{"text": "a"}, {"text": "b", "bold": true}]},
		{"type": "heading-one", "children": [{"text": "title"}]},
		{"type": "mystery", "align": "sideways"},
		"stray",
		{"text": "top-level leaf"}
	]`
	_, els := render(t, Options{StyleMapping: map[string]string{"heading-one": "Heading1"}}, input)
	if len(els) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(els))
	}

	if got := attr(els[0], "w:pPr/w:jc"); got != "both" {
		t.Errorf("alignment = %q, want both", got)
	}
	if got := docx.ParagraphText(els[0]); got != "ab" {
		t.Errorf("text = %q", got)
	}
	if got := attr(els[1], "w:pPr/w:pStyle"); got != "Heading1" {
		t.Errorf("style = %q, want Heading1", got)
	}
	if els[2].FindElement("w:pPr/w:jc") != nil {
		t.Errorf("unknown alignment should be ignored")
	}
	if got := docx.ParagraphText(els[2]); got != childrenErrorText {
		t.Errorf("missing children text = %q", got)
	}
}

func TestRenderTextFormatting(t *testing.T) {
	input := `[{"type": "paragraph", "children": [
		{"text": "x", "bold": true, "code": true},
		{"text": "y", "italic": true, "underline": true, "strike": true},
		{"text": "z", "bold": "yes"}
	]}]`
	_, els := render(t, Options{}, input)
	runs := els[0].SelectElements("w:r")
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	code := runs[0].SelectElement("w:rPr")
	if code == nil || code.SelectElement("w:b") == nil {
		t.Fatalf("bold missing on code run")
	}
	if fonts := code.SelectElement("w:rFonts"); fonts == nil || fonts.SelectAttrValue("w:ascii", "") != "Courier New" {
		t.Errorf("code font missing")
	}
	if got := attr(code, "w:highlight"); got != "lightGray" {
		t.Errorf("highlight = %q", got)
	}

	var tags []string
	for _, el := range runs[1].SelectElement("w:rPr").ChildElements() {
		tags = append(tags, el.FullTag())
	}
	if diff := cmp.Diff([]string{"w:i", "w:strike", "w:u"}, tags); diff != "" {
		t.Errorf("rPr mismatch (-want +got):\n%s", diff)
	}

	if runs[2].SelectElement("w:rPr") != nil {
		t.Errorf("non-boolean flags must not format the run")
	}
}

func TestRenderNumberedList(t *testing.T) {
	alloc, root := testAllocator(t)
	input := `[{"type": "numbered-list", "children": [
		{"type": "list-item", "children": [{"text": "one"}]},
		{"type": "list-item", "children": [{"text": "two"}]},
		{"type": "list-item", "children": [{"text": "three"}]}
	]}]`
	_, els := render(t, Options{
		Numbering:    alloc,
		StyleMapping: map[string]string{TypeNumberedList: "ListNumber", "list-item": "Ignored"},
	}, input)
	if len(els) != 3 {
		t.Fatalf("expected 3 items, got %d", len(els))
	}
	for i, p := range els {
		if got := attr(p, "w:pPr/w:pStyle"); got != "ListNumber" {
			t.Errorf("item %d style = %q", i, got)
		}
		if got := attr(p, "w:pPr/w:numPr/w:numId"); got != "2" {
			t.Errorf("item %d numId = %q, want 2", i, got)
		}
		if got := attr(p, "w:pPr/w:numPr/w:ilvl"); got != "0" {
			t.Errorf("item %d ilvl = %q, want 0", i, got)
		}
	}
	if abstract := root.FindElement("w:num[@w:numId='2']/w:abstractNumId"); abstract == nil || abstract.SelectAttrValue("w:val", "") != "1" {
		t.Errorf("numbered list not bound to the decimal definition")
	}
}

func TestRenderListsRestart(t *testing.T) {
	alloc, _ := testAllocator(t)
	item := `{"type": "list-item", "children": [{"text": "i"}]}`
	input := `[
		{"type": "bulleted-list", "children": [` + item + `,` + item + `]},
		{"type": "numbered-list", "children": [` + item + `]}
	]`
	_, els := render(t, Options{Numbering: alloc}, input)
	var ids []string
	for _, p := range els {
		ids = append(ids, attr(p, "w:pPr/w:numPr/w:numId"))
	}
	if diff := cmp.Diff([]string{"2", "2", "3"}, ids); diff != "" {
		t.Errorf("numIds mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderListWithoutNumbering(t *testing.T) {
	_, els := render(t, Options{}, `[{"type": "bulleted-list", "children": [{"type": "list-item", "children": [{"text": "a"}]}]}]`)
	if len(els) != 1 {
		t.Fatalf("expected 1 item, got %d", len(els))
	}
	if els[0].FindElement("w:pPr/w:numPr") != nil {
		t.Errorf("no numbering expected without an allocator")
	}
}

// Nested lists have no defined numbering level yet: the inner list starts
// its own numbering at level 0. This test pins that nested items are
// rendered after their parent, not how they are numbered.
func TestRenderNestedListIsRendered(t *testing.T) {
	alloc, _ := testAllocator(t)
	input := `[{"type": "bulleted-list", "children": [
		{"type": "list-item", "children": [
			{"text": "outer"},
			{"type": "bulleted-list", "children": [{"type": "list-item", "children": [{"text": "inner"}]}]}
		]}
	]}]`
	_, els := render(t, Options{Numbering: alloc}, input)
	var texts []string
	for _, p := range els {
		texts = append(texts, docx.ParagraphText(p))
	}
	if diff := cmp.Diff([]string{"outer", "inner"}, texts); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTable(t *testing.T) {
	input := `[{"type": "table", "children": [
		{"type": "table-row", "children": [
			{"type": "table-cell", "children": [{"type": "paragraph", "children": [{"text": "a"}]}]},
			{"type": "table-cell", "align": "center", "children": [{"type": "paragraph", "children": [{"text": "b"}]}]}
		]},
		{"type": "table-row", "children": [
			{"type": "table-cell", "children": [{"type": "paragraph", "children": [{"text": "c"}]}]},
			{"type": "table-cell", "children": []},
			{"type": "table-cell", "children": [{"type": "paragraph", "children": [{"text": "e"}]}]}
		]},
		{"type": "paragraph", "children": [{"text": "not a row"}]}
	]}]`
	_, els := render(t, Options{
		PageWidth:    9000 * docx.EMUPerTwip,
		StyleMapping: map[string]string{TypeTable: "TableGrid"},
	}, input)
	if len(els) != 1 || els[0].FullTag() != "w:tbl" {
		t.Fatalf("expected a single table, got %d elements", len(els))
	}
	tbl := els[0]
	if got := attr(tbl, "w:tblPr/w:tblStyle"); got != "TableGrid" {
		t.Errorf("table style = %q", got)
	}
	if cols := tbl.FindElements("w:tblGrid/w:gridCol"); len(cols) != 3 || cols[0].SelectAttrValue("w:w", "") != "3000" {
		t.Errorf("unexpected grid: %d columns", len(cols))
	}

	rows := tbl.SelectElements("w:tr")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	var got [][]string
	for _, row := range rows {
		var cells []string
		for _, cell := range row.SelectElements("w:tc") {
			if cell.SelectElement("w:p") == nil {
				t.Errorf("cell without a paragraph")
			}
			cells = append(cells, docx.ParagraphText(cell))
		}
		got = append(got, cells)
	}
	want := [][]string{{"a", "b", ""}, {"c", "", "e"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	if jc := attr(rows[0].SelectElements("w:tc")[1], "w:p/w:pPr/w:jc"); jc != "center" {
		t.Errorf("cell alignment = %q", jc)
	}
}

func TestRenderEmptyTableIsSkipped(t *testing.T) {
	sub, els := render(t, Options{}, `[{"type": "table", "children": []}, {"type": "paragraph", "children": [{"text": "after"}]}]`)
	if len(els) != 1 || docx.ParagraphText(els[0]) != "after" {
		t.Fatalf("expected only the trailing paragraph, got %d elements", len(els))
	}
	if len(sub.Warnings) != 1 || !strings.Contains(sub.Warnings[0], "table") {
		t.Errorf("warnings = %v", sub.Warnings)
	}
}

type fakePictures struct {
	fail map[string]bool
}

func (f fakePictures) PictureFromUUID(id string) (*wml.Drawing, error) {
	if f.fail[id] {
		return nil, errors.New("no such image")
	}
	return &wml.Drawing{ID: 1, Name: id, RelID: "rId7", Width: 2 * docx.DefaultContentWidth * docx.EMUPerTwip, Height: 1000}, nil
}

func (f fakePictures) PictureFromPath(path string) (*wml.Drawing, error) {
	if strings.HasPrefix(path, "http") {
		return nil, nil
	}
	return &wml.Drawing{ID: 2, Name: path, RelID: "rId8", Width: 10, Height: 10}, nil
}

func TestRenderImages(t *testing.T) {
	pics := fakePictures{fail: map[string]bool{"missing": true}}
	input := `[
		{"type": "image-uuid", "image_uuid": "good"},
		{"type": "image-uuid", "image_uuid": "missing"},
		{"type": "image", "image_path": "https://example.com/a.png"},
		{"type": "image", "image_path": "local.png"}
	]`
	sub, els := render(t, Options{Pictures: pics}, input)
	if len(els) != 2 {
		t.Fatalf("expected 2 pictures, got %d", len(els))
	}
	extent := els[0].FindElement(".//wp:extent")
	if extent == nil {
		t.Fatal("missing extent")
	}
	wantWidth := int64(docx.DefaultContentWidth * docx.EMUPerTwip)
	if got := extent.SelectAttrValue("cx", ""); got != strconv.FormatInt(wantWidth, 10) {
		t.Errorf("picture not scaled to page width: cx=%s", got)
	}
	if blip := els[1].FindElement(".//a:blip"); blip == nil || blip.SelectAttrValue("r:embed", "") != "rId8" {
		t.Errorf("second picture should reference rId8")
	}
	if len(sub.Warnings) != 1 {
		t.Errorf("expected one warning for the failing image, got %v", sub.Warnings)
	}
}

func TestRenderImagesWithoutSource(t *testing.T) {
	_, els := render(t, Options{}, `[{"type": "image-uuid", "image_uuid": "x"}]`)
	if len(els) != 0 {
		t.Errorf("expected image to be skipped, got %d elements", len(els))
	}
}

func TestRenderCaption(t *testing.T) {
	input := `[{"type": "caption", "align": "right", "children": [{"text": "A cat", "italic": true}]}]`
	_, els := render(t, Options{StyleMapping: map[string]string{TypeCaption: "Caption"}}, input)
	if len(els) != 1 {
		t.Fatalf("expected one paragraph, got %d", len(els))
	}
	p := els[0]
	if got := attr(p, "w:pPr/w:pStyle"); got != "Caption" {
		t.Errorf("style = %q", got)
	}
	if got := attr(p, "w:pPr/w:jc"); got != "right" {
		t.Errorf("alignment = %q", got)
	}
	if got := docx.ParagraphText(p); got != "Figure : A cat" {
		t.Errorf("text = %q", got)
	}
	instr := p.FindElement(".//w:instrText")
	if instr == nil || instr.Text() != captionInstruction {
		t.Errorf("missing sequence field")
	}
	var kinds []string
	for _, f := range docx.Descendants(p, "w:fldChar") {
		kinds = append(kinds, f.SelectAttrValue("w:fldCharType", ""))
	}
	if diff := cmp.Diff([]string{"begin", "end"}, kinds); diff != "" {
		t.Errorf("field chars mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedBlocksFollowParent(t *testing.T) {
	input := `[{"type": "block-quote", "children": [
		{"text": "quote"},
		{"type": "paragraph", "children": [{"text": "inner"}]},
		{"text": " tail"}
	]}]`
	_, els := render(t, Options{}, input)
	var texts []string
	for _, p := range els {
		texts = append(texts, docx.ParagraphText(p))
	}
	if diff := cmp.Diff([]string{"quote tail", "inner"}, texts); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderOrSkipRecoversPanics(t *testing.T) {
	w := &walker{Options: Options{}, log: New(Options{}).opts.Logger}
	var out blocks
	p := w.renderOrSkip(&out, "boom", func(dst sink) (*wml.Paragraph, error) {
		dst.paragraph()
		panic("exploded")
	})
	if p != nil || len(out) != 0 {
		t.Errorf("failed handler must not leave output")
	}
	if w.warnings.Len() != 1 {
		t.Errorf("expected one warning, got %d", w.warnings.Len())
	}
}
