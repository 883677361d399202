package markup

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/numbering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
)

func testBundle() *styles.Bundle {
	return styles.NewBundle("default", map[styles.Role]string{
		styles.RoleHeader1:    `<w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`,
		styles.RoleHeader2:    `<w:pPr><w:pStyle w:val="Heading2"/></w:pPr>`,
		styles.RoleParagraph:  `<w:pPr><w:pStyle w:val="Normal"/></w:pPr>`,
		styles.RoleStrong:     `<w:rPr><w:b/></w:rPr>`,
		styles.RoleItalic:     `<w:rPr><w:i/></w:rPr>`,
		styles.RoleInlineCode: `<w:rPr><w:rStyle w:val="Code"/></w:rPr>`,
		styles.RoleCode:       `<w:pPr><w:pStyle w:val="CodeBlock"/></w:pPr>`,
		styles.RoleQuote:      `<w:pPr><w:pStyle w:val="Quote"/></w:pPr>`,
		styles.RoleHyperlink:  `<w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr>`,
		styles.RoleOrdered:    `<w:pPr><w:pStyle w:val="ListNumber"/><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr>`,
		styles.RoleUnordered:  `<w:pPr><w:pStyle w:val="ListBullet"/><w:numPr><w:ilvl w:val="0"/><w:numId w:val="5"/></w:numPr></w:pPr>`,
	})
}

// mustParse checks the fragment is well-formed and returns its top-level
// elements.
func mustParse(t *testing.T, xml string) []*etree.Element {
	t.Helper()
	els, err := docx.ParseFragment(xml)
	if err != nil {
		t.Fatalf("output is not well-formed: %v\n%s", err, xml)
	}
	return els
}

func paragraphStyle(p *etree.Element) string {
	if s := p.FindElement("w:pPr/w:pStyle"); s != nil {
		return s.SelectAttrValue("w:val", "")
	}
	return ""
}

type listRef struct {
	Text  string
	NumID string
	Level string
}

func listRefs(els []*etree.Element) []listRef {
	var refs []listRef
	for _, p := range els {
		ref := listRef{Text: docx.ParagraphText(p)}
		if el := p.FindElement("w:pPr/w:numPr/w:numId"); el != nil {
			ref.NumID = el.SelectAttrValue("w:val", "")
		}
		if el := p.FindElement("w:pPr/w:numPr/w:ilvl"); el != nil {
			ref.Level = el.SelectAttrValue("w:val", "")
		}
		refs = append(refs, ref)
	}
	return refs
}

func TestRenderHeadingsAndEmphasis(t *testing.T) {
	res, err := New(Options{}).Render("# Title\n\nSome **bold** and *soft* text", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	els := mustParse(t, res.XML)
	if len(els) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %s", len(els), res.XML)
	}
	if got := paragraphStyle(els[0]); got != "Heading1" {
		t.Errorf("heading style = %q", got)
	}
	if got := paragraphStyle(els[1]); got != "Normal" {
		t.Errorf("paragraph style = %q", got)
	}
	if got := docx.ParagraphText(els[1]); got != "Some bold and soft text" {
		t.Errorf("paragraph text = %q", got)
	}
	for _, want := range []string{
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">bold</w:t></w:r>`,
		`<w:r><w:rPr><w:i/></w:rPr><w:t xml:space="preserve">soft</w:t></w:r>`,
	} {
		if !strings.Contains(res.XML, want) {
			t.Errorf("missing %s in %s", want, res.XML)
		}
	}
}

func TestRenderNestedEmphasisStaysWellFormed(t *testing.T) {
	res, err := New(Options{}).Render("***both*** and **bold `code` [link](http://x)**", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	els := mustParse(t, res.XML)
	if got := docx.ParagraphText(els[0]); got != "both and bold code link" {
		t.Errorf("text = %q", got)
	}
	if strings.Contains(res.XML, "&lt;w:") {
		t.Errorf("markup was escaped into text: %s", res.XML)
	}
}

func TestRenderEscapesHostileText(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script> & </w:t></w:r>",
		"control \x01\x02 characters",
		"| a | b |\n|---|---|\n| <x> | & |",
		"> quote with **bold**\n> - and a list",
		"- item\n\n  ```\n  code in item\n  ```\n- next",
	}
	r := New(Options{})
	for _, in := range inputs {
		t.Run(fmt.Sprintf("%.12q", in), func(t *testing.T) {
			res, err := r.Render(in, testBundle())
			if err != nil {
				t.Fatal(err)
			}
			mustParse(t, res.XML)
		})
	}
}

func TestRenderLineBreaks(t *testing.T) {
	res, err := New(Options{}).Render("one  \ntwo **three\nfour**", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	mustParse(t, res.XML)
	if !strings.Contains(res.XML, `<w:r><w:br/></w:r>`) {
		t.Errorf("paragraph-level break missing: %s", res.XML)
	}
	if !strings.Contains(res.XML, `three</w:t><w:br/><w:t xml:space="preserve">four`) {
		t.Errorf("break inside styled run missing: %s", res.XML)
	}
}

func TestRenderCodeAndQuote(t *testing.T) {
	res, err := New(Options{}).Render("```\nline 1\nline 2\n```\n\n> quoted *text*\n>\n> dropped", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	els := mustParse(t, res.XML)
	if len(els) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(els))
	}
	if paragraphStyle(els[0]) != "CodeBlock" || paragraphStyle(els[1]) != "Quote" {
		t.Errorf("styles = %q, %q", paragraphStyle(els[0]), paragraphStyle(els[1]))
	}
	if !strings.Contains(res.XML, `line 1</w:t><w:br/><w:t xml:space="preserve">line 2`) {
		t.Errorf("code lines not split by breaks: %s", res.XML)
	}
	if got := docx.ParagraphText(els[1]); got != "quoted text" {
		t.Errorf("quote text = %q", got)
	}
}

func TestRenderNestedListLevels(t *testing.T) {
	res, err := New(Options{}).Render("- a\n  - b\n- c\n", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	want := []listRef{
		{Text: "a", NumID: "5", Level: "0"},
		{Text: "b", NumID: "5", Level: "1"},
		{Text: "c", NumID: "5", Level: "0"},
	}
	if diff := cmp.Diff(want, listRefs(mustParse(t, res.XML))); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

const testNumbering = `<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="1"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="2"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="1"/></w:num>` +
	`</w:numbering>`

func TestRenderOrderedListsRestart(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(testNumbering); err != nil {
		t.Fatal(err)
	}
	r := New(Options{Numbering: numbering.New(doc.Root())})

	res, err := r.Render("1. a\n2. b\n\nbetween\n\n1. c\n2. d\n", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	want := []listRef{
		{Text: "a", NumID: "2", Level: "0"},
		{Text: "b", NumID: "2", Level: "0"},
		{Text: "between"},
		{Text: "c", NumID: "3", Level: "0"},
		{Text: "d", NumID: "3", Level: "0"},
	}
	if diff := cmp.Diff(want, listRefs(mustParse(t, res.XML))); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if n := len(doc.Root().SelectElements("w:num")); n != 3 {
		t.Errorf("expected 2 new w:num elements, have %d in total", n)
	}
}

func TestRenderUnorderedListWithoutNumberingGetsOne(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(testNumbering); err != nil {
		t.Fatal(err)
	}
	bundle := styles.NewBundle("plain", map[styles.Role]string{
		styles.RoleUnordered: `<w:pPr><w:pStyle w:val="ListParagraph"/></w:pPr>`,
	})
	res, err := New(Options{Numbering: numbering.New(doc.Root())}).Render("- a\n- b\n", bundle)
	if err != nil {
		t.Fatal(err)
	}
	want := []listRef{
		{Text: "a", NumID: "2", Level: "0"},
		{Text: "b", NumID: "2", Level: "0"},
	}
	if diff := cmp.Diff(want, listRefs(mustParse(t, res.XML))); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	abstract := doc.Root().FindElement("w:num[@w:numId='2']/w:abstractNumId")
	if abstract == nil || abstract.SelectAttrValue("w:val", "") != "2" {
		t.Errorf("bullet list not bound to the bullet definition")
	}
}

func TestRenderTable(t *testing.T) {
	res, err := New(Options{TableWidth: 9000}).Render("| h1 | h2 | h3 |\n|---|---|---|\n| a | b | c |\n", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	els := mustParse(t, res.XML)
	if len(els) != 1 || els[0].Tag != "tbl" {
		t.Fatalf("expected one table: %s", res.XML)
	}
	tbl := els[0]
	if tbl.ChildElements()[0].Tag != "tblPr" {
		t.Errorf("tblPr must come first")
	}
	if n := len(tbl.FindElements("w:tblGrid/w:gridCol[@w:w='3000']")); n != 3 {
		t.Errorf("gridCol count = %d, want 3", n)
	}
	if n := len(tbl.SelectElements("w:tr")); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
	if !strings.Contains(res.Warnings[0], "table") {
		t.Errorf("missing table role warning, got %v", res.Warnings)
	}
}

type fakeLinks struct {
	urls []string
	err  error
}

func (f *fakeLinks) AddHyperlink(url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.urls = append(f.urls, url)
	return fmt.Sprintf("rId%d", 10+len(f.urls)), nil
}

func TestRenderLinks(t *testing.T) {
	links := &fakeLinks{}
	res, err := New(Options{Links: links}).Render("see [the site](<https://example.com/a b?q=1>)", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	mustParse(t, res.XML)
	want := `<w:hyperlink r:id="rId11" w:tgtFrame="_blank"><w:r><w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr><w:t xml:space="preserve">the site</w:t></w:r></w:hyperlink>`
	if !strings.Contains(res.XML, want) {
		t.Errorf("hyperlink missing:\n%s", res.XML)
	}
	if diff := cmp.Diff([]string{"https://example.com/a%20b?q=1"}, links.urls); diff != "" {
		t.Errorf("registered urls mismatch (-want +got):\n%s", diff)
	}

	links.err = errors.New("boom")
	res, err = New(Options{Links: links}).Render("[x](https://example.com)", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.XML, "w:hyperlink") {
		t.Errorf("failed link still emitted a hyperlink")
	}
	if len(res.Warnings) == 0 {
		t.Errorf("failed link produced no warning")
	}
}

func TestEscapeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://example.com/a?b=c&d=e#f", "https://example.com/a?b=c&d=e#f"},
		{"https://example.com/a b", "https://example.com/a%20b"},
		{`https://example.com/"><x`, "https://example.com/%22%3E%3Cx"},
		{"https://example.com/é", "https://example.com/%C3%A9"},
	}
	for _, tt := range tests {
		if got := escapeURL(tt.in); got != tt.want {
			t.Errorf("escapeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderUnsupportedConstructsWarn(t *testing.T) {
	res, err := New(Options{}).Render("before\n\n---\n\n<https://example.com>\n", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	mustParse(t, res.XML)
	want := []string{
		"Markdown ThematicBreak is not implemented. It will be ignored",
		"Markdown AutoLink is not implemented. It will be ignored",
	}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

type fakeImages struct{}

func (fakeImages) InlinePicture(src string) (string, error) {
	if src == "missing.png" {
		return "", errors.New("not found")
	}
	return `<w:r><w:t>[` + src + `]</w:t></w:r>`, nil
}

func TestRenderImages(t *testing.T) {
	res, err := New(Options{Images: fakeImages{}}).Render("![a](pic.png) ![b](missing.png)", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	mustParse(t, res.XML)
	if !strings.Contains(res.XML, "[pic.png]") {
		t.Errorf("inline picture missing: %s", res.XML)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "missing.png") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestRenderHTML(t *testing.T) {
	res, err := New(Options{}).RenderHTML("<h2>Heading</h2><p>Hello <strong>world</strong></p>", testBundle())
	if err != nil {
		t.Fatal(err)
	}
	els := mustParse(t, res.XML)
	if len(els) != 2 || paragraphStyle(els[0]) != "Heading2" {
		t.Fatalf("unexpected output: %s", res.XML)
	}
	if !strings.Contains(res.XML, `<w:rPr><w:b/></w:rPr><w:t xml:space="preserve">world</w:t>`) {
		t.Errorf("strong text lost: %s", res.XML)
	}
}

func TestRenderWithoutBundle(t *testing.T) {
	if _, err := New(Options{}).Render("x", nil); err == nil {
		t.Error("expected an error without a bundle")
	}
}
