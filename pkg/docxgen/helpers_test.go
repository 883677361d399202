package docxgen

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/docx"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/logging"
)

const documentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`

const documentClose = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr></w:body></w:document>`

// createDOCXBytes builds a minimal package whose body holds bodyXML. extra
// adds or replaces parts.
func createDOCXBytes(t *testing.T, bodyXML string, extra map[string]string) []byte {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": documentOpen + bodyXML + documentClose,
	}
	for name, content := range extra {
		files[name] = content
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	write := func(name string) {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, files[name])
		delete(files, name)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels", "word/document.xml"} {
		write(name)
	}
	for name := range files {
		write(name)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to build docx: %v", err)
	}
	return buf.Bytes()
}

// writeFile stores data under dir, creating parent directories.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func p(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func styledP(text, pPr string) string {
	return `<w:p>` + pPr + `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// defaultStyle is a "default" style region defining two roles.
var defaultStyle = strings.Join([]string{
	p("## begin style default ##"),
	styledP("## header1 ##", `<w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`),
	styledP("## paragraph ##", `<w:pPr><w:pStyle w:val="BodyText"/></w:pPr>`),
	p("## end style ##"),
}, "")

func testGenerator(t *testing.T, config *Config) (*Generator, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	g, err := New(config, logging.NewLogger(&logs, logging.LogDebug))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g, &logs
}

func openOutput(t *testing.T, path string) (*docx.Package, *etree.Element) {
	t.Helper()
	pkg, err := docx.Open(path)
	if err != nil {
		t.Fatalf("output cannot be opened: %v", err)
	}
	body, err := pkg.Body()
	if err != nil {
		t.Fatal(err)
	}
	return pkg, body
}

// texts returns, in document order, the text of every paragraph below el
// that has some.
func texts(el *etree.Element) []string {
	var out []string
	for _, para := range docx.Descendants(el, "w:p") {
		if text := docx.ParagraphText(para); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func paragraphWithText(el *etree.Element, text string) *etree.Element {
	for _, para := range docx.Descendants(el, "w:p") {
		if docx.ParagraphText(para) == text {
			return para
		}
	}
	return nil
}
