package docxgen

import (
	"encoding/json"
	"fmt"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/assets"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/markup"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/richtext"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/styles"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/template"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/wml"
)

// DefaultPosition aligns pictures inserted by addPicture.
const DefaultPosition = "CENTER"

// bodyOnly lists the callables that add relationships to the main
// document. Headers and footers have their own relationship parts, so these
// are refused there.
var bodyOnly = []string{
	"markdown", "html", "addRichtext",
	"addPicture", "addPictureFromUuid",
	"addSubDocument", "addSubDocumentFromUuid",
	"addHyperlink",
}

// functions returns the callables visible in one part of the package.
func (p *pass) functions(body bool) *template.Registry {
	r := template.NewRegistry()
	r.Register(template.NewFunction("timestampToDate", 1, 2, p.timestampToDate))
	if !body {
		for _, name := range bodyOnly {
			r.Register(template.NewFunction(name, 0, -1, unavailable(name)))
		}
		return r
	}

	r.Register(template.NewFunction("markdown", 1, 2, p.markdown))
	r.Register(template.NewFunction("html", 1, 2, p.html))
	r.Register(template.NewFunction("addRichtext", 1, 1, p.addRichtext))
	r.Register(template.NewFunction("addPicture", 1, 2, p.addPicture))
	r.Register(template.NewFunction("addPictureFromUuid", 1, 2, p.addPictureFromUUID))
	r.Register(template.NewFunction("addSubDocument", 1, 1, p.addSubDocument))
	r.Register(template.NewFunction("addSubDocumentFromUuid", 1, 1, p.addSubDocumentFromUUID))
	r.Register(template.NewFunction("addHyperlink", 2, 3, p.addHyperlink))
	return r
}

func unavailable(name string) func(...interface{}) (interface{}, error) {
	return func(...interface{}) (interface{}, error) {
		return nil, fmt.Errorf("%s can only be used in the document body", name)
	}
}

// stringArg returns args[i] as text, or def when it was not given.
func stringArg(args []interface{}, i int, def string) string {
	if i >= len(args) || args[i] == nil {
		return def
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return template.FormatValue(args[i])
}

func (p *pass) timestampToDate(args ...interface{}) (interface{}, error) {
	return timestampToDate(p.log, args[0], stringArg(args, 1, DefaultDateFormat)), nil
}

func (p *pass) markupRenderer() (*markup.Renderer, error) {
	numbers, err := p.numbering()
	if err != nil {
		return nil, err
	}
	return markup.New(markup.Options{
		Numbering: numbers,
		Links:     p.pkg,
		Images:    p,
		Logger:    p.log,
	}), nil
}

func (p *pass) bundle(name string) (*styles.Bundle, error) {
	return p.styles.Get(name)
}

// markdown(text, style="default")
func (p *pass) markdown(args ...interface{}) (interface{}, error) {
	bundle, err := p.bundle(stringArg(args, 1, styles.DefaultName))
	if err != nil {
		return nil, err
	}
	r, err := p.markupRenderer()
	if err != nil {
		return nil, err
	}
	res, err := r.Render(stringArg(args, 0, ""), bundle)
	if err != nil {
		return nil, err
	}
	return template.BlockMarkup(res.XML), nil
}

// html(text, style="default")
func (p *pass) html(args ...interface{}) (interface{}, error) {
	bundle, err := p.bundle(stringArg(args, 1, styles.DefaultName))
	if err != nil {
		return nil, err
	}
	r, err := p.markupRenderer()
	if err != nil {
		return nil, err
	}
	res, err := r.RenderHTML(stringArg(args, 0, ""), bundle)
	if err != nil {
		return nil, err
	}
	return template.BlockMarkup(res.XML), nil
}

// addRichtext(json) accepts the JSON text or an already decoded value.
func (p *pass) addRichtext(args ...interface{}) (interface{}, error) {
	var text string
	switch v := args[0].(type) {
	case string:
		text = v
	case nil:
		text = ""
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("rich text value cannot be encoded: %w", err)
		}
		text = string(raw)
	}

	numbers, err := p.numbering()
	if err != nil {
		return nil, err
	}
	sub := richtext.New(richtext.Options{
		StyleMapping: p.styleMapping,
		Numbering:    numbers,
		Pictures:     p,
		PageWidth:    p.pageWidth,
		Logger:       p.log,
	}).Render(text)
	for _, w := range sub.Warnings {
		p.log.Info("%s", w)
	}
	xml, err := sub.XML()
	if err != nil {
		return nil, err
	}
	return template.BlockMarkup(xml), nil
}

func (p *pass) pictureMarkup(d *wml.Drawing, source, position string) (interface{}, error) {
	if d == nil {
		return template.BlockMarkup(""), nil
	}
	xml, err := wml.Marshal(pictureParagraph(d, position))
	if err != nil {
		return nil, err
	}
	p.log.Debug("Image added: %s %s", source, position)
	return template.BlockMarkup(xml), nil
}

// addPicture(path, position="CENTER")
func (p *pass) addPicture(args ...interface{}) (interface{}, error) {
	path := stringArg(args, 0, "")
	d, err := p.PictureFromPath(path)
	if err != nil {
		return nil, err
	}
	return p.pictureMarkup(d, path, stringArg(args, 1, DefaultPosition))
}

// addPictureFromUuid(uuid, position="CENTER")
func (p *pass) addPictureFromUUID(args ...interface{}) (interface{}, error) {
	id := stringArg(args, 0, "")
	d, err := p.PictureFromUUID(id)
	if err != nil {
		return nil, err
	}
	return p.pictureMarkup(d, id, stringArg(args, 1, DefaultPosition))
}

func (p *pass) addSubDocument(args ...interface{}) (interface{}, error) {
	file, err := assets.LocalFile(p.base, stringArg(args, 0, ""))
	if err != nil {
		return nil, err
	}
	return p.subDocumentMarkup(file)
}

func (p *pass) addSubDocumentFromUUID(args ...interface{}) (interface{}, error) {
	file, err := assets.ResolveUUIDFile(p.base, stringArg(args, 0, ""), "Sub Document")
	if err != nil {
		return nil, err
	}
	return p.subDocumentMarkup(file)
}

func (p *pass) subDocumentMarkup(file string) (interface{}, error) {
	p.log.Debug("Adding Sub Document: %s", file)
	xml, err := p.subDocument(file)
	if err != nil {
		return nil, err
	}
	return template.BlockMarkup(xml), nil
}

// addHyperlink(caption, url, style) inserts a hyperlink run, with an
// optional character style id.
func (p *pass) addHyperlink(args ...interface{}) (interface{}, error) {
	caption, url := stringArg(args, 0, ""), stringArg(args, 1, "")
	id, err := p.pkg.AddHyperlink(url)
	if err != nil {
		return nil, err
	}
	run := wml.NewRun(caption)
	run.SetStyle(stringArg(args, 2, ""))
	xml, err := wml.MarshalInline(&wml.Hyperlink{ID: id, History: "1", Runs: []*wml.Run{run}})
	if err != nil {
		return nil, err
	}
	p.log.Debug("Adding hyperlink: %s - %s", caption, url)
	return template.InlineMarkup(xml), nil
}
