package docxgen

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/dfir-iris/docx-generator/pkg/docxgen/assets"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/rendering"
	"github.com/dfir-iris/docx-generator/pkg/docxgen/wml"
)

// PictureFromUUID embeds the single file stored under <base>/<id>.
func (p *pass) PictureFromUUID(id string) (*wml.Drawing, error) {
	file, err := assets.ResolveUUIDFile(p.base, id, "Picture")
	if err != nil {
		return nil, err
	}
	return p.embedPicture(file)
}

// PictureFromPath embeds a local picture, or a remote one when downloads
// are enabled. A picture that cannot be downloaded is skipped: the drawing
// is nil and so is the error.
func (p *pass) PictureFromPath(path string) (*wml.Drawing, error) {
	if assets.IsRemote(path) {
		file, err := p.fetcher.Fetch(p.ctx, path)
		if err != nil {
			if !errors.Is(err, assets.ErrRemoteDisabled) {
				p.log.Error("Skipping %s due to error", path)
				p.log.Debug("Download error: %v", err)
			}
			return nil, nil
		}
		return p.embedPicture(file)
	}

	file, err := assets.LocalFile(p.base, path)
	if err != nil {
		return nil, err
	}
	return p.embedPicture(file)
}

// InlinePicture renders a Markdown image as a run holding the drawing.
func (p *pass) InlinePicture(src string) (string, error) {
	d, err := p.PictureFromPath(src)
	if err != nil || d == nil {
		return "", err
	}
	return wml.MarshalInline(&wml.Run{Content: []wml.RunContent{d}})
}

// embedPicture stores file as a media part and returns a drawing no wider
// than the page.
func (p *pass) embedPicture(file string) (*wml.Drawing, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, rendering.Wrap(err, "The path provided is not a correct file",
			"The path provided is not a correct file: "+file)
	}
	img, err := assets.DecodeImage(data)
	if err != nil {
		return nil, rendering.Wrap(err, "Image could not be added", "Image could not be added: "+file)
	}

	relID, err := p.pkg.AddMedia(img.Extension(), img.Data)
	if err != nil {
		return nil, rendering.Wrap(err, "Image could not be added", "Image could not be added: "+file)
	}
	width, height := img.SizeEMU()
	d := &wml.Drawing{
		ID:     p.pkg.NextDrawingID(),
		Name:   filepath.Base(file),
		RelID:  relID,
		Width:  width,
		Height: height,
	}
	if d.ScaleToWidth(p.pageWidth) {
		p.log.Debug("Image resized - %s", file)
	}
	return d, nil
}

// pictureParagraph wraps d in its own paragraph aligned to position. An
// unknown position leaves the alignment unset.
func pictureParagraph(d *wml.Drawing, position string) *wml.Paragraph {
	para := &wml.Paragraph{}
	para.AddRun(&wml.Run{Content: []wml.RunContent{d}})
	if jc, ok := wml.Alignment(position); ok {
		para.SetAlignment(jc)
	}
	return para
}
