package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// DefaultDPI is assumed for every image.
const DefaultDPI = 96

// emuPerInch converts inches to English Metric Units.
const emuPerInch = 914400

// Image is a decoded picture ready to be embedded.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// DecodeImage reads the dimensions of a png, jpeg or gif picture.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}
	return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Extension is the media part extension for the image format.
func (i *Image) Extension() string {
	if i.Format == "jpeg" {
		return "jpg"
	}
	return strings.ToLower(i.Format)
}

// SizeEMU returns the native size at DefaultDPI.
func (i *Image) SizeEMU() (width, height int64) {
	return int64(i.Width) * emuPerInch / DefaultDPI, int64(i.Height) * emuPerInch / DefaultDPI
}
