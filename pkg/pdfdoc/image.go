// image.go — Raster placement.
package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
)

// DrawImage places a PNG or JPEG raster with its bottom-left corner at
// (x, y), scaled to w x h points.
func (d *Document) DrawImage(page int, x, y, w, h float64, data []byte, format string) error {
	sz, err := d.selectPage(page)
	if err != nil {
		return err
	}

	var typ string
	switch strings.ToLower(format) {
	case "png":
		typ = "PNG"
	case "jpeg", "jpg":
		typ = "JPG"
	default:
		return fmt.Errorf("draw image: unsupported format %q", format)
	}

	d.images++
	name := fmt.Sprintf("img%d", d.images)
	opts := fpdf.ImageOptions{ImageType: typ}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.takeError(); err != nil {
		return fmt.Errorf("register image: %w", err)
	}

	d.pdf.ImageOptions(name, x, sz.H-y-h, w, h, false, opts, 0, "")
	if err := d.takeError(); err != nil {
		return fmt.Errorf("draw image: %w", err)
	}
	return nil
}
