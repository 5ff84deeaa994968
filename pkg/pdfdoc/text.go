// text.go — Fonts and text placement.
package pdfdoc

import (
	"fmt"
	"image/color"
	"strings"
)

// CoreFamily is the built-in font used when no embedded font matches.
// Core fonts cover Latin-1 only.
const CoreFamily = "Helvetica"

var coreFamilies = map[string]string{
	"helvetica": "Helvetica",
	"arial":     "Helvetica",
	"times":     "Times",
	"courier":   "Courier",
}

// Font selects a face for DrawText.
type Font struct {
	Family string
	Bold   bool
	Italic bool
	Size   float64
	Color  color.RGBA
}

func (f Font) style() string {
	s := ""
	if f.Bold {
		s += "B"
	}
	if f.Italic {
		s += "I"
	}
	return s
}

type fontKey struct {
	family string
	style  string
}

// RegisterFont embeds a TrueType/OpenType face for family in the given
// style. Text drawn in that family and style is written as UTF-8.
func (d *Document) RegisterFont(family string, bold, italic bool, ttf []byte) error {
	f := Font{Family: family, Bold: bold, Italic: italic}
	key := fontKey{family: strings.ToLower(family), style: f.style()}
	if d.fonts[key] {
		return nil
	}
	d.pdf.AddUTF8FontFromBytes(key.family, key.style, ttf)
	if err := d.takeError(); err != nil {
		return fmt.Errorf("register font %s %q: %w", family, key.style, err)
	}
	d.fonts[key] = true
	if d.defaultFamily == "" {
		d.defaultFamily = key.family
	}
	return nil
}

// resolveFont returns the writer's family and style for f and whether it is
// an embedded UTF-8 face. Missing styles of an embedded family fall back to
// its regular face. An empty family means the first registered family;
// unknown families fall back to the core font.
func (d *Document) resolveFont(f Font) (family, style string, utf8 bool) {
	fam := strings.ToLower(f.Family)
	if d.fonts[fontKey{fam, f.style()}] {
		return fam, f.style(), true
	}
	if d.fonts[fontKey{fam, ""}] {
		return fam, "", true
	}
	if core, ok := coreFamilies[fam]; ok {
		return core, f.style(), false
	}
	if fam == "" && d.defaultFamily != "" {
		return d.resolveFont(Font{Family: d.defaultFamily, Bold: f.Bold, Italic: f.Italic})
	}
	return CoreFamily, f.style(), false
}

func (d *Document) useFont(f Font) (encode func(string) string) {
	family, style, utf8 := d.resolveFont(f)
	d.pdf.SetFont(family, style, f.Size)
	if utf8 {
		return func(s string) string { return s }
	}
	return d.tr
}

// TextWidth measures text in points at f.
func (d *Document) TextWidth(text string, f Font) float64 {
	enc := d.useFont(f)
	return d.pdf.GetStringWidth(enc(text))
}

// DrawText writes text with its baseline starting at (x, y).
func (d *Document) DrawText(page int, x, y float64, text string, f Font) error {
	sz, err := d.selectPage(page)
	if err != nil {
		return err
	}
	enc := d.useFont(f)
	d.pdf.SetTextColor(int(f.Color.R), int(f.Color.G), int(f.Color.B))
	d.pdf.Text(x, sz.H-y, enc(text))
	if err := d.takeError(); err != nil {
		return fmt.Errorf("draw text: %w", err)
	}
	return nil
}
