// Package template describes card templates: a base document plus typed,
// positioned fields, and the checks and geometry applied before rendering.
package template

import "github.com/xob0t/CardStencil/pkg/source"

// ── Template ──

// Template is a reusable card design. Pages holds one field list per page;
// it is read, never mutated, at render time.
type Template struct {
	BasePDF source.Ref
	Pages   [][]Field
}

// Fields returns every field in template order (page by page).
func (t *Template) Fields() []Field {
	var out []Field
	for _, p := range t.Pages {
		out = append(out, p...)
	}
	return out
}

// Clone returns a deep copy safe to mutate.
func (t *Template) Clone() *Template {
	c := &Template{BasePDF: t.BasePDF, Pages: make([][]Field, len(t.Pages))}
	for i, p := range t.Pages {
		c.Pages[i] = append([]Field(nil), p...)
	}
	return c
}

// ── Field ──

// FieldType selects the rendering routine and the Style variant.
type FieldType string

const (
	TypeText   FieldType = "text"
	TypeImage  FieldType = "image"
	TypeQRCode FieldType = "qrcode"
)

// Unit is the unit a field's position and size are expressed in.
type Unit string

const (
	UnitPercent Unit = "%"  // 0–100 of the page dimension
	UnitPoint   Unit = "pt" // PDF points
	UnitMM      Unit = "mm"
)

// Position is the field's top-left corner, top-left page origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is optional; zero dimensions take the type default.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Field is one named, positioned, typed placeholder. Style holds the
// variant matching Type: TextStyle, ImageStyle or QRStyle.
type Field struct {
	Name     string
	Type     FieldType
	Page     int // 1-based
	Unit     Unit
	Position Position
	Size     Size
	Style    Style
}

// Style is the per-type styling variant.
type Style interface {
	fieldType() FieldType
}

// Alignment of text relative to the field's x position.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TextStyle styles text fields.
type TextStyle struct {
	FontFamily string
	FontSize   float64
	Color      string // "#rrggbb"
	Bold       bool
	Italic     bool
	Alignment  Alignment
}

// Shape of an image field.
type Shape string

const (
	ShapeSquare Shape = "square"
	ShapeCircle Shape = "circle"
)

// ImageStyle styles image fields. Border settings apply to circles.
type ImageStyle struct {
	Shape       Shape
	BorderWidth float64
	BorderColor string
}

// QRStyle styles QR code fields. The code is drawn at the field size.
type QRStyle struct{}

func (TextStyle) fieldType() FieldType  { return TypeText }
func (ImageStyle) fieldType() FieldType { return TypeImage }
func (QRStyle) fieldType() FieldType    { return TypeQRCode }

// TextStyle returns the field's text style, or defaults if it has none.
func (f Field) TextStyle() TextStyle {
	if s, ok := f.Style.(TextStyle); ok {
		return s
	}
	return defaultTextStyle()
}

// ImageStyle returns the field's image style, or defaults if it has none.
func (f Field) ImageStyle() ImageStyle {
	if s, ok := f.Style.(ImageStyle); ok {
		return s
	}
	return ImageStyle{Shape: ShapeSquare, BorderColor: "#000000"}
}

// ── Defaults ──

const (
	DefaultFontSize    = 12
	DefaultColor       = "#000000"
	DefaultImageSize   = 100 // points
	DefaultQRCodeSize  = 100 // points
	ProfilePhotoField  = "profile_photo"
	profileBorderWidth = 1
)

func defaultTextStyle() TextStyle {
	return TextStyle{FontSize: DefaultFontSize, Color: DefaultColor, Alignment: AlignLeft}
}
