// codec.go — JSON wire format for templates and fields.
//
// The wire format is flat (one object per field, pdfme-style property
// names); in memory the per-type properties become a Style variant.
package template

import (
	"encoding/json"
	"strings"

	"github.com/xob0t/CardStencil/pkg/source"
)

type fieldJSON struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Page     int      `json:"page,omitempty"`
	Unit     Unit     `json:"unit,omitempty"`
	Position Position `json:"position"`
	Width    float64  `json:"width,omitempty"`
	Height   float64  `json:"height,omitempty"`

	// text
	FontName  string  `json:"fontName,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	FontColor string  `json:"fontColor,omitempty"`
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Alignment string  `json:"alignment,omitempty"`

	// image
	Shape       string   `json:"shape,omitempty"`
	BorderWidth *float64 `json:"borderWidth,omitempty"`
	BorderColor string   `json:"borderColor,omitempty"`
}

// UnmarshalJSON decodes a flat field object and applies type defaults.
// Missing names or types are kept so validation can report them.
func (f *Field) UnmarshalJSON(b []byte) error {
	var w fieldJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*f = Field{
		Name:     strings.TrimSpace(w.Name),
		Type:     normalizeType(w.Type),
		Page:     w.Page,
		Unit:     w.Unit,
		Position: w.Position,
		Size:     Size{Width: w.Width, Height: w.Height},
	}

	switch f.Type {
	case TypeText:
		f.Style = TextStyle{
			FontFamily: w.FontName,
			FontSize:   w.FontSize,
			Color:      w.FontColor,
			Bold:       w.Bold,
			Italic:     w.Italic,
			Alignment:  Alignment(strings.ToLower(w.Alignment)),
		}
	case TypeImage:
		s := ImageStyle{Shape: Shape(strings.ToLower(w.Shape)), BorderColor: w.BorderColor}
		if w.BorderWidth != nil {
			s.BorderWidth = *w.BorderWidth
		} else if f.Name == ProfilePhotoField {
			s.BorderWidth = profileBorderWidth
		}
		if s.Shape == "" && f.Name == ProfilePhotoField {
			s.Shape = ShapeCircle
		}
		f.Style = s
	case TypeQRCode:
		f.Style = QRStyle{}
	}

	applyFieldDefaults(f)
	return nil
}

// MarshalJSON flattens the field back into its wire form.
func (f Field) MarshalJSON() ([]byte, error) {
	w := fieldJSON{
		Name:     f.Name,
		Type:     string(f.Type),
		Page:     f.Page,
		Unit:     f.Unit,
		Position: f.Position,
		Width:    f.Size.Width,
		Height:   f.Size.Height,
	}
	switch s := f.Style.(type) {
	case TextStyle:
		w.FontName = s.FontFamily
		w.FontSize = s.FontSize
		w.FontColor = s.Color
		w.Bold = s.Bold
		w.Italic = s.Italic
		w.Alignment = string(s.Alignment)
	case ImageStyle:
		bw := s.BorderWidth
		w.Shape = string(s.Shape)
		w.BorderWidth = &bw
		w.BorderColor = s.BorderColor
	}
	return json.Marshal(w)
}

func normalizeType(t string) FieldType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "text":
		return TypeText
	case "image":
		return TypeImage
	case "qrcode", "qr_code", "qr":
		return TypeQRCode
	case "":
		return ""
	}
	return FieldType(t)
}

type templateJSON struct {
	BasePDF source.Ref `json:"basePdf"`
	Schemas [][]Field  `json:"schemas,omitempty"`
	Fields  []Field    `json:"fields,omitempty"`
}

// UnmarshalJSON accepts either per-page "schemas" lists or a flat
// "fields" list whose entries carry their page number.
func (t *Template) UnmarshalJSON(b []byte) error {
	var w templateJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	t.BasePDF = w.BasePDF
	t.Pages = make([][]Field, len(w.Schemas))
	for i, page := range w.Schemas {
		for _, f := range page {
			if f.Page == 0 {
				f.Page = i + 1
			}
			t.Pages[i] = append(t.Pages[i], f)
		}
	}

	for _, f := range w.Fields {
		if f.Page == 0 {
			f.Page = 1
		}
		idx := max(f.Page, 1) - 1
		for len(t.Pages) <= idx {
			t.Pages = append(t.Pages, nil)
		}
		t.Pages[idx] = append(t.Pages[idx], f)
	}

	if len(t.Pages) == 0 {
		t.Pages = [][]Field{nil}
	}
	return nil
}

// MarshalJSON writes the per-page "schemas" form.
func (t Template) MarshalJSON() ([]byte, error) {
	w := templateJSON{BasePDF: t.BasePDF, Schemas: make([][]Field, len(t.Pages))}
	for i, page := range t.Pages {
		w.Schemas[i] = page
		if page == nil {
			w.Schemas[i] = []Field{}
		}
	}
	return json.Marshal(w)
}
