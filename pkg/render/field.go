// field.go — Per-type field rendering.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xob0t/CardStencil/pkg/asset"
	"github.com/xob0t/CardStencil/pkg/generator"
	"github.com/xob0t/CardStencil/pkg/pdfdoc"
	"github.com/xob0t/CardStencil/pkg/template"
)

// raster resolves or generates the image for an image or qrcode field.
// A nil image with a nil warning means there is nothing to draw.
func (r *Renderer) raster(ctx context.Context, f template.Field, rec Record, page pdfdoc.PageSize) (*asset.Image, *Warning) {
	val := rec.Values[f.Name]
	w, h := template.FieldSize(f, page.W, page.H)

	switch f.Type {
	case template.TypeImage:
		if val.Blank() {
			return nil, nil
		}
		return r.photo(ctx, f, val, w, h)

	case template.TypeQRCode:
		// An explicit value overrides the generated code.
		if !val.Blank() {
			return r.photo(ctx, f, val, w, h)
		}
		if strings.TrimSpace(rec.ID) == "" {
			return nil, &Warning{Kind: QRGenerationFailure, Field: f.Name, Err: fmt.Errorf("%w: record has no identifier", ErrQRGeneration)}
		}
		png, err := generator.QRCode(generator.VerificationURL(r.opts.VerifyBaseURL, rec.ID))
		if err != nil {
			return nil, &Warning{Kind: QRGenerationFailure, Field: f.Name, Err: err}
		}
		return &asset.Image{Bytes: png, Format: asset.PNG}, nil
	}
	return nil, nil
}

// photo resolves an image value, compositing it into a bordered circle
// when the field asks for one.
func (r *Renderer) photo(ctx context.Context, f template.Field, val Value, w, h float64) (*asset.Image, *Warning) {
	ref := asset.Ref{Data: val.Data, Location: val.Text}
	style := f.ImageStyle()

	if f.Type == template.TypeImage && style.Shape == template.ShapeCircle {
		raw, err := r.assets.Fetch(ctx, ref)
		if err != nil {
			return nil, assetWarning(f.Name, err)
		}
		png, err := generator.Circle(raw, generator.CircleOptions{
			Width:       max(int(math.Ceil(w)), 1),
			Height:      max(int(math.Ceil(h)), 1),
			BorderWidth: style.BorderWidth,
			BorderColor: style.BorderColor,
		})
		if err != nil {
			return nil, assetWarning(f.Name, err)
		}
		return &asset.Image{Bytes: png, Format: asset.PNG}, nil
	}

	img, err := r.assets.Resolve(ctx, ref)
	if err != nil {
		return nil, assetWarning(f.Name, err)
	}
	return &img, nil
}

func assetWarning(field string, err error) *Warning {
	kind := AssetUnavailable
	if errors.Is(err, ErrImageDecode) {
		kind = ImageDecodeError
	}
	return &Warning{Kind: kind, Field: field, Err: err}
}

// apply draws one field into doc. It returns the warning that kept the
// field out of the document, if any.
func (r *Renderer) apply(doc *pdfdoc.Document, j *job, rec Record) *Warning {
	if j.warn != nil {
		return j.warn
	}
	f := j.field
	page, _ := doc.PageSize(f.Page)
	x, y := template.MapToDocumentSpace(f, page.W, page.H)

	switch f.Type {
	case template.TypeText:
		return r.drawText(doc, f, rec.Values[f.Name], x, y)

	case template.TypeImage, template.TypeQRCode:
		if j.raster == nil {
			return nil
		}
		w, h := template.FieldSize(f, page.W, page.H)
		if err := doc.DrawImage(f.Page, x, y, w, h, j.raster.Bytes, string(j.raster.Format)); err != nil {
			kind := ImageDecodeError
			if f.Type == template.TypeQRCode && rec.Values[f.Name].Blank() {
				kind = QRGenerationFailure
			}
			return &Warning{Kind: kind, Field: f.Name, Err: err}
		}
		return nil
	}
	return nil
}

// drawText writes a text field with its baseline on the bottom edge of the
// field box, shifted left by the text width for center and right alignment.
func (r *Renderer) drawText(doc *pdfdoc.Document, f template.Field, val Value, x, y float64) *Warning {
	text := strings.TrimSpace(val.Text)
	if text == "" {
		return nil
	}

	style := f.TextStyle()
	family := style.FontFamily
	if family == "" {
		family = r.fonts.Family()
	}
	font := pdfdoc.Font{
		Family: family,
		Bold:   style.Bold,
		Italic: style.Italic,
		Size:   style.FontSize,
		Color:  generator.ParseHexRGBA(style.Color),
	}

	switch style.Alignment {
	case template.AlignCenter:
		x -= doc.TextWidth(text, font) / 2
	case template.AlignRight:
		x -= doc.TextWidth(text, font)
	}

	if err := doc.DrawText(f.Page, x, y, text, font); err != nil {
		return &Warning{Kind: TextRenderFailure, Field: f.Name, Err: err}
	}
	return nil
}
