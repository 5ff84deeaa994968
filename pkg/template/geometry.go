// geometry.go — Map field placement from authoring space (top-left origin,
// percent or absolute units) into PDF space (bottom-left origin, points).
package template

const pointsPerMM = 72 / 25.4

// toPoints converts v in unit u against a page dimension of dim points.
func toPoints(v float64, u Unit, dim float64) float64 {
	switch u {
	case UnitPercent:
		return v / 100 * dim
	case UnitMM:
		return v * pointsPerMM
	default:
		return v
	}
}

// FieldSize returns the field's width and height in points. Unset
// dimensions take the type default: text is one font size tall with no
// width limit, images and QR codes are square.
func FieldSize(f Field, pageW, pageH float64) (w, h float64) {
	w = toPoints(f.Size.Width, f.Unit, pageW)
	h = toPoints(f.Size.Height, f.Unit, pageH)

	switch f.Type {
	case TypeText:
		if h <= 0 {
			h = f.TextStyle().FontSize
		}
	case TypeImage:
		w, h = squareDefault(w, h, DefaultImageSize)
	case TypeQRCode:
		w, h = squareDefault(w, h, DefaultQRCodeSize)
	}
	return w, h
}

func squareDefault(w, h, def float64) (float64, float64) {
	switch {
	case w <= 0 && h <= 0:
		return def, def
	case w <= 0:
		return h, h
	case h <= 0:
		return w, w
	}
	return w, h
}

// UIPosition returns the field's top-left corner in points, top-left origin,
// before any space conversion.
func UIPosition(f Field, pageW, pageH float64) (x, y float64) {
	return toPoints(f.Position.X, f.Unit, pageW), toPoints(f.Position.Y, f.Unit, pageH)
}

// MapToDocumentSpace returns the field's anchor in PDF space: x unchanged,
// y = pageH - uiY - fieldHeight, so the stated position anchors the field's
// top edge in both spaces. Both values are clamped to the page.
func MapToDocumentSpace(f Field, pageW, pageH float64) (x, y float64) {
	uiX, uiY := UIPosition(f, pageW, pageH)
	_, h := FieldSize(f, pageW, pageH)
	return clamp(uiX, 0, pageW), clamp(pageH-uiY-h, 0, pageH)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
