// circle.go — Circular, bordered photo compositing.
package generator

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// Supersample is the factor the compositor renders at relative to the
// requested size.
const Supersample = 2

// CircleOptions sizes and styles a circular composite. Width and Height
// are in output units before supersampling; the circle's diameter is the
// smaller of the two and it is centred on the canvas.
type CircleOptions struct {
	Width       int
	Height      int
	BorderWidth float64
	BorderColor string
}

// Circle decodes src and composites it into a bordered circle, returned as
// PNG at Supersample times the requested size.
func Circle(src []byte, o CircleOptions) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, err
	}
	out, err := CircleImage(img, o)
	if err != nil {
		return nil, err
	}
	return EncodePNG(out)
}

// CircleImage composites img: a full disc of the border colour, then the
// image cover-scaled and centred inside a clip inset by the border width.
func CircleImage(img image.Image, o CircleOptions) (image.Image, error) {
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("circle size %dx%d: dimensions must be positive", o.Width, o.Height)
	}
	sb := img.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty source image", ErrImageDecode)
	}

	w, h := o.Width*Supersample, o.Height*Supersample
	bw := math.Max(o.BorderWidth, 0) * Supersample
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(float64(w), float64(h)) / 2

	dc := gg.NewContext(w, h)
	dc.DrawCircle(cx, cy, radius)
	dc.SetColor(ParseHexRGBA(o.BorderColor))
	dc.Fill()

	inner := radius - bw
	if inner <= 0 {
		return dc.Image(), nil
	}
	dc.DrawCircle(cx, cy, inner)
	dc.Clip()

	// Cover-fill: the shorter source side spans the inner diameter.
	size := 2 * inner
	scale := math.Max(size/float64(sb.Dx()), size/float64(sb.Dy()))
	sw := int(math.Ceil(float64(sb.Dx()) * scale))
	sh := int(math.Ceil(float64(sb.Dy()) * scale))
	cs := int(math.Ceil(size))

	scaled := imaging.Resize(img, sw, sh, imaging.Lanczos)
	cropped := imaging.CropCenter(scaled, cs, cs)
	cb := cropped.Bounds()
	dc.DrawImage(cropped, int(math.Round(cx-float64(cb.Dx())/2)), int(math.Round(cy-float64(cb.Dy())/2)))
	dc.ResetClip()

	return dc.Image(), nil
}
