package generator

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	out, err := EncodePNG(imaging.New(w, h, c))
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		wantErr bool
	}{
		{"#1f4e79", 0x1f, 0x4e, 0x79, false},
		{"ffffff", 255, 255, 255, false},
		{"#abc", 0xaa, 0xbb, 0xcc, false},
		{"#12345", 0, 0, 0, true},
		{"#zzzzzz", 0, 0, 0, true},
	}
	for _, tt := range tests {
		r, g, b, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("ParseColor(%q) = (%d, %d, %d), want (%d, %d, %d)", tt.in, r, g, b, tt.r, tt.g, tt.b)
		}
	}
	if got := ParseHexRGBA("bogus"); got != (color.RGBA{A: 255}) {
		t.Errorf("ParseHexRGBA(bogus) = %v, want opaque black", got)
	}
}

func TestCircleDeterministic(t *testing.T) {
	src := solidPNG(t, 64, 64, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	opts := CircleOptions{Width: 50, Height: 50, BorderWidth: 2, BorderColor: "#ffffff"}

	a, err := Circle(src, opts)
	if err != nil {
		t.Fatalf("Circle: %v", err)
	}
	b, err := Circle(src, opts)
	if err != nil {
		t.Fatalf("Circle: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Circle produced different output for identical inputs")
	}

	img, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(100, 100) {
		t.Errorf("output size = %v, want supersampled 100x100", got)
	}
}

func TestCircleLandscapeCoverFill(t *testing.T) {
	src := solidPNG(t, 400, 100, color.NRGBA{G: 180, A: 255})
	opts := CircleOptions{Width: 60, Height: 60, BorderWidth: 3, BorderColor: "#000000"}

	out, err := Circle(src, opts)
	if err != nil {
		t.Fatalf("Circle: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}

	b := img.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2
	inner := float64(b.Dx())/2 - opts.BorderWidth*Supersample
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d > inner-2 {
				continue
			}
			r, g, _, a := img.At(x, y).RGBA()
			if a != 0xffff || g < 0x8000 || r > 0x1000 {
				t.Fatalf("pixel (%d, %d) inside inner circle = %v, want opaque source colour", x, y, img.At(x, y))
			}
		}
	}

	// Corners lie outside the circle and stay transparent.
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
}

func TestCircleNonSquareCanvasCentres(t *testing.T) {
	img, err := CircleImage(imaging.New(10, 10, color.White), CircleOptions{Width: 80, Height: 40, BorderColor: "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(160, 80) {
		t.Fatalf("size = %v, want 160x80", got)
	}
	if _, _, _, a := img.At(80, 40).RGBA(); a != 0xffff {
		t.Errorf("centre alpha = %d, want opaque", a)
	}
	if _, _, _, a := img.At(10, 40).RGBA(); a != 0 {
		t.Errorf("left margin alpha = %d, want transparent", a)
	}
}

func TestCircleRejectsGarbage(t *testing.T) {
	_, err := Circle([]byte("not an image"), CircleOptions{Width: 10, Height: 10})
	if !errors.Is(err, ErrImageDecode) {
		t.Errorf("Circle(garbage) err = %v, want ErrImageDecode", err)
	}
}

func TestQRCodeDeterministic(t *testing.T) {
	payload := VerificationURL("https://example.org/", "MSL 0001")
	if payload != "https://example.org/verify-member?id=MSL+0001" {
		t.Errorf("VerificationURL = %q", payload)
	}

	a, err := QRCode(payload)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	b, err := QRCode(payload)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("QRCode produced different output for the same payload")
	}

	img, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatal(err)
	}
	sz := img.Bounds().Size()
	if sz.X != sz.Y || sz.X%QRModulePixels != 0 {
		t.Errorf("QR size = %v, want square multiple of %d", sz, QRModulePixels)
	}
	// Quiet zone is white, the finder pattern corner is black.
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0xffff {
		t.Errorf("quiet zone pixel = %v, want white", img.At(0, 0))
	}
	q := QRQuietZone * QRModulePixels
	if r, _, _, _ := img.At(q, q).RGBA(); r != 0 {
		t.Errorf("finder pixel = %v, want black", img.At(q, q))
	}
}

func TestQRCodeEmptyPayload(t *testing.T) {
	if _, err := QRCode(""); !errors.Is(err, ErrQRGeneration) {
		t.Errorf("QRCode(\"\") err = %v, want ErrQRGeneration", err)
	}
}
