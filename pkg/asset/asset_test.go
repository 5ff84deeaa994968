package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func encode(t *testing.T, img image.Image, f func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := f(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, img image.Image) []byte {
	return encode(t, img, func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	return encode(t, img, func(b *bytes.Buffer, i image.Image) error { return jpeg.Encode(b, i, nil) })
}

func gifBytes(t *testing.T, img image.Image) []byte {
	return encode(t, img, func(b *bytes.Buffer, i image.Image) error { return gif.Encode(b, i, nil) })
}

func square(n int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for i := range img.Pix {
		img.Pix[i] = 0xcc
	}
	return img
}

func TestResolveHTTP(t *testing.T) {
	photo := pngBytes(t, square(8))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo":
			w.Header().Set("Content-Type", "image/png")
			w.Write(photo)
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			w.Write(photo)
		case "/empty.png":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(Options{Timeout: 50 * time.Millisecond, DocumentHost: srv.URL})
	ctx := context.Background()

	img, err := r.Resolve(ctx, Ref{Location: srv.URL + "/photo"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if img.Format != PNG || !bytes.Equal(img.Bytes, photo) {
		t.Errorf("Resolve = %s (%d bytes), want untouched PNG", img.Format, len(img.Bytes))
	}

	if _, err := r.Resolve(ctx, Ref{Location: "/photo"}); err != nil {
		t.Errorf("Resolve root-relative: %v", err)
	}

	for _, loc := range []string{srv.URL + "/missing.jpg", srv.URL + "/slow.png", srv.URL + "/empty.png"} {
		if _, err := r.Resolve(ctx, Ref{Location: loc}); !errors.Is(err, ErrAssetUnavailable) {
			t.Errorf("Resolve(%s) err = %v, want ErrAssetUnavailable", loc, err)
		}
	}
}

func TestResolveInline(t *testing.T) {
	r := NewResolver(Options{})
	ctx := context.Background()
	jpg := jpegBytes(t, square(8))

	img, err := r.Resolve(ctx, Ref{Data: jpg, Location: "ignored"})
	if err != nil || img.Format != JPEG {
		t.Errorf("Resolve(inline JPEG) = %s, %v; want jpeg", img.Format, err)
	}

	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg)
	img, err = r.Resolve(ctx, Ref{Location: uri})
	if err != nil || img.Format != JPEG || !bytes.Equal(img.Bytes, jpg) {
		t.Errorf("Resolve(data URI) = %s, %v; want original JPEG", img.Format, err)
	}
}

func TestResolveErrors(t *testing.T) {
	r := NewResolver(Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		ref  Ref
		want error
	}{
		{"empty", Ref{}, ErrAssetUnavailable},
		{"path without host", Ref{Location: "/photos/a.png"}, ErrAssetUnavailable},
		{"unknown scheme", Ref{Location: "ftp://example.org/a.png"}, ErrAssetUnavailable},
		{"garbage bytes", Ref{Data: []byte("definitely not an image")}, ErrImageDecode},
		{"bad data URI", Ref{Location: "data:image/png;base64,@@@"}, ErrAssetUnavailable},
	}
	for _, tt := range tests {
		if _, err := r.Resolve(ctx, tt.ref); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestNormalizeConverts(t *testing.T) {
	deep := image.NewNRGBA64(image.Rect(0, 0, 4, 4))
	for i := range deep.Pix {
		deep.Pix[i] = 0xff
	}
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})

	tests := []struct {
		name        string
		raw         []byte
		passthrough bool
	}{
		{"8-bit png", pngBytes(t, square(4)), true},
		{"16-bit png", pngBytes(t, deep), false},
		{"gif", gifBytes(t, pal), false},
	}
	for _, tt := range tests {
		img, err := Normalize(tt.raw, "")
		if err != nil {
			t.Errorf("%s: Normalize: %v", tt.name, err)
			continue
		}
		if img.Format != PNG {
			t.Errorf("%s: Format = %s, want png", tt.name, img.Format)
		}
		if got := bytes.Equal(img.Bytes, tt.raw); got != tt.passthrough {
			t.Errorf("%s: passthrough = %v, want %v", tt.name, got, tt.passthrough)
		}
		if !embeddablePNG(img.Bytes) {
			t.Errorf("%s: output is not an 8-bit non-interlaced PNG", tt.name)
		}
	}
}

func TestFormatHints(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"https://cdn.example.org/a/photo.JPG?v=2", JPEG},
		{"https://cdn.example.org/a/photo.png#x", PNG},
		{"https://cdn.example.org/a/photo", ""},
	}
	for _, tt := range tests {
		if got := formatFromSuffix(tt.in); got != tt.want {
			t.Errorf("formatFromSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := formatFromContentType("image/jpeg; charset=binary"); got != JPEG {
		t.Errorf("formatFromContentType(image/jpeg) = %q, want jpeg", got)
	}
}
