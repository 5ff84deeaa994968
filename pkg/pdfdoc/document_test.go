package pdfdoc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/xob0t/CardStencil/internal/testpdf"
)

func TestOpenReadsPageSizes(t *testing.T) {
	base := testpdf.Base(t, testpdf.Card, testpdf.Page{W: 200, H: 300})
	doc, err := Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := doc.PageCount(); got != 2 {
		t.Fatalf("PageCount = %d, want 2", got)
	}
	want := []PageSize{{243, 153}, {200, 300}}
	for i, w := range want {
		got, ok := doc.PageSize(i + 1)
		if !ok || math.Abs(got.W-w.W) > 0.01 || math.Abs(got.H-w.H) > 0.01 {
			t.Errorf("PageSize(%d) = %v, %v; want %v", i+1, got, ok, w)
		}
	}
	if _, ok := doc.PageSize(3); ok {
		t.Error("PageSize(3) ok = true, want false")
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("hello world"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
	}
	for name, in := range inputs {
		if _, err := Open(in); !errors.Is(err, ErrDocumentDecode) {
			t.Errorf("%s: err = %v, want ErrDocumentDecode", name, err)
		}
	}
}

func TestDrawTextAndReopen(t *testing.T) {
	doc, err := Open(testpdf.Base(t), WithoutCompression(), WithCreationDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}
	f := Font{Size: 12, Color: color.RGBA{A: 255}}
	if w := doc.TextWidth("Aisha Khan", f); w <= 0 {
		t.Errorf("TextWidth = %v, want > 0", w)
	}
	if err := doc.DrawText(1, 20, 100, "Aisha Khan", f); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	if err := doc.DrawText(2, 20, 100, "nowhere", f); err == nil {
		t.Error("DrawText on missing page succeeded")
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("(Aisha Khan) Tj")) {
		t.Error("output does not contain the drawn text")
	}
	again, err := Open(out)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	if again.PageCount() != 1 {
		t.Errorf("reopened PageCount = %d, want 1", again.PageCount())
	}
}

func TestDrawImageRecoversFromBadData(t *testing.T) {
	doc, err := Open(testpdf.Base(t), WithoutCompression())
	if err != nil {
		t.Fatal(err)
	}

	if err := doc.DrawImage(1, 0, 0, 10, 10, []byte("junk"), "png"); err == nil {
		t.Error("DrawImage(junk) succeeded")
	}
	if err := doc.DrawImage(1, 0, 0, 10, 10, nil, "tiff"); err == nil {
		t.Error("DrawImage(tiff) succeeded")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(1, 10, 10, 40, 40, buf.Bytes(), "png"); err != nil {
		t.Fatalf("DrawImage after failure: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Error("output has no image XObject")
	}
}

func TestResolveFontFallbacks(t *testing.T) {
	doc, err := Open(testpdf.Base(t))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		f      Font
		family string
		style  string
	}{
		{Font{}, CoreFamily, ""},
		{Font{Family: "Montserrat", Bold: true}, CoreFamily, "B"},
		{Font{Family: "Times", Italic: true}, "Times", "I"},
	}
	for _, tt := range tests {
		fam, style, utf8 := doc.resolveFont(tt.f)
		if fam != tt.family || style != tt.style || utf8 {
			t.Errorf("resolveFont(%+v) = (%q, %q, %v), want (%q, %q, false)", tt.f, fam, style, utf8, tt.family, tt.style)
		}
	}
}
