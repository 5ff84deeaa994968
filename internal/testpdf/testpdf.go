// Package testpdf builds small base documents for tests.
package testpdf

import (
	"bytes"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// Page is a page size in points.
type Page struct {
	W, H float64
}

// Card is the CR80 card size in points.
var Card = Page{W: 243, H: 153}

// Base returns a PDF with one page per size, each carrying a label so the
// imported pages are not empty.
func Base(t testing.TB, pages ...Page) []byte {
	t.Helper()
	if len(pages) == 0 {
		pages = []Page{Card}
	}

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 8)
	for _, p := range pages {
		orientation := "P"
		if p.W > p.H {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, fpdf.SizeType{Wd: p.W, Ht: p.H})
		pdf.SetDrawColor(31, 78, 121)
		pdf.Rect(4, 4, p.W-8, p.H-8, "D")
		pdf.Text(8, 16, "MEMBERSHIP CARD")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build base PDF: %v", err)
	}
	return buf.Bytes()
}
