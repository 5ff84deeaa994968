// Package pdfdoc is the working document of one render: the base PDF's
// pages imported as templates, with text and images drawn on top.
//
// Coordinates passed to Document use PDF conventions: points, origin at the
// bottom-left corner of the page. Text is placed by its baseline, images by
// their bottom-left corner.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
)

// ErrDocumentDecode is returned when the base bytes are not a usable PDF.
var ErrDocumentDecode = errors.New("document decode failed")

// mediaBox is the page box imported from the base document.
const mediaBox = "/MediaBox"

// PageSize is a page's dimensions in points.
type PageSize struct {
	W, H float64
}

// Document is not safe for concurrent use.
type Document struct {
	pdf           *fpdf.Fpdf
	sizes         []PageSize
	fonts         map[fontKey]bool
	defaultFamily string
	tr            func(string) string
	images        int
}

type options struct {
	compress bool
	created  time.Time
}

// Option configures Open.
type Option func(*options)

// WithoutCompression writes uncompressed content streams, which keeps drawn
// text greppable in the output.
func WithoutCompression() Option {
	return func(o *options) { o.compress = false }
}

// WithCreationDate fixes the document's creation and modification dates.
func WithCreationDate(t time.Time) Option {
	return func(o *options) { o.created = t }
}

// Open decodes base and imports every page. Corrupt, encrypted or empty
// documents fail with ErrDocumentDecode.
func Open(base []byte, opts ...Option) (doc *Document, err error) {
	o := options{compress: true}
	for _, opt := range opts {
		opt(&o)
	}

	head := base[:min(len(base), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing PDF header", ErrDocumentDecode)
	}

	// The importer panics on malformed input.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrDocumentDecode, r)
		}
	}()

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetCompression(o.compress)
	pdf.SetCreator("CardStencil", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	if !o.created.IsZero() {
		pdf.SetCreationDate(o.created)
		pdf.SetModificationDate(o.created)
	}

	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(base))

	first := importer.ImportPageFromStream(pdf, &rs, 1, mediaBox)
	boxes := importer.GetPageSizes()
	if len(boxes) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrDocumentDecode)
	}

	doc = &Document{
		pdf:   pdf,
		sizes: make([]PageSize, len(boxes)),
		fonts: make(map[fontKey]bool),
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
	}
	tpls := make([]int, len(boxes))
	tpls[0] = first
	for n := 1; n <= len(boxes); n++ {
		box := boxes[n][mediaBox]
		doc.sizes[n-1] = PageSize{W: box["w"], H: box["h"]}
		if doc.sizes[n-1].W <= 0 || doc.sizes[n-1].H <= 0 {
			return nil, fmt.Errorf("%w: page %d has no media box", ErrDocumentDecode, n)
		}
		if n > 1 {
			tpls[n-1] = importer.ImportPageFromStream(pdf, &rs, n, mediaBox)
		}
	}

	for i, sz := range doc.sizes {
		orientation := "P"
		if sz.W > sz.H {
			orientation = "L"
		}
		pdf.AddPageFormat(orientation, fpdf.SizeType{Wd: sz.W, Ht: sz.H})
		importer.UseImportedTemplate(pdf, tpls[i], 0, 0, sz.W, sz.H)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentDecode, err)
	}
	return doc, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.sizes) }

// PageSize returns the size of the 1-based page.
func (d *Document) PageSize(page int) (PageSize, bool) {
	if page < 1 || page > len(d.sizes) {
		return PageSize{}, false
	}
	return d.sizes[page-1], true
}

// Bytes serialises the document.
func (d *Document) Bytes() (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("serialize document: %v", r)
		}
	}()

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// selectPage makes page current for drawing.
func (d *Document) selectPage(page int) (PageSize, error) {
	sz, ok := d.PageSize(page)
	if !ok {
		return PageSize{}, fmt.Errorf("page %d out of range [1, %d]", page, len(d.sizes))
	}
	d.pdf.SetPage(page)
	return sz, nil
}

// takeError returns and clears the writer's sticky error so one failed
// field does not poison the rest of the document.
func (d *Document) takeError() error {
	err := d.pdf.Error()
	if err != nil {
		d.pdf.ClearError()
	}
	return err
}
