// files.go — Local file handling for the CLI: relative references and
// sample files.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/template"
)

// loadTemplate parses the template file and reads a basePdf given as a
// path relative to it. URLs, data URIs and root-relative paths are left
// for the renderer.
func loadTemplate(path string) (*template.Template, error) {
	tpl, err := template.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if ref, ok := tpl.BasePDF.Raw().(string); ok && isRelativePath(ref) {
		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), ref))
		if err != nil {
			return nil, fmt.Errorf("read base document: %w", err)
		}
		tpl.BasePDF = source.Bytes(data)
	}
	return tpl, nil
}

// loadRecord reads the record file, if any. Values of image and qrcode
// fields that name a file relative to the record are read inline.
func loadRecord(path string, tpl *template.Template) (render.Record, error) {
	if path == "" {
		return render.Record{}, nil
	}
	rec, err := readRecord(path)
	if err != nil {
		return rec, err
	}

	raster := map[string]bool{}
	for _, f := range tpl.Fields() {
		raster[f.Name] = f.Type == template.TypeImage || f.Type == template.TypeQRCode
	}
	for k, v := range rec.Values {
		ref := strings.TrimSpace(v.Text)
		if !raster[k] || len(v.Data) > 0 || !isRelativePath(ref) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), ref))
		if err != nil {
			return rec, fmt.Errorf("read %s image: %w", k, err)
		}
		rec.Values[k] = render.Value{Data: data}
	}
	return rec, nil
}

func isRelativePath(s string) bool {
	if s == "" || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "data:") || strings.Contains(s, "://") {
		return false
	}
	return !filepath.IsAbs(s)
}

// writeSamples writes the example template, record and a blank card base
// into dir.
func writeSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tpl, rec := template.GetExampleJSON()
	base, err := sampleBase()
	if err != nil {
		return nil, fmt.Errorf("build card base: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{"template.json", []byte(tpl)},
		{"record.json", []byte(rec)},
		{"card_base.pdf", base},
	}
	var written []string
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := os.WriteFile(p, f.data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, p)
	}
	return written, nil
}

// sampleBase draws a CR80 landscape card with a header band and a frame.
func sampleBase() ([]byte, error) {
	const w, h = 243.0, 153.0

	pdf := fpdf.New("L", "pt", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("L", fpdf.SizeType{Wd: w, Ht: h})

	pdf.SetFillColor(31, 78, 121)
	pdf.Rect(0, 0, w, 26, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	title := "MEMBERSHIP CARD"
	pdf.Text((w-pdf.GetStringWidth(title))/2, 17, title)

	pdf.SetDrawColor(31, 78, 121)
	pdf.SetLineWidth(1)
	pdf.Rect(2, 2, w-4, h-4, "D")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
