// Package render turns a card template and one member's record into a
// finished PDF. The same Renderer serves interactive previews and
// unattended issuance; both get identical output for identical input.
//
// A render runs validate, canonicalize base document, open it, resolve
// assets (concurrently), draw fields (sequentially, in template order) and
// serialize. Only a malformed field, an unusable base document reference or
// undecodable base bytes abort it. Everything else degrades to a Warning
// and the affected field is left out.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xob0t/CardStencil/pkg/asset"
	"github.com/xob0t/CardStencil/pkg/pdfdoc"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/template"
)

// DefaultConcurrency bounds parallel asset fetches per document.
const DefaultConcurrency = 4

// DefaultVerifyBaseURL is the site QR codes point at when none is configured.
const DefaultVerifyBaseURL = "https://mslpakistan.org"

// Options configures a Renderer.
type Options struct {
	Client       *http.Client
	Timeout      time.Duration // per network fetch
	DocumentHost string        // base URL for root-relative references

	// VerifyBaseURL prefixes the verification URL encoded in QR codes.
	VerifyBaseURL string
	Fonts         FontSources
	Concurrency   int

	// DisableCompression writes uncompressed content streams.
	DisableCompression bool
	// CreationDate fixes the output's metadata dates when set.
	CreationDate time.Time
}

// Renderer is safe for concurrent use. Each RenderCard call owns its own
// working document.
type Renderer struct {
	opts   Options
	canon  *source.Canonicalizer
	assets *asset.Resolver
	fonts  *FontManager
}

// New creates a Renderer and loads its fonts.
func New(ctx context.Context, opts Options) *Renderer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.VerifyBaseURL == "" {
		opts.VerifyBaseURL = DefaultVerifyBaseURL
	}
	return &Renderer{
		opts: opts,
		canon: source.New(source.Options{
			Client:       opts.Client,
			Timeout:      opts.Timeout,
			DocumentHost: opts.DocumentHost,
		}),
		assets: asset.NewResolver(asset.Options{
			Client:       opts.Client,
			Timeout:      opts.Timeout,
			DocumentHost: opts.DocumentHost,
		}),
		fonts: NewFontManager(ctx, opts.Fonts, opts.Client, opts.Timeout),
	}
}

// Result is a finished document plus the warnings collected on the way.
type Result struct {
	Bytes    []byte
	Warnings []Warning
}

// RenderCard renders rec onto tpl.
func (r *Renderer) RenderCard(ctx context.Context, tpl *template.Template, rec Record) (Result, error) {
	if tpl == nil {
		return Result{}, errors.New("render card: nil template")
	}
	start := time.Now()

	checked, err := template.Validate(tpl, rec.Keys())
	if err != nil {
		return Result{}, fmt.Errorf("validate template: %w", err)
	}
	var warnings []Warning
	for _, issue := range checked.Warnings {
		warnings = append(warnings, fromIssue(issue))
	}

	base, err := r.canon.Canonicalize(ctx, tpl.BasePDF)
	if err != nil {
		return Result{}, fmt.Errorf("base document: %w", err)
	}

	opts := []pdfdoc.Option{pdfdoc.WithCreationDate(r.opts.CreationDate)}
	if r.opts.DisableCompression {
		opts = append(opts, pdfdoc.WithoutCompression())
	}
	doc, err := pdfdoc.Open(base, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("open base document: %w", err)
	}
	if err := r.fonts.Register(doc); err != nil {
		Logger().Warn("font embedding failed, using core font", "err", err)
	}

	Logger().Debug("render started", "id", rec.ID, "fields", len(checked.Fields), "pages", doc.PageCount())

	jobs := make([]job, len(checked.Fields))
	for i, f := range checked.Fields {
		jobs[i] = job{field: f}
		if _, ok := doc.PageSize(f.Page); !ok {
			jobs[i].warn = &Warning{
				Kind:  PageOutOfRange,
				Field: f.Name,
				Err:   fmt.Errorf("page %d not in [1, %d]", f.Page, doc.PageCount()),
			}
		}
	}
	r.prepare(ctx, doc, jobs, rec)

	for i := range jobs {
		if w := r.apply(doc, &jobs[i], rec); w != nil {
			Logger().Warn("field skipped", "field", w.Field, "kind", string(w.Kind), "err", w.Err)
			warnings = append(warnings, *w)
		}
	}

	out, err := doc.Bytes()
	if err != nil {
		return Result{}, err
	}

	Logger().Debug("render finished", "id", rec.ID, "bytes", len(out), "warnings", len(warnings), "elapsed", time.Since(start))
	return Result{Bytes: out, Warnings: warnings}, nil
}

// job is one field's render state. Rasters are produced concurrently by
// prepare; apply writes them into the document one at a time.
type job struct {
	field  template.Field
	raster *asset.Image
	warn   *Warning
}

// prepare produces the rasters of image and qrcode fields in parallel.
// Field-local failures are recorded on the job, never returned.
func (r *Renderer) prepare(ctx context.Context, doc *pdfdoc.Document, jobs []job, rec Record) {
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i := range jobs {
		j := &jobs[i]
		if j.warn != nil || j.field.Type == template.TypeText {
			continue
		}
		size, _ := doc.PageSize(j.field.Page)
		g.Go(func() error {
			j.raster, j.warn = r.raster(ctx, j.field, rec, size)
			return nil
		})
	}
	_ = g.Wait()
}
