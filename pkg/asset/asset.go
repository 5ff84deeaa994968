// Package asset resolves image references (inline bytes, data URIs, URLs
// and root-relative paths) into bytes the PDF writer can embed.
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/xob0t/CardStencil/internal/fetch"
	"github.com/xob0t/CardStencil/internal/logging"
	"github.com/xob0t/CardStencil/pkg/generator"
	"github.com/xob0t/CardStencil/pkg/source"
)

var (
	// ErrAssetUnavailable covers network errors, timeouts, non-2xx
	// responses and empty bodies.
	ErrAssetUnavailable = errors.New("asset unavailable")
	// ErrImageDecode is returned for bytes that are not a usable raster.
	ErrImageDecode = generator.ErrImageDecode
)

// Format is an embeddable raster format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// Image is a resolved asset ready for embedding.
type Image struct {
	Bytes  []byte
	Format Format
}

// Ref points at an image: inline Data wins over Location.
type Ref struct {
	Data     []byte
	Location string // data URI, http(s) URL or root-relative path
}

// IsZero reports whether r references nothing.
func (r Ref) IsZero() bool {
	return len(r.Data) == 0 && strings.TrimSpace(r.Location) == ""
}

// Options configures network access.
type Options struct {
	Client       *http.Client
	Timeout      time.Duration // per fetch; defaults to fetch.DefaultTimeout
	DocumentHost string        // base URL for root-relative paths
}

// Resolver fetches and normalises images. It is safe for concurrent use.
type Resolver struct {
	opts Options
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve loads the referenced image, detects its format and normalises
// it so the PDF writer accepts it.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (Image, error) {
	raw, hint, err := r.load(ctx, ref)
	if err != nil {
		return Image{}, err
	}
	return Normalize(raw, hint)
}

// Fetch loads the referenced bytes without decoding them. Callers that
// transform the raster themselves (the circular compositor) use it.
func (r *Resolver) Fetch(ctx context.Context, ref Ref) ([]byte, error) {
	raw, _, err := r.load(ctx, ref)
	return raw, err
}

// load returns the raw bytes plus a format hint from response metadata or
// the location's suffix.
func (r *Resolver) load(ctx context.Context, ref Ref) ([]byte, Format, error) {
	if len(ref.Data) > 0 {
		return ref.Data, "", nil
	}

	loc := strings.TrimSpace(ref.Location)
	switch {
	case loc == "":
		return nil, "", fmt.Errorf("%w: empty reference", ErrAssetUnavailable)

	case strings.HasPrefix(loc, "data:"):
		b, mediaType, err := source.ParseDataURI(loc)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
		}
		return b, formatFromContentType(mediaType), nil

	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return r.get(ctx, loc)

	case strings.HasPrefix(loc, "/") && !strings.HasPrefix(loc, "//"):
		if r.opts.DocumentHost == "" {
			return nil, "", fmt.Errorf("%w: no document host configured for %q", ErrAssetUnavailable, loc)
		}
		return r.get(ctx, strings.TrimRight(r.opts.DocumentHost, "/")+loc)
	}
	return nil, "", fmt.Errorf("%w: unrecognised reference %q", ErrAssetUnavailable, truncate(loc, 64))
}

func (r *Resolver) get(ctx context.Context, url string) ([]byte, Format, error) {
	start := time.Now()
	resp, err := fetch.Get(ctx, r.opts.Client, url, r.opts.Timeout)
	if err != nil {
		logging.Logger().Debug("asset fetch failed", "url", url, "err", err)
		return nil, "", fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	if len(resp.Body) == 0 {
		return nil, "", fmt.Errorf("%w: empty body from %s", ErrAssetUnavailable, url)
	}
	logging.Logger().Debug("asset fetched", "url", url, "bytes", len(resp.Body), "elapsed", time.Since(start))

	hint := formatFromContentType(resp.ContentType)
	if hint == "" {
		hint = formatFromSuffix(url)
	}
	return resp.Body, hint, nil
}

// Normalize validates raw and returns it in an embeddable form. 8-bit
// non-interlaced PNGs and JPEGs pass through untouched; anything else that
// decodes (WebP, GIF, BMP, TIFF, 16-bit or interlaced PNG) is re-encoded
// as an 8-bit PNG with its EXIF orientation applied.
func Normalize(raw []byte, hint Format) (Image, error) {
	img, err := generator.Decode(raw)
	if err != nil {
		return Image{}, err
	}

	format := sniff(raw)
	if format == "" {
		format = hint
	} else if hint != "" && hint != format {
		logging.Logger().Debug("asset format hint disagrees with content", "hint", hint, "content", format)
	}

	switch {
	case format == JPEG:
		return Image{Bytes: raw, Format: JPEG}, nil
	case format == PNG && embeddablePNG(raw):
		return Image{Bytes: raw, Format: PNG}, nil
	}

	out, err := generator.EncodePNG(img)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return Image{Bytes: out, Format: PNG}, nil
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// sniff detects the format from magic bytes; other rasters report "".
func sniff(b []byte) Format {
	switch http.DetectContentType(b) {
	case "image/png":
		return PNG
	case "image/jpeg":
		return JPEG
	}
	return ""
}

// embeddablePNG reports whether the IHDR declares 8-bit depth without
// interlacing, the subset the PDF writer parses natively.
func embeddablePNG(b []byte) bool {
	// signature(8) + length(4) + "IHDR"(4) + width(4) + height(4) + depth, colour, compression, filter, interlace
	if len(b) < 29 || !bytes.HasPrefix(b, pngMagic) || string(b[12:16]) != "IHDR" {
		return false
	}
	depth, interlace := b[24], b[28]
	return depth <= 8 && interlace == 0
}

func formatFromContentType(ct string) Format {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "png"):
		return PNG
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return JPEG
	}
	return ""
}

func formatFromSuffix(loc string) Format {
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	switch strings.ToLower(path.Ext(loc)) {
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
