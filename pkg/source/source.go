// Package source normalises a base document supplied in any accepted
// encoding into one canonical byte slice.
//
// Recognised forms are tried in a fixed order, each an independent
// predicate + decoder pair (see Kinds):
//
//  1. raw bytes, returned as a copy
//  2. data URI with base64 payload
//  3. HTTP(S) URL, fetched
//  4. root-relative path, fetched from the configured document host
//  5. index-keyed byte map ({"0": 37, "1": 80, ...})
package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xob0t/CardStencil/internal/fetch"
)

var (
	// ErrUnsupportedSourceFormat is returned when no kind matches.
	ErrUnsupportedSourceFormat = errors.New("unsupported source format")
	// ErrSourceUnavailable is returned when a matching reference cannot be
	// fetched or decoded.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// FormatError names the shape that no kind accepted.
type FormatError struct {
	Type string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnsupportedSourceFormat, e.Type)
}

func (e *FormatError) Unwrap() error { return ErrUnsupportedSourceFormat }

// Options configures network access for URL and path sources.
type Options struct {
	Client       *http.Client
	Timeout      time.Duration
	DocumentHost string // base URL that root-relative paths resolve against
}

// Kind is one recognised source form.
type Kind struct {
	Name   string
	Match  func(v any) bool
	Decode func(ctx context.Context, c *Canonicalizer, v any) ([]byte, error)
}

// Kinds lists the recognised forms in the order they are tried.
var Kinds = []Kind{
	{Name: "raw", Match: isRaw, Decode: decodeRaw},
	{Name: "data-uri", Match: isDataURI, Decode: decodeDataURI},
	{Name: "http-url", Match: isHTTPURL, Decode: decodeHTTPURL},
	{Name: "local-path", Match: isLocalPath, Decode: decodeLocalPath},
	{Name: "byte-map", Match: isByteMap, Decode: decodeByteMap},
}

// Canonicalizer turns references into canonical bytes.
type Canonicalizer struct {
	opts Options
}

// New creates a Canonicalizer.
func New(opts Options) *Canonicalizer {
	return &Canonicalizer{opts: opts}
}

// Canonicalize resolves ref to document bytes. Canonicalizing bytes that are
// already canonical returns an equal copy.
func (c *Canonicalizer) Canonicalize(ctx context.Context, ref Ref) ([]byte, error) {
	return c.CanonicalizeValue(ctx, ref.Raw())
}

// CanonicalizeValue is Canonicalize for an unwrapped value.
func (c *Canonicalizer) CanonicalizeValue(ctx context.Context, v any) ([]byte, error) {
	if r, ok := v.(Ref); ok {
		v = r.Raw()
	}
	for _, k := range Kinds {
		if !k.Match(v) {
			continue
		}
		b, err := k.Decode(ctx, c, v)
		if err != nil {
			return nil, fmt.Errorf("%s source: %w", k.Name, err)
		}
		return b, nil
	}
	return nil, &FormatError{Type: describe(v)}
}

// ── raw ──

func isRaw(v any) bool {
	_, ok := v.([]byte)
	return ok
}

func decodeRaw(_ context.Context, _ *Canonicalizer, v any) ([]byte, error) {
	b := v.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ── data URI ──

func isDataURI(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "data:")
}

func decodeDataURI(_ context.Context, _ *Canonicalizer, v any) ([]byte, error) {
	b, _, err := ParseDataURI(v.(string))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return b, nil
}

// ParseDataURI decodes a data URI and returns its payload and media type.
func ParseDataURI(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI has no payload separator")
	}

	mediaType := meta
	isBase64 := false
	if mt, ok := strings.CutSuffix(meta, ";base64"); ok {
		mediaType = mt
		isBase64 = true
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}

	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("unescape data URI: %w", err)
		}
		return []byte(text), mediaType, nil
	}

	payload = strings.TrimSpace(payload)
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode base64: %w", err)
		}
	}
	return b, mediaType, nil
}

// ── HTTP(S) URL ──

func isHTTPURL(v any) bool {
	s, ok := v.(string)
	return ok && (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"))
}

func decodeHTTPURL(ctx context.Context, c *Canonicalizer, v any) ([]byte, error) {
	return c.get(ctx, v.(string))
}

// ── root-relative path ──

func isLocalPath(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")
}

func decodeLocalPath(ctx context.Context, c *Canonicalizer, v any) ([]byte, error) {
	if c.opts.DocumentHost == "" {
		return nil, fmt.Errorf("%w: no document host configured for %q", ErrSourceUnavailable, v)
	}
	return c.get(ctx, strings.TrimRight(c.opts.DocumentHost, "/")+v.(string))
}

func (c *Canonicalizer) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := fetch.Get(ctx, c.opts.Client, u, c.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return resp.Body, nil
}

// ── index-keyed byte map ──

func isByteMap(v any) bool {
	switch m := v.(type) {
	case map[string]any:
		if len(m) == 0 {
			return false
		}
		for k := range m {
			if _, err := strconv.Atoi(k); err != nil {
				return false
			}
		}
		return true
	case map[string]int:
		return len(m) > 0
	}
	return false
}

func decodeByteMap(_ context.Context, _ *Canonicalizer, v any) ([]byte, error) {
	values := make(map[int]any)
	switch m := v.(type) {
	case map[string]any:
		for k, x := range m {
			i, _ := strconv.Atoi(k)
			values[i] = x
		}
	case map[string]int:
		for k, x := range m {
			i, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("%w: key %q is not an index", ErrSourceUnavailable, k)
			}
			values[i] = x
		}
	}

	keys := make([]int, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]byte, len(keys))
	for i, k := range keys {
		b, err := toByte(values[k])
		if err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrSourceUnavailable, k, err)
		}
		out[i] = b
	}
	return out, nil
}

func toByte(v any) (byte, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
	if f != math.Trunc(f) || f < 0 || f > 255 {
		return 0, fmt.Errorf("value %v is not a byte", v)
	}
	return byte(f), nil
}

// describe names a value the way it would appear in the template JSON.
func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if x == "" {
			return "empty string"
		}
		return "string"
	case bool:
		return "boolean"
	case float64, int:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		if len(x) == 0 {
			return "empty object"
		}
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
