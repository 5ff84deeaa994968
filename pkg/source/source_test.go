package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var doc = []byte("%PDF-1.4\n% test document \x00\xff\x10\n%%EOF\n")

func TestCanonicalizeForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/templates/card.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(doc)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Options{DocumentHost: srv.URL})
	ctx := context.Background()

	tests := []struct {
		name string
		in   any
	}{
		{"raw", doc},
		{"data-uri", DataURI("application/pdf", doc)},
		{"http-url", srv.URL + "/templates/card.pdf"},
		{"local-path", "/templates/card.pdf"},
		{"byte-map", ByteMap(doc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.CanonicalizeValue(ctx, tt.in)
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if !bytes.Equal(got, doc) {
				t.Errorf("Canonicalize() = %q, want %q", got, doc)
			}

			again, err := c.Canonicalize(ctx, Bytes(got))
			if err != nil {
				t.Fatalf("second Canonicalize() error = %v", err)
			}
			if !bytes.Equal(again, got) {
				t.Errorf("canonicalization is not idempotent")
			}
		})
	}
}

func TestCanonicalizeRawCopies(t *testing.T) {
	in := []byte("%PDF-x")
	out, err := New(Options{}).Canonicalize(context.Background(), Bytes(in))
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 'X'
	if in[0] != '%' {
		t.Errorf("Canonicalize() aliased its input")
	}
}

func TestByteMapRoundTrip(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	first, err := c.Canonicalize(ctx, Bytes(doc))
	if err != nil {
		t.Fatal(err)
	}

	// Go through JSON so the map carries float64 values, as it does when a
	// stored template is decoded.
	encoded, err := json.Marshal(ByteMap(first))
	if err != nil {
		t.Fatal(err)
	}
	var ref Ref
	if err := json.Unmarshal(encoded, &ref); err != nil {
		t.Fatal(err)
	}

	second, err := c.Canonicalize(ctx, ref)
	if err != nil {
		t.Fatalf("Canonicalize(byte map) error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("byte-map round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestByteMapOrdersNumerically(t *testing.T) {
	m := map[string]any{"10": 10.0, "2": 2.0, "0": 0.0, "1": 1.0}
	for i := 3; i < 10; i++ {
		m[string(rune('0'+i))] = float64(i)
	}
	got, err := New(Options{}).CanonicalizeValue(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCanonicalizeUnsupported(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{42.0, "number"},
		{true, "boolean"},
		{"not a reference", "string"},
		{[]any{1.0, 2.0}, "array"},
		{map[string]any{"a": 1.0}, "object"},
	}
	for _, tt := range tests {
		_, err := New(Options{}).CanonicalizeValue(context.Background(), tt.in)
		if !errors.Is(err, ErrUnsupportedSourceFormat) {
			t.Errorf("Canonicalize(%v) error = %v, want ErrUnsupportedSourceFormat", tt.in, err)
			continue
		}
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Type != tt.want {
			t.Errorf("Canonicalize(%v) type = %v, want %q", tt.in, err, tt.want)
		}
	}
}

func TestCanonicalizeFailures(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name string
		opts Options
		in   any
	}{
		{"http 404", Options{}, srv.URL + "/missing.pdf"},
		{"path without host", Options{}, "/templates/card.pdf"},
		{"bad base64", Options{}, "data:application/pdf;base64,!!!"},
		{"byte out of range", Options{}, map[string]any{"0": 300.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts).CanonicalizeValue(context.Background(), tt.in)
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("error = %v, want ErrSourceUnavailable", err)
			}
		})
	}
}

func TestParseDataURI(t *testing.T) {
	b, mt, err := ParseDataURI("data:image/png;base64,iVBORw0KGgo=")
	if err != nil {
		t.Fatal(err)
	}
	if mt != "image/png" {
		t.Errorf("media type = %q, want image/png", mt)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("payload = %q", b)
	}

	b, _, err = ParseDataURI("data:text/plain,hello%20world")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello world" {
		t.Errorf("payload = %q, want %q", b, "hello world")
	}
}

func TestRefJSON(t *testing.T) {
	out, err := json.Marshal(Bytes(doc))
	if err != nil {
		t.Fatal(err)
	}
	var ref Ref
	if err := json.Unmarshal(out, &ref); err != nil {
		t.Fatal(err)
	}
	got, err := New(Options{}).Canonicalize(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("Ref JSON round trip = %q, want %q", got, doc)
	}
}
