// ref.go — Ref holds a base document in whichever form the template carried it.
package source

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
)

// Ref is a base document reference: raw bytes, a data URI, an HTTP(S) URL,
// a root-relative path, or an index-keyed byte map. The zero Ref is empty.
type Ref struct {
	v any
}

// Bytes wraps raw document bytes.
func Bytes(b []byte) Ref { return Ref{v: b} }

// String wraps a data URI, URL or root-relative path.
func String(s string) Ref { return Ref{v: s} }

// Value wraps an arbitrary decoded value, e.g. a JSON object.
func Value(v any) Ref { return Ref{v: v} }

// IsZero reports whether no document is referenced.
func (r Ref) IsZero() bool {
	switch v := r.v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// Raw returns the underlying value.
func (r Ref) Raw() any { return r.v }

// UnmarshalJSON keeps whatever JSON shape was stored; the canonicalizer
// decides later whether it is acceptable.
func (r *Ref) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r.v = v
	return nil
}

// MarshalJSON writes raw bytes as a PDF data URI so a saved template can be
// loaded again without the byte-map detour.
func (r Ref) MarshalJSON() ([]byte, error) {
	if b, ok := r.v.([]byte); ok {
		return json.Marshal(DataURI("application/pdf", b))
	}
	return json.Marshal(r.v)
}

// DataURI encodes b as a base64 data URI with the given media type.
func DataURI(mediaType string, b []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// ByteMap encodes b the way a serialised JS Uint8Array looks:
// {"0": 37, "1": 80, ...}.
func ByteMap(b []byte) map[string]any {
	m := make(map[string]any, len(b))
	for i, c := range b {
		m[strconv.Itoa(i)] = float64(c)
	}
	return m
}
