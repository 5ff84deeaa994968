// record.go — Per-render field values.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Record is the data for one render: the member's unique identifier (the
// QR code payload) and one value per field name.
type Record struct {
	ID     string           `json:"id"`
	Values map[string]Value `json:"values"`
}

// NewRecord builds a Record from plain text values.
func NewRecord(id string, values map[string]string) Record {
	r := Record{ID: id, Values: make(map[string]Value, len(values))}
	for k, v := range values {
		r.Values[k] = Value{Text: v}
	}
	return r
}

// Keys returns the value names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value is a display string for text fields, or an image for image and
// qrcode fields: inline Data, or Text holding a URL, data URI or
// root-relative path.
type Value struct {
	Text string
	Data []byte
}

// Blank reports whether the value carries nothing to draw.
func (v Value) Blank() bool {
	return len(v.Data) == 0 && strings.TrimSpace(v.Text) == ""
}

type valueJSON struct {
	Text string `json:"text,omitempty"`
	Data []byte `json:"data,omitempty"` // base64
}

// UnmarshalJSON accepts a plain string or {"text": ..., "data": base64}.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Value{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value{Text: s}
		return nil
	case len(b) > 0 && b[0] == '{':
		var w valueJSON
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*v = Value(w)
		return nil
	}
	// Numbers and booleans render as their literal text.
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	if _, ok := x.([]any); ok {
		return fmt.Errorf("record value: arrays are not supported")
	}
	*v = Value{Text: string(b)}
	return nil
}

// MarshalJSON writes a plain string unless the value carries data.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.Data) == 0 {
		return json.Marshal(v.Text)
	}
	return json.Marshal(valueJSON(v))
}
