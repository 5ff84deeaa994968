// validator.go — Structural checks run before every render.
package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedField is wrapped by FieldError. It aborts rendering.
var ErrMalformedField = errors.New("malformed field")

// FieldError names the field that failed structural validation.
type FieldError struct {
	Index int // position in template order
	Name  string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("field at index %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("field %q (index %d): %v", e.Name, e.Index, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// IssueKind classifies non-fatal validation findings.
type IssueKind string

const (
	DuplicateField IssueKind = "DuplicateField"
	UnmappedField  IssueKind = "UnmappedField"
	UnusedInput    IssueKind = "UnusedInput"
)

// Issue is a non-fatal validation finding.
type Issue struct {
	Kind  IssueKind
	Field string
}

func (i Issue) String() string {
	switch i.Kind {
	case DuplicateField:
		return fmt.Sprintf("duplicate field %q, later occurrence dropped", i.Field)
	case UnmappedField:
		return fmt.Sprintf("field %q has no input value, rendered empty", i.Field)
	case UnusedInput:
		return fmt.Sprintf("input %q is not used by any field", i.Field)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Field)
}

// Result is the outcome of Validate. Fields is the de-duplicated field
// list, in template order, that rendering should use.
type Result struct {
	Fields   []Field
	Warnings []Issue
}

// Validate checks t against the record keys that will feed it:
//
//  1. every field has a name and a known type (fatal *FieldError otherwise)
//  2. later fields reusing a name are dropped (DuplicateField)
//  3. fields without a record key render empty (UnmappedField); QR code
//     fields are exempt because they are generated from the record's
//     identifier
//  4. record keys without a field are reported (UnusedInput)
func Validate(t *Template, keys []string) (Result, error) {
	fields := t.Fields()

	for i, f := range fields {
		switch {
		case f.Name == "":
			return Result{}, &FieldError{Index: i, Err: fmt.Errorf("%w: missing name", ErrMalformedField)}
		case f.Type == "":
			return Result{}, &FieldError{Index: i, Name: f.Name, Err: fmt.Errorf("%w: missing type", ErrMalformedField)}
		case f.Style == nil:
			return Result{}, &FieldError{Index: i, Name: f.Name, Err: fmt.Errorf("%w: unknown type %q", ErrMalformedField, f.Type)}
		}
	}

	var res Result
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			res.Warnings = append(res.Warnings, Issue{Kind: DuplicateField, Field: f.Name})
			continue
		}
		seen[f.Name] = struct{}{}
		res.Fields = append(res.Fields, f)
	}

	have := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		have[k] = struct{}{}
	}
	for _, f := range res.Fields {
		if f.Type == TypeQRCode {
			continue
		}
		if _, ok := have[f.Name]; !ok {
			res.Warnings = append(res.Warnings, Issue{Kind: UnmappedField, Field: f.Name})
		}
	}

	unused := make([]string, 0)
	for k := range have {
		if _, ok := seen[k]; !ok {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)
	for _, k := range unused {
		res.Warnings = append(res.Warnings, Issue{Kind: UnusedInput, Field: k})
	}

	return res, nil
}

// Describe returns a human-readable summary of the template's fields.
func Describe(t *Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pages: %d\n", len(t.Pages))
	for i, page := range t.Pages {
		fmt.Fprintf(&b, "\n  [page %d]\n", i+1)
		if len(page) == 0 {
			b.WriteString("    (no fields)\n")
		}
		for _, f := range page {
			fmt.Fprintf(&b, "    %-20s %-7s at (%g, %g)%s", f.Name, f.Type, f.Position.X, f.Position.Y, f.Unit)
			switch s := f.Style.(type) {
			case TextStyle:
				fmt.Fprintf(&b, " size=%g align=%s", s.FontSize, s.Alignment)
			case ImageStyle:
				fmt.Fprintf(&b, " shape=%s", s.Shape)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
