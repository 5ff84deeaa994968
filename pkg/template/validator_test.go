package template

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateDuplicateField(t *testing.T) {
	tpl := &Template{Pages: [][]Field{{
		{Name: "photo", Type: TypeImage, Page: 1, Position: Position{X: 1}, Style: ImageStyle{}},
		{Name: "photo", Type: TypeImage, Page: 1, Position: Position{X: 2}, Style: ImageStyle{}},
	}}}

	res, err := Validate(tpl, []string{"photo"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Fields) != 1 {
		t.Fatalf("len(Fields) = %d, want 1", len(res.Fields))
	}
	if res.Fields[0].Position.X != 1 {
		t.Errorf("kept field X = %v, want the first occurrence (1)", res.Fields[0].Position.X)
	}
	want := []Issue{{Kind: DuplicateField, Field: "photo"}}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateMappingWarnings(t *testing.T) {
	tpl := &Template{Pages: [][]Field{
		{{Name: "full_name", Type: TypeText, Style: defaultTextStyle()}},
		{
			{Name: "district", Type: TypeText, Style: defaultTextStyle()},
			{Name: "qr_code", Type: TypeQRCode, Style: QRStyle{}},
		},
	}}

	res, err := Validate(tpl, []string{"full_name", "zeta", "email"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []Issue{
		{Kind: UnmappedField, Field: "district"},
		{Kind: UnusedInput, Field: "email"},
		{Kind: UnusedInput, Field: "zeta"},
	}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateMalformed(t *testing.T) {
	tests := []struct {
		name      string
		field     Field
		wantIndex int
		wantName  string
	}{
		{"missing name", Field{Type: TypeText, Style: defaultTextStyle()}, 1, ""},
		{"missing type", Field{Name: "x"}, 1, "x"},
		{"unknown type", Field{Name: "x", Type: "barcode"}, 1, "x"},
	}
	for _, tt := range tests {
		tpl := &Template{Pages: [][]Field{{
			{Name: "ok", Type: TypeText, Style: defaultTextStyle()},
			tt.field,
		}}}
		_, err := Validate(tpl, nil)
		if !errors.Is(err, ErrMalformedField) {
			t.Errorf("%s: err = %v, want ErrMalformedField", tt.name, err)
			continue
		}
		var fe *FieldError
		if !errors.As(err, &fe) {
			t.Errorf("%s: err %T is not *FieldError", tt.name, err)
			continue
		}
		if fe.Index != tt.wantIndex || fe.Name != tt.wantName {
			t.Errorf("%s: FieldError = {%d, %q}, want {%d, %q}", tt.name, fe.Index, fe.Name, tt.wantIndex, tt.wantName)
		}
	}
}

func TestDescribe(t *testing.T) {
	src, _ := GetExampleJSON()
	tpl, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	out := Describe(tpl)
	for _, name := range []string{"full_name", "profile_photo", "qr_code"} {
		if !strings.Contains(out, name) {
			t.Errorf("Describe output missing %q:\n%s", name, out)
		}
	}
}
