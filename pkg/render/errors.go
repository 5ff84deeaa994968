// errors.go — Failure taxonomy of a render.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/xob0t/CardStencil/pkg/asset"
	"github.com/xob0t/CardStencil/pkg/generator"
	"github.com/xob0t/CardStencil/pkg/pdfdoc"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/template"
)

// Fatal errors abort the render. Test with errors.Is.
var (
	ErrUnsupportedSourceFormat = source.ErrUnsupportedSourceFormat
	ErrSourceUnavailable       = source.ErrSourceUnavailable
	ErrMalformedField          = template.ErrMalformedField
	ErrDocumentDecode          = pdfdoc.ErrDocumentDecode
)

// Field-local causes, carried in Warning.Err.
var (
	ErrAssetUnavailable = asset.ErrAssetUnavailable
	ErrImageDecode      = asset.ErrImageDecode
	ErrQRGeneration     = generator.ErrQRGeneration
)

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	DuplicateField      WarningKind = "DuplicateField"
	UnmappedField       WarningKind = "UnmappedField"
	UnusedInput         WarningKind = "UnusedInput"
	AssetUnavailable    WarningKind = "AssetUnavailable"
	ImageDecodeError    WarningKind = "ImageDecodeError"
	QRGenerationFailure WarningKind = "QRGenerationFailure"
	PageOutOfRange      WarningKind = "PageOutOfRange"
	TextRenderFailure   WarningKind = "TextRenderFailure"
)

// Warning is a non-fatal finding. Field names the template field, or the
// record key for UnusedInput. Err is nil for validation findings.
type Warning struct {
	Kind  WarningKind
	Field string
	Err   error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s %q: %v", w.Kind, w.Field, w.Err)
	}
	return fmt.Sprintf("%s %q", w.Kind, w.Field)
}

// MarshalJSON writes {"kind", "field", "message"}.
func (w Warning) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    WarningKind `json:"kind"`
		Field   string      `json:"field"`
		Message string      `json:"message,omitempty"`
	}{Kind: w.Kind, Field: w.Field}
	if w.Err != nil {
		out.Message = w.Err.Error()
	}
	return json.Marshal(out)
}

func fromIssue(i template.Issue) Warning {
	return Warning{Kind: WarningKind(i.Kind), Field: i.Field}
}
