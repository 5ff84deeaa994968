// loader.go — Parse template JSON from bytes or files and apply defaults.
package template

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse decodes a template document.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template JSON: %w", err)
	}
	return &t, nil
}

// LoadFile reads and parses a template JSON file.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(data)
}

// applyFieldDefaults sets fallbacks for unset properties. Sizes stay zero
// here; their defaults depend on the page and are resolved by FieldSize.
func applyFieldDefaults(f *Field) {
	switch f.Unit {
	case UnitPercent, UnitPoint, UnitMM:
	case "":
		f.Unit = UnitPercent
	default:
		f.Unit = UnitPoint
	}

	switch s := f.Style.(type) {
	case TextStyle:
		if s.FontSize <= 0 {
			s.FontSize = DefaultFontSize
		}
		if s.Color == "" {
			s.Color = DefaultColor
		}
		switch s.Alignment {
		case AlignLeft, AlignCenter, AlignRight:
		default:
			s.Alignment = AlignLeft
		}
		f.Style = s
	case ImageStyle:
		if s.Shape != ShapeCircle {
			s.Shape = ShapeSquare
		}
		if s.BorderWidth < 0 {
			s.BorderWidth = 0
		}
		if s.BorderColor == "" {
			s.BorderColor = DefaultColor
		}
		f.Style = s
	}
}
