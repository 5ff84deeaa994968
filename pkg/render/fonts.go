// fonts.go - Font management with custom TTF support and embedded fallback fonts.
// Loads the regular, bold and italic faces of one family from URLs or paths,
// validates them with golang.org/x/image/font/opentype, and falls back to the
// matching Go font when a face cannot be loaded.
package render

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/xob0t/CardStencil/internal/fetch"
	"github.com/xob0t/CardStencil/pkg/pdfdoc"
)

// FontSources locates the faces of one family. Each source is an http(s)
// URL or a file path. An empty FontSources means the PDF core font.
type FontSources struct {
	Family  string
	Regular string
	Bold    string
	Italic  string
}

// IsZero reports whether no face is configured.
func (s FontSources) IsZero() bool {
	return s.Regular == "" && s.Bold == "" && s.Italic == ""
}

type face struct {
	bold, italic bool
	data         []byte
}

// FontManager holds validated font data, loaded once and embedded into
// every document rendered with it.
type FontManager struct {
	family string
	faces  []face
}

// NewFontManager loads the configured faces. Faces that fail to load or
// parse are replaced by the embedded Go font of the same style.
func NewFontManager(ctx context.Context, src FontSources, client *http.Client, timeout time.Duration) *FontManager {
	fm := &FontManager{family: src.Family}
	if src.IsZero() {
		return fm
	}
	if fm.family == "" {
		fm.family = "Custom"
	}

	styles := []struct {
		loc          string
		bold, italic bool
		fallback     []byte
	}{
		{src.Regular, false, false, goregular.TTF},
		{src.Bold, true, false, gobold.TTF},
		{src.Italic, false, true, goitalic.TTF},
	}
	for _, s := range styles {
		data, err := loadFont(ctx, s.loc, client, timeout)
		if err != nil {
			Logger().Warn("could not load font, using Go font", "family", fm.family, "source", s.loc, "err", err)
			data = s.fallback
		}
		fm.faces = append(fm.faces, face{bold: s.bold, italic: s.italic, data: data})
	}
	return fm
}

// Family returns the family name text fields without an explicit font use.
func (fm *FontManager) Family() string { return fm.family }

// Register embeds the faces into doc.
func (fm *FontManager) Register(doc *pdfdoc.Document) error {
	for _, f := range fm.faces {
		if err := doc.RegisterFont(fm.family, f.bold, f.italic, f.data); err != nil {
			return err
		}
	}
	return nil
}

func loadFont(ctx context.Context, loc string, client *http.Client, timeout time.Duration) ([]byte, error) {
	if loc == "" {
		return nil, fmt.Errorf("no source configured")
	}

	var data []byte
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		resp, err := fetch.Get(ctx, client, loc, timeout)
		if err != nil {
			return nil, err
		}
		data = resp.Body
	} else {
		b, err := os.ReadFile(loc)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	if name, err := parsed.Name(nil, sfnt.NameIDFull); err == nil {
		Logger().Debug("font loaded", "source", loc, "name", name)
	}
	return data, nil
}
