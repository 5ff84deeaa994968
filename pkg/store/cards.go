// cards.go — Issued card persistence.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CardSink writes issued cards into a directory as <membership_id>_card.pdf.
type CardSink struct {
	Dir string
}

// CardFileName returns the file name an issued card is stored under.
func CardFileName(membershipID string) string {
	id := unsafeName.ReplaceAllString(strings.TrimSpace(membershipID), "_")
	id = strings.Trim(id, ".")
	if id == "" {
		id = "card"
	}
	return id + "_card.pdf"
}

// Put stores pdf and returns the file name.
func (s CardSink) Put(membershipID string, pdf []byte) (string, error) {
	name := CardFileName(membershipID)
	if err := writeAtomic(filepath.Join(s.Dir, name), pdf); err != nil {
		return "", fmt.Errorf("store card %s: %w", name, err)
	}
	return name, nil
}

// Open returns the path of a stored card. Names that are not plain file
// names are rejected.
func (s CardSink) Open(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasSuffix(name, "_card.pdf") {
		return "", fmt.Errorf("card %q: %w", name, ErrNotFound)
	}
	p := filepath.Join(s.Dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("card %q: %w", name, ErrNotFound)
	}
	return p, nil
}
