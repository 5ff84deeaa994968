// file.go — Template slot backed by a JSON file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xob0t/CardStencil/internal/logging"
	"github.com/xob0t/CardStencil/pkg/template"
)

// FileStore keeps the active template in one JSON file.
type FileStore struct {
	Path string

	mu sync.Mutex
}

var _ TemplateStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(_ context.Context) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := template.LoadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load template %s: %w", s.Path, ErrNotFound)
	}
	return t, err
}

// Save writes the template atomically: a temp file in the same directory
// renamed over the target.
func (s *FileStore) Save(_ context.Context, t *template.Template) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	logging.Logger().Debug("template saved", "path", s.Path, "bytes", len(data))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
