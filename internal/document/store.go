package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage persists rendered documents and returns where they live.
type Storage interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// FileStore keeps documents under a directory. Writes go to a temporary
// file first so a reader never sees half a document.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}

	final := filepath.Join(s.dir, filepath.Base(name))
	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move document into place: %w", err)
	}
	return final, nil
}
