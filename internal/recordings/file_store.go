package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileStore keeps recordings in a directory.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore stores recordings under dir on fsys. A nil fsys means the OS
// filesystem.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if dir == "" {
		dir = "saved_audio"
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordings: create %s: %w", dir, err)
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := NewID(name)
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, id), data, 0o644); err != nil {
		return "", fmt.Errorf("recordings: write %s: %w", id, err)
	}
	return id, nil
}

func (s *FileStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recordings: open %s: %w", id, err)
	}
	return f, nil
}
