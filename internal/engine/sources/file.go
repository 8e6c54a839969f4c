package sources

import (
	"context"
	"fmt"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/spf13/afero"
)

const FileSourceKind = "file"

// FileSource reads an input from a file.
type FileSource struct {
	fs   afero.Fs
	path string
}

func NewFileSource(fs afero.Fs, path string) engine.Source {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("%s(%s)", FileSourceKind, s.path)
}

func (s *FileSource) Kind() string {
	return FileSourceKind
}

func (s *FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}
