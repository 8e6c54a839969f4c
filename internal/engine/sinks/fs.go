package sinks

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/spf13/afero"
)

// FilesystemSink publishes archives into a directory, e.g. a shared mount.
// Every file is written through an AtomicFile so readers of the directory
// never observe a partial archive.
type FilesystemSink struct {
	fs        afero.Fs
	overwrite OverwriteBehavior
}

func NewFilesystemSink(fs afero.Fs, overwrite OverwriteBehavior) engine.Sink {
	return &FilesystemSink{fs: fs, overwrite: overwrite}
}

// NewFilesystemSinkFromPath creates a sink publishing into the directory path
// of fs, creating it if needed.
func NewFilesystemSinkFromPath(fs afero.Fs, path string) (engine.Sink, error) {
	cleanPath := filepath.Clean(path)

	if err := fs.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(fs, cleanPath), AllowOverwrite), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	file := NewAtomicFile(s.fs, path, s.overwrite)
	err := file.Write(func(w io.Writer) error {
		if _, err := io.Copy(w, data); err != nil {
			return fmt.Errorf("failed to copy %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}

	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
