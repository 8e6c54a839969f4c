package sinks

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/spf13/afero"
)

// OverwriteBehavior controls what AtomicFile does when the destination exists.
type OverwriteBehavior int

const (
	AllowOverwrite OverwriteBehavior = iota
	DisallowOverwrite
)

const publishedFileMode = 0644

// AtomicFile publishes a file only once it has been completely written.
// Writes go to a staging file next to the destination, which is renamed over
// the destination on success and removed on failure.
type AtomicFile struct {
	fs        afero.Fs
	path      string
	overwrite OverwriteBehavior
}

func NewAtomicFile(fs afero.Fs, path string, overwrite OverwriteBehavior) *AtomicFile {
	return &AtomicFile{
		fs:        fs,
		path:      filepath.Clean(path),
		overwrite: overwrite,
	}
}

func (a *AtomicFile) Path() string {
	return a.path
}

// Write runs fn against a staging file and publishes it if fn succeeds.
//
// Errors returned by fn are returned unchanged. Failures of the staging and
// publish steps are returned as *engine.OutputError.
func (a *AtomicFile) Write(fn func(w io.Writer) error) error {
	if err := a.checkOverwrite(); err != nil {
		return err
	}

	dir := filepath.Dir(a.path)
	if err := a.fs.MkdirAll(dir, 0755); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to create directory %s: %w", dir, err)}
	}

	staging, err := afero.TempFile(a.fs, dir, "."+filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to create staging file in %s: %w", dir, err)}
	}
	stagingName := staging.Name()

	if err := fn(staging); err != nil {
		a.discard(staging, stagingName)
		return err
	}

	if err := staging.Sync(); err != nil {
		a.discard(staging, stagingName)
		return &engine.OutputError{Err: fmt.Errorf("failed to sync staging file %s: %w", stagingName, err)}
	}

	if err := staging.Close(); err != nil {
		_ = a.fs.Remove(stagingName)
		return &engine.OutputError{Err: fmt.Errorf("failed to close staging file %s: %w", stagingName, err)}
	}

	if err := a.publish(stagingName); err != nil {
		_ = a.fs.Remove(stagingName)
		return err
	}

	return nil
}

func (a *AtomicFile) publish(stagingName string) error {
	if err := a.fs.Chmod(stagingName, publishedFileMode); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to set mode of staging file %s: %w", stagingName, err)}
	}

	// The destination may have appeared while fn was running.
	if err := a.checkOverwrite(); err != nil {
		return err
	}

	if err := a.fs.Rename(stagingName, a.path); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to rename %s to %s: %w", stagingName, a.path, err)}
	}

	return nil
}

func (a *AtomicFile) checkOverwrite() error {
	if a.overwrite == AllowOverwrite {
		return nil
	}

	_, err := a.fs.Stat(a.path)
	switch {
	case err == nil:
		return &engine.OutputError{Err: fmt.Errorf("%s: %w", a.path, fs.ErrExist)}
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return &engine.OutputError{Err: fmt.Errorf("failed to stat %s: %w", a.path, err)}
	}
}

// discard removes a staging file after a failed write. The destination is
// untouched, so cleanup failures are not reported.
func (a *AtomicFile) discard(staging afero.File, name string) {
	_ = staging.Close()
	_ = a.fs.Remove(name)
}
