package engine

import (
	"io"
	"time"

	"github.com/spf13/afero"
)

// EntryWriter appends entries to a compressed container.
type EntryWriter interface {
	// AppendData adds a synthesized entry built from an in-memory byte string.
	AppendData(name string, data []byte, mtime time.Time) error

	// AppendFile adds the contents of src (symlinks resolved) under name.
	AppendFile(fs afero.Fs, src, name string) error

	// Close finalizes the container and flushes everything to the underlying writer.
	// It does not close the underlying writer.
	Close() error
}

// WriterFactory creates an EntryWriter over w at the given compression level.
type WriterFactory func(w io.Writer, level int) (EntryWriter, error)
