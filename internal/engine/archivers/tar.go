package archivers

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// synthesizedEntryMode is the mode of entries built from memory.
const synthesizedEntryMode = 0o664

// TarZstWriter writes a GNU tarball through a multi-threaded zstd encoder
// with frame checksums enabled.
type TarZstWriter struct {
	buf       *bufio.Writer
	encoder   *zstd.Encoder
	tarWriter *tar.Writer
	closed    bool
}

// NewTarZstWriter creates a tar.zst entry writer over w. The zstd level is
// mapped to the closest encoder speed.
func NewTarZstWriter(w io.Writer, level int) (engine.EntryWriter, error) {
	buf := bufio.NewWriter(w)

	encoder, err := zstd.NewWriter(buf,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(runtime.NumCPU()),
	)
	if err != nil {
		return nil, &engine.OutputError{Err: fmt.Errorf("failed to create zstd writer: %w", err)}
	}

	return &TarZstWriter{
		buf:       buf,
		encoder:   encoder,
		tarWriter: tar.NewWriter(encoder),
	}, nil
}

// AppendData adds an in-memory entry with a fixed mode and the given mtime.
func (a *TarZstWriter) AppendData(name string, data []byte, mtime time.Time) error {
	if a.closed {
		return fmt.Errorf("archive writer is closed")
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     synthesizedEntryMode,
		Size:     int64(len(data)),
		ModTime:  mtime.Truncate(time.Second),
		Format:   tar.FormatGNU,
	}

	if err := a.tarWriter.WriteHeader(header); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to write tar header for %s: %w", name, err)}
	}

	if _, err := a.tarWriter.Write(data); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to write tar content for %s: %w", name, err)}
	}

	return nil
}

// AppendFile adds the contents of src under name. Symlinks are resolved: the
// entry is always a regular file carrying the target's bytes and permissions.
func (a *TarZstWriter) AppendFile(fs afero.Fs, src, name string) (err error) {
	if a.closed {
		return fmt.Errorf("archive writer is closed")
	}

	f, err := fs.Open(src)
	if err != nil {
		return &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: err}
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: closeErr}
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: fmt.Errorf("not a regular file (mode %s)", info.Mode())}
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime().Truncate(time.Second),
		Format:   tar.FormatGNU,
	}

	if err := a.tarWriter.WriteHeader(header); err != nil {
		return &engine.OutputError{Err: fmt.Errorf("failed to write tar header for %s: %w", name, err)}
	}

	source := &trackingReader{r: f}
	n, err := io.Copy(a.tarWriter, io.LimitReader(source, info.Size()))
	switch {
	case source.err != nil:
		return &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: source.err}
	case err != nil:
		return &engine.OutputError{Err: fmt.Errorf("failed to write tar content for %s: %w", name, err)}
	case n != info.Size():
		return &engine.InputReadError{Path: src, Kind: engine.InputFile, Err: fmt.Errorf("read %d bytes, expected %d: %w", n, info.Size(), io.ErrUnexpectedEOF)}
	}

	return nil
}

// Close finishes the tarball, flushes the pending zstd frames with their
// checksums and flushes the buffered output. All three steps are attempted.
func (a *TarZstWriter) Close() error {
	if a.closed {
		return fmt.Errorf("archive writer already closed")
	}
	a.closed = true

	var errs error
	if err := a.tarWriter.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close tar writer: %w", err))
	}
	if err := a.encoder.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close zstd writer: %w", err))
	}
	if err := a.buf.Flush(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to flush output: %w", err))
	}
	if errs != nil {
		return &engine.OutputError{Err: errs}
	}

	return nil
}

// trackingReader records read errors so they can be told apart from write
// errors after io.Copy.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
