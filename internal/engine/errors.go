package engine

import (
	"fmt"
)

// UnknownFormatError is returned when a file name matches no registered archive format.
type UnknownFormatError struct {
	FileName string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown archive format for file name %q", e.FileName)
}

// UnsupportedFormatError is returned when a format is requested by a name that is not registered.
type UnsupportedFormatError struct {
	Format    string
	Available []string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported archive format %q: no formats registered", e.Format)
	}
	return fmt.Sprintf("unsupported archive format %q (available: %v)", e.Format, e.Available)
}

// OutputError wraps any failure creating, writing, finishing or publishing the archive.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to write output archive: %v", e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// InputKind tells what was being read when an InputReadError happened.
type InputKind int

const (
	// InputFile is a file whose bytes are being archived.
	InputFile InputKind = iota
	// InputDir is a directory being listed.
	InputDir
	// InputUnknown is a directory entry whose type could not be determined.
	InputUnknown
)

func (k InputKind) String() string {
	switch k {
	case InputFile:
		return "file"
	case InputDir:
		return "directory"
	default:
		return "path"
	}
}

// InputReadError wraps a failure reading a source file or directory.
type InputReadError struct {
	Path string
	Kind InputKind
	Err  error
}

func (e *InputReadError) Error() string {
	if e.Kind == InputUnknown {
		return fmt.Sprintf("failed to read file type of %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to read input %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *InputReadError) Unwrap() error {
	return e.Err
}

// DirEntryReadError wraps a failure while iterating the entries of a directory.
type DirEntryReadError struct {
	Path string
	Err  error
}

func (e *DirEntryReadError) Error() string {
	return fmt.Sprintf("failed to read entries of directory %s: %v", e.Path, e.Err)
}

func (e *DirEntryReadError) Unwrap() error {
	return e.Err
}

// SerializeError wraps a failure serializing the binary list.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("failed to serialize binary list: %v", e.Err)
}

func (e *SerializeError) Unwrap() error {
	return e.Err
}

// ReporterError wraps a failure returned by a Reporter. The archive itself may
// be intact when this is returned.
type ReporterError struct {
	Err error
}

func (e *ReporterError) Error() string {
	return fmt.Sprintf("failed to report archive progress: %v", e.Err)
}

func (e *ReporterError) Unwrap() error {
	return e.Err
}
