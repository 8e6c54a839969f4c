package engine

import (
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// ArchiveFormat identifies a container encoding.
type ArchiveFormat string

const (
	// FormatTarZst is a Zstandard-compressed tarball with frame checksums.
	FormatTarZst ArchiveFormat = "tar-zst"
)

type suffixEntry struct {
	suffix string
	format ArchiveFormat
}

// FormatRegistry maps file name suffixes and format names to archive formats
// and their writers. Suffixes are matched in registration order.
type FormatRegistry struct {
	mu        sync.RWMutex
	suffixes  []suffixEntry
	factories map[ArchiveFormat]WriterFactory
}

func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{
		factories: make(map[ArchiveFormat]WriterFactory),
	}
}

// Register adds a format with its writer factory and recognized suffixes.
// Registering a format twice replaces its factory and appends the new suffixes.
func (r *FormatRegistry) Register(format ArchiveFormat, factory WriterFactory, suffixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[format] = factory
	for _, suffix := range suffixes {
		r.suffixes = append(r.suffixes, suffixEntry{suffix: suffix, format: format})
	}
}

// Autodetect picks the format whose suffix the file name of path ends with.
func (r *FormatRegistry) Autodetect(path string) (ArchiveFormat, error) {
	name := fileName(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.suffixes {
		if strings.HasSuffix(name, entry.suffix) {
			return entry.format, nil
		}
	}

	return "", &UnknownFormatError{FileName: name}
}

// Lookup returns the registered format with the given name.
func (r *FormatRegistry) Lookup(name string) (ArchiveFormat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	format := ArchiveFormat(name)
	if _, ok := r.factories[format]; !ok {
		return "", &UnsupportedFormatError{Format: name, Available: r.availableFormats()}
	}
	return format, nil
}

// NewWriter creates the entry writer for format over w.
func (r *FormatRegistry) NewWriter(format ArchiveFormat, w io.Writer, level int) (EntryWriter, error) {
	r.mu.RLock()
	factory, ok := r.factories[format]
	available := r.availableFormats()
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedFormatError{Format: string(format), Available: available}
	}
	return factory(w, level)
}

// Suffixes returns the suffixes registered for format, in registration order.
func (r *FormatRegistry) Suffixes(format ArchiveFormat) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.FilterMap(r.suffixes, func(entry suffixEntry, _ int) (string, bool) {
		return entry.suffix, entry.format == format
	})
}

func (r *FormatRegistry) AvailableFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableFormats()
}

func (r *FormatRegistry) availableFormats() []string {
	formats := lo.Map(lo.Keys(r.factories), func(f ArchiveFormat, _ int) string {
		return string(f)
	})
	slices.Sort(formats)
	return formats
}

// fileName returns the last element of path, or "" when path has none (empty
// path or the filesystem root).
func fileName(path string) string {
	if path == "" {
		return ""
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return ""
	}
	return name
}

func (f ArchiveFormat) String() string {
	return string(f)
}
