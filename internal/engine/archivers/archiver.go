package archivers

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/spf13/afero"
)

// DefaultZstdLevel is used when no level is configured.
const DefaultZstdLevel = 0

// Manifest is what goes into an archive: the binary list and the raw build metadata.
type Manifest struct {
	BinaryList    v1.BinaryList
	BuildMetadata string
}

type archiverOptions struct {
	fs      afero.Fs
	formats *engine.FormatRegistry
	format  engine.ArchiveFormat
	level   int
	now     func() time.Time
}

type Option func(*archiverOptions)

// WithFs sets the filesystem binaries and linked paths are read from.
func WithFs(fs afero.Fs) Option {
	return func(o *archiverOptions) {
		o.fs = fs
	}
}

// WithFormats sets the registry used to build the entry writer.
func WithFormats(formats *engine.FormatRegistry) Option {
	return func(o *archiverOptions) {
		o.formats = formats
	}
}

// WithCompression sets the archive format and its compression level.
func WithCompression(format engine.ArchiveFormat, level int) Option {
	return func(o *archiverOptions) {
		o.format = format
		o.level = level
	}
}

func withClock(now func() time.Time) Option {
	return func(o *archiverOptions) {
		o.now = now
	}
}

// Archiver writes one manifest into one archive. It is single use.
type Archiver struct {
	fs        afero.Fs
	manifest  *Manifest
	mapper    engine.PathMapper
	writer    engine.EntryWriter
	mtime     time.Time
	fileCount int
	consumed  bool
}

// NewArchiver creates an archiver writing to w. The modification time of
// synthesized entries is captured here, once.
func NewArchiver(w io.Writer, manifest *Manifest, mapper engine.PathMapper, opts ...Option) (*Archiver, error) {
	o := archiverOptions{
		fs:     afero.NewOsFs(),
		format: engine.FormatTarZst,
		level:  DefaultZstdLevel,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.formats == nil {
		o.formats = NewFormatRegistry()
	}
	if mapper == nil {
		mapper = engine.IdentityPathMapper
	}

	writer, err := o.formats.NewWriter(o.format, w, o.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s writer: %w", o.format, err)
	}

	return &Archiver{
		fs:       o.fs,
		manifest: manifest,
		mapper:   mapper,
		writer:   writer,
		mtime:    o.now(),
	}, nil
}

// Run writes every entry and finalizes the archive. It returns the number of
// entries written: 2 + primary binaries + secondary binaries + files under
// every linked path.
func (a *Archiver) Run() (int, error) {
	if a.consumed {
		return 0, fmt.Errorf("archiver already run")
	}
	a.consumed = true

	if err := a.appendAll(); err != nil {
		// Releases the encoder; the partial output is discarded by the caller.
		_ = a.writer.Close()
		return 0, err
	}

	if err := a.writer.Close(); err != nil {
		return 0, err
	}

	return a.fileCount, nil
}

func (a *Archiver) appendAll() error {
	binaryList := &a.manifest.BinaryList

	// The binary list goes first so extraction can report before reading binaries.
	binaryListJSON, err := json.MarshalIndent(binaryList, "", "  ")
	if err != nil {
		return &engine.SerializeError{Err: err}
	}
	if err := a.appendFromMemory(engine.ManifestFileName, binaryListJSON); err != nil {
		return err
	}
	if err := a.appendFromMemory(engine.MetadataFileName, []byte(a.manifest.BuildMetadata)); err != nil {
		return err
	}

	targetDir := filepath.Clean(binaryList.BuildMeta.TargetDirectory)
	targetParent := filepath.Dir(targetDir)
	if targetParent == targetDir {
		panic(fmt.Sprintf("target directory %s cannot be the filesystem root", targetDir))
	}

	for _, binary := range binaryList.Binaries {
		if _, ok := engine.RelativeTo(targetDir, binary.Path); !ok {
			panic(fmt.Sprintf("binary path %s must be within target directory %s", binary.Path, targetDir))
		}
		rel, _ := engine.RelativeTo(targetParent, binary.Path)
		if err := a.appendPath(binary.Path, forwardSlash(rel)); err != nil {
			return err
		}
	}

	for _, binary := range binaryList.BuildMeta.FlattenNonTestBinaries() {
		src := a.mapper.MapBinary(filepath.Join(targetDir, filepath.FromSlash(binary.Path)))
		dest := path.Join(engine.TargetDirName, forwardSlash(binary.Path))
		if err := a.appendPath(src, dest); err != nil {
			return err
		}
	}

	for _, linkedPath := range binaryList.BuildMeta.LinkedPaths {
		src := a.mapper.MapBinary(filepath.Join(targetDir, filepath.FromSlash(linkedPath)))
		dest := path.Join(engine.TargetDirName, forwardSlash(linkedPath))
		if err := a.appendDirAll(src, dest); err != nil {
			return err
		}
	}

	return nil
}

func (a *Archiver) appendFromMemory(name string, data []byte) error {
	if err := a.writer.AppendData(name, data, a.mtime); err != nil {
		return err
	}
	a.fileCount++
	return nil
}

func (a *Archiver) appendPath(src, dest string) error {
	if err := a.writer.AppendFile(a.fs, src, dest); err != nil {
		return err
	}
	a.fileCount++
	return nil
}

func (a *Archiver) appendDirAll(src, dest string) error {
	for entry, err := range Walk(a.fs, src, dest, true) {
		if err != nil {
			return err
		}
		if err := a.appendPath(entry.Source, entry.Dest); err != nil {
			return err
		}
	}
	return nil
}

// forwardSlash normalizes a relative path to the archive's separator.
func forwardSlash(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
