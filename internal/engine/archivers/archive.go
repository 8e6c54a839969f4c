package archivers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/infracollect/testpack/internal/engine/sinks"
	"github.com/spf13/afero"
)

// Request describes one archive-to-file operation.
type Request struct {
	Manifest   *Manifest
	PathMapper engine.PathMapper
	// Format is autodetected from OutputFile when empty.
	Format     engine.ArchiveFormat
	ZstdLevel  int
	OutputFile string
	// Fs is used both to read inputs and to write the output file.
	Fs      afero.Fs
	Formats *engine.FormatRegistry
}

// ArchiveToFile archives the request's manifest into OutputFile.
//
// The output is staged and only replaces OutputFile once the archive is
// complete. reporter receives ArchiveStarted before any bytes are written and
// ArchiveCompleted once the file is published; a reporter failure is returned
// as *engine.ReporterError. ctx is checked once before starting: the run itself
// is not interruptible.
func ArchiveToFile(ctx context.Context, req Request, reporter engine.Reporter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	if req.Fs == nil {
		req.Fs = afero.NewOsFs()
	}
	if reporter == nil {
		reporter = engine.NopReporter()
	}
	if req.Formats == nil {
		req.Formats = NewFormatRegistry()
	}
	if req.Format == "" {
		format, err := req.Formats.Autodetect(req.OutputFile)
		if err != nil {
			return 0, err
		}
		req.Format = format
	}

	binaryList := &req.Manifest.BinaryList
	start := time.Now()

	var fileCount int
	output := sinks.NewAtomicFile(req.Fs, req.OutputFile, sinks.AllowOverwrite)
	err := output.Write(func(w io.Writer) error {
		err := reporter.Report(engine.ArchiveStarted{
			TestBinaryCount:    len(binaryList.Binaries),
			NonTestBinaryCount: len(binaryList.BuildMeta.FlattenNonTestBinaries()),
			LinkedPathCount:    len(binaryList.BuildMeta.LinkedPaths),
			OutputFile:         req.OutputFile,
		})
		if err != nil {
			return &engine.ReporterError{Err: err}
		}

		archiver, err := NewArchiver(w, req.Manifest, req.PathMapper,
			WithFs(req.Fs),
			WithFormats(req.Formats),
			WithCompression(req.Format, req.ZstdLevel),
		)
		if err != nil {
			return err
		}

		fileCount, err = archiver.Run()
		return err
	})
	if err != nil {
		return 0, err
	}

	err = reporter.Report(engine.ArchiveCompleted{
		FileCount:  fileCount,
		OutputFile: req.OutputFile,
		Elapsed:    time.Since(start),
	})
	if err != nil {
		return fileCount, &engine.ReporterError{Err: err}
	}

	return fileCount, nil
}
