package engine

import (
	"time"

	"go.uber.org/zap"
)

// ArchiveEvent is a lifecycle notification emitted while archiving.
// The set of events is closed: ArchiveStarted and ArchiveCompleted.
type ArchiveEvent interface {
	archiveEvent()
}

// ArchiveStarted is emitted before any bytes are written.
type ArchiveStarted struct {
	TestBinaryCount    int
	NonTestBinaryCount int
	LinkedPathCount    int
	OutputFile         string
}

// ArchiveCompleted is emitted after the archive has been published.
type ArchiveCompleted struct {
	FileCount  int
	OutputFile string
	Elapsed    time.Duration
}

func (ArchiveStarted) archiveEvent()   {}
func (ArchiveCompleted) archiveEvent() {}

// Reporter receives archive events synchronously. A returned error aborts the
// archive operation.
type Reporter interface {
	Report(event ArchiveEvent) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(event ArchiveEvent) error

func (f ReporterFunc) Report(event ArchiveEvent) error {
	return f(event)
}

// NopReporter discards every event.
func NopReporter() Reporter {
	return ReporterFunc(func(ArchiveEvent) error { return nil })
}

// LogReporter writes archive events to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(event ArchiveEvent) error {
	switch e := event.(type) {
	case ArchiveStarted:
		r.logger.Info("archive started",
			zap.Int("test_binary_count", e.TestBinaryCount),
			zap.Int("non_test_binary_count", e.NonTestBinaryCount),
			zap.Int("linked_path_count", e.LinkedPathCount),
			zap.String("output_file", e.OutputFile),
		)
	case ArchiveCompleted:
		r.logger.Info("archive completed",
			zap.Int("file_count", e.FileCount),
			zap.String("output_file", e.OutputFile),
			zap.Duration("elapsed", e.Elapsed),
		)
	}
	return nil
}

// MultiReporter fans events out to every reporter in order, stopping at the first error.
func MultiReporter(reporters ...Reporter) Reporter {
	return ReporterFunc(func(event ArchiveEvent) error {
		for _, r := range reporters {
			if err := r.Report(event); err != nil {
				return err
			}
		}
		return nil
	})
}
