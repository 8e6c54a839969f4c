package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/infracollect/testpack/internal/engine/archivers"
	"github.com/infracollect/testpack/internal/engine/sinks"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Runner struct {
	logger   *zap.Logger
	job      v1.ArchiveJob
	fs       afero.Fs
	request  archivers.Request
	reporter engine.Reporter
	sink     engine.Sink
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

type Option func(*Runner)

// WithFs sets the filesystem the job's inputs are read from and the archive is written to.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithReporter replaces the default log reporter.
func WithReporter(reporter engine.Reporter) Option {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// WithSink publishes the archive to sink instead of the job's upload target.
func WithSink(sink engine.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// ParseArchiveJob parses a YAML or JSON job file and validates it. It returns
// a validated ArchiveJob or an error if parsing or validation fails.
func ParseArchiveJob(data []byte) (v1.ArchiveJob, error) {
	var job v1.ArchiveJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

// New reads the job's binary list and build metadata from their sources and
// prepares the archive request. Templates in job must already be expanded.
func New(ctx context.Context, logger *zap.Logger, job v1.ArchiveJob, opts ...Option) (*Runner, error) {
	r := &Runner{
		logger: logger,
		job:    job,
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = engine.NewLogReporter(logger.Named("archive"))
	}

	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	binaryListSource, err := NewSource(logger, r.fs, "binary_list", job.Spec.BinaryList)
	if err != nil {
		return nil, fmt.Errorf("failed to create binary list source: %w", err)
	}
	binaryList, err := LoadBinaryList(ctx, binaryListSource)
	if err != nil {
		return nil, err
	}

	buildMetadataSource, err := NewSource(logger, r.fs, "build_metadata", job.Spec.BuildMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create build metadata source: %w", err)
	}
	buildMetadata, err := buildMetadataSource.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read build metadata from %s: %w", buildMetadataSource.Name(), err)
	}
	logger.Debug("inputs loaded",
		zap.String("binary_list", binaryListSource.Name()),
		zap.String("build_metadata", buildMetadataSource.Name()),
	)

	formats := archivers.NewFormatRegistry()
	format, err := resolveFormat(formats, job.Spec.Output)
	if err != nil {
		return nil, err
	}

	level := archivers.DefaultZstdLevel
	if job.Spec.Output.ZstdLevel != nil {
		level = *job.Spec.Output.ZstdLevel
	}

	r.request = archivers.Request{
		Manifest: &archivers.Manifest{
			BinaryList:    binaryList,
			BuildMetadata: string(buildMetadata),
		},
		PathMapper: buildPathMapper(binaryList, job.Spec.Remap),
		Format:     format,
		ZstdLevel:  level,
		OutputFile: job.Spec.Output.Path,
		Fs:         r.fs,
		Formats:    formats,
	}

	if r.sink == nil && job.Spec.Upload != nil {
		r.sink, err = buildSink(ctx, r.fs, job.Spec.Upload)
		if err != nil {
			return nil, fmt.Errorf("failed to build upload sink: %w", err)
		}
	}

	logger.Debug("runner ready",
		zap.String("format", format.String()),
		zap.Int("zstd_level", level),
		zap.Int("test_binaries", len(binaryList.Binaries)),
		zap.String("output", job.Spec.Output.Path),
	)

	return r, nil
}

// Run writes the archive and, when an upload target is configured, publishes it.
func (r *Runner) Run(ctx context.Context) error {
	fileCount, err := archivers.ArchiveToFile(ctx, r.request, r.reporter)
	if err != nil {
		return fmt.Errorf("failed to archive to %s: %w", r.request.OutputFile, err)
	}

	r.logger.Debug("archive written", zap.Int("file_count", fileCount), zap.String("output", r.request.OutputFile))

	if r.sink == nil {
		return nil
	}

	defer func() {
		// Use a background context so the sink is closed even if ctx was cancelled.
		if err := r.sink.Close(context.Background()); err != nil {
			r.logger.Error("failed to close sink", zap.String("sink", r.sink.Name()), zap.Error(err))
		}
	}()

	return r.upload(ctx)
}

func (r *Runner) upload(ctx context.Context) error {
	f, err := r.fs.Open(r.request.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", r.request.OutputFile, err)
	}
	defer f.Close()

	name := filepath.Base(r.request.OutputFile)
	if err := r.sink.Write(ctx, name, f); err != nil {
		return fmt.Errorf("failed to upload archive to %s: %w", r.sink.Name(), err)
	}

	r.logger.Info("archive uploaded", zap.String("sink", r.sink.Name()), zap.String("name", name))
	return nil
}

func resolveFormat(formats *engine.FormatRegistry, output v1.OutputSpec) (engine.ArchiveFormat, error) {
	if output.Format != nil {
		return formats.Lookup(*output.Format)
	}
	return formats.Autodetect(output.Path)
}

func buildPathMapper(binaryList v1.BinaryList, remap *v1.RemapSpec) engine.PathMapper {
	if remap == nil {
		return engine.IdentityPathMapper
	}
	return engine.NewRemapPathMapper(binaryList.BuildMeta.TargetDirectory, remap.TargetDirectory)
}

func buildSink(ctx context.Context, fs afero.Fs, upload *v1.UploadSpec) (engine.Sink, error) {
	switch {
	case upload.S3 != nil:
		return buildS3Sink(ctx, upload.S3)
	case upload.Filesystem != nil:
		return sinks.NewFilesystemSinkFromPath(fs, upload.Filesystem.Path)
	default:
		return nil, fmt.Errorf("invalid upload configuration: no upload type specified")
	}
}

func buildS3Sink(ctx context.Context, s3Spec *v1.S3UploadSpec) (engine.Sink, error) {
	cfg := sinks.S3Config{
		Bucket:         s3Spec.Bucket,
		ForcePathStyle: s3Spec.ForcePathStyle,
	}

	if s3Spec.Region != nil {
		cfg.Region = *s3Spec.Region
	}

	if s3Spec.Endpoint != nil {
		cfg.Endpoint = *s3Spec.Endpoint
	}

	if s3Spec.Prefix != nil {
		cfg.Prefix = *s3Spec.Prefix
	}

	if s3Spec.Credentials != nil {
		cfg.AccessKeyID = s3Spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = s3Spec.Credentials.SecretAccessKey
	}

	return sinks.NewS3Sink(ctx, cfg)
}
