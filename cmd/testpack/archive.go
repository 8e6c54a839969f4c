package main

import (
	"context"
	"fmt"
	"os"

	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/infracollect/testpack/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	minZstdLevel = -7
	maxZstdLevel = 22
)

var archiveCommand = &cli.Command{
	Name:  "archive",
	Usage: "Archive the test binaries described by a job file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Archive file to write, overriding spec.output.path",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Archive format, overriding autodetection from the output file name",
		},
		&cli.IntFlag{
			Name:    "zstd-level",
			Usage:   "Zstandard compression level, overriding spec.output.zstd_level",
			Sources: cli.EnvVars("TESTPACK_ZSTD_LEVEL"),
			Action: func(ctx context.Context, command *cli.Command, level int) error {
				if level < minZstdLevel || level > maxZstdLevel {
					return fmt.Errorf("invalid zstd level %d: must be between %d and %d", level, minZstdLevel, maxZstdLevel)
				}
				return nil
			},
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file describing what to archive (- for stdin)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		logger = logger.With(zap.String("job_filename", jobFilename))

		job, err := loadJob(ctx, jobFilename, command.StringSlice("allowed-env"), func(job *v1.ArchiveJob) {
			applyOverrides(command, job)
		})
		if err != nil {
			return err
		}

		var reporter engine.Reporter = engine.NewLogReporter(logger.Named("archive"))
		if isInteractive(ctx) {
			reporter = newTerminalReporter(os.Stderr, true)
		}

		r, err := runner.New(ctx, logger.Named("runner"), job, runner.WithReporter(reporter))
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		return nil
	},
}

// applyOverrides copies flags set on the command line into job.
func applyOverrides(command *cli.Command, job *v1.ArchiveJob) {
	if command.IsSet("output") {
		job.Spec.Output.Path = command.String("output")
	}
	if command.IsSet("format") {
		format := command.String("format")
		job.Spec.Output.Format = &format
	}
	if command.IsSet("zstd-level") {
		level := command.Int("zstd-level")
		job.Spec.Output.ZstdLevel = &level
	}
}
