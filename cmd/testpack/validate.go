package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/infracollect/testpack/internal/runner"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate a job file and the binary list it points to",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
		&cli.BoolFlag{
			Name:  "skip-binary-list",
			Usage: "Only validate the job file itself",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to validate (- for stdin)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		logger = logger.With(zap.String("job_filename", jobFilename))
		logger.Debug("validating job file")

		job, err := loadJob(ctx, jobFilename, command.StringSlice("allowed-env"), nil)
		if err != nil {
			return fmt.Errorf("job file '%s' is invalid: %w", jobFilename, err)
		}

		if !command.Bool("skip-binary-list") {
			source, err := runner.NewSource(logger, afero.NewOsFs(), "binary_list", job.Spec.BinaryList)
			if err != nil {
				return fmt.Errorf("failed to create binary list source: %w", err)
			}
			binaryList, err := runner.LoadBinaryList(ctx, source)
			if err != nil {
				return formatValidationError(err)
			}
			logger.Debug("binary list is valid",
				zap.String("binary_list", source.Name()),
				zap.Int("test_binaries", len(binaryList.Binaries)),
			)
		}

		check := color.New(color.FgGreen).Sprint("✓")
		_, err = fmt.Fprintf(command.Root().Writer, "%s Job file '%s' is valid\n", check, jobFilename)
		return err
	},
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d validation error(s):", len(validationErrs))
		for _, fe := range validationErrs {
			fmt.Fprintf(&sb, "\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag())
			if fe.Param() != "" {
				fmt.Fprintf(&sb, " (param: %s)", fe.Param())
			}
		}
		return errors.New(sb.String())
	}
	return err
}
