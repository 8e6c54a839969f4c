package main

import (
	"context"
	"fmt"
	"io"
	"os"

	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/runner"
)

// readJobFile reads the job file at name, or stdin when name is "-". It also
// returns a description of where the job came from for logging.
func readJobFile(ctx context.Context, name string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read job from stdin: %w", err)
		}
		return data, "stdin", nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}

// loadJob reads, parses, and expands the templates of a job file.
func loadJob(ctx context.Context, name string, allowedEnv []string, override func(*v1.ArchiveJob)) (v1.ArchiveJob, error) {
	data, _, err := readJobFile(ctx, name)
	if err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to read job file '%s': %w", name, err)
	}

	job, err := runner.ParseArchiveJob(data)
	if err != nil {
		return v1.ArchiveJob{}, formatValidationError(err)
	}

	if override != nil {
		override(&job)
	}

	variables, err := runner.BuildVariables(job, allowedEnv)
	if err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to build variables: %w", err)
	}

	if err := runner.ExpandTemplates(&job, variables); err != nil {
		return v1.ArchiveJob{}, fmt.Errorf("failed to expand templates: %w", err)
	}

	return job, nil
}
