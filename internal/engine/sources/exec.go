package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/infracollect/testpack/internal/engine"
	"go.uber.org/zap"
)

const (
	CommandSourceKind = "command"

	DefaultCommandTimeout = 5 * time.Minute
)

type CommandConfig struct {
	Program    []string
	WorkingDir *string
	Timeout    *string
	// Env is added to the inherited environment.
	Env map[string]string
}

// CommandSource runs a program and uses its standard output as the input.
type CommandSource struct {
	name       string
	logger     *zap.Logger
	program    []string
	workingDir string
	timeout    time.Duration
	env        map[string]string
}

func NewCommandSource(name string, logger *zap.Logger, cfg CommandConfig) (engine.Source, error) {
	if len(cfg.Program) == 0 {
		return nil, fmt.Errorf("program is required")
	}

	timeout := DefaultCommandTimeout
	if cfg.Timeout != nil {
		parsed, err := time.ParseDuration(*cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", *cfg.Timeout, err)
		}
		timeout = parsed
	}

	var workingDir string
	if cfg.WorkingDir != nil {
		if filepath.IsAbs(*cfg.WorkingDir) {
			workingDir = *cfg.WorkingDir
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get working directory: %w", err)
			}
			workingDir = filepath.Join(cwd, *cfg.WorkingDir)
		}
	}

	return &CommandSource{
		name:       name,
		logger:     logger,
		program:    cfg.Program,
		workingDir: workingDir,
		timeout:    timeout,
		env:        cfg.Env,
	}, nil
}

func (s *CommandSource) Name() string {
	return fmt.Sprintf("%s(%s)", CommandSourceKind, s.program[0])
}

func (s *CommandSource) Kind() string {
	return CommandSourceKind
}

func (s *CommandSource) Read(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.program[0], s.program[1:]...)
	cmd.Dir = s.workingDir

	cmd.Env = os.Environ()
	for k, v := range s.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("running input command",
		zap.String("input", s.name),
		zap.Strings("program", s.program),
		zap.Duration("timeout", s.timeout),
		zap.String("working_dir", cmd.Dir),
	)
	start := time.Now()
	err := cmd.Run()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	s.logger.Debug("input command finished",
		zap.String("input", s.name),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", time.Since(start)),
	)

	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("command %s timed out after %s: %s", s.program[0], s.timeout, stderrStr)
		}
		if stderrStr != "" {
			return nil, fmt.Errorf("command %s failed: %w: %s", s.program[0], err, stderrStr)
		}
		return nil, fmt.Errorf("command %s failed: %w", s.program[0], err)
	}

	return stdout.Bytes(), nil
}
