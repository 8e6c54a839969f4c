package runner

import (
	"fmt"
	"time"

	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/infracollect/testpack/internal/engine/sources"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// NewSource builds the source an input spec points at. name identifies the
// input in logs and errors.
func NewSource(logger *zap.Logger, fs afero.Fs, name string, spec v1.InputSpec) (engine.Source, error) {
	switch {
	case spec.Path != nil:
		return sources.NewFileSource(fs, *spec.Path), nil
	case spec.Value != nil:
		return sources.NewValueSource(name, *spec.Value), nil
	case spec.Command != nil:
		return sources.NewCommandSource(name, logger.Named(name), sources.CommandConfig{
			Program:    spec.Command.Program,
			WorkingDir: spec.Command.WorkingDir,
			Timeout:    spec.Command.Timeout,
			Env:        spec.Command.Env,
		})
	case spec.HTTP != nil:
		return sources.NewHTTPSource(httpConfig(spec.HTTP))
	default:
		return nil, fmt.Errorf("input %s: no source specified", name)
	}
}

func httpConfig(spec *v1.HTTPInput) sources.HTTPConfig {
	cfg := sources.HTTPConfig{
		URL:      spec.URL,
		Headers:  spec.Headers,
		Insecure: spec.Insecure,
	}

	if spec.Timeout != nil {
		cfg.Timeout = time.Duration(*spec.Timeout) * time.Second
	}

	if spec.Auth != nil && spec.Auth.Basic != nil {
		cfg.Auth = &sources.AuthConfig{
			Basic: &sources.BasicAuthConfig{
				Username: spec.Auth.Basic.Username,
				Password: spec.Auth.Basic.Password,
				Encoded:  spec.Auth.Basic.Encoded,
			},
		}
	}

	return cfg
}
