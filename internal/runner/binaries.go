package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
)

// LoadBinaryList reads and validates the binary list from source. JSON and
// YAML are both accepted.
func LoadBinaryList(ctx context.Context, source engine.Source) (v1.BinaryList, error) {
	data, err := source.Read(ctx)
	if err != nil {
		return v1.BinaryList{}, fmt.Errorf("failed to read binary list from %s: %w", source.Name(), err)
	}

	binaryList, err := ParseBinaryList(data)
	if err != nil {
		return v1.BinaryList{}, fmt.Errorf("invalid binary list from %s: %w", source.Name(), err)
	}

	return binaryList, nil
}

func ParseBinaryList(data []byte) (v1.BinaryList, error) {
	var binaryList v1.BinaryList
	if err := yaml.Unmarshal(data, &binaryList); err != nil {
		return v1.BinaryList{}, fmt.Errorf("failed to unmarshal binary list: %w", err)
	}

	if err := defaultValidator.Struct(binaryList); err != nil {
		return v1.BinaryList{}, fmt.Errorf("failed to validate binary list: %w", err)
	}

	if err := ValidateBinaryList(binaryList); err != nil {
		return v1.BinaryList{}, err
	}

	return binaryList, nil
}

// ValidateBinaryList checks the path invariants the archiver relies on: an
// absolute target directory that is not the filesystem root, test binaries
// inside it, and non-test binaries and linked paths relative to it.
// Every violation is reported.
func ValidateBinaryList(binaryList v1.BinaryList) error {
	var errs error

	targetDir := filepath.Clean(binaryList.BuildMeta.TargetDirectory)
	if !filepath.IsAbs(targetDir) {
		errs = errors.Join(errs, fmt.Errorf("target directory %s must be absolute", targetDir))
	}
	if filepath.Dir(targetDir) == targetDir {
		errs = errors.Join(errs, fmt.Errorf("target directory %s cannot be the filesystem root", targetDir))
	}

	for _, binary := range binaryList.Binaries {
		if _, ok := engine.RelativeTo(targetDir, binary.Path); !ok {
			errs = errors.Join(errs, fmt.Errorf("test binary %s: path %s is not within target directory %s", binary.ID, binary.Path, targetDir))
		}
	}

	for _, binary := range binaryList.BuildMeta.FlattenNonTestBinaries() {
		if !filepath.IsLocal(filepath.FromSlash(binary.Path)) {
			errs = errors.Join(errs, fmt.Errorf("non-test binary %s: path %s must be relative to the target directory", binary.Name, binary.Path))
		}
	}

	for _, linkedPath := range binaryList.BuildMeta.LinkedPaths {
		if !filepath.IsLocal(filepath.FromSlash(linkedPath)) {
			errs = errors.Join(errs, fmt.Errorf("linked path %s must be relative to the target directory", linkedPath))
		}
	}

	return errs
}
