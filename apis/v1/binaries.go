package v1

import (
	"slices"

	"github.com/samber/lo"
)

// BinaryList is the build's description of what was produced. It is written
// verbatim (as indented JSON) into every archive.
type BinaryList struct {
	BuildMeta BuildMeta    `yaml:"build-meta" json:"build-meta" validate:"required"`
	Binaries  []TestBinary `yaml:"binaries" json:"binaries" validate:"dive"`
}

type BuildMeta struct {
	// TargetDirectory is the absolute build root.
	TargetDirectory string `yaml:"target-directory" json:"target-directory" validate:"required"`

	// NonTestBinaries are grouped by an arbitrary key (usually the package).
	NonTestBinaries map[string][]NonTestBinary `yaml:"non-test-binaries" json:"non-test-binaries" validate:"dive,dive"`

	// LinkedPaths are directories, relative to TargetDirectory, whose contents
	// are needed at test time.
	LinkedPaths []string `yaml:"linked-paths" json:"linked-paths" validate:"dive,required"`
}

type TestBinary struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	// Path is absolute and lies within BuildMeta.TargetDirectory.
	Path string `yaml:"path" json:"path" validate:"required"`
}

type NonTestBinary struct {
	Name string `yaml:"name" json:"name"`
	// Path is relative to BuildMeta.TargetDirectory.
	Path string `yaml:"path" json:"path" validate:"required"`
}

// FlattenNonTestBinaries returns every non-test binary ordered by group key,
// then by declaration order within a group.
func (m BuildMeta) FlattenNonTestBinaries() []NonTestBinary {
	keys := lo.Keys(m.NonTestBinaries)
	slices.Sort(keys)
	return lo.FlatMap(keys, func(key string, _ int) []NonTestBinary {
		return m.NonTestBinaries[key]
	})
}
