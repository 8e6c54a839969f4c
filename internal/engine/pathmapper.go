package engine

import (
	"path/filepath"
)

// PathMapper rewrites a resolved source path before it is read.
type PathMapper interface {
	MapBinary(path string) string
}

// PathMapperFunc adapts a function to the PathMapper interface.
type PathMapperFunc func(path string) string

func (f PathMapperFunc) MapBinary(path string) string {
	return f(path)
}

// IdentityPathMapper returns every path unchanged.
var IdentityPathMapper PathMapper = PathMapperFunc(func(path string) string { return path })

// RemapPathMapper redirects paths under one target directory to another.
type RemapPathMapper struct {
	from string
	to   string
}

// NewRemapPathMapper maps paths under from to the same relative path under to.
func NewRemapPathMapper(from, to string) *RemapPathMapper {
	return &RemapPathMapper{
		from: filepath.Clean(from),
		to:   filepath.Clean(to),
	}
}

func (m *RemapPathMapper) MapBinary(path string) string {
	rel, ok := RelativeTo(m.from, path)
	if !ok {
		return path
	}
	return filepath.Join(m.to, rel)
}

// RelativeTo returns target relative to base, and false when target is not
// base itself or inside it.
func RelativeTo(base, target string) (string, bool) {
	rel, err := filepath.Rel(base, target)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}
