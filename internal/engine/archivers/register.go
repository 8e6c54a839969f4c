package archivers

import "github.com/infracollect/testpack/internal/engine"

// Register registers every built-in archive format with the registry.
func Register(r *engine.FormatRegistry) {
	r.Register(engine.FormatTarZst, NewTarZstWriter, ".tar.zst")
}

// NewFormatRegistry returns a registry holding every built-in archive format.
func NewFormatRegistry() *engine.FormatRegistry {
	r := engine.NewFormatRegistry()
	Register(r)
	return r
}
