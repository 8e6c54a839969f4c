package sources

import (
	"context"
	"fmt"

	"github.com/infracollect/testpack/internal/engine"
)

const ValueSourceKind = "value"

// ValueSource is an input written inline in the job file.
type ValueSource struct {
	name  string
	value string
}

func NewValueSource(name, value string) engine.Source {
	return &ValueSource{name: name, value: value}
}

func (s *ValueSource) Name() string {
	return fmt.Sprintf("%s(%s)", ValueSourceKind, s.name)
}

func (s *ValueSource) Kind() string {
	return ValueSourceKind
}

func (s *ValueSource) Read(context.Context) ([]byte, error) {
	return []byte(s.value), nil
}
