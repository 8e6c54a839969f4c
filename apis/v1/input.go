package v1

import (
	"github.com/goccy/go-yaml"
)

// InputSpec says where an input document comes from. Exactly one field must
// be set. A bare string is shorthand for a path.
type InputSpec struct {
	Path    *string       `yaml:"path,omitempty" json:"path,omitempty" validate:"required_without_all=Value Command HTTP,excluded_with=Value Command HTTP" template:""`
	Value   *string       `yaml:"value,omitempty" json:"value,omitempty" validate:"excluded_with=Path Command HTTP"`
	Command *CommandInput `yaml:"command,omitempty" json:"command,omitempty" validate:"excluded_with=Path Value HTTP"`
	HTTP    *HTTPInput    `yaml:"http,omitempty" json:"http,omitempty" validate:"excluded_with=Path Value Command"`
}

func (s *InputSpec) UnmarshalYAML(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if path, ok := raw.(string); ok {
		s.Path = &path
		return nil
	}

	type plain InputSpec
	return yaml.Unmarshal(data, (*plain)(s))
}

// CommandInput runs a program and reads its standard output, e.g.
// `cargo metadata --format-version 1`.
type CommandInput struct {
	Program    []string          `yaml:"program" json:"program" validate:"required,min=1" template:""`
	WorkingDir *string           `yaml:"working_dir,omitempty" json:"working_dir,omitempty" template:""`
	Timeout    *string           `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty" template:""`
}

// HTTPInput fetches the document with a GET request, e.g. from a CI artifact store.
type HTTPInput struct {
	URL     string            `yaml:"url" json:"url" validate:"required,url" template:""`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" template:""`
	Auth    *HTTPAuth         `yaml:"auth,omitempty" json:"auth,omitempty"`
	// Timeout in seconds (default: 30).
	Timeout  *int `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"omitempty,min=1"`
	Insecure bool `yaml:"insecure,omitempty" json:"insecure,omitempty"`
}

type HTTPAuth struct {
	Basic *HTTPBasicAuth `yaml:"basic,omitempty" json:"basic,omitempty"`
}

type HTTPBasicAuth struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty" template:""`
	Password string `yaml:"password,omitempty" json:"password,omitempty" template:""`
	// Encoded is a pre-encoded "username:password" in base64; it wins over Username and Password.
	Encoded string `yaml:"encoded,omitempty" json:"encoded,omitempty" template:""`
}
