package v1

// ArchiveJob describes one archive run: which build outputs to pack, where the
// archive goes and where it is published afterwards.
type ArchiveJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ArchiveJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata"`
	Spec     ArchiveJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ArchiveJobSpec struct {
	// BinaryList is the binary list produced by the build (JSON or YAML).
	BinaryList InputSpec `yaml:"binary_list" json:"binary_list" validate:"required"`

	// BuildMetadata is the raw build-system metadata blob, stored verbatim.
	BuildMetadata InputSpec `yaml:"build_metadata" json:"build_metadata" validate:"required"`

	Output OutputSpec `yaml:"output" json:"output"`

	// Remap redirects reads of secondary binaries and linked paths when the
	// build tree was relocated after the binary list was produced.
	Remap *RemapSpec `yaml:"remap,omitempty" json:"remap,omitempty"`

	// Upload publishes the finished archive (optional).
	Upload *UploadSpec `yaml:"upload,omitempty" json:"upload,omitempty"`
}

// OutputSpec configures the archive file.
type OutputSpec struct {
	// Path is the archive file to create. Its suffix selects the format unless
	// Format is set.
	Path string `yaml:"path" json:"path" validate:"required" template:""`

	// Format forces the archive format (e.g. "tar-zst").
	Format *string `yaml:"format,omitempty" json:"format,omitempty"`

	// ZstdLevel is the zstd compression level (default: 0).
	ZstdLevel *int `yaml:"zstd_level,omitempty" json:"zstd_level,omitempty" validate:"omitempty,min=-7,max=22"`
}

type RemapSpec struct {
	// TargetDirectory is where the target directory now lives.
	TargetDirectory string `yaml:"target_directory" json:"target_directory" validate:"required" template:""`
}

// UploadSpec configures where the archive is published (one of the fields should be set).
type UploadSpec struct {
	S3         *S3UploadSpec         `yaml:"s3,omitempty" json:"s3,omitempty" validate:"required_without=Filesystem,excluded_with=Filesystem"`
	Filesystem *FilesystemUploadSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty" validate:"required_without=S3"`
}

type S3UploadSpec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}

type FilesystemUploadSpec struct {
	// Path is the directory the archive is copied into.
	Path string `yaml:"path" json:"path" validate:"required" template:""`
}
