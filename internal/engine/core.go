package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// ISO8601Basic is a URL-safe timestamp format without colons.
	// This is the recommended format for S3 keys and filesystem paths.
	ISO8601Basic = "20060102T150405Z"

	// ManifestFileName is the first entry of every archive: the binary list as indented JSON.
	ManifestFileName = "manifest.json"

	// MetadataFileName is the second entry of every archive: the raw build metadata.
	MetadataFileName = "metadata.txt"

	// TargetDirName prefixes every entry resolved through the target directory.
	TargetDirName = "target"
)
