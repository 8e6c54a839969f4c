package runner

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	v1 "github.com/infracollect/testpack/apis/v1"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/klauspost/compress/zstd"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const jobYAML = `
kind: ArchiveJob
metadata:
  name: nightly
spec:
  binary_list: /work/binaries.json
  build_metadata:
    command:
      program: [cargo, metadata, "--format-version", "1"]
      timeout: 2m
  output:
    path: /out/${JOB_NAME}.tar.zst
    zstd_level: 3
  upload:
    filesystem:
      path: /published
`

func TestParseArchiveJob(t *testing.T) {
	job, err := ParseArchiveJob([]byte(jobYAML))
	require.NoError(t, err)

	assert.Equal(t, "nightly", job.Metadata.Name)
	assert.Equal(t, "/work/binaries.json", *job.Spec.BinaryList.Path)
	require.NotNil(t, job.Spec.BuildMetadata.Command)
	assert.Equal(t, []string{"cargo", "metadata", "--format-version", "1"}, job.Spec.BuildMetadata.Command.Program)
	assert.Equal(t, "2m", *job.Spec.BuildMetadata.Command.Timeout)
	assert.Equal(t, "/out/${JOB_NAME}.tar.zst", job.Spec.Output.Path)
	assert.Equal(t, 3, *job.Spec.Output.ZstdLevel)
	require.NotNil(t, job.Spec.Upload)
	assert.Equal(t, "/published", job.Spec.Upload.Filesystem.Path)
	assert.Nil(t, job.Spec.Upload.S3)
}

func TestParseArchiveJob_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "wrong kind",
			data: `
kind: CollectJob
metadata: {name: x}
spec: {binary_list: a, build_metadata: b, output: {path: c.tar.zst}}
`,
		},
		{
			name: "missing name",
			data: `
kind: ArchiveJob
spec: {binary_list: a, build_metadata: b, output: {path: c.tar.zst}}
`,
		},
		{
			name: "missing output path",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec: {binary_list: a, build_metadata: b}
`,
		},
		{
			name: "zstd level out of range",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec: {binary_list: a, build_metadata: b, output: {path: c.tar.zst, zstd_level: 23}}
`,
		},
		{
			name: "two upload targets",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec:
  binary_list: a
  build_metadata: b
  output: {path: c.tar.zst}
  upload:
    s3: {bucket: b}
    filesystem: {path: /p}
`,
		},
		{
			name: "empty upload",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec:
  binary_list: a
  build_metadata: b
  output: {path: c.tar.zst}
  upload: {}
`,
		},
		{
			name: "input with two sources",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec:
  binary_list: {path: a, value: "{}"}
  build_metadata: b
  output: {path: c.tar.zst}
`,
		},
		{
			name: "input with no source",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec:
  binary_list: {}
  build_metadata: b
  output: {path: c.tar.zst}
`,
		},
		{
			name: "command input without program",
			data: `
kind: ArchiveJob
metadata: {name: x}
spec:
  binary_list: a
  build_metadata: {command: {program: []}}
  output: {path: c.tar.zst}
`,
		},
		{
			name: "not yaml",
			data: "kind: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArchiveJob([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func newWorkFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/work/binaries.json":                     binaryListJSON,
		"/work/metadata.json":                     `{"packages":[]}`,
		"/work/target/debug/unit":                 "unit",
		"/work/target/debug/helper":               "helper",
		"/work/target/debug/build/out/generated":  "generated",
		"/moved/target/debug/helper":              "moved helper",
		"/moved/target/debug/build/out/generated": "moved generated",
	}
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func testJob() v1.ArchiveJob {
	return v1.ArchiveJob{
		Kind:     "ArchiveJob",
		Metadata: v1.Metadata{Name: "nightly"},
		Spec: v1.ArchiveJobSpec{
			BinaryList:    v1.InputSpec{Path: lo.ToPtr("/work/binaries.json")},
			BuildMetadata: v1.InputSpec{Path: lo.ToPtr("/work/metadata.json")},
			Output:        v1.OutputSpec{Path: "/out/nightly.tar.zst"},
		},
	}
}

type recordingSink struct {
	name   string
	data   []byte
	closed bool
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Kind() string { return "recording" }

func (s *recordingSink) Write(ctx context.Context, path string, data io.Reader) error {
	s.name = path
	var err error
	s.data, err = io.ReadAll(data)
	return err
}

func (s *recordingSink) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func TestRunner_Run(t *testing.T) {
	fs := newWorkFs(t)
	var events []engine.ArchiveEvent
	reporter := engine.ReporterFunc(func(e engine.ArchiveEvent) error {
		events = append(events, e)
		return nil
	})

	r, err := New(t.Context(), zaptest.NewLogger(t), testJob(), WithFs(fs), WithReporter(reporter))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	data, err := afero.ReadFile(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, data[:4])

	require.Len(t, events, 2)
	completed, ok := events[1].(engine.ArchiveCompleted)
	require.True(t, ok)
	// manifest, metadata, unit, helper, generated
	assert.Equal(t, 5, completed.FileCount)
}

func TestRunner_InlineInputs(t *testing.T) {
	fs := newWorkFs(t)
	require.NoError(t, fs.Remove("/work/binaries.json"))
	require.NoError(t, fs.Remove("/work/metadata.json"))
	job := testJob()
	job.Spec.BinaryList = v1.InputSpec{Value: lo.ToPtr(binaryListJSON)}
	job.Spec.BuildMetadata = v1.InputSpec{Value: lo.ToPtr("inline metadata")}

	r, err := New(t.Context(), zaptest.NewLogger(t), job, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	data, err := afero.ReadFile(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer decoder.Close()

	tr := tar.NewReader(decoder)
	var names []string
	var metadata []byte
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
		if header.Name == engine.MetadataFileName {
			metadata, err = io.ReadAll(tr)
			require.NoError(t, err)
		}
	}
	assert.Len(t, names, 5)
	assert.Equal(t, "inline metadata", string(metadata))
}

func TestRunner_FilesystemUpload(t *testing.T) {
	fs := newWorkFs(t)
	job := testJob()
	job.Spec.Upload = &v1.UploadSpec{Filesystem: &v1.FilesystemUploadSpec{Path: "/published"}}

	r, err := New(t.Context(), zaptest.NewLogger(t), job, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	archive, err := afero.ReadFile(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	published, err := afero.ReadFile(fs, "/published/nightly.tar.zst")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(archive, published))
}

func TestRunner_SinkOverride(t *testing.T) {
	fs := newWorkFs(t)
	sink := &recordingSink{}

	r, err := New(t.Context(), zaptest.NewLogger(t), testJob(), WithFs(fs), WithSink(sink))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	archive, err := afero.ReadFile(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "nightly.tar.zst", sink.name)
	assert.Equal(t, archive, sink.data)
	assert.True(t, sink.closed)
}

func TestRunner_Remap(t *testing.T) {
	fs := newWorkFs(t)
	require.NoError(t, fs.Remove("/work/target/debug/helper"))
	require.NoError(t, fs.RemoveAll("/work/target/debug/build"))
	job := testJob()
	job.Spec.Remap = &v1.RemapSpec{TargetDirectory: "/moved/target"}

	r, err := New(t.Context(), zaptest.NewLogger(t), job, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	exists, err := afero.Exists(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunner_RunFailsOnMissingInput(t *testing.T) {
	fs := newWorkFs(t)
	require.NoError(t, fs.Remove("/work/target/debug/helper"))
	sink := &recordingSink{}

	r, err := New(t.Context(), zaptest.NewLogger(t), testJob(), WithFs(fs), WithSink(sink))
	require.NoError(t, err)

	err = r.Run(t.Context())
	var inputErr *engine.InputReadError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "/work/target/debug/helper", inputErr.Path)

	exists, err := afero.Exists(fs, "/out/nightly.tar.zst")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, sink.data)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(job *v1.ArchiveJob)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing binary list",
			mutate: func(job *v1.ArchiveJob) { job.Spec.BinaryList.Path = lo.ToPtr("/work/nope.json") },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to read binary list")
			},
		},
		{
			name:   "missing build metadata",
			mutate: func(job *v1.ArchiveJob) { job.Spec.BuildMetadata.Path = lo.ToPtr("/work/nope.txt") },
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to read build metadata")
			},
		},
		{
			name: "invalid binary list",
			mutate: func(job *v1.ArchiveJob) {
				job.Spec.BinaryList = v1.InputSpec{Value: lo.ToPtr(`{"build-meta": {"target-directory": "target"}, "binaries": []}`)}
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "invalid binary list from value(binary_list)")
			},
		},
		{
			name: "empty input",
			mutate: func(job *v1.ArchiveJob) {
				job.Spec.BuildMetadata = v1.InputSpec{}
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "input build_metadata: no source specified")
			},
		},
		{
			name:   "unknown output suffix",
			mutate: func(job *v1.ArchiveJob) { job.Spec.Output.Path = "/out/nightly.zip" },
			check: func(t *testing.T, err error) {
				var unknownErr *engine.UnknownFormatError
				assert.ErrorAs(t, err, &unknownErr)
			},
		},
		{
			name:   "unsupported explicit format",
			mutate: func(job *v1.ArchiveJob) { job.Spec.Output.Format = lo.ToPtr("tar-gz") },
			check: func(t *testing.T, err error) {
				var unsupportedErr *engine.UnsupportedFormatError
				require.ErrorAs(t, err, &unsupportedErr)
				assert.Equal(t, []string{"tar-zst"}, unsupportedErr.Available)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testJob()
			tt.mutate(&job)

			_, err := New(t.Context(), zaptest.NewLogger(t), job, WithFs(newWorkFs(t)))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNew_ExplicitFormat(t *testing.T) {
	fs := newWorkFs(t)
	job := testJob()
	job.Spec.Output.Path = "/out/nightly.bin"
	job.Spec.Output.Format = lo.ToPtr("tar-zst")

	r, err := New(t.Context(), zaptest.NewLogger(t), job, WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	exists, err := afero.Exists(fs, "/out/nightly.bin")
	require.NoError(t, err)
	assert.True(t, exists)
}
