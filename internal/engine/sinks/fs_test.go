package sinks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestFilesystemSink_Write(t *testing.T) {
	fsys := afero.NewMemMapFs()
	sink := NewFilesystemSink(fsys, AllowOverwrite)

	err := sink.Write(t.Context(), "nightly/archive.tar.zst", bytes.NewReader([]byte("archive")))
	require.NoError(t, err)

	content, err := afero.ReadFile(fsys, "nightly/archive.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "archive", string(content))
	assert.Equal(t, "filesystem", sink.Kind())
	assert.NoError(t, sink.Close(t.Context()))
}

func TestFilesystemSink_WriteFailureKeepsPrevious(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "archive.tar.zst", []byte("previous"), 0644))
	sink := NewFilesystemSink(fsys, AllowOverwrite)

	err := sink.Write(t.Context(), "archive.tar.zst", io.MultiReader(bytes.NewReader([]byte("half")), failingReader{}))
	require.ErrorContains(t, err, "read failed")

	content, err := afero.ReadFile(fsys, "archive.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
}

func TestFilesystemSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	fsys := afero.NewMemMapFs()
	err := NewFilesystemSink(fsys, AllowOverwrite).Write(ctx, "archive.tar.zst", bytes.NewReader(nil))
	require.ErrorIs(t, err, context.Canceled)

	exists, err := afero.Exists(fsys, "archive.tar.zst")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewFilesystemSinkFromPath(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFilesystemSinkFromPath(afero.NewOsFs(), dir+"/published")
	require.NoError(t, err)

	require.NoError(t, sink.Write(t.Context(), "a.tar.zst", bytes.NewReader([]byte("x"))))

	content, err := afero.ReadFile(afero.NewOsFs(), dir+"/published/a.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}
