package archivers

import (
	"archive/tar"
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	content  string
	mode     int64
	modTime  time.Time
	typeflag byte
}

// readTarZstEntries decompresses a tar.zst stream and returns its entries in order.
func readTarZstEntries(t *testing.T, data []byte) []tarEntry {
	t.Helper()

	zr, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer zr.Close()

	var entries []tarEntry
	tr := tar.NewReader(zr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries = append(entries, tarEntry{
			name:     h.Name,
			content:  string(content),
			mode:     h.Mode,
			modTime:  h.ModTime,
			typeflag: h.Typeflag,
		})
	}
	return entries
}

func entryNames(entries []tarEntry) []string {
	return lo.Map(entries, func(e tarEntry, _ int) string { return e.name })
}

func entryContents(entries []tarEntry) map[string]string {
	return lo.SliceToMap(entries, func(e tarEntry) (string, string) { return e.name, e.content })
}

func newMemMapFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, files)
	return fs
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
