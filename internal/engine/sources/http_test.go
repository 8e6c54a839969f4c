package sources

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPSource_Validation(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{name: "empty url", url: "", errContains: "url is required"},
		{name: "unsupported scheme", url: "ftp://example.com/list.json", errContains: "http or https"},
		{name: "unparsable url", url: "http://[::1", errContains: "failed to parse url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPSource(HTTPConfig{URL: tt.url})
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestHTTPSource_Read(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		_, _ = w.Write([]byte(`{"binaries": []}`))
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPConfig{
		URL:     server.URL + "/artifacts/binaries.json",
		Headers: map[string]string{"X-Job": "nightly"},
		Auth:    &AuthConfig{Basic: &BasicAuthConfig{Username: "user", Password: "pass"}},
	}, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, HTTPSourceKind, source.Kind())

	data, err := source.Read(t.Context())
	require.NoError(t, err)
	assert.Equal(t, `{"binaries": []}`, string(data))

	require.NotNil(t, captured)
	assert.Equal(t, "/artifacts/binaries.json", captured.URL.Path)
	assert.Equal(t, "nightly", captured.Header.Get("X-Job"))
	assert.Equal(t, "testpack", captured.Header.Get("User-Agent"))
	username, password, ok := captured.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", username)
	assert.Equal(t, "pass", password)
}

func TestHTTPSource_EncodedBasicAuth(t *testing.T) {
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPConfig{
		URL:  server.URL,
		Auth: &AuthConfig{Basic: &BasicAuthConfig{Username: "ignored", Encoded: "dXNlcjpwYXNz"}},
	}, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = source.Read(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Basic dXNlcjpwYXNz", authorization)
}

func TestHTTPSource_Gzip(t *testing.T) {
	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	_, err := gw.Write([]byte("compressed metadata"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(compressed.Bytes())
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPConfig{URL: server.URL}, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	data, err := source.Read(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "compressed metadata", string(data))
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such artifact"))
	}))
	defer server.Close()

	source, err := NewHTTPSource(HTTPConfig{URL: server.URL}, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = source.Read(t.Context())
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 404")
	assert.ErrorContains(t, err, "no such artifact")
}
