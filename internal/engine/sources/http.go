package sources

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/infracollect/testpack/internal/engine"
	"github.com/klauspost/compress/gzip"
	"github.com/samber/lo"
)

const (
	HTTPSourceKind     = "http"
	DefaultHTTPTimeout = 30 * time.Second
)

var (
	defaultHeaders = map[string]string{
		"User-Agent":      "testpack",
		"Accept-Encoding": "gzip",
	}
)

type HTTPConfig struct {
	URL      string
	Headers  map[string]string
	Auth     *AuthConfig
	Timeout  time.Duration
	Insecure bool
}

type AuthConfig struct {
	Basic *BasicAuthConfig
}

type BasicAuthConfig struct {
	Username string
	Password string
	Encoded  string
}

// HTTPSource fetches an input with a GET request.
type HTTPSource struct {
	url        *url.URL
	httpClient *http.Client
	headers    map[string]string
}

type HTTPOption func(*HTTPSource)

func WithHTTPClient(httpClient *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = httpClient
	}
}

func NewHTTPSource(cfg HTTPConfig, opts ...HTTPOption) (engine.Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url '%s': %w", cfg.URL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	headers := lo.Assign(defaultHeaders, cfg.Headers)
	if cfg.Auth != nil && cfg.Auth.Basic != nil {
		if cfg.Auth.Basic.Encoded != "" {
			headers["Authorization"] = "Basic " + cfg.Auth.Basic.Encoded
		} else {
			headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Auth.Basic.Username+":"+cfg.Auth.Basic.Password))
		}
	}

	source := &HTTPSource{
		url:     parsedURL,
		headers: headers,
	}

	for _, opt := range opts {
		opt(source)
	}

	if source.httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultHTTPTimeout
		}

		transport := cleanhttp.DefaultPooledTransport()
		if cfg.Insecure {
			if transport.TLSClientConfig == nil {
				transport.TLSClientConfig = &tls.Config{}
			}

			transport.TLSClientConfig.InsecureSkipVerify = true
		}

		source.httpClient = &http.Client{
			Transport: transport,
			Timeout:   timeout,
		}
	}

	return source, nil
}

func (s *HTTPSource) Name() string {
	return fmt.Sprintf("%s(%s)", HTTPSourceKind, s.url.Host)
}

func (s *HTTPSource) Kind() string {
	return HTTPSourceKind
}

func (s *HTTPSource) Read(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() { _ = gzipReader.Close() }()
		body = gzipReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
