package mapview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Fetcher downloads rendered artifacts from the generation server.
type Fetcher struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a fetcher resolving artifact URLs against baseURL.
func NewFetcher(baseURL string, timeout time.Duration, logger *slog.Logger) (*Fetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	return &Fetcher{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Resolve returns the absolute URL for an artifact reference.
func (f *Fetcher) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse artifact url: %w", err)
	}
	return f.baseURL.ResolveReference(u).String(), nil
}

// Download saves the artifact at ref into dir and returns the file path. The
// file is named after the last path element, ignoring any query string.
func (f *Fetcher) Download(ctx context.Context, ref, dir string) (string, error) {
	full, err := f.Resolve(ref)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(full)
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("artifact url %q has no file name", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("artifact download error: status %d: %s", resp.StatusCode, body)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dest := filepath.Join(dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}

	f.logger.Info("artifact downloaded", "url", full, "path", dest, "bytes", n)
	return dest, nil
}
