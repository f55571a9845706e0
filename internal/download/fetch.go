// Package download streams release archives into the local cache. Transfers
// are written under a temporary name and renamed into place only on full
// success, so a partial file is never mistaken for a complete cache entry.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/m9a-tools/m9aup/internal/errors"
	"github.com/m9a-tools/m9aup/internal/release"
)

const (
	// DefaultMaxAttempts bounds the retry loop around one transfer.
	DefaultMaxAttempts = 4
	// DefaultRetryInterval is the fixed wait between transfer attempts.
	DefaultRetryInterval = 10 * time.Second
)

// NewHTTPClient builds an HTTP client with the given timeout, routed through
// proxy when non-empty. An empty proxy falls back to the environment's proxy
// settings.
func NewHTTPClient(timeout time.Duration, proxy string) (*http.Client, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// ProgressWriter wraps an io.Writer to report transfer progress.
type ProgressWriter struct {
	Writer   io.Writer
	Total    int64
	Current  int64
	OnUpdate func(current, total int64)
}

// Write implements io.Writer and reports progress.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Current += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Current, pw.Total)
	}
	return n, err
}

// Fetcher downloads release assets with a bounded retry loop. Retrying
// stays inside the fetcher; the pipeline above never retries a failed stage.
type Fetcher struct {
	httpClient    *http.Client
	maxAttempts   int
	retryInterval time.Duration
	proxy         string
}

// Option mutates a Fetcher during construction.
type Option func(*Fetcher)

// WithMaxAttempts overrides the transfer attempt bound.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) { f.maxAttempts = n }
}

// WithRetryInterval overrides the wait between attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.retryInterval = d }
}

// WithProxy records the proxy the HTTP client was configured with, so
// transport failures can name it instead of a generic network error.
func WithProxy(proxy string) Option {
	return func(f *Fetcher) { f.proxy = proxy }
}

// NewFetcher creates a fetcher using the given HTTP client. A nil client
// falls back to a default with release.DefaultHTTPTimeout.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: release.DefaultHTTPTimeout}
	}
	f := &Fetcher{
		httpClient:    client,
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the asset into destDir under its expected filename and
// returns the final path. Progress, when non-nil, receives byte counts.
func (f *Fetcher) Fetch(ctx context.Context, asset release.AssetRef, destDir string, progress func(current, total int64)) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", apperrors.WrapWithMessage(err, apperrors.Download, "creating download directory")
	}

	finalPath := filepath.Join(destDir, asset.Filename())

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", apperrors.WrapWithMessage(ctx.Err(), apperrors.Download, "download cancelled")
			case <-time.After(f.retryInterval):
			}
		}

		lastErr = f.fetchOnce(ctx, asset, finalPath, progress)
		if lastErr == nil {
			return finalPath, nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	var urlErr *url.Error
	if f.proxy != "" && errors.As(lastErr, &urlErr) {
		return "", apperrors.ProxyUnreachable(f.proxy, lastErr)
	}
	return "", apperrors.WrapWithMessage(lastErr, apperrors.Download,
		fmt.Sprintf("downloading %s failed after %d attempts", asset.Name, f.maxAttempts),
		"check your network connection",
		"configure a proxy if GitHub is blocked from your network",
	)
}

// fetchOnce performs a single transfer attempt into path via a temporary
// sibling file.
func (f *Fetcher) fetchOnce(ctx context.Context, asset release.AssetRef, path string, progress func(current, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "m9aup-update-checker")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", asset.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	partialPath := path + ".partial"
	tmp, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("creating partial file: %w", err)
	}

	writer := io.Writer(tmp)
	if progress != nil {
		writer = &ProgressWriter{
			Writer:   tmp,
			Total:    resp.ContentLength,
			OnUpdate: progress,
		}
	}

	written, err := io.Copy(writer, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partialPath)
		return fmt.Errorf("writing partial file: %w", err)
	}

	// A short read without an error still means a truncated transfer when
	// the server announced a length.
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(partialPath)
		return fmt.Errorf("truncated transfer: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := os.Rename(partialPath, path); err != nil {
		os.Remove(partialPath)
		return fmt.Errorf("renaming into place: %w", err)
	}

	return nil
}
