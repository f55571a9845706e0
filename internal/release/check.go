// Package release resolves the latest published M9A release and its
// downloadable archives from the GitHub API.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// DefaultHTTPTimeout is the default timeout for release API requests.
const DefaultHTTPTimeout = 30 * time.Second

// releaseResponse mirrors the GitHub latest-release payload.
type releaseResponse struct {
	TagName     string          `json:"tag_name"`
	PublishedAt time.Time       `json:"published_at"`
	Body        string          `json:"body"`
	Assets      []assetResponse `json:"assets"`
}

// assetResponse mirrors a single release asset.
type assetResponse struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"` // "sha256:<hex>" when present
}

// Checker fetches and interprets the latest release.
type Checker struct {
	httpClient *http.Client
	apiURL     string
}

// NewChecker creates a release checker. A nil client falls back to a default
// client with DefaultHTTPTimeout.
func NewChecker(client *http.Client, apiURL string) *Checker {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Checker{httpClient: client, apiURL: apiURL}
}

// Resolve fetches the latest release and selects the Lite and Full archive
// assets. The Lite asset is required; Full may be absent.
func (c *Checker) Resolve(ctx context.Context, repo string) (*Release, error) {
	resp, err := c.fetchLatestRelease(ctx, repo)
	if err != nil {
		return nil, err
	}

	rel := &Release{
		Version:     resp.TagName,
		PublishedAt: resp.PublishedAt,
	}

	for _, a := range resp.Assets {
		ref := AssetRef{
			Name:   a.Name,
			URL:    a.BrowserDownloadURL,
			Size:   a.Size,
			SHA256: parseDigest(a.Digest),
		}
		switch {
		case liteAssetRe.MatchString(a.Name):
			rel.Lite = ref
		case fullAssetRe.MatchString(a.Name):
			full := ref
			rel.Full = &full
		}
	}

	if rel.Lite.Name == "" {
		return nil, apperrors.NoMatchingAsset("Lite", LiteAssetPattern)
	}

	return rel, nil
}

// fetchLatestRelease performs the API request and decodes the response.
func (c *Checker) fetchLatestRelease(ctx context.Context, repo string) (*releaseResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, apperrors.WrapWithMessage(err, apperrors.Resolution, "creating release request")
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "m9aup-update-checker")
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapWithMessage(err, apperrors.Resolution,
			"release source unreachable",
			"check your network connection",
			"configure a proxy if GitHub is blocked from your network",
		)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NoPublishedRelease(repo)
	case resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewResolutionError(
			"GitHub API rate limit exceeded",
			"set GITHUB_TOKEN to raise the rate limit",
			"wait a while and retry",
		)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewResolutionError(
			fmt.Sprintf("release source returned status %d", resp.StatusCode))
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, apperrors.WrapWithMessage(err, apperrors.Resolution, "malformed release response")
	}
	if release.TagName == "" {
		return nil, apperrors.NewResolutionError("release response is missing a version tag")
	}

	return &release, nil
}
