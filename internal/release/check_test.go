package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

const releaseJSON = `{
	"tag_name": "v3.9.3",
	"published_at": "2026-08-01T12:00:00Z",
	"assets": [
		{
			"name": "M9A-win-x86_64-v3.9.3-Lite.zip",
			"browser_download_url": "https://example.com/lite.zip",
			"size": 1024,
			"digest": "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		},
		{
			"name": "M9A-win-x86_64-v3.9.3-Full.zip",
			"browser_download_url": "https://example.com/full.zip",
			"size": 4096
		},
		{
			"name": "M9A-macos-aarch64-v3.9.3.zip",
			"browser_download_url": "https://example.com/macos.zip",
			"size": 2048
		}
	]
}`

func newTestChecker(t *testing.T, handler http.HandlerFunc) *Checker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewChecker(server.Client(), server.URL)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	checker := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(releaseJSON))
	})

	rel, err := checker.Resolve(context.Background(), "MAA1999/M9A")
	require.NoError(t, err)

	assert.Equal(t, "v3.9.3", rel.Version)
	assert.Equal(t, "M9A-win-x86_64-v3.9.3-Lite.zip", rel.Lite.Name)
	assert.Equal(t, "https://example.com/lite.zip", rel.Lite.URL)
	assert.Equal(t,
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		rel.Lite.SHA256)

	require.NotNil(t, rel.Full)
	assert.Equal(t, "M9A-win-x86_64-v3.9.3-Full.zip", rel.Full.Name)
	assert.Empty(t, rel.Full.SHA256)
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status int
		body   string
	}{
		"no release":     {status: http.StatusNotFound, body: `{"message": "Not Found"}`},
		"rate limited":   {status: http.StatusForbidden, body: `{"message": "rate limit"}`},
		"server error":   {status: http.StatusInternalServerError, body: ""},
		"malformed json": {status: http.StatusOK, body: `{"tag_name": `},
		"missing tag":    {status: http.StatusOK, body: `{"assets": []}`},
		"no lite asset": {
			status: http.StatusOK,
			body:   `{"tag_name": "v1.0.0", "assets": [{"name": "other.zip"}]}`,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			checker := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := checker.Resolve(context.Background(), "MAA1999/M9A")
			require.Error(t, err)
			assert.True(t, apperrors.IsCategory(err, apperrors.Resolution),
				"expected a Resolution error, got %v", err)
		})
	}
}

func TestResolveUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := server.Client()
	url := server.URL
	server.Close() // connection refused from here on

	checker := NewChecker(client, url)
	_, err := checker.Resolve(context.Background(), "MAA1999/M9A")
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.Resolution))
}

func TestAssetRefFilename(t *testing.T) {
	t.Parallel()

	ref := AssetRef{Name: "M9A-win-x86_64-v3.9.3-Lite.zip"}
	assert.Equal(t, "M9A-win-x86_64-v3.9.3-Lite.zip", ref.Filename())
}

func TestParseDigest(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		digest string
		want   string
	}{
		"valid": {
			digest: "sha256:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			want:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		"empty":        {digest: "", want: ""},
		"wrong scheme": {digest: "md5:abc", want: ""},
		"wrong length": {digest: "sha256:abcd", want: ""},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseDigest(tt.digest))
		})
	}
}
