package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m9a-tools/m9aup/internal/config"
	"github.com/m9a-tools/m9aup/internal/download"
	apperrors "github.com/m9a-tools/m9aup/internal/errors"
	"github.com/m9a-tools/m9aup/internal/logging"
	"github.com/m9a-tools/m9aup/internal/release"
	"github.com/m9a-tools/m9aup/internal/testutil"
)

const (
	testVersion  = "v1.2.3"
	liteFilename = "M9A-win-x86_64-v1.2.3-Lite.zip"
	fullFilename = "M9A-win-x86_64-v1.2.3-Full.zip"
)

var liteOnlyEntries = map[string]string{
	"M9A.exe":        "binary",
	"interface.json": "interface",
}

var depsEntries = map[string]string{
	"deps/onnx.dll":     "dll",
	"deps/ocr/det.onnx": "model",
}

// merged returns the union of the given entry maps.
func merged(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// releaseServer serves a latest-release payload and its assets, counting
// asset downloads.
type releaseServer struct {
	*httptest.Server
	liteHits atomic.Int64
	fullHits atomic.Int64
}

// newReleaseServer builds a server offering the Lite archive and, when full
// is non-nil, the Full archive. Digests are published for both.
func newReleaseServer(t *testing.T, lite, full []byte) *releaseServer {
	t.Helper()

	rs := &releaseServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		assets := []map[string]any{{
			"name":                 liteFilename,
			"browser_download_url": rs.URL + "/assets/" + liteFilename,
			"size":                 len(lite),
			"digest":               "sha256:" + hexDigest(lite),
		}}
		if full != nil {
			assets = append(assets, map[string]any{
				"name":                 fullFilename,
				"browser_download_url": rs.URL + "/assets/" + fullFilename,
				"size":                 len(full),
				"digest":               "sha256:" + hexDigest(full),
			})
		}
		payload := map[string]any{
			"tag_name":     testVersion,
			"published_at": time.Now().UTC().Format(time.RFC3339),
			"assets":       assets,
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	})
	mux.HandleFunc("/assets/"+liteFilename, func(w http.ResponseWriter, r *http.Request) {
		rs.liteHits.Add(1)
		w.Write(lite)
	})
	mux.HandleFunc("/assets/"+fullFilename, func(w http.ResponseWriter, r *http.Request) {
		rs.fullHits.Add(1)
		w.Write(full)
	})

	rs.Server = httptest.NewServer(mux)
	t.Cleanup(rs.Close)
	return rs
}

func hexDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// newTestPipeline wires a pipeline against the fake release server.
func newTestPipeline(t *testing.T, srv *releaseServer, cfg *config.Configuration) *Pipeline {
	t.Helper()

	logger, err := logging.New(logging.Options{})
	require.NoError(t, err)

	p, err := New(cfg, logger,
		WithChecker(release.NewChecker(srv.Client(), srv.URL+"/release")),
		WithFetcher(download.NewFetcher(srv.Client(), download.WithMaxAttempts(1))),
	)
	require.NoError(t, err)
	return p
}

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	work := t.TempDir()
	return &config.Configuration{
		InstallDir:  filepath.Join(work, "m9a"),
		CacheDir:    filepath.Join(work, "cache"),
		Repo:        "MAA1999/M9A",
		HTTPTimeout: 10,
		LogMaxFiles: 15,
	}
}

func TestRunWithDependencyCompleteLite(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, merged(liteOnlyEntries, depsEntries))
	full := testutil.ZipBytes(t, merged(liteOnlyEntries, depsEntries))
	srv := newReleaseServer(t, lite, full)

	cfg := testConfig(t)
	testutil.WriteTree(t, cfg.InstallDir, map[string]string{
		"config/settings.txt": "keep me",
		"old.txt":             "stale",
	})

	p := newTestPipeline(t, srv, cfg)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testVersion, result.Version)
	assert.False(t, result.LiteFromCache)
	assert.False(t, result.FullUsed)
	assert.False(t, result.DepsStaged)

	tree := testutil.ReadTree(t, cfg.InstallDir)
	assert.Equal(t, "binary", tree["M9A.exe"])
	assert.Equal(t, "dll", tree["deps/onnx.dll"])
	assert.Equal(t, "keep me", tree["config/settings.txt"])
	assert.NotContains(t, tree, "old.txt")

	// The Full archive was never requested.
	assert.EqualValues(t, 1, srv.liteHits.Load())
	assert.EqualValues(t, 0, srv.fullHits.Load())

	// Cleanup removed the downloaded archive.
	assert.NoFileExists(t, filepath.Join(cfg.CacheDir, liteFilename))
}

func TestRunStagesDepsFromFull(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, liteOnlyEntries)
	full := testutil.ZipBytes(t, merged(liteOnlyEntries, depsEntries))
	srv := newReleaseServer(t, lite, full)

	cfg := testConfig(t)
	cfg.FullDownloadEnabled = true
	p := newTestPipeline(t, srv, cfg)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.FullUsed)
	assert.True(t, result.DepsStaged)

	tree := testutil.ReadTree(t, cfg.InstallDir)
	assert.Equal(t, "binary", tree["M9A.exe"])
	assert.Equal(t, "dll", tree["deps/onnx.dll"])
	assert.Equal(t, "model", tree["deps/ocr/det.onnx"])

	assert.EqualValues(t, 1, srv.liteHits.Load())
	assert.EqualValues(t, 1, srv.fullHits.Load())
}

func TestRunLiteWithoutDepsAndNoFullAsset(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, liteOnlyEntries)
	srv := newReleaseServer(t, lite, nil)

	cfg := testConfig(t)
	cfg.FullDownloadEnabled = true
	p := newTestPipeline(t, srv, cfg)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.Resolution))
}

func TestRunFullDownloadDisabledInstallsWithoutDeps(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, liteOnlyEntries)
	full := testutil.ZipBytes(t, merged(liteOnlyEntries, depsEntries))
	srv := newReleaseServer(t, lite, full)

	cfg := testConfig(t)
	cfg.FullDownloadEnabled = false
	p := newTestPipeline(t, srv, cfg)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.FullUsed)
	assert.False(t, result.DepsStaged)
	assert.EqualValues(t, 0, srv.fullHits.Load())

	// Installed without the dependency subtree.
	tree := testutil.ReadTree(t, cfg.InstallDir)
	assert.Equal(t, "binary", tree["M9A.exe"])
	assert.NotContains(t, tree, "deps/onnx.dll")
}

func TestRunCachedCompleteLiteSkipsFullPrefetch(t *testing.T) {
	t.Parallel()

	entries := merged(liteOnlyEntries, depsEntries)
	lite := testutil.ZipBytes(t, entries)
	full := testutil.ZipBytes(t, entries)
	srv := newReleaseServer(t, lite, full)

	cfg := testConfig(t)
	cfg.FullDownloadEnabled = true
	require.NoError(t, os.MkdirAll(cfg.CacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, liteFilename), lite, 0644))

	p := newTestPipeline(t, srv, cfg)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.LiteFromCache)
	assert.False(t, result.DepsStaged)
	assert.EqualValues(t, 0, srv.liteHits.Load())
	assert.EqualValues(t, 0, srv.fullHits.Load())
}

func TestRunReusesCachedLite(t *testing.T) {
	t.Parallel()

	entries := merged(liteOnlyEntries, depsEntries)
	lite := testutil.ZipBytes(t, entries)
	srv := newReleaseServer(t, lite, nil)

	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.CacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, liteFilename), lite, 0644))

	p := newTestPipeline(t, srv, cfg)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.LiteFromCache)
	assert.EqualValues(t, 0, srv.liteHits.Load())
}

func TestRunRedownloadsCorruptCachedLite(t *testing.T) {
	t.Parallel()

	entries := merged(liteOnlyEntries, depsEntries)
	lite := testutil.ZipBytes(t, entries)
	srv := newReleaseServer(t, lite, nil)

	cfg := testConfig(t)
	// A valid zip under the right name, but not the published bytes: the
	// checksum catches it.
	stale := testutil.ZipBytes(t, map[string]string{"M9A.exe": "tampered"})
	require.NoError(t, os.MkdirAll(cfg.CacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.CacheDir, liteFilename), stale, 0644))

	p := newTestPipeline(t, srv, cfg)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.LiteFromCache)
	assert.EqualValues(t, 1, srv.liteHits.Load())
	assert.Equal(t, "binary", testutil.ReadTree(t, cfg.InstallDir)["M9A.exe"])
}

func TestCheckDownloadsNothing(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, liteOnlyEntries)
	full := testutil.ZipBytes(t, depsEntries)
	srv := newReleaseServer(t, lite, full)

	cfg := testConfig(t)
	p := newTestPipeline(t, srv, cfg)

	rel, err := p.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testVersion, rel.Version)
	assert.Equal(t, liteFilename, rel.Lite.Name)
	require.NotNil(t, rel.Full)
	assert.Equal(t, fullFilename, rel.Full.Name)

	assert.EqualValues(t, 0, srv.liteHits.Load())
	assert.EqualValues(t, 0, srv.fullHits.Load())
	assert.NoDirExists(t, cfg.InstallDir)
}

func TestRunResolutionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	logger, err := logging.New(logging.Options{})
	require.NoError(t, err)

	p, err := New(cfg, logger,
		WithChecker(release.NewChecker(srv.Client(), srv.URL)),
		WithFetcher(download.NewFetcher(srv.Client(), download.WithMaxAttempts(1))),
	)
	require.NoError(t, err)

	_, runErr := p.Run(context.Background())
	require.Error(t, runErr)
	assert.True(t, apperrors.IsCategory(runErr, apperrors.Resolution))
	assert.NoDirExists(t, cfg.InstallDir)
}

func TestRunChecksumMismatch(t *testing.T) {
	t.Parallel()

	lite := testutil.ZipBytes(t, merged(liteOnlyEntries, depsEntries))

	// The published digest never matches what the server actually sends.
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"tag_name":     testVersion,
			"published_at": time.Now().UTC().Format(time.RFC3339),
			"assets": []map[string]any{{
				"name":                 liteFilename,
				"browser_download_url": srvURL + "/assets/" + liteFilename,
				"size":                 len(lite),
				"digest":               fmt.Sprintf("sha256:%064d", 0),
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	})
	mux.HandleFunc("/assets/"+liteFilename, func(w http.ResponseWriter, r *http.Request) {
		w.Write(lite)
	})
	srv := httptest.NewServer(mux)
	srvURL = srv.URL
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	logger, err := logging.New(logging.Options{})
	require.NoError(t, err)

	p, err := New(cfg, logger,
		WithChecker(release.NewChecker(srv.Client(), srv.URL+"/release")),
		WithFetcher(download.NewFetcher(srv.Client(), download.WithMaxAttempts(1))),
	)
	require.NoError(t, err)

	_, runErr := p.Run(context.Background())
	require.Error(t, runErr)
	assert.True(t, apperrors.IsCategory(runErr, apperrors.Download))

	// The failed archive was not left in the cache.
	assert.NoFileExists(t, filepath.Join(cfg.CacheDir, liteFilename))
}
