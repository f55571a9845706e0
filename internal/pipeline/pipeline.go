// Package pipeline runs a complete update: resolve the latest release,
// bring the needed archives into the local cache, complete the Lite archive
// with the shared dependency tree, and hand the result to the install
// orchestrator.
package pipeline

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m9a-tools/m9aup/internal/cache"
	"github.com/m9a-tools/m9aup/internal/config"
	"github.com/m9a-tools/m9aup/internal/deps"
	"github.com/m9a-tools/m9aup/internal/download"
	apperrors "github.com/m9a-tools/m9aup/internal/errors"
	"github.com/m9a-tools/m9aup/internal/install"
	"github.com/m9a-tools/m9aup/internal/logging"
	"github.com/m9a-tools/m9aup/internal/progress"
	"github.com/m9a-tools/m9aup/internal/release"
)

// Stage numbering for progress display.
const (
	stageResolve = iota + 1
	stageDownload
	stageComplete
	stageInstall
	totalStages = stageInstall
)

// Reporter receives stage transitions and byte counts during a run.
// progress.ProgressDisplay satisfies it.
type Reporter interface {
	StartStage(stage progress.StageInfo) error
	CompleteStage(stage progress.StageInfo) error
	FailStage(stage progress.StageInfo, err error) error
	ByteFunc() func(current, total int64)
}

// nopReporter discards all progress reporting.
type nopReporter struct{}

func (nopReporter) StartStage(progress.StageInfo) error       { return nil }
func (nopReporter) CompleteStage(progress.StageInfo) error    { return nil }
func (nopReporter) FailStage(progress.StageInfo, error) error { return nil }
func (nopReporter) ByteFunc() func(current, total int64)      { return nil }

// Result summarizes a completed update run.
type Result struct {
	// Version is the installed release tag.
	Version string
	// LiteFromCache is true when the Lite archive was reused from the cache.
	LiteFromCache bool
	// FullUsed is true when the Full archive participated in the run.
	FullUsed bool
	// DepsStaged is true when dependency files were staged out of the Full
	// archive rather than shipped inside the Lite archive.
	DepsStaged bool
}

// Pipeline wires the update stages together for one configuration.
type Pipeline struct {
	cfg      *config.Configuration
	log      *logging.Logger
	checker  *release.Checker
	fetcher  *download.Fetcher
	cache    *cache.Cache
	reporter Reporter
}

// Option mutates a Pipeline during construction.
type Option func(*Pipeline)

// WithReporter installs a progress reporter.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithChecker replaces the release checker.
func WithChecker(c *release.Checker) Option {
	return func(p *Pipeline) { p.checker = c }
}

// WithFetcher replaces the downloader.
func WithFetcher(f *download.Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// New builds a pipeline from the configuration. The HTTP client honors the
// configured timeout and proxy for both the release API and asset downloads.
func New(cfg *config.Configuration, logger *logging.Logger, opts ...Option) (*Pipeline, error) {
	client, err := download.NewHTTPClient(time.Duration(cfg.HTTPTimeout)*time.Second, cfg.Proxy)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		log:      logger,
		checker:  release.NewChecker(client, cfg.ReleaseAPIURL()),
		fetcher:  download.NewFetcher(client, download.WithProxy(cfg.Proxy)),
		cache:    cache.New(cfg.CacheDir),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Check resolves the latest release without downloading anything.
func (p *Pipeline) Check(ctx context.Context) (*release.Release, error) {
	return p.resolve(ctx)
}

// Run executes the full update sequence.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	rel, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Version: rel.Version}

	litePath, fullPath, err := p.download(ctx, rel, result)
	if err != nil {
		return nil, err
	}

	stagingDir, fullPath, err := p.completeDeps(ctx, rel, litePath, fullPath, result)
	if err != nil {
		return nil, err
	}

	if err := p.installRelease(litePath, fullPath, stagingDir); err != nil {
		return nil, err
	}

	p.log.Info("update installed", "version", rel.Version, "install_dir", p.cfg.InstallDir)
	return result, nil
}

// resolve is the first stage: query the release API.
func (p *Pipeline) resolve(ctx context.Context) (*release.Release, error) {
	stage := progress.StageInfo{Name: "resolve", Number: stageResolve, TotalStages: totalStages, Detail: p.cfg.Repo}
	if err := p.reporter.StartStage(stage); err != nil {
		return nil, err
	}

	rel, err := p.checker.Resolve(ctx, p.cfg.Repo)
	if err != nil {
		p.reporter.FailStage(stage, err)
		return nil, err
	}

	p.log.Info("latest release resolved", "version", rel.Version, "published", rel.PublishedAt.Format("2006-01-02"))
	p.log.Debug("lite asset", "name", rel.Lite.Name, "size", rel.Lite.Size)
	if rel.Full != nil {
		p.log.Debug("full asset", "name", rel.Full.Name, "size", rel.Full.Size)
	}

	p.reporter.CompleteStage(stage)
	return rel, nil
}

// download is the second stage: bring the Lite archive (and, when full
// downloads are enabled, the Full archive alongside it) into the cache.
func (p *Pipeline) download(ctx context.Context, rel *release.Release, result *Result) (litePath, fullPath string, err error) {
	stage := progress.StageInfo{Name: "download", Number: stageDownload, TotalStages: totalStages, Detail: rel.Lite.Name}
	if err := p.reporter.StartStage(stage); err != nil {
		return "", "", err
	}

	if err := p.cache.EnsureDir(); err != nil {
		wrapped := apperrors.WrapWithMessage(err, apperrors.Download, "preparing cache directory")
		p.reporter.FailStage(stage, wrapped)
		return "", "", wrapped
	}

	// Fetch the Full archive alongside the Lite archive when allowed, except
	// when a cached Lite copy already carries the dependency subtree.
	eagerFull := p.cfg.FullDownloadEnabled && rel.Full != nil
	if eagerFull && p.cache.Has(rel.Lite) {
		if has, err := deps.LiteHasDeps(p.cache.Path(rel.Lite)); err == nil && has {
			eagerFull = false
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	var liteFromCache bool
	g.Go(func() error {
		var err error
		litePath, liteFromCache, err = p.acquire(gctx, rel.Lite, p.reporter.ByteFunc())
		return err
	})
	if eagerFull {
		g.Go(func() error {
			var err error
			fullPath, _, err = p.acquire(gctx, *rel.Full, nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		p.reporter.FailStage(stage, err)
		return "", "", err
	}

	result.LiteFromCache = liteFromCache
	result.FullUsed = eagerFull
	p.reporter.CompleteStage(stage)
	return litePath, fullPath, nil
}

// completeDeps is the third stage: ensure the dependency subtree is
// available, pulling the Full archive in on demand when the Lite archive
// lacks it and it was not downloaded eagerly.
func (p *Pipeline) completeDeps(ctx context.Context, rel *release.Release, litePath, fullPath string, result *Result) (stagingDir string, usedFullPath string, err error) {
	stage := progress.StageInfo{Name: "dependencies", Number: stageComplete, TotalStages: totalStages}
	if err := p.reporter.StartStage(stage); err != nil {
		return "", "", err
	}

	hasDeps, err := deps.LiteHasDeps(litePath)
	if err != nil {
		p.reporter.FailStage(stage, err)
		return "", "", err
	}

	if hasDeps {
		p.log.Debug("lite archive is dependency-complete")
		p.reporter.CompleteStage(stage)
		return "", fullPath, nil
	}

	if !p.cfg.FullDownloadEnabled {
		p.log.Warn("lite archive lacks deps/ but full downloads are disabled; installing as-is")
		p.reporter.CompleteStage(stage)
		return "", fullPath, nil
	}

	if rel.Full == nil {
		err := apperrors.NoMatchingAsset("Full", release.FullAssetPattern)
		p.reporter.FailStage(stage, err)
		return "", "", err
	}

	if fullPath == "" {
		fullPath, _, err = p.acquire(ctx, *rel.Full, p.reporter.ByteFunc())
		if err != nil {
			p.reporter.FailStage(stage, err)
			return "", "", err
		}
	}

	completer := deps.NewCompleter(p.reporter.ByteFunc())
	staged, err := completer.Complete(litePath, fullPath, p.cache.StagingDir())
	if err != nil {
		p.reporter.FailStage(stage, err)
		return "", "", err
	}

	result.DepsStaged = staged
	result.FullUsed = true
	p.log.Info("dependency files staged from full archive")

	p.reporter.CompleteStage(stage)
	stagingDir = ""
	if staged {
		stagingDir = p.cache.StagingDir()
	}
	return stagingDir, fullPath, nil
}

// installRelease is the final stage: the destructive install sequence.
func (p *Pipeline) installRelease(litePath, fullPath, stagingDir string) error {
	stage := progress.StageInfo{Name: "install", Number: stageInstall, TotalStages: totalStages, Detail: p.cfg.InstallDir}
	if err := p.reporter.StartStage(stage); err != nil {
		return err
	}

	cleanup := []string{litePath}
	if fullPath != "" {
		cleanup = append(cleanup, fullPath)
	}
	if stagingDir != "" {
		cleanup = append(cleanup, stagingDir)
	}

	orch := install.NewOrchestrator(p.cfg.InstallDir, p.cache.BackupDir(),
		install.WithExtractProgress(p.reporter.ByteFunc()),
		install.WithStepCallback(func(s install.Step) {
			p.log.Debug("install step", "step", s.String())
		}),
	)
	if err := orch.Run(litePath, stagingDir, cleanup); err != nil {
		p.reporter.FailStage(stage, err)
		return err
	}

	p.reporter.CompleteStage(stage)
	return nil
}

// acquire returns a verified local path for the asset, reusing the cached
// copy when it matches. A cached archive failing its checksum is discarded
// and downloaded again.
func (p *Pipeline) acquire(ctx context.Context, asset release.AssetRef, byteProgress func(current, total int64)) (string, bool, error) {
	path := p.cache.Path(asset)

	if p.cache.Has(asset) {
		if asset.SHA256 == "" {
			p.log.Info("reusing cached archive", "file", asset.Name)
			return path, true, nil
		}
		if err := download.VerifySHA256(path, asset.SHA256); err == nil {
			p.log.Info("reusing cached archive", "file", asset.Name)
			return path, true, nil
		}
		p.log.Warn("cached archive failed checksum, downloading again", "file", asset.Name)
		if err := os.Remove(path); err != nil {
			return "", false, apperrors.WrapWithMessage(err, apperrors.Download, "removing corrupt cached archive")
		}
	}

	p.log.Info("downloading", "file", asset.Name, "size", progress.FormatBytes(asset.Size))
	got, err := p.fetcher.Fetch(ctx, asset, p.cache.Dir(), byteProgress)
	if err != nil {
		return "", false, err
	}

	if asset.SHA256 != "" {
		if err := download.VerifySHA256(got, asset.SHA256); err != nil {
			os.Remove(got)
			return "", false, apperrors.WrapWithMessage(err, apperrors.Download,
				"downloaded archive failed checksum verification",
				"rerun the update to download it again",
			)
		}
	}

	return got, false, nil
}
