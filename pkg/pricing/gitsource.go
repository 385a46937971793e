package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitSourceConfig configures a git-backed pricing source.
type GitSourceConfig struct {
	// Repository is the clone URL of the pricing repo.
	Repository string

	// Branch is the branch to track.
	// Default: "main"
	Branch string

	// Path is the directory inside the repo holding pricing YAML files.
	// Empty means the repository root.
	Path string

	// LocalPath is where the repo is cloned. Defaults to a directory
	// under the OS temp dir.
	LocalPath string

	// PollInterval is how often to pull for new commits.
	// Default: 5 minutes
	PollInterval time.Duration

	// Token is an optional bearer token for HTTPS auth.
	Token string
}

// GitSource keeps a Table in sync with a git repository of pricing files.
// Pricing updates are out-of-band and versioned: each synced snapshot is
// tagged with the commit SHA, so a ledger operator can always answer which
// prices were active when an event was costed.
type GitSource struct {
	config GitSourceConfig
	table  *Table
	repo   *gogit.Repository
	logger *slog.Logger

	mu       sync.Mutex
	lastSHA  string
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewGitSource creates a git pricing source. Call Sync once for the initial
// load, then Run to poll for updates.
func NewGitSource(cfg GitSourceConfig, table *Table) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "meterr-pricing")
	}

	return &GitSource{
		config: cfg,
		table:  table,
		logger: slog.Default().With("component", "pricing.git"),
		stopCh: make(chan struct{}),
	}, nil
}

// Sync clones the repository (or opens and pulls an existing clone) and
// loads the pricing files into the table if the head commit changed.
func (g *GitSource) Sync(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		if err := g.open(ctx); err != nil {
			return err
		}
	} else if err := g.pull(ctx); err != nil {
		return err
	}

	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	sha := head.Hash().String()
	if sha == g.lastSHA {
		return nil
	}

	dir := filepath.Join(g.config.LocalPath, g.config.Path)
	entries, _, err := LoadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to load pricing from %q at %s: %w", dir, sha[:8], err)
	}

	g.table.Replace(entries, sha[:12])
	g.lastSHA = sha
	g.logger.Info("pricing synced from git",
		"commit", sha[:12],
		"entries", len(entries),
	)
	return nil
}

// Run polls the repository until the context is cancelled or Stop is
// called. Sync failures are logged and retried at the next interval; the
// previous pricing snapshot stays active.
func (g *GitSource) Run(ctx context.Context) {
	ticker := time.NewTicker(g.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopCh:
			return
		case <-ticker.C:
			if err := g.Sync(ctx); err != nil {
				g.logger.Error("pricing git sync failed", "error", err)
			}
		}
	}
}

// Stop terminates Run.
func (g *GitSource) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

func (g *GitSource) open(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing clone: %w", err)
		}
		g.repo = repo
		return g.pull(ctx)
	}

	if err := os.MkdirAll(g.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, g.config.LocalPath, false, &gogit.CloneOptions{
		URL:           g.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone pricing repository: %w", err)
	}

	g.repo = repo
	return nil
}

func (g *GitSource) pull(ctx context.Context) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = wt.PullContext(ctx, &gogit.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to pull pricing repository: %w", err)
	}
	return nil
}

func (g *GitSource) auth() *http.BasicAuth {
	if g.config.Token == "" {
		return nil
	}
	// go-git uses basic auth with any username for token access.
	return &http.BasicAuth{Username: "token", Password: g.config.Token}
}
