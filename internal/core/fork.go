package core

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/barysiuk/skillfork/internal/logger"
)

// ErrForkNotFound means the identity has no fork of the repository.
var ErrForkNotFound = errors.New("fork not found")

// ErrNoIdentity means no GitHub account is configured to own forks.
var ErrNoIdentity = errors.New("no GitHub identity configured")

// Forker finds or creates forks of a repository under an identity.
type Forker interface {
	// FindFork returns the URL of identity/repo, or ErrForkNotFound.
	FindFork(ctx context.Context, identity, repo string) (string, error)
	// CreateFork forks ref into the authenticated account and returns its URL.
	CreateFork(ctx context.Context, ref RepositoryRef, identity string) (string, error)
}

// GHForker drives the GitHub CLI (gh).
type GHForker struct {
	timeout time.Duration
	run     commandRunner
}

// NewGHForker creates a Forker backed by the gh CLI.
func NewGHForker(timeout time.Duration) *GHForker {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &GHForker{timeout: timeout, run: runWithTimeout}
}

// FindFork implements Forker.
func (g *GHForker) FindFork(ctx context.Context, identity, repo string) (string, error) {
	out, err := g.run(ctx, g.timeout, "gh", "repo", "view", identity+"/"+repo, "--json", "url", "-q", ".url")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ClassifyForkError(identity+"/"+repo, "gh repo view", out, err)
		}
		return "", ErrForkNotFound
	}
	url := firstLine(out)
	if url == "" {
		return "", ErrForkNotFound
	}
	return url, nil
}

// CreateFork implements Forker.
func (g *GHForker) CreateFork(ctx context.Context, ref RepositoryRef, identity string) (string, error) {
	logger.G(ctx).WithField("repo", ref.String()).Infof("forking to %s", identity)

	out, err := g.run(ctx, g.timeout, "gh", "repo", "fork", ref.String(), "--clone=false")
	if err != nil {
		return "", ClassifyForkError(ref.String(), "gh repo fork", out, err)
	}
	return RepositoryRef{Owner: identity, Repo: ref.Repo}.URL(), nil
}

// resolveOrigin picks the URL the code should be obtained from. It returns
// origin and, when origin is not the repository itself, the upstream URL.
func resolveOrigin(ctx context.Context, f Forker, ref RepositoryRef, identity string) (origin, upstream string, err error) {
	upstreamURL := ref.URL()
	if ref.OwnedBy(identity) {
		return upstreamURL, "", nil
	}
	if identity == "" {
		return "", "", ErrNoIdentity
	}
	if f == nil {
		return "", "", errors.New("no fork provider configured")
	}

	log := logger.G(ctx).WithField("repo", ref.String())
	url, findErr := f.FindFork(ctx, identity, ref.Repo)
	if findErr == nil {
		log.WithField("fork", url).Info("fork already exists")
		return url, upstreamURL, nil
	}
	if !errors.Is(findErr, ErrForkNotFound) {
		log.WithError(findErr).Debug("fork lookup failed")
	}

	url, err = f.CreateFork(ctx, ref, identity)
	if err != nil {
		return "", "", err
	}
	return url, upstreamURL, nil
}
