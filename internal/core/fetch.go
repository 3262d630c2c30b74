package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/barysiuk/skillfork/internal/logger"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
)

const (
	userAgent       = "skillfork"
	readmeFileName  = "README.md"
	maxDocumentSize = 4 << 20
)

// defaultBranches are tried in order for every candidate path.
var defaultBranches = []string{"main", "master"}

// metadataPaths are SKILL.md locations, root first. The order decides which
// of several conflicting documents wins, so do not reorder.
var metadataPaths = []string{
	"SKILL.md",
	"skill.md",
	"skills/SKILL.md",
	".claude/skills/SKILL.md",
	".gemini/skills/SKILL.md",
}

// Retriever reads a document at a location. Any error means "not available".
type Retriever interface {
	Retrieve(ctx context.Context, location string) ([]byte, error)
}

// Candidate is one (path, branch) location to try.
type Candidate struct {
	Path   string
	Branch string
}

// ReadmeCandidates returns README.md on main, then master.
func ReadmeCandidates() []Candidate {
	return crossCandidates([]string{readmeFileName}, defaultBranches)
}

// MetadataCandidates returns every metadata path crossed with every branch,
// path in the outer loop.
func MetadataCandidates() []Candidate {
	return crossCandidates(metadataPaths, defaultBranches)
}

func crossCandidates(paths, branches []string) []Candidate {
	out := make([]Candidate, 0, len(paths)*len(branches))
	for _, p := range paths {
		for _, b := range branches {
			out = append(out, Candidate{Path: p, Branch: b})
		}
	}
	return out
}

// StatusError is returned by HTTPRetriever for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPRetriever fetches documents over HTTP.
type HTTPRetriever struct {
	client  *http.Client
	headers map[string]string
}

// NewHTTPRetriever creates a retriever using client (http.DefaultClient if nil).
func NewHTTPRetriever(client *http.Client, headers map[string]string) *HTTPRetriever {
	if client == nil {
		client = http.DefaultClient
	}
	h := map[string]string{"User-Agent": userAgent}
	for k, v := range headers {
		h[k] = v
	}
	return &HTTPRetriever{client: client, headers: h}
}

// NewAPIRetriever creates a retriever for the GitHub REST API that asks for
// raw content. With a non-empty token requests are authenticated.
func NewAPIRetriever(ctx context.Context, token string) *HTTPRetriever {
	var client *http.Client
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		logger.G(ctx).Debug("no GitHub token configured; API fallback is unauthenticated")
	}
	return NewHTTPRetriever(client, map[string]string{
		"Accept": "application/vnd.github.raw+json",
	})
}

// Retrieve implements Retriever.
func (r *HTTPRetriever) Retrieve(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: location, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	return body, nil
}

// Fetcher retrieves repository documents without cloning.
type Fetcher struct {
	raw        Retriever
	api        Retriever // optional, used only for the README fallback
	rawBaseURL string
	apiBaseURL string
}

// NewFetcher creates a Fetcher. api may be nil to disable the API fallback.
func NewFetcher(raw, api Retriever, rawBaseURL, apiBaseURL string) *Fetcher {
	return &Fetcher{
		raw:        raw,
		api:        api,
		rawBaseURL: strings.TrimRight(rawBaseURL, "/"),
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
	}
}

// RawURL returns the raw file location of a candidate.
func (f *Fetcher) RawURL(ref RepositoryRef, c Candidate) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", f.rawBaseURL, ref.Owner, ref.Repo, c.Branch, c.Path)
}

// FetchFirst tries candidates in order and returns the first document that
// retrieves successfully and passes accept (nil accepts everything).
// Failures are never returned; ok is false when every candidate failed.
func (f *Fetcher) FetchFirst(
	ctx context.Context,
	ref RepositoryRef,
	candidates []Candidate,
	accept func([]byte) bool,
) (content []byte, location string, ok bool) {
	log := logger.G(ctx).WithField("repo", ref.String())

	var attempts *multierror.Error
	for _, c := range candidates {
		loc := f.RawURL(ref, c)
		body, err := f.raw.Retrieve(ctx, loc)
		if err != nil {
			attempts = multierror.Append(attempts, err)
			continue
		}
		if accept != nil && !accept(body) {
			attempts = multierror.Append(attempts, fmt.Errorf("%s: rejected", loc))
			continue
		}
		log.WithField("location", loc).Debug("fetched document")
		return body, loc, true
	}

	if attempts != nil {
		log.WithError(attempts.ErrorOrNil()).Debug("no candidate document available")
	}
	return nil, "", false
}

// FetchReadme returns the README from main or master, falling back to the
// API readme endpoint.
func (f *Fetcher) FetchReadme(ctx context.Context, ref RepositoryRef) (string, bool) {
	if body, _, ok := f.FetchFirst(ctx, ref, ReadmeCandidates(), nil); ok {
		return string(body), true
	}
	if f.api == nil {
		return "", false
	}

	loc := fmt.Sprintf("%s/repos/%s/%s/readme", f.apiBaseURL, ref.Owner, ref.Repo)
	body, err := f.api.Retrieve(ctx, loc)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("repo", ref.String()).Debug("API readme fallback failed")
		return "", false
	}
	return string(body), true
}

// FetchMetadata returns the first SKILL.md that carries name and description.
func (f *Fetcher) FetchMetadata(ctx context.Context, ref RepositoryRef) (*SkillMetadata, string, bool) {
	var meta *SkillMetadata
	_, loc, ok := f.FetchFirst(ctx, ref, MetadataCandidates(), func(body []byte) bool {
		m, ok := ExtractMetadata(body)
		meta = m
		return ok
	})
	if !ok {
		return nil, "", false
	}
	return meta, loc, true
}
