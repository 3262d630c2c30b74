package core

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aymanbagabas/go-udiff"
	"github.com/barysiuk/skillfork/internal/logger"
	"github.com/google/uuid"
)

// placeholderSuffix is appended to the repository name when no description is known.
const placeholderSuffix = " 技能"

// Installer resolves how a skill should be installed and records the
// decision in the manifest.
type Installer struct {
	cfg     *Config
	fetcher *Fetcher
	store   *ManifestStore
	forker  Forker
	sync    SyncRunner
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithFetcher replaces the network fetcher.
func WithFetcher(f *Fetcher) InstallerOption {
	return func(i *Installer) { i.fetcher = f }
}

// WithForker replaces the fork provider.
func WithForker(f Forker) InstallerOption {
	return func(i *Installer) { i.forker = f }
}

// WithSyncRunner replaces the update script runner.
func WithSyncRunner(r SyncRunner) InstallerOption {
	return func(i *Installer) { i.sync = r }
}

// WithStore replaces the manifest store.
func WithStore(s *ManifestStore) InstallerOption {
	return func(i *Installer) { i.store = s }
}

// NewInstaller creates an Installer. Collaborators not supplied through
// options are built from cfg: HTTP fetchers, the gh CLI and the update script.
func NewInstaller(ctx context.Context, cfg *Config, opts ...InstallerOption) (*Installer, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	i := &Installer{cfg: cfg}
	for _, opt := range opts {
		opt(i)
	}

	if i.fetcher == nil {
		i.fetcher = NewFetcher(
			NewHTTPRetriever(nil, nil),
			NewAPIRetriever(ctx, cfg.GitHubToken),
			cfg.RawBaseURL,
			cfg.APIBaseURL,
		)
	}
	if i.store == nil {
		i.store = NewManifestStore(cfg.ManifestPath)
	}
	if i.forker == nil {
		i.forker = NewGHForker(cfg.CommandTimeout)
	}
	if i.sync == nil {
		i.sync = NewScriptRunner(cfg.UpdateScript, cfg.SkillsRoot)
	}
	return i, nil
}

// Store returns the manifest store the installer writes to.
func (i *Installer) Store() *ManifestStore {
	return i.store
}

// Analyze fetches the README and SKILL.md of a repository and classifies its
// install method without touching the manifest.
func (i *Installer) Analyze(ctx context.Context, rawRef string) (*Analysis, error) {
	ref, ok := ParseRepository(rawRef)
	if !ok {
		return nil, &InvalidReferenceError{Input: rawRef}
	}

	log := logger.G(ctx).WithField("repo", ref.String())
	log.Info("analyzing repository")

	a := &Analysis{
		Ref:    ref,
		Method: InstallMethod{Kind: InstallUnknown, NeedsClone: true},
	}

	a.Readme, a.HasReadme = i.fetcher.FetchReadme(ctx, ref)
	if !a.HasReadme {
		a.Warnings = append(a.Warnings, Warning{
			Kind:    WarnMetadataUnavailable,
			Message: "could not fetch README",
		})
	}

	a.Metadata, a.MetadataSource, ok = i.fetcher.FetchMetadata(ctx, ref)
	if !ok {
		a.Warnings = append(a.Warnings, Warning{
			Kind:    WarnMetadataUnavailable,
			Message: "no SKILL.md with name and description found",
		})
	}

	if a.HasReadme {
		a.Method = ClassifyInstallMethod(a.Readme)
		a.Toolchains = DetectToolchains(a.Readme)
		log.WithField("method", a.Method.Kind).Info("detected install method")
	}
	return a, nil
}

// Install analyzes a repository, builds its manifest entry, upserts it and,
// unless disabled, starts the sync script. Only an unparsable reference or a
// failure to write the manifest is returned as an error; everything else
// degrades to a warning on the result.
func (i *Installer) Install(ctx context.Context, rawRef string, opts InstallOptions) (*InstallResult, error) {
	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("run_id", uuid.NewString()))

	a, err := i.Analyze(ctx, rawRef)
	if err != nil {
		return &InstallResult{Success: false, Message: err.Error()}, err
	}

	result := &InstallResult{Method: a.Method, Warnings: a.Warnings}
	entry := i.buildEntry(ctx, a, opts, result)

	update := func(m *Manifest) error {
		result.Replaced = m.Upsert(entry)
		return nil
	}
	var upd *ManifestUpdate
	if opts.DryRun {
		upd, err = i.store.Preview(ctx, update)
	} else {
		upd, err = i.store.Update(ctx, update)
	}
	if err != nil {
		result.Message = fmt.Sprintf("failed to update %s: %v", i.store.Path(), err)
		return result, fmt.Errorf("updating manifest: %w", err)
	}
	if upd.Recovered != nil {
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarnManifestUnreadable,
			Message: "existing manifest could not be parsed and was treated as empty",
			Err:     upd.Recovered,
		})
	}

	result.Success = true
	result.Entry = &entry
	result.Message = resultMessage(entry.Name, result.Replaced, opts.DryRun)

	if opts.DryRun {
		result.Diff = udiff.Unified(i.store.Path(), i.store.Path(), string(upd.Before), string(upd.After))
		return result, nil
	}

	if !opts.NoSync {
		task, err := i.sync.Start(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{
				Kind:    WarnSyncTriggerFailed,
				Message: "could not start sync script",
				Err:     err,
			})
		} else {
			result.Sync = task
		}
	}

	return result, nil
}

// buildEntry assembles the manifest entry for an analyzed repository.
func (i *Installer) buildEntry(ctx context.Context, a *Analysis, opts InstallOptions, result *InstallResult) SkillEntry {
	ref := a.Ref

	name := ref.Repo
	description := opts.Description
	if a.Metadata != nil {
		name = a.Metadata.Name
		if description == "" {
			description = a.Metadata.Description
		}
	}

	if description != "" && !containsScript(description, i.cfg.descriptionScript()) {
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarnDescriptionScript,
			Message: fmt.Sprintf("description %q contains no %s characters; pass --desc to override", description, i.cfg.DescriptionScript),
		})
	}
	if description == "" {
		description = ref.Repo + placeholderSuffix
	}

	entry := SkillEntry{
		Name:        name,
		Description: description,
	}
	if a.Metadata != nil && a.Metadata.UserInvocable != nil && *a.Metadata.UserInvocable {
		entry.Commands = []string{"/" + name}
	}

	if !a.Method.NeedsClone && !opts.Fork {
		if a.Method.Kind == InstallNPM && a.Method.Command != "" {
			entry.Installer = string(InstallNPM)
		}
		return entry
	}

	forker := i.forker
	if opts.DryRun {
		forker = dryRunForker{Forker: i.forker}
	}
	origin, upstream, err := resolveOrigin(ctx, forker, ref, i.cfg.Identity)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("fork unavailable, using upstream")
		entry.Origin = ref.URL()
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarnForkUnavailable,
			Message: "recording the upstream repository as origin",
			Err:     err,
		})
	} else {
		entry.Origin = origin
		entry.Upstream = upstream
	}

	// On the clone path any mention of npm wins over the classifier.
	lower := strings.ToLower(a.Readme)
	if strings.Contains(lower, "npm install") || strings.Contains(lower, "package.json") {
		entry.Installer = string(InstallNPM)
		entry.Dependencies = []string{"pnpm"}
	}
	return entry
}

// dryRunForker looks up existing forks but only predicts new ones.
type dryRunForker struct {
	Forker
}

// CreateFork implements Forker without creating anything.
func (d dryRunForker) CreateFork(_ context.Context, ref RepositoryRef, identity string) (string, error) {
	return RepositoryRef{Owner: identity, Repo: ref.Repo}.URL(), nil
}

// containsScript reports whether s has at least one rune in table.
// A nil table disables the check.
func containsScript(s string, table *unicode.RangeTable) bool {
	if table == nil {
		return true
	}
	for _, r := range s {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

func resultMessage(name string, replaced, dryRun bool) string {
	switch {
	case dryRun && replaced:
		return fmt.Sprintf("Would update %s in manifest", name)
	case dryRun:
		return fmt.Sprintf("Would add %s to manifest", name)
	case replaced:
		return fmt.Sprintf("Successfully updated %s in manifest", name)
	default:
		return fmt.Sprintf("Successfully added %s to manifest", name)
	}
}
