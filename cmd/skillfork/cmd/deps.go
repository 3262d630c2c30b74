package cmd

import (
	"context"
	"fmt"

	"github.com/barysiuk/skillfork/internal/core"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	config    *core.Config
	installer *core.Installer
}

// newDeps creates shared dependencies. Called lazily by commands that need them.
func newDeps(ctx context.Context) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	installer, err := core.NewInstaller(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing installer: %w", err)
	}

	return &deps{
		config:    cfg,
		installer: installer,
	}, nil
}
