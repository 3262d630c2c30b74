package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode"
)

const (
	manifestFileName = "skills-manifest.json"
	updateScriptName = "update-all.ps1"

	DefaultRawBaseURL = "https://raw.githubusercontent.com"
	DefaultAPIBaseURL = "https://api.github.com"

	defaultCommandTimeout = 60 * time.Second
)

// Config holds everything the Installer and ManifestStore need. Nothing in
// core reads global state; the CLI builds a Config and passes it in.
type Config struct {
	SkillsRoot        string        // Directory holding the manifest and update script
	ManifestPath      string        // Defaults to <SkillsRoot>/skills-manifest.json
	UpdateScript      string        // Defaults to <SkillsRoot>/update-all.ps1
	Identity          string        // GitHub account that owns forks
	RawBaseURL        string        // Unauthenticated raw file host
	APIBaseURL        string        // Authenticated API host
	GitHubToken       string        // Optional token for the API fallback
	DescriptionScript string        // Unicode script descriptions should use (e.g. "Han"); empty disables the check
	CommandTimeout    time.Duration // Timeout for each gh invocation
}

// DefaultConfig returns a Config rooted at ~/.gemini/antigravity/skills.
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &Config{
		SkillsRoot:        filepath.Join(home, ".gemini", "antigravity", "skills"),
		RawBaseURL:        DefaultRawBaseURL,
		APIBaseURL:        DefaultAPIBaseURL,
		DescriptionScript: "Han",
		CommandTimeout:    defaultCommandTimeout,
	}, nil
}

// Normalize fills derived defaults and validates the config.
func (c *Config) Normalize() error {
	if c.SkillsRoot == "" && (c.ManifestPath == "" || c.UpdateScript == "") {
		return fmt.Errorf("skills root is required")
	}
	c.SkillsRoot = expandPath(c.SkillsRoot)
	if c.ManifestPath == "" {
		c.ManifestPath = filepath.Join(c.SkillsRoot, manifestFileName)
	}
	c.ManifestPath = expandPath(c.ManifestPath)
	if c.UpdateScript == "" {
		c.UpdateScript = filepath.Join(c.SkillsRoot, updateScriptName)
	}
	c.UpdateScript = expandPath(c.UpdateScript)
	if c.RawBaseURL == "" {
		c.RawBaseURL = DefaultRawBaseURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.DescriptionScript != "" {
		if _, ok := unicode.Scripts[c.DescriptionScript]; !ok {
			return fmt.Errorf("unknown unicode script %q", c.DescriptionScript)
		}
	}
	return nil
}

// descriptionScript returns the range table for the required script, or nil.
func (c *Config) descriptionScript() *unicode.RangeTable {
	if c.DescriptionScript == "" {
		return nil
	}
	return unicode.Scripts[c.DescriptionScript]
}
