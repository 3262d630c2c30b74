// Package core provides the business logic for skillfork.
// It has zero UI dependencies and is independently testable.
package core

import "encoding/json"

// RepositoryRef is a canonical owner/repo pair. Build it with ParseRepository.
type RepositoryRef struct {
	Owner string
	Repo  string
}

// SkillMetadata is the front matter parsed from a remote SKILL.md file.
type SkillMetadata struct {
	Name          string
	Description   string
	UserInvocable *bool          // nil when the key is absent
	AllowedTools  []string       // from "allowed-tools"
	Metadata      map[string]any // free-form "metadata" block
}

// InstallKind is the install strategy recommended by a skill's README.
type InstallKind string

const (
	InstallNPM     InstallKind = "npm"
	InstallPip     InstallKind = "pip"
	InstallCurl    InstallKind = "curl"
	InstallGit     InstallKind = "git"
	InstallUnknown InstallKind = "unknown"
)

// InstallMethod is the outcome of classifying a README.
type InstallMethod struct {
	Kind       InstallKind
	Command    string // Recommended command line, if one was extracted
	NeedsClone bool   // True for git and unknown
}

// SkillEntry is a skill recorded in skills-manifest.json.
type SkillEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Origin       string   `json:"origin,omitempty"`   // URL actually used to obtain the code (may be a fork)
	Upstream     string   `json:"upstream,omitempty"` // Original URL, only when it differs from origin
	Installer    string   `json:"installer,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Commands     []string `json:"commands,omitempty"`
	Local        bool     `json:"local,omitempty"`

	// Extra holds members written by other tools; they are preserved verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

// Manifest is the parsed skills-manifest.json.
type Manifest struct {
	Skills []SkillEntry `json:"skills"`

	// Extra holds top-level members other than "skills".
	Extra map[string]json.RawMessage `json:"-"`
}

// Analysis is everything learned about a repository without side effects.
type Analysis struct {
	Ref            RepositoryRef
	Readme         string
	HasReadme      bool
	Metadata       *SkillMetadata
	MetadataSource string // Location the metadata was read from
	Method         InstallMethod
	Toolchains     []string
	Warnings       []Warning
}

// InstallOptions configures a single installation run.
type InstallOptions struct {
	Fork        bool   // Always resolve a fork, even if no clone is needed
	NoSync      bool   // Skip the update script
	Description string // Overrides the metadata description
	DryRun      bool   // Compute the manifest change without writing it
}

// InstallResult is the outcome of Installer.Install.
type InstallResult struct {
	Success  bool
	Message  string
	Entry    *SkillEntry
	Method   InstallMethod
	Replaced bool      // An entry with the same name already existed
	Warnings []Warning // Non-fatal conditions absorbed during the run
	Diff     string    // Unified manifest diff, set for dry runs
	Sync     *SyncTask // Running update script; nil when skipped
}
