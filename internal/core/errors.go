package core

import (
	"errors"
	"fmt"
)

// ErrInvalidReference is returned when a repository string matches no known format.
var ErrInvalidReference = errors.New("invalid repository reference")

// ErrManifestConflict means the manifest changed on disk between load and save.
var ErrManifestConflict = errors.New("manifest modified concurrently")

// InvalidReferenceError carries the input that could not be parsed.
type InvalidReferenceError struct {
	Input string
}

// Error implements the error interface.
func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("cannot parse GitHub repository %q (expected owner/repo or a github.com URL)", e.Input)
}

// Unwrap lets errors.Is match ErrInvalidReference.
func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// ManifestUnreadableError means an existing manifest could not be read or parsed.
type ManifestUnreadableError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ManifestUnreadableError) Error() string {
	return fmt.Sprintf("manifest %s is unreadable: %v", e.Path, e.Err)
}

// Unwrap returns the underlying read or parse error.
func (e *ManifestUnreadableError) Unwrap() error { return e.Err }

// SyncError is returned by SyncTask.Wait when the update script fails.
type SyncError struct {
	Script   string
	ExitCode int // -1 if the script never produced an exit code
	Err      error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("sync script %s exited with code %d", e.Script, e.ExitCode)
	}
	return fmt.Sprintf("sync script %s failed: %v", e.Script, e.Err)
}

// Unwrap returns the underlying process error.
func (e *SyncError) Unwrap() error { return e.Err }

// WarningKind classifies a non-fatal condition absorbed during an installation.
type WarningKind int

const (
	// WarnMetadataUnavailable means the README or SKILL.md could not be fetched.
	WarnMetadataUnavailable WarningKind = iota
	// WarnForkUnavailable means no fork could be found or created.
	WarnForkUnavailable
	// WarnManifestUnreadable means the existing manifest was treated as empty.
	WarnManifestUnreadable
	// WarnSyncTriggerFailed means the update script failed or could not start.
	WarnSyncTriggerFailed
	// WarnDescriptionScript means the description lacks the required script.
	WarnDescriptionScript
)

// String returns a human-readable label for the warning kind.
func (k WarningKind) String() string {
	switch k {
	case WarnMetadataUnavailable:
		return "Metadata Unavailable"
	case WarnForkUnavailable:
		return "Fork Unavailable"
	case WarnManifestUnreadable:
		return "Manifest Unreadable"
	case WarnSyncTriggerFailed:
		return "Sync Failed"
	case WarnDescriptionScript:
		return "Description Script"
	default:
		return "Warning"
	}
}

// Warning is a degraded-but-successful condition reported to the caller.
type Warning struct {
	Kind    WarningKind
	Message string
	Err     error // Underlying cause, if any
}

// String formats the warning for display.
func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", w.Kind, w.Message, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
