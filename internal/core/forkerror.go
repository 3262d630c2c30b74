package core

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ForkErrorKind classifies why the gh CLI could not fork a repository.
type ForkErrorKind int

const (
	// ForkErrUnknown is an unclassified failure.
	ForkErrUnknown ForkErrorKind = iota
	// ForkErrCLIMissing means gh is not installed or not in PATH.
	ForkErrCLIMissing
	// ForkErrAuth means gh is not logged in or the token lacks permission.
	ForkErrAuth
	// ForkErrRepoNotFound means the repository does not exist or is not visible.
	ForkErrRepoNotFound
	// ForkErrNetwork means api.github.com could not be reached.
	ForkErrNetwork
	// ForkErrTimeout means gh did not finish in time.
	ForkErrTimeout
)

// String returns a human-readable label for the error kind.
func (k ForkErrorKind) String() string {
	switch k {
	case ForkErrCLIMissing:
		return "GitHub CLI Missing"
	case ForkErrAuth:
		return "Authentication Required"
	case ForkErrRepoNotFound:
		return "Repository Not Found"
	case ForkErrNetwork:
		return "Network Error"
	case ForkErrTimeout:
		return "Timeout"
	default:
		return "Unknown Error"
	}
}

// ForkError is returned by GHForker when gh fails. It keeps the raw output
// together with a classification and actionable hints.
type ForkError struct {
	Kind      ForkErrorKind
	Repo      string   // owner/repo being forked
	Command   string   // The gh command that was run (for display)
	RawOutput string   // Combined gh output
	Hints     []string // Actionable suggestions for the user
	Err       error
}

// Error implements the error interface.
func (e *ForkError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Command, e.Kind, e.firstLine())
}

// Unwrap returns the process error.
func (e *ForkError) Unwrap() error { return e.Err }

func (e *ForkError) firstLine() string {
	if line := firstLine(e.RawOutput); line != "" {
		return line
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "fork failed"
}

// ClassifyForkError builds a ForkError from a failed gh invocation.
func ClassifyForkError(repo, command, rawOutput string, err error) *ForkError {
	var kind ForkErrorKind
	if errors.Is(err, exec.ErrNotFound) {
		kind = ForkErrCLIMissing
	} else {
		detail := rawOutput
		if err != nil {
			detail += "\n" + err.Error()
		}
		kind = classifyGHOutput(detail)
	}

	return &ForkError{
		Kind:      kind,
		Repo:      repo,
		Command:   command,
		RawOutput: strings.TrimSpace(rawOutput),
		Hints:     hintsForForkError(kind, repo),
		Err:       err,
	}
}

// classifyGHOutput pattern-matches gh output to determine the error kind.
func classifyGHOutput(output string) ForkErrorKind {
	lower := strings.ToLower(output)

	// Timeout (checked first since it's set by us, not gh).
	if strings.Contains(lower, "timed out") {
		return ForkErrTimeout
	}

	if strings.Contains(lower, "gh auth login") ||
		strings.Contains(lower, "not logged in") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "bad credentials") ||
		strings.Contains(lower, "http 401") ||
		strings.Contains(lower, "http 403") {
		return ForkErrAuth
	}

	// GitHub answers 404 for private repositories the user cannot see.
	if strings.Contains(lower, "could not resolve to a repository") ||
		strings.Contains(lower, "http 404") ||
		strings.Contains(lower, "not found") {
		return ForkErrRepoNotFound
	}

	if strings.Contains(lower, "could not resolve host") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "error connecting to") {
		return ForkErrNetwork
	}

	return ForkErrUnknown
}

// hintsForForkError returns actionable suggestions for the error kind.
func hintsForForkError(kind ForkErrorKind, repo string) []string {
	switch kind {
	case ForkErrCLIMissing:
		return []string{
			"Install the GitHub CLI: https://cli.github.com",
			"Or fork the repository in the browser and run the command again",
		}
	case ForkErrAuth:
		return []string{
			"Run `gh auth login` in your terminal to authenticate with GitHub",
			"Check that your token has the `repo` scope: `gh auth status`",
		}
	case ForkErrRepoNotFound:
		return []string{
			fmt.Sprintf("Verify that %s exists and is spelled correctly", repo),
			"Ensure you have access to this repository (it may be private)",
		}
	case ForkErrNetwork:
		return []string{
			"Check your internet connection",
			"If behind a proxy, ensure gh is configured to use it (HTTPS_PROXY)",
		}
	case ForkErrTimeout:
		return []string{
			"GitHub may be slow to respond; try again",
			"Raise command_timeout in the skillfork config",
		}
	default:
		return []string{
			fmt.Sprintf("Try forking manually: `gh repo fork %s --clone=false`", repo),
		}
	}
}
