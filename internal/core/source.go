package core

import (
	"fmt"
	"regexp"
	"strings"
)

// hostRepoPattern matches "github.com/owner/repo[.git]" and the SSH form
// "github.com:owner/repo[.git]" at the end of the input.
var hostRepoPattern = regexp.MustCompile(`github\.com[/:]([\w-]+)/([\w-]+?)(?:\.git)?$`)

// shorthandPattern matches "owner/repo" (exactly 2 segments, no protocol).
var shorthandPattern = regexp.MustCompile(`^([\w-]+)/([\w-]+)$`)

// ParseRepository parses a repository reference into its owner and repo.
//
// Supported formats:
//   - "https://github.com/owner/repo"
//   - "https://github.com/owner/repo.git"
//   - "git@github.com:owner/repo.git"
//   - "owner/repo"
//
// ok is false when no pattern matches.
func ParseRepository(input string) (ref RepositoryRef, ok bool) {
	input = strings.TrimSpace(input)
	for _, p := range []*regexp.Regexp{hostRepoPattern, shorthandPattern} {
		if m := p.FindStringSubmatch(input); m != nil {
			return RepositoryRef{Owner: m[1], Repo: m[2]}, true
		}
	}
	return RepositoryRef{}, false
}

// String returns "owner/repo".
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Repo
}

// URL returns the HTTPS clone URL of the repository.
func (r RepositoryRef) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Repo)
}

// OwnedBy reports whether the repository belongs to identity (case-insensitive).
func (r RepositoryRef) OwnedBy(identity string) bool {
	return identity != "" && strings.EqualFold(r.Owner, identity)
}
