package core

import "regexp"

// toolchainHints maps a toolchain to README phrases that imply it.
var toolchainHints = []struct {
	name     string
	patterns []*regexp.Regexp
}{
	{"node", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bp?npm\s+install`),
		regexp.MustCompile(`(?i)\bpnpm\s+add`),
		regexp.MustCompile(`(?i)\byarn\s+add`),
	}},
	{"python", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpip\s+install`),
		regexp.MustCompile(`(?i)\bpoetry\s+add`),
	}},
	{"go", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bgo\s+install`),
		regexp.MustCompile(`(?i)\bgo\s+get`),
	}},
	{"rust", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcargo\s+install`),
	}},
}

// DetectToolchains lists the language toolchains a README's install
// instructions mention. It is informational and never changes an entry.
func DetectToolchains(readme string) []string {
	var found []string
	for _, hint := range toolchainHints {
		for _, p := range hint.patterns {
			if p.MatchString(readme) {
				found = append(found, hint.name)
				break
			}
		}
	}
	return found
}
