package core

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// commandRule maps the first line of a shell code block to an install kind.
type commandRule struct {
	kind    InstallKind
	pattern *regexp.Regexp
}

// commandRules are evaluated in order; a package-manager install always beats
// a clone recommendation.
var commandRules = []commandRule{
	{InstallNPM, regexp.MustCompile(`(?i)^np[mx]\s+(?:install|skills|add).+`)},
	{InstallPip, regexp.MustCompile(`(?i)^pip\s+install.+`)},
	{InstallCurl, regexp.MustCompile(`(?i)^(?:curl|wget).+`)},
}

// clonePhrases mark a README that asks for the repository to be cloned.
var clonePhrases = []string{"git clone", "clone this repository"}

// shellLanguages are the fenced block info strings that count as shell.
var shellLanguages = map[string]bool{"": true, "bash": true, "shell": true, "sh": true}

var (
	markdown         = goldmark.New()
	markdownWithMeta = goldmark.New(goldmark.WithExtensions(meta.Meta))
)

// markdownFor returns a parser that skips front matter only when the document
// opens with a closed block holding a YAML mapping. An unclosed leading "---"
// is a thematic break and must not swallow the rest of the document.
func markdownFor(source []byte) goldmark.Markdown {
	block, ok := frontmatterBlock(source)
	if !ok {
		return markdown
	}
	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil || fields == nil {
		return markdown
	}
	return markdownWithMeta
}

// ClassifyInstallMethod inspects a README and returns the install strategy
// its author recommends. Without a recognizable recommendation it assumes
// the repository must be cloned.
func ClassifyInstallMethod(readme string) InstallMethod {
	lines := shellBlockFirstLines(readme)

	for _, rule := range commandRules {
		for _, line := range lines {
			if rule.pattern.MatchString(line) {
				return InstallMethod{Kind: rule.kind, Command: line, NeedsClone: false}
			}
		}
	}

	lower := strings.ToLower(readme)
	for _, phrase := range clonePhrases {
		if strings.Contains(lower, phrase) {
			return InstallMethod{Kind: InstallGit, NeedsClone: true}
		}
	}

	return InstallMethod{Kind: InstallUnknown, NeedsClone: true}
}

// shellBlockFirstLines returns the first non-blank line of every shell fenced
// code block, in document order. Fences inside raw HTML blocks (for example
// right after a <details> tag) are found by scanning the block's lines.
func shellBlockFirstLines(readme string) []string {
	source := []byte(readme)
	doc := markdownFor(source).Parser().Parse(text.NewReader(source), parser.WithContext(parser.NewContext()))

	var lines []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if html, ok := n.(*ast.HTMLBlock); ok {
			raw := make([]string, 0, html.Lines().Len())
			for i := 0; i < html.Lines().Len(); i++ {
				seg := html.Lines().At(i)
				raw = append(raw, string(seg.Value(source)))
			}
			lines = append(lines, fencedFirstLines(raw)...)
			return ast.WalkSkipChildren, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(block.Language(source)))
		if !shellLanguages[lang] {
			return ast.WalkSkipChildren, nil
		}
		segs := block.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			if line := strings.TrimSpace(string(seg.Value(source))); line != "" {
				lines = append(lines, line)
				break
			}
		}
		return ast.WalkSkipChildren, nil
	})
	return lines
}

// fencedFirstLines scans raw lines for ``` or ~~~ fences and returns the first
// non-blank line of each shell fence.
func fencedFirstLines(raw []string) []string {
	var (
		lines     []string
		fence     string
		wantFirst bool
	)
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if fence == "" {
			marker, lang, ok := openingFence(trimmed)
			if ok {
				fence = marker
				wantFirst = shellLanguages[lang]
			}
			continue
		}
		if len(trimmed) >= len(fence) && strings.Trim(trimmed, fence[:1]) == "" {
			fence = ""
			continue
		}
		if wantFirst && trimmed != "" {
			lines = append(lines, trimmed)
			wantFirst = false
		}
	}
	return lines
}

// openingFence reports whether line opens a code fence and returns the fence
// marker and the lowercased language of its info string.
func openingFence(line string) (marker, lang string, ok bool) {
	if !strings.HasPrefix(line, "```") && !strings.HasPrefix(line, "~~~") {
		return "", "", false
	}
	n := len(line) - len(strings.TrimLeft(line, line[:1]))
	if fields := strings.Fields(line[n:]); len(fields) > 0 {
		lang = strings.ToLower(fields[0])
	}
	return line[:n], lang, true
}
