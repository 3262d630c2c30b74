// Package report renders skillfork's textual status output.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/barysiuk/skillfork/internal/core"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// defaultDescriptionWidth bounds the description column of List.
const defaultDescriptionWidth = 60

// Printer writes styled status lines.
type Printer struct {
	w     io.Writer
	theme theme
}

// New creates a Printer for w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, theme: newTheme(w)}
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.theme.success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Info prints a neutral line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.w, p.theme.value.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.theme.warning.Render("! "+fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.theme.danger.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warnings prints each warning on its own line, followed by hints on how to
// resolve its cause.
func (p *Printer) Warnings(warnings []core.Warning) {
	for _, w := range warnings {
		p.Warn("%s", w)
		for _, hint := range warningHints(w.Err) {
			fmt.Fprintln(p.w, p.theme.muted.Render("    "+hint))
		}
	}
}

func warningHints(err error) []string {
	var forkErr *core.ForkError
	switch {
	case errors.As(err, &forkErr):
		return forkErr.Hints
	case errors.Is(err, core.ErrNoIdentity):
		return []string{
			"Set the GitHub account that owns your forks with --identity or SKILLFORK_IDENTITY",
			"Or add `identity: <account>` to ~/.skillfork/config.yaml",
		}
	}
	return nil
}

func (p *Printer) field(label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.theme.label.Render(label+":"), p.theme.value.Render(value))
}

// Method prints a classified install method.
func (p *Printer) Method(m core.InstallMethod) {
	p.field("Install method", string(m.Kind))
	p.field("Recommended command", m.Command)
	p.field("Needs clone", fmt.Sprintf("%t", m.NeedsClone))
}

// Entry prints a manifest entry.
func (p *Printer) Entry(e *core.SkillEntry) {
	if e == nil {
		return
	}
	fmt.Fprintln(p.w, p.theme.title.Render(e.Name))
	p.field("Description", e.Description)
	p.field("Origin", e.Origin)
	p.field("Upstream", e.Upstream)
	p.field("Installer", e.Installer)
	p.field("Dependencies", strings.Join(e.Dependencies, ", "))
	p.field("Commands", strings.Join(e.Commands, ", "))
	if e.Local {
		p.field("Local", "true")
	}
}

// Analysis prints what was learned about a repository.
func (p *Printer) Analysis(a *core.Analysis) {
	fmt.Fprintln(p.w, p.theme.title.Render(a.Ref.String()))
	if a.Metadata != nil {
		p.field("Name", a.Metadata.Name)
		p.field("Description", a.Metadata.Description)
		p.field("Metadata", a.MetadataSource)
		if a.Metadata.UserInvocable != nil {
			p.field("User invocable", fmt.Sprintf("%t", *a.Metadata.UserInvocable))
		}
		p.field("Allowed tools", strings.Join(a.Metadata.AllowedTools, ", "))
	}
	p.Method(a.Method)
	p.field("Toolchains", strings.Join(a.Toolchains, ", "))
	p.Warnings(a.Warnings)
}

// List prints manifest entries as aligned rows.
func (p *Printer) List(entries []core.SkillEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.w, p.theme.muted.Render("No skills in manifest."))
		return
	}

	nameWidth := 0
	for _, e := range entries {
		nameWidth = max(nameWidth, ansi.StringWidth(e.Name))
	}

	for _, e := range entries {
		pad := strings.Repeat(" ", nameWidth-ansi.StringWidth(e.Name))
		desc := ansi.Truncate(e.Description, defaultDescriptionWidth, "…")
		line := p.theme.title.Render(e.Name) + pad + "  " + p.theme.value.Render(desc)
		if e.Installer != "" {
			line += "  " + p.theme.badge.Render("["+e.Installer+"]")
		}
		if e.Upstream != "" {
			line += "  " + p.theme.muted.Render("fork of "+e.Upstream)
		}
		fmt.Fprintln(p.w, line)
	}
}

// Markdown renders a markdown document for the terminal, falling back to the
// raw text if rendering fails.
func (p *Printer) Markdown(doc string, width int) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Fprintln(p.w, doc)
		return
	}
	rendered, err := r.Render(doc)
	if err != nil {
		rendered = doc
	}
	fmt.Fprintln(p.w, strings.TrimRight(rendered, "\n"))
}
