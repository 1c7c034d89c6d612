package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
type styles struct {
	title, accent, muted, success, warning lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(white),
		accent:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(muted),
		success: lipgloss.NewStyle().Foreground(success).Bold(true),
		warning: lipgloss.NewStyle().Foreground(warning),
	}
}

const rule = "  ─────────────────────────────────────"

// WriteText prints a human-readable report. Colors are only used when color
// is set.
func WriteText(w io.Writer, r *Report, color bool) error {
	s := newStyles(color)
	var b strings.Builder

	fmt.Fprintf(&b, "\n  %s %s\n", s.title.Render(r.Location), s.muted.Render("("+r.Mode+")"))

	if run := r.Run; run != nil {
		b.WriteString(s.muted.Render(rule) + "\n")
		fmt.Fprintf(&b, "  %s %s\n", s.muted.Render("NuHepMC version:"), run.Version)
		for _, t := range run.Tools {
			fmt.Fprintf(&b, "  %s %s %s %s\n", s.muted.Render("Tool:"), s.title.Render(t.Name), t.Version, s.muted.Render(t.Description))
		}
		writeCodes(&b, s, "Processes:", run.Processes)
		writeCodes(&b, s, "Vertex statuses:", run.VertexStatuses)
		writeCodes(&b, s, "Particle statuses:", run.ParticleStatuses)
		fmt.Fprintf(&b, "  %s %s\n", s.muted.Render("Weights:"), strings.Join(run.WeightNames, ", "))
		fmt.Fprintf(&b, "  %s %s\n", s.muted.Render("Conventions:"), list(run.Conventions))
		if len(run.Unchecked) > 0 {
			fmt.Fprintf(&b, "  %s %s\n", s.muted.Render("Not checked:"), strings.Join(run.Unchecked, ", "))
		}
		b.WriteString(s.muted.Render(rule) + "\n")
	}

	for _, wn := range r.Warnings {
		fmt.Fprintf(&b, "  %s [%s] %s\n", s.warning.Render("!"), wn.Rule, wn.Message)
	}

	fmt.Fprintf(&b, "  %s %d  %s %s\n",
		s.muted.Render("Events:"), r.Events,
		s.muted.Render("Time:"), formatDuration(time.Duration(r.DurationMS)*time.Millisecond))

	switch r.Outcome {
	case OutcomeConformant:
		fmt.Fprintf(&b, "\n  %s\n", s.success.Render("✓ CONFORMANT"))
	case OutcomeUnreadable:
		fmt.Fprintf(&b, "\n  %s %s\n", s.accent.Render("✗ UNREADABLE"), r.Error)
	default:
		fmt.Fprintf(&b, "\n  %s %s\n", s.accent.Render("✗ NON-CONFORMANT"),
			s.muted.Render(fmt.Sprintf("(%d failures)", len(r.Failures))))
	}
	for _, f := range r.Failures {
		where := "run"
		if f.Event != nil {
			where = fmt.Sprintf("event %d", *f.Event)
		}
		fmt.Fprintf(&b, "  %s %s %s %s\n", s.accent.Render("["+f.Rule+"]"), s.muted.Render(f.Category), where, f.Message)
		for _, c := range f.Causes {
			fmt.Fprintf(&b, "      %s %s\n", s.muted.Render("caused by:"), c)
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCodes(b *strings.Builder, s styles, label string, codes []Code) {
	if len(codes) == 0 {
		fmt.Fprintf(b, "  %s %s\n", s.muted.Render(label), "none")
		return
	}
	fmt.Fprintf(b, "  %s\n", s.muted.Render(label))
	for _, c := range codes {
		fmt.Fprintf(b, "    %4d  %s %s\n", c.Code, s.title.Render(c.Name), s.muted.Render(c.Description))
	}
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
