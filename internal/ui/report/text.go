package report

import (
	"fmt"
	"io"
	"nexalint/internal/engine/rules"
	"nexalint/internal/shared/util"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	path   lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	muted  lipgloss.Style
	high   lipgloss.Style
	medium lipgloss.Style
	low    lipgloss.Style
}

// newStyles binds the palette to w so colour is dropped when w is not a
// terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		label:  r.NewStyle().Bold(true),
		path:   r.NewStyle().Underline(true),
		good:   r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true),
		bad:    r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
		high:   r.NewStyle().Foreground(lipgloss.Color("#F87171")),
		medium: r.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		low:    r.NewStyle().Foreground(lipgloss.Color("#64748B")),
	}
}

func (s styles) score(v int) lipgloss.Style {
	switch {
	case v >= 80:
		return s.good
	case v >= 50:
		return s.warn
	default:
		return s.bad
	}
}

func (s styles) severity(sev rules.Severity) lipgloss.Style {
	switch sev {
	case rules.SeverityHigh:
		return s.high
	case rules.SeverityMedium:
		return s.medium
	default:
		return s.low
	}
}

// WriteText prints the summary followed by every file with issues. Clean
// files are listed only when opts.Verbose is set.
func WriteText(w io.Writer, doc Document, opts Options) error {
	st := newStyles(w)
	var b strings.Builder
	sum := doc.Summary

	fmt.Fprintf(&b, "%s %s\n", st.title.Render(doc.Tool), st.muted.Render(doc.Version))
	fmt.Fprintf(&b, "%s %d code files of %d found", st.label.Render("Files:"), sum.CodeFiles, sum.TotalFiles)
	if len(sum.FilesByExtension) > 0 {
		parts := make([]string, 0, len(sum.FilesByExtension))
		for _, ext := range util.SortedStringKeys(sum.FilesByExtension) {
			parts = append(parts, fmt.Sprintf("%s %d", ext, sum.FilesByExtension[ext]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d (%s, %s, %s)\n", st.label.Render("Issues:"), sum.TotalIssues,
		st.high.Render(fmt.Sprintf("high %d", sum.Severity.High)),
		st.medium.Render(fmt.Sprintf("medium %d", sum.Severity.Medium)),
		st.low.Render(fmt.Sprintf("low %d", sum.Severity.Low)),
	)

	breakdown := make([]string, 0, len(sum.IssueBreakdown))
	for _, kind := range util.SortedStringKeys(sum.IssueBreakdown) {
		breakdown = append(breakdown, fmt.Sprintf("%s %d", kind, sum.IssueBreakdown[kind]))
	}
	fmt.Fprintf(&b, "%s %s\n", st.label.Render("Breakdown:"), strings.Join(breakdown, ", "))
	fmt.Fprintf(&b, "%s %s (average %.2f)\n", st.label.Render("Score:"),
		st.score(sum.OverallScore).Render(fmt.Sprintf("%d", sum.OverallScore)), sum.AverageFileScore)

	if doc.Trend != nil {
		if doc.Trend.HasPrevious {
			fmt.Fprintf(&b, "%s %+d vs previous run, issues %+d, average %.1f over %d runs\n", st.label.Render("Trend:"),
				doc.Trend.ScoreDelta, doc.Trend.IssueDelta, doc.Trend.WindowAverage, doc.Trend.Runs)
		} else {
			fmt.Fprintf(&b, "%s %s\n", st.label.Render("Trend:"), st.muted.Render("first recorded run"))
		}
	}
	if sum.ReadErrors > 0 {
		fmt.Fprintf(&b, "%s %d files could not be read\n", st.bad.Render("Read errors:"), sum.ReadErrors)
	}

	fileScores := make(map[string]int, len(doc.Score.FileScores))
	for _, fs := range doc.Score.FileScores {
		fileScores[fs.Path] = fs.Score
	}

	for _, file := range doc.Files {
		if len(file.Issues) == 0 && file.ReadError == "" && !opts.Verbose {
			continue
		}
		b.WriteString("\n")
		s, ok := fileScores[file.Path]
		scoreText := ""
		if ok {
			scoreText = " score " + st.score(s).Render(fmt.Sprintf("%d", s))
		}
		fmt.Fprintf(&b, "%s%s %s\n", st.path.Render(displayPath(opts.Root, file.Path)), scoreText,
			st.muted.Render(plural(len(file.Issues), "issue")))
		if file.ReadError != "" {
			fmt.Fprintf(&b, "  %s %s\n", st.bad.Render("read error:"), file.ReadError)
		}
		for _, issue := range file.Issues {
			line := "-"
			if issue.Line > 0 {
				line = fmt.Sprintf("%d", issue.Line)
			}
			fmt.Fprintf(&b, "  %s line %s %s: %s\n",
				st.severity(issue.Severity).Render("["+strings.ToUpper(issue.Severity.String())+"]"),
				line, issue.Rule, issue.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func displayPath(root, path string) string {
	if root == "" || !filepath.IsAbs(path) {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
