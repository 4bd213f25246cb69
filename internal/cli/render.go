package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/massbatch/internal/engine"
)

// Progress bar rendering constants.
const (
	progressBarWidth = 30
	maxPercent       = 100
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	koStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noRightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// renderResult writes the final ledger of a completed run.
func renderResult(w io.Writer, res *engine.Result) {
	fmt.Fprintln(w, styled(w, titleStyle, "batch run complete"))
	fmt.Fprintf(w, "  %s  %d\n", styled(w, okStyle, "ok     "), res.OK)
	fmt.Fprintf(w, "  %s  %d\n", styled(w, koStyle, "ko     "), res.KO)
	fmt.Fprintf(w, "  %s  %d\n", styled(w, noRightStyle, "noright"), res.NoRight)
	for _, msg := range res.Messages {
		fmt.Fprintf(w, "  %s\n", styled(w, dimStyle, msg))
	}
	if res.Redirect != "" {
		fmt.Fprintf(w, "  redirect: %s\n", res.Redirect)
	}
}

// renderProgress writes a between-passes progress line. Fast runs keep
// the progress display off; nothing is written for them.
func renderProgress(w io.Writer, res *engine.Result) {
	if !res.ShowProgress {
		return
	}
	fmt.Fprintf(w, "%s %5.1f%%\n", progressBar(w, res.Percent), res.Percent)
	if res.CurrentType != "" {
		fmt.Fprintf(w, "  %s %5.1f%% %s\n",
			progressBar(w, res.CurrentTypePercent), res.CurrentTypePercent,
			styled(w, dimStyle, res.CurrentType))
	}
}

// renderSuspended tells the caller how to pick the run back up.
func renderSuspended(w io.Writer, res *engine.Result) {
	fmt.Fprintln(w, styled(w, titleStyle, "run suspended"))
	fmt.Fprintf(w, "  done so far: ok %d, ko %d, noright %d\n", res.OK, res.KO, res.NoRight)
	fmt.Fprintf(w, "  resume with: massbatch resume %s\n", res.RunID)
}

// progressBar renders a fixed-width bar for the given percentage.
func progressBar(w io.Writer, percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > maxPercent {
		percent = maxPercent
	}
	filled := int(percent / maxPercent * progressBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return styled(w, okStyle, bar)
}

// styled applies the style only when the destination writer is a
// terminal, so redirected or captured output stays plain.
func styled(w io.Writer, style lipgloss.Style, s string) string {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		return style.Render(s)
	}
	return s
}
