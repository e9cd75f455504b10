package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	locColor   = color.New(color.Bold)
)

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// printDiagnostics writes one line per diagnostic plus its notes. quiet
// keeps errors only.
func printDiagnostics(out io.Writer, items []diag.Diagnostic, quiet bool) {
	for _, d := range items {
		if quiet && d.Severity < diag.SevError {
			continue
		}
		fmt.Fprintf(out, "%s %s: %s\n",
			severityColor(d.Severity).Sprintf("%s[%s]", d.Severity, d.Code.ID()),
			locColor.Sprint(d.Primary),
			d.Message)
		for _, n := range d.Notes {
			fmt.Fprintf(out, "  note: %s: %s\n", n.Loc, n.Msg)
		}
	}
}

// printSummary writes the diagnostic totals, if there are any.
func printSummary(out io.Writer, bag *diag.Bag) {
	errs, warns := bag.Count(diag.SevError), bag.Count(diag.SevWarning)
	if errs == 0 && warns == 0 && bag.Dropped() == 0 {
		return
	}
	fmt.Fprintf(out, "%s, %s", errorColor.Sprintf("%d error(s)", errs), warnColor.Sprintf("%d warning(s)", warns))
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(out, " (%d more not shown)", n)
	}
	fmt.Fprintln(out)
}

func printStageTimings(out io.Writer, timings *pipeline.Timings) {
	for _, stage := range timings.Stages() {
		fmt.Fprintf(out, "%-8s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
