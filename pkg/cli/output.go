package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/report"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Slow step threshold
const slowThreshold = 5 * time.Second

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

// printMu serializes progress lines from concurrently running languages.
var printMu sync.Mutex

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func warnf(format string, args ...interface{}) {
	fmt.Printf("  %s⚠%s Warning: %s\n", color(colorYellow), color(colorReset), fmt.Sprintf(format, args...))
}

func printHeader(cfg *config.Config) {
	fmt.Println()
	fmt.Printf("%sshopcheck %s%s\n", color(colorBold), Version, color(colorReset))
	fmt.Printf("  Storefront: %s\n", cfg.BaseURL)
	personas := make([]string, len(cfg.Personas))
	for i, p := range cfg.Personas {
		personas[i] = p.ID
	}
	fmt.Printf("  Languages:  %s\n", strings.Join(cfg.Languages, ", "))
	fmt.Printf("  Personas:   %s\n", strings.Join(personas, ", "))
	fmt.Println()
}

func printDiagnostics(v core.DiagnosticVerdict) {
	printMu.Lock()
	defer printMu.Unlock()

	fmt.Printf("%sDiagnostics%s\n", color(colorBold), color(colorReset))
	for _, c := range v.Checks {
		if c.Passed {
			fmt.Printf("    %s✓%s %s/%s %s(%s)%s\n", color(colorGreen), color(colorReset),
				c.Target, c.Name, color(colorGray), formatDuration(c.Duration), color(colorReset))
		} else {
			fmt.Printf("    %s✗%s %s/%s: %s\n", color(colorRed), color(colorReset), c.Target, c.Name, c.Detail)
		}
	}
	if len(v.Checks) == 0 {
		for _, issue := range v.Issues {
			fmt.Printf("    %s✗%s %s\n", color(colorRed), color(colorReset), issue)
		}
	}

	switch {
	case !v.HarnessHealthy:
		fmt.Printf("  %sHarness unhealthy: results would be inconclusive, no flows run%s\n", color(colorRed), color(colorReset))
	case !v.SiteReachable:
		fmt.Printf("  %sStorefront unreachable%s\n", color(colorYellow), color(colorReset))
	}
	fmt.Println()
}

func flowLabel(lang, persona string) string {
	return lang + "/" + persona
}

func onFlowStart(lang, persona string) {
	printMu.Lock()
	defer printMu.Unlock()
	fmt.Printf("  %s▸%s %s%s%s started\n", color(colorCyan), color(colorReset),
		color(colorBold), flowLabel(lang, persona), color(colorReset))
}

func onStepComplete(lang, persona string, step core.StepResult) {
	printMu.Lock()
	defer printMu.Unlock()

	prefix := color(colorGray) + "[" + flowLabel(lang, persona) + "]" + color(colorReset)
	dur := step.Duration()
	durStr := formatDuration(dur)

	switch step.Status {
	case core.StatusPassed:
		symbol, symbolColor, durColor := "✓", color(colorGreen), ""
		if dur >= slowThreshold {
			symbol, symbolColor, durColor = "⚠", color(colorYellow), color(colorYellow)
		}
		fmt.Printf("    %s %s%s%s %s %s(%s)%s\n",
			prefix, symbolColor, symbol, color(colorReset), step.Name, durColor, durStr, color(colorReset))
	case core.StatusSkipped:
		fmt.Printf("    %s %s-%s %s %s(%s)%s\n",
			prefix, color(colorGray), color(colorReset), step.Name, color(colorGray), step.Detail, color(colorReset))
	default:
		fmt.Printf("    %s %s✗%s %s (%s)\n", prefix, color(colorRed), color(colorReset), step.Name, durStr)
		if step.Detail != "" {
			fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), step.Detail)
		}
	}
}

func onFlowEnd(f *core.FlowResult) {
	printMu.Lock()
	defer printMu.Unlock()

	label := flowLabel(f.Language, f.Persona)
	dur := formatDuration(f.EndTime.Sub(f.StartTime))
	if f.Status == core.StatusPassed {
		fmt.Printf("  %s✓%s %s %s%s%s\n", color(colorGreen), color(colorReset), label, color(colorGray), dur, color(colorReset))
		return
	}
	extra := ""
	if f.OrderID != "" {
		extra = " order " + f.OrderID
	}
	fmt.Printf("  %s✗%s %s %s%s%s %d/%d steps passed%s\n", color(colorRed), color(colorReset),
		label, color(colorGray), dur, color(colorReset), f.PassedSteps, f.TotalSteps, extra)
}

// printSummary prints the per-language table, audit averages and top issues.
func printSummary(rep *report.RunReport) {
	fmt.Println()
	fmt.Printf("%sSummary%s\n", color(colorBold), color(colorReset))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  LANGUAGE\tPASSED\tFAILED\tSKIPPED\tINCONCLUSIVE\tSUCCESS")
	for _, lang := range sortedKeys(rep.PerLanguage) {
		b := rep.PerLanguage[lang]
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\t%s\n", lang, b.Passed, b.Failed, b.Skipped, b.Inconclusive, percent(b.SuccessRatio))
	}
	s := rep.Summary
	fmt.Fprintf(tw, "  TOTAL\t%d\t%d\t%d\t%d\t%s\n", s.Passed, s.Failed, s.Skipped, s.Inconclusive, percent(s.SuccessRatio))
	_ = tw.Flush()

	if rep.PerfSummary.Samples > 0 || rep.A11ySummary.Samples > 0 {
		fmt.Println()
		fmt.Printf("  Performance:   avg %.0f (min %d, max %d)\n", rep.PerfSummary.Average, rep.PerfSummary.Min, rep.PerfSummary.Max)
		fmt.Printf("  Accessibility: avg %.0f (min %d, max %d)\n", rep.A11ySummary.Average, rep.A11ySummary.Min, rep.A11ySummary.Max)
	}

	if len(rep.TopIssues) > 0 {
		fmt.Println()
		fmt.Println("  Top issues:")
		for _, is := range rep.TopIssues {
			fmt.Printf("    %s%-16s%s %d failure(s) in %s\n", color(colorRed), is.Step, color(colorReset),
				is.Count, strings.Join(is.Languages, ", "))
		}
	}

	fmt.Println()
	fmt.Printf("  Verdict: %s\n\n", verdictLabel(rep.Verdict))
}

func verdictLabel(v report.Verdict) string {
	switch v {
	case report.VerdictPassed:
		return color(colorGreen) + "PASSED" + color(colorReset)
	case report.VerdictInconclusive:
		return color(colorYellow) + "INCONCLUSIVE" + color(colorReset)
	default:
		return color(colorRed) + "FAILED" + color(colorReset)
	}
}

func percent(r float64) string {
	return fmt.Sprintf("%.0f%%", r*100)
}

func sortedKeys(m map[string]report.Bucket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
}
