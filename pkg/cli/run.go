package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/driver/chrome"
	"github.com/devicelab-dev/shopcheck/pkg/executor"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
	"github.com/devicelab-dev/shopcheck/pkg/metrics"
	"github.com/devicelab-dev/shopcheck/pkg/report"
)

// Output file names inside the run directory
const (
	reportJSONFile = "report.json"
	reportHTMLFile = "report.html"
	metricsFile    = "metrics.prom"
	logFile        = "shopcheck.log"
)

// browserFlags are shared by every command that opens a browser.
var browserFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "headless",
		Usage: "Run Chrome headless",
		Value: true,
	},
	&cli.StringFlag{
		Name:    "remote-url",
		Usage:   "DevTools WebSocket URL of a running Chrome",
		EnvVars: []string{"SHOPCHECK_REMOTE_URL"},
	},
	&cli.StringFlag{
		Name:    "browser-bin",
		Usage:   "Path to the Chrome binary",
		EnvVars: []string{"SHOPCHECK_BROWSER_BIN"},
	},
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run diagnostics and the purchase flow for every language and persona",
	Description: `Runs the diagnostic battery, then one isolated purchase flow per
(language, persona) pair. Reports are written to <output>/<timestamp>/:
  report.json   structured results
  report.html   human-readable report
  metrics.prom  Prometheus textfile metrics
  shopcheck.log run log (JSON lines)`,
	Flags: append([]cli.Flag{
		&cli.StringSliceFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Only run these languages (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "persona",
			Aliases: []string{"p"},
			Usage:   "Only run these persona IDs (repeatable)",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Languages run concurrently (default: config parallelism)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Write directly into --output without a timestamp subfolder",
		},
	}, browserFlags...),
	Action: runAction,
}

var diagnoseCommand = &cli.Command{
	Name:   "diagnose",
	Usage:  "Check the harness and storefront reachability without running flows",
	Flags:  browserFlags,
	Action: diagnoseAction,
}

// RunConfig holds everything a run needs, resolved from flags and config.
type RunConfig struct {
	Config    *config.Config
	OutputDir string
	Verbose   bool
}

// openBrowser starts the browser backing a run. Tests replace it.
var openBrowser = func(ctx context.Context, cfg config.Browser) (core.Browser, error) {
	m := chrome.NewManager(cfg)
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitHarnessFault)
	}
	if err := cfg.Restrict(c.StringSlice("language"), c.StringSlice("persona")); err != nil {
		return cli.Exit(err.Error(), ExitHarnessFault)
	}
	if c.IsSet("parallel") {
		cfg.Parallelism = c.Int("parallel")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cli.Exit(validationMessage(errs), ExitHarnessFault)
	}

	outputDir, err := resolveOutputDir(outputBase(c, cfg), c.Bool("flatten"))
	if err != nil {
		return cli.Exit(err.Error(), ExitHarnessFault)
	}

	return executeRun(c.Context, &RunConfig{
		Config:    cfg,
		OutputDir: outputDir,
		Verbose:   c.Bool("verbose"),
	})
}

func diagnoseAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitHarnessFault)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser, err := openBrowser(ctx, cfg.Browser)
	if err != nil {
		printDiagnostics(core.DiagnosticVerdict{Issues: []string{"open browser: " + err.Error()}})
		return cli.Exit("", ExitHarnessFault)
	}
	defer browser.Close()

	v := executor.New(browser, executor.RunnerConfig{Config: cfg}).Diagnose(ctx)
	printDiagnostics(v)

	switch {
	case !v.HarnessHealthy:
		return cli.Exit("", ExitHarnessFault)
	case !v.SiteReachable:
		return cli.Exit("", ExitSiteFailure)
	}
	return nil
}

// loadConfig reads --config, falling back to shopcheck.yaml in the working
// directory, then applies the browser flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("headless") {
		cfg.Browser.Headless = c.Bool("headless")
	}
	if v := c.String("remote-url"); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if v := c.String("browser-bin"); v != "" {
		cfg.Browser.Bin = v
	}
	return cfg, nil
}

func outputBase(c *cli.Context, cfg *config.Config) string {
	if v := c.String("output"); v != "" {
		return v
	}
	return cfg.OutputDir
}

// resolveOutputDir determines the run directory.
// - flatten: <base>/
// - otherwise: <base>/<timestamp>/
func resolveOutputDir(base string, flatten bool) (string, error) {
	if base == "" {
		base = "./reports"
	}
	if flatten {
		return filepath.Clean(base), nil
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(base, timestamp), nil
}

func validationMessage(errs []error) string {
	msg := fmt.Sprintf("invalid configuration (%d error(s)):", len(errs))
	for _, err := range errs {
		msg += "\n  - " + err.Error()
	}
	return msg
}

func executeRun(parent context.Context, cfg *RunConfig) error {
	// 1. Create output directory
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return cli.Exit(fmt.Sprintf("failed to create output directory: %v", err), ExitHarnessFault)
	}

	// 2. Initialize logging
	logger.SetVerbose(cfg.Verbose)
	if err := logger.Init(filepath.Join(cfg.OutputDir, logFile)); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	logger.Info("=== Run started ===")
	logger.Info("Output directory: %s", cfg.OutputDir)
	logger.Info("Storefront: %s, languages: %v, personas: %d",
		cfg.Config.BaseURL, cfg.Config.Languages, len(cfg.Config.Personas))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	printHeader(cfg.Config)

	// 3. Browser
	collector := metrics.NewCollector()
	var (
		rep    *report.RunReport
		runErr error
	)
	browser, err := openBrowser(ctx, cfg.Config.Browser)
	if err != nil {
		logger.Error("Failed to open browser: %v", err)
		verdict := core.DiagnosticVerdict{
			Issues:    []string{"open browser: " + err.Error()},
			CheckedAt: time.Now(),
		}
		collector.ObserveDiagnostics(verdict)
		printDiagnostics(verdict)
		rep = report.Aggregate(nil, verdict, report.Options{TopIssues: cfg.Config.TopIssues})
		runErr = core.NewHarnessFault(verdict.Issues)
	} else {
		defer browser.Close()

		// 4. Diagnostics and flows
		runner := executor.New(browser, executor.RunnerConfig{
			Config:         cfg.Config,
			OutputDir:      cfg.OutputDir,
			Observer:       collector,
			OnDiagnostics:  printDiagnostics,
			OnFlowStart:    onFlowStart,
			OnStepComplete: onStepComplete,
			OnFlowEnd:      onFlowEnd,
		})
		rep, runErr = runner.Run(ctx)
	}
	if runErr != nil {
		logger.Error("Run aborted: %v", runErr)
	}
	logger.Info("Run completed: verdict=%s passed=%d failed=%d skipped=%d inconclusive=%d",
		rep.Verdict, rep.Summary.Passed, rep.Summary.Failed, rep.Summary.Skipped, rep.Summary.Inconclusive)

	// 5. Reports
	printSummary(rep)
	writeOutputs(cfg.OutputDir, rep, collector)

	return exitFor(rep, runErr)
}

// writeOutputs writes report.json, report.html and metrics.prom. Failures
// are reported but never change the verdict.
func writeOutputs(dir string, rep *report.RunReport, collector *metrics.Collector) {
	jsonPath := filepath.Join(dir, reportJSONFile)
	htmlPath := filepath.Join(dir, reportHTMLFile)
	promPath := filepath.Join(dir, metricsFile)

	fmt.Println("  Reports:")
	if err := report.WriteJSON(jsonPath, rep); err != nil {
		warnf("failed to write JSON report: %v", err)
	} else {
		fmt.Printf("    JSON:    %s\n", jsonPath)
	}
	if err := report.WriteHTML(htmlPath, rep, report.HTMLConfig{ReportDir: dir}); err != nil {
		warnf("failed to write HTML report: %v", err)
	} else {
		fmt.Printf("    HTML:    %s\n", htmlPath)
	}
	if err := collector.WriteTextfile(promPath); err != nil {
		warnf("failed to write metrics: %v", err)
	} else {
		fmt.Printf("    Metrics: %s\n", promPath)
	}
	fmt.Println()
}

// exitFor maps the run outcome to the process exit code.
func exitFor(rep *report.RunReport, runErr error) error {
	if errors.Is(runErr, core.ErrHarnessFault) {
		return cli.Exit("", ExitHarnessFault)
	}
	switch rep.Verdict {
	case report.VerdictPassed:
		return nil
	case report.VerdictInconclusive:
		return cli.Exit("", ExitHarnessFault)
	default:
		return cli.Exit("", ExitSiteFailure)
	}
}
