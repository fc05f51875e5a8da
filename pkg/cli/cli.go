// Package cli provides the command-line interface for shopcheck.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// Exit codes
const (
	ExitPassed       = 0
	ExitSiteFailure  = 1 // The storefront failed at least one step or was unreachable
	ExitHarnessFault = 2 // The harness itself was unhealthy; results are inconclusive
)

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to shopcheck.yaml (default: ./shopcheck.yaml when present)",
		EnvVars: []string{"SHOPCHECK_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output directory for reports (default: config outputDir)",
		EnvVars: []string{"SHOPCHECK_OUTPUT"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Mirror the run log to stderr",
		EnvVars: []string{"SHOPCHECK_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "shopcheck",
		Usage:   "Purchase-flow acceptance checks for e-commerce storefronts",
		Version: Version,
		Description: `shopcheck drives a real browser through a storefront's purchase flow
(homepage, discovery, product, cart, checkout, payment, submission,
confirmation) for every configured language and persona, and reports
which steps the site passed.

Exit codes: 0 all passed, 1 site failure, 2 harness fault.

Examples:
  shopcheck run
  shopcheck --config shop.yaml run --language en --language de
  shopcheck run --persona quick_buyer --parallel 1 --headless=false
  shopcheck diagnose
  shopcheck report reports/2026-01-01_10-00-00/report.json --html`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			diagnoseCommand,
			reportCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitSiteFailure)
	}
}
