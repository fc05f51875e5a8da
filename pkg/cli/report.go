package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/shopcheck/pkg/report"
)

var reportCommand = &cli.Command{
	Name:      "report",
	Usage:     "Summarize an existing report.json and optionally render it as HTML",
	ArgsUsage: "<report.json>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "html",
			Usage: "Write report.html next to the JSON file",
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "HTML report title",
		},
		&cli.BoolFlag{
			Name:  "embed",
			Usage: "Embed screenshots into the HTML as data URIs",
		},
	},
	Action: reportAction,
}

func reportAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one report.json path is required", ExitHarnessFault)
	}
	path := c.Args().First()

	rep, err := report.ReadJSON(path)
	if err != nil {
		return cli.Exit(err.Error(), ExitHarnessFault)
	}

	printSummary(rep)

	if c.Bool("html") {
		dir := filepath.Dir(path)
		htmlPath := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".html")
		if err := report.WriteHTML(htmlPath, rep, report.HTMLConfig{
			Title:       c.String("title"),
			EmbedAssets: c.Bool("embed"),
			ReportDir:   dir,
		}); err != nil {
			return cli.Exit(fmt.Sprintf("failed to write HTML report: %v", err), ExitHarnessFault)
		}
		fmt.Printf("  HTML: %s\n\n", htmlPath)
	}

	return exitFor(rep, nil)
}
