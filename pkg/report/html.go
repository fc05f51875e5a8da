package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	Title       string // Report title (default: "Storefront Acceptance Report")
	EmbedAssets bool   // Embed screenshots as base64 (makes file larger but portable)
	ReportDir   string // Directory screenshot paths are relative to
}

// WriteHTML renders the report into path.
func WriteHTML(path string, r *RunReport, cfg HTMLConfig) error {
	if cfg.ReportDir == "" {
		cfg.ReportDir = filepath.Dir(path)
	}
	var buf bytes.Buffer
	if err := RenderHTML(&buf, r, cfg); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //#nosec G306 -- report output
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// RenderHTML writes the HTML rendering of r to w.
func RenderHTML(w io.Writer, r *RunReport, cfg HTMLConfig) error {
	if cfg.Title == "" {
		cfg.Title = "Storefront Acceptance Report"
	}
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"pct": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	}).Parse(htmlTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, buildHTMLData(r, cfg))
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Report        *RunReport
	TotalDuration string
	Languages     []BucketRow
	Personas      []BucketRow
	Flows         []FlowHTMLData
}

// BucketRow is one row of a breakdown table.
type BucketRow struct {
	Name string
	Bucket
}

// FlowHTMLData contains flow data formatted for HTML.
type FlowHTMLData struct {
	*core.FlowResult
	StatusClass string
	DurationStr string
	Steps       []StepHTMLData
}

// StepHTMLData contains step data formatted for HTML.
type StepHTMLData struct {
	core.StepResult
	StatusClass string
	DurationStr string
	DataLines   []string
	Screenshots []template.URL // data URIs or relative paths
}

func buildHTMLData(r *RunReport, cfg HTMLConfig) HTMLData {
	flows := make([]FlowHTMLData, len(r.Flows))
	for i, f := range r.Flows {
		steps := make([]StepHTMLData, len(f.Steps))
		for j, s := range f.Steps {
			sd := StepHTMLData{
				StepResult:  s,
				StatusClass: statusClass(s),
				DurationStr: formatDuration(s.Duration()),
				DataLines:   dataLines(s.Data),
			}
			for _, a := range s.Attachments {
				if a.Name != core.AttachmentScreenshot {
					continue
				}
				switch {
				case cfg.EmbedAssets && len(a.Body) > 0:
					sd.Screenshots = append(sd.Screenshots, template.URL(dataURI(a.ContentType, a.Body))) //#nosec G203 -- generated data URI
				case cfg.EmbedAssets && a.Path != "":
					if uri := loadAsBase64(filepath.Join(cfg.ReportDir, a.Path)); uri != "" {
						sd.Screenshots = append(sd.Screenshots, template.URL(uri)) //#nosec G203 -- generated data URI
					}
				case a.Path != "":
					sd.Screenshots = append(sd.Screenshots, template.URL(filepath.ToSlash(a.Path))) //#nosec G203 -- artifact path
				}
			}
			steps[j] = sd
		}
		flows[i] = FlowHTMLData{
			FlowResult:  f,
			StatusClass: f.Status.String(),
			DurationStr: formatDuration(f.EndTime.Sub(f.StartTime)),
			Steps:       steps,
		}
	}

	return HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Report:        r,
		TotalDuration: formatDuration(r.EndTime.Sub(r.StartTime)),
		Languages:     bucketRows(r.PerLanguage),
		Personas:      bucketRows(r.PerPersona),
		Flows:         flows,
	}
}

func statusClass(s core.StepResult) string {
	if s.Inconclusive() {
		return "inconclusive"
	}
	return s.Status.String()
}

func bucketRows(m map[string]Bucket) []BucketRow {
	rows := make([]BucketRow, 0, len(m))
	for name, b := range m {
		rows = append(rows, BucketRow{Name: name, Bucket: b})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func dataLines(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %v", k, data[k])
	}
	return lines
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path) //#nosec G304 -- artifact inside the report dir
	if err != nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := core.ContentTypePNG
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return dataURI(mimeType, data)
}

func dataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f9fafb;
            --bg-tertiary: #f3f4f6;
            --text-primary: #000000;
            --text-secondary: rgb(75, 85, 99);
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --passed-bg: rgba(34, 197, 94, 0.1);
            --failed: #ef4444;
            --failed-bg: rgba(239, 68, 68, 0.08);
            --skipped: #eab308;
            --skipped-bg: rgba(234, 179, 8, 0.1);
            --inconclusive: #6b7280;
            --accent: #06b6d4;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }

        .header {
            background: var(--bg-secondary);
            border-bottom: 1px solid var(--border-color);
            padding: 16px 24px;
            display: flex;
            align-items: center;
            justify-content: space-between;
        }

        .header-title-main { font-size: 16px; font-weight: 500; }
        .header-title-sub { font-size: 12px; color: var(--text-secondary); }

        .verdict {
            padding: 6px 14px;
            border-radius: 6px;
            font-size: 13px;
            font-weight: 600;
            color: white;
            text-transform: uppercase;
        }
        .verdict.passed { background: var(--passed); }
        .verdict.failed { background: var(--failed); }
        .verdict.inconclusive { background: var(--inconclusive); }

        main { padding: 24px; display: flex; flex-direction: column; gap: 24px; }

        .cards { display: flex; gap: 16px; flex-wrap: wrap; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 12px 16px;
            min-width: 140px;
        }
        .card-label { font-size: 11px; color: var(--text-muted); text-transform: uppercase; }
        .card-value { font-size: 20px; font-weight: 600; }

        h2 { font-size: 15px; font-weight: 600; margin-bottom: 8px; }

        table { border-collapse: collapse; font-size: 13px; }
        th, td { padding: 6px 12px; border-bottom: 1px solid var(--border-color); text-align: left; }
        th { color: var(--text-muted); font-weight: 500; }

        .issues li { font-size: 13px; margin-left: 20px; }

        .flow {
            border: 1px solid var(--border-color);
            border-radius: 8px;
            overflow: hidden;
        }
        .flow.failed { background: linear-gradient(90deg, var(--failed-bg) 0%, var(--bg-primary) 50%); }
        .flow > summary {
            padding: 10px 12px;
            cursor: pointer;
            display: flex;
            gap: 12px;
            align-items: center;
            font-size: 14px;
        }
        .flow-meta { font-size: 12px; color: var(--text-muted); }

        .status-dot { width: 10px; height: 10px; border-radius: 50%; flex-shrink: 0; }
        .status-dot.passed { background: var(--passed); }
        .status-dot.failed { background: var(--failed); }
        .status-dot.skipped { background: var(--skipped); }
        .status-dot.inconclusive { background: var(--inconclusive); }

        .step { padding: 8px 12px 8px 34px; border-top: 1px solid var(--border-color); font-size: 13px; }
        .step.failed { background: var(--failed-bg); }
        .step.skipped { background: var(--skipped-bg); }
        .step-head { display: flex; gap: 8px; align-items: center; }
        .step-name { font-weight: 500; min-width: 140px; }
        .step-detail { color: var(--text-secondary); flex: 1; }
        .step-data { font-family: ui-monospace, monospace; font-size: 12px; color: var(--text-muted); margin-top: 4px; }
        .step img { max-width: 320px; border: 1px solid var(--border-color); border-radius: 4px; margin-top: 6px; }
    </style>
</head>
<body>
<div class="header">
    <div>
        <div class="header-title-main">{{.Title}}</div>
        <div class="header-title-sub">Run {{.Report.RunID}} &middot; generated {{.GeneratedAt}} &middot; {{.TotalDuration}}</div>
    </div>
    <div class="verdict {{.Report.Verdict}}">{{.Report.Verdict}}</div>
</div>
<main>
    <section class="cards">
        <div class="card"><div class="card-label">Flows</div><div class="card-value">{{.Report.Summary.Flows}}</div></div>
        <div class="card"><div class="card-label">Passed</div><div class="card-value">{{.Report.Summary.Passed}}</div></div>
        <div class="card"><div class="card-label">Failed</div><div class="card-value">{{.Report.Summary.Failed}}</div></div>
        <div class="card"><div class="card-label">Skipped</div><div class="card-value">{{.Report.Summary.Skipped}}</div></div>
        <div class="card"><div class="card-label">Inconclusive</div><div class="card-value">{{.Report.Summary.Inconclusive}}</div></div>
        <div class="card"><div class="card-label">Success</div><div class="card-value">{{pct .Report.Summary.SuccessRatio}}</div></div>
        <div class="card"><div class="card-label">Performance</div><div class="card-value">{{if .Report.PerfSummary.Samples}}{{printf "%.0f" .Report.PerfSummary.Average}}{{else}}-{{end}}</div></div>
        <div class="card"><div class="card-label">Accessibility</div><div class="card-value">{{if .Report.A11ySummary.Samples}}{{printf "%.0f" .Report.A11ySummary.Average}}{{else}}-{{end}}</div></div>
    </section>

    <section>
        <h2>Diagnostics</h2>
        <table>
            <tr><th>Check</th><th>Target</th><th>Result</th><th>Detail</th></tr>
            {{range .Report.Diagnostics.Checks}}
            <tr><td>{{.Name}}</td><td>{{.Target}}</td><td>{{if .Passed}}passed{{else}}failed{{end}}</td><td>{{.Detail}}</td></tr>
            {{end}}
        </table>
    </section>

    {{if .Report.TopIssues}}
    <section>
        <h2>Top issues</h2>
        <table>
            <tr><th>Step</th><th>Failures</th><th>Languages</th></tr>
            {{range .Report.TopIssues}}
            <tr><td>{{.Step}}</td><td>{{.Count}}</td><td>{{range $i, $l := .Languages}}{{if $i}}, {{end}}{{$l}}{{end}}</td></tr>
            {{end}}
        </table>
    </section>
    {{end}}

    <section class="cards">
        <div>
            <h2>By language</h2>
            <table>
                <tr><th>Language</th><th>Passed</th><th>Failed</th><th>Skipped</th><th>Success</th></tr>
                {{range .Languages}}
                <tr><td>{{.Name}}</td><td>{{.Passed}}</td><td>{{.Failed}}</td><td>{{.Skipped}}</td><td>{{pct .SuccessRatio}}</td></tr>
                {{end}}
            </table>
        </div>
        <div>
            <h2>By persona</h2>
            <table>
                <tr><th>Persona</th><th>Passed</th><th>Failed</th><th>Skipped</th><th>Success</th></tr>
                {{range .Personas}}
                <tr><td>{{.Name}}</td><td>{{.Passed}}</td><td>{{.Failed}}</td><td>{{.Skipped}}</td><td>{{pct .SuccessRatio}}</td></tr>
                {{end}}
            </table>
        </div>
    </section>

    {{if .Report.IssueList}}
    <section>
        <h2>Audit findings</h2>
        <ul class="issues">
            {{range .Report.IssueList}}<li>{{.}}</li>{{end}}
        </ul>
    </section>
    {{end}}

    <section>
        <h2>Flows</h2>
        {{range .Flows}}
        <details class="flow {{.StatusClass}}"{{if eq .StatusClass "failed"}} open{{end}}>
            <summary>
                <span class="status-dot {{.StatusClass}}"></span>
                <span>{{.Language}} &middot; {{.PersonaName}}</span>
                <span class="flow-meta">{{.PassedSteps}} passed, {{.FailedSteps}} failed, {{.SkippedSteps}} skipped &middot; {{.DurationStr}}{{if .OrderID}} &middot; order {{.OrderID}}{{end}}</span>
            </summary>
            {{range .Steps}}
            <div class="step {{.StatusClass}}">
                <div class="step-head">
                    <span class="status-dot {{.StatusClass}}"></span>
                    <span class="step-name">{{.Name}}</span>
                    <span class="step-detail">{{.Detail}}</span>
                    <span class="flow-meta">{{.DurationStr}}</span>
                </div>
                {{if .DataLines}}<div class="step-data">{{range .DataLines}}<div>{{.}}</div>{{end}}</div>{{end}}
                {{range .Metrics}}<div class="step-data">{{.Kind}} {{.Score}}/100{{range .Issues}} &middot; {{.}}{{end}}</div>{{end}}
                {{range .Screenshots}}<img src="{{.}}" alt="screenshot">{{end}}
            </div>
            {{end}}
        </details>
        {{end}}
    </section>
</main>
</body>
</html>
`
