package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// AccessibilityScript snapshots the DOM facts the accessibility score needs.
// Hidden form fields and buttons are not counted as fields.
const AccessibilityScript = `() => {
	const images = Array.from(document.images);
	const fields = Array.from(document.querySelectorAll('input, select, textarea'))
		.filter(f => !['hidden', 'submit', 'button', 'reset', 'image'].includes((f.type || '').toLowerCase()));
	const labeled = fields.filter(f =>
		(f.labels && f.labels.length > 0) ||
		(f.getAttribute('aria-label') || '').trim() !== '' ||
		(f.getAttribute('aria-labelledby') || '').trim() !== '' ||
		(f.getAttribute('placeholder') || '').trim() !== '');
	return {
		images: images.length,
		imagesWithAlt: images.filter(i => (i.getAttribute('alt') || '').trim() !== '').length,
		fields: fields.length,
		labeledFields: labeled.length,
		linkTexts: Array.from(document.querySelectorAll('a[href]'))
			.map(a => (a.innerText || a.getAttribute('aria-label') || '').trim()),
		headingLevels: Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6'))
			.map(h => Number(h.tagName.substring(1))),
	};
}`

// Snapshot holds the DOM facts read by AccessibilityScript.
type Snapshot struct {
	Images        int      `json:"images"`
	ImagesWithAlt int      `json:"imagesWithAlt"`
	Fields        int      `json:"fields"`
	LabeledFields int      `json:"labeledFields"`
	LinkTexts     []string `json:"linkTexts"`
	HeadingLevels []int    `json:"headingLevels"`
}

// AccessibilityWeights are the thresholds and deductions of the
// accessibility score.
type AccessibilityWeights struct {
	AltRatio         float64  `yaml:"altRatio" json:"altRatio"`
	AltPenalty       int      `yaml:"altPenalty" json:"altPenalty"`
	LabelRatio       float64  `yaml:"labelRatio" json:"labelRatio"`
	LabelPenalty     int      `yaml:"labelPenalty" json:"labelPenalty"`
	HeadingPenalty   int      `yaml:"headingPenalty" json:"headingPenalty"`
	LinkRatio        float64  `yaml:"linkRatio" json:"linkRatio"`
	LinkPenalty      int      `yaml:"linkPenalty" json:"linkPenalty"`
	LinkMinLength    int      `yaml:"linkMinLength" json:"linkMinLength"` // Descriptive text is longer than this
	LinkTextStoplist []string `yaml:"linkTextStoplist" json:"linkTextStoplist"`
}

// DefaultAccessibilityWeights returns the standard policy.
func DefaultAccessibilityWeights() AccessibilityWeights {
	return AccessibilityWeights{
		AltRatio:       0.9,
		AltPenalty:     15,
		LabelRatio:     1.0,
		LabelPenalty:   20,
		HeadingPenalty: 10,
		LinkRatio:      0.8,
		LinkPenalty:    5,
		LinkMinLength:  3,
		LinkTextStoplist: []string{
			"click here", "here", "read more", "more", "link", "this", "learn more",
			"hier klicken", "hier", "mehr", "weiterlesen",
			"cliquez ici", "ici", "plus", "en savoir plus", "lire la suite",
		},
	}
}

// ScoreAccessibility computes the accessibility score for s.
// An empty denominator counts as a satisfied ratio and adds a warning.
func ScoreAccessibility(s Snapshot, w AccessibilityWeights) core.MetricScore {
	score := core.MetricScore{Kind: core.MetricAccessibility, Score: 100, Issues: []string{}, Warnings: []string{}}

	if s.Images == 0 {
		score.Warnings = append(score.Warnings, "no images on page")
	} else if ratio(s.ImagesWithAlt, s.Images) < w.AltRatio {
		score.Score -= w.AltPenalty
		score.Issues = append(score.Issues, fmt.Sprintf("%d images missing alt text", s.Images-s.ImagesWithAlt))
	}

	if s.Fields == 0 {
		score.Warnings = append(score.Warnings, "no form fields on page")
	} else if ratio(s.LabeledFields, s.Fields) < w.LabelRatio {
		score.Score -= w.LabelPenalty
		score.Issues = append(score.Issues, fmt.Sprintf("%d form fields without a label", s.Fields-s.LabeledFields))
	}

	if skips := HeadingSkips(s.HeadingLevels); len(skips) > 0 {
		score.Score -= w.HeadingPenalty
		score.Issues = append(score.Issues, fmt.Sprintf("heading levels skip: %s", strings.Join(skips, ", ")))
	}

	if len(s.LinkTexts) == 0 {
		score.Warnings = append(score.Warnings, "no links on page")
	} else {
		descriptive := 0
		for _, text := range s.LinkTexts {
			if IsDescriptiveLink(text, w) {
				descriptive++
			}
		}
		if ratio(descriptive, len(s.LinkTexts)) < w.LinkRatio {
			score.Score -= w.LinkPenalty
			score.Issues = append(score.Issues, fmt.Sprintf("%d of %d links lack descriptive text",
				len(s.LinkTexts)-descriptive, len(s.LinkTexts)))
		}
	}

	score.Score = clamp(score.Score)
	return score
}

// HeadingSkips returns each place where a heading is more than one level
// deeper than the heading before it, formatted as "h2->h4".
func HeadingSkips(levels []int) []string {
	var skips []string
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			skips = append(skips, fmt.Sprintf("h%d->h%d", levels[i-1], levels[i]))
		}
	}
	return skips
}

// IsDescriptiveLink reports whether text is long enough and not a stoplisted phrase.
func IsDescriptiveLink(text string, w AccessibilityWeights) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if len([]rune(t)) <= w.LinkMinLength {
		return false
	}
	for _, stop := range w.LinkTextStoplist {
		if t == stop {
			return false
		}
	}
	return true
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(n) / float64(total)
}

// AccessibilityAuditor audits the page currently loaded in a driver.
type AccessibilityAuditor struct {
	Weights AccessibilityWeights
}

// NewAccessibilityAuditor creates an auditor with the given weights.
func NewAccessibilityAuditor(w AccessibilityWeights) *AccessibilityAuditor {
	return &AccessibilityAuditor{Weights: w}
}

// Audit snapshots the current DOM and scores it.
func (a *AccessibilityAuditor) Audit(ctx context.Context, d core.Driver) (core.MetricScore, error) {
	var s Snapshot
	if err := d.Evaluate(ctx, AccessibilityScript, &s); err != nil {
		return core.MetricScore{}, fmt.Errorf("read DOM snapshot: %w", err)
	}
	score := ScoreAccessibility(s, a.Weights)
	score.URL = currentURL(ctx, d)
	return score, nil
}
