// Package config handles configuration for shopcheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/shopcheck/pkg/audit"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// Config represents the workspace configuration (shopcheck.yaml).
type Config struct {
	// Target site
	BaseURL      string   `yaml:"baseURL"`      // Storefront root, e.g. https://shop.example.com
	ReferenceURL string   `yaml:"referenceURL"` // Known-good page for the harness self-check
	ProductURLs  []string `yaml:"productURLs"`  // Extra product pages tried by direct discovery

	// Matrix
	Languages []string          `yaml:"languages"` // Locales to run, in report order
	Locales   map[string]Locale `yaml:"locales"`
	Personas  []Persona         `yaml:"personas"`

	// Selector catalog, keyed by target name. Entries replace the defaults
	// for that target.
	Selectors map[string]flow.Candidates `yaml:"selectors"`

	Timeouts Timeouts `yaml:"timeouts"`
	Scoring  Scoring  `yaml:"scoring"`
	Browser  Browser  `yaml:"browser"`

	Artifacts core.ArtifactConfig `yaml:"artifacts"`

	// Execution
	Parallelism         int     `yaml:"parallelism"`         // Concurrent language contexts
	MinFormCompleteness float64 `yaml:"minFormCompleteness"` // Checkout form pass threshold (0-1]
	TopIssues           int     `yaml:"topIssues"`           // Failing steps listed in the report
	OutputDir           string  `yaml:"outputDir"`
}

// Timeouts bounds every blocking operation of a run.
type Timeouts struct {
	Resolve          time.Duration `yaml:"resolve"`          // Element resolution budget
	MarkerProbe      time.Duration `yaml:"markerProbe"`      // Presence checks (banners, landmarks, cart markers)
	Navigation       time.Duration `yaml:"navigation"`       // Single page load
	SiteReachability time.Duration `yaml:"siteReachability"` // Storefront diagnostic probe
	Submission       time.Duration `yaml:"submission"`       // Wait for the order success signal
	Step             time.Duration `yaml:"step"`             // Per-step ceiling
	Flow             time.Duration `yaml:"flow"`             // Per-flow ceiling
	Stability        time.Duration `yaml:"stability"`        // Interval between box reads
	Poll             time.Duration `yaml:"poll"`             // Resolver polling interval
}

// Scoring holds the heuristic audit weights.
type Scoring struct {
	Performance   audit.PerformanceWeights   `yaml:"performance"`
	Accessibility audit.AccessibilityWeights `yaml:"accessibility"`
}

// Browser configures the Chrome driver.
type Browser struct {
	Headless       bool     `yaml:"headless"`
	Bin            string   `yaml:"bin"`            // Chrome binary; empty downloads Chromium into the home dir
	RemoteURL      string   `yaml:"remoteURL"`      // DevTools WebSocket of an already running Chrome
	Stealth        bool     `yaml:"stealth"`        // Apply anti-automation-detection patches
	BlockResources []string `yaml:"blockResources"` // images, fonts, media, stylesheets
	ViewportWidth  int      `yaml:"viewportWidth"`
	ViewportHeight int      `yaml:"viewportHeight"`
}

// Load loads configuration from a file, layered on Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, nil
}

// LoadFromDir looks for shopcheck.yaml or shopcheck.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"shopcheck.yaml", "shopcheck.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// normalize fills zero values left by a partial YAML document.
func (c *Config) normalize() {
	def := Default()
	if c.Parallelism <= 0 {
		c.Parallelism = def.Parallelism
	}
	if c.MinFormCompleteness <= 0 {
		c.MinFormCompleteness = def.MinFormCompleteness
	}
	if c.TopIssues <= 0 {
		c.TopIssues = def.TopIssues
	}
	if c.Locales == nil {
		c.Locales = def.Locales
	}
	for code, loc := range c.Locales {
		loc.Code = code
		loc.fillFrom(def.Locales[code])
		c.Locales[code] = loc
	}
	for i := range c.Personas {
		if c.Personas[i].Behavior.Quantity <= 0 {
			c.Personas[i].Behavior.Quantity = 1
		}
		if c.Personas[i].Behavior.Discovery == "" {
			c.Personas[i].Behavior.Discovery = DiscoveryDirect
		}
	}
}

// Locale returns the locale definition for a language code.
func (c *Config) Locale(lang string) (Locale, error) {
	loc, ok := c.Locales[lang]
	if !ok {
		return Locale{}, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("no locale defined for %q", lang))
	}
	loc.Code = lang
	return loc, nil
}

// Persona returns the persona with the given ID.
func (c *Config) Persona(id string) (Persona, bool) {
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Candidates returns the selector candidates for a UI target.
func (c *Config) Candidates(target string) flow.Candidates {
	if cands, ok := c.Selectors[target]; ok && len(cands) > 0 {
		return cands
	}
	return defaultSelectors()[target]
}

// PageURL builds an absolute URL for a path under a language's storefront.
// Absolute URLs are returned unchanged.
func (c *Config) PageURL(lang, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	u := strings.TrimRight(c.BaseURL, "/")
	if prefix := strings.Trim(c.Locales[lang].Path, "/"); prefix != "" {
		u += "/" + prefix
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return u + path
}

// Restrict narrows the matrix to the given languages and persona IDs.
// Empty filters leave the corresponding axis unchanged.
func (c *Config) Restrict(languages, personas []string) error {
	if len(languages) > 0 {
		for _, lang := range languages {
			if _, ok := c.Locales[lang]; !ok {
				return fmt.Errorf("%w: unknown language %q", core.ErrInvalidConfig, lang)
			}
		}
		c.Languages = languages
	}
	if len(personas) > 0 {
		var kept []Persona
		for _, id := range personas {
			p, ok := c.Persona(id)
			if !ok {
				return fmt.Errorf("%w: unknown persona %q", core.ErrInvalidConfig, id)
			}
			kept = append(kept, p)
		}
		c.Personas = kept
	}
	return nil
}
