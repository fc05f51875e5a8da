package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "shopcheck.yaml", `
baseURL: https://shop.example.com
languages: [de]
timeouts:
  resolve: 4s
  flow: 5m
selectors:
  addToCart:
    - "#buy"
    - css: button
      text: Kaufen
parallelism: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL != "https://shop.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "de" {
		t.Errorf("Languages = %v, want [de]", cfg.Languages)
	}
	if cfg.Timeouts.Resolve != 4*time.Second {
		t.Errorf("Timeouts.Resolve = %v, want 4s", cfg.Timeouts.Resolve)
	}
	if cfg.Timeouts.Flow != 5*time.Minute {
		t.Errorf("Timeouts.Flow = %v, want 5m", cfg.Timeouts.Flow)
	}
	// Untouched fields keep their defaults
	if cfg.Timeouts.Submission != 45*time.Second {
		t.Errorf("Timeouts.Submission = %v, want 45s", cfg.Timeouts.Submission)
	}
	if cfg.MinFormCompleteness != 0.8 {
		t.Errorf("MinFormCompleteness = %v, want 0.8", cfg.MinFormCompleteness)
	}
	if cfg.Parallelism != 2 {
		t.Errorf("Parallelism = %d, want 2", cfg.Parallelism)
	}

	cands := cfg.Candidates(TargetAddToCart)
	if len(cands) != 2 || cands[0].CSS != "#buy" || cands[1].Text != "Kaufen" {
		t.Errorf("Candidates(addToCart) = %+v", cands)
	}
	if len(cfg.Candidates(TargetEmail)) == 0 {
		t.Error("Candidates(email) should fall back to the default catalog")
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestLoad_PartialLocaleIsFilled(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "shopcheck.yaml", `
baseURL: https://shop.example.com
languages: [it]
locales:
  it:
    path: /it
    addToCartKeywords: ["aggiungi al carrello"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, err := cfg.Locale("it")
	if err != nil {
		t.Fatalf("Locale(it) error = %v", err)
	}
	if loc.Code != "it" {
		t.Errorf("Code = %q, want it", loc.Code)
	}
	if loc.AddToCartKeywords[0] != "aggiungi al carrello" {
		t.Errorf("AddToCartKeywords = %v", loc.AddToCartKeywords)
	}
	if loc.CartPath != "/cart" {
		t.Errorf("CartPath = %q, want /cart", loc.CartPath)
	}
	if len(loc.SuccessURLPatterns) == 0 {
		t.Error("SuccessURLPatterns should be filled from defaults")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/shopcheck.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "shopcheck.yaml", `languages: [invalid yaml`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantBase string
	}{
		{"yaml", "shopcheck.yaml", "https://a.example"},
		{"yml", "shopcheck.yml", "https://a.example"},
		{"none", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeConfig(t, dir, tt.file, "baseURL: https://a.example\n")
			}
			cfg, err := LoadFromDir(dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.BaseURL != tt.wantBase {
				t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, tt.wantBase)
			}
			if len(cfg.Personas) == 0 {
				t.Error("expected default personas")
			}
		})
	}
}

func TestPageURL(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "https://shop.example.com/"

	tests := []struct {
		lang, path, want string
	}{
		{"en", "/", "https://shop.example.com/"},
		{"en", "", "https://shop.example.com/"},
		{"de", "/", "https://shop.example.com/de/"},
		{"de", "cart", "https://shop.example.com/de/cart"},
		{"fr", "/checkout", "https://shop.example.com/fr/checkout"},
		{"fr", "https://other.example/p/1", "https://other.example/p/1"},
	}

	for _, tt := range tests {
		if got := cfg.PageURL(tt.lang, tt.path); got != tt.want {
			t.Errorf("PageURL(%q, %q) = %q, want %q", tt.lang, tt.path, got, tt.want)
		}
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "not a url"
	cfg.Languages = []string{"en", "xx-unknown"}
	cfg.Personas = append(cfg.Personas, Persona{ID: "quick_buyer", Behavior: Behavior{Discovery: "teleport"}})
	cfg.Selectors = map[string]flow.Candidates{TargetEmail: {{}}}
	cfg.Timeouts.Poll = 0
	cfg.MinFormCompleteness = 1.5

	errs := cfg.Validate()

	wantFields := []string{
		"baseURL", "languages", "personas[2].id", "personas[2].behavior.discovery",
		"personas[2].profiles", "selectors.email[0]", "timeouts.poll", "minFormCompleteness",
	}
	got := make(map[string]bool)
	for _, err := range errs {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("error %v is not a *ValidationError", err)
		}
		got[ve.Field] = true
	}
	for _, f := range wantFields {
		if !got[f] {
			t.Errorf("missing validation error for %s; got %v", f, errs)
		}
	}
}

func TestValidate_DefaultsWithBaseURL(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "https://shop.example.com"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want none", errs)
	}
}

func TestRestrict(t *testing.T) {
	cfg := Default()
	if err := cfg.Restrict([]string{"de"}, []string{"careful_browser"}); err != nil {
		t.Fatalf("Restrict() error = %v", err)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "de" {
		t.Errorf("Languages = %v", cfg.Languages)
	}
	if len(cfg.Personas) != 1 || cfg.Personas[0].ID != "careful_browser" {
		t.Errorf("Personas = %v", cfg.Personas)
	}

	err := cfg.Restrict([]string{"jp"}, nil)
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("Restrict(jp) error = %v, want ErrInvalidConfig", err)
	}
	if err == nil || !strings.Contains(err.Error(), "jp") {
		t.Errorf("error should name the language: %v", err)
	}
}

func TestPersona_ProfileFor(t *testing.T) {
	cfg := Default()
	p, ok := cfg.Persona("quick_buyer")
	if !ok {
		t.Fatal("quick_buyer not found")
	}
	if got := p.ProfileFor("de").City; got != "Berlin" {
		t.Errorf("ProfileFor(de).City = %q, want Berlin", got)
	}
	if got := p.ProfileFor("nl").City; got != "London" {
		t.Errorf("ProfileFor(nl).City = %q, want default London", got)
	}
}

func TestBehavior_DiscoveryOrder(t *testing.T) {
	got := Behavior{Discovery: DiscoverySearch}.DiscoveryOrder()
	want := []string{DiscoverySearch, DiscoveryDirect, DiscoveryCategory, DiscoveryFeatured}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("DiscoveryOrder() = %v, want %v", got, want)
	}
}
