package config

import "time"

// Discovery strategies, tried preferred-first by the discovery step.
const (
	DiscoveryDirect   = "direct"   // Product links on the homepage and configured product URLs
	DiscoveryCategory = "category" // Follow a category link, then collect product links
	DiscoverySearch   = "search"   // Submit the search term
	DiscoveryFeatured = "featured" // Product listing page
)

// DiscoveryStrategies returns every strategy in fallback order.
func DiscoveryStrategies() []string {
	return []string{DiscoveryDirect, DiscoveryCategory, DiscoverySearch, DiscoveryFeatured}
}

// DefaultProfile is the profile key used when a persona has no entry for a language.
const DefaultProfile = "default"

// Persona is a synthetic shopper: customer data per language plus behavior.
type Persona struct {
	ID          string             `yaml:"id"`
	DisplayName string             `yaml:"displayName"`
	Profiles    map[string]Profile `yaml:"profiles"` // Keyed by language code or "default"
	Behavior    Behavior           `yaml:"behavior"`
}

// Profile is the customer data typed into the checkout form.
type Profile struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Phone      string `yaml:"phone"`
	Address    string `yaml:"address"`
	City       string `yaml:"city"`
	PostalCode string `yaml:"postalCode"`
}

// Behavior controls how the persona interacts with the storefront.
type Behavior struct {
	TypingCadence time.Duration `yaml:"typingCadence"` // Delay between keystrokes; 0 inputs text at once
	Quantity      int           `yaml:"quantity"`      // Units to add to the cart
	Discovery     string        `yaml:"discovery"`     // Preferred discovery strategy
	SearchTerm    string        `yaml:"searchTerm"`    // Overrides the locale search term
	SelectVariant bool          `yaml:"selectVariant"` // Pick the first non-default variant
}

// ProfileFor returns the profile for lang, falling back to the default profile.
func (p Persona) ProfileFor(lang string) Profile {
	if prof, ok := p.Profiles[lang]; ok {
		return prof
	}
	return p.Profiles[DefaultProfile]
}

// Name returns the display name, or the ID when none is set.
func (p Persona) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// Fields returns the profile values keyed by selector target name.
func (p Profile) Fields() map[string]string {
	return map[string]string{
		TargetEmail:      p.Email,
		TargetName:       p.Name,
		TargetPhone:      p.Phone,
		TargetAddress:    p.Address,
		TargetCity:       p.City,
		TargetPostalCode: p.PostalCode,
	}
}

// DiscoveryOrder returns the preferred strategy followed by the others.
func (b Behavior) DiscoveryOrder() []string {
	order := []string{b.Discovery}
	for _, s := range DiscoveryStrategies() {
		if s != b.Discovery {
			order = append(order, s)
		}
	}
	return order
}
