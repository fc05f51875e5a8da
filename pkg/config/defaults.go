package config

import (
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/audit"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/flow"
)

// Selector catalog target names.
const (
	TargetLogo          = "logo"
	TargetNav           = "nav"
	TargetHero          = "hero"
	TargetFooter        = "footer"
	TargetConsent       = "consent"
	TargetProductLink   = "productLink"
	TargetCategoryLink  = "categoryLink"
	TargetSearchInput   = "searchInput"
	TargetProductTitle  = "productTitle"
	TargetProductPrice  = "productPrice"
	TargetAddToCart     = "addToCart"
	TargetQuantity      = "quantity"
	TargetVariant       = "variant"
	TargetCartItem      = "cartItem"
	TargetEmptyCart     = "emptyCart"
	TargetEmail         = "email"
	TargetName          = "name"
	TargetPhone         = "phone"
	TargetAddress       = "address"
	TargetCity          = "city"
	TargetPostalCode    = "postalCode"
	TargetPaymentMethod = "paymentMethod"
	TargetSubmitOrder   = "submitOrder"
	TargetOrderNumber   = "orderNumber"
)

// CheckoutFields lists the checkout form targets in fill order.
func CheckoutFields() []string {
	return []string{TargetEmail, TargetName, TargetPhone, TargetAddress, TargetCity, TargetPostalCode}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReferenceURL: "https://example.com/",
		Languages:    []string{"en", "de", "fr"},
		Locales:      defaultLocales(),
		Personas:     defaultPersonas(),
		Timeouts: Timeouts{
			Resolve:          10 * time.Second,
			MarkerProbe:      3 * time.Second,
			Navigation:       30 * time.Second,
			SiteReachability: 60 * time.Second,
			Submission:       45 * time.Second,
			Step:             90 * time.Second,
			Flow:             10 * time.Minute,
			Stability:        100 * time.Millisecond,
			Poll:             100 * time.Millisecond,
		},
		Scoring: Scoring{
			Performance:   audit.DefaultPerformanceWeights(),
			Accessibility: audit.DefaultAccessibilityWeights(),
		},
		Browser: Browser{
			Headless:       true,
			Stealth:        true,
			ViewportWidth:  1366,
			ViewportHeight: 900,
		},
		Artifacts:           core.DefaultArtifactConfig(),
		Parallelism:         3,
		MinFormCompleteness: 0.8,
		TopIssues:           5,
		OutputDir:           "reports",
	}
}

func defaultLocales() map[string]Locale {
	success := []string{`(?i)(thank|success|confirm|order-received)`}
	return map[string]Locale{
		"en": {
			Code:               "en",
			Path:               "",
			ListingPath:        "/products",
			CartPath:           "/cart",
			CheckoutPath:       "/checkout",
			SearchTerm:         "shirt",
			ConsentKeywords:    []string{"accept all", "accept", "agree", "allow all", "got it"},
			CategoryKeywords:   []string{"shop", "category", "collection", "new in"},
			AddToCartKeywords:  []string{"add to cart", "add to bag", "add to basket", "buy now"},
			EmptyCartKeywords:  []string{"your cart is empty", "cart is empty", "no items"},
			CheckoutKeywords:   []string{"checkout", "check out", "proceed"},
			PaymentLabels:      []string{"invoice", "cash on delivery", "bank transfer", "credit card", "card"},
			SubmitKeywords:     []string{"place order", "complete order", "buy now", "pay now", "submit order"},
			SuccessKeywords:    []string{"thank you", "order confirmed", "order number", "order received"},
			SuccessURLPatterns: success,
		},
		"de": {
			Code:               "de",
			Path:               "/de",
			ListingPath:        "/products",
			CartPath:           "/cart",
			CheckoutPath:       "/checkout",
			SearchTerm:         "hemd",
			ConsentKeywords:    []string{"alle akzeptieren", "akzeptieren", "zustimmen", "einverstanden"},
			CategoryKeywords:   []string{"shop", "kategorie", "kollektion", "neuheiten"},
			AddToCartKeywords:  []string{"in den warenkorb", "zum warenkorb hinzufügen", "jetzt kaufen"},
			EmptyCartKeywords:  []string{"warenkorb ist leer", "keine artikel"},
			CheckoutKeywords:   []string{"zur kasse", "kasse"},
			PaymentLabels:      []string{"rechnung", "nachnahme", "vorkasse", "überweisung", "kreditkarte"},
			SubmitKeywords:     []string{"zahlungspflichtig bestellen", "jetzt bestellen", "bestellung abschicken", "kaufen"},
			SuccessKeywords:    []string{"vielen dank", "bestellung bestätigt", "bestellnummer"},
			SuccessURLPatterns: success,
		},
		"fr": {
			Code:               "fr",
			Path:               "/fr",
			ListingPath:        "/products",
			CartPath:           "/cart",
			CheckoutPath:       "/checkout",
			SearchTerm:         "chemise",
			ConsentKeywords:    []string{"tout accepter", "accepter", "j'accepte", "d'accord"},
			CategoryKeywords:   []string{"boutique", "catégorie", "collection", "nouveautés"},
			AddToCartKeywords:  []string{"ajouter au panier", "acheter maintenant"},
			EmptyCartKeywords:  []string{"votre panier est vide", "panier est vide", "aucun article"},
			CheckoutKeywords:   []string{"commander", "passer à la caisse", "paiement"},
			PaymentLabels:      []string{"facture", "paiement à la livraison", "virement", "carte bancaire", "carte"},
			SubmitKeywords:     []string{"passer la commande", "valider la commande", "confirmer la commande", "payer"},
			SuccessKeywords:    []string{"merci", "commande confirmée", "numéro de commande"},
			SuccessURLPatterns: success,
		},
	}
}

func defaultPersonas() []Persona {
	return []Persona{
		{
			ID:          "quick_buyer",
			DisplayName: "Quick Buyer",
			Profiles: map[string]Profile{
				DefaultProfile: {
					Name: "Alex Quick", Email: "alex.quick@example.com", Phone: "+44 20 7946 0000",
					Address: "1 Market Street", City: "London", PostalCode: "EC1A 1BB",
				},
				"de": {
					Name: "Alex Schnell", Email: "alex.schnell@example.com", Phone: "+49 30 123456",
					Address: "Marktstraße 1", City: "Berlin", PostalCode: "10115",
				},
				"fr": {
					Name: "Alex Rapide", Email: "alex.rapide@example.com", Phone: "+33 1 23 45 67 89",
					Address: "1 rue du Marché", City: "Paris", PostalCode: "75001",
				},
			},
			Behavior: Behavior{Quantity: 1, Discovery: DiscoveryDirect},
		},
		{
			ID:          "careful_browser",
			DisplayName: "Careful Browser",
			Profiles: map[string]Profile{
				DefaultProfile: {
					Name: "Sam Careful", Email: "sam.careful@example.com", Phone: "+44 161 496 0000",
					Address: "22 Mill Lane", City: "Manchester", PostalCode: "M1 1AE",
				},
				"de": {
					Name: "Sam Sorgfalt", Email: "sam.sorgfalt@example.com", Phone: "+49 89 654321",
					Address: "Mühlweg 22", City: "München", PostalCode: "80331",
				},
				"fr": {
					Name: "Sam Prudent", Email: "sam.prudent@example.com", Phone: "+33 4 91 00 00 00",
					Address: "22 chemin du Moulin", City: "Marseille", PostalCode: "13001",
				},
			},
			Behavior: Behavior{
				TypingCadence: 40 * time.Millisecond,
				Quantity:      2,
				Discovery:     DiscoverySearch,
				SelectVariant: true,
			},
		},
	}
}

func defaultSelectors() map[string]flow.Candidates {
	css := func(sels ...string) flow.Candidates {
		out := make(flow.Candidates, len(sels))
		for i, s := range sels {
			out[i] = flow.CSS(s)
		}
		return out
	}

	return map[string]flow.Candidates{
		TargetLogo:          css(`[class*="logo"] img`, `[class*="logo"]`, `header a[href="/"]`, `header img`),
		TargetNav:           css(`nav`, `[role="navigation"]`, `header ul`),
		TargetHero:          css(`[class*="hero"]`, `[class*="banner"]`, `main section:first-of-type`),
		TargetFooter:        css(`footer`, `[role="contentinfo"]`),
		TargetConsent:       css(`#onetrust-accept-btn-handler`, `[data-testid*="accept"]`, `button[id*="accept"]`),
		TargetProductLink:   css(`a[href*="/product"]`, `a[href*="/p/"]`, `[class*="product"] a[href]`),
		TargetCategoryLink:  css(`a[href*="/collections/"]`, `a[href*="/category"]`, `nav a[href]`),
		TargetSearchInput:   css(`input[type="search"]`, `input[name="q"]`, `input[name="search"]`),
		TargetProductTitle:  css(`[itemprop="name"]`, `h1[class*="product"]`, `main h1`, `h1`),
		TargetProductPrice:  css(`[itemprop="price"]`, `[class*="price"]`, `[data-price]`),
		TargetAddToCart:     css(`button[name="add"]`, `[data-action="add-to-cart"]`, `button[class*="add-to-cart"]`, `form[action*="cart"] button[type="submit"]`),
		TargetQuantity:      css(`input[name="quantity"]`, `input[type="number"][name*="qty"]`, `select[name="quantity"]`),
		TargetVariant:       css(`select[name*="variant"]`, `select[name*="option"]`, `select[name*="size"]`),
		TargetCartItem:      css(`[class*="cart-item"]`, `[data-cart-item]`, `form[action*="cart"] [class*="line-item"]`),
		TargetEmptyCart:     css(`[class*="cart--empty"]`, `[class*="empty-cart"]`, `[data-cart-empty]`),
		TargetEmail:         css(`input[type="email"]`, `input[name="email"]`, `input[autocomplete="email"]`),
		TargetName:          css(`input[autocomplete="name"]`, `input[name="name"]`, `input[name*="full_name"]`, `input[name*="firstName"]`),
		TargetPhone:         css(`input[type="tel"]`, `input[name="phone"]`, `input[autocomplete="tel"]`),
		TargetAddress:       css(`input[autocomplete="address-line1"]`, `input[name="address1"]`, `input[name*="address"]`, `input[name*="street"]`),
		TargetCity:          css(`input[autocomplete="address-level2"]`, `input[name="city"]`, `input[name*="city"]`),
		TargetPostalCode:    css(`input[autocomplete="postal-code"]`, `input[name*="zip"]`, `input[name*="postal"]`),
		TargetPaymentMethod: css(`input[type="radio"][name*="payment"]`, `[data-payment-method]`, `[class*="payment-method"] label`),
		TargetSubmitOrder:   css(`button[type="submit"][name*="order"]`, `#place_order`, `[data-action="place-order"]`),
		TargetOrderNumber:   css(`[data-order-number]`, `[class*="order-number"]`, `[class*="order-id"]`),
	}
}
