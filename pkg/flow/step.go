package flow

// StepName identifies one stage of the purchase flow.
type StepName string

// Step names, in pipeline order.
const (
	StepHomepage      StepName = "homepage"
	StepConsent       StepName = "consent"
	StepDiscovery     StepName = "discovery"
	StepProductDetail StepName = "product_detail"
	StepAddToCart     StepName = "add_to_cart"
	StepCheckoutForm  StepName = "checkout_form"
	StepPaymentMethod StepName = "payment_method"
	StepSubmission    StepName = "submission"
	StepConfirmation  StepName = "confirmation"
)

// Precondition is upstream state a step depends on.
type Precondition string

// Preconditions established during a flow run.
const (
	PreconditionProductsDiscovered Precondition = "products_discovered"
	PreconditionCartNonEmpty       Precondition = "cart_non_empty"
	PreconditionOrderSubmitted     Precondition = "order_submitted"
)

// Reason is the human-readable explanation used when the precondition is
// unmet and dependent steps are skipped.
func (p Precondition) Reason() string {
	switch p {
	case PreconditionProductsDiscovered:
		return "no products discovered"
	case PreconditionCartNonEmpty:
		return "cart state not persisted"
	case PreconditionOrderSubmitted:
		return "order not submitted"
	default:
		return string(p) + " not established"
	}
}

// StepSpec declares a step and the preconditions it needs.
// Requires is ordered: the first unmet entry is reported as the skip reason.
type StepSpec struct {
	Name        StepName
	Requires    []Precondition
	Establishes Precondition // empty when the step establishes nothing
	Description string
}

// Pipeline returns the ordered purchase-flow steps.
func Pipeline() []StepSpec {
	return []StepSpec{
		{Name: StepHomepage, Description: "load homepage and check landmarks"},
		{Name: StepConsent, Description: "dismiss cookie/privacy banner"},
		{Name: StepDiscovery, Establishes: PreconditionProductsDiscovered, Description: "discover products"},
		{Name: StepProductDetail, Requires: []Precondition{PreconditionProductsDiscovered}, Description: "open a product"},
		{Name: StepAddToCart, Requires: []Precondition{PreconditionProductsDiscovered}, Establishes: PreconditionCartNonEmpty, Description: "add to cart and verify cart state"},
		{Name: StepCheckoutForm, Description: "fill customer fields"},
		{Name: StepPaymentMethod, Requires: []Precondition{PreconditionProductsDiscovered, PreconditionCartNonEmpty}, Description: "select a payment method"},
		{Name: StepSubmission, Requires: []Precondition{PreconditionProductsDiscovered, PreconditionCartNonEmpty}, Establishes: PreconditionOrderSubmitted, Description: "submit the order"},
		{Name: StepConfirmation, Requires: []Precondition{PreconditionProductsDiscovered, PreconditionCartNonEmpty, PreconditionOrderSubmitted}, Description: "extract the order number"},
	}
}

// FirstUnmet returns the first precondition in requires that met does not
// report as established.
func FirstUnmet(requires []Precondition, met func(Precondition) bool) (Precondition, bool) {
	for _, p := range requires {
		if !met(p) {
			return p, true
		}
	}
	return "", false
}
