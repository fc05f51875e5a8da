package core

// Page scripts shared by every driver. Drivers evaluate them like any other
// function expression; the mock driver answers them from its page model.
const (
	// PageTextScript returns the visible text of the document body.
	PageTextScript = `() => document.body ? document.body.innerText : ''`

	// ReadyStateScript returns document.readyState.
	ReadyStateScript = `() => document.readyState`

	// ProbeScript is the harness self-check: arbitrary evaluation must
	// return true.
	ProbeScript = `() => 6 * 7 === 42`
)
