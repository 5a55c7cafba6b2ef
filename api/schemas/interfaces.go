package schemas

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by element lookups that match nothing. Callers
// distinguish "not present" from transport failures with errors.Is.
var ErrNoElement = errors.New("no element matched selector")

// Element is the capability surface for one DOM node. The form engine depends
// only on this interface, never on a concrete driver, so the whole
// inspect/resolve/commit pipeline is testable with in-memory fakes.
type Element interface {
	// Text returns the trimmed visible text content of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// OuterHTML returns the element's own markup, used for substring
	// classification of upload controls and custom widgets.
	OuterHTML(ctx context.Context) (string, error)
	// Query returns the first descendant matching the selector, or
	// ErrNoElement.
	Query(ctx context.Context, selector string) (Element, error)
	// QueryAll returns every descendant matching the selector, in document
	// order. An empty result is not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Click activates the element. Implementations fall back to a
	// script-level click when the direct interaction is intercepted.
	Click(ctx context.Context) error
	// Clear empties a text control.
	Clear(ctx context.Context) error
	// Type inserts text into a text control.
	Type(ctx context.Context, text string) error
	// SetFiles attaches local files to a file input.
	SetFiles(ctx context.Context, paths ...string) error
	// SelectOption picks the option with the given visible label on a
	// native select control.
	SelectOption(ctx context.Context, label string) error
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	// Checked reports the state of a checkbox or radio input.
	Checked(ctx context.Context) (bool, error)
}

// Page is the capability surface for the current document. The step
// controller uses it to enumerate sections, probe for navigation buttons and
// read the page content for submission confirmation.
type Page interface {
	// QueryAll returns every element matching the selector, in document
	// order. An empty result is not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// ButtonsByText returns the buttons whose visible text contains the
	// given string, case-insensitively.
	ButtonsByText(ctx context.Context, text string) ([]Element, error)
	// Content returns the full page markup.
	Content(ctx context.Context) (string, error)
	// Settle blocks for the given duration so the host page's own scripting
	// can react to a mutation before the next read.
	Settle(ctx context.Context, d time.Duration)
}

// LLMClient is the transport-level completion client. Exactly one
// implementation talks to the remote provider; the gateway is its only
// caller.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// AnswerGateway produces a usable answer string for a question. It never
// fails past its boundary: on persistent provider errors it returns a
// deterministic fallback instead.
type AnswerGateway interface {
	Ask(ctx context.Context, question string) string
}
