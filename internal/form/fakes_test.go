// File: internal/form/fakes_test.go
package form

import (
	"context"
	"strings"
	"time"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
)

// fakeElement is an in-memory stand-in for one DOM node. Descendant lookups
// resolve against a literal selector -> children map; selectors the test did
// not script simply match nothing, which is exactly how an absent structure
// behaves on the real page.
type fakeElement struct {
	text     string
	html     string
	attrs    map[string]string
	children map[string][]schemas.Element

	visible bool
	enabled bool
	checked bool

	clicks     int
	clearCalls int
	typed      []string
	files      []string
	selected   string

	clickErr error
	onClick  func()
}

var _ schemas.Element = (*fakeElement)(nil)

func newFakeElement() *fakeElement {
	return &fakeElement{
		attrs:    make(map[string]string),
		children: make(map[string][]schemas.Element),
		visible:  true,
		enabled:  true,
	}
}

func (f *fakeElement) Text(context.Context) (string, error) { return f.text, nil }

func (f *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := f.attrs[name]
	return value, ok, nil
}

func (f *fakeElement) OuterHTML(context.Context) (string, error) { return f.html, nil }

func (f *fakeElement) Query(ctx context.Context, selector string) (schemas.Element, error) {
	matches, err := f.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, schemas.ErrNoElement
	}
	return matches[0], nil
}

func (f *fakeElement) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	return f.children[selector], nil
}

func (f *fakeElement) Click(context.Context) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks++
	if f.onClick != nil {
		f.onClick()
	}
	return nil
}

func (f *fakeElement) Clear(context.Context) error {
	f.clearCalls++
	return nil
}

func (f *fakeElement) Type(_ context.Context, text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeElement) SetFiles(_ context.Context, paths ...string) error {
	f.files = append(f.files, paths...)
	return nil
}

func (f *fakeElement) SelectOption(_ context.Context, label string) error {
	f.selected = label
	return nil
}

func (f *fakeElement) Visible(context.Context) (bool, error) { return f.visible, nil }
func (f *fakeElement) Enabled(context.Context) (bool, error) { return f.enabled, nil }
func (f *fakeElement) Checked(context.Context) (bool, error) { return f.checked, nil }

// pageState is one render of the dialog between navigation activations.
type pageState struct {
	elements map[string][]schemas.Element
	buttons  map[string][]schemas.Element
	content  string
}

// fakePage simulates a multi-step dialog: each navigation click advances to
// the next scripted state via the button's onClick hook.
type fakePage struct {
	states []*pageState
	idx    int
	// onSettle lets a test observe step boundaries and mutate the page the
	// way a re-rendering dialog would.
	onSettle func(d time.Duration)
}

var _ schemas.Page = (*fakePage)(nil)

func newFakePage(states ...*pageState) *fakePage {
	return &fakePage{states: states}
}

func (p *fakePage) current() *pageState {
	if p.idx >= len(p.states) {
		return p.states[len(p.states)-1]
	}
	return p.states[p.idx]
}

func (p *fakePage) advance() { p.idx++ }

func (p *fakePage) QueryAll(_ context.Context, selector string) ([]schemas.Element, error) {
	return p.current().elements[selector], nil
}

func (p *fakePage) ButtonsByText(_ context.Context, text string) ([]schemas.Element, error) {
	return p.current().buttons[strings.ToLower(text)], nil
}

func (p *fakePage) Content(context.Context) (string, error) {
	return p.current().content, nil
}

func (p *fakePage) Settle(_ context.Context, d time.Duration) {
	if p.onSettle != nil {
		p.onSettle(d)
	}
}

// stubGateway returns scripted answers and counts calls, so tests can assert
// which resolutions never reach the language model.
type stubGateway struct {
	answers       map[string]string
	defaultAnswer string
	calls         []string
}

func (s *stubGateway) Ask(_ context.Context, question string) string {
	s.calls = append(s.calls, question)
	if answer, ok := s.answers[question]; ok {
		return answer
	}
	for key, answer := range s.answers {
		if strings.Contains(question, key) {
			return answer
		}
	}
	return s.defaultAnswer
}
