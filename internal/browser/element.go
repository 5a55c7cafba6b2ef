// File: internal/browser/element.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
)

// tagAttribute is the temporary attribute used to target a discovered node by
// CSS selector. Re-selecting through a unique tag is far more reliable than
// reconstructing a selector path on a DOM that shifts underneath us.
const tagAttribute = "data-applypilot-id"

// Element is a handle to one DOM node inside a session.
type Element struct {
	sess *Session
	node *cdp.Node
}

var _ schemas.Element = (*Element)(nil)

func newElement(sess *Session, node *cdp.Node) *Element {
	return &Element{sess: sess, node: node}
}

// withTag briefly marks the node with a unique attribute, hands the matching
// CSS selector to fn and removes the mark again no matter how fn fares. A
// tagging failure usually means the node went stale with the last re-render.
func (e *Element) withTag(ctx context.Context, fn func(sel string) error) error {
	tempID := fmt.Sprintf("ap-%d-%d", time.Now().UnixNano(), rand.Int63())
	sel := fmt.Sprintf(`[%s=%q]`, tagAttribute, tempID)

	err := e.sess.runActions(ctx, chromedp.SetAttributeValue(
		[]cdp.NodeID{e.node.NodeID}, tagAttribute, tempID, chromedp.ByNodeID))
	if err != nil {
		return fmt.Errorf("failed to tag element (might be stale): %w", err)
	}
	defer func() {
		if cleanupErr := e.sess.runActions(ctx, chromedp.RemoveAttribute(sel, tagAttribute, chromedp.ByQuery)); cleanupErr != nil {
			e.sess.logger.Debug("Could not remove element tag", zap.Error(cleanupErr))
		}
	}()

	return fn(sel)
}

// Text returns the trimmed visible text content of the element.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.Text(sel, &text, chromedp.ByQuery))
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Attribute returns the named attribute and whether it is present.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	err := e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.AttributeValue(sel, name, &value, &ok, chromedp.ByQuery))
	})
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}

// OuterHTML returns the element's own markup.
func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.OuterHTML(sel, &html, chromedp.ByQuery))
	})
	return html, err
}

// Query returns the first descendant matching the selector, or
// schemas.ErrNoElement.
func (e *Element) Query(ctx context.Context, selector string) (schemas.Element, error) {
	children, err := e.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, schemas.ErrNoElement
	}
	return children[0], nil
}

// QueryAll returns every descendant matching the selector, in document order.
func (e *Element) QueryAll(ctx context.Context, selector string) ([]schemas.Element, error) {
	var nodes []*cdp.Node
	err := e.withTag(ctx, func(sel string) error {
		scoped := scopeSelector(sel, selector)
		return e.sess.runActions(ctx, chromedp.Nodes(scoped, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	})
	if err != nil {
		return nil, fmt.Errorf("querying %q under element: %w", selector, err)
	}
	return e.sess.wrapNodes(nodes), nil
}

// scopeSelector prefixes every alternative of a selector list with the scope
// selector. CSS grouping binds looser than the descendant combinator, so a
// plain "scope A, B" would match B document-wide; each alternative needs its
// own scope prefix.
func scopeSelector(scope, selector string) string {
	parts := splitSelectorList(selector)
	for i, part := range parts {
		parts[i] = scope + " " + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// splitSelectorList splits a selector list on its top-level commas. Commas
// inside quotes, attribute brackets or functional pseudo-classes belong to
// the alternative, not the list.
func splitSelectorList(selector string) []string {
	var parts []string
	var quote rune
	depth := 0
	start := 0
	for i, r := range selector {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, selector[start:i])
			start = i + 1
		}
	}
	return append(parts, selector[start:])
}

// Click activates the element: scroll into view, direct CDP click, and on
// failure a script-level click on the same target. Every path ends with the
// configured settle delay so the page's own handlers can run.
func (e *Element) Click(ctx context.Context) error {
	err := e.withTag(ctx, func(sel string) error {
		direct := e.sess.runActions(ctx,
			chromedp.ScrollIntoView(sel, chromedp.ByQuery),
			chromedp.Click(sel, chromedp.ByQuery),
		)
		if direct == nil {
			return nil
		}
		e.sess.logger.Debug("Direct click failed, falling back to script click", zap.Error(direct))

		script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.click(); return true; })()`, sel)
		var clicked bool
		if err := e.sess.runActions(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
			return fmt.Errorf("script click failed: %w", err)
		}
		if !clicked {
			return schemas.ErrNoElement
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.sess.Settle(ctx, e.sess.cfg.Network.SettleDelay)
	return nil
}

// Clear empties a text control.
func (e *Element) Clear(ctx context.Context) error {
	return e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.Clear(sel, chromedp.ByQuery))
	})
}

// Type inserts text into a text control and settles.
func (e *Element) Type(ctx context.Context, text string) error {
	err := e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.SendKeys(sel, text, chromedp.ByQuery))
	})
	if err != nil {
		return err
	}
	e.sess.Settle(ctx, e.sess.cfg.Network.SettleDelay)
	return nil
}

// SetFiles attaches local files to a file input.
func (e *Element) SetFiles(ctx context.Context, paths ...string) error {
	err := e.withTag(ctx, func(sel string) error {
		return e.sess.runActions(ctx, chromedp.SetUploadFiles(sel, paths, chromedp.ByQuery))
	})
	if err != nil {
		return err
	}
	e.sess.Settle(ctx, e.sess.cfg.Network.SettleDelay)
	return nil
}

// SelectOption picks the option with the given visible label on a native
// select control and fires the change events the page listens for.
func (e *Element) SelectOption(ctx context.Context, label string) error {
	err := e.withTag(ctx, func(sel string) error {
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el || el.tagName !== 'SELECT') return false;
			const want = %q.trim();
			for (const opt of el.options) {
				if (opt.textContent.trim() === want) {
					el.value = opt.value;
					el.dispatchEvent(new Event('input', { bubbles: true }));
					el.dispatchEvent(new Event('change', { bubbles: true }));
					return true;
				}
			}
			return false;
		})()`, sel, label)

		var selected bool
		if err := e.sess.runActions(ctx, chromedp.Evaluate(script, &selected)); err != nil {
			return fmt.Errorf("selecting option %q: %w", label, err)
		}
		if !selected {
			return fmt.Errorf("no option with label %q", label)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.sess.Settle(ctx, e.sess.cfg.Network.SettleDelay)
	return nil
}

// Visible reports whether the element takes up layout space and is not
// hidden.
func (e *Element) Visible(ctx context.Context) (bool, error) {
	return e.evalBool(ctx, `!!(el.offsetWidth || el.offsetHeight || el.getClientRects().length) && getComputedStyle(el).visibility !== 'hidden'`)
}

// Enabled reports whether the element accepts interaction.
func (e *Element) Enabled(ctx context.Context) (bool, error) {
	return e.evalBool(ctx, `!el.disabled`)
}

// Checked reports the state of a checkbox or radio input.
func (e *Element) Checked(ctx context.Context) (bool, error) {
	return e.evalBool(ctx, `!!el.checked`)
}

func (e *Element) evalBool(ctx context.Context, expr string) (bool, error) {
	var result bool
	err := e.withTag(ctx, func(sel string) error {
		script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; return %s; })()`, sel, expr)
		return e.sess.runActions(ctx, chromedp.Evaluate(script, &result))
	})
	return result, err
}
