// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Session represents one browser tab and implements schemas.Page on top of
// CDP. All element handles it produces are bound to its lifetime.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config
}

var _ schemas.Page = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) *Session {
	sessionID := uuid.New().String()
	return &Session{
		id:     sessionID,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", sessionID)),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Close tears down the tab.
func (s *Session) Close() {
	s.cancel()
}

// runActions executes chromedp actions, respecting both the session lifetime
// and the incoming request context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL, waits for the document body and then for the
// configured post-load quiet period.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))

	navTimeout := s.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.Settle(ctx, s.cfg.Network.PostLoadWait)
	return nil
}

// Location returns the current page URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return url, nil
}

// ScrollTo moves the viewport to the bottom or top of the document so lazily
// rendered list rows materialize.
func (s *Session) ScrollTo(ctx context.Context, bottom bool) error {
	script := "window.scrollTo(0, 0);"
	if bottom {
		script = "window.scrollTo(0, document.body.scrollHeight);"
	}
	if err := s.runActions(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scrolling: %w", err)
	}
	return nil
}

// QueryAll returns every element matching the CSS selector, in document
// order. An empty result is not an error.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]schemas.Element, error) {
	var nodes []*cdp.Node
	err := s.runActions(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	return s.wrapNodes(nodes), nil
}

// ButtonsByText returns the buttons whose visible text contains the given
// string, case-insensitively. The lookup runs as an XPath search because CSS
// cannot match on text content.
func (s *Session) ButtonsByText(ctx context.Context, text string) ([]schemas.Element, error) {
	xpath := fmt.Sprintf(
		`//button[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %s)]`,
		xpathLiteral(strings.ToLower(text)))

	var nodes []*cdp.Node
	err := s.runActions(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("searching buttons by text %q: %w", text, err)
	}
	return s.wrapNodes(nodes), nil
}

// Content returns the full page markup.
func (s *Session) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.runActions(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

// Settle blocks for the given duration, bounded by the context. The host
// page's own scripting needs this window to apply asynchronous DOM updates.
func (s *Session) Settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	case <-timer.C:
	}
}

func (s *Session) wrapNodes(nodes []*cdp.Node) []schemas.Element {
	elements := make([]schemas.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, newElement(s, node))
	}
	return elements
}

// xpathLiteral quotes a string for embedding in an XPath expression. XPath
// 1.0 has no escape syntax, so strings containing single quotes are built
// with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
