// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Manager owns the Chrome process lifecycle. Sessions (tabs) are created from
// its allocator context and must be closed before Shutdown.
type Manager struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
	cfg         *config.Config
}

// NewManager launches the exec allocator with the flags the application
// portal tolerates. The browser process itself starts lazily with the first
// session.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.Browser.StartMaximized {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}
	if cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	return &Manager{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      logger.Named("browser_manager"),
		cfg:         cfg,
	}, nil
}

// NewSession creates a fresh tab and connects CDP to it.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	var ctxOpts []chromedp.ContextOption
	if m.cfg.Browser.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(m.logger.Sugar().Debugf))
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx, ctxOpts...)

	// Running an empty task list forces target creation and the CDP handshake.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to initialize browser target: %w", err)
	}

	return newSession(tabCtx, tabCancel, m.cfg, m.logger), nil
}

// Shutdown tears down the allocator, killing the browser process.
func (m *Manager) Shutdown() {
	m.logger.Info("Shutting down browser")
	m.allocCancel()
}
