// File: internal/jobs/login.go
package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

const loginURL = "https://www.linkedin.com/login"

// loggedInURLTokens appear in the post-login URL on success.
var loggedInURLTokens = []string{"feed", "mynetwork", "jobs"}

// verificationURLTokens mark a security checkpoint that only a human can
// clear.
var verificationURLTokens = []string{"checkpoint", "security"}

// ErrLoginFailed is returned when the post-login URL shows neither a
// logged-in page nor a verification checkpoint.
var ErrLoginFailed = errors.New("login did not reach a logged-in page")

// Authenticator drives the portal's credential form. Verification
// checkpoints are not automated; the run pauses until the operator clears
// them in the visible browser window.
type Authenticator struct {
	portal Portal
	cfg    config.ProfileConfig
	logger *zap.Logger
	// waitForOperator blocks until the operator confirms the checkpoint is
	// done. Injectable for tests; defaults to reading a line from stdin.
	waitForOperator func()
}

func NewAuthenticator(portal Portal, cfg config.ProfileConfig, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		portal: portal,
		cfg:    cfg,
		logger: logger.Named("login"),
		waitForOperator: func() {
			reader := bufio.NewReader(os.Stdin)
			_, _ = reader.ReadString('\n')
		},
	}
}

// Login signs in with the configured credentials and verifies by URL.
func (a *Authenticator) Login(ctx context.Context) error {
	a.logger.Info("Signing in")
	if err := a.portal.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("loading login page: %w", err)
	}

	if err := a.fill(ctx, "#username", a.cfg.Username); err != nil {
		return fmt.Errorf("filling username: %w", err)
	}
	if err := a.fill(ctx, "#password", a.cfg.Password); err != nil {
		return fmt.Errorf("filling password: %w", err)
	}

	submit, err := a.portal.QueryAll(ctx, "button[type='submit']")
	if err != nil || len(submit) == 0 {
		return fmt.Errorf("locating sign-in button: %w", err)
	}
	if err := submit[0].Click(ctx); err != nil {
		return fmt.Errorf("clicking sign-in button: %w", err)
	}
	a.portal.Settle(ctx, 10*time.Second)

	location, err := a.portal.Location(ctx)
	if err != nil {
		return fmt.Errorf("reading post-login location: %w", err)
	}
	if containsAny(location, loggedInURLTokens) {
		a.logger.Info("Signed in")
		return nil
	}
	if containsAny(location, verificationURLTokens) {
		a.logger.Warn("Verification checkpoint hit, complete it in the browser and press Enter")
		a.waitForOperator()
		return nil
	}
	a.logger.Warn("Unexpected post-login URL", zap.String("url", location))
	return ErrLoginFailed
}

func (a *Authenticator) fill(ctx context.Context, selector, value string) error {
	fields, err := a.portal.QueryAll(ctx, selector)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("no element for %q", selector)
	}
	if err := fields[0].Clear(ctx); err != nil {
		return err
	}
	return fields[0].Type(ctx, value)
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
