// File: internal/form/controller.go
package form

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

// navOutcome is the result of one navigation probe.
type navOutcome int

const (
	navNone navOutcome = iota
	navAdvanced
	navSubmitted
)

// Controller drives one application attempt through the multi-step dialog:
// inspect the visible sections, resolve and commit each new field, then
// activate the step's navigation control, until the attempt reaches a
// terminal state. One controller owns one attempt; nothing is shared across
// attempts except the read-only profile.
type Controller struct {
	page      schemas.Page
	inspector *Inspector
	resolver  *Resolver
	committer *Committer
	profile   *profile.Profile
	cfg       config.ApplyConfig
	logger    *zap.Logger
}

func NewController(page schemas.Page, prof *profile.Profile, gateway schemas.AnswerGateway, cfg config.ApplyConfig, logger *zap.Logger) *Controller {
	return &Controller{
		page:      page,
		inspector: NewInspector(page, cfg, logger),
		resolver:  NewResolver(prof, gateway, logger),
		committer: NewCommitter(page, cfg, logger),
		profile:   prof,
		cfg:       cfg,
		logger:    logger.Named("controller"),
	}
}

// Run executes the attempt state machine. It always returns a result with a
// terminal state; the step ceiling is the circuit breaker against dialogs
// whose structure is never recognized.
func (sc *Controller) Run(ctx context.Context) schemas.AttemptResult {
	result := schemas.AttemptResult{AttemptID: uuid.NewString()}
	processed := make(map[string]struct{})
	log := sc.logger.With(zap.String("attempt_id", result.AttemptID))

	for step := 1; step <= sc.cfg.MaxSteps; step++ {
		result.Steps = step
		log.Info("Processing application step", zap.Int("step", step))
		sc.page.Settle(ctx, sc.cfg.StepWait)

		if sc.isSubmitted(ctx) {
			sc.dismissConfirmation(ctx)
			result.State = schemas.StateSubmitted
			result.FieldsProcessed = len(processed)
			return result
		}

		sc.attachPendingUploads(ctx)

		fields := sc.enumerateFields(ctx)
		newFields := 0
		for _, field := range fields {
			if _, done := processed[field.Key()]; done {
				log.Debug("Skipping already processed field", zap.String("question", field.Question))
				continue
			}
			newFields++

			answer := sc.resolver.Resolve(ctx, field)
			if !sc.committer.Commit(ctx, field, answer) {
				log.Warn("Commit failed, field will not be retried",
					zap.String("question", field.Question))
			}
			// Recorded regardless of commit success: a field that fails on a
			// stable section must not stall the loop by being retried forever.
			processed[field.Key()] = struct{}{}
			sc.page.Settle(ctx, sc.cfg.StepWait/4)
		}
		log.Info("Step fields handled",
			zap.Int("found", len(fields)),
			zap.Int("new", newFields))

		switch sc.navigate(ctx) {
		case navSubmitted:
			sc.dismissConfirmation(ctx)
			result.State = schemas.StateSubmitted
			result.FieldsProcessed = len(processed)
			return result
		case navAdvanced:
			continue
		case navNone:
			if sc.isSubmitted(ctx) {
				sc.dismissConfirmation(ctx)
				result.State = schemas.StateSubmitted
				result.FieldsProcessed = len(processed)
				return result
			}
			if newFields == 0 {
				log.Warn("No new fields and no navigation control, dialog cannot be driven further")
				result.State = schemas.StateExhausted
				result.FieldsProcessed = len(processed)
				return result
			}
			// New fields were just committed but no control was recognized
			// yet. Another pass costs one step and may find the control once
			// the commits settle.
		}
	}

	log.Warn("Step ceiling reached", zap.Int("max_steps", sc.cfg.MaxSteps))
	result.State = schemas.StateStepLimit
	result.FieldsProcessed = len(processed)
	return result
}

// enumerateFields collects candidate sections across all container matchers,
// inspects each and drops sections without question text. Duplicates within
// one pass collapse onto the first occurrence.
func (sc *Controller) enumerateFields(ctx context.Context) []schemas.FieldDescriptor {
	seen := make(map[string]struct{})
	var fields []schemas.FieldDescriptor

	for _, selector := range sectionSelectors {
		sections, err := sc.page.QueryAll(ctx, selector)
		if err != nil {
			sc.logger.Debug("Section selector failed", zap.String("selector", selector), zap.Error(err))
			continue
		}
		for _, section := range sections {
			desc := sc.inspector.Inspect(ctx, section)
			if desc.Question == "" {
				continue
			}
			if _, dup := seen[desc.Key()]; dup {
				continue
			}
			seen[desc.Key()] = struct{}{}
			fields = append(fields, desc)
		}
	}
	return fields
}

// isSubmitted checks the page content for the portal's confirmation wording.
func (sc *Controller) isSubmitted(ctx context.Context) bool {
	content, err := sc.page.Content(ctx)
	if err != nil {
		sc.logger.Debug("Could not read page content", zap.Error(err))
		return false
	}
	lowered := strings.ToLower(content)
	for _, phrase := range successPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// dismissConfirmation best-effort closes the post-submission overlay so the
// next job starts from a clean page.
func (sc *Controller) dismissConfirmation(ctx context.Context) {
	for _, selector := range dismissSelectors {
		buttons, err := sc.page.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, button := range buttons {
			if visible, err := button.Visible(ctx); err != nil || !visible {
				continue
			}
			if err := button.Click(ctx); err == nil {
				return
			}
		}
	}
}

// attachPendingUploads handles attachment inputs opportunistically, outside
// field enumeration: upload controls often live in containers that carry no
// question text of their own.
func (sc *Controller) attachPendingUploads(ctx context.Context) {
	for _, selector := range fileUploadSelectors {
		inputs, err := sc.page.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, input := range inputs {
			html, err := input.OuterHTML(ctx)
			if err != nil {
				continue
			}
			lowered := strings.ToLower(html)

			var path string
			switch {
			case strings.Contains(lowered, "resume") || strings.Contains(lowered, "cv"):
				path = sc.profile.ResumePath
			case strings.Contains(lowered, "cover"):
				path = sc.profile.CoverLetterPath
			}
			if path == "" {
				continue
			}
			if err := input.SetFiles(ctx, path); err != nil {
				sc.logger.Warn("Could not attach document", zap.String("path", path), zap.Error(err))
				continue
			}
			sc.logger.Info("Attached document", zap.String("path", path))
		}
	}
}

// navigate probes for the step's primary action in priority order: Submit,
// then Review, then Next/Continue. Review immediately re-probes for a Submit
// control, because some dialogs reveal it only after the review pane opens.
func (sc *Controller) navigate(ctx context.Context) navOutcome {
	if sc.clickFirstButton(ctx, submitButtonSelectors, submitButtonTexts) {
		sc.logger.Info("Clicked submit control")
		sc.page.Settle(ctx, sc.cfg.StepWait)
		return navSubmitted
	}

	if sc.clickFirstButton(ctx, reviewButtonSelectors, reviewButtonTexts) {
		sc.logger.Info("Clicked review control, probing for submit")
		sc.page.Settle(ctx, sc.cfg.StepWait)
		if sc.clickFirstButton(ctx, submitButtonSelectors, submitButtonTexts) {
			sc.logger.Info("Clicked submit control after review")
			sc.page.Settle(ctx, sc.cfg.StepWait)
			return navSubmitted
		}
		return navAdvanced
	}

	if sc.clickFirstButton(ctx, nextButtonSelectors, nextButtonTexts) {
		sc.logger.Info("Clicked next control")
		return navAdvanced
	}

	return navNone
}

// clickFirstButton tries the tier's CSS probes, then its textual probes, and
// clicks the first visible enabled match.
func (sc *Controller) clickFirstButton(ctx context.Context, selectors, texts []string) bool {
	for _, selector := range selectors {
		buttons, err := sc.page.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		if sc.clickUsable(ctx, buttons) {
			return true
		}
	}
	for _, text := range texts {
		buttons, err := sc.page.ButtonsByText(ctx, text)
		if err != nil {
			continue
		}
		if sc.clickUsable(ctx, buttons) {
			return true
		}
	}
	return false
}

func (sc *Controller) clickUsable(ctx context.Context, buttons []schemas.Element) bool {
	for _, button := range buttons {
		visible, err := button.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		enabled, err := button.Enabled(ctx)
		if err != nil || !enabled {
			continue
		}
		if err := button.Click(ctx); err != nil {
			sc.logger.Debug("Button click failed, trying next candidate", zap.Error(err))
			continue
		}
		return true
	}
	return false
}
