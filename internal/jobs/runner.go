// File: internal/jobs/runner.go
package jobs

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
	"github.com/xkilldash9x/applypilot-cli/internal/form"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

// Runner drives the whole application run: sign in, search every configured
// position/location pair, and apply to each discovered job. One failed
// attempt never ends the run; its error is recorded and the loop moves on.
type Runner struct {
	portal   Portal
	profile  *profile.Profile
	gateway  schemas.AnswerGateway
	recorder *Recorder
	cfg      *config.Config
	logger   *zap.Logger

	auth     *Authenticator
	searcher *Searcher
	// sleep is injectable so tests skip the inter-job pacing delay.
	sleep func(time.Duration)
}

func NewRunner(portal Portal, prof *profile.Profile, gateway schemas.AnswerGateway, recorder *Recorder, cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		portal:   portal,
		profile:  prof,
		gateway:  gateway,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("runner"),
		auth:     NewAuthenticator(portal, cfg.Profile, logger),
		searcher: NewSearcher(portal, cfg.Search, logger),
		sleep:    time.Sleep,
	}
}

// Run executes the full search-and-apply loop. It returns an error only for
// failures that make the whole run pointless, like a failed login.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.auth.Login(ctx); err != nil {
		return err
	}

	for _, position := range r.cfg.Search.Positions {
		for _, location := range r.cfg.Search.Locations {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.runSearch(ctx, position, location)
		}
	}
	return nil
}

func (r *Runner) runSearch(ctx context.Context, position, location string) {
	cards, err := r.searcher.Discover(ctx, position, location)
	if err != nil {
		r.logger.Error("Search failed",
			zap.String("position", position),
			zap.String("location", location),
			zap.Error(err))
		return
	}

	for i, card := range cards {
		if ctx.Err() != nil {
			return
		}
		r.logger.Info("Processing job",
			zap.Int("index", i+1),
			zap.Int("total", len(cards)),
			zap.String("title", card.Job.Title),
			zap.String("company", card.Job.Company))

		r.processCard(ctx, card)

		// Randomized pacing between jobs; uniform bursts look like what they
		// are.
		r.sleep(time.Duration(2000+rand.Intn(2000)) * time.Millisecond)
	}
}

// processCard opens one posting and runs a single application attempt.
// Attempt isolation lives here: whatever goes wrong is logged and recorded,
// and the browser is left as-is for the next card.
func (r *Runner) processCard(ctx context.Context, card JobCard) {
	if r.searcher.ShouldSkip(card.Job.Title) {
		r.logger.Info("Skipping blacklisted title", zap.String("title", card.Job.Title))
		return
	}

	if err := card.Element.Click(ctx); err != nil {
		r.record(card.Job, schemas.AttemptResult{}, err)
		r.logger.Warn("Could not open job card", zap.Error(err))
		return
	}
	r.portal.Settle(ctx, r.cfg.Network.PostLoadWait)

	easyApply, found := r.searcher.FindEasyApply(ctx)
	if !found {
		r.logger.Info("No in-portal apply control, skipping", zap.String("title", card.Job.Title))
		return
	}
	if err := easyApply.Click(ctx); err != nil {
		r.record(card.Job, schemas.AttemptResult{}, err)
		r.logger.Warn("Could not open application dialog", zap.Error(err))
		return
	}

	controller := form.NewController(r.portal, r.profile, r.gateway, r.cfg.Apply, r.logger)
	result := controller.Run(ctx)

	r.logger.Info("Attempt finished",
		zap.String("state", string(result.State)),
		zap.Int("steps", result.Steps),
		zap.Int("fields", result.FieldsProcessed))
	r.record(card.Job, result, nil)
}

func (r *Runner) record(job schemas.Job, result schemas.AttemptResult, attemptErr error) {
	record := schemas.AttemptRecord{
		Job:       job,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
	if attemptErr != nil {
		record.Error = attemptErr.Error()
	}
	if err := r.recorder.Record(record); err != nil {
		r.logger.Warn("Could not persist attempt record", zap.Error(err))
	}
}
