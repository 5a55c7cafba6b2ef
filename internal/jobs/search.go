// File: internal/jobs/search.go
package jobs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Portal is the browser capability surface the job loop needs on top of the
// form engine's page interface: page loads, URL reads and list scrolling.
type Portal interface {
	schemas.Page
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	ScrollTo(ctx context.Context, bottom bool) error
}

const searchBaseURL = "https://www.linkedin.com/jobs/search/"

// Listing discovery selector lists, tried in order and deduplicated by the
// card's job id.
var jobCardSelectors = []string{
	"div.job-card-container",
	"li.jobs-search-results__list-item",
	"div.jobs-search-results__list-item",
	"div[data-job-id]",
	".job-card-list__entity-lockup",
}

var jobTitleSelectors = []string{
	"h3.job-card-list__title",
	"h3.base-search-card__title",
	".job-card-container__link",
	".job-card-list__title",
	"a.job-card-container__link.job-card-list__title",
}

var jobCompanySelectors = []string{
	"h4.job-card-container__company-name",
	"h4.base-search-card__subtitle",
	".job-card-container__company-name",
	".job-card-container__primary-description",
}

var jobLocationSelectors = []string{
	".job-card-container__metadata-item",
	".job-card-container__location",
	".job-card-container__secondary-description",
}

var easyApplySelectors = []string{
	"button.jobs-apply-button",
	"button[data-control-name='jobdetails_topcard_inapply']",
	".jobs-apply-button--top-card",
	".jobs-apply-button",
	"[aria-label='Easy Apply']",
	".jobs-unified-top-card__easy-apply-button",
}

// JobCard pairs a discovered posting with its list element, so the runner
// can activate it.
type JobCard struct {
	Job     schemas.Job
	Element schemas.Element
}

// BuildSearchURL assembles one search page URL for a position/location pair.
// The f_LF filter restricts results to in-portal applications; f_E narrows
// by experience level when configured.
func BuildSearchURL(position, location string, experienceLevels []int) string {
	query := url.Values{}
	query.Set("keywords", position)
	query.Set("location", location)
	query.Set("f_LF", "f_AL")
	if len(experienceLevels) > 0 {
		levels := make([]string, 0, len(experienceLevels))
		for _, level := range experienceLevels {
			levels = append(levels, strconv.Itoa(level))
		}
		query.Set("f_E", strings.Join(levels, ","))
	}
	return searchBaseURL + "?" + query.Encode()
}

// Searcher discovers job cards on the search result page.
type Searcher struct {
	portal Portal
	cfg    config.SearchConfig
	logger *zap.Logger
}

func NewSearcher(portal Portal, cfg config.SearchConfig, logger *zap.Logger) *Searcher {
	return &Searcher{
		portal: portal,
		cfg:    cfg,
		logger: logger.Named("search"),
	}
}

// Discover loads the search page for the pair, scrolls the listing to force
// lazy results to render and returns the unique cards, capped at the
// configured per-search limit.
func (s *Searcher) Discover(ctx context.Context, position, location string) ([]JobCard, error) {
	searchURL := BuildSearchURL(position, location, s.cfg.ExperienceLevels)
	s.logger.Info("Searching",
		zap.String("position", position),
		zap.String("location", location))

	if err := s.portal.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("loading search page: %w", err)
	}
	s.scrollListing(ctx)

	cards := s.collectCards(ctx)
	if limit := s.cfg.MaxJobsPerSearch; limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	s.logger.Info("Jobs discovered", zap.Int("count", len(cards)))
	return cards, nil
}

// scrollListing bounces the viewport a few times; the result list only
// materializes rows as they scroll into view.
func (s *Searcher) scrollListing(ctx context.Context) {
	for i := 0; i < 3; i++ {
		if err := s.portal.ScrollTo(ctx, true); err != nil {
			s.logger.Debug("Scroll failed", zap.Error(err))
			return
		}
		s.portal.Settle(ctx, 0)
		if err := s.portal.ScrollTo(ctx, false); err != nil {
			return
		}
	}
}

func (s *Searcher) collectCards(ctx context.Context) []JobCard {
	seen := make(map[string]struct{})
	var cards []JobCard

	for _, selector := range jobCardSelectors {
		elements, err := s.portal.QueryAll(ctx, selector)
		if err != nil {
			s.logger.Debug("Card selector failed", zap.String("selector", selector), zap.Error(err))
			continue
		}
		for _, element := range elements {
			job := s.jobDetails(ctx, element)
			key := job.ID
			if key == "" {
				key = job.Title + "|" + job.Company
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			cards = append(cards, JobCard{Job: job, Element: element})
		}
	}
	return cards
}

// jobDetails reads the card's title, company, location and id through the
// ordered selector lists. Missing pieces stay empty; a card with no details
// at all is still processable, just poorly labeled in the records.
func (s *Searcher) jobDetails(ctx context.Context, card schemas.Element) schemas.Job {
	var job schemas.Job
	job.Title = firstText(ctx, card, jobTitleSelectors)
	job.Company = firstText(ctx, card, jobCompanySelectors)
	job.Location = firstText(ctx, card, jobLocationSelectors)
	if id, ok, err := card.Attribute(ctx, "data-job-id"); err == nil && ok {
		job.ID = id
	}
	return job
}

// ShouldSkip reports whether the title matches one of the configured
// blacklist terms.
func (s *Searcher) ShouldSkip(title string) bool {
	if title == "" {
		return false
	}
	lowered := strings.ToLower(title)
	for _, term := range s.cfg.BlacklistTitles {
		if term != "" && strings.Contains(lowered, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// FindEasyApply probes the opened job detail pane for the in-portal apply
// control. Only buttons whose text actually says Easy Apply count; the same
// classes are reused for external-application buttons.
func (s *Searcher) FindEasyApply(ctx context.Context) (schemas.Element, bool) {
	for _, selector := range easyApplySelectors {
		buttons, err := s.portal.QueryAll(ctx, selector)
		if err != nil {
			continue
		}
		for _, button := range buttons {
			text, err := button.Text(ctx)
			if err != nil {
				continue
			}
			if strings.Contains(text, "Easy Apply") {
				return button, true
			}
		}
	}
	return nil, false
}

func firstText(ctx context.Context, root schemas.Element, selectors []string) string {
	for _, selector := range selectors {
		match, err := root.Query(ctx, selector)
		if err != nil {
			continue
		}
		if text, err := match.Text(ctx); err == nil && text != "" {
			return text
		}
	}
	return ""
}
