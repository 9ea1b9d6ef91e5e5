// ABOUTME: This file runs the tiered extraction cascade for one claimed URL.
// ABOUTME: Stages escalate from plain fetch to browser rendering before giving up.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"news-harvester/config"
	"news-harvester/domain"
	"news-harvester/utils/html_parser"
)

type harvester struct {
	fetcher    PageFetcher
	browser    BrowserFetcher
	robots     RobotsPolicy
	extract    *config.ExtractConfig
	navTimeout time.Duration
	logger     *slog.Logger
}

// NewHarvester wires the extraction cascade. browser and robots may be nil,
// which skips the matching stages.
func NewHarvester(fetcher PageFetcher, browser BrowserFetcher, robots RobotsPolicy, cfg *config.Config, logger *slog.Logger) HarvesterService {
	return &harvester{
		fetcher:    fetcher,
		browser:    browser,
		robots:     robots,
		extract:    &cfg.Extract,
		navTimeout: cfg.Browser.NavTimeout,
		logger:     logger,
	}
}

// Process implements HarvesterService.
func (h *harvester) Process(ctx context.Context, record *domain.URLRecord) domain.Outcome {
	pageURL := record.NormalizedURL

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ClassifyFetchError(err)
	}

	if domain.IsNonProsePath(parsed.Path) {
		return domain.FailureOutcome(domain.StatusSkipped, domain.BlockNonProsePath, "")
	}

	if h.robots != nil && !h.robots.Allowed(ctx, pageURL) {
		return domain.FailureOutcome(domain.StatusSkipped, domain.BlockRobots, "disallowed by robots.txt")
	}

	result, err := h.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && result != nil {
			return ClassifyResponse(result)
		}

		return ClassifyFetchError(err)
	}

	return h.extractAndValidate(ctx, record, parsed.Host, result)
}

// extractAndValidate runs the extraction tiers over a fetched page and
// validates whatever candidate text survives.
func (h *harvester) extractAndValidate(ctx context.Context, record *domain.URLRecord, host string, result *FetchResult) domain.Outcome {
	pageURL := record.NormalizedURL

	sourceHTML := result.Body
	text := html_parser.ExtractPrimary(sourceHTML)
	extractor := domain.ExtractorPrimary

	var secondary *html_parser.SecondaryResult

	if h.belowStageFloor(text) {
		secondary = html_parser.ExtractSecondary(sourceHTML, pageURL)

		if !h.belowStageFloor(secondary.Text) {
			text = secondary.Text
			extractor = domain.ExtractorSecondary
		} else {
			rendered, outcome, ok := h.renderFallback(ctx, pageURL, host, result)
			if !ok {
				return outcome
			}

			sourceHTML = rendered
			text = html_parser.ExtractPrimary(rendered)
			extractor = domain.ExtractorBrowserPrimary

			if h.belowStageFloor(text) {
				return ClassifyThinContent(h.thinResult(result, rendered))
			}
		}
	}

	validated, err := ValidateText(text, h.extract.MinTextLength)
	if err != nil {
		return ClassifyThinContent(h.thinResult(result, sourceHTML))
	}

	meta := ExtractMetadata(sourceHTML)

	var secondaryDate *time.Time
	if secondary != nil {
		secondaryDate = secondary.PublishedAt
	}

	publishDate, dateSource, divergent := ResolvePublishDate(
		meta.JSONLDDate, meta.OGDate, secondaryDate, record.GDELTPublishDate, h.extract.MaxDateSkew)
	if divergent {
		h.logger.Warn("publish date diverges from upstream",
			"url", pageURL,
			"extracted", publishDate,
			"upstream", record.GDELTPublishDate,
			"date_source", dateSource)
	}

	title := meta.Title
	if title == "" && secondary != nil {
		title = secondary.Title
	}

	authors := domain.JoinAuthors(meta.Authors)
	if authors == "" && secondary != nil {
		authors = secondary.Byline
	}

	article := &domain.ArticleRecord{
		URL:               pageURL,
		Source:            record.Source,
		Title:             title,
		Authors:           authors,
		PublishDate:       publishDate,
		PublishDateSource: dateSource,
		FullText:          validated.Text,
		WordCount:         validated.WordCount,
		Extractor:         extractor,
		ContentHash:       validated.Hash,
		FetchedAt:         time.Now().UTC(),
	}

	h.logger.Debug("article extracted",
		"url", pageURL,
		"extractor", extractor,
		"word_count", validated.WordCount,
		"date_source", dateSource)

	outcome := domain.SuccessOutcome(article)
	outcome.DateDivergent = divergent

	return outcome
}

// renderFallback escalates to the browser pool for configured paywall
// domains. When the stage cannot run or fails, ok is false and outcome
// carries the settled classification.
func (h *harvester) renderFallback(ctx context.Context, pageURL, host string, result *FetchResult) (string, domain.Outcome, bool) {
	if h.browser == nil || !h.extract.IsPaywallDomain(domain.PublisherDomain(host)) {
		return "", ClassifyThinContent(result), false
	}

	rendered, err := h.browser.Fetch(ctx, pageURL, h.navTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveProxy) {
			return "", domain.FailureOutcome(domain.StatusSkipped, domain.BlockNoProxy, err.Error()), false
		}

		h.logger.Warn("browser fallback failed", "url", pageURL, "error", err)

		return "", ClassifyThinContent(result), false
	}

	return rendered, domain.Outcome{}, true
}

func (h *harvester) belowStageFloor(text string) bool {
	return utf8.RuneCountInString(text) < h.extract.StageMinTextLength
}

// thinResult swaps in the HTML that was last extracted from, so marker
// scanning sees the rendered body when the browser stage ran.
func (h *harvester) thinResult(result *FetchResult, body string) *FetchResult {
	thin := *result
	thin.Body = body

	return &thin
}
