// ABOUTME: This file tests the extraction cascade end to end with mocked stages.
// ABOUTME: Covers tier escalation, browser fallback gating and outcome mapping.
package service_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"news-harvester/config"
	"news-harvester/domain"
	"news-harvester/service"
	"news-harvester/test/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	paraOne   = "The central bank held its benchmark rate steady on Wednesday as officials weighed fresh inflation figures against early signs of a cooling labor market across most districts."
	paraTwo   = "Policymakers signaled that two cuts remain on the table for later this year, though several members cautioned that services prices have proved stickier than forecast models assumed."
	paraThree = "Markets moved little on the announcement, with traders noting the statement language matched expectations set during testimony before lawmakers earlier this month."
)

// newsHead carries the structured metadata block used by the success cases.
const newsHead = `<script type="application/ld+json">{"@type":"NewsArticle","headline":"Rates Hold Steady","datePublished":"2025-03-10T12:00:00Z","author":{"@type":"Person","name":"Jane Smith"}}</script>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func harvestConfig() *config.Config {
	return &config.Config{
		Extract: config.ExtractConfig{
			MinTextLength:      300,
			StageMinTextLength: 150,
			PaywallDomains:     []string{"wsj.com"},
			MaxDateSkew:        168 * time.Hour,
		},
		Browser: config.BrowserConfig{NavTimeout: 30 * time.Second},
	}
}

func claimedRecord(rawURL, source string) *domain.URLRecord {
	return &domain.URLRecord{
		NormalizedURL: rawURL,
		OriginalURL:   rawURL,
		Source:        source,
		Status:        domain.StatusProcessing,
	}
}

func okResult(url, body string) *service.FetchResult {
	return &service.FetchResult{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       body,
		FinalURL:   url,
	}
}

// articlePage builds a page whose body rides in a __NEXT_DATA__ blob, which
// keeps the primary extractor's output exact.
func articlePage(head string) string {
	body := fmt.Sprintf("<p>%s</p><p>%s</p><p>%s</p>", paraOne, paraTwo, paraThree)
	blob := fmt.Sprintf(`{"props":{"pageProps":{"article":{"title":"Rates Hold Steady","bodyHtml":%q}}}}`, body)

	return `<html><head>` + head + `</head><body><script id="__NEXT_DATA__" type="application/json">` +
		blob + `</script></body></html>`
}

// appShellPage yields almost nothing to any extractor tier.
func appShellPage() string {
	blob := `{"props":{"pageProps":{"article":{"bodyHtml":"<p>App shell placeholder loading.</p>"}}}}`

	return `<html><head></head><body><script id="__NEXT_DATA__" type="application/json">` +
		blob + `</script></body></html>`
}

// recallOnlyPage defeats the primary extractor but leaves real paragraphs
// for the recall tier.
func recallOnlyPage() string {
	blob := `{"props":{"pageProps":{"article":{"bodyHtml":"<p>App shell placeholder loading.</p>"}}}}`

	return `<html><head></head><body><script id="__NEXT_DATA__" type="application/json">` + blob +
		`</script><article><p>` + paraOne + `</p><p>` + paraTwo + `</p><p>` + paraThree +
		`</p></article></body></html>`
}

func softWallPage() string {
	blob := `{"props":{"pageProps":{"article":{"bodyHtml":"<p>App shell placeholder loading.</p>"}}}}`

	return `<html><head></head><body><script id="__NEXT_DATA__" type="application/json">` + blob +
		`</script><p>Subscribe to continue reading this story.</p></body></html>`
}

func TestProcessPrimarySuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/rates-hold", "apnews")
	upstream := time.Date(2025, time.March, 9, 18, 0, 0, 0, time.UTC)
	record.GDELTPublishDate = &upstream

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, articlePage(newsHead)), nil)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	require.NotNil(t, outcome.Article)
	assert.Equal(t, record.NormalizedURL, outcome.Article.URL)
	assert.Equal(t, "apnews", outcome.Article.Source)
	assert.Equal(t, domain.ExtractorPrimary, outcome.Article.Extractor)
	assert.Equal(t, "Rates Hold Steady", outcome.Article.Title)
	assert.Equal(t, "Jane Smith", outcome.Article.Authors)
	assert.Equal(t, domain.DateSourceJSONLD, outcome.Article.PublishDateSource)
	require.NotNil(t, outcome.Article.PublishDate)
	assert.Equal(t, time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC), *outcome.Article.PublishDate)
	assert.False(t, outcome.DateDivergent)
	assert.Contains(t, outcome.Article.FullText, "benchmark rate steady")
	assert.Greater(t, outcome.Article.WordCount, 50)
	assert.Len(t, outcome.Article.ContentHash, 64)
	assert.False(t, outcome.Article.FetchedAt.IsZero())
}

func TestProcessFlagsDateDivergence(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/rates-hold", "apnews")
	upstream := time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)
	record.GDELTPublishDate = &upstream

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, articlePage(newsHead)), nil)

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.True(t, outcome.DateDivergent)
	assert.Equal(t, domain.DateSourceJSONLD, outcome.Article.PublishDateSource)
}

func TestProcessFallsBackToUpstreamDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/committee-vote", "apnews")
	upstream := time.Date(2025, time.March, 9, 18, 0, 0, 0, time.UTC)
	record.GDELTPublishDate = &upstream

	plainText := strings.Repeat("The committee voted nine to two in favor of holding rates steady through the summer. ", 5)
	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, plainText), nil)

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Equal(t, domain.DateSourceUpstream, outcome.Article.PublishDateSource)
	require.NotNil(t, outcome.Article.PublishDate)
	assert.Equal(t, upstream, *outcome.Article.PublishDate)
	assert.False(t, outcome.DateDivergent)
}

func TestProcessSecondaryExtractorFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/recall-tier", "apnews")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, recallOnlyPage()), nil)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Equal(t, domain.ExtractorSecondary, outcome.Article.Extractor)
	assert.Contains(t, outcome.Article.FullText, "benchmark rate steady")
}

func TestProcessBrowserFallbackOnPaywallDomain(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://www.wsj.com/articles/rates-hold", "wsj")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, appShellPage()), nil)
	browser.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL, 30*time.Second).
		Return(articlePage(""), nil)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	require.Equal(t, domain.StatusSuccess, outcome.Status)
	assert.Equal(t, domain.ExtractorBrowserPrimary, outcome.Article.Extractor)
	assert.Contains(t, outcome.Article.FullText, "benchmark rate steady")
}

func TestProcessBrowserStillThinClassifiesSoftPaywall(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://www.wsj.com/articles/walled", "wsj")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, appShellPage()), nil)
	browser.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL, 30*time.Second).
		Return(softWallPage(), nil)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusPaywallSuspected, outcome.Status)
	assert.Equal(t, domain.BlockSoftPaywall, outcome.BlockReason)
	assert.Nil(t, outcome.Article)
}

func TestProcessThinPageOffPaywallDomainSkipsBrowser(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/app-shell", "apnews")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, appShellPage()), nil)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusErrorParse, outcome.Status)
	assert.Equal(t, domain.BlockJSRequired, outcome.BlockReason)
}

func TestProcessSkipsWhenNoProxyAvailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://www.wsj.com/articles/rates-hold", "wsj")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, appShellPage()), nil)
	browser.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL, 30*time.Second).
		Return("", domain.ErrNoActiveProxy)

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.BlockNoProxy, outcome.BlockReason)
}

func TestProcessBrowserFailureFallsBackToThinClassification(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	browser := mocks.NewMockBrowserFetcher(ctrl)

	record := claimedRecord("https://www.wsj.com/articles/rates-hold", "wsj")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, appShellPage()), nil)
	browser.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL, 30*time.Second).
		Return("", errors.New("renderer: navigation timeout"))

	h := service.NewHarvester(fetcher, browser, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusErrorParse, outcome.Status)
	assert.Equal(t, domain.BlockJSRequired, outcome.BlockReason)
}

func TestProcessValidationFloor(t *testing.T) {
	midLength := strings.Repeat("The hearing continued into the evening without a final vote. ", 4)
	walled := "Subscribe to continue reading this exclusive analysis. " +
		strings.Repeat("Market coverage continues for subscribers after the break. ", 3)

	tests := map[string]struct {
		body       string
		wantStatus domain.Status
		wantReason string
	}{
		"between stage floor and final floor": {
			body:       midLength,
			wantStatus: domain.StatusErrorParse,
			wantReason: domain.BlockJSRequired,
		},
		"short text with wall markers": {
			body:       walled,
			wantStatus: domain.StatusPaywallSuspected,
			wantReason: domain.BlockSoftPaywall,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := mocks.NewMockPageFetcher(ctrl)

			record := claimedRecord("https://apnews.com/article/thin", "apnews")
			fetcher.EXPECT().
				Fetch(gomock.Any(), record.NormalizedURL).
				Return(okResult(record.NormalizedURL, tc.body), nil)

			h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

			outcome := h.Process(t.Context(), record)

			assert.Equal(t, tc.wantStatus, outcome.Status)
			assert.Equal(t, tc.wantReason, outcome.BlockReason)
		})
	}
}

func TestProcessClassifiesPaywallResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://www.wsj.com/articles/a1", "wsj")
	result := &service.FetchResult{
		StatusCode: http.StatusForbidden,
		Header:     http.Header{},
		Body:       "<html>nothing</html>",
		FinalURL:   "https://www.wsj.com/login?target=%2Farticles%2Fa1",
	}

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(result, &service.HTTPError{StatusCode: http.StatusForbidden, Message: "Forbidden"})

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusPaywallSuspected, outcome.Status)
	assert.Equal(t, domain.BlockPaywall, outcome.BlockReason)
}

func TestProcessClassifiesDeadURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/removed", "apnews")
	result := okResult(record.NormalizedURL, "not found")
	result.StatusCode = http.StatusNotFound

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(result, &service.HTTPError{StatusCode: http.StatusNotFound, Message: "Not Found"})

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusDead, outcome.Status)
	assert.Equal(t, domain.BlockDeleted, outcome.BlockReason)
}

func TestProcessClassifiesTransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://apnews.com/article/unreachable", "apnews")

	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(nil, errors.New("dial tcp 203.0.113.9:443: connect: connection refused"))

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusErrorNetwork, outcome.Status)
	assert.Equal(t, domain.BlockTransport, outcome.BlockReason)
	assert.Contains(t, outcome.ErrorMessage, "connection refused")
}

func TestProcessSkipsNonProsePathsWithoutFetching(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("https://apnews.com/video/watch-the-briefing", "apnews")

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.BlockNonProsePath, outcome.BlockReason)
}

func TestProcessHonorsRobotsDisallow(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	robots := mocks.NewMockRobotsPolicy(ctrl)

	record := claimedRecord("https://apnews.com/article/a1", "apnews")

	robots.EXPECT().Allowed(gomock.Any(), record.NormalizedURL).Return(false)

	h := service.NewHarvester(fetcher, nil, robots, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusSkipped, outcome.Status)
	assert.Equal(t, domain.BlockRobots, outcome.BlockReason)
	assert.Equal(t, "disallowed by robots.txt", outcome.ErrorMessage)
}

func TestProcessProceedsWhenRobotsAllows(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)
	robots := mocks.NewMockRobotsPolicy(ctrl)

	record := claimedRecord("https://apnews.com/article/a1", "apnews")
	plainText := strings.Repeat("The committee voted nine to two in favor of holding rates steady through the summer. ", 5)

	robots.EXPECT().Allowed(gomock.Any(), record.NormalizedURL).Return(true)
	fetcher.EXPECT().
		Fetch(gomock.Any(), record.NormalizedURL).
		Return(okResult(record.NormalizedURL, plainText), nil)

	h := service.NewHarvester(fetcher, nil, robots, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusSuccess, outcome.Status)
}

func TestProcessRejectsUnparsableURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockPageFetcher(ctrl)

	record := claimedRecord("http://[::1]:namedport/article", "apnews")

	h := service.NewHarvester(fetcher, nil, nil, harvestConfig(), testLogger())

	outcome := h.Process(t.Context(), record)

	assert.Equal(t, domain.StatusErrorNetwork, outcome.Status)
	assert.Equal(t, domain.BlockTransport, outcome.BlockReason)
}
