// Package serp queries search engine result pages through external
// APIs and exposes a provider-neutral projection shared by the
// competitor, keyword and presence providers.
package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
)

// sufficientDomains is the point at which a result is good enough that
// lower-priority backends are not consulted.
const sufficientDomains = 3

// ErrNotConfigured is returned by Search when no backend has a credential.
var ErrNotConfigured = errors.New("no search backend configured")

// Config wires the primary (serpapi dialect) and fallback (brave
// dialect) search backends. An empty key disables that backend.
type Config struct {
	APIKey          string
	BaseURL         string
	FallbackAPIKey  string
	FallbackBaseURL string
	Timeout         time.Duration
}

// OrganicHit is one organic search result.
type OrganicHit struct {
	Position int
	Title    string
	Link     string
	Domain   string
}

// Result is the slice of a search results page the analysis consumes.
type Result struct {
	Query              string
	Organic            []OrganicHit
	RelatedSearches    []string
	HasAds             bool
	HasNews            bool
	HasLocalPack       bool
	HasFeaturedSnippet bool
	HasPeopleAlsoAsk   bool
	HasImageResults    bool
	HasVideoResults    bool
}

// Client queries the configured search backends in priority order.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether at least one backend has a credential.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" || c.cfg.FallbackAPIKey != ""
}

// Search runs one query. Backends are consulted in priority order; one
// that fails or yields too few distinct domains falls through to the
// next. A thin result still beats an error.
func (c *Client) Search(ctx context.Context, query string) (Result, error) {
	var (
		thin     Result
		haveThin bool
		lastErr  error
	)
	for _, b := range c.backends() {
		result, err := b.search(ctx, query)
		if err != nil {
			c.logger.Warn("search backend failed",
				zap.String("backend", b.name),
				zap.String("query", query),
				zap.Error(err))
			lastErr = err
			continue
		}
		if distinctDomains(result.Organic) >= sufficientDomains {
			return result, nil
		}
		if !haveThin {
			thin, haveThin = result, true
		}
	}
	if haveThin {
		return thin, nil
	}
	if lastErr == nil {
		lastErr = ErrNotConfigured
	}
	return Result{}, lastErr
}

type backend struct {
	name   string
	search func(ctx context.Context, query string) (Result, error)
}

func (c *Client) backends() []backend {
	var list []backend
	if c.cfg.APIKey != "" {
		list = append(list, backend{name: "serpapi", search: c.searchPrimary})
	}
	if c.cfg.FallbackAPIKey != "" {
		list = append(list, backend{name: "brave", search: c.searchFallback})
	}
	return list
}

// searchPrimary speaks the serpapi JSON dialect.
func (c *Client) searchPrimary(ctx context.Context, query string) (Result, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse serp base url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.cfg.APIKey)
	params.Set("q", query)
	params.Set("num", "10")
	endpoint.RawQuery = params.Encode()

	var payload struct {
		OrganicResults []struct {
			Position int    `json:"position"`
			Title    string `json:"title"`
			Link     string `json:"link"`
		} `json:"organic_results"`
		RelatedSearches []struct {
			Query string `json:"query"`
		} `json:"related_searches"`
		Ads              []json.RawMessage `json:"ads"`
		NewsResults      []json.RawMessage `json:"news_results"`
		RelatedQuestions []json.RawMessage `json:"related_questions"`
		InlineImages     []json.RawMessage `json:"inline_images"`
		InlineVideos     []json.RawMessage `json:"inline_videos"`
		LocalResults     json.RawMessage   `json:"local_results"`
		AnswerBox        json.RawMessage   `json:"answer_box"`
	}
	if err := c.getJSON(ctx, endpoint.String(), nil, &payload); err != nil {
		return Result{}, err
	}

	result := Result{
		Query:              query,
		HasAds:             len(payload.Ads) > 0,
		HasNews:            len(payload.NewsResults) > 0,
		HasPeopleAlsoAsk:   len(payload.RelatedQuestions) > 0,
		HasImageResults:    len(payload.InlineImages) > 0,
		HasVideoResults:    len(payload.InlineVideos) > 0,
		HasLocalPack:       rawPresent(payload.LocalResults),
		HasFeaturedSnippet: rawPresent(payload.AnswerBox),
	}
	for i, hit := range payload.OrganicResults {
		position := hit.Position
		if position == 0 {
			position = i + 1
		}
		result.Organic = append(result.Organic, OrganicHit{
			Position: position,
			Title:    hit.Title,
			Link:     hit.Link,
			Domain:   linkDomain(hit.Link),
		})
	}
	for _, related := range payload.RelatedSearches {
		if related.Query != "" {
			result.RelatedSearches = append(result.RelatedSearches, related.Query)
		}
	}
	return result, nil
}

// searchFallback speaks the brave web search dialect.
func (c *Client) searchFallback(ctx context.Context, query string) (Result, error) {
	endpoint, err := url.Parse(c.cfg.FallbackBaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse serp fallback url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "10")
	endpoint.RawQuery = params.Encode()

	headers := http.Header{}
	headers.Set("X-Subscription-Token", c.cfg.FallbackAPIKey)
	headers.Set("Accept", "application/json")

	var payload struct {
		Web struct {
			Results []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"results"`
		} `json:"web"`
		News struct {
			Results []json.RawMessage `json:"results"`
		} `json:"news"`
		Videos struct {
			Results []json.RawMessage `json:"results"`
		} `json:"videos"`
		Locations struct {
			Results []json.RawMessage `json:"results"`
		} `json:"locations"`
		Infobox json.RawMessage `json:"infobox"`
	}
	if err := c.getJSON(ctx, endpoint.String(), headers, &payload); err != nil {
		return Result{}, err
	}

	result := Result{
		Query:              query,
		HasNews:            len(payload.News.Results) > 0,
		HasVideoResults:    len(payload.Videos.Results) > 0,
		HasLocalPack:       len(payload.Locations.Results) > 0,
		HasFeaturedSnippet: rawPresent(payload.Infobox),
	}
	for i, hit := range payload.Web.Results {
		result.Organic = append(result.Organic, OrganicHit{
			Position: i + 1,
			Title:    hit.Title,
			Link:     hit.URL,
			Domain:   linkDomain(hit.URL),
		})
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, headers http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search API returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func rawPresent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "{}" && trimmed != "[]"
}

// linkDomain extracts the bare domain from a result link.
func linkDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return analysis.Domain(u.Hostname())
}

func distinctDomains(hits []OrganicHit) int {
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if hit.Domain != "" {
			seen[hit.Domain] = true
		}
	}
	return len(seen)
}
