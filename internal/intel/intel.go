// Package intel derives a structured business profile from the visible
// text of a website. Extraction is rule based: a bounded crawl feeds a
// text corpus, and vocabulary scoring plus pattern matching turn that
// corpus into a BusinessIntelligence value.
package intel

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
)

// Anchor vocabulary used to pick linked pages worth reading beyond the
// root page.
var importantAnchorTerms = []string{
	"about", "service", "product", "contact", "portfolio",
	"team", "menu", "pricing", "work", "story",
}

// Config bounds the crawl that feeds extraction.
type Config struct {
	// MaxLinkedPages caps how many same-host pages are fetched in
	// addition to the root page.
	MaxLinkedPages int
	// PageTextLimit caps the extracted text of a single page, in runes.
	PageTextLimit int
	// FetchTimeout bounds each page fetch.
	FetchTimeout time.Duration
}

// Extractor crawls a site and classifies the business behind it.
type Extractor struct {
	fetcher analysis.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New builds an Extractor. Zero config fields fall back to defaults.
func New(fetcher analysis.Fetcher, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.MaxLinkedPages <= 0 {
		cfg.MaxLinkedPages = 5
	}
	if cfg.PageTextLimit <= 0 {
		cfg.PageTextLimit = 10000
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	return &Extractor{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Analyze builds a business profile for the site at pageURL. It never
// fails: when nothing can be fetched it returns a generic profile
// derived from the hostname alone.
func (e *Extractor) Analyze(ctx context.Context, pageURL string) analysis.BusinessIntelligence {
	root, err := e.fetchDocument(ctx, pageURL)
	if err != nil {
		e.logger.Warn("business intel crawl failed, using hostname profile",
			zap.String("url", pageURL),
			zap.Error(err))
		return hostnameProfile(pageURL)
	}

	// Links live in nav menus, so scan anchors before documentText
	// strips that markup.
	links := e.importantLinks(root, pageURL)

	pages := []string{documentText(root, e.cfg.PageTextLimit)}
	for _, link := range links {
		doc, err := e.fetchDocument(ctx, link)
		if err != nil {
			e.logger.Debug("linked page skipped",
				zap.String("url", link),
				zap.Error(err))
			continue
		}
		pages = append(pages, documentText(doc, e.cfg.PageTextLimit))
	}

	return e.profileFromText(strings.Join(pages, "\n"))
}

func (e *Extractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	resp, err := e.fetcher.Fetch(fetchCtx, analysis.FetchRequest{URL: pageURL})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// importantLinks scans anchors on the root page for the important-page
// vocabulary and returns up to MaxLinkedPages same-host URLs.
func (e *Extractor) importantLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{base.String(): true}
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		anchor := strings.ToLower(strings.TrimSpace(s.Text()) + " " + href)
		if !containsImportantTerm(anchor) {
			return true
		}
		resolved := resolveSameHost(base, href)
		if resolved == "" || seen[resolved] {
			return true
		}
		seen[resolved] = true
		links = append(links, resolved)
		return len(links) < e.cfg.MaxLinkedPages
	})
	return links
}

func (e *Extractor) profileFromText(corpus string) analysis.BusinessIntelligence {
	class := classify(corpus)
	location := extractLocation(corpus)

	products := matchGazetteer(corpus, class.Products)
	services := mergeOfferings(matchGazetteer(corpus, class.Services), mineOfferings(corpus))

	return analysis.BusinessIntelligence{
		BusinessType: class.Type,
		Industry:     class.Industry,
		Location:     location,
		Products:     products,
		Services:     services,
		Keywords:     buildKeywords(class, location, services, products),
		Description:  buildDescription(class, location, services),
	}
}

func containsImportantTerm(anchor string) bool {
	for _, term := range importantAnchorTerms {
		if strings.Contains(anchor, term) {
			return true
		}
	}
	return false
}

// resolveSameHost resolves href against base and returns the absolute
// URL, or "" when the target leaves the host or is not plain HTTP(S).
func resolveSameHost(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// documentText flattens the page body to whitespace-normalized text
// capped at limit runes. Boilerplate markup is dropped first because it
// would skew vocabulary scoring.
func documentText(doc *goquery.Document, limit int) string {
	doc.Find("script, style, nav, footer").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if runes := []rune(text); len(runes) > limit {
		text = string(runes[:limit])
	}
	return text
}

// hostnameProfile is the total-crawl-failure fallback. Only the URL's
// hostname informs it.
func hostnameProfile(pageURL string) analysis.BusinessIntelligence {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	keywords := hostnameTokens(host)
	if len(keywords) == 0 {
		keywords = []string{"business"}
	}

	return analysis.BusinessIntelligence{
		BusinessType: "business",
		Industry:     "general",
		Location:     "",
		Products:     []string{},
		Services:     []string{},
		Keywords:     keywords,
		Description:  fmt.Sprintf("A business operating at %s.", host),
	}
}

// hostnameTokens splits a hostname into keyword candidates, dropping
// TLD-sized fragments.
func hostnameTokens(host string) []string {
	var tokens []string
	for _, part := range strings.FieldsFunc(host, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	}) {
		if len(part) <= 2 || part == "www" || part == "com" || part == "net" || part == "org" {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}
