// Package fetcher composes the plain and rendered page fetchers into
// one analysis.Fetcher.
package fetcher

import (
	"bytes"
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
)

// Promoting fetches with the plain fetcher first and refetches with the
// rendered one when the response looks like an empty script shell.
// Requests that set UseHeadless skip the probe and render directly.
type Promoting struct {
	plain     analysis.Fetcher
	rendered  analysis.Fetcher
	threshold int
	logger    *zap.Logger
}

// NewPromoting builds a Promoting fetcher. A non-positive threshold
// falls back to 2048 bytes.
func NewPromoting(plain, rendered analysis.Fetcher, threshold int, logger *zap.Logger) *Promoting {
	if threshold <= 0 {
		threshold = 2048
	}
	return &Promoting{
		plain:     plain,
		rendered:  rendered,
		threshold: threshold,
		logger:    logger,
	}
}

// Fetch implements analysis.Fetcher. A failed rendered refetch keeps
// the plain response rather than failing the request.
func (p *Promoting) Fetch(ctx context.Context, req analysis.FetchRequest) (analysis.FetchResponse, error) {
	if req.UseHeadless {
		return p.rendered.Fetch(ctx, req)
	}

	resp, err := p.plain.Fetch(ctx, req)
	if err != nil || !p.shouldPromote(resp) {
		return resp, err
	}

	rendered, renderErr := p.rendered.Fetch(ctx, req)
	if renderErr != nil {
		p.logger.Warn("rendered refetch failed, keeping plain response",
			zap.String("url", req.URL),
			zap.Error(renderErr))
		return resp, nil
	}
	return rendered, nil
}

var shellMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// shouldPromote flags successful responses that carry no readable
// content: empty bodies, short script-dominated pages, and documents
// with single-page-app mount points.
func (p *Promoting) shouldPromote(resp analysis.FetchResponse) bool {
	if resp.StatusCode != 200 {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < p.threshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range shellMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script tags cover at least a
// quarter of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	searchPos := 0

	for {
		relStart := strings.Index(lower[searchPos:], openTag)
		if relStart == -1 {
			break
		}
		start := searchPos + relStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed open tag; count the rest of the document.
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			// Script never closes; count the rest.
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}

		coverage += next - start
		searchPos = next
	}

	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
