package analysis

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL marks input that cannot be analyzed. The HTTP layer maps
// it to a 400 response.
var ErrInvalidURL = errors.New("invalid url")

// NormalizeURL validates rawURL and returns a canonical absolute URL plus
// the bare domain used as the cache and job key. A missing scheme defaults
// to https, so "example.com" is accepted as-is. All failures wrap
// ErrInvalidURL.
func NormalizeURL(rawURL string) (string, string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	// Lowercase scheme and host
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", "", fmt.Errorf("%w: invalid host %q", ErrInvalidURL, u.Host)
	}

	// Remove default ports
	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// Remove fragment
	u.Fragment = ""

	// Sort query parameters
	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String(), Domain(u.Hostname()), nil
}

// Domain strips a leading www label so "www.example.com" and "example.com"
// share one cache entry.
func Domain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// NameToken is the first hostname label, used as the business's base
// term in search queries and competitor filtering.
func NameToken(domain string) string {
	token, _, _ := strings.Cut(Domain(domain), ".")
	return token
}
