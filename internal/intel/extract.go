package intel

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// "123 Main Street, Austin, TX 78701" and shorter prefixes of it.
	streetAddressPattern = regexp.MustCompile(
		`\b\d{1,5}\s+(?:[A-Z][A-Za-z]*\.?\s+){1,3}` +
			`(?:Street|St|Avenue|Ave|Boulevard|Blvd|Road|Rd|Drive|Dr|Lane|Ln|Court|Ct|Place|Pl|Way)\b\.?` +
			`(?:,\s*(?:Suite|Ste|Unit)\s*\w+)?` +
			`(?:,\s*[A-Z][A-Za-z]+(?:\s[A-Z][A-Za-z]+)?)?` +
			`(?:,\s*[A-Z]{2})?(?:\s+\d{5}(?:-\d{4})?)?`)

	// "Austin, TX" with an optional zip.
	cityStatePattern = regexp.MustCompile(
		`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)?,\s*[A-Z]{2}\b(?:\s+\d{5}(?:-\d{4})?)?`)

	// "based in Austin", "serving the Dallas, TX" and similar phrasings.
	locationPhrasePattern = regexp.MustCompile(
		`\b(?i:located in|based in|proudly serving|serving)\s+(?:(?i:the)\s+)?` +
			`([A-Z][A-Za-z]+(?:[-\s][A-Z][A-Za-z]+){0,3}(?:,\s*[A-Z]{2})?)`)

	// "we offer X", "our services include X" with the clause captured up
	// to the end of the sentence.
	offeringPhrasePattern = regexp.MustCompile(
		`(?i)\b(?:we offer|we provide|our services include|we specialize in|specializing in)\s+([^.!?\n]{3,200})`)
)

// regionGazetteer lists recognizable US regions; metros come before
// states so the more specific entry wins.
var regionGazetteer = []string{
	"New York City", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "Austin",
	"San Jose", "Jacksonville", "San Francisco", "Columbus", "Charlotte",
	"Indianapolis", "Seattle", "Denver", "Boston", "Portland",
	"Las Vegas", "Nashville", "Miami", "Atlanta", "Minneapolis",
	"Tampa", "Orlando", "Sacramento", "Kansas City", "Detroit",

	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}

var regionPatterns = compileRegionPatterns()

func compileRegionPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(regionGazetteer))
	for i, region := range regionGazetteer {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(region) + `\b`)
	}
	return patterns
}

// extractLocation applies the location layers in priority order: street
// addresses, then known regions, then "based in" style phrases. The
// first hit wins; no hit returns "".
func extractLocation(corpus string) string {
	if m := streetAddressPattern.FindString(corpus); m != "" {
		return strings.TrimRight(strings.TrimSpace(m), " .,;")
	}
	if m := cityStatePattern.FindString(corpus); m != "" {
		return strings.TrimSpace(m)
	}
	for i, pattern := range regionPatterns {
		if pattern.MatchString(corpus) {
			return regionGazetteer[i]
		}
	}
	if m := locationPhrasePattern.FindStringSubmatch(corpus); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// mineOfferings pulls offerings out of "we offer/we provide" sentences.
func mineOfferings(corpus string) []string {
	var offerings []string
	for _, match := range offeringPhrasePattern.FindAllStringSubmatch(corpus, -1) {
		offerings = append(offerings, splitOfferingClause(match[1])...)
	}
	return offerings
}

// splitOfferingClause breaks "catering, takeout and private dining"
// into individual offerings.
func splitOfferingClause(clause string) []string {
	clause = strings.ReplaceAll(clause, " and ", ",")
	clause = strings.ReplaceAll(clause, " & ", ",")

	var parts []string
	for _, part := range strings.Split(clause, ",") {
		part = strings.ToLower(strings.TrimSpace(strings.Trim(part, ".,;:")))
		if len(part) >= 3 && len(part) <= 60 {
			parts = append(parts, part)
		}
	}
	return parts
}

// mergeOfferings appends mined offerings to the gazetteer hits without
// duplicates, capped at 8 entries.
func mergeOfferings(base, mined []string) []string {
	const maxOfferings = 8

	merged := append([]string{}, base...)
	seen := make(map[string]bool, len(base))
	for _, offering := range base {
		seen[offering] = true
	}
	for _, offering := range mined {
		if seen[offering] || len(merged) >= maxOfferings {
			continue
		}
		seen[offering] = true
		merged = append(merged, offering)
	}
	if len(merged) > maxOfferings {
		merged = merged[:maxOfferings]
	}
	return merged
}

// buildKeywords combines type, industry, location and offerings into a
// ranked keyword list: deduplicated, length filtered, capped at 15.
func buildKeywords(class businessClass, location string, services, products []string) []string {
	candidates := make([]string, 0, 4+len(services)+len(products))
	candidates = append(candidates, class.Type)
	if location != "" {
		candidates = append(candidates, class.Type+" "+strings.ToLower(location))
		candidates = append(candidates, class.Type+" near me")
	}
	candidates = append(candidates, strings.ToLower(class.Industry))
	candidates = append(candidates, services...)
	candidates = append(candidates, products...)

	const (
		maxKeywords = 15
		minLen      = 3
		maxLen      = 50
	)
	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]bool, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		key := strings.ToLower(candidate)
		if len(candidate) < minLen || len(candidate) > maxLen || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, candidate)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// buildDescription renders the one-line profile summary.
func buildDescription(class businessClass, location string, services []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s business", strings.ToLower(class.Industry))
	if location != "" {
		b.WriteString(" based in " + location)
	}
	if len(services) > 0 {
		b.WriteString(" offering " + humanList(services[:min(3, len(services))]))
	}
	b.WriteString(".")
	return b.String()
}

// humanList joins items as "a", "a and b" or "a, b and c".
func humanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
