package serp

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/provider"
)

// PresenceProvider checks which SERP features a business shows up in.
type PresenceProvider struct {
	client *Client
	logger *zap.Logger
}

// NewPresenceProvider builds a PresenceProvider on top of a Client.
func NewPresenceProvider(client *Client, logger *zap.Logger) *PresenceProvider {
	return &PresenceProvider{client: client, logger: logger}
}

// Check runs one query for the business and maps the result page's
// feature blocks onto presence flags.
func (p *PresenceProvider) Check(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[analysis.SERPPresence] {
	if !p.client.Configured() {
		return provider.Demo(demoPresence(domain), "search credential not configured")
	}

	result, err := p.client.Search(ctx, presenceQuery(domain, bi))
	if err != nil {
		p.logger.Warn("serp presence check failed",
			zap.String("domain", domain),
			zap.Error(err))
		return provider.Failed(fallbackPresence(), err)
	}

	presence := analysis.SERPPresence{
		LocalPack:       result.HasLocalPack,
		FeaturedSnippet: result.HasFeaturedSnippet,
		PeopleAlsoAsk:   result.HasPeopleAlsoAsk,
		ImageResults:    result.HasImageResults,
		NewsResults:     result.HasNews,
		VideoResults:    result.HasVideoResults,
		AdsPresent:      result.HasAds,
	}
	for _, hit := range result.Organic {
		if hit.Domain == domain {
			presence.Organic = analysis.OrganicPresence{Found: true, Position: hit.Position}
			break
		}
	}
	return provider.Real(presence)
}

// presenceQuery asks for the business by name, widened with the
// extracted location when one exists.
func presenceQuery(domain string, bi analysis.BusinessIntelligence) string {
	name := analysis.NameToken(domain)
	if name == "" {
		return domain
	}
	if bi.Location != "" {
		return name + " " + bi.Location
	}
	return name
}

func demoPresence(domain string) analysis.SERPPresence {
	seed := provider.NewDemoSeed(domain)
	presence := analysis.SERPPresence{
		LocalPack:       seed.Chance("presence.localpack", 40),
		FeaturedSnippet: seed.Chance("presence.snippet", 20),
		PeopleAlsoAsk:   seed.Chance("presence.paa", 60),
		ImageResults:    seed.Chance("presence.images", 50),
		NewsResults:     seed.Chance("presence.news", 15),
		VideoResults:    seed.Chance("presence.videos", 25),
		AdsPresent:      seed.Chance("presence.ads", 30),
	}
	if seed.Chance("presence.organic", 70) {
		presence.Organic = analysis.OrganicPresence{
			Found:    true,
			Position: seed.IntBetween("presence.position", 1, 10),
		}
	}
	return presence
}

func fallbackPresence() analysis.SERPPresence {
	return analysis.SERPPresence{
		Organic:       analysis.OrganicPresence{Found: true, Position: 8},
		PeopleAlsoAsk: true,
	}
}
