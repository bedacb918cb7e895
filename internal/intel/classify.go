package intel

import (
	"regexp"
	"strings"
)

// businessClass couples a business type label with the vocabulary that
// identifies it and the offerings typically associated with it.
type businessClass struct {
	Type     string
	Industry string
	Terms    []string
	Services []string
	Products []string
}

// defaultClass is returned when no vocabulary scores at all.
var defaultClass = businessClass{Type: "business", Industry: "general"}

// businessClasses is scanned in order; score ties go to the earlier
// entry, so the ordering is part of the classification contract.
var businessClasses = []businessClass{
	{
		Type:     "restaurant",
		Industry: "food and dining",
		Terms:    []string{"restaurant", "menu", "dining", "chef", "cuisine", "reservation", "catering", "brunch", "bistro", "takeout"},
		Services: []string{"catering", "takeout", "delivery", "private dining", "reservations"},
		Products: []string{"breakfast", "lunch", "dinner", "desserts", "cocktails", "wine"},
	},
	{
		Type:     "retail",
		Industry: "retail and ecommerce",
		Terms:    []string{"shop", "store", "cart", "checkout", "sale", "boutique", "apparel", "merchandise", "collection", "bestseller"},
		Services: []string{"shipping", "returns", "gift wrapping", "personal shopping"},
		Products: []string{"clothing", "shoes", "accessories", "jewelry", "furniture", "electronics"},
	},
	{
		Type:     "legal",
		Industry: "legal services",
		Terms:    []string{"law", "attorney", "lawyer", "legal", "litigation", "paralegal", "counsel", "court", "injury", "defense"},
		Services: []string{"consultation", "litigation", "estate planning", "family law", "personal injury", "criminal defense", "business law"},
	},
	{
		Type:     "healthcare",
		Industry: "healthcare",
		Terms:    []string{"clinic", "doctor", "medical", "patient", "dental", "health", "therapy", "treatment", "physician", "wellness"},
		Services: []string{"checkups", "urgent care", "physical therapy", "dental cleaning", "vaccinations", "telehealth"},
	},
	{
		Type:     "construction",
		Industry: "construction and contracting",
		Terms:    []string{"construction", "contractor", "remodeling", "renovation", "roofing", "plumbing", "builder", "carpentry", "hvac", "masonry"},
		Services: []string{"remodeling", "roofing", "plumbing", "electrical work", "kitchen renovation", "bathroom renovation", "flooring"},
	},
	{
		Type:     "salon",
		Industry: "beauty and personal care",
		Terms:    []string{"salon", "spa", "haircut", "stylist", "manicure", "barber", "beauty", "facial", "lashes", "waxing"},
		Services: []string{"haircuts", "coloring", "manicures", "pedicures", "facials", "massages", "waxing"},
		Products: []string{"hair products", "skincare"},
	},
	{
		Type:     "fitness",
		Industry: "fitness and recreation",
		Terms:    []string{"gym", "fitness", "workout", "training", "yoga", "pilates", "crossfit", "coach", "membership", "classes"},
		Services: []string{"personal training", "group classes", "yoga classes", "nutrition coaching", "memberships"},
		Products: []string{"supplements", "apparel"},
	},
	{
		Type:     "automotive",
		Industry: "automotive",
		Terms:    []string{"auto", "car", "vehicle", "repair", "tire", "mechanic", "dealership", "brake", "transmission", "detailing"},
		Services: []string{"oil changes", "brake repair", "tire rotation", "engine diagnostics", "detailing", "inspections"},
		Products: []string{"tires", "batteries", "parts"},
	},
	{
		Type:     "realestate",
		Industry: "real estate",
		Terms:    []string{"realty", "listing", "property", "homes", "mortgage", "realtor", "broker", "estate", "rent", "apartment"},
		Services: []string{"home buying", "home selling", "property management", "rentals", "appraisals"},
	},
	{
		Type:     "technology",
		Industry: "technology",
		Terms:    []string{"software", "app", "platform", "cloud", "api", "saas", "developer", "data", "digital", "engineering"},
		Services: []string{"software development", "web development", "cloud migration", "consulting", "managed services", "support"},
		Products: []string{"software", "mobile apps", "platforms"},
	},
	{
		Type:     "marketing",
		Industry: "marketing and advertising",
		Terms:    []string{"marketing", "branding", "seo", "advertising", "campaign", "agency", "social media", "content", "ppc", "leads"},
		Services: []string{"seo", "content marketing", "social media management", "email marketing", "ppc management", "branding"},
	},
	{
		Type:     "education",
		Industry: "education",
		Terms:    []string{"school", "course", "tutoring", "students", "learning", "academy", "curriculum", "teacher", "class", "enrollment"},
		Services: []string{"tutoring", "test prep", "online courses", "workshops", "certifications"},
		Products: []string{"courses", "textbooks"},
	},
	{
		Type:     "finance",
		Industry: "financial services",
		Terms:    []string{"accounting", "tax", "finance", "investment", "insurance", "bookkeeping", "loans", "wealth", "audit", "payroll"},
		Services: []string{"tax preparation", "bookkeeping", "financial planning", "payroll", "auditing", "investment management"},
	},
	{
		Type:     "photography",
		Industry: "photography",
		Terms:    []string{"photography", "photographer", "portrait", "wedding", "photoshoot", "studio", "prints", "headshot", "gallery", "videography"},
		Services: []string{"wedding photography", "portrait sessions", "event photography", "headshots", "photo editing"},
		Products: []string{"prints", "albums"},
	},
}

// termPatterns holds one case-insensitive word-boundary pattern per
// vocabulary and gazetteer term.
var termPatterns = compileTermPatterns()

func compileTermPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	add := func(terms []string) {
		for _, term := range terms {
			if _, ok := patterns[term]; ok {
				continue
			}
			patterns[term] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		}
	}
	for _, class := range businessClasses {
		add(class.Terms)
		add(class.Services)
		add(class.Products)
	}
	return patterns
}

// classify scores every vocabulary against the corpus and returns the
// winner; earlier declarations win ties, and a zero score everywhere
// yields the generic default.
func classify(corpus string) businessClass {
	best := defaultClass
	bestScore := 0
	for _, class := range businessClasses {
		score := 0
		for _, term := range class.Terms {
			score += len(termPatterns[term].FindAllStringIndex(corpus, -1))
		}
		if score > bestScore {
			best = class
			bestScore = score
		}
	}
	return best
}

// matchGazetteer returns the gazetteer terms present in the corpus,
// preserving gazetteer order.
func matchGazetteer(corpus string, terms []string) []string {
	matched := []string{}
	for _, term := range terms {
		if termPatterns[term].MatchString(corpus) {
			matched = append(matched, strings.ToLower(term))
		}
	}
	return matched
}
