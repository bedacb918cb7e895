package provider

import (
	"hash/fnv"
	"math"
	"strings"
)

// DemoSeed derives stable pseudo-random values from a domain so that demo
// data is identical across runs for the same site.
type DemoSeed struct {
	base uint64
}

// NewDemoSeed hashes the domain into a seed.
func NewDemoSeed(domain string) DemoSeed {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(domain))))
	return DemoSeed{base: h.Sum64()}
}

func (s DemoSeed) value(salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(salt))
	return s.base ^ h.Sum64()
}

// IntBetween maps the seed and salt onto [low, high] inclusive.
func (s DemoSeed) IntBetween(salt string, low, high int) int {
	if high <= low {
		return low
	}
	span := uint64(high - low + 1)
	return low + int(s.value(salt)%span)
}

// FloatBetween maps the seed and salt onto [low, high] with two decimals.
func (s DemoSeed) FloatBetween(salt string, low, high float64) float64 {
	if high <= low {
		return low
	}
	frac := float64(s.value(salt)%10000) / 9999.0
	return math.Round((low+frac*(high-low))*100) / 100
}

// Chance is true for roughly pct percent of salts.
func (s DemoSeed) Chance(salt string, pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return int(s.value(salt)%100) < pct
}
