// Package tier maps abstract capability tiers (fast/balanced/quality) to
// concrete model identifiers. Resolution happens at call time against the
// current catalog snapshot, so a user's "quality" choice tracks the
// provider's newest flagship without a code change; static defaults keep the
// feature working offline or before the first successful catalog fetch.
package tier

import (
	"regexp"
	"strconv"
	"strings"
)

// Tier is an abstract, user-facing capability level.
type Tier string

const (
	Fast     Tier = "fast"
	Balanced Tier = "balanced"
	Quality  Tier = "quality"
)

// Provider identifiers. These are the only two vendors Perch talks to.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Parse normalizes a user-supplied tier string. Unknown values fall back to
// Balanced so resolution never fails.
func Parse(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Fast:
		return Fast
	case Balanced:
		return Balanced
	case Quality:
		return Quality
	default:
		return Balanced
	}
}

// Tiers lists all tiers in ascending capability order.
func Tiers() []Tier {
	return []Tier{Fast, Balanced, Quality}
}

// rule is the static configuration for one (provider, tier) pair: substring
// patterns a catalog entry must match, substrings it must not contain, and
// the fallback identifier used when the catalog yields no candidate.
type rule struct {
	patterns []string
	exclude  []string
	fallback string
}

var rules = map[string]map[Tier]rule{
	ProviderClaude: {
		Fast:     {patterns: []string{"haiku"}, fallback: "claude-3-5-haiku-20241022"},
		Balanced: {patterns: []string{"sonnet"}, fallback: "claude-sonnet-4-20250514"},
		Quality:  {patterns: []string{"opus"}, fallback: "claude-opus-4-20250514"},
	},
	ProviderOpenAI: {
		Fast: {
			patterns: []string{"mini", "nano"},
			exclude:  []string{"audio", "realtime"},
			fallback: "gpt-4o-mini",
		},
		Balanced: {
			patterns: []string{"gpt-4o", "gpt-4.1", "gpt-5"},
			exclude:  []string{"mini", "nano", "audio", "realtime", "preview"},
			fallback: "gpt-4o",
		},
		Quality: {
			patterns: []string{"gpt-5", "o3", "o1", "gpt-4.1"},
			exclude:  []string{"mini", "nano", "audio", "realtime", "preview"},
			fallback: "o3",
		},
	},
}

// Default returns the static fallback model for a (provider, tier) pair.
func Default(provider string, t Tier) string {
	return rules[provider][Parse(string(t))].fallback
}

// Resolve maps (provider, tier) to a concrete model identifier. It filters
// the catalog snapshot by the tier's patterns, ranks the survivors with the
// provider's scorer, and falls back to the static default when the catalog
// is empty or no entry fits the tier. Resolve is a pure function of its
// inputs. An unknown provider yields the empty string; callers validate the
// provider name first.
func Resolve(provider string, t Tier, catalog []string) string {
	byTier, ok := rules[provider]
	if !ok {
		return ""
	}
	r := byTier[Parse(string(t))]

	var candidates []string
	for _, id := range catalog {
		if matches(id, r) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return r.fallback
	}

	score := scorers[provider]
	best := candidates[0]
	bestScore := score(best)
	for _, id := range candidates[1:] {
		s := score(id)
		if s > bestScore || (s == bestScore && id < best) {
			best, bestScore = id, s
		}
	}
	return best
}

func matches(id string, r rule) bool {
	lower := strings.ToLower(id)
	for _, ex := range r.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	for _, p := range r.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// scoreFunc ranks a model identifier within one provider's naming scheme.
// Higher is better. Family rank strictly dominates generation, and
// generation strictly dominates the release-date sub-score, so a newer date
// never outranks a higher family or a newer generation.
//
// The family/generation heuristics are tied to naming conventions current at
// time of writing and will go stale as vendors rename things; that is why
// scoring is a per-provider strategy in this table rather than inlined in
// Resolve.
type scoreFunc func(id string) float64

var scorers = map[string]scoreFunc{
	ProviderClaude: scoreClaude,
	ProviderOpenAI: scoreOpenAI,
}

// claudeFamilies in descending capability order.
var claudeFamilies = []string{"opus", "sonnet", "haiku"}

func scoreClaude(id string) float64 {
	lower := strings.ToLower(id)

	family := 0
	for i, f := range claudeFamilies {
		if strings.Contains(lower, f) {
			family = len(claudeFamilies) - i
			break
		}
	}

	return float64(family)*1e4 + float64(generation(lower)) + dateSubScore(lower)
}

// openaiFamilies in descending capability order. More specific names come
// before their prefixes so "gpt-4o" is not swallowed by "gpt-4".
var openaiFamilies = []string{"gpt-5", "o3", "o1", "gpt-4.5", "gpt-4.1", "gpt-4o", "gpt-4", "gpt-3.5"}

func scoreOpenAI(id string) float64 {
	lower := strings.ToLower(id)

	family := 0
	for i, f := range openaiFamilies {
		if strings.Contains(lower, f) {
			family = len(openaiFamilies) - i
			break
		}
	}

	return float64(family)*1e4 + dateSubScore(lower)
}

// generation extracts the version number adjacent to the family token:
// claude-sonnet-4 scores 40, claude-3-7-sonnet scores 37, claude-3-5-sonnet
// scores 35. Release dates are skipped.
func generation(id string) int {
	major, minor := -1, 0
	for _, tok := range strings.Split(id, "-") {
		if len(tok) == 8 && isDigits(tok) {
			continue // release date, handled by dateSubScore
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if major < 0 {
			major = n
			continue
		}
		if n < 10 {
			minor = n
		}
		break
	}
	if major < 0 {
		return 0
	}
	return major*10 + minor
}

var datePattern = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)

// dateSubScore turns an embedded release date (20250514 or 2025-05-14) into
// a strictly-positive fraction well below one generation step, so later
// dates win only within the same family and generation.
func dateSubScore(id string) float64 {
	m := datePattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1] + m[2] + m[3])
	if err != nil {
		return 0
	}
	return float64(n) / 1e9
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
