package scraper

import (
	"regexp"
	"strings"
)

// A Matcher inspects a title and optionally yields a captured value.
// Inference walks an ordered list and stops at the first hit, so new
// patterns can be appended without touching the callers.
type Matcher func(title string) (string, bool)

var companyMatchers = []Matcher{
	// "Acme Corp is hiring a backend engineer" / "Acme Corp hiring ..."
	capture(regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+)?hiring`)),
	// "Globex - Senior SRE"
	capture(regexp.MustCompile(`^(.+?)\s+-\s+`)),
	// "Recruiter: Remote Python role"
	capture(regexp.MustCompile(`^(.+?):\s+`)),
}

var locationMatchers = []Matcher{
	capture(regexp.MustCompile(`(?i)\b(Remote|San Francisco|SF|New York|NYC|London|Berlin|Amsterdam|Toronto|Vancouver|Austin|Seattle|Boston)\b`)),
	// anything in parentheses, e.g. "Backend Engineer (Berlin)"
	capture(regexp.MustCompile(`\(([^)]+)\)`)),
}

// InferCompany guesses the company name from the title. A miss is normal
// and returns nil.
func InferCompany(title string) *string {
	return firstMatch(title, companyMatchers)
}

// InferLocation guesses the location from the title, preferring the known
// city/remote vocabulary over the parentheses fallback.
func InferLocation(title string) *string {
	return firstMatch(title, locationMatchers)
}

func firstMatch(title string, matchers []Matcher) *string {
	for _, match := range matchers {
		if value, ok := match(title); ok {
			return &value
		}
	}
	return nil
}

func capture(re *regexp.Regexp) Matcher {
	return func(title string) (string, bool) {
		groups := re.FindStringSubmatch(title)
		if groups == nil {
			return "", false
		}
		return strings.TrimSpace(groups[1]), true
	}
}
