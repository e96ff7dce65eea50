// Package query turns free-text searches such as "shoes under 500" into a
// cleaned term and an optional price constraint.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/utafrali/hybridsearch/internal/domain"
)

type bound int

const (
	boundMax bound = iota
	boundMin
	boundRange
)

type pricePattern struct {
	re   *regexp.Regexp
	kind bound
}

// Tried in order against the lower-cased query; the first match wins.
var pricePatterns = []pricePattern{
	{regexp.MustCompile(`under\s*(\d+)`), boundMax},
	{regexp.MustCompile(`below\s*(\d+)`), boundMax},
	{regexp.MustCompile(`above\s*(\d+)`), boundMin},
	{regexp.MustCompile(`over\s*(\d+)`), boundMin},
	{regexp.MustCompile(`between\s*(\d+)\s*(?:and|-)\s*(\d+)`), boundRange},
}

var stripPattern = regexp.MustCompile(`(?i)(under|below|above|over|between|and|-|\d+)`)

// Interpret extracts at most one price constraint from raw and strips
// constraint keywords, hyphens and digit runs from the term. The term may
// come back empty.
func Interpret(raw string) domain.InterpretedQuery {
	return domain.InterpretedQuery{
		Term:  Clean(raw),
		Price: ParsePrice(raw),
	}
}

// ParsePrice returns the first constraint found in raw, or nil. A number
// that does not fit in an int64 drops the constraint.
func ParsePrice(raw string) *domain.PriceConstraint {
	lower := strings.ToLower(raw)
	for _, p := range pricePatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		switch p.kind {
		case boundMax:
			n, ok := parseNumber(m[1])
			if !ok {
				return nil
			}
			return &domain.PriceConstraint{Max: &n}
		case boundMin:
			n, ok := parseNumber(m[1])
			if !ok {
				return nil
			}
			return &domain.PriceConstraint{Min: &n}
		case boundRange:
			lo, ok1 := parseNumber(m[1])
			hi, ok2 := parseNumber(m[2])
			if !ok1 || !ok2 {
				return nil
			}
			// Inverted ranges are kept as given.
			return &domain.PriceConstraint{Min: &lo, Max: &hi}
		}
	}
	return nil
}

// Clean removes every constraint keyword, hyphen and digit run, case
// insensitively, and trims the result. Keywords inside ordinary words are
// removed too ("Sandals" becomes "Sals").
func Clean(raw string) string {
	return strings.TrimSpace(stripPattern.ReplaceAllString(raw, ""))
}

func parseNumber(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
