// Package pricing resolves order configurations to tiered prices via
// range-based rule matching.
package pricing

import "github.com/noah-isme/backend-printhub/internal/store"

// DefaultServiceType is the only service priced by the checkout flow today.
const DefaultServiceType = "Normal Print"

// Wildcard is the rule dimension value matching both concrete options.
const Wildcard = "both"

// Quote is the result of a successful price resolution. Amounts are minor
// currency units.
type Quote struct {
	UnitPrintPrice   int64 `json:"unit_print_price"`
	UnitBindingPrice int64 `json:"unit_binding_price"`
	PricePerCopy     int64 `json:"price_per_copy"`
	TotalPrice       int64 `json:"total_price"`
}

// specificity scores a print rule against the requested dimensions. Exact
// dimension matches outrank wildcards.
func specificity(r store.PrintPriceRule, colorMode, sidedness string) int {
	score := 0
	if r.ColorMode == colorMode {
		score++
	}
	if r.Sidedness == sidedness {
		score++
	}
	return score
}

// MatchPrintRule picks the rule covering pageCount, most specific match
// first. Among equally specific candidates the narrowest page range wins,
// then the oldest rule, so overlapping rules resolve deterministically.
// Candidates must already be filtered to the requested dimensions (exact or
// wildcard) and ordered oldest first.
func MatchPrintRule(candidates []store.PrintPriceRule, colorMode, sidedness string, pageCount int) (store.PrintPriceRule, bool) {
	var best store.PrintPriceRule
	bestScore := -1
	for _, r := range candidates {
		if pageCount < r.PageRangeStart || pageCount > r.PageRangeEnd {
			continue
		}
		score := specificity(r, colorMode, sidedness)
		if score > bestScore {
			best, bestScore = r, score
			continue
		}
		if score == bestScore && ruleWidth(r) < ruleWidth(best) {
			best = r
		}
	}
	return best, bestScore >= 0
}

func ruleWidth(r store.PrintPriceRule) int {
	return r.PageRangeEnd - r.PageRangeStart
}

// MatchBindingRule picks the binding rule covering pageCount, narrowest
// range first, oldest first on ties. Missing coverage is not an error.
func MatchBindingRule(candidates []store.BindingPriceRule, pageCount int) (store.BindingPriceRule, bool) {
	var best store.BindingPriceRule
	found := false
	for _, r := range candidates {
		if pageCount < r.PageRangeStart || pageCount > r.PageRangeEnd {
			continue
		}
		if !found || r.PageRangeEnd-r.PageRangeStart < best.PageRangeEnd-best.PageRangeStart {
			best, found = r, true
		}
	}
	return best, found
}

// TierPrice selects the price column for a customer tier, falling back to
// the regular price when the tier-specific column is unset.
func TierPrice(student, institute, regular int64, tier string) int64 {
	switch tier {
	case "Student":
		if student > 0 {
			return student
		}
	case "Institute":
		if institute > 0 {
			return institute
		}
	}
	return regular
}

// ComputeQuote assembles the quote from resolved unit prices. The print
// price applies per page, the binding price once per copy.
func ComputeQuote(unitPrint, unitBinding int64, pageCount, quantity int) Quote {
	perCopy := unitPrint*int64(pageCount) + unitBinding
	return Quote{
		UnitPrintPrice:   unitPrint,
		UnitBindingPrice: unitBinding,
		PricePerCopy:     perCopy,
		TotalPrice:       perCopy * int64(quantity),
	}
}
