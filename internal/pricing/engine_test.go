package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printhub/internal/store"
)

func printRule(colorMode, sidedness string, start, end int, regular int64, age time.Duration) store.PrintPriceRule {
	return store.PrintPriceRule{
		ID:             uuid.New(),
		ServiceType:    DefaultServiceType,
		ColorMode:      colorMode,
		Sidedness:      sidedness,
		PageRangeStart: start,
		PageRangeEnd:   end,
		RegularPrice:   regular,
		IsActive:       true,
		CreatedAt:      time.Now().Add(-age),
	}
}

func TestMatchPrintRuleExactBeatsWildcard(t *testing.T) {
	wildcard := printRule(Wildcard, Wildcard, 1, 100, 500, 2*time.Hour)
	exact := printRule("mono", "single", 1, 100, 200, time.Hour)

	got, ok := MatchPrintRule([]store.PrintPriceRule{wildcard, exact}, "mono", "single", 10)
	require.True(t, ok)
	require.Equal(t, exact.ID, got.ID)

	// Order of candidates must not matter.
	got, ok = MatchPrintRule([]store.PrintPriceRule{exact, wildcard}, "mono", "single", 10)
	require.True(t, ok)
	require.Equal(t, exact.ID, got.ID)
}

func TestMatchPrintRulePartialWildcardRanking(t *testing.T) {
	full := printRule(Wildcard, Wildcard, 1, 100, 500, time.Hour)
	half := printRule("mono", Wildcard, 1, 100, 300, time.Hour)

	got, ok := MatchPrintRule([]store.PrintPriceRule{full, half}, "mono", "single", 50)
	require.True(t, ok)
	require.Equal(t, half.ID, got.ID)
}

func TestMatchPrintRuleNarrowRangeWinsOnTie(t *testing.T) {
	wide := printRule("mono", "single", 1, 500, 100, 2*time.Hour)
	narrow := printRule("mono", "single", 1, 50, 150, time.Hour)

	got, ok := MatchPrintRule([]store.PrintPriceRule{wide, narrow}, "mono", "single", 10)
	require.True(t, ok)
	require.Equal(t, narrow.ID, got.ID)

	// Outside the narrow range only the wide rule applies.
	got, ok = MatchPrintRule([]store.PrintPriceRule{wide, narrow}, "mono", "single", 200)
	require.True(t, ok)
	require.Equal(t, wide.ID, got.ID)
}

func TestMatchPrintRuleNoCoverage(t *testing.T) {
	rule := printRule("mono", "single", 1, 50, 100, time.Hour)
	_, ok := MatchPrintRule([]store.PrintPriceRule{rule}, "mono", "single", 5000)
	require.False(t, ok)
}

func TestMatchBindingRule(t *testing.T) {
	wide := store.BindingPriceRule{ID: uuid.New(), PageRangeStart: 1, PageRangeEnd: 500, RegularPrice: 3000}
	narrow := store.BindingPriceRule{ID: uuid.New(), PageRangeStart: 1, PageRangeEnd: 50, RegularPrice: 2000}

	got, ok := MatchBindingRule([]store.BindingPriceRule{wide, narrow}, 10)
	require.True(t, ok)
	require.Equal(t, narrow.ID, got.ID)

	_, ok = MatchBindingRule(nil, 10)
	require.False(t, ok)
}

func TestTierPrice(t *testing.T) {
	require.Equal(t, int64(100), TierPrice(100, 150, 200, "Student"))
	require.Equal(t, int64(150), TierPrice(100, 150, 200, "Institute"))
	require.Equal(t, int64(200), TierPrice(100, 150, 200, "Regular"))
	require.Equal(t, int64(200), TierPrice(100, 150, 200, "Business"))

	// Unset tier columns fall back to the regular price.
	require.Equal(t, int64(200), TierPrice(0, 0, 200, "Student"))
	require.Equal(t, int64(200), TierPrice(0, 0, 200, "Institute"))
}

func TestComputeQuote(t *testing.T) {
	// 2.00 per page, 10 pages, no binding, 3 copies.
	q := ComputeQuote(200, 0, 10, 3)
	require.Equal(t, int64(2000), q.PricePerCopy)
	require.Equal(t, int64(6000), q.TotalPrice)

	// Binding applies once per copy.
	q = ComputeQuote(200, 3000, 10, 2)
	require.Equal(t, int64(5000), q.PricePerCopy)
	require.Equal(t, int64(10000), q.TotalPrice)
}
