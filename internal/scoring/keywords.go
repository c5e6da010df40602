package scoring

import "github.com/hyperjump/decklens/internal/models"

// CategoryKeywords binds a category to its keyword list and priority
// (1 = highest).
type CategoryKeywords struct {
	Category models.Category
	Priority int
	Keywords []string
}

// DefaultKeywordTable is the fixed category keyword table. Multi-word entries
// match as normalized substrings; single words match whole tokens only, so
// "arr" does not fire inside "arrange".
func DefaultKeywordTable() []CategoryKeywords {
	return []CategoryKeywords{
		{
			Category: models.CategoryFinancials,
			Priority: 1,
			Keywords: []string{
				"revenue", "arr", "mrr", "ebitda", "runway", "profit", "margin",
				"burn rate", "cash flow", "unit economics", "gross margin",
				"cac", "ltv", "forecast", "p&l", "financials",
			},
		},
		{
			Category: models.CategoryCompetition,
			Priority: 1,
			Keywords: []string{
				"competitor", "competitors", "competitive", "competition",
				"landscape", "vs", "versus", "alternative", "alternatives",
				"moat", "differentiation", "market share",
			},
		},
		{
			Category: models.CategoryMarket,
			Priority: 2,
			Keywords: []string{
				"tam", "sam", "som", "market size", "addressable market",
				"market opportunity", "industry", "segment", "growth rate",
				"trend", "trends",
			},
		},
		{
			Category: models.CategoryTraction,
			Priority: 2,
			Keywords: []string{
				"traction", "users", "customers", "retention", "churn",
				"engagement", "pipeline", "milestones", "partnerships",
				"month over month", "mom growth", "active users",
			},
		},
		{
			Category: models.CategoryTeam,
			Priority: 3,
			Keywords: []string{
				"founder", "founders", "ceo", "cto", "coo", "team",
				"advisors", "advisory board", "previously", "ex-",
				"background", "hiring",
			},
		},
	}
}
