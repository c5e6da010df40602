package vision

import "github.com/hyperjump/decklens/internal/models"

// categoryPrompts keys extraction instructions by category. The generic prompt
// is used for CategoryGeneral, CategoryNone, and unknown categories.
var categoryPrompts = map[models.Category]string{
	models.CategoryFinancials: "Extract all financial data from this page: revenue figures, growth rates, " +
		"burn rate, runway, margins, and projections. Transcribe numbers exactly as shown, " +
		"including units and time periods. Include chart axis values and table contents.",
	models.CategoryCompetition: "Extract the competitive information on this page: competitor names, " +
		"positioning claims, comparison table contents, and any market share figures. " +
		"Preserve the structure of comparison matrices as text.",
	models.CategoryMarket: "Extract the market sizing and industry data on this page: TAM/SAM/SOM figures, " +
		"growth rates, segments, and cited sources. Transcribe numbers exactly as shown.",
	models.CategoryTraction: "Extract the traction metrics on this page: user/customer counts, retention, " +
		"growth percentages, named customers or partners, and milestone dates. " +
		"Include chart data points where readable.",
	models.CategoryTeam: "Extract the team information on this page: names, titles, prior companies and " +
		"roles, and advisor affiliations.",
}

const genericPrompt = "Extract all text and data from this page verbatim. " +
	"Include table contents, chart labels and values, and captions. " +
	"Describe any diagram briefly after the extracted text."

// PromptFor returns the extraction instruction for a category.
func PromptFor(category models.Category) string {
	if p, ok := categoryPrompts[category]; ok {
		return p
	}
	return genericPrompt
}
