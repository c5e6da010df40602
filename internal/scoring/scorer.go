// Package scoring scans page text against weighted keyword categories to
// produce per-page relevance scores. Purely a function of text content and the
// fixed keyword table: fully reproducible without any external service.
package scoring

import (
	"sort"
	"strings"

	"github.com/hyperjump/decklens/internal/models"
)

// PageScore is the score breakdown for one page.
type PageScore struct {
	// Index is the 1-based page index.
	Index int
	// Category is the primary category: the one with the highest weighted score.
	Category models.Category
	// Total is the sum of weighted scores across all categories.
	Total float64
	// ByCategory holds the weighted score per matching category.
	ByCategory map[models.Category]float64
	// Matched lists the distinct keywords that fired, in table order.
	Matched []string
}

// Scorer scores pages against a fixed category keyword table.
type Scorer struct {
	cfg   *Config
	table []CategoryKeywords
}

// NewScorer creates a Scorer. A nil config uses defaults.
func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	return &Scorer{cfg: cfg, table: DefaultKeywordTable()}
}

// WithTable replaces the keyword table.
func (s *Scorer) WithTable(table []CategoryKeywords) *Scorer {
	s.table = table
	return s
}

// ScorePage scores one page. Returns nil when no keyword in any category
// matches, excluding the page from the candidate pool.
func (s *Scorer) ScorePage(index int, text string) *PageScore {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := normalize(text)
	tokens := tokenSet(normalized)
	words := len(strings.Fields(normalized))

	score := &PageScore{
		Index:      index,
		ByCategory: make(map[models.Category]float64),
	}
	bestScore := 0.0
	bestPriority := 0

	for _, ck := range s.table {
		distinct := 0
		occurrences := 0
		for _, kw := range ck.Keywords {
			n := countKeyword(kw, normalized, tokens)
			if n > 0 {
				distinct++
				occurrences += n
				score.Matched = append(score.Matched, kw)
			}
		}
		if distinct == 0 {
			continue
		}
		weighted := float64(distinct) * s.cfg.weight(ck.Priority)
		weighted += s.densityBonus(occurrences, words)
		score.ByCategory[ck.Category] = weighted
		score.Total += weighted

		// Primary category: highest weighted score; ties go to the higher
		// priority (then table order), keeping scoring deterministic.
		if weighted > bestScore || (weighted == bestScore && bestPriority != 0 && ck.Priority < bestPriority) {
			bestScore = weighted
			bestPriority = ck.Priority
			score.Category = ck.Category
		}
	}
	if len(score.ByCategory) == 0 {
		return nil
	}
	return score
}

// ScorePages scores every page text (keyed by 1-based index) and returns the
// candidate pool ordered by descending total score, ties broken by lower index.
func (s *Scorer) ScorePages(texts map[int]string) []*PageScore {
	scores := make([]*PageScore, 0, len(texts))
	for index, text := range texts {
		if ps := s.ScorePage(index, text); ps != nil {
			scores = append(scores, ps)
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].Index < scores[j].Index
	})
	return scores
}

// densityBonus rewards keyword-dense pages, capped so stuffed pages cannot
// dominate.
func (s *Scorer) densityBonus(occurrences, words int) float64 {
	if words == 0 || occurrences == 0 {
		return 0
	}
	bonus := float64(occurrences) / float64(words) * s.cfg.DensityScale
	if bonus > s.cfg.DensityBonusCap {
		bonus = s.cfg.DensityBonusCap
	}
	return bonus
}

// normalize lowercases text and flattens punctuation to spaces, keeping
// characters that appear inside keywords (&, -, %).
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '&', r == '-', r == '%':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func tokenSet(normalized string) map[string]int {
	tokens := make(map[string]int)
	for _, f := range strings.Fields(normalized) {
		tokens[f]++
	}
	return tokens
}

// countKeyword returns how many times kw occurs: whole-token counting for
// single words, substring counting on normalized text for phrases.
func countKeyword(kw, normalized string, tokens map[string]int) int {
	if strings.ContainsRune(kw, ' ') {
		return strings.Count(normalized, kw)
	}
	return tokens[kw]
}
