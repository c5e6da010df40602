// Package selection chooses the bounded subset of pages that carries the
// highest expected information value for expensive processing. This is the
// pipeline's central cost-control mechanism: the cap and per-category quotas
// balance coverage across business-critical categories against the budget.
package selection

import (
	"math"
	"sort"

	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/scoring"
)

// Selector builds selection sets from scored pages.
type Selector struct {
	cfg *Config
}

// NewSelector creates a Selector. A nil config uses defaults.
func NewSelector(cfg *Config) *Selector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	return &Selector{cfg: cfg}
}

// Cap returns the configured hard cap.
func (s *Selector) Cap() int { return s.cfg.MaxPages }

// Select builds a selection set for a document of pageCount pages from the
// scored candidate pool. Guarantees:
//   - total selected <= MaxPages for any pool and any document size
//   - per-category counts <= the category's quota
//   - categories fill in priority order, pages within a category by
//     descending score
//   - at least min(MinPages, pageCount) pages are selected; when the pool is
//     too small the full positional fallback pattern applies, bounded by the
//     cap and quotas
//
// Documents with pageCount <= MaxPages select all pages under "general".
func (s *Selector) Select(scores []*scoring.PageScore, pageCount int) *models.SelectionSet {
	set := models.NewSelectionSet(s.cfg.MaxPages)
	if pageCount <= 0 {
		return set
	}
	if pageCount <= s.cfg.MaxPages {
		for i := 1; i <= pageCount; i++ {
			set.Add(models.CategoryGeneral, i)
		}
		return set
	}

	s.fillByScore(set, scores)

	floor := s.cfg.MinPages
	if floor > pageCount {
		floor = pageCount
	}
	if set.Total() < floor {
		s.fillByPosition(set, pageCount, floor)
	}
	return set
}

// fillByScore fills categories in priority order from each page's primary
// category, honoring quotas and the cap.
func (s *Selector) fillByScore(set *models.SelectionSet, scores []*scoring.PageScore) {
	byCategory := make(map[models.Category][]*scoring.PageScore)
	for _, ps := range scores {
		byCategory[ps.Category] = append(byCategory[ps.Category], ps)
	}

	for _, cat := range models.Categories() {
		candidates := byCategory[cat]
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Total != candidates[j].Total {
				return candidates[i].Total > candidates[j].Total
			}
			if s.cfg.preferEarlier() {
				return candidates[i].Index < candidates[j].Index
			}
			return candidates[i].Index > candidates[j].Index
		})
		quota := s.cfg.quota(string(cat))
		taken := 0
		for _, ps := range candidates {
			if taken >= quota || set.Total() >= s.cfg.MaxPages {
				break
			}
			if set.Add(cat, ps.Index) {
				taken++
			}
		}
		if set.Total() >= s.cfg.MaxPages {
			return
		}
	}
}

// fillByPosition applies the full positional pattern: one page per configured
// category at its proportional document depth, clipped to valid indices and
// honoring that category's quota, stopping only at the cap. The floor is a
// minimum guarantee, not a target. Occupied indices probe outward to the
// nearest free page.
func (s *Selector) fillByPosition(set *models.SelectionSet, pageCount, floor int) {
	for _, cat := range fallbackOrder() {
		if set.Total() >= s.cfg.MaxPages {
			return
		}
		depth, ok := s.cfg.FallbackPositions[string(cat)]
		if !ok {
			continue
		}
		if len(set.Pages[cat]) >= s.cfg.quota(string(cat)) {
			continue
		}
		index := clampIndex(depth, pageCount)
		if free := nearestFree(set, index, pageCount); free != 0 {
			set.Add(cat, free)
		}
	}
	// Positions exhausted but still under floor (tiny position table, quotas
	// already filled, or heavy collisions): sweep forward from page 1.
	for i := 1; i <= pageCount && set.Total() < floor && set.Total() < s.cfg.MaxPages; i++ {
		if !set.Contains(i) {
			set.Add(models.CategoryGeneral, i)
		}
	}
}

// fallbackOrder walks categories by document depth so the pattern reads in
// page order regardless of category priority.
func fallbackOrder() []models.Category {
	return []models.Category{
		models.CategoryTeam,
		models.CategoryMarket,
		models.CategoryCompetition,
		models.CategoryTraction,
		models.CategoryFinancials,
	}
}

func clampIndex(depth float64, pageCount int) int {
	index := int(math.Round(depth * float64(pageCount)))
	if index < 1 {
		index = 1
	}
	if index > pageCount {
		index = pageCount
	}
	return index
}

// nearestFree returns the unselected index closest to want, preferring later
// pages on equal distance. Returns 0 when every page is taken.
func nearestFree(set *models.SelectionSet, want, pageCount int) int {
	if !set.Contains(want) {
		return want
	}
	for d := 1; d < pageCount; d++ {
		if i := want + d; i <= pageCount && !set.Contains(i) {
			return i
		}
		if i := want - d; i >= 1 && !set.Contains(i) {
			return i
		}
	}
	return 0
}
