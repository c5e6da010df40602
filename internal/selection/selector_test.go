package selection

import (
	"testing"

	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/scoring"
)

func score(index int, cat models.Category, total float64) *scoring.PageScore {
	return &scoring.PageScore{
		Index:      index,
		Category:   cat,
		Total:      total,
		ByCategory: map[models.Category]float64{cat: total},
	}
}

func TestSelect_CapNeverExceeded(t *testing.T) {
	s := NewSelector(nil)
	var pool []*scoring.PageScore
	for i := 1; i <= 40; i++ {
		pool = append(pool, score(i, models.CategoryFinancials, float64(50-i)))
	}
	set := s.Select(pool, 40)
	if set.Total() > 7 {
		t.Errorf("selected %d pages, cap is 7", set.Total())
	}
}

func TestSelect_QuotasRespected(t *testing.T) {
	s := NewSelector(nil)
	pool := []*scoring.PageScore{
		score(1, models.CategoryFinancials, 9),
		score(2, models.CategoryFinancials, 8),
		score(3, models.CategoryFinancials, 7),
		score(4, models.CategoryFinancials, 6),
	}
	set := s.Select(pool, 20)
	if n := len(set.Pages[models.CategoryFinancials]); n > 2 {
		t.Errorf("financials took %d pages, quota is 2", n)
	}
}

func TestSelect_HighestScoresWin(t *testing.T) {
	s := NewSelector(nil)
	pool := []*scoring.PageScore{
		score(10, models.CategoryFinancials, 3),
		score(11, models.CategoryFinancials, 9),
		score(12, models.CategoryFinancials, 6),
	}
	set := s.Select(pool, 20)
	fin := set.Pages[models.CategoryFinancials]
	if len(fin) != 2 || fin[0] != 11 || fin[1] != 12 {
		t.Errorf("financials=%v, want [11 12]", fin)
	}
}

func TestSelect_TieBreakPrefersEarlier(t *testing.T) {
	s := NewSelector(nil)
	pool := []*scoring.PageScore{
		score(15, models.CategoryMarket, 5),
		score(3, models.CategoryMarket, 5),
	}
	set := s.Select(pool, 20)
	market := set.Pages[models.CategoryMarket]
	if len(market) != 1 || market[0] != 3 {
		t.Errorf("market=%v, want [3] (earlier page wins the tie)", market)
	}
}

func TestSelect_ShortDocumentSelectsAllGeneral(t *testing.T) {
	s := NewSelector(nil)
	set := s.Select(nil, 5)
	if set.Total() != 5 {
		t.Fatalf("selected %d pages of a 5-page document, want all 5", set.Total())
	}
	if len(set.Pages[models.CategoryGeneral]) != 5 {
		t.Errorf("short document pages should all be general, got %v", set.Pages)
	}
}

func TestSelect_EmptyPoolUsesFallbackPositions(t *testing.T) {
	s := NewSelector(nil)
	set := s.Select(nil, 20)
	if set.Total() < 3 {
		t.Errorf("selected %d pages, floor is 3", set.Total())
	}
	if set.Total() > 7 {
		t.Errorf("selected %d pages, cap is 7", set.Total())
	}
	// team 0.10*20=2, market 0.20*20=4, competition 0.30*20=6,
	// traction 0.40*20=8, financials 0.85*20=17
	for _, want := range []int{2, 4, 6} {
		if !set.Contains(want) {
			t.Errorf("fallback selection missing page %d: %v", want, set.Pages)
		}
	}
}

func TestSelect_FallbackCollisionProbesNearest(t *testing.T) {
	s := NewSelector(&Config{
		MaxPages: 7,
		MinPages: 5,
		FallbackPositions: map[string]float64{
			"team":   0.10,
			"market": 0.10,
		},
	})
	set := s.Select(nil, 20)
	// Both positions round to page 2; the second category must land on a
	// neighboring free page, not be dropped.
	if !set.Contains(2) || !set.Contains(3) {
		t.Errorf("collision not resolved to adjacent page: %v", set.Pages)
	}
}

func TestSelect_FallbackTopUpRespectsQuotas(t *testing.T) {
	s := NewSelector(nil)
	// Score-fill takes the market page; the positional top-up must not add a
	// second one past market's quota of 1.
	pool := []*scoring.PageScore{score(5, models.CategoryMarket, 4)}
	set := s.Select(pool, 20)
	if market := set.Pages[models.CategoryMarket]; len(market) != 1 || market[0] != 5 {
		t.Errorf("market=%v, want [5]", market)
	}
	for cat, pages := range set.Pages {
		if cat == models.CategoryGeneral {
			continue
		}
		if q := s.cfg.quota(string(cat)); len(pages) > q {
			t.Errorf("%s took %d pages, quota is %d", cat, len(pages), q)
		}
	}
}

func TestSelect_FallbackAppliesAllPositions(t *testing.T) {
	s := NewSelector(nil)
	// A long document with no scoreable text: the whole pattern applies, not
	// just enough of it to reach the floor.
	set := s.Select(nil, 43)
	if set.Total() != 5 {
		t.Fatalf("selected %d pages, want one per configured position: %v", set.Total(), set.Pages)
	}
	for _, cat := range []models.Category{
		models.CategoryTeam,
		models.CategoryMarket,
		models.CategoryCompetition,
		models.CategoryTraction,
		models.CategoryFinancials,
	} {
		if len(set.Pages[cat]) != 1 {
			t.Errorf("no %s page selected: %v", cat, set.Pages)
		}
	}
	if fin := set.Pages[models.CategoryFinancials]; len(fin) == 1 && fin[0] < 30 {
		t.Errorf("financials page %d, want a page deep in the document", fin[0])
	}
}

func TestSelect_SmallPoolToppedUpToFloor(t *testing.T) {
	s := NewSelector(nil)
	pool := []*scoring.PageScore{score(9, models.CategoryFinancials, 4)}
	set := s.Select(pool, 30)
	if set.Total() < 3 {
		t.Errorf("selected %d pages, floor is 3", set.Total())
	}
	if !set.Contains(9) {
		t.Error("scored page 9 should stay selected")
	}
}

func TestSelect_Deterministic(t *testing.T) {
	s := NewSelector(nil)
	pool := []*scoring.PageScore{
		score(4, models.CategoryFinancials, 7),
		score(8, models.CategoryCompetition, 6),
		score(12, models.CategoryMarket, 5),
		score(2, models.CategoryTeam, 3),
	}
	first := s.Select(pool, 25).Indices()
	for run := 0; run < 5; run++ {
		got := s.Select(pool, 25).Indices()
		if len(got) != len(first) {
			t.Fatalf("run %d selected %d pages, first run selected %d", run, len(got), len(first))
		}
		for i := range first {
			if got[i] != first[i] {
				t.Errorf("run %d diverged at position %d: %d vs %d", run, i, got[i], first[i])
			}
		}
	}
}

func TestSelect_ZeroPages(t *testing.T) {
	s := NewSelector(nil)
	if set := s.Select(nil, 0); set.Total() != 0 {
		t.Errorf("zero-page document selected %d pages", set.Total())
	}
}
