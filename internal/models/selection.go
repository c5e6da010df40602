package models

import "sort"

// SelectionSet maps categories to ordered page indices chosen for expensive
// processing. Built once per document per run; not persisted. The total count
// across all categories never exceeds the configured hard cap.
type SelectionSet struct {
	// Cap is the hard cap the set was built under.
	Cap int `json:"cap"`
	// Pages maps category to page indices, ordered by descending score
	// (or by position for fallback selections).
	Pages map[Category][]int `json:"pages"`
}

// NewSelectionSet returns an empty selection set with the given cap.
func NewSelectionSet(cap int) *SelectionSet {
	return &SelectionSet{Cap: cap, Pages: make(map[Category][]int)}
}

// Total returns the number of selected pages across all categories.
func (s *SelectionSet) Total() int {
	n := 0
	for _, indices := range s.Pages {
		n += len(indices)
	}
	return n
}

// Contains reports whether the page index is selected under any category.
func (s *SelectionSet) Contains(index int) bool {
	for _, indices := range s.Pages {
		for _, i := range indices {
			if i == index {
				return true
			}
		}
	}
	return false
}

// CategoryFor returns the category a page index was selected under,
// or CategoryNone if the page is not in the set.
func (s *SelectionSet) CategoryFor(index int) Category {
	for cat, indices := range s.Pages {
		for _, i := range indices {
			if i == index {
				return cat
			}
		}
	}
	return CategoryNone
}

// Indices returns all selected page indices in ascending document order.
func (s *SelectionSet) Indices() []int {
	indices := make([]int, 0, s.Total())
	for _, pages := range s.Pages {
		indices = append(indices, pages...)
	}
	sort.Ints(indices)
	return indices
}

// Add appends a page index under a category if it is not already selected
// and the cap allows it. Returns true if the index was added.
func (s *SelectionSet) Add(cat Category, index int) bool {
	if s.Total() >= s.Cap || s.Contains(index) {
		return false
	}
	s.Pages[cat] = append(s.Pages[cat], index)
	return true
}
