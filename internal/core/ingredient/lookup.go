package ingredient

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"meal-planner/internal/core/normalize"
)

// fallbackLimit bounds the last-resort contains search
const fallbackLimit = 10

// matchTier ranks how q sits inside key: equal, prefix, suffix, anywhere.
func matchTier(key, q string) int {
	switch {
	case key == q:
		return 0
	case strings.HasPrefix(key, q):
		return 1
	case strings.HasSuffix(key, q):
		return 2
	default:
		return 3
	}
}

// rankCandidates orders by tier, then by shorter name.
func rankCandidates(cands []Ingredient, q string) {
	sort.SliceStable(cands, func(i, j int) bool {
		ti, tj := matchTier(cands[i].NameKey, q), matchTier(cands[j].NameKey, q)
		if ti != tj {
			return ti < tj
		}
		return len(cands[i].NameKey) < len(cands[j].NameKey)
	})
}

// pickCandidate prefers the first ranked candidate containing word as a whole
// word. Boundaries are any non letter or digit rune, so accented names work.
func pickCandidate(cands []Ingredient, word string) *Ingredient {
	if len(cands) == 0 {
		return nil
	}
	re := regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(word) + `($|[^\p{L}\p{N}])`)
	for i := range cands {
		if re.MatchString(cands[i].NameKey) {
			return &cands[i]
		}
	}
	return &cands[0]
}

// lookup runs the non-creating resolution steps: exact key, singular key,
// ranked fuzzy search, bounded contains search.
func (s *Store) lookup(ctx context.Context, raw string) (*Ingredient, error) {
	q := normalize.Name(raw)
	if q == "" {
		return nil, nil
	}

	ing, err := s.findByKey(ctx, q)
	if err != nil || ing != nil {
		return ing, err
	}

	singular := normalize.Singular(q)
	if singular != q {
		ing, err = s.findByKey(ctx, singular)
		if err != nil || ing != nil {
			return ing, err
		}
	}

	cands, err := s.searchContains(ctx, q, 0)
	if err != nil {
		return nil, err
	}
	if len(cands) > 0 {
		rankCandidates(cands, q)
		return pickCandidate(cands, singular), nil
	}

	if singular == q {
		return nil, nil
	}
	fallback, err := s.searchContains(ctx, singular, fallbackLimit)
	if err != nil {
		return nil, err
	}
	if len(fallback) > 0 {
		return &fallback[0], nil
	}
	return nil, nil
}
