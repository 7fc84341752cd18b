package allocator

import (
	"cmp"
	"slices"
)

// candidate is a reachable quantized sum scored for selection.
type candidate struct {
	sum    int
	score  int
	pieces int
}

// compareCandidates orders candidates by score, then pieces, then sum.
func compareCandidates(a, b candidate) int {
	if c := cmp.Compare(a.score, b.score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.pieces, b.pieces); c != 0 {
		return c
	}
	return cmp.Compare(a.sum, b.sum)
}

// SolveBestCombination returns the combination of pool items whose sum is
// closest to target, preferring fewer pieces and then the smaller sum on ties.
// With allowOvershoot false the combination never sums above target.
// An empty pool yields the empty combination.
func (e *Engine) SolveBestCombination(pool []Item, target int, allowOvershoot bool) (Combination, error) {
	if target <= 0 {
		return Combination{}, ErrInvalidTarget
	}
	if err := validatePool(pool); err != nil {
		return Combination{}, err
	}
	if len(pool) == 0 {
		return emptyCombination(target), nil
	}

	qTarget := Quantize(target, e.unit)
	amounts, qTotal, qLargest := quantizePool(pool, e.unit)

	limit := qTarget
	if allowOvershoot {
		slack := e.overshootWindow
		if slack == AutoOvershootWindow {
			slack = qLargest
		}
		limit = addCapped(limit, slack)
	}
	// Nothing beyond the pool total is reachable.
	limit = min(limit, qTotal)
	if err := e.checkLimit(limit); err != nil {
		return Combination{}, err
	}

	t := buildTable(amounts, limit)

	candidates := make([]candidate, 0, limit+1)
	for s := 0; s <= limit; s++ {
		if !t.reachable(s) {
			continue
		}
		if !allowOvershoot && s > qTarget {
			continue
		}
		candidates = append(candidates, candidate{sum: s, score: abs(s - qTarget), pieces: t.pieces[s]})
	}
	if len(candidates) == 0 {
		return Combination{}, ErrUnreachableState
	}
	slices.SortFunc(candidates, compareCandidates)

	for _, c := range candidates {
		indices, err := t.indices(c.sum)
		if err != nil {
			return Combination{}, err
		}
		items, sum := pick(pool, indices)
		// Rounding can push an exact sum past the target even when the
		// quantized sum stays within it.
		if !allowOvershoot && sum > target {
			continue
		}
		return Combination{
			Items: items,
			Sum:   sum,
			Diff:  sum - target,
			Count: len(items),
		}, nil
	}

	return emptyCombination(target), nil
}

func emptyCombination(target int) Combination {
	return Combination{
		Items: []Item{},
		Sum:   0,
		Diff:  -target,
		Count: 0,
	}
}
