package allocator

import "slices"

// FindQualifyingSet returns the set of pool items whose sum meets or exceeds
// target with the least excess, then the fewest pieces. The search only
// considers quantized sums up to the extraction window above the target.
// ErrNoQualifyingSet is returned when no such set exists within that window.
func (e *Engine) FindQualifyingSet(pool []Item, target int) (Set, error) {
	if target <= 0 {
		return Set{}, ErrInvalidTarget
	}
	if err := validatePool(pool); err != nil {
		return Set{}, err
	}
	if len(pool) == 0 {
		return Set{}, ErrNoQualifyingSet
	}

	qTarget := Quantize(target, e.unit)
	amounts, qTotal, _ := quantizePool(pool, e.unit)

	limit := min(qTotal, addCapped(qTarget, e.extractionWindow))
	if limit < qTarget {
		return Set{}, ErrNoQualifyingSet
	}
	if err := e.checkLimit(limit); err != nil {
		return Set{}, err
	}

	t := buildTable(amounts, limit)

	candidates := make([]candidate, 0, limit-qTarget+1)
	for s := qTarget; s <= limit; s++ {
		if !t.reachable(s) {
			continue
		}
		candidates = append(candidates, candidate{sum: s, score: s - qTarget, pieces: t.pieces[s]})
	}
	slices.SortFunc(candidates, compareCandidates)

	for _, c := range candidates {
		indices, err := t.indices(c.sum)
		if err != nil {
			return Set{}, err
		}
		items, sum := pick(pool, indices)
		// A quantized sum at the target can still fall short once the
		// original amounts are added up.
		if len(items) == 0 || sum < target {
			continue
		}
		return newSet(items, sum, target), nil
	}

	return Set{}, ErrNoQualifyingSet
}

func newSet(items []Item, sum, target int) Set {
	return Set{
		Items:      items,
		Sum:        sum,
		Excess:     sum - target,
		Count:      len(items),
		Efficiency: Efficiency(target, sum),
	}
}
