package allocator

import (
	"cmp"
	"slices"
)

// Greedy is a fast approximation of SolveBestCombination. It walks items from
// the largest amount down and keeps an item whenever doing so does not move
// the running sum further from the target.
type Greedy struct{}

var _ Solver = Greedy{}

// SolveBestCombination implements Solver.
func (Greedy) SolveBestCombination(pool []Item, target int, allowOvershoot bool) (Combination, error) {
	if target <= 0 {
		return Combination{}, ErrInvalidTarget
	}
	if err := validatePool(pool); err != nil {
		return Combination{}, err
	}
	if len(pool) == 0 {
		return emptyCombination(target), nil
	}

	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	selected := make([]Item, 0, len(sorted))
	sum := 0
	for _, item := range sorted {
		next := sum + item.Amount
		if !allowOvershoot && next > target {
			continue
		}
		if abs(next-target) <= abs(sum-target) {
			selected = append(selected, item)
			sum = next
		}
	}

	return Combination{
		Items: selected,
		Sum:   sum,
		Diff:  sum - target,
		Count: len(selected),
	}, nil
}
