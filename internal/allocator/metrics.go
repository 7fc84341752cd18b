package allocator

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Efficiency returns target as a percentage of sum, rounded to one decimal.
// A zero sum yields zero.
func Efficiency(target, sum int) decimal.Decimal {
	if sum == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(target)).
		Div(decimal.NewFromInt(int64(sum))).
		Mul(hundred).
		Round(1)
}

// SortKey names a presentation ordering for sets.
type SortKey string

const (
	SortByIndex          SortKey = "index"
	SortByAmountDesc     SortKey = "amount_desc"
	SortByAmountAsc      SortKey = "amount_asc"
	SortByExcessAsc      SortKey = "excess_asc"
	SortByExcessDesc     SortKey = "excess_desc"
	SortByEfficiencyDesc SortKey = "efficiency_desc"
	SortByEfficiencyAsc  SortKey = "efficiency_asc"
)

// CompareBySum orders sets by ascending sum.
func CompareBySum(a, b Set) int {
	return cmp.Compare(a.Sum, b.Sum)
}

// CompareByExcess orders sets by ascending excess.
func CompareByExcess(a, b Set) int {
	return cmp.Compare(a.Excess, b.Excess)
}

// CompareByEfficiency orders sets by ascending efficiency, compared as numbers.
func CompareByEfficiency(a, b Set) int {
	return a.Efficiency.Cmp(b.Efficiency)
}

func compareByIndex(a, b Set) int {
	return cmp.Compare(a.Index, b.Index)
}

func descending(fn func(a, b Set) int) func(a, b Set) int {
	return func(a, b Set) int {
		return fn(b, a)
	}
}

// Comparator returns the ordering for key. Equal keys fall back to
// extraction order so the ordering is total and repeatable.
func Comparator(key SortKey) (func(a, b Set) int, error) {
	var primary func(a, b Set) int
	switch key {
	case SortByIndex, "":
		return compareByIndex, nil
	case SortByAmountDesc:
		primary = descending(CompareBySum)
	case SortByAmountAsc:
		primary = CompareBySum
	case SortByExcessAsc:
		primary = CompareByExcess
	case SortByExcessDesc:
		primary = descending(CompareByExcess)
	case SortByEfficiencyDesc:
		primary = descending(CompareByEfficiency)
	case SortByEfficiencyAsc:
		primary = CompareByEfficiency
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}
	return func(a, b Set) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return compareByIndex(a, b)
	}, nil
}

// SortSets returns a sorted copy of sets. The input is left untouched.
func SortSets(sets []Set, key SortKey) ([]Set, error) {
	fn, err := Comparator(key)
	if err != nil {
		return nil, err
	}
	out := append(make([]Set, 0, len(sets)), sets...)
	slices.SortStableFunc(out, fn)
	return out, nil
}
