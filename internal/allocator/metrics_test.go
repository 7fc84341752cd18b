package allocator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEfficiency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target, sum int
		want        string
	}{
		{100_000, 120_000, "83.3"},
		{100_000, 100_000, "100"},
		{150_000, 160_000, "93.8"},
		{100_000, 0, "0"},
	}
	for _, tc := range tests {
		if got := Efficiency(tc.target, tc.sum).String(); got != tc.want {
			t.Fatalf("Efficiency(%d, %d) = %s, want %s", tc.target, tc.sum, got, tc.want)
		}
	}
}

func sampleSets() []Set {
	return []Set{
		{Index: 0, Sum: 120_000, Excess: 20_000, Efficiency: decimal.RequireFromString("83.3")},
		{Index: 1, Sum: 100_000, Excess: 0, Efficiency: decimal.RequireFromString("100")},
		{Index: 2, Sum: 1_050_000, Excess: 950_000, Efficiency: decimal.RequireFromString("9.5")},
		{Index: 3, Sum: 120_000, Excess: 20_000, Efficiency: decimal.RequireFromString("83.3")},
	}
}

func indexes(sets []Set) []int {
	out := make([]int, len(sets))
	for i, set := range sets {
		out[i] = set.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortSets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  SortKey
		want []int
	}{
		{SortByIndex, []int{0, 1, 2, 3}},
		{SortByAmountDesc, []int{2, 0, 3, 1}},
		{SortByAmountAsc, []int{1, 0, 3, 2}},
		{SortByExcessAsc, []int{1, 0, 3, 2}},
		{SortByExcessDesc, []int{2, 0, 3, 1}},
		{SortByEfficiencyDesc, []int{1, 0, 3, 2}},
		{SortByEfficiencyAsc, []int{2, 0, 3, 1}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.key), func(t *testing.T) {
			t.Parallel()

			input := sampleSets()
			got, err := SortSets(input, tc.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalInts(indexes(got), tc.want) {
				t.Fatalf("expected order %v, got %v", tc.want, indexes(got))
			}

			again, err := SortSets(got, tc.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalInts(indexes(again), indexes(got)) {
				t.Fatalf("re-sorting changed order: %v then %v", indexes(got), indexes(again))
			}

			if !equalInts(indexes(input), []int{0, 1, 2, 3}) {
				t.Fatalf("input was reordered: %v", indexes(input))
			}
		})
	}
}

func TestSortSetsUnknownKey(t *testing.T) {
	t.Parallel()

	if _, err := SortSets(sampleSets(), "by_colour"); !errors.Is(err, ErrUnknownSortKey) {
		t.Fatalf("expected ErrUnknownSortKey, got %v", err)
	}
}

func TestSortSetsEmpty(t *testing.T) {
	t.Parallel()

	got, err := SortSets(nil, SortByAmountDesc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}
