package allocator

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a single amount-bearing entry of a pool. Code is its identity.
type Item struct {
	Code   string `json:"code"`
	Amount int    `json:"amount"`
}

// Combination is the outcome of a single-combination solve.
// Diff is Sum minus the requested target and may be negative.
type Combination struct {
	Items []Item `json:"items"`
	Sum   int    `json:"sum"`
	Diff  int    `json:"diff"`
	Count int    `json:"count"`
}

// Set is one meet-or-exceed group extracted from a pool.
// Index records extraction order and breaks ordering ties.
type Set struct {
	Index      int             `json:"index"`
	Items      []Item          `json:"items"`
	Sum        int             `json:"sum"`
	Excess     int             `json:"excess"`
	Count      int             `json:"count"`
	Efficiency decimal.Decimal `json:"efficiency"`
}

// BatchResult summarises a full partition of a pool.
// Efficiency is TotalSets as a percentage of TheoreticalMax.
type BatchResult struct {
	Target           int             `json:"target"`
	Sets             []Set           `json:"sets"`
	Unallocated      []Item          `json:"unallocated"`
	TotalSets        int             `json:"totalSets"`
	TotalAllocated   int             `json:"totalAllocated"`
	TotalUnallocated int             `json:"totalUnallocated"`
	TheoreticalMax   int             `json:"theoreticalMax"`
	Efficiency       decimal.Decimal `json:"efficiency"`
}

// Solver describes the behaviour required to pick one combination near a target.
type Solver interface {
	SolveBestCombination(pool []Item, target int, allowOvershoot bool) (Combination, error)
}

// Extractor picks one meet-or-exceed set from a pool. It returns
// ErrNoQualifyingSet when the pool cannot produce one.
type Extractor interface {
	FindQualifyingSet(pool []Item, target int) (Set, error)
}

// Allocator is the full engine surface used by the service layer.
type Allocator interface {
	Solver
	Extractor
	PartitionIntoSets(ctx context.Context, pool []Item, target int) (BatchResult, error)
}
