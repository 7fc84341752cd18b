package allocator

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Partitioner repeatedly extracts qualifying sets from a shrinking pool.
type Partitioner struct {
	extractor Extractor
	logger    *zap.Logger
}

// PartitionerOption configures a Partitioner.
type PartitionerOption func(*Partitioner)

// WithLogger attaches a logger that receives per-extraction debug events.
func WithLogger(logger *zap.Logger) PartitionerOption {
	return func(p *Partitioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPartitioner creates a Partitioner around the given extraction strategy.
func NewPartitioner(extractor Extractor, opts ...PartitionerOption) *Partitioner {
	p := &Partitioner{
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition peels qualifying sets off pool until the extractor reports
// ErrNoQualifyingSet, then reports the leftovers and aggregates. Each set is
// the best one available at the time it is taken, so the number of sets can
// fall short of the best possible partition.
//
// ctx is checked before every extraction; a cancelled context aborts the run
// and returns ctx.Err().
func (p *Partitioner) Partition(ctx context.Context, pool []Item, target int) (BatchResult, error) {
	if target <= 0 {
		return BatchResult{}, ErrInvalidTarget
	}
	if err := validatePool(pool); err != nil {
		return BatchResult{}, err
	}

	total := sumAmounts(pool)
	result := BatchResult{
		Target:         target,
		Sets:           []Set{},
		Unallocated:    []Item{},
		TheoreticalMax: total / target,
		Efficiency:     decimal.Zero,
	}
	if len(pool) == 0 {
		return result, nil
	}

	p.logger.Debug("partition started",
		zap.Int("pool_size", len(pool)),
		zap.Int("pool_total", total),
		zap.Int("target", target),
		zap.Int("theoretical_max", result.TheoreticalMax),
	)

	working := make([]Item, len(pool))
	copy(working, pool)

	for len(working) > 0 {
		if err := ctx.Err(); err != nil {
			return BatchResult{}, err
		}

		set, err := p.extractor.FindQualifyingSet(working, target)
		if errors.Is(err, ErrNoQualifyingSet) {
			break
		}
		if err != nil {
			return BatchResult{}, fmt.Errorf("extract set %d: %w", len(result.Sets)+1, err)
		}

		remaining := removeItems(working, set.Items)
		if len(remaining) == len(working) {
			return BatchResult{}, fmt.Errorf("extract set %d: %w", len(result.Sets)+1, ErrNoProgress)
		}
		working = remaining

		set.Index = len(result.Sets)
		result.Sets = append(result.Sets, set)

		p.logger.Debug("set extracted",
			zap.Int("set", set.Index+1),
			zap.Int("sum", set.Sum),
			zap.Int("excess", set.Excess),
			zap.Int("pieces", set.Count),
			zap.Int("remaining", len(working)),
		)
	}

	result.Unallocated = working
	result.TotalSets = len(result.Sets)
	for _, set := range result.Sets {
		result.TotalAllocated += set.Sum
	}
	result.TotalUnallocated = sumAmounts(working)
	if result.TheoreticalMax > 0 {
		result.Efficiency = decimal.NewFromInt(int64(result.TotalSets)).
			Div(decimal.NewFromInt(int64(result.TheoreticalMax))).
			Mul(hundred).
			Round(1)
	}

	return result, nil
}

// removeItems drops every item whose code appears in used, keeping order.
func removeItems(pool, used []Item) []Item {
	codes := make(map[string]struct{}, len(used))
	for _, item := range used {
		codes[item.Code] = struct{}{}
	}
	out := make([]Item, 0, len(pool))
	for _, item := range pool {
		if _, ok := codes[item.Code]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func sumAmounts(items []Item) int {
	total := 0
	for _, item := range items {
		total = addCapped(total, item.Amount)
	}
	return total
}
