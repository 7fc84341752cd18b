package allocator

import (
	"context"
	"fmt"
)

const (
	// DefaultExtractionWindow is how far above the target, in quantized
	// units, the set extractor searches for a qualifying sum.
	DefaultExtractionWindow = 50
	// DefaultMaxStates caps the number of quantized sums a single table may hold.
	DefaultMaxStates = 5_000_000
	// AutoOvershootWindow sizes the solver's overshoot bound to the largest
	// quantized item in the pool.
	AutoOvershootWindow = -1
)

// Engine is the dynamic-programming allocator. It is safe for concurrent use;
// every call builds and discards its own table.
type Engine struct {
	unit             int
	extractionWindow int
	overshootWindow  int
	maxStates        int
}

var _ Allocator = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithUnit sets the quantization unit.
func WithUnit(unit int) Option {
	return func(e *Engine) {
		e.unit = unit
	}
}

// WithExtractionWindow sets how many quantized units above the target the
// set extractor may overshoot. Sets whose best sum lies beyond the window
// are not found.
func WithExtractionWindow(window int) Option {
	return func(e *Engine) {
		e.extractionWindow = window
	}
}

// WithOvershootWindow sets the overshoot bound, in quantized units, used by
// SolveBestCombination when overshoot is allowed. AutoOvershootWindow, the
// default, means one largest item's worth, which always covers the best
// overshooting sum. Zero permits no overshoot beyond rounding.
func WithOvershootWindow(window int) Option {
	return func(e *Engine) {
		e.overshootWindow = window
	}
}

// WithMaxStates bounds the size of a single search table.
func WithMaxStates(limit int) Option {
	return func(e *Engine) {
		e.maxStates = limit
	}
}

// New creates an Engine, applying opts over the defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		unit:             DefaultUnit,
		extractionWindow: DefaultExtractionWindow,
		overshootWindow:  AutoOvershootWindow,
		maxStates:        DefaultMaxStates,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.unit <= 0 {
		return nil, ErrInvalidUnit
	}
	if e.extractionWindow < 0 || e.overshootWindow < AutoOvershootWindow {
		return nil, ErrInvalidWindow
	}
	if e.maxStates <= 0 {
		return nil, fmt.Errorf("max states must be positive, got %d", e.maxStates)
	}
	return e, nil
}

// Unit returns the quantization unit in use.
func (e *Engine) Unit() int {
	return e.unit
}

// PartitionIntoSets partitions pool with a Partitioner backed by this engine.
func (e *Engine) PartitionIntoSets(ctx context.Context, pool []Item, target int) (BatchResult, error) {
	return NewPartitioner(e).Partition(ctx, pool, target)
}

func (e *Engine) checkLimit(limit int) error {
	if limit < 0 || limit >= e.maxStates {
		return fmt.Errorf("%w: table bound %d, limit %d sums", ErrSearchSpaceTooLarge, limit, e.maxStates)
	}
	return nil
}

// validatePool enforces the pool contract: positive amounts and unique codes.
func validatePool(pool []Item) error {
	seen := make(map[string]struct{}, len(pool))
	for _, item := range pool {
		if item.Amount <= 0 {
			return fmt.Errorf("%w: %q has amount %d", ErrInvalidAmount, item.Code, item.Amount)
		}
		if _, ok := seen[item.Code]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateCode, item.Code)
		}
		seen[item.Code] = struct{}{}
	}
	return nil
}

func pick(pool []Item, indices []int) ([]Item, int) {
	items := make([]Item, len(indices))
	sum := 0
	for i, idx := range indices {
		items[i] = pool[idx]
		sum += pool[idx].Amount
	}
	return items, sum
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
