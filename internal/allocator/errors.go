package allocator

import "errors"

var (
	// ErrInvalidTarget is returned when the target sum is not positive.
	ErrInvalidTarget = errors.New("target must be a positive integer")
	// ErrInvalidAmount is returned when a pool item carries a non-positive amount.
	ErrInvalidAmount = errors.New("item amounts must be positive integers")
	// ErrDuplicateCode is returned when two pool items share the same code.
	ErrDuplicateCode = errors.New("pool contains duplicate item codes")
	// ErrInvalidUnit is returned when the quantization unit is not positive.
	ErrInvalidUnit = errors.New("quantization unit must be a positive integer")
	// ErrInvalidWindow is returned when a search window is negative.
	ErrInvalidWindow = errors.New("search window must be a non-negative integer")
	// ErrSearchSpaceTooLarge is returned when the bounded table would exceed the configured state limit.
	ErrSearchSpaceTooLarge = errors.New("search space exceeds the configured state limit")
	// ErrNoQualifyingSet signals that no meet-or-exceed set can be formed from the pool.
	ErrNoQualifyingSet = errors.New("no qualifying set can be formed from the pool")
	// ErrUnreachableState indicates a corrupted search table. It is never expected.
	ErrUnreachableState = errors.New("search table reached an inconsistent state")
	// ErrNoProgress is returned when an extractor hands back a set that removes nothing from the pool.
	ErrNoProgress = errors.New("extracted set did not consume any pool items")
	// ErrUnknownSortKey is returned for unsupported set ordering keys.
	ErrUnknownSortKey = errors.New("unknown set ordering key")
)
