// Package allocator computes combinations of amount-bearing items against a
// target sum.
//
// Two objectives are supported. SolveBestCombination finds the single
// combination closest to a target (fewest pieces, then smallest deviation).
// PartitionIntoSets peels meet-or-exceed sets off a pool one at a time until
// no further set can be formed, leaving the rest unallocated.
//
// Both run a bounded 0/1 subset-sum table over amounts rescaled to a coarser
// quantization unit. Quantization only shapes the search; every reported sum
// is computed from the original amounts.
//
// Partitioning is greedy: each extracted set is the best one available from
// the remaining pool, which does not guarantee the largest possible number of
// sets overall. The extraction step sits behind the Extractor interface so a
// stronger strategy can replace it without touching the removal loop.
package allocator
