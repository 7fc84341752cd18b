package allocator

import "slices"

// link is one step of a chosen combination. Links are never mutated once
// written, so a combination recorded earlier stays intact when the sum it
// passed through is later reached more cheaply.
type link struct {
	item   int
	parent int
}

// table is a bounded 0/1 subset-sum table over quantized sums [0, limit].
// For every reachable sum it keeps the fewest pieces needed to reach it and
// the head of the link chain that produced it.
type table struct {
	limit  int
	pieces []int
	head   []int
	links  []link
}

func newTable(limit int) *table {
	t := &table{
		limit:  limit,
		pieces: make([]int, limit+1),
		head:   make([]int, limit+1),
	}
	for s := range t.pieces {
		t.pieces[s] = -1
		t.head[s] = -1
	}
	t.pieces[0] = 0
	return t
}

// buildTable feeds every amount into a fresh table in pool order.
func buildTable(amounts []int, limit int) *table {
	t := newTable(limit)
	for i, amount := range amounts {
		t.extend(i, amount)
	}
	return t
}

// extend offers item with the given quantized amount to every sum reachable
// before it. Sums are walked in descending order so a destination written in
// this pass is never read back as a source, which keeps each item used at most
// once per combination. Ties keep the combination found first.
func (t *table) extend(item, amount int) {
	if amount <= 0 || amount > t.limit {
		return
	}
	for s := t.limit - amount; s >= 0; s-- {
		p := t.pieces[s]
		if p < 0 {
			continue
		}
		next := s + amount
		if cur := t.pieces[next]; cur >= 0 && cur <= p+1 {
			continue
		}
		t.links = append(t.links, link{item: item, parent: t.head[s]})
		t.pieces[next] = p + 1
		t.head[next] = len(t.links) - 1
	}
}

func (t *table) reachable(s int) bool {
	return s >= 0 && s <= t.limit && t.pieces[s] >= 0
}

// indices reconstructs the pool indices making up sum s, in pool order.
func (t *table) indices(s int) ([]int, error) {
	if !t.reachable(s) {
		return nil, ErrUnreachableState
	}
	out := make([]int, 0, t.pieces[s])
	for l := t.head[s]; l >= 0; l = t.links[l].parent {
		out = append(out, t.links[l].item)
	}
	if len(out) != t.pieces[s] {
		return nil, ErrUnreachableState
	}
	slices.Reverse(out)
	return out, nil
}
