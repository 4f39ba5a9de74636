package tokenizer

import (
	"cmp"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
)

// candidate is a mergeable adjacent pair found at some point during
// mergeHeap. It goes stale once either piece it refers to changes.
type candidate struct {
	rank        Symbol
	left, right int
	pair        Pair
}

// piece is a node in the doubly linked list of symbols being merged. Merges
// always fold the right piece into the left one.
type piece struct {
	symbol     Symbol
	prev, next int
	dead       bool
}

// mergeHeap produces the same result as Merge but replaces the repeated
// full scans with a priority queue ordered by (rank, position). Every pair
// created by a merge contains the merged symbol and so ranks strictly above
// it, which lets all occurrences of one rank drain left to right before any
// higher rank is considered.
func mergeHeap(seq []Symbol, v *Vocabulary) []Symbol {
	if len(seq) < 2 {
		return seq
	}

	pieces := make([]piece, len(seq))
	for i, s := range seq {
		pieces[i] = piece{symbol: s, prev: i - 1, next: i + 1}
	}
	pieces[len(pieces)-1].next = -1

	pairs := heap.NewWith(func(a, b *candidate) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.left, b.left)
	})

	pairwise := func(i, j int) *candidate {
		if i < 0 || j < 0 {
			return nil
		}

		p := Pair{pieces[i].symbol, pieces[j].symbol}
		rank, ok := v.Lookup(p)
		if !ok {
			return nil
		}

		return &candidate{rank: rank, left: i, right: j, pair: p}
	}

	for i := 0; i+1 < len(pieces); i++ {
		if c := pairwise(i, i+1); c != nil {
			pairs.Push(c)
		}
	}

	for !pairs.Empty() {
		c, _ := pairs.Pop()

		left, right := &pieces[c.left], &pieces[c.right]
		if left.dead || right.dead || left.next != c.right ||
			left.symbol != c.pair.Left || right.symbol != c.pair.Right {
			continue
		}

		left.symbol = c.rank
		left.next = right.next
		if right.next >= 0 {
			pieces[right.next].prev = c.left
		}
		right.dead = true

		if next := pairwise(left.prev, c.left); next != nil {
			pairs.Push(next)
		}

		if next := pairwise(c.left, left.next); next != nil {
			pairs.Push(next)
		}
	}

	out := seq[:0]
	for i := 0; i >= 0; i = pieces[i].next {
		out = append(out, pieces[i].symbol)
	}

	return out
}
