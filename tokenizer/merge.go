package tokenizer

// MergeOnce performs a single merge round on seq: it finds the adjacent
// pair with the lowest merged code and replaces every non-overlapping
// occurrence of that pair, left to right. It reports false, and returns seq
// unchanged, when no adjacent pair is in the vocabulary.
//
// seq is modified in place.
func MergeOnce(seq []Symbol, v *Vocabulary) ([]Symbol, bool) {
	var target Pair
	var rank Symbol
	found := false
	for i := 0; i+1 < len(seq); i++ {
		p := Pair{seq[i], seq[i+1]}
		if s, ok := v.Lookup(p); ok && (!found || s < rank) {
			target, rank, found = p, s, true
		}
	}

	if !found {
		return seq, false
	}

	return replacePair(seq, target, rank), true
}

// Merge applies MergeOnce until seq reaches a fixed point. This is the
// reference merge order every other merge implementation must reproduce.
func Merge(seq []Symbol, v *Vocabulary) []Symbol {
	for {
		var merged bool
		if seq, merged = MergeOnce(seq, v); !merged {
			return seq
		}
	}
}

// replacePair replaces each non-overlapping occurrence of p in seq with s in
// a single left-to-right pass. The element consumed by a merge cannot start
// another merge in the same pass.
func replacePair(seq []Symbol, p Pair, s Symbol) []Symbol {
	w := 0
	for i := 0; i < len(seq); i++ {
		if i+1 < len(seq) && seq[i] == p.Left && seq[i+1] == p.Right {
			seq[w] = s
			i++
		} else {
			seq[w] = seq[i]
		}
		w++
	}

	return seq[:w]
}

// mostFrequentPair counts every adjacent pair in seq and returns the one
// with the highest count. Ties go to the smallest pair in (Left, Right)
// order so that training is reproducible.
func mostFrequentPair(seq []Symbol) (Pair, int, bool) {
	if len(seq) < 2 {
		return Pair{}, 0, false
	}

	counts := make(map[Pair]int)
	for i := 0; i+1 < len(seq); i++ {
		counts[Pair{seq[i], seq[i+1]}]++
	}

	var best Pair
	var count int
	for p, n := range counts {
		if n > count || (n == count && p.Compare(best) < 0) {
			best, count = p, n
		}
	}

	return best, count, true
}
