package pattern

import (
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
)

// exactStrategy uses the vocabulary as-is when its length already matches
// the target, plus the reversed order. Ordinal 0 is the forward sequence,
// ordinal 1 the reversal.
type exactStrategy struct{ n, w int }

func (exactStrategy) ID() string { return "exact" }

func (s exactStrategy) At(ord uint64) ([]int, bool) {
	if s.n != s.w || ord > 1 {
		return nil, false
	}
	indices := make([]int, s.w)
	for i := range indices {
		if ord == 0 {
			indices[i] = i
		} else {
			indices[i] = s.w - 1 - i
		}
	}
	return indices, true
}

// windowStrategy slides a length-w window over the vocabulary, stepping by
// one and wrapping at the end. Even ordinals are forward windows, odd
// ordinals the reversal of the preceding window.
type windowStrategy struct{ n, w int }

func (windowStrategy) ID() string { return "window" }

func (s windowStrategy) At(ord uint64) ([]int, bool) {
	if s.n <= s.w {
		return nil, false
	}
	start := int(ord / 2)
	if start >= s.n {
		return nil, false
	}
	indices := make([]int, s.w)
	for i := 0; i < s.w; i++ {
		indices[i] = (start + i) % s.n
	}
	if ord%2 == 1 {
		reverse(indices)
	}
	return indices, true
}

// splitStrategy joins the first N words with the last w-N words, for each
// N in [1, w-1]. Ordinal ord selects N = ord+1.
type splitStrategy struct{ n, w int }

func (splitStrategy) ID() string { return "split" }

func (s splitStrategy) At(ord uint64) ([]int, bool) {
	if s.n < s.w {
		return nil, false
	}
	split := int(ord) + 1
	if split > s.w-1 {
		return nil, false
	}
	indices := make([]int, 0, s.w)
	for i := 0; i < split; i++ {
		indices = append(indices, i)
	}
	for i := s.n - (s.w - split); i < s.n; i++ {
		indices = append(indices, i)
	}
	return indices, true
}

// interleaveStrategy takes every k-th word starting at offset o, wrapping,
// for small (k, o) pairs until w words are collected.
type interleaveStrategy struct{ n, w int }

func (interleaveStrategy) ID() string { return "interleave" }

func (s interleaveStrategy) At(ord uint64) ([]int, bool) {
	if s.n < s.w {
		return nil, false
	}
	// Enumerate (k, o) pairs in a fixed order: k = 2..5, o = 0..k-1.
	var seen uint64
	for k := 2; k <= 5; k++ {
		for o := 0; o < k; o++ {
			if seen == ord {
				indices := make([]int, s.w)
				for i := 0; i < s.w; i++ {
					indices[i] = (o + i*k) % s.n
				}
				return indices, true
			}
			seen++
		}
	}
	return nil, false
}

// chunkStrategy partitions the vocabulary into w contiguous chunks and
// takes one representative per chunk. The ordinal rotates the position of
// the representative inside its chunk.
type chunkStrategy struct{ n, w int }

func (chunkStrategy) ID() string { return "chunk" }

func (s chunkStrategy) At(ord uint64) ([]int, bool) {
	chunkSize := s.n / s.w
	if chunkSize < 1 || ord >= uint64(chunkSize) {
		return nil, false
	}
	indices := make([]int, s.w)
	for i := 0; i < s.w; i++ {
		indices[i] = (i*chunkSize + int(ord)) % s.n
	}
	return indices, true
}

// formulaStrategy selects words at positions given by a mathematical index
// sequence modulo the vocabulary length. The base index table is computed
// lazily once; the ordinal shifts every position by a rotating offset so a
// formula yields up to n distinct candidates.
type formulaStrategy struct {
	id      string
	n, w    int
	formula func(w, n int) []int

	once sync.Once
	base []int
}

func newFormulaStrategy(id string, n, w int, formula func(w, n int) []int) *formulaStrategy {
	return &formulaStrategy{id: id, n: n, w: w, formula: formula}
}

func (s *formulaStrategy) ID() string { return s.id }

func (s *formulaStrategy) At(ord uint64) ([]int, bool) {
	if s.n < s.w || ord >= uint64(s.n) {
		return nil, false
	}
	s.once.Do(func() { s.base = s.formula(s.w, s.n) })
	indices := make([]int, s.w)
	for i := 0; i < s.w; i++ {
		indices[i] = (s.base[i] + int(ord)) % s.n
	}
	return indices, true
}

func fibonacciIndices(w, n int) []int {
	out := make([]int, w)
	a, b := 0, 1
	for i := 0; i < w; i++ {
		out[i] = a % n
		a, b = b, (a+b)%n
	}
	return out
}

func lucasIndices(w, n int) []int {
	out := make([]int, w)
	a, b := 2, 1
	for i := 0; i < w; i++ {
		out[i] = a % n
		a, b = b, (a+b)%n
	}
	return out
}

func primeIndices(w, n int) []int {
	out := make([]int, 0, w)
	for p := 2; len(out) < w; p++ {
		isPrime := true
		for d := 2; d*d <= p; d++ {
			if p%d == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			out = append(out, p%n)
		}
	}
	return out
}

func triangularIndices(w, n int) []int {
	out := make([]int, w)
	for i := 0; i < w; i++ {
		out[i] = (i * (i + 1) / 2) % n
	}
	return out
}

// tableStrategy serves a finite set of precomputed index sequences. The
// builder runs once, lazily; ordinals walk the table in order. Dimension
// guards live in the builders, which return an empty table when the
// vocabulary cannot support the layout.
type tableStrategy struct {
	id    string
	build func() [][]int

	once  sync.Once
	table [][]int
}

func newTableStrategy(id string, build func() [][]int) *tableStrategy {
	return &tableStrategy{id: id, build: build}
}

func (s *tableStrategy) ID() string { return s.id }

func (s *tableStrategy) At(ord uint64) ([]int, bool) {
	s.once.Do(func() { s.table = s.build() })
	if ord >= uint64(len(s.table)) {
		return nil, false
	}
	return s.table[ord], true
}

// sampleStrategy draws w distinct positions with a PRNG seeded from the
// pattern id and ordinal, so any (seed, ordinal) pair reproduces the same
// candidate on every run. The strategy itself is unbounded; the generator
// applies the configured sample cap.
type sampleStrategy struct{ n, w int }

func (sampleStrategy) ID() string { return "sample" }

func (s sampleStrategy) At(ord uint64) ([]int, bool) {
	if s.n < s.w {
		return nil, false
	}
	rng := rand.New(rand.NewSource(sampleSeed(s.ID(), ord)))
	return rng.Perm(s.n)[:s.w], true
}

func sampleSeed(id string, ord uint64) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	h.Write([]byte(strconv.FormatUint(ord, 10)))
	return int64(h.Sum64())
}

func reverse(indices []int) {
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
	}
}
