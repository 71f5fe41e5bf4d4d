package pattern

import "math/big"

// Exhaustive fallback modes.
const (
	ModeCombinations = "combinations"
	ModePermutations = "permutations"
)

// exhaustiveStrategy enumerates the full candidate space in lexicographic
// order by unranking the ordinal. In combinations mode the ordinal is a
// mixed-radix (base n) number giving w digits; in permutations mode it is a
// factorial-number-system index selecting from the remaining positions.
//
// The space is finite (n^w or n!/(n-w)!), so the ordinal wraps modulo the
// space size. That keeps the strategy inexhaustible for every n >= 2 and
// w >= 1, which is what lets the generator promise it never reports global
// exhaustion.
type exhaustiveStrategy struct {
	n, w  int
	mode  string
	space *big.Int
}

func newExhaustiveStrategy(n, w int, mode string) *exhaustiveStrategy {
	s := &exhaustiveStrategy{n: n, w: w, mode: mode}
	switch mode {
	case ModePermutations:
		// Falling factorial n * (n-1) * ... * (n-w+1).
		space := big.NewInt(1)
		for i := 0; i < w && n-i > 0; i++ {
			space.Mul(space, big.NewInt(int64(n-i)))
		}
		s.space = space
	default:
		s.space = new(big.Int).Exp(big.NewInt(int64(n)), big.NewInt(int64(w)), nil)
	}
	return s
}

func (s *exhaustiveStrategy) ID() string { return "exhaustive" }

func (s *exhaustiveStrategy) At(ord uint64) ([]int, bool) {
	if s.n < 1 || s.w < 1 {
		return nil, false
	}
	if s.mode == ModePermutations && s.n < s.w {
		return nil, false
	}
	rank := new(big.Int).SetUint64(ord)
	rank.Mod(rank, s.space)

	if s.mode == ModePermutations {
		return s.unrankPermutation(rank), true
	}
	return s.unrankCombination(rank), true
}

// unrankCombination decodes rank as w base-n digits, most significant
// first, so successive ordinals walk the space lexicographically.
func (s *exhaustiveStrategy) unrankCombination(rank *big.Int) []int {
	indices := make([]int, s.w)
	base := big.NewInt(int64(s.n))
	digit := new(big.Int)
	for i := s.w - 1; i >= 0; i-- {
		rank.DivMod(rank, base, digit)
		indices[i] = int(digit.Int64())
	}
	return indices
}

// unrankPermutation decodes rank in the factorial number system over the
// shrinking list of unused positions.
func (s *exhaustiveStrategy) unrankPermutation(rank *big.Int) []int {
	remaining := make([]int, s.n)
	for i := range remaining {
		remaining[i] = i
	}

	// Radices for position i: n-i choices remain, and the weight of a
	// choice at position i is the falling factorial of the suffix.
	weights := make([]*big.Int, s.w)
	acc := big.NewInt(1)
	for i := s.w - 1; i >= 0; i-- {
		weights[i] = new(big.Int).Set(acc)
		acc.Mul(acc, big.NewInt(int64(s.n-i)))
	}

	indices := make([]int, s.w)
	pos := new(big.Int)
	for i := 0; i < s.w; i++ {
		pos.Div(rank, weights[i])
		rank.Mod(rank, weights[i])
		p := int(pos.Int64())
		indices[i] = remaining[p]
		remaining = append(remaining[:p], remaining[p+1:]...)
	}
	return indices
}
