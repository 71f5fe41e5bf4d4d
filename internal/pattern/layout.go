package pattern

// Layout builders. Each returns the full table of index sequences for a
// finite geometric or card-writing family; a vocabulary that cannot
// support the layout yields an empty table and the strategy is skipped.

func identity(w int) []int {
	indices := make([]int, w)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func reversed(indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[len(indices)-1-i] = idx
	}
	return out
}

// zigzagTable alternates between the two ends of the vocabulary, from
// either direction.
func zigzagTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		var table [][]int
		for _, fromEnd := range []bool{false, true} {
			indices := make([]int, 0, w)
			left, right := 0, n-1
			for i := 0; i < w && left <= right; i++ {
				if (i%2 == 0) != fromEnd {
					indices = append(indices, left)
					left++
				} else {
					indices = append(indices, right)
					right--
				}
			}
			if len(indices) == w {
				table = append(table, indices)
			}
		}
		return table
	}
}

// spiralTable walks outward from the vocabulary's center, alternating
// sides.
func spiralTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		center := n / 2
		indices := []int{center}
		for offset := 1; len(indices) < w && offset <= center; offset++ {
			for _, pos := range []int{center - offset, center + offset} {
				if pos >= 0 && pos < n && len(indices) < w {
					indices = append(indices, pos)
				}
			}
		}
		if len(indices) != w {
			return nil
		}
		return [][]int{indices}
	}
}

// mirrorTable reflects the first half into the second, plus the full
// prefix reversed.
func mirrorTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		var table [][]int
		half := w / 2
		if half*2 == w {
			indices := make([]int, 0, w)
			for i := 0; i < half; i++ {
				indices = append(indices, i)
			}
			for i := 2*half - 1; i >= half; i-- {
				indices = append(indices, i)
			}
			table = append(table, indices)
		}
		table = append(table, reversed(identity(w)))
		return table
	}
}

// halfReverseTable reverses one half of the phrase, or alternating 4-word
// chunks.
func halfReverseTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		half := w / 2
		straight := identity(w)

		forward := append(append([]int{}, straight[:half]...), reversed(straight[half:])...)
		backward := append(reversed(straight[:half]), straight[half:]...)

		chunked := make([]int, 0, w)
		for i := 0; i < w; i += 4 {
			end := i + 4
			if end > w {
				end = w
			}
			chunk := straight[i:end]
			if (i/4)%2 == 1 {
				chunk = reversed(chunk)
			}
			chunked = append(chunked, chunk...)
		}

		return [][]int{forward, backward, chunked}
	}
}

// rotationTable rotates the phrase prefix by quarters and thirds.
func rotationTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		var table [][]int
		seen := map[int]bool{0: true}
		for _, amount := range []int{w / 4, w / 2, 3 * w / 4, w / 3, 2 * w / 3} {
			if amount <= 0 || amount >= w || seen[amount] {
				continue
			}
			seen[amount] = true
			indices := make([]int, w)
			for i := range indices {
				indices[i] = (amount + i) % w
			}
			table = append(table, indices)
		}
		return table
	}
}

// columnTable lays the phrase out in two or four columns and reads them
// back in different orders.
func columnTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		var table [][]int

		if w%2 == 0 {
			half := w / 2
			interleave := make([]int, 0, w)
			revInterleave := make([]int, 0, w)
			colZigzag := make([]int, 0, w)
			revColZigzag := make([]int, 0, w)
			for i := 0; i < half; i++ {
				interleave = append(interleave, i, half+i)
				revInterleave = append(revInterleave, half+i, i)
				colZigzag = append(colZigzag, i, w-1-i)
				revColZigzag = append(revColZigzag, half+i, half-1-i)
			}
			straight := identity(w)
			table = append(table,
				interleave,
				revInterleave,
				append(append([]int{}, straight[:half]...), reversed(straight[half:])...),
				append(reversed(straight[:half]), straight[half:]...),
				append(reversed(straight[:half]), reversed(straight[half:])...),
				colZigzag,
				revColZigzag,
			)
		}

		if w%4 == 0 {
			q := w / 4
			roundRobin := make([]int, 0, w)
			revRoundRobin := make([]int, 0, w)
			for i := 0; i < q; i++ {
				roundRobin = append(roundRobin, i, q+i, 2*q+i, 3*q+i)
				revRoundRobin = append(revRoundRobin, 3*q+i, 2*q+i, q+i, i)
			}
			pairs := make([]int, 0, w)
			diagonal := make([]int, 0, w)
			for _, c := range []int{0, 2, 1, 3} {
				for i := 0; i < q; i++ {
					pairs = append(pairs, c*q+i)
				}
			}
			for _, c := range []int{0, 3, 1, 2} {
				for i := 0; i < q; i++ {
					diagonal = append(diagonal, c*q+i)
				}
			}
			table = append(table, roundRobin, revRoundRobin, pairs, diagonal)
		}
		return table
	}
}

// chunkReverseTable reverses selective chunks of the phrase: alternating
// 6-word and 4-word chunks, the 8-word halves, and every third 3-word
// chunk.
func chunkReverseTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		straight := identity(w)
		var table [][]int

		chunksOf := func(size int) [][]int {
			var chunks [][]int
			for i := 0; i < w; i += size {
				end := i + size
				if end > w {
					end = w
				}
				chunks = append(chunks, straight[i:end])
			}
			return chunks
		}
		flatten := func(chunks [][]int, rev func(i, total int) bool) []int {
			out := make([]int, 0, w)
			for i, chunk := range chunks {
				if rev(i, len(chunks)) {
					out = append(out, reversed(chunk)...)
				} else {
					out = append(out, chunk...)
				}
			}
			return out
		}

		if w%6 == 0 {
			chunks := chunksOf(6)
			table = append(table,
				flatten(chunks, func(i, _ int) bool { return i%2 == 1 }),
				flatten(chunks, func(i, _ int) bool { return i%2 == 0 }),
				flatten(chunks, func(i, _ int) bool { return i != 0 }),
				flatten(chunks, func(i, total int) bool { return i != total-1 }),
			)
		}
		if w%4 == 0 {
			table = append(table, flatten(chunksOf(4), func(i, _ int) bool { return i%2 == 1 }))
		}
		if w >= 16 {
			indices := append(append([]int{}, straight[:8]...), reversed(straight[8:16])...)
			indices = append(indices, straight[16:]...)
			table = append(table, indices)
		}
		if w%3 == 0 {
			table = append(table, flatten(chunksOf(3), func(i, _ int) bool { return (i+1)%3 == 0 }))
		}
		return table
	}
}

// ledgerCardTable covers slips of the pen on a two-column recovery card:
// first and last words swapped, or the odd positions written before the
// even ones.
func ledgerCardTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w || w < 2 {
			return nil
		}
		swapped := identity(w)
		swapped[0], swapped[w-1] = swapped[w-1], swapped[0]

		odds := make([]int, 0, w)
		evens := make([]int, 0, w)
		for i := 0; i < w; i++ {
			if i%2 == 0 {
				odds = append(odds, i)
			} else {
				evens = append(evens, i)
			}
		}
		return [][]int{
			swapped,
			append(append([]int{}, odds...), evens...),
			append(append([]int{}, evens...), odds...),
		}
	}
}

// twoColumnTable reads a card's left and right columns in both orders and
// interleaved both ways.
func twoColumnTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		half := w / 2
		straight := identity(w)
		table := [][]int{
			straight,
			append(append([]int{}, straight[half:]...), straight[:half]...),
		}
		if w%2 == 0 {
			interleave := make([]int, 0, w)
			revInterleave := make([]int, 0, w)
			for i := 0; i < half; i++ {
				interleave = append(interleave, i, half+i)
				revInterleave = append(revInterleave, half+i, i)
			}
			table = append(table, interleave, revInterleave)
		}
		return table
	}
}

// cardSequenceTable reorders the quarters of the phrase, plus the 6-word
// display groups of a 24-word card.
func cardSequenceTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w || w < 4 {
			return nil
		}
		q := w / 4
		bounds := []int{0, q, 2 * q, 3 * q, w}
		quarter := func(i int) []int {
			out := make([]int, 0, q)
			for p := bounds[i]; p < bounds[i+1]; p++ {
				out = append(out, p)
			}
			return out
		}

		var table [][]int
		for _, order := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {0, 2, 1, 3}, {0, 3, 1, 2}} {
			indices := make([]int, 0, w)
			for _, qi := range order {
				indices = append(indices, quarter(qi)...)
			}
			table = append(table, indices)
		}

		if w == 24 {
			straight := identity(w)
			forward := make([]int, 0, w)
			backward := make([]int, 0, w)
			for g := 0; g < 4; g++ {
				forward = append(forward, straight[g*6:(g+1)*6]...)
				backward = append(backward, straight[(3-g)*6:(4-g)*6]...)
			}
			table = append(table, forward, backward)
		}
		return table
	}
}

// cardDisplayTable reorders the three 8-word device screens of a 24-word
// phrase and adds the spiral card-writing order.
func cardDisplayTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w || w != 24 {
			return nil
		}
		straight := identity(w)
		screen := func(i int) []int { return straight[i*8 : (i+1)*8] }

		var table [][]int
		for _, order := range [][]int{{0, 1, 2}, {2, 1, 0}, {0, 2, 1}, {1, 0, 2}} {
			indices := make([]int, 0, w)
			for _, si := range order {
				indices = append(indices, screen(si)...)
			}
			table = append(table, indices)
		}

		// Writing positions traced around the card's border, then inward.
		spiral := []int{
			0, 1, 2, 3, 4, 5,
			11, 17, 23,
			22, 21, 20, 19, 18,
			12, 6,
			7, 8, 9, 10, 16, 15, 14, 13,
		}
		table = append(table, spiral)
		return table
	}
}

// cardSwapTable covers common transcription swaps: adjacent pairs, whole
// columns, the ends of each half, per-column reversal, and the diagonal
// read.
func cardSwapTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w || w < 2 {
			return nil
		}
		var table [][]int
		half := w / 2

		pairSwapped := identity(w)
		for i := 0; i+1 < w; i += 2 {
			pairSwapped[i], pairSwapped[i+1] = pairSwapped[i+1], pairSwapped[i]
		}
		table = append(table, pairSwapped)

		if w%2 == 0 {
			colSwapped := identity(w)
			for i := 0; i < half; i++ {
				colSwapped[i], colSwapped[i+half] = colSwapped[i+half], colSwapped[i]
			}
			table = append(table, colSwapped)
		}

		if w >= 4 {
			halfSwapped := identity(w)
			halfSwapped[0], halfSwapped[half-1] = halfSwapped[half-1], halfSwapped[0]
			halfSwapped[half], halfSwapped[w-1] = halfSwapped[w-1], halfSwapped[half]
			table = append(table, halfSwapped)
		}

		if w%2 == 0 {
			straight := identity(w)
			table = append(table, append(reversed(straight[:half]), reversed(straight[half:])...))

			diagonal := make([]int, 0, w)
			for i := 0; i < half; i++ {
				if i%2 == 0 {
					diagonal = append(diagonal, i)
				} else {
					diagonal = append(diagonal, i+half)
				}
			}
			for i := 0; i < half; i++ {
				if i%2 == 1 {
					diagonal = append(diagonal, i)
				} else {
					diagonal = append(diagonal, i+half)
				}
			}
			table = append(table, diagonal)
		}
		return table
	}
}
