package pattern

import "sort"

// goldenIndices steps through the vocabulary by the golden ratio.
func goldenIndices(w, n int) []int {
	const phi = 1.618033988749
	out := make([]int, w)
	for i := 0; i < w; i++ {
		out[i] = int(float64(i)*phi) % n
	}
	return out
}

// modularTable selects positions i*(mod+1) mod n for a few small moduli.
func modularTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		var table [][]int
		for _, mod := range []int{3, 5, 7, 11} {
			indices := make([]int, w)
			for i := 0; i < w; i++ {
				indices[i] = (i*mod + i) % n
			}
			table = append(table, indices)
		}
		return table
	}
}

// palindromeTable mirrors the first half of the vocabulary around the
// middle.
func palindromeTable(n, w int) func() [][]int {
	return func() [][]int {
		half := w / 2
		if n < half {
			return nil
		}
		indices := make([]int, 0, w)
		for i := 0; i < half; i++ {
			indices = append(indices, i)
		}
		if w%2 == 1 {
			middle := 0
			if half < n {
				middle = half
			}
			indices = append(indices, middle)
		}
		for i := half - 1; i >= 0; i-- {
			indices = append(indices, i)
		}
		return [][]int{indices}
	}
}

// qwertyOrder is the position sequence of a 24-slot grid read along
// QWERTY rows.
var qwertyOrder = []int{0, 9, 4, 17, 19, 24, 20, 8, 15, 16, 1, 18, 3, 6, 7, 10, 11, 25, 23, 2, 13, 21, 22, 14}

// keyboardTable picks words in keyboard-row order.
func keyboardTable(n, w int) func() [][]int {
	return func() [][]int {
		if n < w {
			return nil
		}
		indices := make([]int, w)
		for i := 0; i < w; i++ {
			if i < len(qwertyOrder) {
				indices[i] = qwertyOrder[i] % n
			} else {
				indices[i] = i % n
			}
		}
		return [][]int{indices}
	}
}

// sortedBy returns vocabulary positions stably ordered by less.
func sortedBy(n int, less func(a, b int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })
	return order
}

// frequencyTable orders the vocabulary by word characteristics: shortest
// words, longest tail, and alphabetical by first letter.
func frequencyTable(words []string, w int) func() [][]int {
	return func() [][]int {
		n := len(words)
		if n < w {
			return nil
		}
		byLen := sortedBy(n, func(a, b int) bool { return len(words[a]) < len(words[b]) })
		byFirst := sortedBy(n, func(a, b int) bool { return words[a][0] < words[b][0] })
		return [][]int{
			byLen[:w],
			byLen[n-w:],
			byFirst[:w],
		}
	}
}

// lengthTable orders by word length in both directions and alternates
// short and long words.
func lengthTable(words []string, w int) func() [][]int {
	return func() [][]int {
		n := len(words)
		if n < w {
			return nil
		}
		shortFirst := sortedBy(n, func(a, b int) bool { return len(words[a]) < len(words[b]) })
		longFirst := sortedBy(n, func(a, b int) bool { return len(words[a]) > len(words[b]) })

		var short, long []int
		for _, i := range shortFirst {
			if len(words[i]) <= 5 {
				short = append(short, i)
			}
		}
		for _, i := range longFirst {
			if len(words[i]) > 5 {
				long = append(long, i)
			}
		}
		alternating := make([]int, 0, w)
		for i := 0; i < w; i++ {
			switch {
			case i%2 == 0 && len(short) > 0:
				alternating = append(alternating, short[0])
				short = short[1:]
			case len(long) > 0:
				alternating = append(alternating, long[0])
				long = long[1:]
			case len(short) > 0:
				alternating = append(alternating, short[0])
				short = short[1:]
			default:
				alternating = append(alternating, i%n)
			}
		}

		return [][]int{
			append([]int{}, shortFirst[:w]...),
			append([]int{}, longFirst[:w]...),
			alternating,
		}
	}
}
