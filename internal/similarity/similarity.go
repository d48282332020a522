package similarity

// Ratio computes a normalized similarity between two strings: twice the
// length of their longest common subsequence divided by the combined
// length. The result is in [0,1], 1.0 only for identical strings, and is
// symmetric in its arguments. Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra)+len(rb) == 0 {
		return 1.0
	}

	matches := lcsLength(ra, rb)
	return 2.0 * float64(matches) / float64(len(ra)+len(rb))
}

// lcsLength computes the longest common subsequence length with a
// two-row DP table.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
