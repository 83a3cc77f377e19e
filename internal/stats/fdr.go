package stats

import "sort"

// FDR applies the Benjamini-Hochberg step-up correction to a set of
// p-values and returns the adjusted values in the input order. Adjusted
// values are clamped to 1 and made monotone over the ranked sequence.
func FDR(pvalues []float64) []float64 {
	n := len(pvalues)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return pvalues[order[i]] < pvalues[order[j]]
	})

	adjusted := make([]float64, n)
	running := 1.0
	for rank := n - 1; rank >= 0; rank-- {
		idx := order[rank]
		q := pvalues[idx] * float64(n) / float64(rank+1)
		if q < running {
			running = q
		}
		adjusted[idx] = running
	}
	return adjusted
}

// Significant returns the indices whose adjusted p-value is below alpha
func Significant(adjusted []float64, alpha float64) []int {
	var idx []int
	for i, q := range adjusted {
		if q < alpha {
			idx = append(idx, i)
		}
	}
	return idx
}
