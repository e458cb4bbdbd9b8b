package l2a

import "sort"

// ProjectSimplex projects v onto the probability simplex (non-negative
// components summing to 1) via the O(n log n) algorithm of Duchi et
// al. 2008: sort descending, then for each prefix length k (1-indexed)
// check whether u_k - (cumsum_k - 1)/k stays positive; theta is taken
// at the largest such k, and every component is shifted by theta and
// clamped at 0. The result always sums to 1 by construction.
func ProjectSimplex(v []float64) []float64 {
	n := len(v)
	if n == 0 {
		return nil
	}

	u := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	cumsum := make([]float64, n)
	running := 0.0
	for i, x := range u {
		running += x
		cumsum[i] = running
	}

	theta := 0.0
	for i := 0; i < n; i++ {
		t := (cumsum[i] - 1) / float64(i+1)
		if u[i]-t > 0 {
			theta = t
		}
	}

	w := make([]float64, n)
	for i, x := range v {
		w[i] = x - theta
		if w[i] < 0 {
			w[i] = 0
		}
	}
	return w
}
