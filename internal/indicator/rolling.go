package indicator

// slidingMinMax walks indices [from, to) and calls emit with the min and max
// of xs[bounds[i] : i+1]. bounds must be non-decreasing, which holds for
// Window.Bounds. Monotonic index deques make the walk O(to-from) amortized.
func slidingMinMax(xs []float64, bounds []int, from, to int, emit func(i int, lo, hi float64)) {
	if from >= to {
		return
	}
	var minQ, maxQ []int
	minHead, maxHead := 0, 0
	next := bounds[from]
	for i := from; i < to; i++ {
		for ; next <= i; next++ {
			x := xs[next]
			for len(minQ) > minHead && xs[minQ[len(minQ)-1]] >= x {
				minQ = minQ[:len(minQ)-1]
			}
			minQ = append(minQ, next)
			for len(maxQ) > maxHead && xs[maxQ[len(maxQ)-1]] <= x {
				maxQ = maxQ[:len(maxQ)-1]
			}
			maxQ = append(maxQ, next)
		}
		for minQ[minHead] < bounds[i] {
			minHead++
		}
		for maxQ[maxHead] < bounds[i] {
			maxHead++
		}
		emit(i, xs[minQ[minHead]], xs[maxQ[maxHead]])
	}
}

// pctColumn returns xs[i]/xs[i-1]-1 at every i >= 1; index 0 is unused.
func pctColumn(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i]/xs[i-1] - 1
	}
	return out
}
