package indicator

import "math"

// Window kernels. Each one is a tight loop over a contiguous slice and is
// shared by the causal and the vectorized path, which is what keeps the two
// paths bit-for-bit identical.

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// ewmAdjusted is the bias-corrected exponential average of xs: every term is
// weighted by (1-alpha)^age and the result is divided by the sum of weights.
func ewmAdjusted(xs []float64, alpha float64) float64 {
	decay := 1 - alpha
	var num, den float64
	for _, x := range xs {
		num = num*decay + x
		den = den*decay + 1
	}
	return num / den
}

// sampleStd returns the n-1 standard deviation; len(xs) must be at least 2.
func sampleStd(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// pctChanges writes xs[i]/xs[i-1]-1 for i >= 1 into dst and returns it.
func pctChanges(dst, xs []float64) []float64 {
	dst = dst[:0]
	for i := 1; i < len(xs); i++ {
		dst = append(dst, xs[i]/xs[i-1]-1)
	}
	return dst
}

// gainLoss sums the positive and the absolute negative first differences.
func gainLoss(xs []float64) (gain, loss float64) {
	for i := 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		if d > 0 {
			gain += d
		} else if d < 0 {
			loss -= d
		}
	}
	return gain, loss
}

// segmentRangeMean splits xs into min(len, segments) contiguous parts, the
// first len%k parts one element longer, and averages the part ranges
// (max - min, which always brackets the part's first element).
func segmentRangeMean(xs []float64, segments int) float64 {
	n := len(xs)
	k := segments
	if n < k {
		k = n
	}
	base, extra := n/k, n%k
	var total float64
	pos := 0
	for p := 0; p < k; p++ {
		size := base
		if p < extra {
			size++
		}
		part := xs[pos : pos+size]
		lo, hi := part[0], part[0]
		for _, x := range part[1:] {
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		total += hi - lo
		pos += size
	}
	return total / float64(k)
}

// stochastic is 100*(last-min)/(max-min), or the neutral 50 for a flat window.
func stochastic(last, lo, hi float64) float64 {
	if hi == lo {
		return 50
	}
	return 100 * (last - lo) / (hi - lo)
}

// rsi is 100-100/(1+gain/loss), or the neutral 50 when nothing was lost.
func rsi(gain, loss float64) float64 {
	if loss == 0 {
		return 50
	}
	return 100 - 100/(1+gain/loss)
}
