package analysis

import (
	"math"
	"sort"
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func median(xs []float64) float64 {
	return quantile(xs, 0.5)
}

// quantile uses linear interpolation between order statistics, the
// same method pandas uses by default.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// skewness computes the population skewness (Fisher-Pearson).
func skewness(xs []float64) float64 {
	if len(xs) < 3 {
		return 0
	}
	m := mean(xs)
	var m2, m3 float64
	for _, x := range xs {
		d := x - m
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(xs))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// countOutliersIQR counts values outside 1.5 IQR of the quartiles.
func countOutliersIQR(xs []float64) int {
	if len(xs) == 0 {
		return 0
	}
	q1 := quantile(xs, 0.25)
	q3 := quantile(xs, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	count := 0
	for _, x := range xs {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}

// pearson computes the correlation coefficient over paired values.
// Pairs where either side is NaN are skipped.
func pearson(xs, ys []float64) float64 {
	n := min(len(xs), len(ys))
	var sx, sy, sxx, syy, sxy float64
	count := 0
	for i := range n {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
		count++
	}
	if count < 2 {
		return 0
	}
	fn := float64(count)
	cov := sxy - sx*sy/fn
	vx := sxx - sx*sx/fn
	vy := syy - sy*sy/fn
	if vx <= 0 || vy <= 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// cramersV computes the bias-corrected Cramér's V association between
// two categorical columns.
func cramersV(a, b *Column) float64 {
	table := make(map[string]map[string]int)
	rowTotals := make(map[string]int)
	colTotals := make(map[string]int)
	n := 0

	for i := range min(len(a.Values), len(b.Values)) {
		av, bv := a.Values[i], b.Values[i]
		if isMissing(av) || isMissing(bv) {
			continue
		}
		if table[av] == nil {
			table[av] = make(map[string]int)
		}
		table[av][bv]++
		rowTotals[av]++
		colTotals[bv]++
		n++
	}
	if n < 2 || len(rowTotals) < 2 || len(colTotals) < 2 {
		return 0
	}

	chi2 := 0.0
	for av, row := range table {
		for bv := range colTotals {
			expected := float64(rowTotals[av]) * float64(colTotals[bv]) / float64(n)
			if expected == 0 {
				continue
			}
			d := float64(row[bv]) - expected
			chi2 += d * d / expected
		}
	}

	fn := float64(n)
	r := float64(len(rowTotals))
	k := float64(len(colTotals))
	phi2 := chi2 / fn
	phi2corr := math.Max(0, phi2-((k-1)*(r-1))/(fn-1))
	rcorr := r - (r-1)*(r-1)/(fn-1)
	kcorr := k - (k-1)*(k-1)/(fn-1)
	denom := math.Min(kcorr-1, rcorr-1)
	if denom <= 0 {
		return 0
	}
	return math.Sqrt(phi2corr / denom)
}
