package pathology

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GMM2 is a two-component univariate Gaussian mixture fitted by EM,
// ordered so that component 1 has the lower mean
type GMM2 struct {
	Mean1, Var1   float64
	Mean2, Var2   float64
	Weight1       float64
	Iterations    int
	LogLikelihood float64
}

const (
	emMaxIterations = 500
	emTolerance     = 1e-10
	varianceFloor   = 1e-12
)

// FitGMM2 fits a two-component Gaussian mixture to scores with a
// deterministic quartile-based initialization, so repeated runs on the same
// data give the same cutoff.
func FitGMM2(scores []float64) (GMM2, error) {
	n := len(scores)
	if n < 4 {
		return GMM2{}, fmt.Errorf("need at least 4 scores to fit a mixture, got %d", n)
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	// Initialize components from the lower and upper halves
	half := n / 2
	m := GMM2{
		Mean1:   stat.Mean(sorted[:half], nil),
		Mean2:   stat.Mean(sorted[half:], nil),
		Var1:    popVariance(sorted),
		Var2:    popVariance(sorted),
		Weight1: 0.5,
	}
	if m.Var1 < varianceFloor {
		return GMM2{}, fmt.Errorf("degenerate score distribution: zero variance")
	}

	resp := make([]float64, n)
	prevLL := math.Inf(-1)

	for iter := 0; iter < emMaxIterations; iter++ {
		d1 := distuv.Normal{Mu: m.Mean1, Sigma: math.Sqrt(m.Var1)}
		d2 := distuv.Normal{Mu: m.Mean2, Sigma: math.Sqrt(m.Var2)}

		// E step: responsibility of component 1 for each score
		ll := 0.0
		for i, x := range scores {
			p1 := m.Weight1 * d1.Prob(x)
			p2 := (1 - m.Weight1) * d2.Prob(x)
			total := p1 + p2
			if total <= 0 {
				resp[i] = 0.5
				total = math.SmallestNonzeroFloat64
			} else {
				resp[i] = p1 / total
			}
			ll += math.Log(total)
		}

		// M step
		var w1, sum1, sum2 float64
		for i, x := range scores {
			w1 += resp[i]
			sum1 += resp[i] * x
			sum2 += (1 - resp[i]) * x
		}
		w2 := float64(n) - w1
		if w1 < varianceFloor || w2 < varianceFloor {
			break
		}
		m.Mean1 = sum1 / w1
		m.Mean2 = sum2 / w2

		var v1, v2 float64
		for i, x := range scores {
			v1 += resp[i] * (x - m.Mean1) * (x - m.Mean1)
			v2 += (1 - resp[i]) * (x - m.Mean2) * (x - m.Mean2)
		}
		m.Var1 = math.Max(v1/w1, varianceFloor)
		m.Var2 = math.Max(v2/w2, varianceFloor)
		m.Weight1 = w1 / float64(n)

		m.Iterations = iter + 1
		m.LogLikelihood = ll
		if math.Abs(ll-prevLL) < emTolerance {
			break
		}
		prevLL = ll
	}

	// Order components by mean
	if m.Mean1 > m.Mean2 {
		m.Mean1, m.Mean2 = m.Mean2, m.Mean1
		m.Var1, m.Var2 = m.Var2, m.Var1
		m.Weight1 = 1 - m.Weight1
	}

	return m, nil
}

// GMMCutoff fits the mixture and returns the density-intersection point
// between the two component means
func GMMCutoff(scores []float64) (float64, error) {
	m, err := FitGMM2(scores)
	if err != nil {
		return 0, err
	}
	cutoff, ok := gaussianIntersection(m.Mean1, m.Var1, m.Mean2, m.Var2)
	if !ok {
		return 0, fmt.Errorf("no density intersection between component means %.4f and %.4f", m.Mean1, m.Mean2)
	}
	return cutoff, nil
}

// gaussianIntersection solves for the point between m1 and m2 where the two
// component densities are equal
func gaussianIntersection(m1, v1, m2, v2 float64) (float64, bool) {
	a := 1/(2*v1) - 1/(2*v2)
	b := m2/v2 - m1/v1
	c := m1*m1/(2*v1) - m2*m2/(2*v2) - math.Log(math.Sqrt(v2/v1))

	var roots []float64
	if math.Abs(a) < 1e-15 {
		// Equal variances: the quadratic degenerates to a line
		if b == 0 {
			return 0, false
		}
		roots = []float64{-c / b}
	} else {
		disc := b*b - 4*a*c
		if disc < 0 {
			return 0, false
		}
		sq := math.Sqrt(disc)
		roots = []float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
	}

	for _, r := range roots {
		if r >= m1 && r <= m2 {
			return r, true
		}
	}
	return 0, false
}

// TwoSDCutoff returns mean + 2·SD of a negative reference sample, using the
// population standard deviation
func TwoSDCutoff(negative []float64) float64 {
	mean := stat.Mean(negative, nil)
	return mean + 2*math.Sqrt(popVariance(negative))
}

// CombinedCutoff averages the GMM and 2SD cutoffs; when the mixture yields
// no usable intersection the 2SD cutoff stands alone.
func CombinedCutoff(scores, negative []float64) (float64, error) {
	if len(negative) == 0 {
		return 0, fmt.Errorf("negative reference sample is empty")
	}
	sd := TwoSDCutoff(negative)

	gmm, err := GMMCutoff(scores)
	if err != nil {
		return sd, nil
	}
	return (gmm + sd) / 2, nil
}

// popVariance is the population (biased) variance
func popVariance(xs []float64) float64 {
	mean := stat.Mean(xs, nil)
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return ss / float64(len(xs))
}
