// Package stats provides the group-comparison statistics used across the
// pipeline: two-sample t-tests, covariate-adjusted linear models, and
// false-discovery-rate correction.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult holds a two-sample comparison
type TTestResult struct {
	T  float64
	DF float64
	P  float64
}

// TTest runs a pooled-variance two-sample t-test of a against b and returns
// the statistic with its two-sided p-value.
func TTest(a, b []float64) (TTestResult, error) {
	na, nb := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, fmt.Errorf("t-test needs at least 2 samples per group, got %d and %d", len(a), len(b))
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)

	df := na + nb - 2
	pooled := ((na-1)*varA + (nb-1)*varB) / df
	if pooled <= 0 {
		return TTestResult{}, fmt.Errorf("t-test pooled variance is zero")
	}

	tStat := (meanA - meanB) / math.Sqrt(pooled*(1/na+1/nb))
	return TTestResult{T: tStat, DF: df, P: twoSidedP(tStat, df)}, nil
}

// twoSidedP converts a t statistic to its two-sided p-value
func twoSidedP(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}
