package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GroupModelResult holds the group-effect coefficient from a
// covariate-adjusted linear model
type GroupModelResult struct {
	Beta float64
	SE   float64
	T    float64
	DF   float64
	P    float64
	N    int
}

// GroupEffect fits outcome ~ intercept + group + covariates by least squares
// and returns the group coefficient with its t statistic and two-sided
// p-value. group entries are 0/1 membership indicators. Rows with a NaN in
// the outcome, group, or any covariate are dropped before fitting. With
// standardize set, the outcome and covariates are z-scored first so the
// group beta reads as a standardized effect.
func GroupEffect(outcome, group []float64, covariates [][]float64, standardize bool) (GroupModelResult, error) {
	n := len(outcome)
	if len(group) != n {
		return GroupModelResult{}, fmt.Errorf("outcome has %d rows but group has %d", n, len(group))
	}
	for c, cov := range covariates {
		if len(cov) != n {
			return GroupModelResult{}, fmt.Errorf("outcome has %d rows but covariate %d has %d", n, c, len(cov))
		}
	}

	keep := make([]int, 0, n)
next:
	for i := 0; i < n; i++ {
		if math.IsNaN(outcome[i]) || math.IsNaN(group[i]) {
			continue
		}
		for _, cov := range covariates {
			if math.IsNaN(cov[i]) {
				continue next
			}
		}
		keep = append(keep, i)
	}

	rows := len(keep)
	cols := 2 + len(covariates)
	df := float64(rows - cols)
	if df < 1 {
		return GroupModelResult{}, fmt.Errorf("model with %d terms needs more than %d complete rows", cols, rows)
	}

	y := make([]float64, rows)
	for r, i := range keep {
		y[r] = outcome[i]
	}
	if standardize {
		zscore(y)
	}

	x := mat.NewDense(rows, cols, nil)
	for r, i := range keep {
		x.Set(r, 0, 1)
		x.Set(r, 1, group[i])
	}
	for c, cov := range covariates {
		col := make([]float64, rows)
		for r, i := range keep {
			col[r] = cov[i]
		}
		if standardize {
			zscore(col)
		}
		x.SetCol(2+c, col)
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(rows, y)); err != nil {
		return GroupModelResult{}, fmt.Errorf("least squares solve: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var rss float64
	for r := 0; r < rows; r++ {
		resid := y[r] - fitted.AtVec(r)
		rss += resid * resid
	}
	sigma2 := rss / df

	var xtx, inv mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		return GroupModelResult{}, fmt.Errorf("design matrix is singular: %w", err)
	}

	se := math.Sqrt(sigma2 * inv.At(1, 1))
	if se == 0 {
		return GroupModelResult{}, fmt.Errorf("group coefficient has zero standard error")
	}

	b := beta.AtVec(1)
	tStat := b / se
	return GroupModelResult{
		Beta: b,
		SE:   se,
		T:    tStat,
		DF:   df,
		P:    twoSidedP(tStat, df),
		N:    rows,
	}, nil
}

// zscore standardizes xs in place; a zero-spread column is left centered
func zscore(xs []float64) {
	mean, std := stat.MeanStdDev(xs, nil)
	for i := range xs {
		xs[i] -= mean
	}
	if std == 0 || math.IsNaN(std) {
		return
	}
	for i := range xs {
		xs[i] /= std
	}
}
