package trajectory

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"tautrack/internal/cohort"
)

// SampleRates computes one annualized rate sample per consecutive
// same-subject observation pair, located at the pair's midpoint value.
// Subjects with a single observation contribute nothing here but remain
// eligible for projection once the trajectory exists. Pairs with no age
// separation are skipped.
func SampleRates(subjects []cohort.Subject) []RateSample {
	var samples []RateSample
	for _, subject := range subjects {
		obs := subject.Observations
		for i := 1; i < len(obs); i++ {
			dt := obs[i].Age - obs[i-1].Age
			if dt <= 0 {
				continue
			}
			samples = append(samples, RateSample{
				SubjectID: subject.ID,
				Value:     (obs[i].Value + obs[i-1].Value) / 2,
				Rate:      (obs[i].Value - obs[i-1].Value) / dt,
			})
		}
	}
	return samples
}

// EstimateRateCurve smooths pooled rate samples into a rate curve over a
// regular value grid using kernel-weighted local linear regression. Grid
// points with fewer than MinSupport samples within one bandwidth carry no
// estimate. Grid points are independent and are estimated concurrently;
// the result does not depend on scheduling.
func EstimateRateCurve(ctx context.Context, samples []RateSample, p Params) (RateCurve, error) {
	if len(samples) == 0 {
		return RateCurve{}, fmt.Errorf("no rate samples: need subjects with at least two observations")
	}
	if p.Bandwidth <= 0 || p.GridStep <= 0 {
		return RateCurve{}, fmt.Errorf("bandwidth and grid step must be positive")
	}

	lo, hi := samples[0].Value, samples[0].Value
	for _, s := range samples {
		if s.Value < lo {
			lo = s.Value
		}
		if s.Value > hi {
			hi = s.Value
		}
	}
	if p.MaxValue > 0 && hi > p.MaxValue {
		hi = p.MaxValue
	}
	if hi <= lo {
		return RateCurve{}, fmt.Errorf("degenerate value range [%g, %g]", lo, hi)
	}

	nGrid := int(math.Floor((hi-lo)/p.GridStep)) + 1
	points := make([]RatePoint, nGrid)

	// 97.5th normal quantile for the two-sided 95% interval
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.975)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < nGrid; i++ {
		i := i
		g.Go(func() error {
			v0 := lo + float64(i)*p.GridStep
			points[i] = estimateAt(v0, samples, p, z)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RateCurve{}, err
	}

	return RateCurve{Points: points}, nil
}

// estimateAt fits a kernel-weighted local linear regression of rate on value
// centered at one grid point. The fitted intercept is the rate estimate at
// the grid value; the confidence half-width comes from the weighted residual
// variance and the kernel's effective sample size.
func estimateAt(v0 float64, samples []RateSample, p Params, z float64) RatePoint {
	point := RatePoint{Value: v0}

	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	ws := make([]float64, 0, len(samples))

	for _, s := range samples {
		dx := s.Value - v0
		if math.Abs(dx) <= p.Bandwidth {
			point.Support++
		}
		w := math.Exp(-0.5 * (dx / p.Bandwidth) * (dx / p.Bandwidth))
		if w < 1e-12 {
			continue
		}
		xs = append(xs, dx)
		ys = append(ys, s.Rate)
		ws = append(ws, w)
	}

	if point.Support < p.MinSupport {
		return point
	}

	var rate float64
	if spread(xs) == 0 {
		// All nearby samples share one value; a slope is unidentifiable,
		// fall back to the weighted mean
		rate = stat.Mean(ys, ws)
	} else {
		// The intercept of the centered fit is rate(v0)
		rate, _ = stat.LinearRegression(xs, ys, ws, false)
	}

	var sumW, sumW2, wss float64
	for i := range xs {
		resid := ys[i] - rate
		wss += ws[i] * resid * resid
		sumW += ws[i]
		sumW2 += ws[i] * ws[i]
	}
	nEff := sumW * sumW / sumW2
	se := math.Sqrt(wss / sumW / nEff)

	point.Rate = rate
	point.CI = z * se
	point.Supported = true
	return point
}

// spread returns the range of xs
func spread(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi - lo
}
