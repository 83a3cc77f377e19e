package trajectory

import (
	"errors"
	"fmt"
	"math"
)

// ErrThresholdNotCovered is returned when the positivity threshold falls
// outside every supported region of the rate curve, leaving nothing to
// anchor the trajectory to.
var ErrThresholdNotCovered = errors.New("threshold value not covered by the supported rate curve")

// Integrate builds the canonical trajectory from a smoothed rate curve by
// integrating dt = dv/rate(v) outward from the threshold in both directions,
// with time zero exactly at the threshold value.
//
// Integration runs over the contiguous supported grid region containing the
// threshold. A rate that reaches zero or changes sign truncates that branch:
// time would be undefined past it, so the range is cut and reported through
// the trajectory's truncation flags rather than extrapolated.
func Integrate(curve RateCurve, p Params) (*Trajectory, error) {
	if p.IntegrationStep <= 0 {
		return nil, fmt.Errorf("integration step must be positive")
	}

	run := supportedRun(curve, p)
	if len(run) < 2 {
		return nil, ErrThresholdNotCovered
	}

	lo := run[0].Value
	hi := run[len(run)-1].Value
	if p.Threshold < lo || p.Threshold > hi {
		return nil, ErrThresholdNotCovered
	}

	rateAt := func(v float64) float64 { return interpRate(run, v) }
	if rateAt(p.Threshold) <= 0 {
		return nil, fmt.Errorf("rate is not positive at threshold %g: time undefined", p.Threshold)
	}

	traj := &Trajectory{Threshold: p.Threshold}

	upper, truncHigh := marchBranch(rateAt, p.Threshold, hi, p.IntegrationStep)
	lower, truncLow := marchBranch(rateAt, p.Threshold, lo, p.IntegrationStep)

	// The lower branch was marched in decreasing value; reverse it so the
	// assembled trajectory ascends in both time and value.
	for i := len(lower) - 1; i >= 0; i-- {
		traj.Points = append(traj.Points, lower[i])
	}
	traj.Points = append(traj.Points, Point{Time: 0, Value: p.Threshold})
	traj.Points = append(traj.Points, upper...)

	// A branch is also truncated when an unsupported gap or the max-value
	// cap cut the supported run short of the full grid.
	gridLo, gridHi := gridBounds(curve)
	traj.TruncatedLow = truncLow || lo > gridLo
	traj.TruncatedHigh = truncHigh || hi < gridHi

	return traj, nil
}

// marchBranch integrates from the threshold toward limit in steps of the
// given size, accumulating trapezoidal time increments of 1/rate. It stops
// early when the rate stops being positive, reporting truncation.
func marchBranch(rateAt func(float64) float64, start, limit, step float64) ([]Point, bool) {
	var pts []Point

	dir := 1.0
	if limit < start {
		dir = -1.0
	}

	t := 0.0
	v := start
	rPrev := rateAt(v)

	for {
		remaining := math.Abs(limit - v)
		if remaining < 1e-12 {
			return pts, false
		}
		dv := step
		if remaining < step {
			dv = remaining
		}

		vNext := v + dir*dv
		rNext := rateAt(vNext)
		if rNext <= 0 {
			return pts, true
		}

		// Trapezoidal step of dt = dv / rate; moving down in value while
		// the rate is positive moves backward in time.
		t += dir * dv * 0.5 * (1/rPrev + 1/rNext)
		pts = append(pts, Point{Time: t, Value: vNext})

		v = vNext
		rPrev = rNext
	}
}

// supportedRun returns the maximal contiguous run of supported grid points
// whose value range contains the threshold. Contiguity means neighboring
// grid slots: an unsupported point breaks the run.
func supportedRun(curve RateCurve, p Params) []RatePoint {
	var runs [][]RatePoint
	var current []RatePoint

	for _, pt := range curve.Points {
		if pt.Supported {
			current = append(current, pt)
			continue
		}
		if len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	for _, run := range runs {
		if len(run) < 2 {
			continue
		}
		if p.Threshold >= run[0].Value && p.Threshold <= run[len(run)-1].Value {
			return run
		}
	}
	return nil
}

// interpRate linearly interpolates the rate within a supported run
func interpRate(run []RatePoint, v float64) float64 {
	if v <= run[0].Value {
		return run[0].Rate
	}
	last := len(run) - 1
	if v >= run[last].Value {
		return run[last].Rate
	}

	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if run[mid].Value <= v {
			lo = mid
		} else {
			hi = mid
		}
	}

	dv := run[hi].Value - run[lo].Value
	if dv == 0 {
		return run[lo].Rate
	}
	frac := (v - run[lo].Value) / dv
	return run[lo].Rate + frac*(run[hi].Rate-run[lo].Rate)
}

// gridBounds returns the first and last grid values of the full curve
func gridBounds(curve RateCurve) (float64, float64) {
	if len(curve.Points) == 0 {
		return 0, 0
	}
	return curve.Points[0].Value, curve.Points[len(curve.Points)-1].Value
}
