// Package trajectory estimates a canonical biomarker-versus-time trajectory
// from longitudinal observations and places individual subjects on it.
//
// The procedure has three stages: sample annualized rates of change from
// consecutive same-subject observation pairs, smooth them into a rate curve
// over a regular value grid, then integrate the inverse rate outward from a
// positivity threshold to obtain value as a function of time with time zero
// at the threshold. Subjects are projected onto the result to estimate each
// one's threshold-crossing age.
package trajectory

// Params defines the estimation parameters for the trajectory pipeline
type Params struct {
	// Bandwidth is the Gaussian kernel bandwidth in biomarker units
	Bandwidth float64

	// GridStep is the spacing of the rate-curve value grid
	GridStep float64

	// IntegrationStep is the value step used when integrating 1/rate
	IntegrationStep float64

	// MinSupport is the minimum number of rate samples within one bandwidth
	// of a grid point; grid points with less support get no estimate
	MinSupport int

	// Threshold is the biomarker value where the trajectory clock reads zero
	Threshold float64

	// MaxValue caps the rate-curve grid; 0 means use the observed maximum
	MaxValue float64
}

// DefaultParams returns conservative defaults on an SUVR-like value scale
func DefaultParams() Params {
	return Params{
		Bandwidth:       0.05,
		GridStep:        0.02,
		IntegrationStep: 0.005,
		MinSupport:      5,
	}
}

// RateSample is one annualized rate-of-change sample, taken at the midpoint
// value of a consecutive same-subject observation pair
type RateSample struct {
	SubjectID string
	Value     float64
	Rate      float64
}

// RatePoint is the smoothed rate estimate at one grid value
type RatePoint struct {
	Value float64
	Rate  float64
	// CI is the 95% confidence half-width of the rate estimate
	CI float64
	// Support counts rate samples within one bandwidth of this grid point
	Support int
	// Supported is false when support fell below the minimum; such points
	// carry no estimate and are excluded from integration
	Supported bool
}

// RateCurve is the smoothed value→rate curve over the regular grid
type RateCurve struct {
	Points []RatePoint
}

// Supported returns only the grid points that carry an estimate
func (c RateCurve) Supported() []RatePoint {
	var pts []RatePoint
	for _, p := range c.Points {
		if p.Supported {
			pts = append(pts, p)
		}
	}
	return pts
}

// Point is one sample of the canonical trajectory
type Point struct {
	// Time is years from threshold crossing (negative before, positive after)
	Time  float64
	Value float64
}

// Trajectory is the canonical value-versus-time curve, anchored so that
// value equals the threshold exactly at time zero. Points are ordered by
// time and value is monotonically non-decreasing with time.
type Trajectory struct {
	Points    []Point
	Threshold float64

	// TruncatedLow and TruncatedHigh report that integration stopped before
	// the full observed value range because the rate curve hit zero, changed
	// sign, or had an unsupported gap on that side
	TruncatedLow  bool
	TruncatedHigh bool
}

// MinValue returns the lowest value covered by the trajectory
func (t *Trajectory) MinValue() float64 {
	if len(t.Points) == 0 {
		return t.Threshold
	}
	return t.Points[0].Value
}

// MaxValue returns the highest value covered by the trajectory
func (t *Trajectory) MaxValue() float64 {
	if len(t.Points) == 0 {
		return t.Threshold
	}
	return t.Points[len(t.Points)-1].Value
}

// TimeAt looks up time-from-threshold for a biomarker value by linear
// interpolation against the trajectory's value axis. Values outside the
// covered range are extended linearly along the boundary segment and
// reported as extrapolated so downstream analysis can filter them.
func (t *Trajectory) TimeAt(value float64) (time float64, extrapolated bool) {
	pts := t.Points
	if len(pts) < 2 {
		return 0, true
	}

	if value < pts[0].Value {
		slope := segmentSlope(pts[0], pts[1])
		return pts[0].Time + (value-pts[0].Value)*slope, true
	}
	last := len(pts) - 1
	if value > pts[last].Value {
		slope := segmentSlope(pts[last-1], pts[last])
		return pts[last].Time + (value-pts[last].Value)*slope, true
	}

	// Binary search for the segment containing value
	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if pts[mid].Value <= value {
			lo = mid
		} else {
			hi = mid
		}
	}

	if pts[hi].Value == pts[lo].Value {
		return pts[lo].Time, false
	}
	frac := (value - pts[lo].Value) / (pts[hi].Value - pts[lo].Value)
	return pts[lo].Time + frac*(pts[hi].Time-pts[lo].Time), false
}

// segmentSlope returns dt/dv for one trajectory segment
func segmentSlope(a, b Point) float64 {
	dv := b.Value - a.Value
	if dv == 0 {
		return 0
	}
	return (b.Time - a.Time) / dv
}
