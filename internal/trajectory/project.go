package trajectory

import (
	"tautrack/internal/cohort"
)

// ObservationEstimate places one observation on the canonical trajectory
type ObservationEstimate struct {
	SubjectID string
	Age       float64
	Value     float64

	// TimeFromThreshold is years relative to threshold crossing. For
	// subjects with multiple observations it is the offset-aligned time;
	// for single-observation subjects it is the direct interpolation.
	TimeFromThreshold float64

	// AgeAtThreshold is the crossing age implied by this observation alone
	AgeAtThreshold float64

	// Extrapolated marks values outside the trajectory's covered range,
	// whose times come from boundary extension rather than the model
	Extrapolated bool
}

// SubjectEstimate summarizes one subject's threshold-crossing estimate
type SubjectEstimate struct {
	SubjectID      string
	AgeAtThreshold float64
	Observations   int

	// Extrapolated is set when any of the subject's observations fell
	// outside the trajectory's covered range
	Extrapolated bool
}

// Project estimates time-from-threshold for every observation and a
// threshold-crossing age per subject.
//
// The trajectory shape is assumed common to all subjects, differing only by
// a horizontal shift, so for subjects with two or more observations the
// subject offset s minimizing Σ(t(vᵢ) − (ageᵢ + s))² is the mean residual,
// and the crossing age is its negation. A single observation gives no shift
// to fit: its direct interpolation is used as-is.
//
// Subjects are independent here; the loop is sequential only to keep output
// ordering identical to the input.
func Project(subjects []cohort.Subject, traj *Trajectory) ([]ObservationEstimate, []SubjectEstimate) {
	var obsEstimates []ObservationEstimate
	subjEstimates := make([]SubjectEstimate, 0, len(subjects))

	for _, subject := range subjects {
		obs := subject.Observations
		n := len(obs)
		if n == 0 {
			continue
		}

		times := make([]float64, n)
		extrap := make([]bool, n)
		anyExtrap := false
		for i, o := range obs {
			times[i], extrap[i] = traj.TimeAt(o.Value)
			if extrap[i] {
				anyExtrap = true
			}
		}

		// Least-squares alignment: s = mean(t(vᵢ) − ageᵢ)
		var offset float64
		for i, o := range obs {
			offset += times[i] - o.Age
		}
		offset /= float64(n)

		var crossingSum float64
		for i, o := range obs {
			est := ObservationEstimate{
				SubjectID:      subject.ID,
				Age:            o.Age,
				Value:          o.Value,
				AgeAtThreshold: o.Age - times[i],
				Extrapolated:   extrap[i],
			}
			if n >= 2 {
				est.TimeFromThreshold = o.Age + offset
			} else {
				est.TimeFromThreshold = times[i]
			}
			crossingSum += est.AgeAtThreshold
			obsEstimates = append(obsEstimates, est)
		}

		subjEstimates = append(subjEstimates, SubjectEstimate{
			SubjectID:      subject.ID,
			AgeAtThreshold: crossingSum / float64(n),
			Observations:   n,
			Extrapolated:   anyExtrap,
		})
	}

	return obsEstimates, subjEstimates
}
