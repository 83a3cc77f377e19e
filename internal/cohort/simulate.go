package cohort

import (
	"fmt"
	"math/rand"
)

// SimulationParams describes a synthetic cohort of subjects progressing
// along a shared linear trajectory
type SimulationParams struct {
	Subjects      int
	VisitsPerSub  int
	VisitInterval float64
	// Rate is the annual change in the biomarker value
	Rate float64
	// Threshold is the value each subject crosses at its crossing age
	Threshold float64
	// CrossingAgeMin and CrossingAgeMax bound the uniform crossing-age draw
	CrossingAgeMin float64
	CrossingAgeMax float64
	// FirstVisitOffsetMax bounds how long before or after the crossing age
	// the first visit lands
	FirstVisitOffsetMax float64
	// Noise is the standard deviation of measurement noise on values
	Noise float64
	Seed  int64
}

// Simulate generates a deterministic synthetic cohort: each subject gets a
// crossing age and visits every VisitInterval years around it, with values
// on the shared line plus Gaussian noise.
func Simulate(p SimulationParams) ([]Subject, error) {
	if p.Subjects < 1 || p.VisitsPerSub < 1 {
		return nil, fmt.Errorf("need at least 1 subject and 1 visit, got %d and %d", p.Subjects, p.VisitsPerSub)
	}
	if p.Rate == 0 {
		return nil, fmt.Errorf("rate must be nonzero")
	}
	if p.VisitInterval <= 0 {
		return nil, fmt.Errorf("visit interval must be positive, got %g", p.VisitInterval)
	}
	if p.CrossingAgeMax < p.CrossingAgeMin {
		return nil, fmt.Errorf("crossing age range [%g, %g] is inverted", p.CrossingAgeMin, p.CrossingAgeMax)
	}

	rng := rand.New(rand.NewSource(p.Seed))

	var observations []Observation
	for s := 0; s < p.Subjects; s++ {
		id := fmt.Sprintf("sim-%03d", s+1)

		crossAge := p.CrossingAgeMin + rng.Float64()*(p.CrossingAgeMax-p.CrossingAgeMin)
		firstAge := crossAge + (2*rng.Float64()-1)*p.FirstVisitOffsetMax

		for v := 0; v < p.VisitsPerSub; v++ {
			age := firstAge + float64(v)*p.VisitInterval
			value := p.Threshold + p.Rate*(age-crossAge)
			if p.Noise > 0 {
				value += p.Noise * rng.NormFloat64()
			}
			observations = append(observations, Observation{
				SubjectID: id,
				Age:       age,
				Value:     value,
			})
		}
	}

	return Group(observations), nil
}
