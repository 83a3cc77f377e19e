package trajectory

import (
	"context"
	"math"
	"testing"

	"tautrack/internal/cohort"
)

// linearTrajectory returns a hand-built trajectory for value =
// threshold + rate*time over the given value range.
func linearTrajectory(threshold, rate, lo, hi float64) *Trajectory {
	traj := &Trajectory{Threshold: threshold}
	for v := lo; v <= hi+1e-9; v += 0.01 {
		traj.Points = append(traj.Points, Point{Time: (v - threshold) / rate, Value: v})
	}
	return traj
}

func TestProjectRecoversKnownCrossingAges(t *testing.T) {
	// Three subjects with three yearly visits each on a shared linear
	// trajectory; recovered crossing ages must match the construction.
	const (
		threshold = 1.2
		rate      = 0.05
	)
	crossings := map[string]struct {
		firstAge float64
		crossAge float64
	}{
		"sub-a": {firstAge: 74, crossAge: 75},
		"sub-b": {firstAge: 80, crossAge: 80},
		"sub-c": {firstAge: 70, crossAge: 72},
	}

	var obs []cohort.Observation
	for id, c := range crossings {
		for visit := 0; visit < 3; visit++ {
			age := c.firstAge + float64(visit)
			obs = append(obs, cohort.Observation{
				SubjectID: id,
				Age:       age,
				Value:     threshold + rate*(age-c.crossAge),
			})
		}
	}
	subjects := cohort.Group(obs)

	params := Params{
		Bandwidth:       0.1,
		GridStep:        0.01,
		IntegrationStep: 0.002,
		MinSupport:      2,
		Threshold:       threshold,
	}

	samples := SampleRates(subjects)
	curve, err := EstimateRateCurve(context.Background(), samples, params)
	if err != nil {
		t.Fatalf("rate curve: %v", err)
	}
	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}

	_, subjEstimates := Project(subjects, traj)
	if len(subjEstimates) != len(crossings) {
		t.Fatalf("expected %d subject estimates, got %d", len(crossings), len(subjEstimates))
	}

	for _, est := range subjEstimates {
		want := crossings[est.SubjectID].crossAge
		if math.Abs(est.AgeAtThreshold-want) > 0.1 {
			t.Errorf("%s: expected crossing age %.1f ± 0.1, got %.3f",
				est.SubjectID, want, est.AgeAtThreshold)
		}
	}
}

func TestProjectSingleObservation(t *testing.T) {
	// A lone observation gets the direct interpolation with no offset fit
	traj := linearTrajectory(1.2, 0.05, 1.0, 1.4)

	subjects := cohort.Group([]cohort.Observation{
		{SubjectID: "solo", Age: 78, Value: 1.25},
	})

	obsEstimates, subjEstimates := Project(subjects, traj)
	if len(obsEstimates) != 1 || len(subjEstimates) != 1 {
		t.Fatalf("expected 1 observation and 1 subject estimate, got %d and %d",
			len(obsEstimates), len(subjEstimates))
	}

	directTime, extrapolated := traj.TimeAt(1.25)
	if extrapolated {
		t.Fatal("in-range value flagged extrapolated")
	}

	got := obsEstimates[0]
	if math.Abs(got.TimeFromThreshold-directTime) > 1e-9 {
		t.Errorf("expected direct interpolation %.4f, got %.4f", directTime, got.TimeFromThreshold)
	}
	if got.Extrapolated {
		t.Error("unexpected extrapolated flag")
	}
	if want := 78 - directTime; math.Abs(subjEstimates[0].AgeAtThreshold-want) > 1e-9 {
		t.Errorf("expected crossing age %.4f, got %.4f", want, subjEstimates[0].AgeAtThreshold)
	}
}

func TestProjectFlagsOutOfRange(t *testing.T) {
	// Values beyond the trajectory's covered range must come back flagged,
	// never silently projected.
	traj := linearTrajectory(1.2, 0.05, 1.0, 1.4)

	subjects := cohort.Group([]cohort.Observation{
		{SubjectID: "high", Age: 80, Value: 2.0},
		{SubjectID: "ok", Age: 79, Value: 1.3},
	})

	obsEstimates, subjEstimates := Project(subjects, traj)

	byID := make(map[string]ObservationEstimate)
	for _, est := range obsEstimates {
		byID[est.SubjectID] = est
	}

	if !byID["high"].Extrapolated {
		t.Error("value above covered range not flagged extrapolated")
	}
	if byID["ok"].Extrapolated {
		t.Error("in-range value wrongly flagged extrapolated")
	}

	for _, est := range subjEstimates {
		if est.SubjectID == "high" && !est.Extrapolated {
			t.Error("subject estimate not flagged extrapolated")
		}
	}
}

func TestProjectOffsetAlignment(t *testing.T) {
	// With multiple observations the per-observation times are the aligned
	// ages, all sharing one fitted offset.
	traj := linearTrajectory(1.2, 0.05, 1.0, 1.4)

	subjects := cohort.Group([]cohort.Observation{
		{SubjectID: "s", Age: 74, Value: 1.15},
		{SubjectID: "s", Age: 75, Value: 1.20},
		{SubjectID: "s", Age: 76, Value: 1.25},
	})

	obsEstimates, subjEstimates := Project(subjects, traj)
	if len(obsEstimates) != 3 {
		t.Fatalf("expected 3 observation estimates, got %d", len(obsEstimates))
	}

	// Perfect linear data: offset is -75, crossing age 75
	if math.Abs(subjEstimates[0].AgeAtThreshold-75) > 1e-6 {
		t.Errorf("expected crossing age 75, got %.4f", subjEstimates[0].AgeAtThreshold)
	}
	for i, est := range obsEstimates {
		want := est.Age - 75
		if math.Abs(est.TimeFromThreshold-want) > 1e-6 {
			t.Errorf("observation %d: expected aligned time %.4f, got %.4f", i, want, est.TimeFromThreshold)
		}
	}
}
