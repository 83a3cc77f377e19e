package trajectory

import (
	"errors"
	"math"
	"testing"
)

// constantCurve builds a fully supported rate curve with the given rate
// over [lo, hi] with the given grid step.
func constantCurve(lo, hi, step, rate float64) RateCurve {
	var curve RateCurve
	for v := lo; v <= hi+1e-9; v += step {
		curve.Points = append(curve.Points, RatePoint{
			Value:     v,
			Rate:      rate,
			Support:   10,
			Supported: true,
		})
	}
	return curve
}

func TestIntegrateThresholdAnchor(t *testing.T) {
	curve := constantCurve(1.0, 2.0, 0.02, 0.05)
	params := Params{Threshold: 1.4, IntegrationStep: 0.005, GridStep: 0.02}

	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The anchor point must be exact, not interpolated
	found := false
	for _, pt := range traj.Points {
		if pt.Time == 0 {
			found = true
			if pt.Value != params.Threshold {
				t.Errorf("value at time zero: expected exactly %.4f, got %.6f", params.Threshold, pt.Value)
			}
		}
	}
	if !found {
		t.Fatal("no trajectory point at time zero")
	}

	at, extrapolated := traj.TimeAt(params.Threshold)
	if extrapolated {
		t.Error("threshold lookup flagged extrapolated")
	}
	if math.Abs(at) > 1e-9 {
		t.Errorf("TimeAt(threshold): expected 0, got %.9f", at)
	}
}

func TestIntegrateMonotonic(t *testing.T) {
	curve := constantCurve(1.0, 2.0, 0.02, 0.05)
	params := Params{Threshold: 1.5, IntegrationStep: 0.01, GridStep: 0.02}

	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(traj.Points) < 3 {
		t.Fatalf("expected a dense trajectory, got %d points", len(traj.Points))
	}

	for i := 1; i < len(traj.Points); i++ {
		if traj.Points[i].Time <= traj.Points[i-1].Time {
			t.Fatalf("time not strictly increasing at index %d", i)
		}
		if traj.Points[i].Value < traj.Points[i-1].Value {
			t.Fatalf("value decreased with time at index %d", i)
		}
	}
}

func TestIntegrateRoundTrip(t *testing.T) {
	// Differentiating the trajectory by finite differences must reproduce
	// the input rate curve.
	const rate = 0.05
	curve := constantCurve(1.0, 2.0, 0.02, rate)
	params := Params{Threshold: 1.5, IntegrationStep: 0.005, GridStep: 0.02}

	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(traj.Points); i++ {
		dt := traj.Points[i].Time - traj.Points[i-1].Time
		dv := traj.Points[i].Value - traj.Points[i-1].Value
		if dt == 0 {
			t.Fatalf("zero time step at index %d", i)
		}
		if got := dv / dt; math.Abs(got-rate) > 1e-6 {
			t.Errorf("finite difference at index %d: expected %.4f, got %.6f", i, rate, got)
		}
	}

	// With a constant rate, time is (value - threshold)/rate exactly
	for _, v := range []float64{1.1, 1.5, 1.9} {
		want := (v - params.Threshold) / rate
		got, extrapolated := traj.TimeAt(v)
		if extrapolated {
			t.Errorf("value %.2f unexpectedly flagged extrapolated", v)
		}
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("TimeAt(%.2f): expected %.4f, got %.6f", v, want, got)
		}
	}
}

func TestIntegrateTruncatesAtNonPositiveRate(t *testing.T) {
	// Rate collapses to zero above 1.6: the upper branch must stop there
	// instead of producing undefined times.
	var curve RateCurve
	for v := 1.0; v <= 2.0+1e-9; v += 0.02 {
		rate := 0.05
		if v > 1.6 {
			rate = 0
		}
		curve.Points = append(curve.Points, RatePoint{Value: v, Rate: rate, Support: 10, Supported: true})
	}
	params := Params{Threshold: 1.3, IntegrationStep: 0.005, GridStep: 0.02}

	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !traj.TruncatedHigh {
		t.Error("expected TruncatedHigh to be reported")
	}
	if traj.TruncatedLow {
		t.Error("unexpected TruncatedLow")
	}
	if max := traj.MaxValue(); max > 1.63 {
		t.Errorf("trajectory extends to %.3f past the zero-rate region", max)
	}
}

func TestIntegrateTruncatesAtGap(t *testing.T) {
	// An unsupported gap above the threshold cuts the branch short and is
	// reported as truncation.
	var curve RateCurve
	for v := 1.0; v <= 2.0+1e-9; v += 0.02 {
		supported := v < 1.5 || v > 1.7
		curve.Points = append(curve.Points, RatePoint{Value: v, Rate: 0.05, Support: 10, Supported: supported})
	}
	params := Params{Threshold: 1.2, IntegrationStep: 0.005, GridStep: 0.02}

	traj, err := Integrate(curve, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !traj.TruncatedHigh {
		t.Error("expected TruncatedHigh across the unsupported gap")
	}
	if max := traj.MaxValue(); max > 1.51 {
		t.Errorf("trajectory crossed the gap: max value %.3f", max)
	}
}

func TestIntegrateErrors(t *testing.T) {
	tests := []struct {
		name      string
		curve     RateCurve
		params    Params
		wantIs    error
		wantError bool
	}{
		{
			name:   "threshold outside supported range",
			curve:  constantCurve(1.0, 2.0, 0.02, 0.05),
			params: Params{Threshold: 2.5, IntegrationStep: 0.005},
			wantIs: ErrThresholdNotCovered,
		},
		{
			name: "negative rate at threshold",
			curve: RateCurve{Points: []RatePoint{
				{Value: 1.0, Rate: -0.02, Support: 10, Supported: true},
				{Value: 1.1, Rate: -0.02, Support: 10, Supported: true},
				{Value: 1.2, Rate: -0.02, Support: 10, Supported: true},
			}},
			params:    Params{Threshold: 1.1, IntegrationStep: 0.005},
			wantError: true,
		},
		{
			name:      "empty curve",
			curve:     RateCurve{},
			params:    Params{Threshold: 1.0, IntegrationStep: 0.005},
			wantIs:    ErrThresholdNotCovered,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Integrate(tt.curve, tt.params)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) && !tt.wantError {
				t.Errorf("expected %v, got %v", tt.wantIs, err)
			}
		})
	}
}
