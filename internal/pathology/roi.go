// Package pathology derives regional pathology burden measures and
// positivity cutoffs from PET-derived biomarker values.
package pathology

import "math"

// RegionValue is one region's tracer uptake with its volume, when known.
// A zero volume means no volume measurement is available for the region.
type RegionValue struct {
	Uptake float64
	Volume float64
}

// CompositeSUVR computes a composite uptake value across regions, weighting
// each region by its volume where volumes are available and by unit weight
// where they are not. Returns NaN for an empty region set.
func CompositeSUVR(regions []RegionValue) float64 {
	var numerator, denominator float64
	for _, r := range regions {
		if math.IsNaN(r.Uptake) {
			continue
		}
		if r.Volume > 0 {
			numerator += r.Uptake * r.Volume
			denominator += r.Volume
		} else {
			numerator += r.Uptake
			denominator++
		}
	}
	if denominator == 0 {
		return math.NaN()
	}
	return numerator / denominator
}

// MeanUptake computes a plain unweighted composite, used for partial-volume
// corrected values and cortical thickness where volume weighting does not
// apply
func MeanUptake(regions []RegionValue) float64 {
	var sum float64
	n := 0
	for _, r := range regions {
		if math.IsNaN(r.Uptake) {
			continue
		}
		sum += r.Uptake
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// AmyloidStatus determines amyloid positivity from PET with a CSF fallback:
// PET value above the cutoff is positive; with no PET value, an abnormal
// CSF ratio flag (1) decides; with neither, the status is unknown (NaN).
func AmyloidStatus(petValue, petCutoff, csfAbnormal float64) float64 {
	if !math.IsNaN(petValue) {
		if petValue > petCutoff {
			return 1
		}
		return 0
	}
	if !math.IsNaN(csfAbnormal) {
		if csfAbnormal == 1 {
			return 1
		}
		return 0
	}
	return math.NaN()
}
