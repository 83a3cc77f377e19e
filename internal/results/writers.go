// Package results writes pipeline outputs as CSV tables and optionally
// archives runs to Postgres.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"tautrack/internal/laterality"
	"tautrack/internal/nbs"
	"tautrack/internal/trajectory"
)

// WriteSubjectEstimates writes one row per observation with its aligned
// time and the subject's crossing age
func WriteSubjectEstimates(filename string, estimates []trajectory.ObservationEstimate) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"subject_id", "age", "value", "time_from_threshold", "age_at_threshold", "extrapolated"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range estimates {
		row := []string{
			e.SubjectID,
			fmt.Sprintf("%.6f", e.Age),
			fmt.Sprintf("%.6f", e.Value),
			fmt.Sprintf("%.6f", e.TimeFromThreshold),
			fmt.Sprintf("%.6f", e.AgeAtThreshold),
			strconv.FormatBool(e.Extrapolated),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteRateCurve writes the estimated rate-versus-value curve
func WriteRateCurve(filename string, curve trajectory.RateCurve) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"value", "rate", "ci_half_width", "support", "supported"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range curve.Points {
		row := []string{
			fmt.Sprintf("%.6f", p.Value),
			fmt.Sprintf("%.6f", p.Rate),
			fmt.Sprintf("%.6f", p.CI),
			strconv.Itoa(p.Support),
			strconv.FormatBool(p.Supported),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteTrajectory writes the canonical time-versus-value trajectory
func WriteTrajectory(filename string, traj *trajectory.Trajectory) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"time_from_threshold", "value"}); err != nil {
		return err
	}

	for _, p := range traj.Points {
		row := []string{
			fmt.Sprintf("%.6f", p.Time),
			fmt.Sprintf("%.6f", p.Value),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteLateralityTable writes per-subject laterality indices and categories
func WriteLateralityTable(filename string, pairs []laterality.Pair) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"subject_id", "left", "right", "laterality_index", "category"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range pairs {
		row := []string{
			p.SubjectID,
			fmt.Sprintf("%.6f", p.Left),
			fmt.Sprintf("%.6f", p.Right),
			fmt.Sprintf("%.6f", p.Index),
			string(p.Category),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

// WriteNetworkReport writes one row per suprathreshold component with its
// extent, permutation p-value, and edge list
func WriteNetworkReport(filename string, result *nbs.Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"component", "extent", "p_value", "edges"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, c := range result.Components {
		edges := ""
		for k, e := range c.Edges {
			if k > 0 {
				edges += ";"
			}
			edges += fmt.Sprintf("%d-%d", e.I, e.J)
		}
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(c.Extent),
			fmt.Sprintf("%.6f", c.PValue),
			edges,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}
