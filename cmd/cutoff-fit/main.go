// Command cutoff-fit derives a biomarker positivity cutoff from a cohort's
// score distribution: a two-component Gaussian mixture intersection, a
// mean + 2SD cutoff from a negative reference group, and their average.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"tautrack/internal/pathology"
)

func main() {
	var (
		input     = flag.String("input", "", "Input CSV with one score per row")
		valueCol  = flag.String("value-column", "value", "Score column name")
		groupCol  = flag.String("group-column", "", "Optional group column; rows matching -negative-label form the 2SD reference")
		negative  = flag.String("negative-label", "negative", "Group label of the negative reference group")
		threshold = flag.Float64("apply", 0, "Optional: report positivity counts at this cutoff instead of the fitted one")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "The -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	scores, negScores, err := readScores(*input, *valueCol, *groupCol, *negative)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Read %d scores (%d in the negative reference group)\n", len(scores), len(negScores))

	gmm, err := pathology.FitGMM2(scores)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fitting mixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nMixture fit (%d iterations):\n", gmm.Iterations)
	fmt.Printf("  Component 1: mean %.4f, sd %.4f, weight %.3f\n", gmm.Mean1, sd(gmm.Var1), gmm.Weight1)
	fmt.Printf("  Component 2: mean %.4f, sd %.4f, weight %.3f\n", gmm.Mean2, sd(gmm.Var2), 1-gmm.Weight1)

	cutoff := *threshold
	gmmCutoff, gmmErr := pathology.GMMCutoff(scores)
	if gmmErr != nil {
		fmt.Printf("\nNo usable mixture cutoff: %v\n", gmmErr)
	} else {
		fmt.Printf("\nGMM intersection cutoff:  %.4f\n", gmmCutoff)
	}

	if len(negScores) > 0 {
		sdCutoff := pathology.TwoSDCutoff(negScores)
		fmt.Printf("Mean + 2SD cutoff:        %.4f\n", sdCutoff)

		combined, err := pathology.CombinedCutoff(scores, negScores)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error combining cutoffs: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Combined cutoff:          %.4f\n", combined)
		if cutoff == 0 {
			cutoff = combined
		}
	} else if gmmErr == nil && cutoff == 0 {
		cutoff = gmmCutoff
	}

	if cutoff != 0 {
		positive := 0
		for _, s := range scores {
			if s > cutoff {
				positive++
			}
		}
		fmt.Printf("\nAt cutoff %.4f: %d of %d scores positive (%.1f%%)\n",
			cutoff, positive, len(scores), 100*float64(positive)/float64(len(scores)))
	}
}

func sd(variance float64) float64 {
	return math.Sqrt(variance)
}

func readScores(filename, valueCol, groupCol, negativeLabel string) ([]float64, []float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	valueIdx, groupIdx := -1, -1
	for i, col := range header {
		name := strings.TrimSpace(col)
		if name == valueCol {
			valueIdx = i
		}
		if groupCol != "" && name == groupCol {
			groupIdx = i
		}
	}
	if valueIdx < 0 {
		return nil, nil, fmt.Errorf("column %q not found", valueCol)
	}
	if groupCol != "" && groupIdx < 0 {
		return nil, nil, fmt.Errorf("column %q not found", groupCol)
	}

	var scores, negScores []float64
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			continue
		}
		scores = append(scores, v)
		if groupIdx >= 0 && strings.TrimSpace(record[groupIdx]) == negativeLabel {
			negScores = append(negScores, v)
		}
	}

	if len(scores) == 0 {
		return nil, nil, fmt.Errorf("no usable scores in %s", filename)
	}
	return scores, negScores, nil
}
