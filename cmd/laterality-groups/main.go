// Command laterality-groups categorizes subjects by hemispheric asymmetry
// from a table of paired left/right biomarker values.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tautrack/internal/laterality"
	"tautrack/internal/results"
)

func main() {
	var (
		input    = flag.String("input", "", "Input CSV with subject, left and right columns")
		idCol    = flag.String("id-column", "subject_id", "Subject ID column name")
		leftCol  = flag.String("left-column", "left", "Left-hemisphere value column name")
		rightCol = flag.String("right-column", "right", "Right-hemisphere value column name")
		band     = flag.Float64("band", 5.0, "Half-width of the symmetric band")
		output   = flag.String("output", "laterality.csv", "Output CSV file path")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "The -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	ids, left, right, err := readPairs(*input, *idCol, *leftCol, *rightCol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	pairs := laterality.CategorizePairs(ids, left, right, *band)
	if err := results.WriteLateralityTable(*output, pairs); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}

	counts := make(map[laterality.Category]int)
	for _, p := range pairs {
		counts[p.Category]++
	}
	fmt.Printf("Categorized %d subjects (band ±%.1f):\n", len(pairs), *band)
	for _, cat := range []laterality.Category{laterality.LeftAsymmetric, laterality.Symmetric, laterality.RightAsymmetric} {
		fmt.Printf("  %-17s %d\n", cat, counts[cat])
	}
	fmt.Printf("Results written to %s\n", *output)
}

func readPairs(filename, idCol, leftCol, rightCol string) ([]string, []float64, []float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading header: %w", err)
	}

	idIdx, leftIdx, rightIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case idCol:
			idIdx = i
		case leftCol:
			leftIdx = i
		case rightCol:
			rightIdx = i
		}
	}
	if idIdx < 0 || leftIdx < 0 || rightIdx < 0 {
		return nil, nil, nil, fmt.Errorf("columns %q, %q and %q are required", idCol, leftCol, rightCol)
	}

	var ids []string
	var left, right []float64
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		line++

		l, errL := strconv.ParseFloat(strings.TrimSpace(record[leftIdx]), 64)
		r, errR := strconv.ParseFloat(strings.TrimSpace(record[rightIdx]), 64)
		if errL != nil || errR != nil {
			fmt.Fprintf(os.Stderr, "Skipping line %d: unparseable left/right values\n", line)
			continue
		}
		ids = append(ids, strings.TrimSpace(record[idIdx]))
		left = append(left, l)
		right = append(right, r)
	}

	if len(ids) == 0 {
		return nil, nil, nil, fmt.Errorf("no usable rows in %s", filename)
	}
	return ids, left, right, nil
}
