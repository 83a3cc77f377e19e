// Command group-compare runs two-group comparisons over one or more outcome
// columns: a pooled t-test per outcome, an optional covariate-adjusted
// linear model, and Benjamini-Hochberg correction across the family.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"tautrack/internal/stats"
)

func main() {
	var (
		input       = flag.String("input", "", "Input CSV with group, outcome and covariate columns")
		groupCol    = flag.String("group-column", "group", "Group label column name")
		groupA      = flag.String("group-a", "", "Label of the first group (default: first label seen)")
		outcomes    = flag.String("outcomes", "", "Comma-separated outcome column names")
		covariates  = flag.String("covariates", "", "Comma-separated covariate column names for the adjusted model")
		standardize = flag.Bool("standardize", false, "Z-score outcomes and covariates before the adjusted model")
		alpha       = flag.Float64("alpha", 0.05, "FDR significance level")
	)
	flag.Parse()

	if *input == "" || *outcomes == "" {
		fmt.Fprintln(os.Stderr, "The -input and -outcomes flags are required")
		flag.Usage()
		os.Exit(1)
	}

	outcomeCols := splitColumns(*outcomes)
	covariateCols := splitColumns(*covariates)

	table, err := readTable(*input, append(append([]string{*groupCol}, outcomeCols...), covariateCols...))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	labelA := *groupA
	if labelA == "" {
		labelA = table.labels[0]
	}
	group := make([]float64, len(table.labels))
	nA := 0
	for i, label := range table.labels {
		if label == labelA {
			group[i] = 1
			nA++
		}
	}
	fmt.Printf("Comparing %q (n=%d) against the rest (n=%d)\n\n", labelA, nA, len(group)-nA)

	covData := make([][]float64, len(covariateCols))
	for i, col := range covariateCols {
		covData[i] = table.columns[col]
	}

	pvalues := make([]float64, len(outcomeCols))
	for i, col := range outcomeCols {
		a, b := splitGroups(table.columns[col], group)

		tres, err := stats.TTest(a, b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error testing %s: %v\n", col, err)
			os.Exit(1)
		}
		fmt.Printf("%s:\n  t-test:   t = %+.3f (df %.0f), p = %.4f\n", col, tres.T, tres.DF, tres.P)
		pvalues[i] = tres.P

		if len(covData) > 0 {
			model, err := stats.GroupEffect(table.columns[col], group, covData, *standardize)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fitting adjusted model for %s: %v\n", col, err)
				os.Exit(1)
			}
			fmt.Printf("  adjusted: beta = %+.4f (se %.4f), t = %+.3f, p = %.4f, n = %d\n",
				model.Beta, model.SE, model.T, model.P, model.N)
			pvalues[i] = model.P
		}
	}

	adjusted := stats.FDR(pvalues)
	significant := stats.Significant(adjusted, *alpha)

	fmt.Printf("\nFDR-corrected (alpha %.2f):\n", *alpha)
	for i, col := range outcomeCols {
		marker := " "
		if contains(significant, i) {
			marker = "*"
		}
		fmt.Printf("  %s %-20s q = %.4f\n", marker, col, adjusted[i])
	}
}

type table struct {
	labels  []string
	columns map[string][]float64
}

func splitColumns(list string) []string {
	if list == "" {
		return nil
	}
	var cols []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func splitGroups(values, group []float64) ([]float64, []float64) {
	var a, b []float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if group[i] == 1 {
			a = append(a, v)
		} else {
			b = append(b, v)
		}
	}
	return a, b
}

func contains(idx []int, i int) bool {
	for _, v := range idx {
		if v == i {
			return true
		}
	}
	return false
}

// readTable loads the group column as labels and every other named column
// as floats, with unparseable cells stored as NaN
func readTable(filename string, wanted []string) (*table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	indices := make(map[string]int)
	for _, name := range wanted {
		indices[name] = -1
	}
	for i, col := range header {
		name := strings.TrimSpace(col)
		if _, ok := indices[name]; ok {
			indices[name] = i
		}
	}
	for name, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
	}

	groupCol := wanted[0]
	out := &table{columns: make(map[string][]float64)}
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		out.labels = append(out.labels, strings.TrimSpace(record[indices[groupCol]]))
		for _, name := range wanted[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[indices[name]]), 64)
			if err != nil {
				v = math.NaN()
			}
			out.columns[name] = append(out.columns[name], v)
		}
	}

	if len(out.labels) == 0 {
		return nil, fmt.Errorf("no rows in %s", filename)
	}
	return out, nil
}
