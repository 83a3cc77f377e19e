// Command nbs-compare tests for group differences over connectivity
// matrices with the network-based permutation statistic. The input manifest
// lists one matrix file per subject with a two-level group label; merged
// stacks are cached so repeated runs skip the matrix loading.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tautrack/internal/connectome"
	"tautrack/internal/log"
	"tautrack/internal/nbs"
	"tautrack/internal/results"
)

func main() {
	var (
		manifest   = flag.String("manifest", "", "CSV manifest with subject, matrix-path and group columns")
		idCol      = flag.String("id-column", "subject_id", "Subject ID column name")
		pathCol    = flag.String("path-column", "matrix_path", "Matrix file path column name")
		groupCol   = flag.String("group-column", "group", "Group label column name")
		groupA     = flag.String("group-a", "", "Label of the first group (default: first label seen)")
		fisher     = flag.Bool("fisher", false, "Apply the Fisher r-to-z transform")
		noNegative = flag.Bool("no-negative", false, "Clamp negative connections to zero")
		dropFirst  = flag.Bool("drop-first-roi", false, "Drop the first region from each matrix")
		tThreshold = flag.Float64("t-threshold", 3.0, "Primary per-edge |t| threshold")
		perms      = flag.Int("permutations", 5000, "Number of label permutations")
		seed       = flag.Int64("seed", 1, "Permutation seed")
		cacheDir   = flag.String("cache-dir", "", "Optional directory for merged-stack caches")
		output     = flag.String("output", "nbs_report.csv", "Output CSV file path")
		debug      = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if *manifest == "" {
		fmt.Fprintln(os.Stderr, "The -manifest flag is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	entries, err := readManifest(*manifest, *idCol, *pathCol, *groupCol)
	if err != nil {
		log.Errorf("Failed to read manifest: %v", err)
		os.Exit(1)
	}

	labelA := *groupA
	if labelA == "" {
		labelA = entries[0].group
	}

	opts := connectome.Options{
		Fisher:       *fisher,
		NoNegative:   *noNegative,
		DropFirstROI: *dropFirst,
	}

	stackA, err := groupStack(entries, labelA, true, opts, *cacheDir)
	if err != nil {
		log.Errorf("Failed to build group %q stack: %v", labelA, err)
		os.Exit(1)
	}
	stackB, err := groupStack(entries, labelA, false, opts, *cacheDir)
	if err != nil {
		log.Errorf("Failed to build comparison stack: %v", err)
		os.Exit(1)
	}

	result, err := nbs.Compare(context.Background(), stackA, stackB, nbs.Params{
		TThreshold:   *tThreshold,
		Permutations: *perms,
		Seed:         *seed,
	})
	if err != nil {
		log.Errorf("Comparison failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Compared %d vs %d subjects over %d nodes (|t| >= %.2f, %d permutations)\n",
		stackA.Len(), stackB.Len(), stackA.Nodes, *tThreshold, *perms)
	if len(result.Components) == 0 {
		fmt.Println("No suprathreshold components.")
	}
	for i, c := range result.Components {
		fmt.Printf("  Component %d: extent %d, p = %.4f\n", i+1, c.Extent, c.PValue)
	}

	if err := results.WriteNetworkReport(*output, result); err != nil {
		log.Errorf("Failed to write report: %v", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", *output)
}

type manifestEntry struct {
	id    string
	path  string
	group string
}

func readManifest(filename, idCol, pathCol, groupCol string) ([]manifestEntry, error) {
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

	idIdx, pathIdx, groupIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case idCol:
			idIdx = i
		case pathCol:
			pathIdx = i
		case groupCol:
			groupIdx = i
		}
	}
	if idIdx < 0 || pathIdx < 0 || groupIdx < 0 {
		return nil, fmt.Errorf("columns %q, %q and %q are required", idCol, pathCol, groupCol)
	}

	var entries []manifestEntry
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		entries = append(entries, manifestEntry{
			id:    strings.TrimSpace(record[idIdx]),
			path:  strings.TrimSpace(record[pathIdx]),
			group: strings.TrimSpace(record[groupIdx]),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries in manifest %s", filename)
	}
	return entries, nil
}

// groupStack merges matrices for one side of the comparison, using the
// cache directory when one is configured
func groupStack(entries []manifestEntry, labelA string, wantA bool, opts connectome.Options, cacheDir string) (*connectome.Stack, error) {
	var ids, paths []string
	for _, e := range entries {
		if (e.group == labelA) == wantA {
			ids = append(ids, e.id)
			paths = append(paths, e.path)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no subjects on this side of the comparison")
	}

	digest := connectome.CohortDigest(paths, opts)
	cachePath := ""
	if cacheDir != "" {
		cachePath = filepath.Join(cacheDir, fmt.Sprintf("stack-%s.msgpack", digest[:16]))
		if stack, err := connectome.LoadStack(cachePath, digest); err == nil {
			log.Infof("using cached stack %s", cachePath)
			return stack, nil
		}
	}

	stack, excluded, err := connectome.MergeCohort(ids, paths, opts, log.GetSugaredLogger())
	if err != nil {
		return nil, err
	}
	if len(excluded) > 0 {
		log.Warnf("excluded %d subjects with unusable matrices", len(excluded))
	}

	if cachePath != "" {
		if err := connectome.SaveStack(cachePath, stack); err != nil {
			log.Warnf("could not write stack cache: %v", err)
		}
	}
	return stack, nil
}
