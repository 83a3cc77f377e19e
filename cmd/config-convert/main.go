// Command config-convert copies a YAML run configuration into a SQLite
// database so it can be managed in place alongside the cohort.
package main

import (
	"flag"
	"fmt"
	"os"

	"tautrack/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite an existing SQLite database")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <run.yaml> -sqlite <run.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists (use -force to overwrite)\n", *sqliteFile)
		os.Exit(1)
	}

	yamlProvider := config.NewYAMLProvider(*yamlFile)
	cfg, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is not valid: %v\n", err)
		os.Exit(1)
	}

	if *force {
		os.Remove(*sqliteFile)
	}

	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	if err := sqliteProvider.SaveConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted %s to %s\n", *yamlFile, *sqliteFile)
	fmt.Printf("  Input backend:  %s\n", cfg.Input.Backend)
	fmt.Printf("  Threshold:      %.4f\n", cfg.Estimator.Threshold)
	fmt.Printf("  Excluded:       %d subjects\n", len(cfg.Input.ExcludeSubjects))
}
