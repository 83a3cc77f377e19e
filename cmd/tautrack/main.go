package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"tautrack/internal/app"
	"tautrack/internal/log"
	"tautrack/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: run.yaml\n\t\t\t  SQLite: run.db")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	input := flag.String("input", "", "Input table path (overrides the config file)")
	threshold := flag.Float64("threshold", 0, "Positivity threshold (overrides the config file)")
	bandwidth := flag.Float64("bandwidth", 0, "Kernel bandwidth (overrides the config file)")
	outDir := flag.String("out", "", "Output directory (overrides the config file)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tautrack %s\n", version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	overridden := overrideProvider{
		Provider:  provider,
		input:     *input,
		threshold: *threshold,
		bandwidth: *bandwidth,
		outDir:    *outDir,
	}

	summary, err := app.New(overridden, log.GetSugaredLogger()).Run(context.Background())
	if err != nil {
		log.Errorf("Pipeline error: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Subjects:            %d\n", summary.Subjects)
	fmt.Printf("Observations:        %d\n", summary.Observations)
	fmt.Printf("Grid points:         %d (%d supported)\n", summary.GridPoints, summary.Supported)
	fmt.Printf("Trajectory truncated: low=%t high=%t\n", summary.TruncatedLow, summary.TruncatedHigh)
	if summary.RunID != "" {
		fmt.Printf("Archived run:        %s\n", summary.RunID)
	}
}

func newProvider(cfgFile, cfgBackend string) (config.Provider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}

// overrideProvider applies command-line overrides on top of the configured
// backend
type overrideProvider struct {
	config.Provider
	input     string
	threshold float64
	bandwidth float64
	outDir    string
}

func (o overrideProvider) LoadConfig() (*config.RunConfig, error) {
	cfg, err := o.Provider.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.input != "" {
		cfg.Input.Backend = "file"
		cfg.Input.Path = o.input
	}
	if o.threshold != 0 {
		cfg.Estimator.Threshold = o.threshold
	}
	if o.bandwidth != 0 {
		cfg.Estimator.Bandwidth = o.bandwidth
	}
	if o.outDir != "" {
		cfg.Output.Directory = o.outDir
	}
	return cfg, nil
}
