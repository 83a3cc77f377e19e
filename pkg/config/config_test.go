package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestYAMLProviderOverridesDefaults(t *testing.T) {
	content := `
input:
  backend: file
  path: /data/cohort.csv
  subject-column: mid
estimator:
  bandwidth: 0.1
  threshold: 1.25
network:
  permutations: 100
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	provider := NewYAMLProvider(path)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Input.Path != "/data/cohort.csv" {
		t.Errorf("expected overridden path, got %q", cfg.Input.Path)
	}
	if cfg.Input.SubjectColumn != "mid" {
		t.Errorf("expected overridden subject column, got %q", cfg.Input.SubjectColumn)
	}
	if cfg.Estimator.Bandwidth != 0.1 || cfg.Estimator.Threshold != 1.25 {
		t.Errorf("estimator overrides not applied: %+v", cfg.Estimator)
	}

	// Untouched fields keep their defaults
	if cfg.Input.AgeColumn != "age" {
		t.Errorf("expected default age column, got %q", cfg.Input.AgeColumn)
	}
	if cfg.Estimator.GridStep != 0.02 {
		t.Errorf("expected default grid step, got %g", cfg.Estimator.GridStep)
	}
	if cfg.Network.Permutations != 100 {
		t.Errorf("expected overridden permutations, got %d", cfg.Network.Permutations)
	}
	if cfg.Network.TThreshold != 3.0 {
		t.Errorf("expected default t threshold, got %g", cfg.Network.TThreshold)
	}

	if !provider.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("creating provider: %v", err)
	}
	defer provider.Close()

	// Every field deliberately off its default, so a column missed by the
	// schema or the scan shows up as a mismatch.
	cfg := &RunConfig{
		Input: InputConfig{
			Backend:          "postgres",
			Path:             "/data/cohort.csv",
			ConnectionString: "host=db.example.org dbname=cohort",
			Query:            "SELECT mid, visit_age, suvr FROM visits",
			SubjectColumn:    "mid",
			AgeColumn:        "visit_age",
			ValueColumn:      "suvr",
			ExcludeSubjects:  []string{"s9", "s3"},
		},
		Estimator: EstimatorConfig{
			Bandwidth:       0.08,
			Threshold:       1.25,
			MaxValue:        2.6,
			GridStep:        0.015,
			IntegrationStep: 0.003,
			MinSupport:      7,
		},
		Laterality: LateralityConfig{
			LeftColumn:    "suvr_lh",
			RightColumn:   "suvr_rh",
			SymmetricBand: 7.5,
		},
		Network: NetworkConfig{
			TThreshold:   3.5,
			Permutations: 1000,
			Seed:         99,
			Fisher:       true,
			CachePath:    "/tmp/stacks",
		},
		Output: OutputConfig{
			Directory:      "/results",
			EstimatesFile:  "crossing_ages.csv",
			RateCurveFile:  "rates.csv",
			TrajectoryFile: "curve.csv",
			ArchiveDSN:     "host=archive.example.org dbname=runs",
		},
	}

	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Input.Backend != cfg.Input.Backend || loaded.Input.Path != cfg.Input.Path ||
		loaded.Input.ConnectionString != cfg.Input.ConnectionString || loaded.Input.Query != cfg.Input.Query ||
		loaded.Input.SubjectColumn != "mid" || loaded.Input.AgeColumn != "visit_age" ||
		loaded.Input.ValueColumn != "suvr" {
		t.Errorf("input section lost fields: %+v", loaded.Input)
	}
	if loaded.Estimator != cfg.Estimator {
		t.Errorf("estimator section lost fields: got %+v, want %+v", loaded.Estimator, cfg.Estimator)
	}
	if loaded.Laterality != cfg.Laterality {
		t.Errorf("laterality section lost fields: got %+v, want %+v", loaded.Laterality, cfg.Laterality)
	}
	if loaded.Network != cfg.Network {
		t.Errorf("network section lost fields: got %+v, want %+v", loaded.Network, cfg.Network)
	}
	if loaded.Output != cfg.Output {
		t.Errorf("output section lost fields: got %+v, want %+v", loaded.Output, cfg.Output)
	}
	// Denylist comes back sorted
	if len(loaded.Input.ExcludeSubjects) != 2 || loaded.Input.ExcludeSubjects[0] != "s3" {
		t.Errorf("unexpected denylist: %v", loaded.Input.ExcludeSubjects)
	}
	if provider.IsReadOnly() {
		t.Error("SQLite provider should be writable")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *RunConfig {
		cfg := Default()
		cfg.Input.Path = "/data/cohort.csv"
		cfg.Estimator.Threshold = 1.2
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr bool
	}{
		{name: "valid file backend", mutate: func(c *RunConfig) {}},
		{name: "file backend without path", mutate: func(c *RunConfig) { c.Input.Path = "" }, wantErr: true},
		{name: "postgres backend without dsn", mutate: func(c *RunConfig) {
			c.Input.Backend = "postgres"
			c.Input.ConnectionString = ""
		}, wantErr: true},
		{name: "postgres backend with dsn", mutate: func(c *RunConfig) {
			c.Input.Backend = "postgres"
			c.Input.ConnectionString = "host=localhost"
		}},
		{name: "unknown backend", mutate: func(c *RunConfig) { c.Input.Backend = "ftp" }, wantErr: true},
		{name: "missing column name", mutate: func(c *RunConfig) { c.Input.ValueColumn = "" }, wantErr: true},
		{name: "zero bandwidth", mutate: func(c *RunConfig) { c.Estimator.Bandwidth = 0 }, wantErr: true},
		{name: "negative grid step", mutate: func(c *RunConfig) { c.Estimator.GridStep = -0.01 }, wantErr: true},
		{name: "min support below two", mutate: func(c *RunConfig) { c.Estimator.MinSupport = 1 }, wantErr: true},
		{name: "negative band", mutate: func(c *RunConfig) { c.Laterality.SymmetricBand = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
