// Package config provides run-parameter loading for the analysis tools.
// Parameters can come from a YAML file or from a SQLite database so that a
// lab can keep per-cohort settings alongside the cohort itself.
package config

// Provider defines the interface for configuration data sources
type Provider interface {
	// Load the complete run configuration
	LoadConfig() (*RunConfig, error)

	// IsReadOnly reports whether the backend can be written back to
	IsReadOnly() bool
	Close() error
}

// RunConfig is the complete configuration for one analysis run
type RunConfig struct {
	Input      InputConfig      `yaml:"input"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	Laterality LateralityConfig `yaml:"laterality,omitempty"`
	Network    NetworkConfig    `yaml:"network,omitempty"`
	Output     OutputConfig     `yaml:"output"`
}

// InputConfig describes where the per-visit biomarker table comes from
type InputConfig struct {
	// Backend is "file" for delimited text or "postgres" for a database query
	Backend          string   `yaml:"backend"`
	Path             string   `yaml:"path,omitempty"`
	ConnectionString string   `yaml:"connection-string,omitempty"`
	Query            string   `yaml:"query,omitempty"`
	SubjectColumn    string   `yaml:"subject-column"`
	AgeColumn        string   `yaml:"age-column"`
	ValueColumn      string   `yaml:"value-column"`
	ExcludeSubjects  []string `yaml:"exclude-subjects,omitempty"`
}

// EstimatorConfig holds the trajectory-estimation parameters
type EstimatorConfig struct {
	// Bandwidth is the Gaussian kernel bandwidth, in biomarker units
	Bandwidth float64 `yaml:"bandwidth"`
	// Threshold is the positivity threshold the trajectory is anchored at
	Threshold float64 `yaml:"threshold"`
	// MaxValue caps the rate-curve grid; 0 means the observed maximum
	MaxValue float64 `yaml:"max-value,omitempty"`
	// GridStep is the rate-curve grid spacing, in biomarker units
	GridStep float64 `yaml:"grid-step"`
	// IntegrationStep is the value step used when integrating 1/rate
	IntegrationStep float64 `yaml:"integration-step"`
	// MinSupport is the minimum number of rate samples within one bandwidth
	// of a grid point for that point to be estimated
	MinSupport int `yaml:"min-support"`
}

// LateralityConfig holds parameters for asymmetry categorization
type LateralityConfig struct {
	LeftColumn  string `yaml:"left-column,omitempty"`
	RightColumn string `yaml:"right-column,omitempty"`
	// SymmetricBand is the half-width of the symmetric band around zero.
	// An index exactly at the band edge is categorized as symmetric.
	SymmetricBand float64 `yaml:"symmetric-band"`
}

// NetworkConfig holds parameters for the network-based permutation test
type NetworkConfig struct {
	TThreshold   float64 `yaml:"t-threshold"`
	Permutations int     `yaml:"permutations"`
	Seed         int64   `yaml:"seed"`
	Fisher       bool    `yaml:"fisher,omitempty"`
	CachePath    string  `yaml:"cache-path,omitempty"`
}

// OutputConfig describes where result tables are written
type OutputConfig struct {
	Directory      string `yaml:"directory"`
	EstimatesFile  string `yaml:"estimates-file,omitempty"`
	RateCurveFile  string `yaml:"rate-curve-file,omitempty"`
	TrajectoryFile string `yaml:"trajectory-file,omitempty"`
	// ArchiveDSN, when set, archives run results to a Postgres database
	ArchiveDSN string `yaml:"archive-dsn,omitempty"`
}

// Default returns a RunConfig with the default estimation parameters.
// Biomarker-unit defaults assume SUVR-scale values.
func Default() *RunConfig {
	return &RunConfig{
		Input: InputConfig{
			Backend:       "file",
			SubjectColumn: "subject_id",
			AgeColumn:     "age",
			ValueColumn:   "value",
		},
		Estimator: EstimatorConfig{
			Bandwidth:       0.05,
			GridStep:        0.02,
			IntegrationStep: 0.005,
			MinSupport:      5,
		},
		Laterality: LateralityConfig{
			SymmetricBand: 5.0,
		},
		Network: NetworkConfig{
			TThreshold:   3.0,
			Permutations: 5000,
			Seed:         1,
		},
		Output: OutputConfig{
			Directory:      ".",
			EstimatesFile:  "subject_estimates.csv",
			RateCurveFile:  "rate_curve.csv",
			TrajectoryFile: "trajectory.csv",
		},
	}
}

// Validate checks the configuration for structural problems that would make
// a run impossible. Parameter plausibility is the caller's business.
func (c *RunConfig) Validate() error {
	switch c.Input.Backend {
	case "file":
		if c.Input.Path == "" {
			return &ValidationError{Field: "input.path", Reason: "required for the file backend"}
		}
	case "postgres":
		if c.Input.ConnectionString == "" {
			return &ValidationError{Field: "input.connection-string", Reason: "required for the postgres backend"}
		}
	default:
		return &ValidationError{Field: "input.backend", Reason: "must be \"file\" or \"postgres\""}
	}
	if c.Input.SubjectColumn == "" || c.Input.AgeColumn == "" || c.Input.ValueColumn == "" {
		return &ValidationError{Field: "input", Reason: "subject, age and value column names are required"}
	}
	if c.Estimator.Bandwidth <= 0 {
		return &ValidationError{Field: "estimator.bandwidth", Reason: "must be positive"}
	}
	if c.Estimator.GridStep <= 0 || c.Estimator.IntegrationStep <= 0 {
		return &ValidationError{Field: "estimator", Reason: "grid-step and integration-step must be positive"}
	}
	if c.Estimator.MinSupport < 2 {
		return &ValidationError{Field: "estimator.min-support", Reason: "must be at least 2"}
	}
	if c.Laterality.SymmetricBand < 0 {
		return &ValidationError{Field: "laterality.symmetric-band", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError describes a configuration field that fails validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Reason
}
