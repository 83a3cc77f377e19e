// Package app wires one analysis run together: cohort loading, rate-curve
// estimation, trajectory integration, per-subject projection, and output.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"tautrack/internal/cohort"
	"tautrack/internal/log"
	"tautrack/internal/results"
	"tautrack/internal/trajectory"
	"tautrack/pkg/config"
)

// App represents one configured pipeline run
type App struct {
	configProvider config.Provider
	logger         *zap.SugaredLogger
}

// Summary reports what a finished run produced
type Summary struct {
	Subjects      int
	Observations  int
	GridPoints    int
	Supported     int
	TruncatedLow  bool
	TruncatedHigh bool
	Estimates     []trajectory.SubjectEstimate
	RunID         string
}

// New creates a new pipeline instance
func New(configProvider config.Provider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run executes the pipeline once and writes the configured outputs
func (a *App) Run(ctx context.Context) (*Summary, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	subjects, err := a.loadCohort(cfg)
	if err != nil {
		return nil, err
	}

	observations := 0
	for _, s := range subjects {
		observations += len(s.Observations)
	}
	log.Infof("loaded %d subjects with %d observations", len(subjects), observations)

	params := trajectory.Params{
		Bandwidth:       cfg.Estimator.Bandwidth,
		GridStep:        cfg.Estimator.GridStep,
		IntegrationStep: cfg.Estimator.IntegrationStep,
		MinSupport:      cfg.Estimator.MinSupport,
		Threshold:       cfg.Estimator.Threshold,
		MaxValue:        cfg.Estimator.MaxValue,
	}

	samples := trajectory.SampleRates(subjects)
	curve, err := trajectory.EstimateRateCurve(ctx, samples, params)
	if err != nil {
		return nil, fmt.Errorf("estimating rate curve: %w", err)
	}

	traj, err := trajectory.Integrate(curve, params)
	if err != nil {
		return nil, fmt.Errorf("integrating trajectory: %w", err)
	}
	if traj.TruncatedLow || traj.TruncatedHigh {
		log.Warnf("trajectory truncated (low=%t high=%t): rate support does not cover the full value range",
			traj.TruncatedLow, traj.TruncatedHigh)
	}

	obsEstimates, subjEstimates := trajectory.Project(subjects, traj)

	summary := &Summary{
		Subjects:      len(subjects),
		Observations:  observations,
		GridPoints:    len(curve.Points),
		Supported:     len(curve.Supported()),
		TruncatedLow:  traj.TruncatedLow,
		TruncatedHigh: traj.TruncatedHigh,
		Estimates:     subjEstimates,
	}

	if err := a.writeOutputs(cfg, curve, traj, obsEstimates); err != nil {
		return nil, err
	}

	if cfg.Output.ArchiveDSN != "" {
		archive, err := results.NewArchive(cfg.Output.ArchiveDSN, a.logger)
		if err != nil {
			return nil, err
		}
		runID, err := archive.SaveRun(params, traj, subjEstimates, observations)
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
	}

	return summary, nil
}

func (a *App) loadCohort(cfg *config.RunConfig) ([]cohort.Subject, error) {
	switch cfg.Input.Backend {
	case "file":
		loader := cohort.NewLoader(cfg.Input.Path, cohort.Columns{
			Subject: cfg.Input.SubjectColumn,
			Age:     cfg.Input.AgeColumn,
			Value:   cfg.Input.ValueColumn,
		}, cfg.Input.ExcludeSubjects, a.logger)
		return loader.Load()
	case "postgres":
		return cohort.LoadPostgres(cfg.Input.ConnectionString, cfg.Input.Query, cfg.Input.ExcludeSubjects, a.logger)
	default:
		return nil, fmt.Errorf("unsupported input backend: %s", cfg.Input.Backend)
	}
}

func (a *App) writeOutputs(cfg *config.RunConfig, curve trajectory.RateCurve, traj *trajectory.Trajectory, estimates []trajectory.ObservationEstimate) error {
	dir := cfg.Output.Directory
	if dir == "" {
		dir = "."
	}

	if cfg.Output.EstimatesFile != "" {
		path := filepath.Join(dir, cfg.Output.EstimatesFile)
		if err := results.WriteSubjectEstimates(path, estimates); err != nil {
			return fmt.Errorf("writing subject estimates: %w", err)
		}
		log.Infof("wrote subject estimates to %s", path)
	}
	if cfg.Output.RateCurveFile != "" {
		path := filepath.Join(dir, cfg.Output.RateCurveFile)
		if err := results.WriteRateCurve(path, curve); err != nil {
			return fmt.Errorf("writing rate curve: %w", err)
		}
		log.Infof("wrote rate curve to %s", path)
	}
	if cfg.Output.TrajectoryFile != "" {
		path := filepath.Join(dir, cfg.Output.TrajectoryFile)
		if err := results.WriteTrajectory(path, traj); err != nil {
			return fmt.Errorf("writing trajectory: %w", err)
		}
		log.Infof("wrote trajectory to %s", path)
	}
	return nil
}
