package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite database configuration.
// The schema is a single-row run_config table plus an excluded_subjects
// table holding the subject denylist.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete run configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*RunConfig, error) {
	config := Default()

	query := `
		SELECT input_backend, input_path, connection_string, input_query,
		       subject_column, age_column, value_column,
		       bandwidth, threshold, max_value, grid_step, integration_step, min_support,
		       left_column, right_column, symmetric_band,
		       t_threshold, permutations, seed, fisher, cache_path,
		       output_directory, estimates_file, rate_curve_file, trajectory_file, archive_dsn
		FROM run_config
		LIMIT 1`

	var inputPath, connStr, inputQuery sql.NullString
	var leftCol, rightCol, cachePath, archiveDSN sql.NullString
	var estimatesFile, rateCurveFile, trajectoryFile sql.NullString
	var maxValue sql.NullFloat64
	err := s.db.QueryRow(query).Scan(
		&config.Input.Backend, &inputPath, &connStr, &inputQuery,
		&config.Input.SubjectColumn, &config.Input.AgeColumn, &config.Input.ValueColumn,
		&config.Estimator.Bandwidth, &config.Estimator.Threshold, &maxValue,
		&config.Estimator.GridStep, &config.Estimator.IntegrationStep, &config.Estimator.MinSupport,
		&leftCol, &rightCol, &config.Laterality.SymmetricBand,
		&config.Network.TThreshold, &config.Network.Permutations, &config.Network.Seed,
		&config.Network.Fisher, &cachePath,
		&config.Output.Directory, &estimatesFile, &rateCurveFile, &trajectoryFile, &archiveDSN,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load run_config: %w", err)
	}

	config.Input.Path = inputPath.String
	config.Input.ConnectionString = connStr.String
	config.Input.Query = inputQuery.String
	config.Estimator.MaxValue = maxValue.Float64
	config.Laterality.LeftColumn = leftCol.String
	config.Laterality.RightColumn = rightCol.String
	config.Network.CachePath = cachePath.String
	config.Output.EstimatesFile = estimatesFile.String
	config.Output.RateCurveFile = rateCurveFile.String
	config.Output.TrajectoryFile = trajectoryFile.String
	config.Output.ArchiveDSN = archiveDSN.String

	excluded, err := s.getExcludedSubjects()
	if err != nil {
		return nil, err
	}
	config.Input.ExcludeSubjects = excluded

	return config, nil
}

// getExcludedSubjects returns the subject denylist from the database
func (s *SQLiteProvider) getExcludedSubjects() ([]string, error) {
	rows, err := s.db.Query(`SELECT subject_id FROM excluded_subjects ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load excluded_subjects: %w", err)
	}
	defer rows.Close()

	var excluded []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan excluded subject: %w", err)
		}
		excluded = append(excluded, id)
	}
	return excluded, rows.Err()
}

// SaveConfig writes the full run configuration, replacing any existing one.
// The schema is created on first use.
func (s *SQLiteProvider) SaveConfig(config *RunConfig) error {
	schema := `
		CREATE TABLE IF NOT EXISTS run_config (
			input_backend TEXT NOT NULL,
			input_path TEXT,
			connection_string TEXT,
			input_query TEXT,
			subject_column TEXT NOT NULL,
			age_column TEXT NOT NULL,
			value_column TEXT NOT NULL,
			bandwidth REAL NOT NULL,
			threshold REAL NOT NULL,
			max_value REAL,
			grid_step REAL NOT NULL,
			integration_step REAL NOT NULL,
			min_support INTEGER NOT NULL,
			left_column TEXT,
			right_column TEXT,
			symmetric_band REAL NOT NULL,
			t_threshold REAL NOT NULL,
			permutations INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			fisher INTEGER NOT NULL,
			cache_path TEXT,
			output_directory TEXT NOT NULL,
			estimates_file TEXT,
			rate_curve_file TEXT,
			trajectory_file TEXT,
			archive_dsn TEXT
		);
		CREATE TABLE IF NOT EXISTS excluded_subjects (
			subject_id TEXT PRIMARY KEY
		);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create config schema: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_config`); err != nil {
		return fmt.Errorf("failed to clear run_config: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM excluded_subjects`); err != nil {
		return fmt.Errorf("failed to clear excluded_subjects: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO run_config (
			input_backend, input_path, connection_string, input_query,
			subject_column, age_column, value_column,
			bandwidth, threshold, max_value, grid_step, integration_step, min_support,
			left_column, right_column, symmetric_band,
			t_threshold, permutations, seed, fisher, cache_path,
			output_directory, estimates_file, rate_curve_file, trajectory_file, archive_dsn
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		config.Input.Backend, config.Input.Path, config.Input.ConnectionString, config.Input.Query,
		config.Input.SubjectColumn, config.Input.AgeColumn, config.Input.ValueColumn,
		config.Estimator.Bandwidth, config.Estimator.Threshold, config.Estimator.MaxValue,
		config.Estimator.GridStep, config.Estimator.IntegrationStep, config.Estimator.MinSupport,
		config.Laterality.LeftColumn, config.Laterality.RightColumn, config.Laterality.SymmetricBand,
		config.Network.TThreshold, config.Network.Permutations, config.Network.Seed,
		config.Network.Fisher, config.Network.CachePath,
		config.Output.Directory, config.Output.EstimatesFile, config.Output.RateCurveFile,
		config.Output.TrajectoryFile, config.Output.ArchiveDSN,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run_config: %w", err)
	}

	for _, id := range config.Input.ExcludeSubjects {
		if _, err := tx.Exec(`INSERT INTO excluded_subjects (subject_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("failed to insert excluded subject %q: %w", id, err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false: SQLite configs can be managed in place
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
