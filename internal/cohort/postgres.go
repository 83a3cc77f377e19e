package cohort

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// LoadPostgres reads observations from a Postgres database. The query must
// select three columns in order: subject id, age, biomarker value. Rows with
// NULL age or value are dropped, matching the file loader's missing-value
// policy.
func LoadPostgres(connStr, query string, excludeSubjects []string, logger *zap.SugaredLogger) ([]Subject, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	excluded := make(map[string]bool, len(excludeSubjects))
	for _, id := range excludeSubjects {
		excluded[id] = true
	}

	var observations []Observation
	dropped := 0
	skipped := 0

	for rows.Next() {
		var id string
		var age, value sql.NullFloat64
		if err := rows.Scan(&id, &age, &value); err != nil {
			return nil, fmt.Errorf("failed to scan observation row: %w", err)
		}

		if excluded[id] {
			skipped++
			continue
		}
		if !age.Valid || !value.Valid {
			dropped++
			continue
		}

		observations = append(observations, Observation{
			SubjectID: id,
			Age:       age.Float64,
			Value:     value.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observation rows: %w", err)
	}

	if dropped > 0 || skipped > 0 {
		logger.Debugf("dropped %d rows with NULL values, %d rows for excluded subjects", dropped, skipped)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("query returned no usable observations")
	}

	return Group(observations), nil
}
