package cohort

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Columns names the required columns of the input table
type Columns struct {
	Subject string
	Age     string
	Value   string
}

// Loader reads observations from a delimited text file.
// Rows with missing or unparseable age/value fields are dropped, as are
// subjects on the exclusion denylist. A missing required column is fatal.
type Loader struct {
	path     string
	columns  Columns
	excluded map[string]bool
	logger   *zap.SugaredLogger
}

// NewLoader creates a file loader for the given path and column names
func NewLoader(path string, columns Columns, excludeSubjects []string, logger *zap.SugaredLogger) *Loader {
	excluded := make(map[string]bool, len(excludeSubjects))
	for _, id := range excludeSubjects {
		excluded[id] = true
	}
	return &Loader{
		path:     path,
		columns:  columns,
		excluded: excluded,
		logger:   logger,
	}
}

// Load reads the table and returns per-subject observation series
func (l *Loader) Load() ([]Subject, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", l.path, err)
	}

	subjectIdx, err := columnIndex(header, l.columns.Subject)
	if err != nil {
		return nil, err
	}
	ageIdx, err := columnIndex(header, l.columns.Age)
	if err != nil {
		return nil, err
	}
	valueIdx, err := columnIndex(header, l.columns.Value)
	if err != nil {
		return nil, err
	}

	var observations []Observation
	dropped := 0
	excluded := 0
	line := 1

	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		line++

		id := strings.TrimSpace(record[subjectIdx])
		if id == "" {
			dropped++
			continue
		}
		if l.excluded[id] {
			excluded++
			continue
		}

		age, ageOK := parseFloat(record[ageIdx])
		value, valueOK := parseFloat(record[valueIdx])
		if !ageOK || !valueOK {
			dropped++
			l.logger.Debugf("dropping line %d for %s: missing age or value", line, id)
			continue
		}

		observations = append(observations, Observation{
			SubjectID: id,
			Age:       age,
			Value:     value,
		})
	}

	if dropped > 0 || excluded > 0 {
		l.logger.Debugf("dropped %d rows with missing values, %d rows for excluded subjects", dropped, excluded)
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("no usable observations in %s", l.path)
	}

	return Group(observations), nil
}

// columnIndex finds a named column in the header; absence is a structural
// input error and aborts the run.
func columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("required column %q not found in input table", name)
}

// parseFloat parses a table cell, treating blanks and non-finite values as
// missing
func parseFloat(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
