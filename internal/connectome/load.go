package connectome

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Options controls the transforms applied to a matrix after loading. The
// transforms run in a fixed order: diagonal zeroing, region drop, negative
// clamp, NaN replacement, Fisher transform, standardization, masking.
type Options struct {
	DropFirstROI bool
	NoNegative   bool
	ReplaceNaN   *float64
	Fisher       bool
	Standardize  bool
	Mask         *Matrix
}

// LoadCSV reads a headerless square numeric CSV matrix
func LoadCSV(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening matrix file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading matrix file %s: %w", path, err)
	}

	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("matrix file %s is empty", path)
	}

	m := NewMatrix(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("matrix file %s is not square: row %d has %d columns, expected %d",
				path, i+1, len(row), n)
		}
		for j, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("matrix file %s row %d column %d: %w", path, i+1, j+1, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// Load reads a matrix from CSV and applies the configured transforms
func Load(path string, opts Options) (*Matrix, error) {
	m, err := LoadCSV(path)
	if err != nil {
		return nil, err
	}

	m.ZeroDiagonal()

	if opts.DropFirstROI {
		if m, err = m.DropFirstROI(); err != nil {
			return nil, err
		}
	}
	if opts.NoNegative {
		m.ClampNegative()
	}
	if opts.ReplaceNaN != nil && m.HasNaN() {
		m.ReplaceNaN(*opts.ReplaceNaN)
	}
	if opts.Fisher {
		m.FisherRtoZ()
	}
	if opts.Standardize {
		m.Standardize()
	}
	if opts.Mask != nil {
		if err := m.ApplyMask(opts.Mask); err != nil {
			return nil, err
		}
	}
	return m, nil
}
