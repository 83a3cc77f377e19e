// Package connectome loads and transforms square connectivity matrices and
// assembles per-subject matrices into cohort stacks.
package connectome

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Matrix is a square connectivity matrix stored row-major
type Matrix struct {
	N    int
	Data []float64
}

// NewMatrix allocates a zeroed n×n matrix
func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float64, n*n)}
}

func (m *Matrix) At(i, j int) float64     { return m.Data[i*m.N+j] }
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.N+j] = v }

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{N: m.N, Data: make([]float64, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}

// ZeroDiagonal clears self-connections in place
func (m *Matrix) ZeroDiagonal() {
	for i := 0; i < m.N; i++ {
		m.Set(i, i, 0)
	}
}

// HasNaN reports whether any entry is NaN
func (m *Matrix) HasNaN() bool {
	for _, v := range m.Data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// AllZero reports whether every entry is zero
func (m *Matrix) AllZero() bool {
	for _, v := range m.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// DropFirstROI returns the matrix with its first row and column removed
func (m *Matrix) DropFirstROI() (*Matrix, error) {
	if m.N < 2 {
		return nil, fmt.Errorf("cannot drop a region from a %dx%d matrix", m.N, m.N)
	}
	out := NewMatrix(m.N - 1)
	for i := 1; i < m.N; i++ {
		for j := 1; j < m.N; j++ {
			out.Set(i-1, j-1, m.At(i, j))
		}
	}
	return out, nil
}

// ClampNegative sets negative entries to zero in place
func (m *Matrix) ClampNegative() {
	for i, v := range m.Data {
		if v < 0 {
			m.Data[i] = 0
		}
	}
}

// ReplaceNaN substitutes NaN entries with the given value in place
func (m *Matrix) ReplaceNaN(with float64) {
	for i, v := range m.Data {
		if math.IsNaN(v) {
			m.Data[i] = with
		}
	}
}

// FisherRtoZ applies the Fisher r-to-z transform elementwise in place
func (m *Matrix) FisherRtoZ() {
	for i, v := range m.Data {
		m.Data[i] = math.Atanh(v)
	}
}

// Standardize z-scores all entries against the matrix-wide mean and
// population standard deviation, in place
func (m *Matrix) Standardize() {
	mean := stat.Mean(m.Data, nil)
	var ss float64
	for _, v := range m.Data {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(m.Data)))
	if std == 0 {
		return
	}
	for i, v := range m.Data {
		m.Data[i] = (v - mean) / std
	}
}

// ApplyMask multiplies the matrix elementwise by a mask of the same size
func (m *Matrix) ApplyMask(mask *Matrix) error {
	if mask.N != m.N {
		return fmt.Errorf("mask is %dx%d but matrix is %dx%d", mask.N, mask.N, m.N, m.N)
	}
	for i := range m.Data {
		m.Data[i] *= mask.Data[i]
	}
	return nil
}

// PercentileMask builds a binary mask marking entries at or above the given
// percentile of the strict upper triangle.
func PercentileMask(m *Matrix, percentile float64) *Matrix {
	upper := make([]float64, 0, m.N*(m.N-1)/2)
	for i := 0; i < m.N; i++ {
		for j := i + 1; j < m.N; j++ {
			upper = append(upper, m.At(i, j))
		}
	}
	sort.Float64s(upper)
	thr := stat.Quantile(percentile/100, stat.LinInterp, upper, nil)

	mask := NewMatrix(m.N)
	for i, v := range m.Data {
		if v >= thr {
			mask.Data[i] = 1
		}
	}
	return mask
}

// NodalStrength returns the per-node sum of connection weights
func NodalStrength(m *Matrix) []float64 {
	strength := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		var sum float64
		for j := 0; j < m.N; j++ {
			sum += m.At(i, j)
		}
		strength[i] = sum
	}
	return strength
}

// MeanMatrix averages a set of equally-sized matrices entrywise
func MeanMatrix(matrices []*Matrix) (*Matrix, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("no matrices to average")
	}
	n := matrices[0].N
	out := NewMatrix(n)
	for _, m := range matrices {
		if m.N != n {
			return nil, fmt.Errorf("matrix sizes differ: %d vs %d", m.N, n)
		}
		for i, v := range m.Data {
			out.Data[i] += v
		}
	}
	for i := range out.Data {
		out.Data[i] /= float64(len(matrices))
	}
	return out, nil
}
