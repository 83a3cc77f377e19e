package connectome

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeMatrixCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeMatrixCSV(t, dir, "m.csv", "0,0.5,0.3\n0.5,0,0.2\n0.3,0.2,0\n")

	m, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.N != 3 {
		t.Fatalf("expected 3 nodes, got %d", m.N)
	}
	if got := m.At(0, 1); got != 0.5 {
		t.Errorf("expected 0.5 at (0,1), got %.4f", got)
	}
	if got := m.At(2, 0); got != 0.3 {
		t.Errorf("expected 0.3 at (2,0), got %.4f", got)
	}
}

func TestLoadCSVNotSquare(t *testing.T) {
	dir := t.TempDir()
	path := writeMatrixCSV(t, dir, "bad.csv", "0,1\n1,0\n0,1\n")

	if _, err := LoadCSV(path); err == nil {
		t.Error("expected error for non-square matrix")
	}
}

func TestLoadTransformOrder(t *testing.T) {
	// Diagonal zeroed, first region dropped, negatives clamped
	dir := t.TempDir()
	path := writeMatrixCSV(t, dir, "m.csv", "9,0.1,0.2\n0.1,9,-0.4\n0.2,-0.4,9\n")

	m, err := Load(path, Options{DropFirstROI: true, NoNegative: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.N != 2 {
		t.Fatalf("expected 2 nodes after region drop, got %d", m.N)
	}
	if got := m.At(0, 0); got != 0 {
		t.Errorf("diagonal not zeroed: %.4f", got)
	}
	if got := m.At(0, 1); got != 0 {
		t.Errorf("negative entry not clamped: %.4f", got)
	}
}

func TestLoadReplaceNaNAndFisher(t *testing.T) {
	dir := t.TempDir()
	path := writeMatrixCSV(t, dir, "m.csv", "0,NaN\n0.5,0\n")

	zero := 0.0
	m, err := Load(path, Options{ReplaceNaN: &zero, Fisher: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.At(0, 1); got != 0 {
		t.Errorf("NaN not replaced: %.4f", got)
	}
	if want := math.Atanh(0.5); math.Abs(m.At(1, 0)-want) > 1e-12 {
		t.Errorf("expected atanh(0.5) = %.6f, got %.6f", want, m.At(1, 0))
	}
}

func TestStandardize(t *testing.T) {
	m := NewMatrix(2)
	m.Data = []float64{1, 2, 3, 4}
	m.Standardize()

	mean := (m.Data[0] + m.Data[1] + m.Data[2] + m.Data[3]) / 4
	if math.Abs(mean) > 1e-12 {
		t.Errorf("expected zero mean after standardization, got %.6f", mean)
	}
	// Population SD of {1,2,3,4} is sqrt(1.25); the largest entry maps to
	// 1.5/sqrt(1.25)
	if want := 1.5 / math.Sqrt(1.25); math.Abs(m.Data[3]-want) > 1e-12 {
		t.Errorf("expected %.6f, got %.6f", want, m.Data[3])
	}
}

func TestPercentileMask(t *testing.T) {
	m := NewMatrix(3)
	m.Set(0, 1, 0.1)
	m.Set(0, 2, 0.5)
	m.Set(1, 2, 0.9)
	m.Set(1, 0, 0.1)
	m.Set(2, 0, 0.5)
	m.Set(2, 1, 0.9)

	mask := PercentileMask(m, 50)
	if mask.At(1, 2) != 1 || mask.At(2, 1) != 1 {
		t.Error("top edge not in mask")
	}
	if mask.At(0, 1) != 0 || mask.At(1, 0) != 0 {
		t.Error("bottom edge wrongly in mask")
	}
	if mask.At(0, 2) != 1 {
		t.Error("middle edge below 50th percentile cut")
	}
}

func TestNodalStrength(t *testing.T) {
	m := NewMatrix(3)
	m.Set(0, 1, 0.2)
	m.Set(0, 2, 0.3)
	m.Set(1, 0, 0.2)
	m.Set(2, 0, 0.3)

	strength := NodalStrength(m)
	want := []float64{0.5, 0.2, 0.3}
	for i := range want {
		if math.Abs(strength[i]-want[i]) > 1e-12 {
			t.Errorf("node %d: expected strength %.2f, got %.2f", i, want[i], strength[i])
		}
	}
}

func TestMergeCohortExclusions(t *testing.T) {
	dir := t.TempDir()
	good := writeMatrixCSV(t, dir, "good.csv", "0,0.5\n0.5,0\n")
	withNaN := writeMatrixCSV(t, dir, "nan.csv", "0,NaN\n0.5,0\n")
	allZero := writeMatrixCSV(t, dir, "zero.csv", "0,0\n0,0\n")
	missing := filepath.Join(dir, "missing.csv")

	ids := []string{"s1", "s2", "s3", "s4", "s5"}
	paths := []string{good, withNaN, allZero, missing, ""}

	stack, excluded, err := MergeCohort(ids, paths, Options{}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if stack.Len() != 1 || stack.SubjectIDs[0] != "s1" {
		t.Fatalf("expected only s1 retained, got %v", stack.SubjectIDs)
	}
	if len(excluded) != 4 {
		t.Errorf("expected 4 exclusions, got %v", excluded)
	}
	if got := stack.Matrix(0).At(0, 1); got != 0.5 {
		t.Errorf("expected 0.5 in stacked matrix, got %.4f", got)
	}
}

func TestMergeCohortSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	two := writeMatrixCSV(t, dir, "two.csv", "0,0.5\n0.5,0\n")
	three := writeMatrixCSV(t, dir, "three.csv", "0,0.5,0.1\n0.5,0,0.1\n0.1,0.1,0\n")

	_, _, err := MergeCohort([]string{"a", "b"}, []string{two, three}, Options{}, zap.NewNop().Sugar())
	if err == nil {
		t.Error("expected error for mismatched matrix sizes")
	}
}

func TestStackCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	good := writeMatrixCSV(t, dir, "good.csv", "0,0.5\n0.5,0\n")

	stack, _, err := MergeCohort([]string{"s1"}, []string{good}, Options{}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	cache := filepath.Join(dir, "stack.msgpack")
	if err := SaveStack(cache, stack); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadStack(cache, stack.Digest)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 1 || loaded.Nodes != 2 {
		t.Fatalf("round trip lost shape: %d subjects, %d nodes", loaded.Len(), loaded.Nodes)
	}
	if got := loaded.Matrix(0).At(1, 0); got != 0.5 {
		t.Errorf("round trip lost data: %.4f", got)
	}

	if _, err := LoadStack(cache, "different-digest"); err == nil {
		t.Error("expected stale-cache error for mismatched digest")
	}
}

func TestCohortDigestSensitivity(t *testing.T) {
	a := CohortDigest([]string{"x.csv"}, Options{})
	b := CohortDigest([]string{"x.csv"}, Options{Fisher: true})
	c := CohortDigest([]string{"y.csv"}, Options{})

	if a == b {
		t.Error("digest ignores transform options")
	}
	if a == c {
		t.Error("digest ignores source paths")
	}
}
