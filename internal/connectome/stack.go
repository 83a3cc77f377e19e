package connectome

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Stack is a cohort's worth of processed matrices, one per retained subject
type Stack struct {
	SubjectIDs []string    `msgpack:"subject_ids"`
	Nodes      int         `msgpack:"nodes"`
	Matrices   [][]float64 `msgpack:"matrices"`
	Digest     string      `msgpack:"digest"`
}

// Len returns the number of subjects in the stack
func (s *Stack) Len() int { return len(s.SubjectIDs) }

// Matrix returns subject i's matrix as a view over the stack's storage
func (s *Stack) Matrix(i int) *Matrix {
	return &Matrix{N: s.Nodes, Data: s.Matrices[i]}
}

// MergeCohort loads and transforms one matrix per subject and stacks the
// usable ones. Subjects whose matrix is missing, contains NaN after
// transforms, or is all zero are excluded and returned separately.
func MergeCohort(ids, paths []string, opts Options, logger *zap.SugaredLogger) (*Stack, []string, error) {
	if len(ids) != len(paths) {
		return nil, nil, fmt.Errorf("got %d subject ids but %d matrix paths", len(ids), len(paths))
	}

	stack := &Stack{Digest: CohortDigest(paths, opts)}
	var excluded []string

	for i, id := range ids {
		if paths[i] == "" {
			logger.Warnf("no matrix path for subject %s, excluding", id)
			excluded = append(excluded, id)
			continue
		}

		m, err := Load(paths[i], opts)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warnf("matrix file missing for subject %s, excluding", id)
				excluded = append(excluded, id)
				continue
			}
			return nil, nil, fmt.Errorf("subject %s: %w", id, err)
		}

		if m.HasNaN() {
			logger.Warnf("NaN entries in matrix for subject %s, excluding", id)
			excluded = append(excluded, id)
			continue
		}
		if m.AllZero() {
			logger.Warnf("all-zero matrix for subject %s, excluding", id)
			excluded = append(excluded, id)
			continue
		}

		if stack.Nodes == 0 {
			stack.Nodes = m.N
		} else if m.N != stack.Nodes {
			return nil, nil, fmt.Errorf("subject %s: matrix is %dx%d but the stack is %dx%d",
				id, m.N, m.N, stack.Nodes, stack.Nodes)
		}

		stack.SubjectIDs = append(stack.SubjectIDs, id)
		stack.Matrices = append(stack.Matrices, m.Data)
	}

	if stack.Len() == 0 {
		return nil, excluded, fmt.Errorf("no usable matrices in cohort of %d subjects", len(ids))
	}

	logger.Infof("merged %d of %d subject matrices (%d nodes)", stack.Len(), len(ids), stack.Nodes)
	return stack, excluded, nil
}

// CohortDigest derives a stable key for a merge from its source paths and
// transform options, used to validate the stack cache.
func CohortDigest(paths []string, opts Options) string {
	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s\n", p)
	}
	nanRepl := "none"
	if opts.ReplaceNaN != nil {
		nanRepl = fmt.Sprintf("%g", *opts.ReplaceNaN)
	}
	fmt.Fprintf(h, "drop=%t neg=%t nan=%s fisher=%t std=%t mask=%t",
		opts.DropFirstROI, opts.NoNegative, nanRepl, opts.Fisher, opts.Standardize, opts.Mask != nil)
	return hex.EncodeToString(h.Sum(nil))
}

// SaveStack writes a merged stack to the cache file
func SaveStack(path string, stack *Stack) error {
	data, err := msgpack.Marshal(stack)
	if err != nil {
		return fmt.Errorf("encoding stack: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing stack cache: %w", err)
	}
	return nil
}

// LoadStack reads a cached stack, verifying it against the expected digest.
// A digest mismatch means the sources or options changed since the cache
// was written.
func LoadStack(path, digest string) (*Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stack cache: %w", err)
	}
	var stack Stack
	if err := msgpack.Unmarshal(data, &stack); err != nil {
		return nil, fmt.Errorf("decoding stack cache: %w", err)
	}
	if digest != "" && stack.Digest != digest {
		return nil, fmt.Errorf("stack cache is stale: digest %s does not match %s", stack.Digest, digest)
	}
	return &stack, nil
}
