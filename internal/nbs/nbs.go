// Package nbs tests group differences over connectivity networks with a
// permutation-based component statistic: suprathreshold edges are grouped
// into connected components and each component's extent is compared against
// a null distribution of maximum extents from group-label permutations.
package nbs

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"tautrack/internal/connectome"
)

// Params configures a network comparison
type Params struct {
	// TThreshold is the primary per-edge |t| cutoff for component formation
	TThreshold float64
	// Permutations is the size of the label-permutation null
	Permutations int
	// Seed fixes the permutation sequence
	Seed int64
}

// Edge identifies one undirected connection by its node indices, I < J
type Edge struct {
	I, J int
}

// Component is one suprathreshold connected component with its
// permutation p-value
type Component struct {
	Edges  []Edge
	Extent int
	PValue float64
}

// Result holds the full comparison output
type Result struct {
	// TStats is the per-edge t statistic matrix (group A minus group B)
	TStats *connectome.Matrix
	// Components lists observed suprathreshold components, largest first
	Components []Component
	// NullMaxExtent is the permutation null of maximum component extents
	NullMaxExtent []int
}

// Compare runs the network-based statistic between two cohort stacks. The
// permutation sequence is generated once from the seed, so the result does
// not depend on worker scheduling.
func Compare(ctx context.Context, a, b *connectome.Stack, p Params) (*Result, error) {
	if a.Len() < 2 || b.Len() < 2 {
		return nil, fmt.Errorf("each group needs at least 2 subjects, got %d and %d", a.Len(), b.Len())
	}
	if a.Nodes != b.Nodes {
		return nil, fmt.Errorf("group matrices differ in size: %d vs %d nodes", a.Nodes, b.Nodes)
	}
	if p.TThreshold <= 0 {
		return nil, fmt.Errorf("t threshold must be positive, got %g", p.TThreshold)
	}
	if p.Permutations < 1 {
		return nil, fmt.Errorf("permutation count must be at least 1, got %d", p.Permutations)
	}

	nodes := a.Nodes
	nA, nB := a.Len(), b.Len()
	total := nA + nB

	// Pool both groups; the first nA rows are group A under the identity
	// labeling.
	pooled := make([][]float64, 0, total)
	pooled = append(pooled, a.Matrices...)
	pooled = append(pooled, b.Matrices...)

	identity := make([]int, total)
	for i := range identity {
		identity[i] = i
	}

	tstats := edgeTStats(pooled, identity, nA, nodes)
	components := suprathresholdComponents(tstats, p.TThreshold)

	// Pre-generate all permutations from one seeded source, then evaluate
	// them in parallel.
	rng := rand.New(rand.NewSource(p.Seed))
	perms := make([][]int, p.Permutations)
	for i := range perms {
		perms[i] = rng.Perm(total)
	}

	nullMax := make([]int, p.Permutations)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range perms {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			permT := edgeTStats(pooled, perms[i], nA, nodes)
			nullMax[i] = maxComponentExtent(permT, p.TThreshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for c := range components {
		exceed := 0
		for _, extent := range nullMax {
			if extent >= components[c].Extent {
				exceed++
			}
		}
		components[c].PValue = float64(1+exceed) / float64(1+p.Permutations)
	}

	return &Result{TStats: tstats, Components: components, NullMaxExtent: nullMax}, nil
}

// edgeTStats computes the pooled two-sample t statistic for every edge
// under the given subject ordering, where the first nA entries of order are
// group A. Edges with zero pooled variance get t = 0.
func edgeTStats(pooled [][]float64, order []int, nA, nodes int) *connectome.Matrix {
	total := len(order)
	nB := total - nA
	fa, fb := float64(nA), float64(nB)
	df := fa + fb - 2

	out := connectome.NewMatrix(nodes)
	for i := 0; i < nodes; i++ {
		for j := i + 1; j < nodes; j++ {
			idx := i*nodes + j

			var sumA, sumB float64
			for k := 0; k < nA; k++ {
				sumA += pooled[order[k]][idx]
			}
			for k := nA; k < total; k++ {
				sumB += pooled[order[k]][idx]
			}
			meanA, meanB := sumA/fa, sumB/fb

			var ssA, ssB float64
			for k := 0; k < nA; k++ {
				d := pooled[order[k]][idx] - meanA
				ssA += d * d
			}
			for k := nA; k < total; k++ {
				d := pooled[order[k]][idx] - meanB
				ssB += d * d
			}

			pooledVar := (ssA + ssB) / df
			if pooledVar <= 0 {
				continue
			}
			t := (meanA - meanB) / math.Sqrt(pooledVar*(1/fa+1/fb))
			out.Set(i, j, t)
			out.Set(j, i, t)
		}
	}
	return out
}

// suprathresholdComponents finds connected components among edges with
// |t| at or above the threshold, sorted by extent descending
func suprathresholdComponents(tstats *connectome.Matrix, threshold float64) []Component {
	ug := simple.NewUndirectedGraph()
	for i := 0; i < tstats.N; i++ {
		for j := i + 1; j < tstats.N; j++ {
			if math.Abs(tstats.At(i, j)) >= threshold {
				ug.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}

	var components []Component
	for _, nodes := range topo.ConnectedComponents(ug) {
		if len(nodes) < 2 {
			continue
		}
		ids := make([]int, len(nodes))
		for k, n := range nodes {
			ids[k] = int(n.ID())
		}
		sort.Ints(ids)

		var edges []Edge
		for x := 0; x < len(ids); x++ {
			for y := x + 1; y < len(ids); y++ {
				if ug.HasEdgeBetween(int64(ids[x]), int64(ids[y])) {
					edges = append(edges, Edge{I: ids[x], J: ids[y]})
				}
			}
		}
		components = append(components, Component{Edges: edges, Extent: len(edges)})
	}

	sort.Slice(components, func(i, j int) bool {
		return components[i].Extent > components[j].Extent
	})
	return components
}

// maxComponentExtent returns the largest component extent at the threshold,
// zero when no edge survives
func maxComponentExtent(tstats *connectome.Matrix, threshold float64) int {
	max := 0
	for _, c := range suprathresholdComponents(tstats, threshold) {
		if c.Extent > max {
			max = c.Extent
		}
	}
	return max
}
