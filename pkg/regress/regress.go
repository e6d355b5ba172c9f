// Package regress implements a bagging ensemble of shallow regression
// trees on a single feature. It maps scan numbers of one run onto the
// scan numbers of another.
package regress

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/PepKey/pkg/core"
)

// Params are the ensemble hyperparameters
type Params struct {
	MaxDepth      int    // Maximum depth of each tree
	NumEstimators int    // Number of bootstrapped trees
	Seed          uint64 // Seed of the bootstrap sampler
}

// DefaultParams returns depth 5, 25 trees, seed 1.
func DefaultParams() Params {
	return Params{MaxDepth: 5, NumEstimators: 25, Seed: 1}
}

// Model is a fitted ensemble
type Model struct {
	trees []*node
}

type node struct {
	value     float64
	threshold float64
	left      *node // x <= threshold
	right     *node
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Fit grows NumEstimators trees, each on a bootstrap sample of (x, y)
// drawn with replacement. A single training point yields a constant model.
func Fit(x, y []float64, p Params) (*Model, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("regress: %d x values but %d y values", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("regress: no training points: %w", core.ErrDegenerateFit)
	}
	if p.NumEstimators < 1 {
		return nil, errors.New("regress: at least one estimator is required")
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return nil, fmt.Errorf("regress: NaN in training point %d: %w", i, core.ErrDegenerateFit)
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	n := len(x)
	m := &Model{trees: make([]*node, p.NumEstimators)}
	for t := range m.trees {
		sample := make([]point, n)
		for i := range sample {
			j := rng.Intn(n)
			sample[i] = point{x: x[j], y: y[j]}
		}
		sort.SliceStable(sample, func(i, j int) bool {
			return sample[i].x < sample[j].x
		})
		m.trees[t] = grow(sample, 0, p.MaxDepth)
	}
	return m, nil
}

type point struct {
	x, y float64
}

// grow builds a CART regression tree on points sorted by x, choosing the
// split that minimizes the summed squared error of both children.
func grow(pts []point, depth, maxDepth int) *node {
	ys := make([]float64, len(pts))
	for i := range pts {
		ys[i] = pts[i].y
	}
	nd := &node{value: stat.Mean(ys, nil)}
	if depth >= maxDepth || len(pts) < 2 || constant(ys) {
		return nd
	}

	var total, totalSq float64
	for _, v := range ys {
		total += v
		totalSq += v * v
	}

	best := -1
	bestSSE := math.Inf(1)
	var leftSum, leftSq float64
	for i := 1; i < len(pts); i++ {
		leftSum += ys[i-1]
		leftSq += ys[i-1] * ys[i-1]
		if pts[i].x == pts[i-1].x {
			continue
		}
		nl := float64(i)
		nr := float64(len(pts) - i)
		rightSum := total - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < bestSSE {
			bestSSE = sse
			best = i
		}
	}
	if best < 0 {
		return nd
	}

	nd.threshold = (pts[best-1].x + pts[best].x) / 2
	nd.left = grow(pts[:best], depth+1, maxDepth)
	nd.right = grow(pts[best:], depth+1, maxDepth)
	return nd
}

func constant(ys []float64) bool {
	for _, v := range ys[1:] {
		if v != ys[0] {
			return false
		}
	}
	return true
}

// Predict returns the mean prediction of all trees for x
func (m *Model) Predict(x float64) float64 {
	var sum float64
	for _, t := range m.trees {
		nd := t
		for !nd.leaf() {
			if x <= nd.threshold {
				nd = nd.left
			} else {
				nd = nd.right
			}
		}
		sum += nd.value
	}
	return sum / float64(len(m.trees))
}

// PredictAll applies Predict to every value of xs
func (m *Model) PredictAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Predict(x)
	}
	return out
}

// RSquared returns the coefficient of determination of estimates against
// observed values. Constant observations score 1 for a perfect fit and 0
// otherwise; fewer than two observations give NaN.
func RSquared(observed, estimates []float64) float64 {
	if len(observed) != len(estimates) || len(observed) < 2 {
		return math.NaN()
	}
	if constant(observed) {
		for i := range observed {
			if observed[i] != estimates[i] {
				return 0
			}
		}
		return 1
	}
	return stat.RSquaredFrom(estimates, observed, nil)
}

// Round rounds every value to the nearest integer
func Round(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Round(v)
	}
	return out
}
