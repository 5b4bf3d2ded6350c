package models

import (
	"fmt"
	"sort"
)

// BoostOptions configures the gradient-boosted tree ensemble
type BoostOptions struct {
	Trees        int
	Depth        int
	LearningRate float64
	MinLeaf      int
}

func (o BoostOptions) validate() error {
	switch {
	case o.Trees < 1:
		return fmt.Errorf("boost trees must be at least 1, got %d", o.Trees)
	case o.Depth < 1:
		return fmt.Errorf("boost depth must be at least 1, got %d", o.Depth)
	case !(o.LearningRate > 0 && o.LearningRate <= 1):
		return fmt.Errorf("boost learning rate must be in (0, 1], got %g", o.LearningRate)
	case o.MinLeaf < 1:
		return fmt.Errorf("boost min leaf must be at least 1, got %d", o.MinLeaf)
	}
	return nil
}

// GradientBoosting is a squared-loss ensemble of regression trees
type GradientBoosting struct {
	init  float64
	rate  float64
	trees []*treeNode
}

// FitGradientBoosting fits trees sequentially to the current residuals
func FitGradientBoosting(x [][]float64, y []float64, opts BoostOptions) (*GradientBoosting, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("boosting needs matching non-empty inputs, got %d rows and %d targets", len(x), len(y))
	}

	g := &GradientBoosting{rate: opts.LearningRate}
	for _, v := range y {
		g.init += v
	}
	g.init /= float64(len(y))

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.init
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	resid := make([]float64, len(y))
	for m := 0; m < opts.Trees; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		tree := growTree(x, resid, idx, 0, opts.Depth, opts.MinLeaf)
		if tree.leaf && tree.value == 0 {
			break
		}
		g.trees = append(g.trees, tree)
		for i := range pred {
			pred[i] += g.rate * tree.predict(x[i])
		}
	}
	return g, nil
}

// Predict evaluates the ensemble on one feature row
func (g *GradientBoosting) Predict(row []float64) float64 {
	v := g.init
	for _, t := range g.trees {
		v += g.rate * t.predict(row)
	}
	return v
}

// Trees returns the number of fitted trees
func (g *GradientBoosting) Trees() int { return len(g.trees) }

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// growTree builds a CART regression tree by exhaustive search for the split
// with the largest reduction in squared error
func growTree(x [][]float64, y []float64, idx []int, depth, maxDepth, minLeaf int) *treeNode {
	mean := 0.0
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	leaf := &treeNode{leaf: true, value: mean}

	if depth >= maxDepth || len(idx) < 2*minLeaf {
		return leaf
	}

	split, ok := bestSplit(x, y, idx, minLeaf)
	if !ok {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if x[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   split.feature,
		threshold: split.threshold,
		left:      growTree(x, y, left, depth+1, maxDepth, minLeaf),
		right:     growTree(x, y, right, depth+1, maxDepth, minLeaf),
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func bestSplit(x [][]float64, y []float64, idx []int, minLeaf int) (split, bool) {
	n := len(idx)
	total := 0.0
	for _, i := range idx {
		total += y[i]
	}

	best := split{gain: 1e-12}
	found := false
	order := make([]int, n)
	for j := range x[idx[0]] {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return x[order[a]][j] < x[order[b]][j] })

		leftSum := 0.0
		for k := 0; k < n-1; k++ {
			leftSum += y[order[k]]
			nl, nr := k+1, n-k-1
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			lo, hi := x[order[k]][j], x[order[k+1]][j]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			// SSE reduction relative to the parent
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - total*total/float64(n)
			if gain > best.gain {
				best = split{feature: j, threshold: (lo + hi) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
