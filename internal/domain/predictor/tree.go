package predictor

import (
	"slices"
)

// Node is a regression tree node. Leaves have no children.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Value     float64 `json:"value"`
	Samples   int     `json:"samples"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

func (n *Node) leaf() bool {
	return n.Left == nil || n.Right == nil
}

// Tree is a CART regression tree. Splits minimize the summed squared error
// of the children; a sample goes left when its feature value is <= Threshold.
type Tree struct {
	MaxDepth int   `json:"max_depth"`
	MinLeaf  int   `json:"min_leaf"`
	Root     *Node `json:"root"`
}

// FitTree grows a regression tree over x (rows of equal length) and targets y.
func FitTree(x [][]float64, y []float64, maxDepth, minLeaf int) *Tree {
	if minLeaf < 1 {
		minLeaf = 1
	}
	t := &Tree{MaxDepth: maxDepth, MinLeaf: minLeaf}
	if len(x) == 0 || len(x) != len(y) {
		return t
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	b := builder{x: x, y: y, maxDepth: maxDepth, minLeaf: minLeaf}
	t.Root = b.grow(idx, 0)
	return t
}

// Predict walks the tree for one feature vector. An empty tree predicts 0.
func (t *Tree) Predict(features []float64) float64 {
	if t == nil || t.Root == nil {
		return 0
	}
	n := t.Root
	for !n.leaf() {
		if n.Feature < len(features) && features[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Depth returns the number of split levels below the root.
func (t *Tree) Depth() int {
	if t == nil {
		return 0
	}
	return depth(t.Root)
}

func depth(n *Node) int {
	if n == nil || n.leaf() {
		return 0
	}
	return 1 + max(depth(n.Left), depth(n.Right))
}

type builder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
}

type split struct {
	feature   int
	threshold float64
	sse       float64
	ok        bool
}

func (b *builder) grow(idx []int, level int) *Node {
	mean, sse := b.stats(idx)
	n := &Node{Value: mean, Samples: len(idx)}
	if level >= b.maxDepth || len(idx) < 2*b.minLeaf || sse <= 0 {
		return n
	}
	best := b.bestSplit(idx, sse)
	if !best.ok {
		return n
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = b.grow(left, level+1)
	n.Right = b.grow(right, level+1)
	return n
}

func (b *builder) stats(idx []int) (mean, sse float64) {
	for _, i := range idx {
		mean += b.y[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := b.y[i] - mean
		sse += d * d
	}
	return mean, sse
}

// bestSplit scans every feature in sorted order using running sums. The
// first split with the lowest error wins, which keeps training deterministic.
func (b *builder) bestSplit(idx []int, parentSSE float64) split {
	best := split{sse: parentSSE}
	sorted := slices.Clone(idx)
	features := len(b.x[idx[0]])
	total := len(sorted)

	for f := 0; f < features; f++ {
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			default:
				return 0
			}
		})

		var sumAll, sqAll float64
		for _, i := range sorted {
			sumAll += b.y[i]
			sqAll += b.y[i] * b.y[i]
		}

		var sumL, sqL float64
		for k := 0; k < total-1; k++ {
			v := b.y[sorted[k]]
			sumL += v
			sqL += v * v
			nl := k + 1
			nr := total - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			sumR := sumAll - sumL
			sqR := sqAll - sqL
			sse := (sqL - sumL*sumL/float64(nl)) + (sqR - sumR*sumR/float64(nr))
			if sse < best.sse-1e-12 {
				threshold := lo/2 + hi/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, sse: sse, ok: true}
			}
		}
	}
	return best
}
