// Package ensemble implements CART decision trees and bootstrap-aggregated
// random forests for classification and regression.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Node is one node of a fitted decision tree. Exported fields keep the tree
// gob-encodable.
type Node struct {
	// Leaf marks terminal nodes.
	Leaf bool

	// Feature and Threshold define the split of internal nodes: rows with
	// X[Feature] <= Threshold go left.
	Feature   int
	Threshold float64

	Left  *Node
	Right *Node

	// Value is the leaf prediction: the majority class for classification,
	// the mean target for regression.
	Value float64

	// Counts is the class distribution at a classification leaf.
	Counts map[float64]float64
}

// Tree is a CART decision tree. Classification trees split on Gini impurity,
// regression trees on variance reduction.
type Tree struct {
	// MaxDepth bounds the tree height. Zero means unbounded.
	MaxDepth int

	// MinLeafSize is the minimum number of samples in a leaf.
	MinLeafSize int

	// MaxFeatures is the number of candidate features sampled per split.
	// Zero means all features, which makes the tree deterministic.
	MaxFeatures int

	// Classification selects the split criterion and leaf semantics.
	Classification bool

	// Root is the fitted tree, nil before fitting.
	Root *Node

	// NFeatures is the feature count seen during fitting.
	NFeatures int

	// Importances accumulates the impurity decrease per feature during
	// fitting, unnormalized.
	Importances []float64
}

// Fit grows the tree on row-major samples. rng supplies the per-split feature
// sampling; it may be nil when MaxFeatures is zero.
func (t *Tree) Fit(X [][]float64, y []float64, rng *rand.Rand) {
	t.NFeatures = len(X[0])
	t.Importances = make([]float64, t.NFeatures)

	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}
	t.Root = t.grow(X, y, indices, 1, rng)
}

// PredictRow returns the leaf value for one sample.
func (t *Tree) PredictRow(row []float64) float64 {
	return t.leafFor(row).Value
}

// LeafCounts returns the class distribution of the leaf a sample lands in.
// Only meaningful for classification trees.
func (t *Tree) LeafCounts(row []float64) map[float64]float64 {
	return t.leafFor(row).Counts
}

func (t *Tree) leafFor(row []float64) *Node {
	node := t.Root
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (t *Tree) grow(X [][]float64, y []float64, indices []int, depth int, rng *rand.Rand) *Node {
	if t.shouldStop(y, indices, depth) {
		return t.makeLeaf(y, indices)
	}

	feature, threshold, decrease, ok := t.bestSplit(X, y, indices, rng)
	if !ok {
		return t.makeLeaf(y, indices)
	}
	// Weight the impurity decrease by the node's sample count, so splits
	// near the root count more than deep splits.
	t.Importances[feature] += decrease * float64(len(indices))

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return t.makeLeaf(y, indices)
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, y, left, depth+1, rng),
		Right:     t.grow(X, y, right, depth+1, rng),
	}
}

func (t *Tree) shouldStop(y []float64, indices []int, depth int) bool {
	if t.MaxDepth > 0 && depth > t.MaxDepth {
		return true
	}
	if len(indices) < 2*t.MinLeafSize || len(indices) < 2 {
		return true
	}
	first := y[indices[0]]
	for _, i := range indices[1:] {
		if y[i] != first {
			return false
		}
	}
	return true // pure node
}

func (t *Tree) makeLeaf(y []float64, indices []int) *Node {
	node := &Node{Leaf: true}
	if t.Classification {
		counts := make(map[float64]float64, 4)
		for _, i := range indices {
			counts[y[i]]++
		}
		total := float64(len(indices))
		best, bestCount := 0.0, -1.0
		for class, count := range counts {
			counts[class] = count / total
			if count > bestCount || (count == bestCount && class < best) {
				best, bestCount = class, count
			}
		}
		node.Value = best
		node.Counts = counts
		return node
	}

	var sum float64
	for _, i := range indices {
		sum += y[i]
	}
	node.Value = sum / float64(len(indices))
	return node
}

// bestSplit scans the candidate features for the split with the largest
// impurity decrease. Candidates are sampled without replacement when
// MaxFeatures is set.
func (t *Tree) bestSplit(X [][]float64, y []float64, indices []int, rng *rand.Rand) (feature int, threshold, decrease float64, ok bool) {
	features := t.candidateFeatures(rng)

	parent := t.impurity(y, indices)
	n := float64(len(indices))

	bestDecrease := 0.0
	for _, f := range features {
		thr, leftImp, rightImp, leftN, found := t.scanFeature(X, y, indices, f)
		if !found {
			continue
		}
		rightN := n - leftN
		children := (leftN*leftImp + rightN*rightImp) / n
		if d := parent - children; d > bestDecrease+1e-12 {
			bestDecrease = d
			feature = f
			threshold = thr
			ok = true
		}
	}
	return feature, threshold, bestDecrease, ok
}

func (t *Tree) candidateFeatures(rng *rand.Rand) []int {
	if t.MaxFeatures <= 0 || t.MaxFeatures >= t.NFeatures || rng == nil {
		features := make([]int, t.NFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}

	perm := rng.Perm(t.NFeatures)
	features := perm[:t.MaxFeatures]
	sort.Ints(features)
	return features
}

// scanFeature finds the best threshold for one feature by sweeping the sorted
// sample values. It returns the split with the lowest weighted child
// impurity, honoring MinLeafSize on both sides.
func (t *Tree) scanFeature(X [][]float64, y []float64, indices []int, f int) (threshold, leftImp, rightImp, leftN float64, ok bool) {
	order := append([]int(nil), indices...)
	sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

	n := len(order)
	minLeaf := t.MinLeafSize
	if minLeaf < 1 {
		minLeaf = 1
	}

	bestScore := math.Inf(1)
	if t.Classification {
		leftCounts := make(map[float64]float64)
		rightCounts := make(map[float64]float64)
		for _, i := range order {
			rightCounts[y[i]]++
		}
		for k := 0; k < n-1; k++ {
			label := y[order[k]]
			leftCounts[label]++
			rightCounts[label]--

			if X[order[k]][f] == X[order[k+1]][f] {
				continue
			}
			left, right := k+1, n-k-1
			if left < minLeaf || right < minLeaf {
				continue
			}
			li := gini(leftCounts, float64(left))
			ri := gini(rightCounts, float64(right))
			score := (float64(left)*li + float64(right)*ri) / float64(n)
			if score < bestScore {
				bestScore = score
				threshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
				leftImp, rightImp, leftN = li, ri, float64(left)
				ok = true
			}
		}
		return threshold, leftImp, rightImp, leftN, ok
	}

	var leftSum, leftSq float64
	var rightSum, rightSq float64
	for _, i := range order {
		rightSum += y[i]
		rightSq += y[i] * y[i]
	}
	for k := 0; k < n-1; k++ {
		v := y[order[k]]
		leftSum += v
		leftSq += v * v
		rightSum -= v
		rightSq -= v * v

		if X[order[k]][f] == X[order[k+1]][f] {
			continue
		}
		left, right := k+1, n-k-1
		if left < minLeaf || right < minLeaf {
			continue
		}
		li := variance(leftSum, leftSq, float64(left))
		ri := variance(rightSum, rightSq, float64(right))
		score := (float64(left)*li + float64(right)*ri) / float64(n)
		if score < bestScore {
			bestScore = score
			threshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
			leftImp, rightImp, leftN = li, ri, float64(left)
			ok = true
		}
	}
	return threshold, leftImp, rightImp, leftN, ok
}

func (t *Tree) impurity(y []float64, indices []int) float64 {
	if t.Classification {
		counts := make(map[float64]float64)
		for _, i := range indices {
			counts[y[i]]++
		}
		return gini(counts, float64(len(indices)))
	}
	var sum, sq float64
	for _, i := range indices {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return variance(sum, sq, float64(len(indices)))
}

func gini(counts map[float64]float64, total float64) float64 {
	impurity := 1.0
	for _, c := range counts {
		p := c / total
		impurity -= p * p
	}
	return impurity
}

func variance(sum, sumSquares, n float64) float64 {
	mean := sum / n
	v := sumSquares/n - mean*mean
	if v < 0 {
		return 0 // numerical noise
	}
	return v
}
