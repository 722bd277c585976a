package ensemble

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/core/parallel"
	"github.com/stylemetric/sizefit/metrics"
	"github.com/stylemetric/sizefit/pkg/errors"
)

func init() {
	gob.Register(&ForestClassifier{})
	gob.Register(&ForestRegressor{})
}

// forestParams are the hyperparameters shared by both forest flavors.
type forestParams struct {
	NumTrees    int
	MaxDepth    int
	MinLeafSize int
	Seed        int64
	Workers     int
}

// ForestOption configures a forest.
type ForestOption func(*forestParams)

// WithNumTrees sets the ensemble size.
func WithNumTrees(n int) ForestOption {
	return func(p *forestParams) { p.NumTrees = n }
}

// WithMaxDepth bounds the depth of each tree.
func WithMaxDepth(d int) ForestOption {
	return func(p *forestParams) { p.MaxDepth = d }
}

// WithMinLeafSize sets the minimum samples per leaf.
func WithMinLeafSize(n int) ForestOption {
	return func(p *forestParams) { p.MinLeafSize = n }
}

// WithSeed sets the base random seed. Every tree derives its own stream from
// the base seed and its index, so predictions do not depend on the worker
// count.
func WithSeed(seed int64) ForestOption {
	return func(p *forestParams) { p.Seed = seed }
}

// WithWorkers bounds the goroutines used for tree fitting. Zero means one
// per CPU.
func WithWorkers(n int) ForestOption {
	return func(p *forestParams) { p.Workers = n }
}

func defaultParams() forestParams {
	return forestParams{
		NumTrees:    100,
		MaxDepth:    10,
		MinLeafSize: 2,
		Seed:        42,
	}
}

// ForestClassifier is a random forest of Gini-split CART trees. Each tree is
// fitted on a bootstrap sample with sqrt(p) feature candidates per split.
type ForestClassifier struct {
	model.BaseEstimator

	Params forestParams

	// Trees are the fitted ensemble members.
	Trees []*Tree

	// ClassVals are the sorted class labels seen during fitting.
	ClassVals []float64

	// NFeatures is the feature count seen during fitting.
	NFeatures int

	// Importance is the normalized mean impurity decrease per feature.
	Importance []float64
}

// NewForestClassifier creates a classifier forest with 100 trees, depth 10,
// leaf size 2 and seed 42 unless overridden.
func NewForestClassifier(opts ...ForestOption) *ForestClassifier {
	params := defaultParams()
	for _, opt := range opts {
		opt(&params)
	}
	return &ForestClassifier{Params: params}
}

// Fit grows the ensemble on X and class labels y.
func (f *ForestClassifier) Fit(X, y mat.Matrix) error {
	samples, labels, err := toSlices(X, y)
	if err != nil {
		return errors.Wrap(err, "sizefit: ForestClassifier.Fit")
	}

	classSet := make(map[float64]struct{})
	for _, label := range labels {
		classSet[label] = struct{}{}
	}
	f.ClassVals = make([]float64, 0, len(classSet))
	for c := range classSet {
		f.ClassVals = append(f.ClassVals, c)
	}
	sort.Float64s(f.ClassVals)

	f.NFeatures = len(samples[0])
	maxFeatures := int(math.Sqrt(float64(f.NFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.Trees, f.Importance = fitForest(samples, labels, f.Params, maxFeatures, true)
	f.SetFitted()
	return nil
}

// Predict returns the majority-vote class per row.
func (f *ForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < len(f.ClassVals); k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		result.Set(i, 0, f.ClassVals[best])
	}
	return result, nil
}

// PredictProba averages the leaf class distributions over all trees, one
// column per class in the order of Classes.
func (f *ForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("ForestClassifier", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != f.NFeatures {
		return nil, errors.NewDimensionError("ForestClassifier.PredictProba", f.NFeatures, cols, 1)
	}

	classIndex := make(map[float64]int, len(f.ClassVals))
	for k, c := range f.ClassVals {
		classIndex[c] = k
	}

	result := mat.NewDense(rows, len(f.ClassVals), nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		for _, tree := range f.Trees {
			for class, p := range tree.LeafCounts(row) {
				k := classIndex[class]
				result.Set(i, k, result.At(i, k)+p)
			}
		}
		for k := range f.ClassVals {
			result.Set(i, k, result.At(i, k)/float64(len(f.Trees)))
		}
	}
	return result, nil
}

// Score returns the accuracy on the given data.
func (f *ForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracyOf(y, pred)
}

// Classes returns the sorted class labels seen during fitting.
func (f *ForestClassifier) Classes() []float64 {
	return append([]float64(nil), f.ClassVals...)
}

// FeatureImportances returns the normalized mean impurity decrease per
// feature.
func (f *ForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importance...)
}

// GetParams returns the model's hyperparameters.
func (f *ForestClassifier) GetParams() map[string]interface{} {
	return forestParamsMap(f.Params)
}

// ForestRegressor is a random forest of variance-split CART trees. Each tree
// is fitted on a bootstrap sample with p/3 feature candidates per split.
type ForestRegressor struct {
	model.BaseEstimator

	Params forestParams

	Trees []*Tree

	NFeatures int

	Importance []float64
}

// NewForestRegressor creates a regressor forest with the same defaults as
// NewForestClassifier.
func NewForestRegressor(opts ...ForestOption) *ForestRegressor {
	params := defaultParams()
	for _, opt := range opts {
		opt(&params)
	}
	return &ForestRegressor{Params: params}
}

// Fit grows the ensemble on X and numeric targets y.
func (f *ForestRegressor) Fit(X, y mat.Matrix) error {
	samples, targets, err := toSlices(X, y)
	if err != nil {
		return errors.Wrap(err, "sizefit: ForestRegressor.Fit")
	}

	f.NFeatures = len(samples[0])
	maxFeatures := f.NFeatures / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.Trees, f.Importance = fitForest(samples, targets, f.Params, maxFeatures, false)
	f.SetFitted()
	return nil
}

// Predict returns the mean tree prediction per row.
func (f *ForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("ForestRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != f.NFeatures {
		return nil, errors.NewDimensionError("ForestRegressor.Predict", f.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.PredictRow(row)
		}
		result.Set(i, 0, sum/float64(len(f.Trees)))
	}
	return result, nil
}

// Score returns the coefficient of determination R² on the given data.
func (f *ForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := f.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(yTrue, yPred)
}

// FeatureImportances returns the normalized mean impurity decrease per
// feature.
func (f *ForestRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importance...)
}

// GetParams returns the model's hyperparameters.
func (f *ForestRegressor) GetParams() map[string]interface{} {
	return forestParamsMap(f.Params)
}

// fitForest grows the trees in parallel. Tree i draws its bootstrap sample
// and feature candidates from a stream seeded with (Seed, i), so the result
// is identical for any worker count.
func fitForest(samples [][]float64, targets []float64, params forestParams, maxFeatures int, classification bool) ([]*Tree, []float64) {
	trees := make([]*Tree, params.NumTrees)
	n := len(samples)

	parallel.ParallelizeWithWorkers(params.NumTrees, params.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			rng := rand.New(rand.NewPCG(uint64(params.Seed), uint64(i)))

			bootX := make([][]float64, n)
			bootY := make([]float64, n)
			for k := 0; k < n; k++ {
				idx := rng.IntN(n)
				bootX[k] = samples[idx]
				bootY[k] = targets[idx]
			}

			tree := &Tree{
				MaxDepth:       params.MaxDepth,
				MinLeafSize:    params.MinLeafSize,
				MaxFeatures:    maxFeatures,
				Classification: classification,
			}
			tree.Fit(bootX, bootY, rng)
			trees[i] = tree
		}
	})

	importance := make([]float64, len(samples[0]))
	for _, tree := range trees {
		for j, v := range tree.Importances {
			importance[j] += v
		}
	}
	var total float64
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for j := range importance {
			importance[j] /= total
		}
	}
	return trees, importance
}

// toSlices converts mat inputs to row-major slices, validating shapes.
func toSlices(X, y mat.Matrix) ([][]float64, []float64, error) {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}
	if yRows != rows {
		return nil, nil, errors.NewDimensionError("ensemble", rows, yRows, 0)
	}

	samples := make([][]float64, rows)
	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			samples[i][j] = X.At(i, j)
		}
		targets[i] = y.At(i, 0)
	}
	return samples, targets, nil
}

func accuracyOf(y, pred mat.Matrix) (float64, error) {
	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}
	return metrics.Accuracy(yTrue, yPred)
}

func forestParamsMap(p forestParams) map[string]interface{} {
	return map[string]interface{}{
		"num_trees":     p.NumTrees,
		"max_depth":     p.MaxDepth,
		"min_leaf_size": p.MinLeafSize,
		"seed":          p.Seed,
	}
}
