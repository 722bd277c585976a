package ensemble

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
)

// twoClusterData builds a cleanly separable two-class dataset.
func twoClusterData() (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(7, 7))
	n := 60
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		offset := 0.0
		label := 0.0
		if i >= n/2 {
			offset = 5.0
			label = 1.0
		}
		X.Set(i, 0, offset+rng.Float64())
		X.Set(i, 1, offset+rng.Float64())
		y.Set(i, 0, label)
	}
	return X, y
}

func TestTreeClassifierSeparatesClusters(t *testing.T) {
	X, y := twoClusterData()
	rows, _ := X.Dims()
	samples := make([][]float64, rows)
	labels := make([]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = []float64{X.At(i, 0), X.At(i, 1)}
		labels[i] = y.At(i, 0)
	}

	tree := &Tree{MaxDepth: 5, MinLeafSize: 1, Classification: true}
	tree.Fit(samples, labels, nil)

	for i := 0; i < rows; i++ {
		assert.Equal(t, labels[i], tree.PredictRow(samples[i]), "row %d", i)
	}
}

func TestTreeRegressorFitsStepFunction(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	targets := []float64{5, 5, 5, 20, 20, 20}

	tree := &Tree{MaxDepth: 3, MinLeafSize: 1}
	tree.Fit(samples, targets, nil)

	assert.InDelta(t, 5.0, tree.PredictRow([]float64{2}), 1e-12)
	assert.InDelta(t, 20.0, tree.PredictRow([]float64{11}), 1e-12)
}

func TestForestClassifier(t *testing.T) {
	X, y := twoClusterData()

	forest := NewForestClassifier(WithNumTrees(25), WithMaxDepth(6), WithSeed(1))
	require.NoError(t, forest.Fit(X, y))

	assert.Equal(t, []float64{0, 1}, forest.Classes())

	score, err := forest.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)

	proba, err := forest.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	assert.Equal(t, 60, rows)
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
	}
}

func TestForestDeterministicAcrossWorkerCounts(t *testing.T) {
	X, y := twoClusterData()

	sequential := NewForestClassifier(WithNumTrees(10), WithSeed(3), WithWorkers(1))
	require.NoError(t, sequential.Fit(X, y))

	concurrent := NewForestClassifier(WithNumTrees(10), WithSeed(3), WithWorkers(4))
	require.NoError(t, concurrent.Fit(X, y))

	p1, err := sequential.PredictProba(X)
	require.NoError(t, err)
	p2, err := concurrent.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(p1, p2, 1e-15),
		"per-tree seeding must make results independent of the worker count")
}

func TestForestRegressor(t *testing.T) {
	n := 80
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := float64(i) / 10
		X.Set(i, 0, v)
		y.Set(i, 0, 3*v+1)
	}

	forest := NewForestRegressor(WithNumTrees(30), WithMaxDepth(8), WithSeed(5))
	require.NoError(t, forest.Fit(X, y))

	score, err := forest.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
}

func TestForestFeatureImportances(t *testing.T) {
	// Feature 0 carries the signal, feature 1 is constant noise.
	n := 60
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, 1.0)
		if i >= n/2 {
			y.Set(i, 0, 1)
		}
	}

	forest := NewForestClassifier(WithNumTrees(15), WithSeed(9))
	require.NoError(t, forest.Fit(X, y))

	imp := forest.FeatureImportances()
	require.Len(t, imp, 2)
	assert.Greater(t, imp[0], 0.9)
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)
}

func TestForestNotFitted(t *testing.T) {
	_, err := NewForestClassifier().Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
	_, err = NewForestRegressor().Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestForestGobRoundTrip(t *testing.T) {
	X, y := twoClusterData()
	forest := NewForestClassifier(WithNumTrees(5), WithSeed(2))
	require.NoError(t, forest.Fit(X, y))

	path := t.TempDir() + "/forest.gob"
	require.NoError(t, model.SaveModel(forest, path))

	loaded := &ForestClassifier{}
	require.NoError(t, model.LoadModel(loaded, path))
	assert.True(t, loaded.IsFitted(), "the fitted flag must survive persistence")

	p1, err := forest.PredictProba(X)
	require.NoError(t, err)
	p2, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(p1, p2, 1e-15))
}
