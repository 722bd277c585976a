package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestClassifierBinarySeparable(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{-4, -3, -2, -1.5, 1.5, 2, 3, 4})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	clf := NewClassifier(WithEpochs(500))
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, []float64{0, 1}, clf.Classes())

	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestClassifierMulticlass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		-5, -5, -5.5, -5.2, -4.8, -5.1,
		0, 5, 0.2, 5.1, -0.2, 4.9,
		5, -5, 5.5, -5.2, 4.8, -4.9,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	clf := NewClassifier(WithEpochs(800), WithLearningRate(0.2))
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, []float64{0, 1, 2}, clf.Classes())

	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
}

func TestClassifierPredictProbaBinary(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{-4, -3, -2, -1.5, 1.5, 2, 3, 4})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	clf := NewClassifier(WithEpochs(500))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	pred, err := clf.Predict(X)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12, "row %d", i)

		// The probable class agrees with Predict.
		argmax := 0.0
		if proba.At(i, 1) >= proba.At(i, 0) {
			argmax = 1.0
		}
		assert.Equal(t, pred.At(i, 0), argmax, "row %d", i)
	}
	assert.Greater(t, proba.At(7, 1), 0.5, "a deep positive margin favors class 1")
	assert.Greater(t, proba.At(0, 0), 0.5, "a deep negative margin favors class 0")
}

func TestClassifierPredictProbaMulticlass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		-5, -5, -5.5, -5.2, -4.8, -5.1,
		0, 5, 0.2, 5.1, -0.2, 4.9,
		5, -5, 5.5, -5.2, 4.8, -4.9,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	clf := NewClassifier(WithEpochs(800), WithLearningRate(0.2))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	require.Equal(t, 3, c)
	for i := 0; i < 9; i++ {
		total := proba.At(i, 0) + proba.At(i, 1) + proba.At(i, 2)
		assert.InDelta(t, 1.0, total, 1e-12, "row %d", i)
	}
}

func TestClassifierPredictProbaNotFitted(t *testing.T) {
	_, err := NewClassifier().PredictProba(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}

func TestClassifierDeterministic(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{-3, -2, -1, 1, 2, 3})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	a := NewClassifier()
	require.NoError(t, a.Fit(X, y))
	b := NewClassifier()
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.Intercepts, b.Intercepts)
}

func TestClassifierSingleClassRejected(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewDense(2, 1, []float64{1, 1})
	assert.Error(t, NewClassifier().Fit(X, y))
}

func TestRegressorFitsLinearTrend(t *testing.T) {
	// Standardized-looking inputs: x in [-1, 1], small slope. Heavy
	// regularization would otherwise dominate the fit.
	n := 21
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := float64(i-10) / 10
		X.Set(i, 0, v)
		y.Set(i, 0, 0.5*v)
	}

	reg := NewRegressor(WithEpochs(2000), WithLearningRate(0.1),
		WithEpsilon(0.05), WithC(10))
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
}

func TestRegressorNotFitted(t *testing.T) {
	_, err := NewRegressor().Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}

func TestDimensionMismatch(t *testing.T) {
	clf := NewClassifier()
	require.NoError(t, clf.Fit(mat.NewDense(4, 2, []float64{
		-1, -1, -2, -2, 1, 1, 2, 2,
	}), mat.NewDense(4, 1, []float64{0, 0, 1, 1})))

	_, err := clf.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}
