package neural

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/pkg/errors"
)

// clusterData builds two well-separated 2D clusters labeled 0 and 1.
func clusterData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.1,
		0.1, 0.0,
		0.2, 0.1,
		0.1, 0.2,
		3.0, 3.1,
		3.1, 3.0,
		2.9, 3.0,
		3.0, 2.9,
	})
	y := mat.NewVecDense(8, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestClassifierSeparatesClusters(t *testing.T) {
	X, y := clusterData()

	clf := NewClassifier(WithHiddenSizes(8), WithLearningRate(0.5), WithEpochs(500))
	require.NoError(t, clf.Fit(X, y))
	assert.True(t, clf.IsFitted())
	assert.Equal(t, []float64{0, 1}, clf.Classes())

	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestClassifierProbaSumsToOne(t *testing.T) {
	X, y := clusterData()

	clf := NewClassifier(WithHiddenSizes(8), WithLearningRate(0.5), WithEpochs(200))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < cols; j++ {
			p := proba.At(i, j)
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestClassifierThreeClasses(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0.0, 0.0,
		0.1, 0.1,
		0.0, 0.2,
		3.0, 0.0,
		3.1, 0.1,
		2.9, 0.2,
		0.0, 3.0,
		0.1, 3.1,
		0.2, 2.9,
	})
	y := mat.NewVecDense(9, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	clf := NewClassifier(WithHiddenSizes(16), WithLearningRate(0.5), WithEpochs(1000))
	require.NoError(t, clf.Fit(X, y))
	assert.Equal(t, []float64{0, 1, 2}, clf.Classes())

	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.8)
}

func TestClassifierRejectsSingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{1, 1, 1})

	clf := NewClassifier()
	err := clf.Fit(X, y)
	require.Error(t, err)

	var valErr *errors.ValueError
	assert.ErrorAs(t, err, &valErr)
}

func TestClassifierDeterministic(t *testing.T) {
	X, y := clusterData()

	a := NewClassifier(WithHiddenSizes(8), WithLearningRate(0.5), WithEpochs(100), WithSeed(7))
	b := NewClassifier(WithHiddenSizes(8), WithLearningRate(0.5), WithEpochs(100), WithSeed(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(pa, pb, 1e-15))
}

func TestClassifierNotFitted(t *testing.T) {
	clf := NewClassifier()
	_, err := clf.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	require.Error(t, err)

	var nfErr *errors.NotFittedError
	assert.ErrorAs(t, err, &nfErr)
}

func TestRegressorFitsLinearTrend(t *testing.T) {
	n := 21
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := -1.0 + 0.1*float64(i)
		X.Set(i, 0, x)
		y.SetVec(i, 0.5*x+0.2)
	}

	reg := NewRegressor(WithHiddenSizes(8), WithLearningRate(0.3), WithEpochs(2000))
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9)
}

func TestRegressorDimensionMismatch(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3})
	y := mat.NewVecDense(4, []float64{0, 1, 2, 3})

	reg := NewRegressor(WithHiddenSizes(4), WithEpochs(10))
	require.NoError(t, reg.Fit(X, y))

	_, err := reg.Predict(mat.NewDense(1, 3, []float64{0, 0, 0}))
	require.Error(t, err)

	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestClassifierGobRoundTrip(t *testing.T) {
	X, y := clusterData()

	clf := NewClassifier(WithHiddenSizes(8), WithLearningRate(0.5), WithEpochs(200))
	require.NoError(t, clf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(clf, &buf))

	loaded := &Classifier{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.True(t, loaded.IsFitted(), "the fitted flag must survive persistence")

	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-15))
	assert.Equal(t, clf.Classes(), loaded.Classes())
}
