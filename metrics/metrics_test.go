package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

func TestMSEAndRMSE(t *testing.T) {
	yTrue := vec(3, -0.5, 2, 7)
	yPred := vec(2.5, 0.0, 2, 8)

	mse, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.375, mse, 1e-12)

	rmse, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.6123724356957945, rmse, 1e-12)
}

func TestMAE(t *testing.T) {
	mae, err := MAE(vec(3, -0.5, 2, 7), vec(2.5, 0.0, 2, 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mae, 1e-12)
}

func TestR2Score(t *testing.T) {
	r2, err := R2Score(vec(3, -0.5, 2, 7), vec(2.5, 0.0, 2, 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.9486081370449679, r2, 1e-12)

	perfect, err := R2Score(vec(1, 2, 3), vec(1, 2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, perfect, 1e-12)
}

func TestR2ScoreConstantTarget(t *testing.T) {
	r2, err := R2Score(vec(2, 2, 2), vec(2, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)

	r2, err = R2Score(vec(2, 2, 2), vec(1, 2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r2, 1e-12)
}

func TestMetricsDimensionMismatch(t *testing.T) {
	_, err := MSE(vec(1, 2), vec(1, 2, 3))
	assert.Error(t, err)

	_, err = Accuracy(vec(1, 2), vec(1))
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy(vec(0, 1, 2, 2), vec(0, 2, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 2)
	yPred := vec(0, 1, 1, 1, 0)

	labels, counts, err := ConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, labels)
	assert.Equal(t, [][]int{
		{1, 1, 0},
		{0, 2, 0},
		{1, 0, 0},
	}, counts)
}

func TestWeightedScores(t *testing.T) {
	// 2 classes, support 3 and 1.
	yTrue := vec(0, 0, 0, 1)
	yPred := vec(0, 0, 1, 1)

	precision, err := PrecisionWeighted(yTrue, yPred)
	require.NoError(t, err)
	// class 0: 2/2=1.0 weight 3, class 1: 1/2=0.5 weight 1
	assert.InDelta(t, (3*1.0+1*0.5)/4, precision, 1e-12)

	recall, err := RecallWeighted(yTrue, yPred)
	require.NoError(t, err)
	// class 0: 2/3 weight 3, class 1: 1/1 weight 1
	assert.InDelta(t, (3*(2.0/3.0)+1*1.0)/4, recall, 1e-12)

	f1, err := F1Weighted(yTrue, yPred)
	require.NoError(t, err)
	f0 := 2 * 1.0 * (2.0 / 3.0) / (1.0 + 2.0/3.0)
	f1class := 2 * 0.5 * 1.0 / (0.5 + 1.0)
	assert.InDelta(t, (3*f0+1*f1class)/4, f1, 1e-12)
}

func TestPerfectClassification(t *testing.T) {
	yTrue := vec(0, 1, 2, 1, 0)
	for _, fn := range []func(a, b *mat.VecDense) (float64, error){
		Accuracy, PrecisionWeighted, RecallWeighted, F1Weighted,
	} {
		score, err := fn(yTrue, yTrue)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-12)
	}
}
