package training

import (
	"encoding/json"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/dataset"
	"github.com/stylemetric/sizefit/pkg/log"
	"github.com/stylemetric/sizefit/preprocessing"
)

// testConfig shrinks the heavier hyperparameters so the suite stays fast.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Forest.NumTrees = 20
	cfg.Forest.MaxDepth = 5
	cfg.Network.HiddenSizes = []int{8}
	cfg.Network.Epochs = 100
	cfg.SVM.Epochs = 100
	cfg.Training.Workers = 2
	return cfg
}

// classificationData builds two linearly separable clusters.
func classificationData() (*mat.Dense, *mat.VecDense) {
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		jitter := 0.1 * float64(i%5)
		if i < n/2 {
			X.Set(i, 0, 0.0+jitter)
			X.Set(i, 1, 0.5+jitter)
			y.SetVec(i, 0)
		} else {
			X.Set(i, 0, 5.0+jitter)
			X.Set(i, 1, 5.5+jitter)
			y.SetVec(i, 1)
		}
	}
	return X, y
}

// regressionData builds a noiseless linear trend y = 2x + 1.
func regressionData() (*mat.Dense, *mat.VecDense) {
	n := 30
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := 0.1 * float64(i)
		X.Set(i, 0, x)
		y.SetVec(i, 2*x+1)
	}
	return X, y
}

func TestTrainRegistersClassifier(t *testing.T) {
	X, y := classificationData()
	trainer := NewTrainer(testConfig())

	result, err := trainer.Train(X, y, TrainOptions{
		Algorithm:    EnsembleTrees,
		TaskType:     Classification,
		FeatureNames: []string{"chest_cm", "waist_cm"},
		Classes:      []string{"M", "S"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ensemble_trees_classification", result.Name)
	assert.GreaterOrEqual(t, result.Metrics.Scores["accuracy"], 0.8)
	assert.Contains(t, result.Metrics.Scores, "precision")
	assert.Contains(t, result.Metrics.Scores, "recall")
	assert.Contains(t, result.Metrics.Scores, "f1")
	assert.NotEmpty(t, result.Metrics.ConfusionMatrix)

	best, ok := trainer.Best()
	require.True(t, ok)
	assert.Equal(t, result.Name, best.Name)

	registered, ok := trainer.Model("ensemble_trees_classification")
	require.True(t, ok)
	assert.Same(t, result, registered)
}

func TestTrainLinearRegressionScoresPerfectly(t *testing.T) {
	X, y := regressionData()
	trainer := NewTrainer(testConfig())

	result, err := trainer.Train(X, y, TrainOptions{
		Algorithm: LinearModel,
		TaskType:  Regression,
	})
	require.NoError(t, err)
	assert.Equal(t, "linear_model_regression", result.Name)
	assert.Greater(t, result.Metrics.Scores["r2"], 0.99)
	assert.Contains(t, result.Metrics.Scores, "mse")
	assert.Contains(t, result.Metrics.Scores, "rmse")
	assert.Contains(t, result.Metrics.Scores, "mae")
	assert.Empty(t, result.Metrics.ConfusionMatrix)
}

func TestTrainFailureLeavesSessionUntouched(t *testing.T) {
	X, y := classificationData()
	trainer := NewTrainer(testConfig())

	_, err := trainer.Train(X, y, TrainOptions{
		Algorithm: EnsembleTrees,
		TaskType:  Classification,
	})
	require.NoError(t, err)
	best, ok := trainer.Best()
	require.True(t, ok)

	_, err = trainer.Train(X, y, TrainOptions{
		Algorithm: LinearRegression,
		TaskType:  Classification,
	})
	require.Error(t, err)

	assert.Len(t, trainer.Models(), 1)
	after, ok := trainer.Best()
	require.True(t, ok)
	assert.Same(t, best, after)
}

func TestCrossValidateDoesNotRegisterModels(t *testing.T) {
	X, y := classificationData()
	trainer := NewTrainer(testConfig())

	result, err := trainer.CrossValidate(X, y, EnsembleTrees, Classification, 3)
	require.NoError(t, err)
	assert.Len(t, result.Scores, 3)
	assert.GreaterOrEqual(t, result.Mean(), 0.0)
	assert.LessOrEqual(t, result.Mean(), 1.0)
	assert.Empty(t, trainer.Models())
}

func TestCrossValidateRejectsTinyData(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{0, 1, 0})

	trainer := NewTrainer(testConfig())
	_, err := trainer.CrossValidate(X, y, LinearModel, Regression, 5)
	assert.Error(t, err)
}

func TestTrainWithTuningIsDeterministic(t *testing.T) {
	X, y := classificationData()
	cfg := testConfig()

	var params [2]map[string]interface{}
	var preds [2]mat.Matrix
	for run := 0; run < 2; run++ {
		trainer := NewTrainer(cfg)
		result, err := trainer.Train(X, y, TrainOptions{
			Algorithm: SupportVector,
			TaskType:  Classification,
			Tune:      true,
		})
		require.NoError(t, err)
		assert.Contains(t, result.Params, "c")
		assert.Contains(t, result.Params, "epsilon")
		params[run] = result.Params

		pred, err := result.Estimator.Predict(X)
		require.NoError(t, err)
		preds[run] = pred
	}

	assert.Equal(t, params[0], params[1])
	assert.True(t, mat.Equal(preds[0], preds[1]))
}

func TestTrainWithoutGridWarnsAndProceeds(t *testing.T) {
	X, y := regressionData()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	trainer := NewTrainer(testConfig(), WithLogger(logger))

	result, err := trainer.Train(X, y, TrainOptions{
		Algorithm: LinearModel,
		TaskType:  Regression,
		Tune:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "linear_model_regression", result.Name)
	assert.True(t, logger.ContainsMessage("no tuning grid"))
}

func TestSummaryCoversEveryModel(t *testing.T) {
	clsX, clsY := classificationData()
	regX, regY := regressionData()
	trainer := NewTrainer(testConfig())

	_, err := trainer.Train(clsX, clsY, TrainOptions{Algorithm: EnsembleTrees, TaskType: Classification})
	require.NoError(t, err)
	_, err = trainer.Train(regX, regY, TrainOptions{Algorithm: LinearModel, TaskType: Regression})
	require.NoError(t, err)

	summary := trainer.Summary()
	assert.Equal(t, trainer.SessionID(), summary.SessionID)
	assert.Equal(t, 2, summary.TotalModels)
	assert.Contains(t, summary.Models, "ensemble_trees_classification")
	assert.Contains(t, summary.Models, "linear_model_regression")
	assert.NotEmpty(t, summary.BestModel)

	dir := t.TempDir()
	path, err := trainer.SaveSummary(dir)
	require.NoError(t, err)
	assert.Contains(t, path, trainer.SessionID())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.TotalModels, decoded.TotalModels)
	assert.Len(t, decoded.Models, 2)
}

func TestFeatureImportanceSortedForForest(t *testing.T) {
	// Only the first feature carries signal.
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, 0.5)
		if i >= n/2 {
			y.SetVec(i, 1)
		}
	}

	trainer := NewTrainer(testConfig())
	_, err := trainer.Train(X, y, TrainOptions{
		Algorithm:    EnsembleTrees,
		TaskType:     Classification,
		FeatureNames: []string{"signal", "noise"},
	})
	require.NoError(t, err)

	weights, err := trainer.FeatureImportance("ensemble_trees_classification")
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.Equal(t, "signal", weights[0].Name)
	assert.GreaterOrEqual(t, weights[0].Importance, weights[1].Importance)
}

func TestFeatureImportanceWithoutSupportIsEmpty(t *testing.T) {
	X, y := regressionData()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	trainer := NewTrainer(testConfig(), WithLogger(logger))

	_, err := trainer.Train(X, y, TrainOptions{Algorithm: LinearModel, TaskType: Regression})
	require.NoError(t, err)

	weights, err := trainer.FeatureImportance("linear_model_regression")
	require.NoError(t, err)
	assert.Empty(t, weights)
	assert.True(t, logger.ContainsMessage("does not expose feature importances"))

	_, err = trainer.FeatureImportance("no_such_model")
	assert.Error(t, err)
}

func TestArtifactsRoundTrip(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style", "size"})
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		chest := 88.0 + float64(i)
		waist := 72.0 + float64(i)
		style := "casual"
		size := "M"
		if i >= 8 {
			style = "formal"
			size = "L"
		}
		require.NoError(t, f.AppendRow([]string{
			strconv.FormatFloat(chest, 'f', 1, 64),
			strconv.FormatFloat(waist, 'f', 1, 64),
			style, size,
		}))
	}

	p := preprocessing.New()
	X, y, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	cfg := testConfig()
	trainer := NewTrainer(cfg)
	result, err := trainer.Train(X, y, TrainOptions{
		Algorithm:    EnsembleTrees,
		TaskType:     Classification,
		FeatureNames: p.FeatureNames(),
		Classes:      p.TargetClasses(),
	})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, SaveArtifacts(dir, result, p.State()))
	for _, name := range []string{
		result.Name + ".gob",
		result.Name + "_preprocessor.gob",
		result.Name + "_metrics.json",
	} {
		_, err := os.Stat(dir + "/" + name)
		assert.NoError(t, err, name)
	}

	bundle, err := LoadArtifacts(dir, result.Name, cfg)
	require.NoError(t, err)
	assert.Equal(t, EnsembleTrees, bundle.Algorithm)
	assert.Equal(t, Classification, bundle.TaskType)

	want, err := result.Estimator.Predict(X)
	require.NoError(t, err)
	got, err := bundle.Estimator.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	// The restored preprocessor handles fresh rows and decodes predictions
	// back to labels.
	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"90.0", "74.0", "casual"}))

	Xinf, err := bundle.Preprocessor.Transform(inference)
	require.NoError(t, err)
	pred, err := bundle.Estimator.Predict(Xinf)
	require.NoError(t, err)
	labels, err := bundle.Preprocessor.DecodeTarget([]float64{pred.At(0, 0)})
	require.NoError(t, err)
	assert.Contains(t, []string{"M", "L"}, labels[0])
}
