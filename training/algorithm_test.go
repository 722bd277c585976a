package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/ensemble"
	"github.com/stylemetric/sizefit/linear"
	"github.com/stylemetric/sizefit/neural"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/svm"
)

func TestParseAlgorithm(t *testing.T) {
	for _, id := range []string{
		"ensemble_trees", "support_vector", "linear_model",
		"feed_forward_network", "linear_regression", "logistic_regression",
	} {
		alg, err := ParseAlgorithm(id)
		require.NoError(t, err)
		assert.Equal(t, Algorithm(id), alg)
	}

	_, err := ParseAlgorithm("gradient_boosting")
	require.Error(t, err)
	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "algorithm", cfgErr.Option)
}

func TestParseTaskType(t *testing.T) {
	task, err := ParseTaskType("regression")
	require.NoError(t, err)
	assert.Equal(t, Regression, task)

	_, err = ParseTaskType("clustering")
	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "ensemble_trees_classification", ModelName(EnsembleTrees, Classification))
	assert.Equal(t, "support_vector_regression", ModelName(SupportVector, Regression))
}

func TestParseModelName(t *testing.T) {
	alg, task, err := parseModelName("feed_forward_network_regression")
	require.NoError(t, err)
	assert.Equal(t, FeedForwardNetwork, alg)
	assert.Equal(t, Regression, task)

	_, _, err = parseModelName("ensemble_trees")
	assert.Error(t, err)

	_, _, err = parseModelName("boosted_stumps_classification")
	assert.Error(t, err)
}

func TestNewEstimatorResolvesTypes(t *testing.T) {
	cfg := config.Default()

	est, err := NewEstimator(EnsembleTrees, Classification, cfg)
	require.NoError(t, err)
	assert.IsType(t, &ensemble.ForestClassifier{}, est)

	est, err = NewEstimator(EnsembleTrees, Regression, cfg)
	require.NoError(t, err)
	assert.IsType(t, &ensemble.ForestRegressor{}, est)

	est, err = NewEstimator(SupportVector, Classification, cfg)
	require.NoError(t, err)
	assert.IsType(t, &svm.Classifier{}, est)

	est, err = NewEstimator(FeedForwardNetwork, Regression, cfg)
	require.NoError(t, err)
	assert.IsType(t, &neural.Regressor{}, est)

	est, err = NewEstimator(LinearModel, Regression, cfg)
	require.NoError(t, err)
	assert.IsType(t, &linear.Regression{}, est)

	est, err = NewEstimator(LinearModel, Classification, cfg)
	require.NoError(t, err)
	assert.IsType(t, &linear.LogisticRegression{}, est)
}

func TestNewEstimatorRejectsTaskMismatch(t *testing.T) {
	cfg := config.Default()

	_, err := NewEstimator(LinearRegression, Classification, cfg)
	require.Error(t, err)
	var algErr *errors.UnsupportedAlgorithmError
	assert.ErrorAs(t, err, &algErr)

	_, err = NewEstimator(LogisticRegression, Regression, cfg)
	require.Error(t, err)
	assert.ErrorAs(t, err, &algErr)
}
