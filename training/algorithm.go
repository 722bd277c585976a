// Package training orchestrates model training: it resolves learners from
// configuration, splits data, tunes hyperparameters by grid search, runs
// k-fold cross-validation and persists trained artifacts.
package training

import (
	"github.com/stylemetric/sizefit/pkg/errors"
)

// Algorithm identifies a learning algorithm family.
type Algorithm string

const (
	// EnsembleTrees is the random forest of decision trees.
	EnsembleTrees Algorithm = "ensemble_trees"

	// SupportVector is the linear support-vector machine.
	SupportVector Algorithm = "support_vector"

	// LinearModel resolves to ordinary linear regression for regression
	// tasks and logistic regression for classification tasks.
	LinearModel Algorithm = "linear_model"

	// FeedForwardNetwork is the multilayer perceptron.
	FeedForwardNetwork Algorithm = "feed_forward_network"

	// LinearRegression requests ordinary least squares explicitly. It only
	// supports regression tasks.
	LinearRegression Algorithm = "linear_regression"

	// LogisticRegression requests logistic regression explicitly. It only
	// supports classification tasks.
	LogisticRegression Algorithm = "logistic_regression"
)

// ParseAlgorithm maps an identifier to its Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case EnsembleTrees, SupportVector, LinearModel, FeedForwardNetwork,
		LinearRegression, LogisticRegression:
		return Algorithm(s), nil
	}
	return "", errors.NewConfigurationError("algorithm", s,
		`must be one of "ensemble_trees", "support_vector", "linear_model", `+
			`"feed_forward_network", "linear_regression", "logistic_regression"`)
}

// TaskType distinguishes classification from regression.
type TaskType string

const (
	Classification TaskType = "classification"
	Regression     TaskType = "regression"
)

// ParseTaskType maps an identifier to its TaskType.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case Classification, Regression:
		return TaskType(s), nil
	}
	return "", errors.NewConfigurationError("task_type", s,
		`must be "classification" or "regression"`)
}

// ModelName is the registry key for a trained (algorithm, task) pair.
func ModelName(alg Algorithm, task TaskType) string {
	return string(alg) + "_" + string(task)
}
