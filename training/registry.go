package training

import (
	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/ensemble"
	"github.com/stylemetric/sizefit/linear"
	"github.com/stylemetric/sizefit/neural"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/svm"
)

// NewEstimator resolves an (algorithm, task) pair to a fresh estimator with
// hyperparameters taken from cfg. LinearModel picks the linear learner that
// matches the task; the explicit linear identifiers reject the wrong task
// with an UnsupportedAlgorithmError.
func NewEstimator(alg Algorithm, task TaskType, cfg config.Config) (model.Estimator, error) {
	switch alg {
	case EnsembleTrees:
		opts := []ensemble.ForestOption{
			ensemble.WithNumTrees(cfg.Forest.NumTrees),
			ensemble.WithMaxDepth(cfg.Forest.MaxDepth),
			ensemble.WithMinLeafSize(cfg.Forest.MinLeafSize),
			ensemble.WithSeed(cfg.Training.RandomState),
			ensemble.WithWorkers(cfg.Training.Workers),
		}
		if task == Classification {
			return ensemble.NewForestClassifier(opts...), nil
		}
		return ensemble.NewForestRegressor(opts...), nil

	case SupportVector:
		opts := []svm.Option{
			svm.WithC(cfg.SVM.C),
			svm.WithEpsilon(cfg.SVM.Epsilon),
			svm.WithEpochs(cfg.SVM.Epochs),
		}
		if task == Classification {
			return svm.NewClassifier(opts...), nil
		}
		return svm.NewRegressor(opts...), nil

	case FeedForwardNetwork:
		opts := []neural.Option{
			neural.WithHiddenSizes(cfg.Network.HiddenSizes...),
			neural.WithLearningRate(cfg.Network.LearningRate),
			neural.WithEpochs(cfg.Network.Epochs),
			neural.WithSeed(cfg.Training.RandomState),
		}
		if task == Classification {
			return neural.NewClassifier(opts...), nil
		}
		return neural.NewRegressor(opts...), nil

	case LinearModel:
		if task == Classification {
			return newLogistic(cfg), nil
		}
		return linear.NewRegression(), nil

	case LinearRegression:
		if task != Regression {
			return nil, errors.NewUnsupportedAlgorithmError(string(alg), string(task))
		}
		return linear.NewRegression(), nil

	case LogisticRegression:
		if task != Classification {
			return nil, errors.NewUnsupportedAlgorithmError(string(alg), string(task))
		}
		return newLogistic(cfg), nil
	}

	return nil, errors.NewUnsupportedAlgorithmError(string(alg), string(task))
}

func newLogistic(cfg config.Config) *linear.LogisticRegression {
	return linear.NewLogisticRegression(
		linear.WithLearningRate(cfg.Linear.LearningRate),
		linear.WithMaxIter(cfg.Linear.MaxIter),
		linear.WithTol(cfg.Linear.Tol),
	)
}
