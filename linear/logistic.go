package linear

import (
	"encoding/gob"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/metrics"
	"github.com/stylemetric/sizefit/pkg/errors"
)

func init() {
	gob.Register(&LogisticRegression{})
}

// LogisticRegression is a classifier trained with full-batch gradient descent.
// Multiclass problems are handled one-vs-rest with the per-class probabilities
// normalized to sum to one.
type LogisticRegression struct {
	model.BaseEstimator

	// LearningRate is the gradient descent step size.
	LearningRate float64

	// MaxIter bounds the number of gradient descent iterations per class.
	MaxIter int

	// Tol is the gradient norm below which training stops early.
	Tol float64

	// Weights holds one weight vector per class. For binary problems a
	// single vector is trained for the positive class.
	Weights [][]float64

	// Intercepts holds one bias per trained weight vector.
	Intercepts []float64

	// ClassVals are the sorted class labels seen during fitting.
	ClassVals []float64

	// NFeatures is the number of features.
	NFeatures int
}

// LogisticOption configures a LogisticRegression.
type LogisticOption func(*LogisticRegression)

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(lr float64) LogisticOption {
	return func(l *LogisticRegression) { l.LearningRate = lr }
}

// WithMaxIter sets the iteration budget per class.
func WithMaxIter(n int) LogisticOption {
	return func(l *LogisticRegression) { l.MaxIter = n }
}

// WithTol sets the early-stopping gradient norm.
func WithTol(tol float64) LogisticOption {
	return func(l *LogisticRegression) { l.Tol = tol }
}

// NewLogisticRegression creates a classifier with the default step size 0.01,
// 1000 iterations and tolerance 1e-4.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	l := &LogisticRegression{
		LearningRate: 0.01,
		MaxIter:      1000,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fit trains the classifier. y holds class labels, one row per sample; the
// distinct labels become the model's classes.
func (l *LogisticRegression) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("LogisticRegression.Fit", rows, yRows, 0)
	}

	classSet := make(map[float64]struct{})
	labels := make([]float64, rows)
	for i := 0; i < rows; i++ {
		labels[i] = y.At(i, 0)
		classSet[labels[i]] = struct{}{}
	}
	l.ClassVals = make([]float64, 0, len(classSet))
	for c := range classSet {
		l.ClassVals = append(l.ClassVals, c)
	}
	sort.Float64s(l.ClassVals)
	if len(l.ClassVals) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			"training data contains a single class")
	}

	// Binary problems train one separator for the larger class; multiclass
	// trains one-vs-rest per class.
	positives := l.ClassVals
	if len(l.ClassVals) == 2 {
		positives = l.ClassVals[1:]
	}

	l.NFeatures = cols
	l.Weights = make([][]float64, len(positives))
	l.Intercepts = make([]float64, len(positives))

	for k, class := range positives {
		target := make([]float64, rows)
		for i, label := range labels {
			if label == class {
				target[i] = 1
			}
		}
		weights, intercept, converged := l.fitBinary(X, target, rows, cols)
		l.Weights[k] = weights
		l.Intercepts[k] = intercept
		if !converged {
			errors.Warn(errors.NewConvergenceWarning("LogisticRegression", l.MaxIter,
				"gradient norm did not reach tolerance"))
		}
	}

	l.SetFitted()
	return nil
}

// fitBinary runs gradient descent for one binary separator.
func (l *LogisticRegression) fitBinary(X mat.Matrix, target []float64, rows, cols int) ([]float64, float64, bool) {
	weights := make([]float64, cols)
	intercept := 0.0
	grad := make([]float64, cols)

	for iter := 0; iter < l.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0

		for i := 0; i < rows; i++ {
			z := intercept
			for j := 0; j < cols; j++ {
				z += X.At(i, j) * weights[j]
			}
			diff := sigmoid(z) - target[i]
			gradIntercept += diff
			for j := 0; j < cols; j++ {
				grad[j] += diff * X.At(i, j)
			}
		}

		norm := gradIntercept * gradIntercept
		scale := l.LearningRate / float64(rows)
		intercept -= scale * gradIntercept
		for j := 0; j < cols; j++ {
			weights[j] -= scale * grad[j]
			norm += grad[j] * grad[j]
		}

		if math.Sqrt(norm)/float64(rows) < l.Tol {
			return weights, intercept, true
		}
	}
	return weights, intercept, false
}

// PredictProba returns class membership probabilities, one column per class
// in the order of Classes.
func (l *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !l.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != l.NFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", l.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, len(l.ClassVals), nil)
	binary := len(l.ClassVals) == 2

	for i := 0; i < rows; i++ {
		if binary {
			z := l.Intercepts[0]
			for j := 0; j < cols; j++ {
				z += X.At(i, j) * l.Weights[0][j]
			}
			p := sigmoid(z)
			result.Set(i, 0, 1-p)
			result.Set(i, 1, p)
			continue
		}

		total := 0.0
		scores := make([]float64, len(l.ClassVals))
		for k := range l.ClassVals {
			z := l.Intercepts[k]
			for j := 0; j < cols; j++ {
				z += X.At(i, j) * l.Weights[k][j]
			}
			scores[k] = sigmoid(z)
			total += scores[k]
		}
		for k, s := range scores {
			if total > 0 {
				result.Set(i, k, s/total)
			} else {
				result.Set(i, k, 1/float64(len(l.ClassVals)))
			}
		}
	}
	return result, nil
}

// Predict returns the most probable class label per row.
func (l *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := l.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < len(l.ClassVals); k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		result.Set(i, 0, l.ClassVals[best])
	}
	return result, nil
}

// Score returns the accuracy on the given data.
func (l *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := l.Predict(X)
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
	return metrics.Accuracy(yTrue, yPred)
}

// Classes returns the sorted class labels seen during fitting.
func (l *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), l.ClassVals...)
}

// GetParams returns the model's hyperparameters.
func (l *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": l.LearningRate,
		"max_iter":      l.MaxIter,
		"tol":           l.Tol,
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
