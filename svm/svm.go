// Package svm implements linear support-vector models trained by subgradient
// descent: a hinge-loss classifier with one-vs-rest multiclass handling and
// an epsilon-insensitive regressor.
package svm

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
	gob.Register(&Classifier{})
	gob.Register(&Regressor{})
}

// params are the hyperparameters shared by both SVM flavors.
type params struct {
	// C is the inverse regularization strength.
	C float64

	// Epsilon is the insensitive-tube width; regression only.
	Epsilon float64

	// Epochs is the number of full passes over the training data.
	Epochs int

	// LearningRate is the base step size; the effective step decays as
	// LearningRate / (1 + epoch).
	LearningRate float64
}

// Option configures an SVM model.
type Option func(*params)

// WithC sets the inverse regularization strength.
func WithC(c float64) Option {
	return func(p *params) { p.C = c }
}

// WithEpsilon sets the insensitive-tube width for regression.
func WithEpsilon(eps float64) Option {
	return func(p *params) { p.Epsilon = eps }
}

// WithEpochs sets the number of training passes.
func WithEpochs(n int) Option {
	return func(p *params) { p.Epochs = n }
}

// WithLearningRate sets the base step size.
func WithLearningRate(lr float64) Option {
	return func(p *params) { p.LearningRate = lr }
}

func defaultParams() params {
	return params{
		C:            1.0,
		Epsilon:      0.1,
		Epochs:       200,
		LearningRate: 0.1,
	}
}

// Classifier is a linear SVM with hinge loss. Multiclass problems train one
// separator per class; prediction takes the class with the largest margin.
type Classifier struct {
	model.BaseEstimator

	Params params

	// Weights holds one weight vector per class (one for binary problems).
	Weights [][]float64

	// Intercepts holds one bias per weight vector.
	Intercepts []float64

	// ClassVals are the sorted class labels seen during fitting.
	ClassVals []float64

	// NFeatures is the feature count seen during fitting.
	NFeatures int
}

// NewClassifier creates a hinge-loss classifier with C=1, 200 epochs.
func NewClassifier(opts ...Option) *Classifier {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Classifier{Params: p}
}

// Fit trains one hinge-loss separator per class.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("svm.Classifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("svm.Classifier.Fit", rows, yRows, 0)
	}

	labels := make([]float64, rows)
	classSet := make(map[float64]struct{})
	for i := 0; i < rows; i++ {
		labels[i] = y.At(i, 0)
		classSet[labels[i]] = struct{}{}
	}
	c.ClassVals = make([]float64, 0, len(classSet))
	for v := range classSet {
		c.ClassVals = append(c.ClassVals, v)
	}
	sort.Float64s(c.ClassVals)
	if len(c.ClassVals) < 2 {
		return errors.NewValueError("svm.Classifier.Fit",
			"training data contains a single class")
	}

	positives := c.ClassVals
	if len(c.ClassVals) == 2 {
		positives = c.ClassVals[1:]
	}

	c.NFeatures = cols
	c.Weights = make([][]float64, len(positives))
	c.Intercepts = make([]float64, len(positives))

	for k, class := range positives {
		signs := make([]float64, rows)
		for i, label := range labels {
			if label == class {
				signs[i] = 1
			} else {
				signs[i] = -1
			}
		}
		c.Weights[k], c.Intercepts[k] = c.fitBinary(X, signs, rows, cols)
	}

	c.SetFitted()
	return nil
}

// fitBinary minimizes the regularized hinge loss
// 0.5*|w|^2 + C * Σ max(0, 1 - s*(w·x + b)) by full-batch subgradient
// descent with a decaying step size.
func (c *Classifier) fitBinary(X mat.Matrix, signs []float64, rows, cols int) ([]float64, float64) {
	weights := make([]float64, cols)
	intercept := 0.0
	grad := make([]float64, cols)

	for epoch := 0; epoch < c.Params.Epochs; epoch++ {
		for j := range grad {
			grad[j] = weights[j] // regularization term
		}
		gradIntercept := 0.0

		for i := 0; i < rows; i++ {
			margin := intercept
			for j := 0; j < cols; j++ {
				margin += X.At(i, j) * weights[j]
			}
			if signs[i]*margin < 1 {
				scale := c.Params.C * signs[i] / float64(rows)
				gradIntercept -= scale
				for j := 0; j < cols; j++ {
					grad[j] -= scale * X.At(i, j)
				}
			}
		}

		step := c.Params.LearningRate / (1 + float64(epoch))
		intercept -= step * gradIntercept
		for j := 0; j < cols; j++ {
			weights[j] -= step * grad[j]
		}
	}
	return weights, intercept
}

// decision returns the margin of each class separator for one row.
func (c *Classifier) decision(X mat.Matrix, i, cols int) []float64 {
	scores := make([]float64, len(c.Weights))
	for k := range c.Weights {
		z := c.Intercepts[k]
		for j := 0; j < cols; j++ {
			z += X.At(i, j) * c.Weights[k][j]
		}
		scores[k] = z
	}
	return scores
}

// Predict returns the class with the largest margin per row.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("svm.Classifier", "Predict")
	}
	rows, cols := X.Dims()
	if cols != c.NFeatures {
		return nil, errors.NewDimensionError("svm.Classifier.Predict", c.NFeatures, cols, 1)
	}

	binary := len(c.ClassVals) == 2
	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		scores := c.decision(X, i, cols)
		if binary {
			if scores[0] >= 0 {
				result.Set(i, 0, c.ClassVals[1])
			} else {
				result.Set(i, 0, c.ClassVals[0])
			}
			continue
		}
		best := 0
		for k := 1; k < len(scores); k++ {
			if scores[k] > scores[best] {
				best = k
			}
		}
		result.Set(i, 0, c.ClassVals[best])
	}
	return result, nil
}

// PredictProba returns class membership probabilities, one column per class
// in Classes order. Margins are not calibrated probabilities, so the binary
// case maps the single margin through a logistic transform and the multiclass
// case takes a softmax over the per-class margins; the argmax always agrees
// with Predict.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("svm.Classifier", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != c.NFeatures {
		return nil, errors.NewDimensionError("svm.Classifier.PredictProba", c.NFeatures, cols, 1)
	}

	binary := len(c.ClassVals) == 2
	result := mat.NewDense(rows, len(c.ClassVals), nil)
	for i := 0; i < rows; i++ {
		scores := c.decision(X, i, cols)
		if binary {
			p := 1 / (1 + math.Exp(-scores[0]))
			result.Set(i, 0, 1-p)
			result.Set(i, 1, p)
			continue
		}

		max := scores[0]
		for _, s := range scores[1:] {
			if s > max {
				max = s
			}
		}
		var sum float64
		for k, s := range scores {
			scores[k] = math.Exp(s - max)
			sum += scores[k]
		}
		for k := range scores {
			result.Set(i, k, scores[k]/sum)
		}
	}
	return result, nil
}

// Score returns the accuracy on the given data.
func (c *Classifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
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
func (c *Classifier) Classes() []float64 {
	return append([]float64(nil), c.ClassVals...)
}

// GetParams returns the model's hyperparameters.
func (c *Classifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"c":             c.Params.C,
		"epochs":        c.Params.Epochs,
		"learning_rate": c.Params.LearningRate,
	}
}

// Regressor is a linear SVR with epsilon-insensitive loss.
type Regressor struct {
	model.BaseEstimator

	Params params

	// Coef is the fitted weight vector.
	Coef []float64

	// InterceptVal is the fitted bias.
	InterceptVal float64

	// NFeatures is the feature count seen during fitting.
	NFeatures int
}

// NewRegressor creates an epsilon-insensitive regressor with C=1,
// epsilon=0.1 and 200 epochs.
func NewRegressor(opts ...Option) *Regressor {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Regressor{Params: p}
}

// Fit minimizes 0.5*|w|^2 + C * Σ max(0, |w·x + b - y| - epsilon) by
// full-batch subgradient descent.
func (r *Regressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("svm.Regressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("svm.Regressor.Fit", rows, yRows, 0)
	}

	weights := make([]float64, cols)
	intercept := 0.0
	grad := make([]float64, cols)

	for epoch := 0; epoch < r.Params.Epochs; epoch++ {
		for j := range grad {
			grad[j] = weights[j]
		}
		gradIntercept := 0.0

		for i := 0; i < rows; i++ {
			pred := intercept
			for j := 0; j < cols; j++ {
				pred += X.At(i, j) * weights[j]
			}
			residual := pred - y.At(i, 0)

			var sign float64
			if residual > r.Params.Epsilon {
				sign = 1
			} else if residual < -r.Params.Epsilon {
				sign = -1
			} else {
				continue
			}
			scale := r.Params.C * sign / float64(rows)
			gradIntercept += scale
			for j := 0; j < cols; j++ {
				grad[j] += scale * X.At(i, j)
			}
		}

		step := r.Params.LearningRate / (1 + float64(epoch))
		intercept -= step * gradIntercept
		for j := 0; j < cols; j++ {
			weights[j] -= step * grad[j]
		}
	}

	r.Coef = weights
	r.InterceptVal = intercept
	r.NFeatures = cols
	r.SetFitted()
	return nil
}

// Predict returns the fitted linear response per row.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("svm.Regressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != r.NFeatures {
		return nil, errors.NewDimensionError("svm.Regressor.Predict", r.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := r.InterceptVal
		for j := 0; j < cols; j++ {
			sum += X.At(i, j) * r.Coef[j]
		}
		result.Set(i, 0, sum)
	}
	return result, nil
}

// Score returns the coefficient of determination R² on the given data.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
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

// GetParams returns the model's hyperparameters.
func (r *Regressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"c":             r.Params.C,
		"epsilon":       r.Params.Epsilon,
		"epochs":        r.Params.Epochs,
		"learning_rate": r.Params.LearningRate,
	}
}
