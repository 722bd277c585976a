// Package neural implements small fully-connected feed-forward networks with
// ReLU hidden layers, trained by full-batch gradient descent. The classifier
// uses a softmax output with cross-entropy loss, the regressor a linear
// output with squared loss.
package neural

import (
	"encoding/gob"
	"math"
	"math/rand/v2"
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

// params are the hyperparameters shared by both network flavors.
type params struct {
	HiddenSizes  []int
	LearningRate float64
	Epochs       int
	Seed         int64
}

// Option configures a network.
type Option func(*params)

// WithHiddenSizes sets the hidden layer widths.
func WithHiddenSizes(sizes ...int) Option {
	return func(p *params) { p.HiddenSizes = sizes }
}

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(lr float64) Option {
	return func(p *params) { p.LearningRate = lr }
}

// WithEpochs sets the number of training passes.
func WithEpochs(n int) Option {
	return func(p *params) { p.Epochs = n }
}

// WithSeed seeds the weight initialization, making training reproducible.
func WithSeed(seed int64) Option {
	return func(p *params) { p.Seed = seed }
}

func defaultParams() params {
	return params{
		HiddenSizes:  []int{100, 50},
		LearningRate: 0.001,
		Epochs:       200,
		Seed:         42,
	}
}

// network holds the fitted layer parameters. Weights[l][o][i] connects input
// i to output o of layer l.
type network struct {
	Weights [][][]float64
	Biases  [][]float64
}

// newNetwork initializes a network with He-scaled Gaussian weights drawn from
// a PCG stream seeded with seed.
func newNetwork(sizes []int, seed int64) *network {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))
	n := &network{
		Weights: make([][][]float64, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
	}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2 / float64(in))
		n.Weights[l] = make([][]float64, out)
		n.Biases[l] = make([]float64, out)
		for o := 0; o < out; o++ {
			n.Weights[l][o] = make([]float64, in)
			for i := 0; i < in; i++ {
				n.Weights[l][o][i] = rng.NormFloat64() * scale
			}
		}
	}
	return n
}

// forward computes the activations of every layer for one sample. The last
// layer's activation is linear; the caller applies softmax when needed.
func (n *network) forward(input []float64) [][]float64 {
	activations := make([][]float64, len(n.Weights)+1)
	activations[0] = input
	for l := range n.Weights {
		out := make([]float64, len(n.Weights[l]))
		last := l == len(n.Weights)-1
		for o := range n.Weights[l] {
			z := n.Biases[l][o]
			for i, w := range n.Weights[l][o] {
				z += w * activations[l][i]
			}
			if !last && z < 0 {
				z = 0 // ReLU
			}
			out[o] = z
		}
		activations[l+1] = out
	}
	return activations
}

// backward accumulates gradients for one sample given the output-layer delta
// (dLoss/dz of the last layer).
func (n *network) backward(activations [][]float64, delta []float64, gradW [][][]float64, gradB [][]float64) {
	for l := len(n.Weights) - 1; l >= 0; l-- {
		for o := range n.Weights[l] {
			gradB[l][o] += delta[o]
			for i := range n.Weights[l][o] {
				gradW[l][o][i] += delta[o] * activations[l][i]
			}
		}
		if l == 0 {
			break
		}
		prev := make([]float64, len(activations[l]))
		for i := range prev {
			if activations[l][i] <= 0 {
				continue // ReLU gradient is zero
			}
			var sum float64
			for o := range n.Weights[l] {
				sum += n.Weights[l][o][i] * delta[o]
			}
			prev[i] = sum
		}
		delta = prev
	}
}

// train runs full-batch gradient descent. outDelta computes the output-layer
// delta for sample i given its final activation.
func (n *network) train(samples [][]float64, epochs int, lr float64, outDelta func(i int, output []float64) []float64) {
	gradW := make([][][]float64, len(n.Weights))
	gradB := make([][]float64, len(n.Weights))
	for l := range n.Weights {
		gradW[l] = make([][]float64, len(n.Weights[l]))
		gradB[l] = make([]float64, len(n.Biases[l]))
		for o := range n.Weights[l] {
			gradW[l][o] = make([]float64, len(n.Weights[l][o]))
		}
	}

	for epoch := 0; epoch < epochs; epoch++ {
		for l := range gradW {
			for o := range gradW[l] {
				gradB[l][o] = 0
				for i := range gradW[l][o] {
					gradW[l][o][i] = 0
				}
			}
		}

		for i, sample := range samples {
			activations := n.forward(sample)
			delta := outDelta(i, activations[len(activations)-1])
			n.backward(activations, delta, gradW, gradB)
		}

		scale := lr / float64(len(samples))
		for l := range n.Weights {
			for o := range n.Weights[l] {
				n.Biases[l][o] -= scale * gradB[l][o]
				for i := range n.Weights[l][o] {
					n.Weights[l][o][i] -= scale * gradW[l][o][i]
				}
			}
		}
	}
}

// Classifier is a feed-forward network with a softmax output.
type Classifier struct {
	model.BaseEstimator

	Params params

	// Net is the fitted network.
	Net *network

	// ClassVals are the sorted class labels seen during fitting.
	ClassVals []float64

	// NFeatures is the feature count seen during fitting.
	NFeatures int
}

// NewClassifier creates a classifier with hidden layers (100, 50), step size
// 0.001 and 200 epochs.
func NewClassifier(opts ...Option) *Classifier {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Classifier{Params: p}
}

// Fit trains the network on X and class labels y.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	samples, labels, err := toSlices(X, y)
	if err != nil {
		return errors.Wrap(err, "sizefit: neural.Classifier.Fit")
	}

	classSet := make(map[float64]struct{})
	for _, label := range labels {
		classSet[label] = struct{}{}
	}
	c.ClassVals = make([]float64, 0, len(classSet))
	for v := range classSet {
		c.ClassVals = append(c.ClassVals, v)
	}
	sort.Float64s(c.ClassVals)
	if len(c.ClassVals) < 2 {
		return errors.NewValueError("neural.Classifier.Fit",
			"training data contains a single class")
	}

	classIndex := make(map[float64]int, len(c.ClassVals))
	for k, v := range c.ClassVals {
		classIndex[v] = k
	}

	c.NFeatures = len(samples[0])
	sizes := append([]int{c.NFeatures}, c.Params.HiddenSizes...)
	sizes = append(sizes, len(c.ClassVals))
	c.Net = newNetwork(sizes, c.Params.Seed)

	// Softmax cross-entropy: delta = softmax(z) - onehot(label).
	c.Net.train(samples, c.Params.Epochs, c.Params.LearningRate, func(i int, output []float64) []float64 {
		delta := softmax(output)
		delta[classIndex[labels[i]]]--
		return delta
	})

	c.SetFitted()
	return nil
}

// PredictProba returns softmax class probabilities, one column per class in
// the order of Classes.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("neural.Classifier", "PredictProba")
	}
	rows, cols := X.Dims()
	if cols != c.NFeatures {
		return nil, errors.NewDimensionError("neural.Classifier.PredictProba", c.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, len(c.ClassVals), nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		activations := c.Net.forward(row)
		proba := softmax(activations[len(activations)-1])
		for k, p := range proba {
			result.Set(i, k, p)
		}
	}
	return result, nil
}

// Predict returns the most probable class label per row.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < len(c.ClassVals); k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		result.Set(i, 0, c.ClassVals[best])
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
	return paramsMap(c.Params)
}

// Regressor is a feed-forward network with a single linear output.
type Regressor struct {
	model.BaseEstimator

	Params params

	Net *network

	NFeatures int
}

// NewRegressor creates a regressor with the same defaults as NewClassifier.
func NewRegressor(opts ...Option) *Regressor {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Regressor{Params: p}
}

// Fit trains the network on X and numeric targets y with squared loss.
func (r *Regressor) Fit(X, y mat.Matrix) error {
	samples, targets, err := toSlices(X, y)
	if err != nil {
		return errors.Wrap(err, "sizefit: neural.Regressor.Fit")
	}

	r.NFeatures = len(samples[0])
	sizes := append([]int{r.NFeatures}, r.Params.HiddenSizes...)
	sizes = append(sizes, 1)
	r.Net = newNetwork(sizes, r.Params.Seed)

	// Squared loss: delta = prediction - target.
	r.Net.train(samples, r.Params.Epochs, r.Params.LearningRate, func(i int, output []float64) []float64 {
		return []float64{output[0] - targets[i]}
	})

	r.SetFitted()
	return nil
}

// Predict returns the network output per row.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("neural.Regressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != r.NFeatures {
		return nil, errors.NewDimensionError("neural.Regressor.Predict", r.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		activations := r.Net.forward(row)
		result.Set(i, 0, activations[len(activations)-1][0])
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
	return paramsMap(r.Params)
}

func paramsMap(p params) map[string]interface{} {
	return map[string]interface{}{
		"hidden_sizes":  p.HiddenSizes,
		"learning_rate": p.LearningRate,
		"epochs":        p.Epochs,
		"seed":          p.Seed,
	}
}

func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	out := make([]float64, len(z))
	var total float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// toSlices converts mat inputs to row-major slices, validating shapes.
func toSlices(X, y mat.Matrix) ([][]float64, []float64, error) {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}
	if yRows != rows {
		return nil, nil, errors.NewDimensionError("neural", rows, yRows, 0)
	}

	samples := make([][]float64, rows)
	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			samples[i][j] = X.At(i, j)
		}
		targets[i] = y.At(i, 0)
	}
	return samples, targets, nil
}
