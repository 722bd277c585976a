package training

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/pkg/errors"
)

// Fold is one train/test index split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits row indices into k shuffled folds.
type KFold struct {
	NSplits int
	Seed    int64
}

// NewKFold creates a k-fold splitter. Fewer than two splits falls back to
// five.
func NewKFold(nSplits int, seed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Seed: seed}
}

// Split partitions [0, nSamples) into NSplits folds after a seeded shuffle.
// Earlier folds absorb the remainder, so fold sizes differ by at most one.
func (kf *KFold) Split(nSamples int) []Fold {
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[start:start+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+testSize:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start += testSize
	}
	return folds
}

// CVResult holds per-fold cross-validation scores.
type CVResult struct {
	Scores []float64
}

// Mean returns the mean fold score.
func (cv *CVResult) Mean() float64 {
	if len(cv.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range cv.Scores {
		sum += s
	}
	return sum / float64(len(cv.Scores))
}

// Std returns the sample standard deviation of the fold scores.
func (cv *CVResult) Std() float64 {
	if len(cv.Scores) <= 1 {
		return 0
	}
	mean := cv.Mean()
	var sumSq float64
	for _, s := range cv.Scores {
		diff := s - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.Scores)-1))
}

// crossValidate scores fresh estimators from build over k seeded folds using
// each estimator's default score (accuracy or R²).
func crossValidate(X *mat.Dense, y *mat.VecDense, folds int, seed int64,
	build func() (model.Estimator, error)) (*CVResult, error) {

	rows, _ := X.Dims()
	if rows < folds {
		return nil, errors.NewDataQualityError("training.crossValidate",
			"fewer rows than cross-validation folds", rows, folds)
	}

	splitter := NewKFold(folds, seed)
	result := &CVResult{Scores: make([]float64, 0, folds)}
	for _, fold := range splitter.Split(rows) {
		trainX, trainY := extractRows(X, y, fold.TrainIndices)
		testX, testY := extractRows(X, y, fold.TestIndices)

		est, err := build()
		if err != nil {
			return nil, err
		}
		if err := est.Fit(trainX, trainY); err != nil {
			return nil, errors.Wrap(err, "sizefit: cross-validation fold fit")
		}
		score, err := est.Score(testX, testY)
		if err != nil {
			return nil, errors.Wrap(err, "sizefit: cross-validation fold score")
		}
		result.Scores = append(result.Scores, score)
	}
	return result, nil
}

// extractRows copies the selected rows of X and y into fresh matrices.
func extractRows(X *mat.Dense, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(indices), cols, nil)
	outY := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.SetVec(i, y.AtVec(idx))
	}
	return outX, outY
}
