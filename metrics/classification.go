package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// Accuracy returns the fraction of exactly matching predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix computes the confusion matrix over the sorted union of
// labels observed in yTrue and yPred. counts[i][j] is the number of samples
// with true label labels[i] predicted as labels[j].
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (labels []float64, counts [][]int, err error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	set := make(map[float64]struct{})
	for i := 0; i < n; i++ {
		set[yTrue.AtVec(i)] = struct{}{}
		set[yPred.AtVec(i)] = struct{}{}
	}
	labels = make([]float64, 0, len(set))
	for v := range set {
		labels = append(labels, v)
	}
	sort.Float64s(labels)

	pos := make(map[float64]int, len(labels))
	for i, v := range labels {
		pos[v] = i
	}

	counts = make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := 0; i < n; i++ {
		counts[pos[yTrue.AtVec(i)]][pos[yPred.AtVec(i)]]++
	}
	return labels, counts, nil
}

// PrecisionWeighted returns precision averaged over classes, weighted by the
// number of true samples per class. A class never predicted contributes zero
// precision, mirroring the zero-division convention of weighted scoring.
func PrecisionWeighted(yTrue, yPred *mat.VecDense) (float64, error) {
	labels, counts, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return weightedAverage(labels, counts, func(i int) float64 {
		predicted := 0
		for r := range labels {
			predicted += counts[r][i]
		}
		if predicted == 0 {
			return 0
		}
		return float64(counts[i][i]) / float64(predicted)
	}), nil
}

// RecallWeighted returns recall averaged over classes, weighted by the number
// of true samples per class.
func RecallWeighted(yTrue, yPred *mat.VecDense) (float64, error) {
	labels, counts, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return weightedAverage(labels, counts, func(i int) float64 {
		support := rowSum(counts, i)
		if support == 0 {
			return 0
		}
		return float64(counts[i][i]) / float64(support)
	}), nil
}

// F1Weighted returns the harmonic mean of per-class precision and recall,
// weighted by class support.
func F1Weighted(yTrue, yPred *mat.VecDense) (float64, error) {
	labels, counts, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return weightedAverage(labels, counts, func(i int) float64 {
		support := rowSum(counts, i)
		predicted := 0
		for r := range labels {
			predicted += counts[r][i]
		}
		if support == 0 || predicted == 0 {
			return 0
		}
		precision := float64(counts[i][i]) / float64(predicted)
		recall := float64(counts[i][i]) / float64(support)
		if precision+recall == 0 {
			return 0
		}
		return 2 * precision * recall / (precision + recall)
	}), nil
}

func rowSum(counts [][]int, i int) int {
	sum := 0
	for _, v := range counts[i] {
		sum += v
	}
	return sum
}

// weightedAverage averages perClass(i) over all classes, weighting each class
// by its support (row sum) in the confusion matrix.
func weightedAverage(labels []float64, counts [][]int, perClass func(i int) float64) float64 {
	total := 0
	var sum float64
	for i := range labels {
		support := rowSum(counts, i)
		total += support
		sum += float64(support) * perClass(i)
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}
