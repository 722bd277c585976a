package training

import (
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/core/parallel"
)

// Tuning grids per algorithm family. Entries are tried in declaration order;
// score ties keep the earlier entry.
var (
	forestTreeGrid  = []int{50, 100, 200}
	forestDepthGrid = []int{5, 10, 15}
	forestLeafGrid  = []int{2, 5}

	svmCGrid       = []float64{0.1, 1, 10}
	svmEpsilonGrid = []float64{0.05, 0.1}

	networkHiddenGrid = [][]int{{50}, {100}, {100, 50}}
	networkRateGrid   = []float64{0.001, 0.01}
)

// gridCandidate pairs a hyperparameter combination with the config that
// realizes it.
type gridCandidate struct {
	params map[string]interface{}
	cfg    config.Config
}

// buildGrid enumerates the tuning grid for alg, or nil when the algorithm
// has no grid.
func buildGrid(alg Algorithm, cfg config.Config) []gridCandidate {
	switch alg {
	case EnsembleTrees:
		var grid []gridCandidate
		for _, trees := range forestTreeGrid {
			for _, depth := range forestDepthGrid {
				for _, leaf := range forestLeafGrid {
					c := cfg
					c.Forest.NumTrees = trees
					c.Forest.MaxDepth = depth
					c.Forest.MinLeafSize = leaf
					grid = append(grid, gridCandidate{
						params: map[string]interface{}{
							"num_trees":     trees,
							"max_depth":     depth,
							"min_leaf_size": leaf,
						},
						cfg: c,
					})
				}
			}
		}
		return grid

	case SupportVector:
		var grid []gridCandidate
		for _, cVal := range svmCGrid {
			for _, eps := range svmEpsilonGrid {
				c := cfg
				c.SVM.C = cVal
				c.SVM.Epsilon = eps
				grid = append(grid, gridCandidate{
					params: map[string]interface{}{
						"c":       cVal,
						"epsilon": eps,
					},
					cfg: c,
				})
			}
		}
		return grid

	case FeedForwardNetwork:
		var grid []gridCandidate
		for _, hidden := range networkHiddenGrid {
			for _, rate := range networkRateGrid {
				c := cfg
				c.Network.HiddenSizes = hidden
				c.Network.LearningRate = rate
				grid = append(grid, gridCandidate{
					params: map[string]interface{}{
						"hidden_sizes":  hidden,
						"learning_rate": rate,
					},
					cfg: c,
				})
			}
		}
		return grid
	}

	return nil
}

// searchResult is the outcome of one grid trial.
type searchResult struct {
	candidate gridCandidate
	cv        *CVResult
}

// gridSearch scores every grid combination by k-fold cross-validation and
// returns the best trial. Trials run on the worker pool; estimator seeding is
// per-candidate, so the outcome does not depend on the worker count.
func gridSearch(alg Algorithm, task TaskType, cfg config.Config,
	X *mat.Dense, y *mat.VecDense) (*searchResult, error) {

	grid := buildGrid(alg, cfg)
	if len(grid) == 0 {
		return nil, nil
	}

	results := make([]*searchResult, len(grid))
	err := parallel.ForEach(len(grid), cfg.Training.Workers, func(i int) error {
		candidate := grid[i]
		cv, err := crossValidate(X, y, cfg.Training.CVFolds, cfg.Training.RandomState,
			func() (model.Estimator, error) {
				return NewEstimator(alg, task, candidate.cfg)
			})
		if err != nil {
			return err
		}
		results[i] = &searchResult{candidate: candidate, cv: cv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.cv.Mean() > best.cv.Mean() {
			best = r
		}
	}
	return best, nil
}
