package training

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/metrics"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/pkg/log"
)

// Record is the frozen evaluation of one trained model on its held-out
// split.
type Record struct {
	Task            TaskType           `json:"task_type"`
	Scores          map[string]float64 `json:"scores"`
	ConfusionLabels []float64          `json:"confusion_labels,omitempty"`
	ConfusionMatrix [][]int            `json:"confusion_matrix,omitempty"`
}

// Primary returns the score used for best-model comparison: accuracy for
// classification, R² for regression.
func (r Record) Primary() float64 {
	if r.Task == Classification {
		return r.Scores["accuracy"]
	}
	return r.Scores["r2"]
}

// Result is one registered model with its evaluation.
type Result struct {
	Name         string
	Algorithm    Algorithm
	TaskType     TaskType
	Estimator    model.Estimator
	Params       map[string]interface{}
	Metrics      Record
	FeatureNames []string

	// Classes are the original string labels for classification targets, in
	// code order, so predictions decode back to labels.
	Classes []string
}

// TrainOptions select what a single Train call builds.
type TrainOptions struct {
	Algorithm Algorithm
	TaskType  TaskType

	// Tune enables grid-search hyperparameter tuning for the algorithms
	// that define a grid.
	Tune bool

	// FeatureNames are the column names of X, used for importance reports.
	FeatureNames []string

	// Classes are the decoded class labels for classification targets.
	Classes []string
}

// Trainer runs training sessions and keeps every model it has registered.
// A Trainer is not safe for concurrent use.
type Trainer struct {
	cfg    config.Config
	logger log.Logger

	sessionID string
	started   time.Time

	models    map[string]*Result
	order     []string
	bestName  string
	bestScore float64
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLogger sets the trainer's logger. The default is a no-op logger.
func WithLogger(logger log.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = logger }
}

// NewTrainer creates a trainer with a fresh session ID.
func NewTrainer(cfg config.Config, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		cfg:       cfg,
		logger:    log.NopLogger{},
		sessionID: uuid.NewString(),
		started:   time.Now(),
		models:    make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(log.SessionIDKey, t.sessionID)
	return t
}

// SessionID returns the unique identifier of this training session.
func (t *Trainer) SessionID() string {
	return t.sessionID
}

// Train splits the data, optionally tunes, fits one model and registers it
// under "{algorithm}_{task_type}". A failed call leaves the trainer's
// registered models and best pointer untouched.
func (t *Trainer) Train(X *mat.Dense, y *mat.VecDense, opts TrainOptions) (*Result, error) {
	logger := t.logger.With(
		log.AlgorithmKey, string(opts.Algorithm),
		log.TaskTypeKey, string(opts.TaskType),
	)

	trainX, trainY, testX, testY, err := trainTestSplit(X, y,
		t.cfg.Training.TestSize, t.cfg.Training.RandomState)
	if err != nil {
		return nil, err
	}

	cfg := t.cfg
	params := map[string]interface{}{}
	if opts.Tune {
		start := time.Now()
		best, err := gridSearch(opts.Algorithm, opts.TaskType, t.cfg, trainX, trainY)
		if err != nil {
			return nil, err
		}
		if best == nil {
			logger.Warn("no tuning grid for algorithm, training with configured parameters",
				log.OperationKey, log.OperationGridSearch)
		} else {
			cfg = best.candidate.cfg
			for k, v := range best.candidate.params {
				params[k] = v
			}
			logger.Info("grid search finished",
				log.OperationKey, log.OperationGridSearch,
				log.CVMeanKey, best.cv.Mean(),
				log.HyperParamsKey, best.candidate.params,
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
		}
	}

	est, err := NewEstimator(opts.Algorithm, opts.TaskType, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := est.Fit(trainX, trainY); err != nil {
		return nil, errors.Wrap(err, "sizefit: training fit")
	}

	pred, err := est.Predict(testX)
	if err != nil {
		return nil, errors.Wrap(err, "sizefit: held-out prediction")
	}
	record := evaluate(opts.TaskType, testY, pred)

	if pg, ok := est.(model.ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			if _, tuned := params[k]; !tuned {
				params[k] = v
			}
		}
	}

	result := &Result{
		Name:         ModelName(opts.Algorithm, opts.TaskType),
		Algorithm:    opts.Algorithm,
		TaskType:     opts.TaskType,
		Estimator:    est,
		Params:       params,
		Metrics:      record,
		FeatureNames: append([]string(nil), opts.FeatureNames...),
		Classes:      append([]string(nil), opts.Classes...),
	}

	if _, seen := t.models[result.Name]; !seen {
		t.order = append(t.order, result.Name)
	}
	t.models[result.Name] = result
	if t.bestName == "" || record.Primary() > t.bestScore {
		t.bestName = result.Name
		t.bestScore = record.Primary()
	}

	logger.Info("model trained",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, result.Name,
		log.RowsKey, rowCount(X),
		log.DurationMsKey, time.Since(start).Milliseconds(),
		primaryScoreKey(opts.TaskType), record.Primary(),
	)
	return result, nil
}

// CrossValidate runs diagnostic k-fold scoring for one algorithm without
// touching the trainer's registered models. Folds below two fall back to the
// configured fold count.
func (t *Trainer) CrossValidate(X *mat.Dense, y *mat.VecDense,
	alg Algorithm, task TaskType, folds int) (*CVResult, error) {

	if folds < 2 {
		folds = t.cfg.Training.CVFolds
	}
	result, err := crossValidate(X, y, folds, t.cfg.Training.RandomState,
		func() (model.Estimator, error) {
			return NewEstimator(alg, task, t.cfg)
		})
	if err != nil {
		return nil, err
	}

	t.logger.Info("cross-validation finished",
		log.OperationKey, log.OperationCrossValidate,
		log.AlgorithmKey, string(alg),
		log.TaskTypeKey, string(task),
		log.CVMeanKey, result.Mean(),
	)
	return result, nil
}

// Model returns a registered model by name.
func (t *Trainer) Model(name string) (*Result, bool) {
	r, ok := t.models[name]
	return r, ok
}

// Models returns every registered model in registration order.
func (t *Trainer) Models() []*Result {
	out := make([]*Result, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.models[name])
	}
	return out
}

// Best returns the model with the highest primary score so far.
func (t *Trainer) Best() (*Result, bool) {
	if t.bestName == "" {
		return nil, false
	}
	return t.models[t.bestName], true
}

// FeatureWeight pairs a feature name with its importance.
type FeatureWeight struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// FeatureImportance returns the named model's feature importances sorted
// from most to least important. Models without importances yield an empty
// slice and a warning.
func (t *Trainer) FeatureImportance(modelName string) ([]FeatureWeight, error) {
	result, ok := t.models[modelName]
	if !ok {
		return nil, errors.NewValueError("training.FeatureImportance",
			"unknown model "+modelName)
	}

	fi, ok := result.Estimator.(model.FeatureImportancer)
	if !ok {
		t.logger.Warn("model does not expose feature importances",
			log.ModelNameKey, modelName)
		return []FeatureWeight{}, nil
	}

	importances := fi.FeatureImportances()
	weights := make([]FeatureWeight, len(importances))
	for i, v := range importances {
		name := ""
		if i < len(result.FeatureNames) {
			name = result.FeatureNames[i]
		}
		weights[i] = FeatureWeight{Name: name, Importance: v}
	}
	sort.SliceStable(weights, func(i, j int) bool {
		return weights[i].Importance > weights[j].Importance
	})
	return weights, nil
}

// evaluate freezes the held-out metrics for one model.
func evaluate(task TaskType, yTrue *mat.VecDense, pred mat.Matrix) Record {
	n, _ := pred.Dims()
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yPred.SetVec(i, pred.At(i, 0))
	}

	record := Record{Task: task, Scores: make(map[string]float64)}
	if task == Classification {
		record.Scores["accuracy"], _ = metrics.Accuracy(yTrue, yPred)
		record.Scores["precision"], _ = metrics.PrecisionWeighted(yTrue, yPred)
		record.Scores["recall"], _ = metrics.RecallWeighted(yTrue, yPred)
		record.Scores["f1"], _ = metrics.F1Weighted(yTrue, yPred)
		labels, confusion, err := metrics.ConfusionMatrix(yTrue, yPred)
		if err == nil {
			record.ConfusionLabels = labels
			record.ConfusionMatrix = confusion
		}
		return record
	}

	record.Scores["mse"], _ = metrics.MSE(yTrue, yPred)
	record.Scores["rmse"], _ = metrics.RMSE(yTrue, yPred)
	record.Scores["mae"], _ = metrics.MAE(yTrue, yPred)
	record.Scores["r2"], _ = metrics.R2Score(yTrue, yPred)
	return record
}

// trainTestSplit shuffles row indices with a seeded generator and carves off
// the held-out fraction.
func trainTestSplit(X *mat.Dense, y *mat.VecDense, testSize float64, seed int64) (
	trainX *mat.Dense, trainY *mat.VecDense, testX *mat.Dense, testY *mat.VecDense, err error) {

	rows, _ := X.Dims()
	testCount := int(math.Round(float64(rows) * testSize))
	if testCount < 1 {
		testCount = 1
	}
	if rows-testCount < 1 {
		return nil, nil, nil, nil, errors.NewDataQualityError("training.trainTestSplit",
			"not enough rows for a train/test split", rows, 0)
	}

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testX, testY = extractRows(X, y, indices[:testCount])
	trainX, trainY = extractRows(X, y, indices[testCount:])
	return trainX, trainY, testX, testY, nil
}

func primaryScoreKey(task TaskType) string {
	if task == Classification {
		return log.AccuracyKey
	}
	return log.R2ScoreKey
}

func rowCount(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}
