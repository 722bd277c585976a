// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys consistently across preprocessing, training and prediction
// makes the JSON logs filterable by session, component and operation. The keys
// follow a hierarchical naming convention ("data.rows", "model.algorithm") for
// structured log analysis.
package log

// Session and operation context.
const (
	// SessionIDKey carries the unique identifier of a training session.
	SessionIDKey = "session.id"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "preprocessing", "training", "ensemble"
	ComponentKey = "pipeline.component"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform",
	// "cross_validate", "grid_search"
	OperationKey = "pipeline.operation"

	// StepKey names the preprocessing step currently running.
	// Examples: "impute", "outliers", "encode", "scale", "engineer"
	StepKey = "pipeline.step"
)

// Model context.
const (
	// AlgorithmKey identifies the learning algorithm.
	// Examples: "ensemble_trees", "support_vector", "feed_forward_network"
	AlgorithmKey = "model.algorithm"

	// TaskTypeKey distinguishes classification from regression.
	TaskTypeKey = "model.task_type"

	// ModelNameKey carries the registered model name,
	// e.g. "ensemble_trees_classification".
	ModelNameKey = "model.name"

	// HyperParamsKey contains the hyperparameter set as a structured object.
	HyperParamsKey = "model.hyperparams"
)

// Data shape.
const (
	// RowsKey indicates the number of rows (samples) being processed.
	RowsKey = "data.rows"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// TargetKey names the target column.
	TargetKey = "data.target"

	// DroppedRowsKey counts rows removed by cleaning or outlier steps.
	DroppedRowsKey = "data.dropped_rows"

	// ColumnKey names the column a step is operating on.
	ColumnKey = "data.column"
)

// Performance and evaluation.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy on the held-out split.
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// CVMeanKey records the mean cross-validation score.
	CVMeanKey = "metrics.cv_mean"

	// FoldKey records the current fold index during cross-validation.
	FoldKey = "training.fold"

	// EpochKey records the current epoch during iterative training.
	EpochKey = "training.epoch"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationTransform     = "transform"
	OperationFitTransform  = "fit_transform"
	OperationCrossValidate = "cross_validate"
	OperationGridSearch    = "grid_search"

	StepImpute   = "impute"
	StepOutliers = "outliers"
	StepEncode   = "encode"
	StepScale    = "scale"
	StepEngineer = "engineer"
)
