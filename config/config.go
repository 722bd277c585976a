// Package config defines the pipeline configuration and its YAML loading.
//
// A Config starts from Default() and is overlaid by an optional YAML file, so
// a config file only needs to name the settings it changes. Validate reports
// the first invalid setting as a ConfigurationError.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// Preprocessing controls the cleaning and feature pipeline.
type Preprocessing struct {
	// MissingStrategy selects the missing-value policy: "auto", "drop" or
	// "interpolate".
	MissingStrategy string `yaml:"missing_strategy"`

	// OutlierMethod selects outlier removal: "iqr", "zscore" or "none".
	OutlierMethod string `yaml:"outlier_method"`

	// OutlierIQRFactor is the fence multiplier for the "iqr" method.
	OutlierIQRFactor float64 `yaml:"outlier_iqr_factor"`

	// OutlierZScoreThreshold is the cutoff, in standard deviations, for the
	// "zscore" method.
	OutlierZScoreThreshold float64 `yaml:"outlier_zscore_threshold"`

	// ScalingMethod selects feature scaling: "standard", "minmax" or "none".
	ScalingMethod string `yaml:"scaling_method"`

	// EncodingMethod selects categorical encoding: "label" or "onehot".
	EncodingMethod string `yaml:"encoding_method"`

	// EngineerFeatures toggles the derived chest/waist ratio and BMI columns.
	EngineerFeatures bool `yaml:"engineer_features"`
}

// Forest holds the tree-ensemble hyperparameters.
type Forest struct {
	NumTrees    int `yaml:"num_trees"`
	MaxDepth    int `yaml:"max_depth"`
	MinLeafSize int `yaml:"min_leaf_size"`
}

// Network holds the feed-forward network hyperparameters.
type Network struct {
	HiddenSizes  []int   `yaml:"hidden_sizes"`
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
}

// SVM holds the support-vector hyperparameters.
type SVM struct {
	C       float64 `yaml:"c"`
	Epsilon float64 `yaml:"epsilon"`
	Epochs  int     `yaml:"epochs"`
}

// Linear holds the iterative linear-model hyperparameters.
type Linear struct {
	LearningRate float64 `yaml:"learning_rate"`
	MaxIter      int     `yaml:"max_iter"`
	Tol          float64 `yaml:"tol"`
}

// Training controls the split, tuning and reproducibility settings.
type Training struct {
	// TestSize is the held-out fraction, in (0, 1).
	TestSize float64 `yaml:"test_size"`

	// CVFolds is the number of cross-validation folds for tuning.
	CVFolds int `yaml:"cv_folds"`

	// RandomState seeds every stochastic component for reproducible runs.
	RandomState int64 `yaml:"random_state"`

	// GridSearch toggles hyperparameter tuning for the algorithms that
	// support it.
	GridSearch bool `yaml:"grid_search"`

	// Workers bounds training parallelism. Zero means one goroutine per CPU.
	Workers int `yaml:"workers"`
}

// Paths names the artifact locations.
type Paths struct {
	// ModelsDir receives trained model bundles and training summaries.
	ModelsDir string `yaml:"models_dir"`
}

// Config is the full pipeline configuration.
type Config struct {
	// TargetCandidates are the column names probed, in order, when the
	// target column is not set explicitly.
	TargetCandidates []string `yaml:"target_candidates"`

	// LogLevel selects logger verbosity: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	Preprocessing Preprocessing `yaml:"preprocessing"`
	Forest        Forest        `yaml:"forest"`
	Network       Network       `yaml:"network"`
	SVM           SVM           `yaml:"svm"`
	Linear        Linear        `yaml:"linear"`
	Training      Training      `yaml:"training"`
	Paths         Paths         `yaml:"paths"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		TargetCandidates: []string{"size", "size_category", "fit", "style", "target", "label", "class"},
		LogLevel:         "info",
		Preprocessing: Preprocessing{
			MissingStrategy:        "auto",
			OutlierMethod:          "iqr",
			OutlierIQRFactor:       1.5,
			OutlierZScoreThreshold: 3.0,
			ScalingMethod:          "standard",
			EncodingMethod:         "label",
			EngineerFeatures:       true,
		},
		Forest: Forest{
			NumTrees:    100,
			MaxDepth:    10,
			MinLeafSize: 2,
		},
		Network: Network{
			HiddenSizes:  []int{100, 50},
			LearningRate: 0.001,
			Epochs:       200,
		},
		SVM: SVM{
			C:       1.0,
			Epsilon: 0.1,
			Epochs:  200,
		},
		Linear: Linear{
			LearningRate: 0.01,
			MaxIter:      1000,
			Tol:          1e-4,
		},
		Training: Training{
			TestSize:    0.2,
			CVFolds:     5,
			RandomState: 42,
			GridSearch:  false,
			Workers:     0,
		},
		Paths: Paths{
			ModelsDir: "models",
		},
	}
}

// Load reads a YAML file and overlays it on Default(). An empty path returns
// the defaults unchanged. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "sizefit: failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "sizefit: failed to parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks every setting and returns a ConfigurationError for the
// first invalid one.
func (c *Config) Validate() error {
	switch c.Preprocessing.MissingStrategy {
	case "auto", "drop", "interpolate":
	default:
		return errors.NewConfigurationError("preprocessing.missing_strategy",
			c.Preprocessing.MissingStrategy, `must be one of "auto", "drop", "interpolate"`)
	}

	switch c.Preprocessing.OutlierMethod {
	case "iqr", "zscore", "none":
	default:
		return errors.NewConfigurationError("preprocessing.outlier_method",
			c.Preprocessing.OutlierMethod, `must be one of "iqr", "zscore", "none"`)
	}

	if c.Preprocessing.OutlierIQRFactor <= 0 {
		return errors.NewConfigurationError("preprocessing.outlier_iqr_factor",
			c.Preprocessing.OutlierIQRFactor, "must be positive")
	}
	if c.Preprocessing.OutlierZScoreThreshold <= 0 {
		return errors.NewConfigurationError("preprocessing.outlier_zscore_threshold",
			c.Preprocessing.OutlierZScoreThreshold, "must be positive")
	}

	switch c.Preprocessing.ScalingMethod {
	case "standard", "minmax", "none":
	default:
		return errors.NewConfigurationError("preprocessing.scaling_method",
			c.Preprocessing.ScalingMethod, `must be one of "standard", "minmax", "none"`)
	}

	switch c.Preprocessing.EncodingMethod {
	case "label", "onehot":
	default:
		return errors.NewConfigurationError("preprocessing.encoding_method",
			c.Preprocessing.EncodingMethod, `must be one of "label", "onehot"`)
	}

	if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
		return errors.NewConfigurationError("training.test_size",
			c.Training.TestSize, "must be in the open interval (0, 1)")
	}
	if c.Training.CVFolds < 2 {
		return errors.NewConfigurationError("training.cv_folds",
			c.Training.CVFolds, "must be at least 2")
	}
	if c.Training.Workers < 0 {
		return errors.NewConfigurationError("training.workers",
			c.Training.Workers, "must not be negative")
	}

	if c.Forest.NumTrees < 1 {
		return errors.NewConfigurationError("forest.num_trees",
			c.Forest.NumTrees, "must be at least 1")
	}
	if c.Forest.MaxDepth < 1 {
		return errors.NewConfigurationError("forest.max_depth",
			c.Forest.MaxDepth, "must be at least 1")
	}
	if c.Network.LearningRate <= 0 {
		return errors.NewConfigurationError("network.learning_rate",
			c.Network.LearningRate, "must be positive")
	}
	if len(c.Network.HiddenSizes) == 0 {
		return errors.NewConfigurationError("network.hidden_sizes",
			c.Network.HiddenSizes, "must name at least one hidden layer")
	}
	if c.SVM.C <= 0 {
		return errors.NewConfigurationError("svm.c",
			c.SVM.C, "must be positive")
	}
	if c.Linear.MaxIter < 1 {
		return errors.NewConfigurationError("linear.max_iter",
			c.Linear.MaxIter, "must be at least 1")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewConfigurationError("log_level",
			c.LogLevel, `must be one of "debug", "info", "warn", "error"`)
	}

	if len(c.TargetCandidates) == 0 {
		return errors.NewConfigurationError("target_candidates",
			c.TargetCandidates, "must name at least one candidate column")
	}
	return nil
}
