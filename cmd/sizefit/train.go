package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stylemetric/sizefit/config"
	"github.com/stylemetric/sizefit/dataset"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/pkg/log"
	"github.com/stylemetric/sizefit/preprocessing"
	"github.com/stylemetric/sizefit/training"
)

// defaultAlgorithms is the model family set trained when --algorithm is not
// given.
var defaultAlgorithms = []training.Algorithm{
	training.EnsembleTrees,
	training.SupportVector,
	training.LinearModel,
	training.FeedForwardNetwork,
}

var trainCmd = &cobra.Command{
	Use:   "train [flags] <dataset.csv>...",
	Short: "Train sizing models from CSV datasets",
	Long: `Train preprocesses each dataset, trains the selected model families and
writes model bundles plus a session summary to the models directory. The
target column is auto-detected from the configured candidate list, and a
failing dataset or algorithm is reported without aborting the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().String("algorithm", "", "train a single algorithm instead of the default set")
	trainCmd.Flags().String("task-type", "", "force classification or regression instead of inferring")
	trainCmd.Flags().Bool("tune", false, "grid-search hyperparameters before the final fit")
	trainCmd.Flags().Bool("cross-validation", false, "report k-fold cross-validation scores per model")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.NewLogger(cfg.LogLevel)

	algorithms := defaultAlgorithms
	if name, _ := cmd.Flags().GetString("algorithm"); name != "" {
		alg, err := training.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		algorithms = []training.Algorithm{alg}
	}

	var forcedTask training.TaskType
	if name, _ := cmd.Flags().GetString("task-type"); name != "" {
		forcedTask, err = training.ParseTaskType(name)
		if err != nil {
			return err
		}
	}

	tune, _ := cmd.Flags().GetBool("tune")
	crossValidate, _ := cmd.Flags().GetBool("cross-validation")

	trainer := training.NewTrainer(cfg, training.WithLogger(logger))
	failures := 0
	for _, path := range args {
		if err := trainDataset(trainer, cfg, logger, path, algorithms, forcedTask, tune, crossValidate); err != nil {
			failures++
			logger.Error("dataset failed", log.ErrAttrKey, err, "path", path)
		}
	}

	summaryPath, err := trainer.SaveSummary(cfg.Paths.ModelsDir)
	if err != nil {
		return err
	}
	logger.Info("training session finished", "summary", summaryPath)

	if failures == len(args) {
		return errors.Newf("all %d datasets failed", failures)
	}
	return nil
}

// trainDataset runs the full pipeline for one CSV file.
func trainDataset(trainer *training.Trainer, cfg config.Config, logger log.Logger,
	path string, algorithms []training.Algorithm, forcedTask training.TaskType,
	tune, crossValidate bool) error {

	frame, err := dataset.ReadCSV(path)
	if err != nil {
		return err
	}

	target, err := detectTarget(frame, cfg.TargetCandidates)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "path", path,
		log.RowsKey, frame.NumRows(), log.TargetKey, target)

	prep := preprocessorFromConfig(cfg, logger)
	X, y, err := prep.FitTransform(frame, target)
	if err != nil {
		return err
	}

	task := training.Regression
	if prep.State().Classification {
		task = training.Classification
	}
	if forcedTask != "" {
		task = forcedTask
	}

	trained := 0
	for _, alg := range algorithms {
		if crossValidate {
			cv, err := trainer.CrossValidate(X, y, alg, task, cfg.Training.CVFolds)
			if err != nil {
				logger.Error("cross-validation failed", log.ErrAttrKey, err,
					log.AlgorithmKey, string(alg))
			} else {
				fmt.Printf("%s: cv mean %.4f (+/- %.4f)\n",
					training.ModelName(alg, task), cv.Mean(), cv.Std())
			}
		}

		result, err := trainer.Train(X, y, training.TrainOptions{
			Algorithm:    alg,
			TaskType:     task,
			Tune:         tune,
			FeatureNames: prep.FeatureNames(),
			Classes:      prep.TargetClasses(),
		})
		if err != nil {
			logger.Error("training failed", log.ErrAttrKey, err,
				log.AlgorithmKey, string(alg))
			continue
		}
		if err := training.SaveArtifacts(cfg.Paths.ModelsDir, result, prep.State()); err != nil {
			return err
		}
		trained++
	}

	if trained == 0 {
		return errors.Newf("no model could be trained from %s", path)
	}
	return nil
}

// detectTarget returns the first candidate column present in the frame.
func detectTarget(frame *dataset.Frame, candidates []string) (string, error) {
	for _, name := range candidates {
		if frame.HasColumn(name) {
			return name, nil
		}
	}
	return "", errors.NewSchemaError("target", "",
		"no target column found among the configured candidates")
}

// preprocessorFromConfig builds a preprocessor matching the config's
// preprocessing section.
func preprocessorFromConfig(cfg config.Config, logger log.Logger) *preprocessing.Preprocessor {
	return preprocessing.New(
		preprocessing.WithMissingStrategy(cfg.Preprocessing.MissingStrategy),
		preprocessing.WithOutlierMethod(cfg.Preprocessing.OutlierMethod),
		preprocessing.WithIQRFactor(cfg.Preprocessing.OutlierIQRFactor),
		preprocessing.WithZScoreThreshold(cfg.Preprocessing.OutlierZScoreThreshold),
		preprocessing.WithScalingMethod(cfg.Preprocessing.ScalingMethod),
		preprocessing.WithEncodingMethod(cfg.Preprocessing.EncodingMethod),
		preprocessing.WithEngineeredFeatures(cfg.Preprocessing.EngineerFeatures),
		preprocessing.WithLogger(logger),
	)
}
