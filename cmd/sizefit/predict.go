package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/dataset"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/pkg/log"
	"github.com/stylemetric/sizefit/training"
)

var predictCmd = &cobra.Command{
	Use:   "predict --model NAME --input file.csv [flags]",
	Short: "Predict sizes with a saved model bundle",
	Long: `Predict loads a model bundle, applies the fitted preprocessing to the
input rows and writes one prediction per row. Classification bundles decode
predictions back to their original labels and include class probabilities
where the model supports them.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().String("model", "", "bundle name, e.g. ensemble_trees_classification")
	predictCmd.Flags().String("models-dir", "", "directory holding model bundles (default from config)")
	predictCmd.Flags().String("input", "", "CSV file with the rows to predict")
	predictCmd.Flags().String("output", "", "write results JSON to this file instead of stdout")
	_ = predictCmd.MarkFlagRequired("model")
	_ = predictCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCmd)
}

// prediction is one output row. Predictions stay aligned with input rows:
// row i of the input produces entry i.
type prediction struct {
	Row           int                `json:"row"`
	Value         float64            `json:"value"`
	Label         string             `json:"label,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.NewLogger(cfg.LogLevel)

	name, _ := cmd.Flags().GetString("model")
	dir, _ := cmd.Flags().GetString("models-dir")
	if dir == "" {
		dir = cfg.Paths.ModelsDir
	}

	bundle, err := training.LoadArtifacts(dir, name, cfg)
	if err != nil {
		return err
	}

	inputPath, _ := cmd.Flags().GetString("input")
	frame, err := dataset.ReadCSV(inputPath)
	if err != nil {
		return err
	}
	logger.Info("input loaded", "path", inputPath, log.RowsKey, frame.NumRows())

	X, err := bundle.Preprocessor.Transform(frame)
	if err != nil {
		return err
	}
	pred, err := bundle.Estimator.Predict(X)
	if err != nil {
		return err
	}

	rows, _ := pred.Dims()
	results := make([]prediction, rows)
	for i := 0; i < rows; i++ {
		results[i] = prediction{Row: i, Value: pred.At(i, 0)}
	}

	if classes := bundle.Preprocessor.TargetClasses(); len(classes) > 0 {
		codes := make([]float64, rows)
		for i := 0; i < rows; i++ {
			codes[i] = pred.At(i, 0)
		}
		labels, err := bundle.Preprocessor.DecodeTarget(codes)
		if err != nil {
			return err
		}
		for i := range results {
			results[i].Label = labels[i]
		}

		if clf, ok := bundle.Estimator.(probabilityEstimator); ok {
			if err := attachProbabilities(results, clf, X, bundle.Preprocessor.TargetClasses()); err != nil {
				return err
			}
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "sizefit: encode predictions")
	}
	data = append(data, '\n')

	if outputPath, _ := cmd.Flags().GetString("output"); outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0o600); err != nil {
			return errors.Wrap(err, "sizefit: write predictions")
		}
		logger.Info("predictions written", "path", outputPath, log.RowsKey, rows)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// probabilityEstimator is the subset of classifiers that report class
// probabilities.
type probabilityEstimator interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	Classes() []float64
}

// attachProbabilities fills each result's probability map, keyed by decoded
// class label.
func attachProbabilities(results []prediction, clf probabilityEstimator,
	X mat.Matrix, classNames []string) error {

	proba, err := clf.PredictProba(X)
	if err != nil {
		return err
	}
	rows, cols := proba.Dims()
	if cols > len(classNames) {
		return errors.Newf("probability columns (%d) exceed known classes (%d)", cols, len(classNames))
	}
	for i := 0; i < rows; i++ {
		m := make(map[string]float64, cols)
		for j := 0; j < cols; j++ {
			m[classNames[j]] = proba.At(i, j)
		}
		results[i].Probabilities = m
	}
	return nil
}
