// Package sizefit is a tabular machine-learning pipeline for product sizing.
//
// It turns raw measurement datasets (CSV rows with numeric measurements and
// categorical attributes) into trained sizing models: the preprocessing
// package cleans, encodes and scales a dataset into a feature matrix, the
// model packages (ensemble, svm, linear, neural) fit estimators on it, and
// the training package orchestrates splitting, tuning, cross-validation and
// artifact persistence.
//
// # Quick Start
//
// Train a size classifier from a tabular frame:
//
//	frame, _ := dataset.ReadCSV("measurements.csv")
//
//	prep := preprocessing.New()
//	X, y, err := prep.FitTransform(frame, "size")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	trainer := training.NewTrainer(config.Default())
//	result, err := trainer.Train(X, y, training.TrainOptions{
//	    Algorithm: training.EnsembleTrees,
//	    TaskType:  training.Classification,
//	    Classes:   prep.TargetClasses(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Metrics.Scores["accuracy"])
//
// Saved bundles restore for pure inference:
//
//	bundle, _ := training.LoadArtifacts("models", "ensemble_trees_classification", cfg)
//	Xnew, _ := bundle.Preprocessor.Transform(newFrame)
//	pred, _ := bundle.Estimator.Predict(Xnew)
//
// # Packages
//
//   - config: typed configuration with YAML overlay
//   - dataset: ordered named-column frame and CSV loading
//   - preprocessing: imputation, outlier removal, encoding, scaling and
//     engineered features with a serializable fitted state
//   - metrics: classification and regression evaluation
//   - ensemble, svm, linear, neural: the model families
//   - training: registry, orchestrator, grid search, k-fold CV, persistence
//   - cmd/sizefit: the train/predict command line
package sizefit
