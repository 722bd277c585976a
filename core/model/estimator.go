package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコア計算可能なモデルのインターフェース
type Scorer interface {
	// Score は分類では正解率、回帰では決定係数（R²）を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator は学習と予測を備えた教師ありモデルのインターフェース
type Estimator interface {
	Fitter
	Predictor
	Scorer
	// IsFitted はモデルが学習済みかどうかを返す
	IsFitted() bool
}

// Classifier は分類モデルのインターフェース
type Classifier interface {
	Estimator

	// PredictProba returns probability estimates for each class,
	// one column per class in the order of Classes.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted unique class labels seen during fitting.
	Classes() []float64
}

// Regressor は回帰モデルのインターフェース
type Regressor interface {
	Estimator
}

// FeatureImportancer is implemented by models that expose per-feature
// importance scores, aligned with the training feature order.
type FeatureImportancer interface {
	FeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their
// hyperparameters for logging and summary output.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
