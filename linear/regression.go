// Package linear は最小二乗法とロジスティック回帰による線形モデルを提供する
package linear

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/core/model"
	"github.com/stylemetric/sizefit/metrics"
	"github.com/stylemetric/sizefit/pkg/errors"
)

func init() {
	gob.Register(&Regression{})
}

// Regression は最小二乗法による線形回帰モデル
//
// QR分解を用いて正規方程式を解く。特徴量行列が特異に近い場合は
// ErrSingularMatrixを返す。
type Regression struct {
	model.BaseEstimator

	// Coef は学習された重み（係数）
	Coef []float64

	// InterceptVal は学習された切片
	InterceptVal float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewRegression は新しい線形回帰モデルを作成する
func NewRegression() *Regression {
	return &Regression{}
}

// Fit はモデルを訓練データで学習させる
//
// パラメータ:
//   - X: 訓練データ (n_samples × n_features)
//   - y: 目的変数 (n_samples × 1)
func (r *Regression) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, _ := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Regression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("Regression.Fit", rows, yRows, 0)
	}

	// 切片項のために1列を追加した拡張行列を作る
	augmented := mat.NewDense(rows, cols+1, nil)
	for i := 0; i < rows; i++ {
		augmented.Set(i, 0, 1)
		for j := 0; j < cols; j++ {
			augmented.Set(i, j+1, X.At(i, j))
		}
	}

	yDense := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		yDense.Set(i, 0, y.At(i, 0))
	}

	var qr mat.QR
	qr.Factorize(augmented)

	var solution mat.Dense
	if err := qr.SolveTo(&solution, false, yDense); err != nil {
		return errors.NewModelError("Regression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	r.InterceptVal = solution.At(0, 0)
	r.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		r.Coef[j] = solution.At(j+1, 0)
	}
	r.NFeatures = cols

	r.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (r *Regression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regression", "Predict")
	}

	rows, cols := X.Dims()
	if cols != r.NFeatures {
		return nil, errors.NewDimensionError("Regression.Predict", r.NFeatures, cols, 1)
	}

	result := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := r.InterceptVal
		for j := 0; j < cols; j++ {
			sum += X.At(i, j) * r.Coef[j]
		}
		result.Set(i, 0, sum)
	}
	return result, nil
}

// Score はモデルの決定係数（R²）を計算する
func (r *Regression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
		yPred.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(yTrue, yPred)
}

// Weights は学習された重み（係数）を返す
func (r *Regression) Weights() []float64 {
	return append([]float64(nil), r.Coef...)
}

// Intercept は学習された切片を返す
func (r *Regression) Intercept() float64 {
	return r.InterceptVal
}

// GetParams はモデルのハイパーパラメータを返す
func (r *Regression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": true,
	}
}
