package model

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全ての推定器の基底となる構造体
//
// 各モデルはこの構造体を埋め込み、Fit成功時にSetFittedを呼ぶ。
// Predict/Transformの先頭でIsFittedを確認し、未学習であれば
// NotFittedErrorを返すのが規約。
//
// Stateは公開フィールドとしてgobで永続化される。GobEncode等の
// メソッドで実装すると埋め込み先にプロモートされ、モデル全体が
// フラグ1バイトに化けてしまうため、フィールド公開で対応する。
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
