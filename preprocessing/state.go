package preprocessing

import (
	"encoding/gob"

	"github.com/stylemetric/sizefit/core/model"
)

func init() {
	gob.Register(&FittedState{})
}

// FittedState holds everything learned during FitTransform. It is immutable
// after fitting: Transform reads it and never writes, so a fitted state can
// be shared across goroutines and persisted next to the model it belongs to.
type FittedState struct {
	// TargetColumn is the name of the label column.
	TargetColumn string

	// Classification is true when the target was categorical and label
	// encoded; false for numeric regression targets.
	Classification bool

	// Pipeline settings the state was fitted with.
	MissingStrategy        string
	OutlierMethod          string
	OutlierIQRFactor       float64
	OutlierZScoreThreshold float64
	ScalingMethod          string
	EncodingMethod         string
	EngineerFeatures       bool

	// NumericColumns and CategoricalColumns list the original feature
	// columns by role, in frame order.
	NumericColumns     []string
	CategoricalColumns []string

	// Medians and Modes are the imputation values per column.
	Medians map[string]float64
	Modes   map[string]string

	// Encoders holds the fitted label encoder per categorical column.
	Encoders map[string]*LabelEncoder

	// TargetEncoder is set for classification targets, nil otherwise.
	TargetEncoder *LabelEncoder

	// Scaler parameters aligned with NumericColumns. For "standard" scaling
	// ScalerCenter is the mean and ScalerScale the standard deviation; for
	// "minmax" ScalerCenter is the data minimum and ScalerScale the range.
	ScalerCenter []float64
	ScalerScale  []float64

	// EngineeredColumns lists derived feature columns in output order.
	EngineeredColumns []string

	// FeatureNames is the final feature order of the output matrix.
	FeatureNames []string
}

// SaveState persists a fitted state as gob.
func SaveState(state *FittedState, filename string) error {
	return model.SaveModel(state, filename)
}

// LoadState restores a fitted state saved by SaveState.
func LoadState(filename string) (*FittedState, error) {
	state := &FittedState{}
	if err := model.LoadModel(state, filename); err != nil {
		return nil, err
	}
	return state, nil
}
