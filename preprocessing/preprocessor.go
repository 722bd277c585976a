// Package preprocessing implements the tabular cleaning and feature pipeline:
// missing-value handling, outlier removal, categorical encoding, scaling and
// derived measurement features.
//
// Fitting and applying are strictly separated. FitTransform learns a
// FittedState from training data and may drop rows; Transform is a pure
// function of the state that never drops rows, so predictions stay aligned
// one-to-one with the input.
package preprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/dataset"
	"github.com/stylemetric/sizefit/pkg/errors"
	"github.com/stylemetric/sizefit/pkg/log"
)

// Derived feature names. The ratio needs the chest_cm and waist_cm columns,
// BMI needs height_cm and weight_kg; each is only created when its inputs
// exist.
const (
	ChestWaistRatioColumn = "chest_waist_ratio"
	BMIColumn             = "bmi"
)

// Preprocessor drives the cleaning pipeline. Configure it with options, call
// FitTransform once on training data, then Transform for inference.
type Preprocessor struct {
	missingStrategy  string
	outlierMethod    string
	iqrFactor        float64
	zscoreThreshold  float64
	scalingMethod    string
	encodingMethod   string
	engineerFeatures bool
	logger           log.Logger

	state *FittedState
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithMissingStrategy selects "auto", "drop" or "interpolate".
func WithMissingStrategy(s string) Option {
	return func(p *Preprocessor) { p.missingStrategy = s }
}

// WithOutlierMethod selects "iqr", "zscore" or "none".
func WithOutlierMethod(s string) Option {
	return func(p *Preprocessor) { p.outlierMethod = s }
}

// WithIQRFactor sets the fence multiplier for the "iqr" outlier method.
func WithIQRFactor(factor float64) Option {
	return func(p *Preprocessor) { p.iqrFactor = factor }
}

// WithZScoreThreshold sets the cutoff, in standard deviations, for the
// "zscore" outlier method.
func WithZScoreThreshold(threshold float64) Option {
	return func(p *Preprocessor) { p.zscoreThreshold = threshold }
}

// WithScalingMethod selects "standard", "minmax" or "none".
func WithScalingMethod(s string) Option {
	return func(p *Preprocessor) { p.scalingMethod = s }
}

// WithEncodingMethod selects "label" or "onehot".
func WithEncodingMethod(s string) Option {
	return func(p *Preprocessor) { p.encodingMethod = s }
}

// WithEngineeredFeatures toggles the derived ratio and BMI columns.
func WithEngineeredFeatures(enabled bool) Option {
	return func(p *Preprocessor) { p.engineerFeatures = enabled }
}

// WithLogger injects the structured logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(p *Preprocessor) { p.logger = logger }
}

// New creates a Preprocessor with the default pipeline: auto imputation, IQR
// outlier fences, standard scaling, label encoding and engineered features.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		missingStrategy:  "auto",
		outlierMethod:    "iqr",
		iqrFactor:        DefaultIQRFactor,
		zscoreThreshold:  DefaultZScoreThreshold,
		scalingMethod:    "standard",
		encodingMethod:   "label",
		engineerFeatures: true,
		logger:           log.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromState creates a Preprocessor around an already fitted state, as loaded
// from disk for inference.
func FromState(state *FittedState, opts ...Option) *Preprocessor {
	p := New(opts...)
	p.missingStrategy = state.MissingStrategy
	p.outlierMethod = state.OutlierMethod
	if state.OutlierIQRFactor > 0 {
		p.iqrFactor = state.OutlierIQRFactor
	}
	if state.OutlierZScoreThreshold > 0 {
		p.zscoreThreshold = state.OutlierZScoreThreshold
	}
	p.scalingMethod = state.ScalingMethod
	p.encodingMethod = state.EncodingMethod
	p.engineerFeatures = state.EngineerFeatures
	p.state = state
	return p
}

// State returns the fitted state, or nil before fitting.
func (p *Preprocessor) State() *FittedState {
	return p.state
}

// FeatureNames returns the output feature order, or nil before fitting.
func (p *Preprocessor) FeatureNames() []string {
	if p.state == nil {
		return nil
	}
	return append([]string(nil), p.state.FeatureNames...)
}

// TargetClasses returns the original class labels for classification targets,
// in code order. Nil for regression.
func (p *Preprocessor) TargetClasses() []string {
	if p.state == nil || p.state.TargetEncoder == nil {
		return nil
	}
	return p.state.TargetEncoder.Classes()
}

// DecodeTarget maps predicted class codes back to the original labels.
func (p *Preprocessor) DecodeTarget(codes []float64) ([]string, error) {
	if p.state == nil || p.state.TargetEncoder == nil {
		return nil, errors.NewNotFittedError("Preprocessor", "DecodeTarget")
	}
	return p.state.TargetEncoder.InverseTransform(codes)
}

// validateOptions rejects unknown strategy names before any work happens.
func (p *Preprocessor) validateOptions() error {
	switch p.missingStrategy {
	case "auto", "drop", "interpolate":
	default:
		return errors.NewConfigurationError("preprocessing.missing_strategy",
			p.missingStrategy, `must be one of "auto", "drop", "interpolate"`)
	}
	switch p.outlierMethod {
	case "iqr", "zscore", "none":
	default:
		return errors.NewConfigurationError("preprocessing.outlier_method",
			p.outlierMethod, `must be one of "iqr", "zscore", "none"`)
	}
	if p.iqrFactor <= 0 {
		return errors.NewConfigurationError("preprocessing.outlier_iqr_factor",
			p.iqrFactor, "must be positive")
	}
	if p.zscoreThreshold <= 0 {
		return errors.NewConfigurationError("preprocessing.outlier_zscore_threshold",
			p.zscoreThreshold, "must be positive")
	}
	switch p.scalingMethod {
	case "standard", "minmax", "none":
	default:
		return errors.NewConfigurationError("preprocessing.scaling_method",
			p.scalingMethod, `must be one of "standard", "minmax", "none"`)
	}
	switch p.encodingMethod {
	case "label", "onehot":
	default:
		return errors.NewConfigurationError("preprocessing.encoding_method",
			p.encodingMethod, `must be "label" or "onehot"`)
	}
	return nil
}

// FitTransform runs the full training pipeline on frame and returns the
// feature matrix and target vector. Row-dropping steps filter every column of
// the frame in lockstep, so X and y stay aligned. An empty target fits the
// pipeline unsupervised: every column becomes a feature and the returned
// target vector is nil.
//
// The step order is fixed: target cleanup, imputation, outlier removal,
// encoding, scaling, feature engineering. Outlier fences are computed per
// column on the rows that survived the previous columns, so column order is
// significant.
func (p *Preprocessor) FitTransform(frame *dataset.Frame, target string) (*mat.Dense, *mat.VecDense, error) {
	if err := p.validateOptions(); err != nil {
		return nil, nil, err
	}
	if frame.NumRows() == 0 {
		return nil, nil, errors.WithStack(errors.ErrEmptyData)
	}
	if target != "" && !frame.HasColumn(target) {
		return nil, nil, errors.NewSchemaError(target, "", "target column not found")
	}

	logger := p.logger.With(log.ComponentKey, "preprocessing")
	work := frame.Clone()

	if target != "" {
		logger = logger.With(log.TargetKey, target)

		// Rows without a label are unusable for supervised training.
		var dropped int
		var err error
		work, dropped, err = dropMissingTargetRows(work, target)
		if err != nil {
			return nil, nil, err
		}
		if dropped > 0 {
			logger.Info("dropped rows with missing target", log.DroppedRowsKey, dropped)
		}
		if work.NumRows() == 0 {
			return nil, nil, errors.NewDataQualityError("Preprocessor.FitTransform",
				"no rows remain after removing rows with missing target", 0, work.NumCols())
		}
	}

	state := &FittedState{
		TargetColumn:           target,
		MissingStrategy:        p.missingStrategy,
		OutlierMethod:          p.outlierMethod,
		OutlierIQRFactor:       p.iqrFactor,
		OutlierZScoreThreshold: p.zscoreThreshold,
		ScalingMethod:          p.scalingMethod,
		EncodingMethod:         p.encodingMethod,
		EngineerFeatures:       p.engineerFeatures,
		Medians:                make(map[string]float64),
		Modes:                  make(map[string]string),
		Encoders:               make(map[string]*LabelEncoder),
	}

	// Columns keep their frame order within each role.
	for _, name := range work.Names() {
		if name == target {
			continue
		}
		role, err := work.ColRole(name)
		if err != nil {
			return nil, nil, err
		}
		if role == dataset.RoleNumeric {
			state.NumericColumns = append(state.NumericColumns, name)
		} else {
			state.CategoricalColumns = append(state.CategoricalColumns, name)
		}
	}
	if len(state.NumericColumns)+len(state.CategoricalColumns) == 0 {
		return nil, nil, errors.NewDataQualityError("Preprocessor.FitTransform",
			"dataset has no feature columns", work.NumRows(), work.NumCols())
	}

	work, err := p.fitMissing(work, state, logger)
	if err != nil {
		return nil, nil, err
	}
	work, err = p.fitOutliers(work, state, logger)
	if err != nil {
		return nil, nil, err
	}
	if work.NumRows() == 0 {
		return nil, nil, errors.NewDataQualityError("Preprocessor.FitTransform",
			"no rows remain after cleaning", 0, work.NumCols())
	}

	if err := p.fitEncoders(work, state); err != nil {
		return nil, nil, err
	}
	columns, err := p.buildEncodedColumns(work, state)
	if err != nil {
		return nil, nil, err
	}
	if err := p.fitAndApplyScaler(columns, state); err != nil {
		return nil, nil, err
	}
	p.engineerDerived(columns, state, work.NumRows())
	p.assembleFeatureNames(state)

	var y *mat.VecDense
	if target != "" {
		if y, err = p.fitTarget(work, state); err != nil {
			return nil, nil, err
		}
	}

	X := assembleMatrix(columns, state.FeatureNames, work.NumRows())
	p.state = state

	logger.Info("fit_transform completed",
		log.OperationKey, log.OperationFitTransform,
		log.RowsKey, work.NumRows(),
		log.FeaturesKey, len(state.FeatureNames))
	return X, y, nil
}

// Transform applies the fitted pipeline to new data. It is pure: no row is
// ever dropped and the state is not modified, so output row i corresponds to
// input row i.
func (p *Preprocessor) Transform(frame *dataset.Frame) (*mat.Dense, error) {
	if p.state == nil {
		return nil, errors.NewNotFittedError("Preprocessor", "Transform")
	}
	state := p.state
	rows := frame.NumRows()
	if rows == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}

	columns := make(map[string][]float64)

	for _, name := range state.NumericColumns {
		if !frame.HasColumn(name) {
			return nil, errors.NewSchemaError(name, "", "column required by fitted pipeline is missing")
		}
		values, missing, err := frame.ColFloat64(name)
		if err != nil {
			return nil, err
		}
		median := state.Medians[name]
		for i := range values {
			if missing[i] {
				values[i] = median
			}
		}
		columns[name] = values
	}

	for _, name := range state.CategoricalColumns {
		if !frame.HasColumn(name) {
			return nil, errors.NewSchemaError(name, "", "column required by fitted pipeline is missing")
		}
		raw, err := frame.Col(name)
		if err != nil {
			return nil, err
		}
		filled := make([]string, len(raw))
		mode := state.Modes[name]
		for i, v := range raw {
			if dataset.IsMissing(v) {
				filled[i] = mode
			} else {
				filled[i] = v
			}
		}

		encoder := state.Encoders[name]
		if state.EncodingMethod == "onehot" {
			indicator, err := encoder.OneHotEncode(filled)
			if err != nil {
				return nil, err
			}
			for j, category := range encoder.Classes() {
				columns[oneHotName(name, category)] = indicator[j]
			}
		} else {
			codes, err := encoder.Transform(name, filled)
			if err != nil {
				return nil, err
			}
			columns[name] = codes
		}
	}

	applyScaler(columns, state)
	p.engineerDerived(columns, state, rows)

	return assembleMatrix(columns, state.FeatureNames, rows), nil
}

// ColumnReport describes one column in an analysis report.
type ColumnReport struct {
	Name       string
	Role       dataset.Role
	Missing    int
	MissingPct float64
	Unique     int
}

// AnalysisReport summarizes a raw dataset before preprocessing.
type AnalysisReport struct {
	Rows            int
	Cols            int
	Columns         []ColumnReport
	Recommendations []string
}

// Analyze inspects a raw frame and reports per-column roles, missing counts
// and cardinality, together with textual cleanup recommendations. It does
// not require fitting.
func (p *Preprocessor) Analyze(frame *dataset.Frame) (*AnalysisReport, error) {
	report := &AnalysisReport{
		Rows: frame.NumRows(),
		Cols: frame.NumCols(),
	}
	for _, name := range frame.Names() {
		role, err := frame.ColRole(name)
		if err != nil {
			return nil, err
		}
		missing, err := frame.MissingCount(name)
		if err != nil {
			return nil, err
		}
		unique, err := frame.UniqueValues(name)
		if err != nil {
			return nil, err
		}
		var pct float64
		if report.Rows > 0 {
			pct = float64(missing) / float64(report.Rows) * 100
		}
		report.Columns = append(report.Columns, ColumnReport{
			Name:       name,
			Role:       role,
			Missing:    missing,
			MissingPct: pct,
			Unique:     len(unique),
		})

		switch {
		case pct > 50:
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("column %q is %.0f%% missing; consider dropping it", name, pct))
		case missing > 0:
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("column %q has %d missing values; imputation will apply", name, missing))
		}
		if role == dataset.RoleCategorical && len(unique) > 20 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("column %q has %d categories; encoding will add many dimensions", name, len(unique)))
		}
	}
	return report, nil
}

// dropMissingTargetRows removes rows whose target cell is missing.
func dropMissingTargetRows(frame *dataset.Frame, target string) (*dataset.Frame, int, error) {
	col, err := frame.Col(target)
	if err != nil {
		return nil, 0, err
	}
	keep := make([]bool, len(col))
	dropped := 0
	for i, v := range col {
		keep[i] = !dataset.IsMissing(v)
		if !keep[i] {
			dropped++
		}
	}
	if dropped == 0 {
		return frame, 0, nil
	}
	filtered, err := frame.SelectRows(keep)
	if err != nil {
		return nil, 0, err
	}
	return filtered, dropped, nil
}

// fitMissing learns imputation values and applies the configured strategy.
// Medians and modes are recorded under every strategy so that Transform can
// impute at inference time, where dropping rows is not an option.
func (p *Preprocessor) fitMissing(frame *dataset.Frame, state *FittedState, logger log.Logger) (*dataset.Frame, error) {
	for _, name := range state.NumericColumns {
		values, missing, err := frame.ColFloat64(name)
		if err != nil {
			return nil, err
		}
		state.Medians[name] = medianOf(values, missing)
	}
	for _, name := range state.CategoricalColumns {
		col, err := frame.Col(name)
		if err != nil {
			return nil, err
		}
		state.Modes[name] = modeOf(col)
	}

	switch p.missingStrategy {
	case "drop":
		keep := make([]bool, frame.NumRows())
		for i := range keep {
			keep[i] = true
		}
		dropped := 0
		for _, name := range append(append([]string(nil), state.NumericColumns...), state.CategoricalColumns...) {
			col, err := frame.Col(name)
			if err != nil {
				return nil, err
			}
			for i, v := range col {
				if keep[i] && dataset.IsMissing(v) {
					keep[i] = false
					dropped++
				}
			}
		}
		if dropped > 0 {
			logger.Info("dropped rows with missing values",
				log.StepKey, log.StepImpute, log.DroppedRowsKey, dropped)
		}
		return frame.SelectRows(keep)

	case "interpolate":
		for _, name := range state.NumericColumns {
			values, missing, err := frame.ColFloat64(name)
			if err != nil {
				return nil, err
			}
			interpolate(values, missing, state.Medians[name])
			if err := frame.SetCol(name, formatFloats(values)); err != nil {
				return nil, err
			}
		}
		return imputeCategoricalModes(frame, state)

	default: // "auto"
		for _, name := range state.NumericColumns {
			values, missing, err := frame.ColFloat64(name)
			if err != nil {
				return nil, err
			}
			median := state.Medians[name]
			for i := range values {
				if missing[i] {
					values[i] = median
				}
			}
			if err := frame.SetCol(name, formatFloats(values)); err != nil {
				return nil, err
			}
		}
		return imputeCategoricalModes(frame, state)
	}
}

func imputeCategoricalModes(frame *dataset.Frame, state *FittedState) (*dataset.Frame, error) {
	for _, name := range state.CategoricalColumns {
		col, err := frame.Col(name)
		if err != nil {
			return nil, err
		}
		mode := state.Modes[name]
		filled := make([]string, len(col))
		for i, v := range col {
			if dataset.IsMissing(v) {
				filled[i] = mode
			} else {
				filled[i] = v
			}
		}
		if err := frame.SetCol(name, filled); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// fitOutliers removes outlier rows column by column. Each column's fences are
// computed on the rows left over from the previous columns, so the result
// depends on column order; the order is the frame's column order, which is
// stable for a given dataset.
func (p *Preprocessor) fitOutliers(frame *dataset.Frame, state *FittedState, logger log.Logger) (*dataset.Frame, error) {
	if p.outlierMethod == "none" {
		return frame, nil
	}

	for _, name := range state.NumericColumns {
		if frame.NumRows() == 0 {
			break
		}
		values, _, err := frame.ColFloat64(name)
		if err != nil {
			return nil, err
		}

		var keep []bool
		if p.outlierMethod == "zscore" {
			keep = ZScoreKeepMask(values, p.zscoreThreshold)
		} else {
			keep = IQRKeepMask(values, p.iqrFactor)
		}

		dropped := 0
		for _, k := range keep {
			if !k {
				dropped++
			}
		}
		if dropped == 0 {
			continue
		}
		logger.Debug("dropped outlier rows",
			log.StepKey, log.StepOutliers, log.ColumnKey, name, log.DroppedRowsKey, dropped)

		frame, err = frame.SelectRows(keep)
		if err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func (p *Preprocessor) fitEncoders(frame *dataset.Frame, state *FittedState) error {
	for _, name := range state.CategoricalColumns {
		col, err := frame.Col(name)
		if err != nil {
			return err
		}
		encoder := NewLabelEncoder()
		if err := encoder.Fit(col); err != nil {
			return errors.Wrapf(err, "sizefit: failed to fit encoder for column %s", name)
		}
		state.Encoders[name] = encoder
	}
	return nil
}

// buildEncodedColumns converts the cleaned frame into named float columns:
// numeric columns parse directly, categorical columns go through the fitted
// encoders.
func (p *Preprocessor) buildEncodedColumns(frame *dataset.Frame, state *FittedState) (map[string][]float64, error) {
	columns := make(map[string][]float64)

	for _, name := range state.NumericColumns {
		values, _, err := frame.ColFloat64(name)
		if err != nil {
			return nil, err
		}
		columns[name] = values
	}

	for _, name := range state.CategoricalColumns {
		col, err := frame.Col(name)
		if err != nil {
			return nil, err
		}
		encoder := state.Encoders[name]
		if state.EncodingMethod == "onehot" {
			indicator, err := encoder.OneHotEncode(col)
			if err != nil {
				return nil, err
			}
			for j, category := range encoder.Classes() {
				columns[oneHotName(name, category)] = indicator[j]
			}
		} else {
			codes, err := encoder.Transform(name, col)
			if err != nil {
				return nil, err
			}
			columns[name] = codes
		}
	}
	return columns, nil
}

// fitAndApplyScaler fits the configured scaler on the numeric columns and
// rewrites them in place. Encoded categorical columns are not scaled.
func (p *Preprocessor) fitAndApplyScaler(columns map[string][]float64, state *FittedState) error {
	if p.scalingMethod == "none" || len(state.NumericColumns) == 0 {
		return nil
	}

	rows := len(columns[state.NumericColumns[0]])
	X := mat.NewDense(rows, len(state.NumericColumns), nil)
	for j, name := range state.NumericColumns {
		for i, v := range columns[name] {
			X.Set(i, j, v)
		}
	}

	var scaled mat.Matrix
	switch p.scalingMethod {
	case "minmax":
		scaler := NewMinMaxScaler()
		result, err := scaler.FitTransform(X)
		if err != nil {
			return err
		}
		state.ScalerCenter = scaler.DataMin
		state.ScalerScale = scaler.Scale
		scaled = result
	default: // "standard"
		scaler := NewStandardScaler()
		result, err := scaler.FitTransform(X)
		if err != nil {
			return err
		}
		state.ScalerCenter = scaler.Mean
		state.ScalerScale = scaler.Scale
		scaled = result
	}

	for j, name := range state.NumericColumns {
		col := columns[name]
		for i := range col {
			col[i] = scaled.At(i, j)
		}
	}
	return nil
}

// applyScaler applies the stored scaler parameters at inference time. For
// both methods the transform is (v - center) / scale.
func applyScaler(columns map[string][]float64, state *FittedState) {
	if state.ScalingMethod == "none" || len(state.ScalerCenter) == 0 {
		return
	}
	for j, name := range state.NumericColumns {
		col := columns[name]
		for i := range col {
			col[i] = (col[i] - state.ScalerCenter[j]) / state.ScalerScale[j]
		}
	}
}

// engineerDerived appends the chest/waist ratio and BMI columns when their
// inputs exist. The inputs are the scaled values at this point in the
// pipeline; non-finite results collapse to zero.
func (p *Preprocessor) engineerDerived(columns map[string][]float64, state *FittedState, rows int) {
	if !state.EngineerFeatures {
		return
	}

	if state.EngineeredColumns == nil {
		if _, ok := columns["chest_cm"]; ok {
			if _, ok := columns["waist_cm"]; ok {
				state.EngineeredColumns = append(state.EngineeredColumns, ChestWaistRatioColumn)
			}
		}
		if _, ok := columns["height_cm"]; ok {
			if _, ok := columns["weight_kg"]; ok {
				state.EngineeredColumns = append(state.EngineeredColumns, BMIColumn)
			}
		}
	}

	for _, name := range state.EngineeredColumns {
		derived := make([]float64, rows)
		switch name {
		case ChestWaistRatioColumn:
			chest, waist := columns["chest_cm"], columns["waist_cm"]
			for i := 0; i < rows; i++ {
				derived[i] = finiteOrZero(chest[i] / waist[i])
			}
		case BMIColumn:
			height, weight := columns["height_cm"], columns["weight_kg"]
			for i := 0; i < rows; i++ {
				h := height[i] / 100
				derived[i] = finiteOrZero(weight[i] / (h * h))
			}
		}
		columns[name] = derived
	}
}

// assembleFeatureNames fixes the output column order: numeric columns in
// frame order, then categorical columns in frame order (one-hot expands each
// into its indicator block), then the engineered columns.
func (p *Preprocessor) assembleFeatureNames(state *FittedState) {
	names := make([]string, 0, len(state.NumericColumns)+len(state.CategoricalColumns))
	names = append(names, state.NumericColumns...)

	for _, name := range state.CategoricalColumns {
		if state.EncodingMethod == "onehot" {
			for _, category := range state.Encoders[name].Classes() {
				names = append(names, oneHotName(name, category))
			}
			continue
		}
		names = append(names, name)
	}

	names = append(names, state.EngineeredColumns...)
	state.FeatureNames = names
}

func (p *Preprocessor) fitTarget(frame *dataset.Frame, state *FittedState) (*mat.VecDense, error) {
	role, err := frame.ColRole(state.TargetColumn)
	if err != nil {
		return nil, err
	}

	if role == dataset.RoleNumeric {
		values, _, err := frame.ColFloat64(state.TargetColumn)
		if err != nil {
			return nil, err
		}
		return mat.NewVecDense(len(values), values), nil
	}

	col, err := frame.Col(state.TargetColumn)
	if err != nil {
		return nil, err
	}
	encoder := NewLabelEncoder()
	if err := encoder.Fit(col); err != nil {
		return nil, err
	}
	codes, err := encoder.Transform(state.TargetColumn, col)
	if err != nil {
		return nil, err
	}
	state.TargetEncoder = encoder
	state.Classification = true
	return mat.NewVecDense(len(codes), codes), nil
}

func assembleMatrix(columns map[string][]float64, featureNames []string, rows int) *mat.Dense {
	X := mat.NewDense(rows, len(featureNames), nil)
	for j, name := range featureNames {
		col := columns[name]
		for i := 0; i < rows; i++ {
			X.Set(i, j, col[i])
		}
	}
	return X
}

func oneHotName(column, category string) string {
	return fmt.Sprintf("%s_%s", column, category)
}

// medianOf returns the median of the non-missing values, or 0 when every
// value is missing.
func medianOf(values []float64, missing []bool) float64 {
	present := make([]float64, 0, len(values))
	for i, v := range values {
		if !missing[i] {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	sort.Float64s(present)
	mid := len(present) / 2
	if len(present)%2 == 1 {
		return present[mid]
	}
	return (present[mid-1] + present[mid]) / 2
}

// modeOf returns the most frequent non-missing value; ties break toward the
// lexicographically smallest value so imputation is deterministic.
func modeOf(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if !dataset.IsMissing(v) {
			counts[v]++
		}
	}
	best := ""
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && (best == "" || v < best)) {
			best = v
			bestCount = c
		}
	}
	return best
}

// interpolate fills missing cells linearly between the nearest present
// neighbors. Cells before the first or after the last present value fall
// back to the column median.
func interpolate(values []float64, missing []bool, median float64) {
	n := len(values)
	prev := -1
	for i := 0; i < n; i++ {
		if !missing[i] {
			if prev >= 0 && i-prev > 1 {
				step := (values[i] - values[prev]) / float64(i-prev)
				for k := prev + 1; k < i; k++ {
					values[k] = values[prev] + step*float64(k-prev)
				}
			}
			prev = i
		}
	}

	// Leading and trailing gaps have only one neighbor; use the median.
	first, last := -1, -1
	for i := 0; i < n; i++ {
		if !missing[i] {
			first = i
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if !missing[i] {
			last = i
			break
		}
	}
	if first == -1 {
		for i := range values {
			values[i] = median
		}
		return
	}
	for i := 0; i < first; i++ {
		values[i] = median
	}
	for i := last + 1; i < n; i++ {
		values[i] = median
	}
}

func formatFloats(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
