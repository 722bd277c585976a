package preprocessing

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/stylemetric/sizefit/dataset"
	"github.com/stylemetric/sizefit/pkg/errors"
)

func sizingFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style", "size"})
	require.NoError(t, err)
	rows := [][]string{
		{"96.5", "81.0", "casual", "M"},
		{"102.0", "86.5", "formal", "L"},
		{"88.0", "74.5", "casual", "S"},
		{"94.0", "79.0", "sport", "M"},
		{"99.5", "84.0", "formal", "L"},
	}
	for _, row := range rows {
		require.NoError(t, f.AppendRow(row))
	}
	return f
}

func TestFitTransformBasicPipeline(t *testing.T) {
	p := New()
	X, y, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	r, c := X.Dims()
	// A tight cluster of plausible measurements must survive IQR fences.
	assert.Equal(t, 5, r, "no rows may be dropped as outliers")
	// chest_cm, waist_cm, style(label), chest_waist_ratio
	assert.Equal(t, 4, c)
	assert.Equal(t, []string{"chest_cm", "waist_cm", "style", ChestWaistRatioColumn}, p.FeatureNames())

	require.Equal(t, 5, y.Len())
	// Target classes sorted: L=0, M=1, S=2.
	assert.Equal(t, []string{"L", "M", "S"}, p.TargetClasses())
	assert.Equal(t, 1.0, y.AtVec(0))
	assert.Equal(t, 0.0, y.AtVec(1))
	assert.Equal(t, 2.0, y.AtVec(2))
}

func TestStandardScalingCentersColumns(t *testing.T) {
	p := New(WithEngineeredFeatures(false))
	X, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	r, _ := X.Dims()
	for _, j := range []int{0, 1} { // chest_cm, waist_cm
		var mean float64
		for i := 0; i < r; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(r)
		assert.InDelta(t, 0, mean, 1e-9)

		var variance float64
		for i := 0; i < r; i++ {
			variance += (X.At(i, j) - mean) * (X.At(i, j) - mean)
		}
		variance /= float64(r)
		assert.InDelta(t, 1, math.Sqrt(variance), 1e-9)
	}
}

func TestTransformIsPureAndAligned(t *testing.T) {
	p := New()
	_, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"500.0", "30.0", "casual"})) // extreme values
	require.NoError(t, inference.AppendRow([]string{"", "80.0", "formal"}))      // missing chest_cm

	X1, err := p.Transform(inference)
	require.NoError(t, err)
	r, _ := X1.Dims()
	assert.Equal(t, 2, r, "transform must never drop rows")

	// The same input transforms to the same output: no hidden state drift.
	X2, err := p.Transform(inference)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X1, X2, 1e-15))
}

func TestTransformImputesWithFittedMedians(t *testing.T) {
	p := New(WithEngineeredFeatures(false), WithScalingMethod("none"))
	_, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"", "80.0", "casual"}))

	X, err := p.Transform(inference)
	require.NoError(t, err)
	// Median chest_cm of the training data: 96.5.
	assert.InDelta(t, 96.5, X.At(0, 0), 1e-12)
}

func TestTransformRejectsUnseenLabel(t *testing.T) {
	p := New()
	_, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"95.0", "80.0", "vintage"}))

	_, err = p.Transform(inference)
	require.Error(t, err)
	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "style", schemaErr.Column)
}

func TestOneHotUnknownMapsToZeros(t *testing.T) {
	p := New(WithEncodingMethod("onehot"), WithScalingMethod("none"), WithEngineeredFeatures(false))
	_, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	names := p.FeatureNames()
	assert.Contains(t, names, "style_casual")
	assert.Contains(t, names, "style_formal")
	assert.Contains(t, names, "style_sport")

	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"95.0", "80.0", "vintage"}))

	X, err := p.Transform(inference)
	require.NoError(t, err)
	for j, name := range names {
		if name == "style_casual" || name == "style_formal" || name == "style_sport" {
			assert.Equal(t, 0.0, X.At(0, j), "unknown category must encode as zeros")
		}
	}
}

func TestMissingTargetRowsAreDropped(t *testing.T) {
	f := sizingFrame(t)
	require.NoError(t, f.AppendRow([]string{"97.0", "82.0", "casual", ""}))

	p := New()
	X, y, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	r, _ := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 5, y.Len())
}

func TestAutoImputation(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "style", "size"})
	require.NoError(t, err)
	rows := [][]string{
		{"90.0", "casual", "S"},
		{"", "casual", "M"},
		{"100.0", "", "L"},
		{"110.0", "formal", "L"},
	}
	for _, row := range rows {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithOutlierMethod("none"), WithScalingMethod("none"), WithEngineeredFeatures(false))
	X, _, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	// Median of {90, 100, 110} = 100 fills the missing chest_cm.
	assert.InDelta(t, 100.0, X.At(1, 0), 1e-12)
	// Mode "casual" fills the missing style; codes sorted: casual=0.
	assert.Equal(t, 0.0, X.At(2, 1))
}

func TestDropStrategy(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "size"})
	require.NoError(t, err)
	for _, row := range [][]string{{"90.0", "S"}, {"", "M"}, {"100.0", "L"}} {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithMissingStrategy("drop"), WithOutlierMethod("none"),
		WithScalingMethod("none"), WithEngineeredFeatures(false))
	X, y, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	r, _ := X.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, y.Len())
}

func TestInterpolateStrategy(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "size"})
	require.NoError(t, err)
	for _, row := range [][]string{
		{"90.0", "S"}, {"", "M"}, {"100.0", "L"}, {"105.0", "L"},
	} {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithMissingStrategy("interpolate"), WithOutlierMethod("none"),
		WithScalingMethod("none"), WithEngineeredFeatures(false))
	X, _, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	// Linear between 90 and 100.
	assert.InDelta(t, 95.0, X.At(1, 0), 1e-12)
}

func TestOutlierRemovalIsIdempotent(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "size"})
	require.NoError(t, err)
	values := []float64{90, 91, 92, 93, 94, 95, 96, 97, 98, 500}
	sizes := []string{"S", "S", "M", "M", "M", "M", "L", "L", "L", "L"}
	for i, v := range values {
		require.NoError(t, f.AppendRow([]string{strconv.FormatFloat(v, 'g', -1, 64), sizes[i]}))
	}

	p := New(WithScalingMethod("none"), WithEngineeredFeatures(false))
	X1, _, err := p.FitTransform(f.Clone(), "size")
	require.NoError(t, err)
	r1, _ := X1.Dims()
	assert.Equal(t, 9, r1, "the extreme value must be fenced out")

	// Re-fitting on the cleaned data drops nothing further.
	cleaned, err := f.SelectRows([]bool{true, true, true, true, true, true, true, true, true, false})
	require.NoError(t, err)
	p2 := New(WithScalingMethod("none"), WithEngineeredFeatures(false))
	X2, _, err := p2.FitTransform(cleaned, "size")
	require.NoError(t, err)
	r2, _ := X2.Dims()
	assert.Equal(t, 9, r2)
}

func TestConfigurableOutlierFences(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "size"})
	require.NoError(t, err)
	values := []float64{90, 91, 92, 93, 94, 95, 96, 97, 98, 500}
	for _, v := range values {
		require.NoError(t, f.AppendRow([]string{strconv.FormatFloat(v, 'g', -1, 64), "M"}))
	}

	// The default fences drop the extreme value.
	p := New(WithScalingMethod("none"), WithEngineeredFeatures(false))
	X, _, err := p.FitTransform(f.Clone(), "size")
	require.NoError(t, err)
	r, _ := X.Dims()
	assert.Equal(t, 9, r)
	assert.InDelta(t, DefaultIQRFactor, p.State().OutlierIQRFactor, 1e-12)

	// A wide factor keeps it.
	wide := New(WithScalingMethod("none"), WithEngineeredFeatures(false), WithIQRFactor(1000))
	X, _, err = wide.FitTransform(f.Clone(), "size")
	require.NoError(t, err)
	r, _ = X.Dims()
	assert.Equal(t, 10, r)
	assert.InDelta(t, 1000.0, wide.State().OutlierIQRFactor, 1e-12)

	// The fitted factor survives the state round trip.
	restored := FromState(wide.State())
	assert.InDelta(t, 1000.0, restored.State().OutlierIQRFactor, 1e-12)

	// Non-positive settings are rejected up front.
	_, _, err = New(WithIQRFactor(-1)).FitTransform(f.Clone(), "size")
	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "preprocessing.outlier_iqr_factor", cfgErr.Option)

	_, _, err = New(WithZScoreThreshold(0)).FitTransform(f.Clone(), "size")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "preprocessing.outlier_zscore_threshold", cfgErr.Option)
}

func TestRegressionTargetStaysNumeric(t *testing.T) {
	f, err := dataset.NewFrame([]string{"height_cm", "weight_kg", "chest_cm"})
	require.NoError(t, err)
	for _, row := range [][]string{
		{"170", "65", "94.0"}, {"180", "80", "102.0"}, {"160", "55", "88.0"},
		{"175", "72", "98.0"}, {"165", "60", "90.0"},
	} {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithScalingMethod("none"), WithEngineeredFeatures(false), WithOutlierMethod("none"))
	_, y, err := p.FitTransform(f, "chest_cm")
	require.NoError(t, err)

	assert.Nil(t, p.TargetClasses())
	assert.False(t, p.State().Classification)
	assert.InDelta(t, 94.0, y.AtVec(0), 1e-12)
}

func TestEngineeredBMI(t *testing.T) {
	f, err := dataset.NewFrame([]string{"height_cm", "weight_kg", "size"})
	require.NoError(t, err)
	for _, row := range [][]string{
		{"170", "65", "M"}, {"180", "80", "L"}, {"160", "55", "S"},
	} {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithScalingMethod("none"), WithOutlierMethod("none"))
	X, _, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	names := p.FeatureNames()
	require.Equal(t, []string{"height_cm", "weight_kg", BMIColumn}, names)
	assert.InDelta(t, 65.0/(1.70*1.70), X.At(0, 2), 1e-9)
}

func TestFitTransformWithoutTarget(t *testing.T) {
	p := New(WithScalingMethod("none"))
	X, y, err := p.FitTransform(sizingFrame(t), "")
	require.NoError(t, err)

	assert.Nil(t, y, "no target column means no target vector")
	assert.Nil(t, p.TargetClasses())
	assert.False(t, p.State().Classification)

	// Every column is a feature, the former label column included.
	names := p.FeatureNames()
	assert.Contains(t, names, "size")
	r, c := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, len(names), c)
}

func TestEngineeredFeaturesOnMeasurementSchema(t *testing.T) {
	f, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "height_cm", "weight_kg", "size"})
	require.NoError(t, err)
	for _, row := range [][]string{
		{"95", "80", "170", "65", "M"},
		{"100", "85", "175", "72", "M"},
		{"105", "90", "180", "80", "L"},
		{"110", "95", "185", "88", "L"},
		{"115", "100", "190", "95", "XL"},
	} {
		require.NoError(t, f.AppendRow(row))
	}

	p := New(WithScalingMethod("none"), WithOutlierMethod("none"))
	X, _, err := p.FitTransform(f, "size")
	require.NoError(t, err)

	r, _ := X.Dims()
	assert.Equal(t, 5, r)
	names := p.FeatureNames()
	require.Equal(t, []string{"chest_cm", "waist_cm", "height_cm", "weight_kg",
		ChestWaistRatioColumn, BMIColumn}, names)
	assert.InDelta(t, 95.0/80.0, X.At(0, 4), 1e-12)
	assert.InDelta(t, 65.0/(1.70*1.70), X.At(0, 5), 1e-9)
}

func TestFitTransformErrors(t *testing.T) {
	empty, err := dataset.NewFrame([]string{"chest_cm", "size"})
	require.NoError(t, err)

	p := New()
	_, _, err = p.FitTransform(empty, "size")
	assert.Error(t, err)

	_, _, err = p.FitTransform(sizingFrame(t), "nonexistent")
	require.Error(t, err)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	// Transform before fitting.
	_, err = New().Transform(sizingFrame(t))
	assert.Error(t, err)
}

func TestUnknownStrategyRejected(t *testing.T) {
	cases := []struct {
		name   string
		opt    Option
		option string
	}{
		{"missing", WithMissingStrategy("knn"), "preprocessing.missing_strategy"},
		{"outliers", WithOutlierMethod("mad"), "preprocessing.outlier_method"},
		{"scaling", WithScalingMethod("robust"), "preprocessing.scaling_method"},
		{"encoding", WithEncodingMethod("target"), "preprocessing.encoding_method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := New(tc.opt).FitTransform(sizingFrame(t), "size")
			require.Error(t, err)

			var cfgErr *errors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.option, cfgErr.Option)
		})
	}
}

func TestAnalyze(t *testing.T) {
	f := sizingFrame(t)
	require.NoError(t, f.AppendRow([]string{"", "80.0", "casual", "M"}))

	report, err := New().Analyze(f)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 4, report.Cols)

	byName := make(map[string]ColumnReport)
	for _, cr := range report.Columns {
		byName[cr.Name] = cr
	}
	assert.Equal(t, 1, byName["chest_cm"].Missing)
	assert.InDelta(t, 100.0/6.0, byName["chest_cm"].MissingPct, 1e-9)
	assert.Equal(t, dataset.RoleNumeric, byName["chest_cm"].Role)
	assert.Equal(t, dataset.RoleCategorical, byName["style"].Role)
	assert.Equal(t, 3, byName["style"].Unique)

	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], `"chest_cm"`)
	assert.Contains(t, report.Recommendations[0], "imputation")
}

func TestAnalyzeFlagsMostlyMissingColumn(t *testing.T) {
	f, err := dataset.NewFrame([]string{"sparse", "size"})
	require.NoError(t, err)
	require.NoError(t, f.AppendRow([]string{"", "M"}))
	require.NoError(t, f.AppendRow([]string{"", "L"}))
	require.NoError(t, f.AppendRow([]string{"1.0", "S"}))

	report, err := New().Analyze(f)
	require.NoError(t, err)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "dropping")
}

func TestStatePersistsAndRestores(t *testing.T) {
	p := New()
	X1, _, err := p.FitTransform(sizingFrame(t), "size")
	require.NoError(t, err)

	path := t.TempDir() + "/preprocessor.gob"
	require.NoError(t, SaveState(p.State(), path))

	state, err := LoadState(path)
	require.NoError(t, err)
	restored := FromState(state)

	inference, err := dataset.NewFrame([]string{"chest_cm", "waist_cm", "style"})
	require.NoError(t, err)
	require.NoError(t, inference.AppendRow([]string{"96.5", "81.0", "casual"}))

	X2, err := restored.Transform(inference)
	require.NoError(t, err)

	// Row 0 of the training data transformed through the restored state must
	// match the fitted output.
	for j := 0; j < len(state.FeatureNames); j++ {
		assert.InDelta(t, X1.At(0, j), X2.At(0, j), 1e-12)
	}

	decoded, err := restored.DecodeTarget([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"M"}, decoded)
}
