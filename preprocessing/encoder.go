package preprocessing

import (
	"sort"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// LabelEncoder maps categorical string values onto integer codes. The code
// assignment is deterministic: categories are sorted lexicographically during
// Fit, so the same data always produces the same codes.
type LabelEncoder struct {
	// ClassList holds the fitted categories in code order.
	ClassList []string

	codes map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the sorted distinct categories of values. Missing cells are
// skipped; they are expected to be imputed before encoding.
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}
	set := make(map[string]struct{})
	for _, v := range values {
		set[v] = struct{}{}
	}
	e.ClassList = make([]string, 0, len(set))
	for v := range set {
		e.ClassList = append(e.ClassList, v)
	}
	sort.Strings(e.ClassList)
	e.rebuildIndex()
	return nil
}

// rebuildIndex recomputes the lookup map from ClassList. Called after Fit and
// after gob decoding, which restores only the exported fields.
func (e *LabelEncoder) rebuildIndex() {
	e.codes = make(map[string]int, len(e.ClassList))
	for i, v := range e.ClassList {
		e.codes[v] = i
	}
}

// Transform maps values to their fitted codes. A value never seen during Fit
// is a SchemaError carrying the column name supplied by the caller.
func (e *LabelEncoder) Transform(column string, values []string) ([]float64, error) {
	if e.codes == nil {
		if len(e.ClassList) == 0 {
			return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
		}
		e.rebuildIndex()
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.codes[v]
		if !ok {
			return nil, errors.NewSchemaError(column, v, "value not seen during fitting")
		}
		out[i] = float64(code)
	}
	return out, nil
}

// InverseTransform maps codes back to their original string categories.
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if len(e.ClassList) == 0 {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		idx := int(c)
		if idx < 0 || idx >= len(e.ClassList) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				"code out of range")
		}
		out[i] = e.ClassList[idx]
	}
	return out, nil
}

// Classes returns the fitted categories in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.ClassList...)
}

// OneHotEncode expands values into indicator columns, one per fitted
// category, in the encoder's code order. A value not seen during fitting
// produces an all-zero row, so prediction inputs with novel categories still
// transform.
func (e *LabelEncoder) OneHotEncode(values []string) ([][]float64, error) {
	if len(e.ClassList) == 0 {
		return nil, errors.NewNotFittedError("LabelEncoder", "OneHotEncode")
	}
	if e.codes == nil {
		e.rebuildIndex()
	}
	cols := make([][]float64, len(e.ClassList))
	for j := range cols {
		cols[j] = make([]float64, len(values))
	}
	for i, v := range values {
		if code, ok := e.codes[v]; ok {
			cols[code][i] = 1
		}
	}
	return cols, nil
}
