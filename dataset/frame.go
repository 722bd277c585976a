// Package dataset provides the tabular data container shared by the
// preprocessing and training pipelines.
//
// A Frame holds raw cell values as strings, exactly as read from CSV, and
// exposes typed views on top: numeric columns parse to float64 vectors,
// categorical columns stay as strings. Missing values are represented by the
// empty string and a small set of conventional markers ("NA", "NaN").
package dataset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/stylemetric/sizefit/pkg/errors"
)

// Role classifies a column as numeric or categorical.
type Role int

const (
	// RoleCategorical marks columns holding discrete string values.
	RoleCategorical Role = iota
	// RoleNumeric marks columns whose non-missing cells all parse as float64.
	RoleNumeric
)

// Frame is an ordered collection of named string columns of equal length.
//
// Mutating operations return new values or modify the receiver explicitly;
// Clone produces a deep copy so fitted state never aliases caller data.
type Frame struct {
	names []string
	cols  [][]string
	index map[string]int
}

// NewFrame creates an empty frame with the given column names.
// Duplicate names are rejected.
func NewFrame(names []string) (*Frame, error) {
	index := make(map[string]int, len(names))
	cols := make([][]string, len(names))
	for i, name := range names {
		if _, dup := index[name]; dup {
			return nil, errors.NewSchemaError(name, "", "duplicate column name")
		}
		index[name] = i
		cols[i] = []string{}
	}
	return &Frame{names: append([]string(nil), names...), cols: cols, index: index}, nil
}

// AppendRow appends one row of cells. The row length must match the column
// count.
func (f *Frame) AppendRow(row []string) error {
	if len(row) != len(f.names) {
		return errors.NewDimensionError("Frame.AppendRow", len(f.names), len(row), 1)
	}
	for i, v := range row {
		f.cols[i] = append(f.cols[i], v)
	}
	return nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0])
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int {
	return len(f.names)
}

// Names returns the column names in order. The slice is a copy.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Col returns the raw string values of the named column. The returned slice
// is the frame's backing storage; callers must not mutate it.
func (f *Frame) Col(name string) ([]string, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewSchemaError(name, "", "column not found")
	}
	return f.cols[i], nil
}

// SetCol replaces the values of an existing column. The length must match the
// current row count.
func (f *Frame) SetCol(name string, values []string) error {
	i, ok := f.index[name]
	if !ok {
		return errors.NewSchemaError(name, "", "column not found")
	}
	if len(values) != f.NumRows() {
		return errors.NewDimensionError("Frame.SetCol", f.NumRows(), len(values), 0)
	}
	f.cols[i] = values
	return nil
}

// AddCol appends a new column at the end. The length must match the current
// row count, except on an empty frame.
func (f *Frame) AddCol(name string, values []string) error {
	if _, dup := f.index[name]; dup {
		return errors.NewSchemaError(name, "", "duplicate column name")
	}
	if f.NumCols() > 0 && len(values) != f.NumRows() {
		return errors.NewDimensionError("Frame.AddCol", f.NumRows(), len(values), 0)
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.cols = append(f.cols, values)
	return nil
}

// DropCol removes the named column.
func (f *Frame) DropCol(name string) error {
	i, ok := f.index[name]
	if !ok {
		return errors.NewSchemaError(name, "", "column not found")
	}
	f.names = append(f.names[:i], f.names[i+1:]...)
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	f.index = make(map[string]int, len(f.names))
	for j, n := range f.names {
		f.index[n] = j
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	clone := &Frame{
		names: append([]string(nil), f.names...),
		cols:  make([][]string, len(f.cols)),
		index: make(map[string]int, len(f.index)),
	}
	for i, col := range f.cols {
		clone.cols[i] = append([]string(nil), col...)
	}
	for name, i := range f.index {
		clone.index[name] = i
	}
	return clone
}

// SelectRows returns a new frame containing only the rows where keep[i] is
// true. Every column is filtered in lockstep, so row alignment between
// features and target is preserved.
func (f *Frame) SelectRows(keep []bool) (*Frame, error) {
	if len(keep) != f.NumRows() {
		return nil, errors.NewDimensionError("Frame.SelectRows", f.NumRows(), len(keep), 0)
	}
	out := &Frame{
		names: append([]string(nil), f.names...),
		cols:  make([][]string, len(f.cols)),
		index: make(map[string]int, len(f.index)),
	}
	for name, i := range f.index {
		out.index[name] = i
	}
	for i, col := range f.cols {
		filtered := make([]string, 0, len(col))
		for j, v := range col {
			if keep[j] {
				filtered = append(filtered, v)
			}
		}
		out.cols[i] = filtered
	}
	return out, nil
}

// IsMissing reports whether a cell value counts as missing.
// The empty string and the conventional CSV markers are recognized.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "N/A", "NaN", "nan", "null":
		return true
	}
	return false
}

// ColRole determines the role of the named column: numeric if every
// non-missing cell parses as float64, categorical otherwise. A column with no
// observed values is categorical.
func (f *Frame) ColRole(name string) (Role, error) {
	col, err := f.Col(name)
	if err != nil {
		return RoleCategorical, err
	}
	seen := false
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return RoleCategorical, nil
		}
		seen = true
	}
	if !seen {
		return RoleCategorical, nil
	}
	return RoleNumeric, nil
}

// ColFloat64 parses the named column into float64 values. Missing cells map
// to NaN markers via the missing return slice; a non-missing cell that fails
// to parse produces a SchemaError.
func (f *Frame) ColFloat64(name string) (values []float64, missing []bool, err error) {
	col, err := f.Col(name)
	if err != nil {
		return nil, nil, err
	}
	values = make([]float64, len(col))
	missing = make([]bool, len(col))
	for i, v := range col {
		if IsMissing(v) {
			missing[i] = true
			continue
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if perr != nil {
			return nil, nil, errors.NewSchemaError(name, v, "value does not parse as a number")
		}
		values[i] = parsed
	}
	return values, missing, nil
}

// MissingCount returns the number of missing cells in the named column.
func (f *Frame) MissingCount(name string) (int, error) {
	col, err := f.Col(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range col {
		if IsMissing(v) {
			n++
		}
	}
	return n, nil
}

// UniqueValues returns the sorted distinct non-missing values of the named
// column.
func (f *Frame) UniqueValues(name string) ([]string, error) {
	col, err := f.Col(name)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, v := range col {
		if !IsMissing(v) {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
