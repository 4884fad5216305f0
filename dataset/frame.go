// Package dataset loads tabular CSV data into a column-oriented Frame and
// provides the exploratory views used before training: dtypes, head,
// descriptive statistics and label distributions.
package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// Float columns parse as float64 in every non-empty cell.
	Float Kind = iota
	// String columns hold at least one non-numeric cell.
	String
)

// String returns the pandas-style dtype name.
func (k Kind) String() string {
	if k == Float {
		return "float64"
	}
	return "object"
}

// Series is a single named column. Raw keeps the original cell text; Floats is
// populated only for Float columns, with NaN for empty cells.
type Series struct {
	Name   string
	Kind   Kind
	Raw    []string
	Floats []float64
}

// ColumnType pairs a column name with its inferred kind.
type ColumnType struct {
	Name string
	Kind Kind
}

// Frame is an immutable column-oriented table.
type Frame struct {
	columns []*Series
	index   map[string]int
	nRows   int
}

// NewFrame builds a frame from a header and string rows, inferring column kinds.
func NewFrame(header []string, rows [][]string) (*Frame, error) {
	if len(header) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset: no columns")
	}
	f := &Frame{
		columns: make([]*Series, len(header)),
		index:   make(map[string]int, len(header)),
		nRows:   len(rows),
	}
	for j, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := f.index[name]; dup {
			return nil, errors.NewValueError("dataset.NewFrame", fmt.Sprintf("duplicate column %q", name))
		}
		f.index[name] = j
		f.columns[j] = &Series{Name: name, Raw: make([]string, len(rows))}
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.Wrapf(errors.ErrRaggedRow, "dataset: row %d has %d fields, header has %d", i+1, len(row), len(header))
		}
		for j, cell := range row {
			f.columns[j].Raw[i] = strings.TrimSpace(cell)
		}
	}
	for _, s := range f.columns {
		s.Floats, s.Kind = parseFloats(s.Raw)
	}
	return f, nil
}

func parseFloats(raw []string) ([]float64, Kind) {
	out := make([]float64, len(raw))
	for i, cell := range raw {
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, String
		}
		out[i] = v
	}
	return out, Float
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return f.nRows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, s := range f.columns {
		names[i] = s.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewValueError("dataset.Column", fmt.Sprintf("no column named %q", name))
	}
	return f.columns[j], nil
}

// DTypes returns the inferred kind of every column.
func (f *Frame) DTypes() []ColumnType {
	out := make([]ColumnType, len(f.columns))
	for i, s := range f.columns {
		out[i] = ColumnType{Name: s.Name, Kind: s.Kind}
	}
	return out
}

// FeatureColumns returns every column name except the last one.
func (f *Frame) FeatureColumns() []string {
	names := f.Columns()
	if len(names) == 0 {
		return nil
	}
	return names[:len(names)-1]
}

// LabelColumn returns the name of the last column.
func (f *Frame) LabelColumn() string {
	return f.columns[len(f.columns)-1].Name
}

// Head returns a frame holding the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.nRows {
		n = f.nRows
	}
	if n < 0 {
		n = 0
	}
	head := &Frame{columns: make([]*Series, len(f.columns)), index: f.index, nRows: n}
	for j, s := range f.columns {
		c := &Series{Name: s.Name, Kind: s.Kind, Raw: s.Raw[:n:n]}
		if s.Floats != nil {
			c.Floats = s.Floats[:n:n]
		}
		head.columns[j] = c
	}
	return head
}

// SplitXY returns the feature matrix built from every column but the last and
// the raw values of the last column. Feature columns must be numeric and
// complete.
func (f *Frame) SplitXY() (*mat.Dense, []string, error) {
	if len(f.columns) < 2 {
		return nil, nil, errors.NewValueError("dataset.SplitXY", "need at least one feature column and a label column")
	}
	if f.nRows == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "dataset.SplitXY")
	}
	features := f.columns[:len(f.columns)-1]
	X := mat.NewDense(f.nRows, len(features), nil)
	for j, s := range features {
		if s.Kind != Float {
			return nil, nil, errors.NewValueError("dataset.SplitXY", fmt.Sprintf("feature column %q is not numeric", s.Name))
		}
		for i, v := range s.Floats {
			if math.IsNaN(v) {
				return nil, nil, errors.NewValueError("dataset.SplitXY", fmt.Sprintf("missing value in column %q at row %d", s.Name, i))
			}
			X.Set(i, j, v)
		}
	}
	label := f.columns[len(f.columns)-1]
	y := make([]string, f.nRows)
	copy(y, label.Raw)
	return X, y, nil
}

// WriteTo renders the frame as an aligned table with a leading row index.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, s := range f.columns {
		fmt.Fprintf(tw, "%s\t", s.Name)
	}
	fmt.Fprintln(tw)
	for i := 0; i < f.nRows; i++ {
		fmt.Fprintf(tw, "%d\t", i)
		for _, s := range f.columns {
			fmt.Fprintf(tw, "%s\t", s.Raw[i])
		}
		fmt.Fprintln(tw)
	}
	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
