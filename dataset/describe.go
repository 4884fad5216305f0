package dataset

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DescribeStats are the row labels of a Description, in order.
var DescribeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Description holds summary statistics, one column per described series.
// Values[i][j] is statistic DescribeStats[i] of column Columns[j].
type Description struct {
	Columns []string
	Values  [][]float64
}

// Describe summarises the numeric feature columns (all but the last column).
// Pass column names to describe a different selection.
func (f *Frame) Describe(columns ...string) (*Description, error) {
	if len(columns) == 0 {
		for _, name := range f.FeatureColumns() {
			if s, _ := f.Column(name); s.Kind == Float {
				columns = append(columns, name)
			}
		}
	}
	if len(columns) == 0 {
		return nil, errors.NewValueError("dataset.Describe", "no numeric columns to describe")
	}

	d := &Description{Columns: columns, Values: make([][]float64, len(DescribeStats))}
	for i := range d.Values {
		d.Values[i] = make([]float64, len(columns))
	}
	for j, name := range columns {
		s, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if s.Kind != Float {
			return nil, errors.NewValueError("dataset.Describe", fmt.Sprintf("column %q is not numeric", name))
		}
		for i, v := range describeSeries(s.Floats) {
			d.Values[i][j] = v
		}
	}
	return d, nil
}

func describeSeries(values []float64) []float64 {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		nan := math.NaN()
		return []float64{0, nan, nan, nan, nan, nan, nan, nan}
	}
	sort.Float64s(x)

	std := math.NaN()
	if len(x) > 1 {
		std = stat.StdDev(x, nil)
	}
	return []float64{
		float64(len(x)),
		stat.Mean(x, nil),
		std,
		floats.Min(x),
		quantile(x, 0.25),
		quantile(x, 0.5),
		quantile(x, 0.75),
		floats.Max(x),
	}
}

// quantile uses linear interpolation between closest ranks on sorted data,
// the pandas/numpy default.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// Get returns statistic stat of column name.
func (d *Description) Get(statName, column string) (float64, bool) {
	row := -1
	for i, s := range DescribeStats {
		if s == statName {
			row = i
			break
		}
	}
	if row < 0 {
		return 0, false
	}
	for j, c := range d.Columns {
		if c == column {
			return d.Values[row][j], true
		}
	}
	return 0, false
}

// WriteTo renders the description as a table with statistics as rows.
func (d *Description) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, c := range d.Columns {
		fmt.Fprintf(tw, "%s\t", c)
	}
	fmt.Fprintln(tw)
	for i, name := range DescribeStats {
		fmt.Fprintf(tw, "%s\t", name)
		for _, v := range d.Values[i] {
			fmt.Fprintf(tw, "%s\t", strconv.FormatFloat(v, 'f', 6, 64))
		}
		fmt.Fprintln(tw)
	}
	err := tw.Flush()
	return cw.n, err
}
