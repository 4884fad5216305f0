package dataset

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// ValueCount is the frequency of one distinct value of a column.
type ValueCount struct {
	Label      string
	Count      int
	Proportion float64
}

// ValueCounts returns the distinct values of column sorted by descending
// count, ties broken by label.
func (f *Frame) ValueCounts(column string) ([]ValueCount, error) {
	s, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range s.Raw {
		counts[v]++
	}
	out := make([]ValueCount, 0, len(counts))
	for label, n := range counts {
		vc := ValueCount{Label: label, Count: n}
		if f.nRows > 0 {
			vc.Proportion = float64(n) / float64(f.nRows)
		}
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

// WriteValueCounts renders counts, or proportions when normalize is set.
func WriteValueCounts(w io.Writer, column string, counts []ValueCount, normalize bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "count"
	if normalize {
		header = "proportion"
	}
	fmt.Fprintf(tw, "%s\t%s\n", column, header)
	for _, vc := range counts {
		if normalize {
			fmt.Fprintf(tw, "%s\t%.6f\n", vc.Label, vc.Proportion)
		} else {
			fmt.Fprintf(tw, "%s\t%d\n", vc.Label, vc.Count)
		}
	}
	return tw.Flush()
}
