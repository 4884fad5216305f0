package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Evaluation holds the headline scores of a classifier on a test set.
// Per-class slices are ordered like Labels.
type Evaluation struct {
	Labels    []int
	Accuracy  float64
	Recall    []float64
	Precision []float64
	F1Score   []float64
}

// EvaluateMetrics computes accuracy and per-class recall, precision and
// f1-score.
func EvaluateMetrics(yTrue, yPred mat.Vector) (*Evaluation, error) {
	acc, err := AccuracyScore(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	s, err := PrecisionRecallFScoreSupport(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Labels:    s.Labels,
		Accuracy:  acc,
		Recall:    s.Recall,
		Precision: s.Precision,
		F1Score:   s.FScore,
	}, nil
}

// AsMap returns the scores keyed accuracy, recall, precision and f1score.
func (e *Evaluation) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"accuracy":  e.Accuracy,
		"recall":    e.Recall,
		"precision": e.Precision,
		"f1score":   e.F1Score,
	}
}

// String renders the scores as a mapping literal in a fixed key order.
func (e *Evaluation) String() string {
	return fmt.Sprintf("{'accuracy': %s, 'recall': %s, 'precision': %s, 'f1score': %s}",
		formatFloat(e.Accuracy), formatArray(e.Recall), formatArray(e.Precision), formatArray(e.F1Score))
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.8g", v)
}

func formatArray(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return "array([" + strings.Join(parts, ", ") + "])"
}
