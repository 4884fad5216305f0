package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 3クラスの例（scikit-learnのドキュメントと同じデータ）
var (
	exampleTrue = []int{0, 1, 2, 0, 1, 2}
	examplePred = []int{0, 2, 1, 0, 0, 1}
)

func approxSlice(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	prev := errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(prev) })
	return &warnings
}

func TestAccuracyScore(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []int
		yPred []int
		want  float64
	}{
		{"perfect", []int{0, 1, 2}, []int{0, 1, 2}, 1.0},
		{"none", []int{0, 0}, []int{1, 1}, 0.0},
		{"example", exampleTrue, examplePred, 2.0 / 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AccuracyScore(IntVector(tt.yTrue), IntVector(tt.yPred))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AccuracyScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputErrors(t *testing.T) {
	_, err := AccuracyScore(IntVector([]int{0, 1}), IntVector([]int{0}))
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	_, err = EvaluateMetrics(IntVector(nil), IntVector(nil))
	var ve *errors.ValueError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValueError, got %v", err)
	}

	_, err = PrecisionRecallFScoreSupport(IntVector(exampleTrue), IntVector(examplePred), WithAverage("samples"))
	var vae *errors.ValidationError
	if !errors.As(err, &vae) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := ConfusionMatrix(IntVector(exampleTrue), IntVector(examplePred), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		1, 0, 1,
		0, 2, 0,
	})
	if !mat.Equal(cm, want) {
		t.Errorf("ConfusionMatrix() =\n%v\nwant\n%v", mat.Formatted(cm), mat.Formatted(want))
	}

	sub, err := ConfusionMatrix(IntVector(exampleTrue), IntVector(examplePred), []int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	wantSub := mat.NewDense(2, 2, []float64{
		0, 0,
		0, 2,
	})
	if !mat.Equal(sub, wantSub) {
		t.Errorf("ConfusionMatrix(labels=[2 0]) =\n%v", mat.Formatted(sub))
	}
}

func TestPrecisionRecallFScoreSupport(t *testing.T) {
	warnings := captureWarnings(t)
	yTrue, yPred := IntVector(exampleTrue), IntVector(examplePred)

	s, err := PrecisionRecallFScoreSupport(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	approxSlice(t, "precision", s.Precision, []float64{2.0 / 3, 0, 0})
	approxSlice(t, "recall", s.Recall, []float64{1, 0, 0})
	approxSlice(t, "fscore", s.FScore, []float64{0.8, 0, 0})
	for i, want := range []int{2, 2, 2} {
		if s.Support[i] != want {
			t.Errorf("support[%d] = %d, want %d", i, s.Support[i], want)
		}
	}
	if len(*warnings) != 0 {
		t.Errorf("unexpected warnings: %v", *warnings)
	}

	averages := []struct {
		average string
		p, r, f float64
	}{
		{AverageMacro, 2.0 / 9, 1.0 / 3, 0.8 / 3},
		{AverageWeighted, 2.0 / 9, 1.0 / 3, 0.8 / 3},
		{AverageMicro, 1.0 / 3, 1.0 / 3, 1.0 / 3},
	}
	for _, tt := range averages {
		t.Run(tt.average, func(t *testing.T) {
			s, err := PrecisionRecallFScoreSupport(yTrue, yPred, WithAverage(tt.average))
			if err != nil {
				t.Fatal(err)
			}
			approxSlice(t, "precision", s.Precision, []float64{tt.p})
			approxSlice(t, "recall", s.Recall, []float64{tt.r})
			approxSlice(t, "fscore", s.FScore, []float64{tt.f})
			if s.Support[0] != 6 {
				t.Errorf("support = %d, want 6", s.Support[0])
			}
		})
	}
}

func TestPrecisionZeroDivision(t *testing.T) {
	warnings := captureWarnings(t)

	s, err := PrecisionRecallFScoreSupport(IntVector([]int{0, 0, 1, 1}), IntVector([]int{0, 0, 0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	approxSlice(t, "precision", s.Precision, []float64{0.5, 0})
	approxSlice(t, "recall", s.Recall, []float64{1, 0})
	approxSlice(t, "fscore", s.FScore, []float64{2.0 / 3, 0})

	if len(*warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(*warnings), *warnings)
	}
	var uw *errors.UndefinedMetricWarning
	if !errors.As((*warnings)[0], &uw) || uw.Metric != "Precision" {
		t.Errorf("unexpected warning: %v", (*warnings)[0])
	}
}

func TestWithLabelsAbsentLabel(t *testing.T) {
	warnings := captureWarnings(t)

	s, err := PrecisionRecallFScoreSupport(IntVector([]int{0, 1}), IntVector([]int{0, 1}), WithLabels(0, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	approxSlice(t, "fscore", s.FScore, []float64{1, 1, 0})
	if s.Support[2] != 0 {
		t.Errorf("support for absent label = %d", s.Support[2])
	}
	// Precision, Recall, F-score each warn once
	if len(*warnings) != 3 {
		t.Errorf("got %d warnings, want 3", len(*warnings))
	}
}

func TestClassificationReport(t *testing.T) {
	captureWarnings(t)
	names := []string{"'In Moderation'", "'Less Often'", "'More Often'"}

	report, err := ClassificationReport(IntVector(exampleTrue), IntVector(examplePred), names)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(report, "\n")
	header := strings.Fields(lines[0])
	if strings.Join(header, " ") != "precision recall f1-score support" {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{
		"'In Moderation'       0.67      1.00      0.80         2",
		"accuracy                           0.33         6",
		"macro avg       0.22      0.33      0.27         6",
		"weighted avg       0.22      0.33      0.27         6",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	// 全ラベルを含まない場合はaccuracyの代わりにmicro avgを出力する
	partial, err := ClassificationReport(IntVector(exampleTrue), IntVector(examplePred), nil, WithLabels(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(partial, "accuracy") || !strings.Contains(partial, "micro avg") {
		t.Errorf("expected micro avg instead of accuracy:\n%s", partial)
	}

	if _, err := ClassificationReport(IntVector(exampleTrue), IntVector(examplePred), names[:2]); err == nil {
		t.Error("expected error for mismatched target names")
	}
}

func TestEvaluateMetrics(t *testing.T) {
	yTrue := mat.NewDense(6, 1, []float64{0, 1, 2, 0, 1, 2})
	yPred := mat.NewDense(6, 1, []float64{0, 2, 1, 0, 0, 1})
	tv, err := ColumnVector(yTrue)
	if err != nil {
		t.Fatal(err)
	}
	pv, err := ColumnVector(yPred)
	if err != nil {
		t.Fatal(err)
	}

	ev, err := EvaluateMetrics(tv, pv)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ev.Accuracy-1.0/3) > 1e-12 {
		t.Errorf("Accuracy = %v", ev.Accuracy)
	}
	approxSlice(t, "recall", ev.Recall, []float64{1, 0, 0})
	approxSlice(t, "f1score", ev.F1Score, []float64{0.8, 0, 0})

	m := ev.AsMap()
	for _, key := range []string{"accuracy", "recall", "precision", "f1score"} {
		if _, ok := m[key]; !ok {
			t.Errorf("AsMap() missing key %q", key)
		}
	}
	if !strings.HasPrefix(ev.String(), "{'accuracy': 0.33333333, 'recall': array([1, 0, 0])") {
		t.Errorf("String() = %s", ev.String())
	}

	if _, err := ColumnVector(mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected error for non-column matrix")
	}
}
