package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 平均化の方式
const (
	AverageNone     = ""
	AverageMacro    = "macro"
	AverageWeighted = "weighted"
	AverageMicro    = "micro"
)

// MetricOption は分類指標の計算オプション
type MetricOption func(*metricConfig)

type metricConfig struct {
	labels  []int
	average string
}

// WithLabels は集計対象のラベルとその順序を指定する
func WithLabels(labels ...int) MetricOption {
	return func(c *metricConfig) {
		c.labels = append([]int(nil), labels...)
	}
}

// WithAverage はラベルごとのスコアの平均化方式を指定する
func WithAverage(average string) MetricOption {
	return func(c *metricConfig) {
		c.average = average
	}
}

// ColumnVector は n×1 行列（Predictの出力など）をVecDenseに変換する
func ColumnVector(m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError("ColumnVector", "must be a column vector (n×1 matrix)")
	}
	if r == 0 {
		return &mat.VecDense{}, nil
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

// IntVector はラベルのスライスをVecDenseに変換する
func IntVector(labels []int) *mat.VecDense {
	if len(labels) == 0 {
		return &mat.VecDense{}
	}
	data := make([]float64, len(labels))
	for i, l := range labels {
		data[i] = float64(l)
	}
	return mat.NewVecDense(len(labels), data)
}

// toLabels は入力を検証し、整数ラベルに変換する
func toLabels(op string, yTrue, yPred mat.Vector) ([]int, []int, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	t := make([]int, n)
	p := make([]int, n)
	for i := 0; i < n; i++ {
		t[i] = int(yTrue.AtVec(i))
		p[i] = int(yPred.AtVec(i))
	}
	return t, p, nil
}

// uniqueLabels はyTrueとyPredに現れるラベルの和集合を昇順で返す
func uniqueLabels(yTrue, yPred []int) []int {
	seen := make(map[int]struct{})
	for _, l := range yTrue {
		seen[l] = struct{}{}
	}
	for _, l := range yPred {
		seen[l] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// AccuracyScore は正解率を計算する
func AccuracyScore(yTrue, yPred mat.Vector) (float64, error) {
	t, p, err := toLabels("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// ConfusionMatrix は混同行列を計算する。行が正解ラベル、列が予測ラベル。
// labelsがnilの場合はyTrueとyPredの和集合を昇順で使用し、labelsに含まれないサンプルは無視する。
func ConfusionMatrix(yTrue, yPred mat.Vector, labels []int) (*mat.Dense, error) {
	t, p, err := toLabels("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = uniqueLabels(t, p)
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "'labels' should contain at least one label")
	}
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, errors.NewValueError("ConfusionMatrix", fmt.Sprintf("duplicate label %d", l))
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range t {
		ti, okT := index[t[i]]
		pi, okP := index[p[i]]
		if !okT || !okP {
			continue
		}
		cm.Set(ti, pi, cm.At(ti, pi)+1)
	}
	return cm, nil
}

// Scores はPrecisionRecallFScoreSupportの結果。
// 平均化した場合、各スライスは長さ1となりSupportは対象サンプルの合計となる。
type Scores struct {
	Labels    []int
	Precision []float64
	Recall    []float64
	FScore    []float64
	Support   []int
}

// PrecisionRecallFScoreSupport はラベルごとの適合率、再現率、F1スコア、サポートを計算する。
// 分母が0となる場合は0を返し、UndefinedMetricWarningを発生させる。
func PrecisionRecallFScoreSupport(yTrue, yPred mat.Vector, opts ...MetricOption) (*Scores, error) {
	cfg := metricConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	switch cfg.average {
	case AverageNone, AverageMacro, AverageWeighted, AverageMicro:
	default:
		return nil, errors.NewValidationError("average", "must be one of '', macro, weighted, micro", cfg.average)
	}

	t, p, err := toLabels("PrecisionRecallFScoreSupport", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	labels := cfg.labels
	if labels == nil {
		labels = uniqueLabels(t, p)
	}
	cm, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}

	k := len(labels)
	tp := make([]float64, k)
	predicted := make([]float64, k)
	support := make([]float64, k)
	for i := 0; i < k; i++ {
		tp[i] = cm.At(i, i)
		predicted[i] = floats.Sum(mat.Col(nil, i, cm))
		support[i] = floats.Sum(cm.RawRowView(i))
	}

	if cfg.average == AverageMicro {
		tp = []float64{floats.Sum(tp)}
		predicted = []float64{floats.Sum(predicted)}
		support = []float64{floats.Sum(support)}
	}

	precision := ratios(tp, predicted, "Precision", "no predicted samples")
	recall := ratios(tp, support, "Recall", "no true samples")
	fscore := make([]float64, len(tp))
	fUndefined := false
	for i := range tp {
		if predicted[i]+support[i] == 0 {
			fUndefined = true
			continue
		}
		fscore[i] = errors.SafeDivide(2*precision[i]*recall[i], precision[i]+recall[i])
	}
	if fUndefined {
		errors.Warn(errors.NewUndefinedMetricWarning("F-score", "labels with no true nor predicted samples", 0))
	}

	scores := &Scores{Labels: labels}
	switch cfg.average {
	case AverageNone:
		scores.Precision, scores.Recall, scores.FScore = precision, recall, fscore
		scores.Support = make([]int, k)
		for i, s := range support {
			scores.Support[i] = int(s)
		}
		return scores, nil
	case AverageMicro:
		scores.Precision, scores.Recall, scores.FScore = precision, recall, fscore
	case AverageMacro:
		scores.Precision = []float64{mean(precision)}
		scores.Recall = []float64{mean(recall)}
		scores.FScore = []float64{mean(fscore)}
	case AverageWeighted:
		total := floats.Sum(support)
		scores.Precision = []float64{errors.SafeDivide(floats.Dot(precision, support), total)}
		scores.Recall = []float64{errors.SafeDivide(floats.Dot(recall, support), total)}
		scores.FScore = []float64{errors.SafeDivide(floats.Dot(fscore, support), total)}
	}
	scores.Support = []int{int(floats.Sum(support))}
	return scores, nil
}

// ratios computes num/den elementwise, warning once when a denominator is zero.
func ratios(num, den []float64, metric, condition string) []float64 {
	out := make([]float64, len(num))
	undefined := false
	for i := range num {
		if den[i] == 0 {
			undefined = true
		}
		out[i] = errors.SafeDivide(num[i], den[i])
	}
	if undefined {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, "labels with "+condition, 0))
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values) / float64(len(values))
}

// ClassificationReport はscikit-learn形式の分類レポートを文字列で返す。
// targetNamesはラベルの並び（昇順、またはWithLabelsの順）に対応する表示名で、nilの場合はラベル値を使う。
func ClassificationReport(yTrue, yPred mat.Vector, targetNames []string, opts ...MetricOption) (string, error) {
	cfg := metricConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	t, p, err := toLabels("ClassificationReport", yTrue, yPred)
	if err != nil {
		return "", err
	}
	present := uniqueLabels(t, p)
	labels := cfg.labels
	if labels == nil {
		labels = present
	}
	if targetNames != nil && len(targetNames) != len(labels) {
		return "", errors.NewValueError("ClassificationReport",
			fmt.Sprintf("number of classes, %d, does not match size of target_names, %d", len(labels), len(targetNames)))
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		if targetNames != nil {
			names[i] = targetNames[i]
		} else {
			names[i] = fmt.Sprint(l)
		}
	}

	perLabel, err := PrecisionRecallFScoreSupport(yTrue, yPred, WithLabels(labels...))
	if err != nil {
		return "", err
	}

	// 対象ラベルが全ラベルを含む場合のみaccuracy行を出力し、それ以外はmicro avgとする
	microIsAccuracy := containsAll(labels, present)

	avgRows := []string{AverageMacro, AverageWeighted}
	if !microIsAccuracy {
		avgRows = append([]string{AverageMicro}, avgRows...)
	}

	width := len("weighted avg")
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	const digits = 2

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for i, name := range names {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, name,
			digits, perLabel.Precision[i], digits, perLabel.Recall[i], digits, perLabel.FScore[i], perLabel.Support[i])
	}
	b.WriteString("\n")

	if microIsAccuracy {
		acc, err := AccuracyScore(yTrue, yPred)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", digits, acc, sumInts(perLabel.Support))
	}
	for _, avg := range avgRows {
		s, err := PrecisionRecallFScoreSupport(yTrue, yPred, WithLabels(labels...), WithAverage(avg))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, avg+" avg",
			digits, s.Precision[0], digits, s.Recall[0], digits, s.FScore[0], s.Support[0])
	}
	return b.String(), nil
}

func containsAll(labels, present []int) bool {
	set := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	for _, l := range present {
		if _, ok := set[l]; !ok {
			return false
		}
	}
	return true
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
