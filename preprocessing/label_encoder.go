package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/nutriclass/core/model"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダ
// 文字列ラベルを辞書順に 0..n_classes-1 の整数へ変換する
type LabelEncoder struct {
	model.BaseEstimator

	// ClassLabels は学習したクラス（昇順）
	ClassLabels []string

	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベルの一覧からクラスを学習する
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	seen := make(map[string]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	e.ClassLabels = make([]string, 0, len(seen))
	for l := range seen {
		e.ClassLabels = append(e.ClassLabels, l)
	}
	sort.Strings(e.ClassLabels)

	e.index = make(map[string]int, len(e.ClassLabels))
	for i, l := range e.ClassLabels {
		e.index[l] = i
	}
	e.SetFitted()

	log.GetLoggerWithName("preprocessing").Debug("Label encoder fitted",
		log.ModelNameKey, "LabelEncoder",
		log.SamplesKey, len(labels),
		log.ClassesKey, e.ClassLabels,
	)
	return nil
}

// Transform はラベルを整数コードに変換する。未知のラベルはValueError
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	codes := make([]int, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("y contains previously unseen label %q", l))
		}
		codes[i] = code
	}
	return codes, nil
}

// FitTransform は学習と変換を同時に行う
func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform は整数コードを元のラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	labels := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.ClassLabels) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("code %d out of range [0, %d)", c, len(e.ClassLabels)))
		}
		labels[i] = e.ClassLabels[c]
	}
	return labels, nil
}

// Classes は学習したクラスのコピーを返す
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.ClassLabels))
	copy(out, e.ClassLabels)
	return out
}

// Counts はコードごとの出現回数を返す（np.unique(y, return_counts=True) 相当）
func (e *LabelEncoder) Counts(codes []int) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Counts")
	}
	counts := make([]int, len(e.ClassLabels))
	for _, c := range codes {
		if c < 0 || c >= len(counts) {
			return nil, errors.NewValueError("LabelEncoder.Counts", fmt.Sprintf("code %d out of range [0, %d)", c, len(counts)))
		}
		counts[c]++
	}
	return counts, nil
}

// CodesToColumn は整数コードを n×1 の列ベクトルにする
func CodesToColumn(codes []int) *mat.Dense {
	data := make([]float64, len(codes))
	for i, c := range codes {
		data[i] = float64(c)
	}
	return mat.NewDense(len(codes), 1, data)
}

// ColumnToCodes は n×1 の予測結果を整数コードに戻す
func ColumnToCodes(y mat.Matrix) []int {
	r, _ := y.Dims()
	codes := make([]int, r)
	for i := 0; i < r; i++ {
		codes[i] = int(y.At(i, 0))
	}
	return codes
}
