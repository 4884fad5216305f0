package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/nutriclass/core/model"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（母標準偏差）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1.0
		// 標準偏差が0に近い場合は1のまま（ゼロ除算を避ける）
		if s.WithStd && math.Sqrt(variance) >= 1e-8 {
			s.Scale[j] = math.Sqrt(variance)
		}
	}

	s.SetFitted()
	log.GetLoggerWithName("preprocessing").Debug("Scaler fitted",
		log.ModelNameKey, "StandardScaler",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// データを指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	model.BaseEstimator

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// DataRange は各特徴量の (max - min)。定数特徴量では1
	DataRange []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
//	XScaled, err := scaler.FitTransform(X)
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit は訓練データから各特徴量の最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.DataRange = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		m.DataMin[j] = lo
		m.DataMax[j] = hi

		m.DataRange[j] = hi - lo
		if math.Abs(m.DataRange[j]) < 1e-8 {
			// 定数特徴量の場合、スケールを1に設定
			m.DataRange[j] = 1.0
		}
	}

	m.SetFitted()
	log.GetLoggerWithName("preprocessing").Debug("Scaler fitted",
		log.ModelNameKey, "MinMaxScaler",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return nil
}

// Transform は学習済みの最小値・最大値を使ってデータをスケーリングする
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	// X_scaled = (X - X.min) / (X.max - X.min) * (max - min) + min
	result.Apply(func(_, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.DataRange[j]*width + m.FeatureRange[0]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "InverseTransform")
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.InverseTransform", m.NFeatures, c, 1)
	}

	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v-m.FeatureRange[0])/width*m.DataRange[j] + m.DataMin[j]
	}, X)
	return result, nil
}

// GetParams はスケーラーのパラメータを取得する
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"feature_range": m.FeatureRange,
	}
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
}

// NewScaler returns the scaler registered under name: "minmax" or "standard".
func NewScaler(name string) (model.InverseTransformer, error) {
	switch name {
	case "minmax", "":
		return NewMinMaxScalerDefault(), nil
	case "standard":
		return NewStandardScalerDefault(), nil
	default:
		return nil, errors.NewValidationError("scaler", "must be one of minmax, standard", name)
	}
}
