package model

import (
	"encoding/json"
	"os"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
)

// WeightsVersion is written into every exported ClassifierWeights.
const WeightsVersion = "1"

// ClassifierWeights は線形分類器の重みを表す構造体（JSON出力用）
type ClassifierWeights struct {
	// ModelType はモデルの種類（LogisticRegression等）
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン
	Version string `json:"version"`

	// Classes は各行に対応するクラス名
	Classes []string `json:"classes"`

	// Features は特徴量の名前（オプション）
	Features []string `json:"features,omitempty"`

	// Coefficients は n_rows × n_features の重み係数
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts は行ごとの切片
	Intercepts []float64 `json:"intercepts"`

	// Multinomial はsoftmaxで確率を計算するかどうか（falseはOvRのsigmoid）
	Multinomial bool `json:"multinomial"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
}

// Validate はClassifierWeightsの整合性を検証
func (w *ClassifierWeights) Validate() error {
	if w.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", w.ModelType)
	}
	if len(w.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", len(w.Coefficients))
	}
	if len(w.Intercepts) != len(w.Coefficients) {
		return errors.NewDimensionError("ClassifierWeights.Validate", len(w.Coefficients), len(w.Intercepts), 0)
	}
	nFeatures := len(w.Coefficients[0])
	for _, row := range w.Coefficients[1:] {
		if len(row) != nFeatures {
			return errors.NewDimensionError("ClassifierWeights.Validate", nFeatures, len(row), 1)
		}
	}
	if len(w.Features) > 0 && len(w.Features) != nFeatures {
		return errors.NewDimensionError("ClassifierWeights.Validate", nFeatures, len(w.Features), 1)
	}
	return nil
}

// ToJSON はClassifierWeightsをJSON形式にシリアライズ
func (w *ClassifierWeights) ToJSON() ([]byte, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(w, "", "  ")
}

// FromJSON はJSON形式からClassifierWeightsをデシリアライズ
func (w *ClassifierWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, w); err != nil {
		return errors.Wrap(err, "decode classifier weights")
	}
	return w.Validate()
}

// WriteFile はJSONをファイルに書き出す
func (w *ClassifierWeights) WriteFile(path string) error {
	data, err := w.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write weights to %s", path)
	}
	return nil
}
