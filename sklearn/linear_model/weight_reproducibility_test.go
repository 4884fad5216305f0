package linear_model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/nutriclass/core/model"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// reproducibilityData は固定の式で生成した3クラスのデータ
func reproducibilityData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(90, 3, nil)
	y := mat.NewDense(90, 1, nil)
	for i := 0; i < 90; i++ {
		k := i % 3
		X.Set(i, 0, float64(k)+0.3*math.Sin(float64(i)))
		X.Set(i, 1, float64(2-k)+0.3*math.Cos(float64(i)/3))
		X.Set(i, 2, float64(i%7)/7)
		y.Set(i, 0, float64(k))
	}
	return X, y
}

// TestLogisticRegressionWeightReproducibility は重みの完全な再現性をテスト
func TestLogisticRegressionWeightReproducibility(t *testing.T) {
	tests := []struct {
		name       string
		multiClass string
		binary     bool
	}{
		{"multinomial", "multinomial", false},
		{"ovr", "ovr", false},
		{"binary", "auto", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, y := reproducibilityData()
			if tt.binary {
				X = mat.DenseCopyOf(X.Slice(0, 60, 0, 3))
				y = mat.DenseCopyOf(y.Slice(0, 60, 0, 1))
				for i := 0; i < 60; i++ {
					y.Set(i, 0, float64(i%2))
				}
			}

			// モデル1を学習
			model1 := NewLogisticRegression(WithLRMultiClass(tt.multiClass), WithLRMaxIter(500))
			if err := model1.Fit(X, y); err != nil {
				t.Fatalf("Failed to fit model1: %v", err)
			}

			// 重みをJSONファイルに書き出して読み戻す
			weights, err := model1.ExportWeights(nil, []string{"a", "b", "c"})
			if err != nil {
				t.Fatalf("Failed to export weights: %v", err)
			}
			path := filepath.Join(t.TempDir(), "weights.json")
			if err := weights.WriteFile(path); err != nil {
				t.Fatalf("Failed to write weights: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			loaded := &model.ClassifierWeights{}
			if err := loaded.FromJSON(data); err != nil {
				t.Fatalf("Failed to deserialize weights: %v", err)
			}

			// モデル2に重みをインポート
			model2 := NewLogisticRegression()
			if err := model2.ImportWeights(loaded); err != nil {
				t.Fatalf("Failed to import weights: %v", err)
			}

			// 両モデルの係数・確率が完全に一致することを確認
			coef1, coef2 := model1.Coef(), model2.Coef()
			for k := range coef1 {
				for j := range coef1[k] {
					if coef1[k][j] != coef2[k][j] {
						t.Errorf("coef[%d][%d]: %v != %v", k, j, coef1[k][j], coef2[k][j])
					}
				}
			}
			p1, err := model1.PredictProba(X)
			if err != nil {
				t.Fatal(err)
			}
			p2, err := model2.PredictProba(X)
			if err != nil {
				t.Fatal(err)
			}
			if !mat.Equal(p1, p2) {
				t.Error("probabilities differ after weight round trip")
			}
			if got, want := model2.Classes(), model1.Classes(); len(got) != len(want) || got[len(got)-1] != want[len(want)-1] {
				t.Errorf("classes = %v, want %v", got, want)
			}
		})
	}
}

func TestImportWeightsNamedClasses(t *testing.T) {
	w := &model.ClassifierWeights{
		ModelType:    "LogisticRegression",
		Version:      model.WeightsVersion,
		Classes:      []string{"'In Moderation'", "'Less Often'", "'More Often'"},
		Coefficients: [][]float64{{1, 0}, {0, 1}, {-1, -1}},
		Intercepts:   []float64{0, 0, 0},
		Multinomial:  true,
	}
	lr := NewLogisticRegression()
	if err := lr.ImportWeights(w); err != nil {
		t.Fatalf("ImportWeights: %v", err)
	}
	if got := lr.Classes(); got[0] != 0 || got[2] != 2 {
		t.Errorf("named classes should map to codes, got %v", got)
	}
	pred, err := lr.Predict(mat.NewDense(2, 2, []float64{3, 0, -3, -3}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(0, 0) != 0 || pred.At(1, 0) != 2 {
		t.Errorf("predictions = [%v %v], want [0 2]", pred.At(0, 0), pred.At(1, 0))
	}

	bad := *w
	bad.Coefficients = [][]float64{{1, 0}, {0, 1}}
	bad.Intercepts = []float64{0, 0}
	var de *errors.DimensionError
	if err := NewLogisticRegression().ImportWeights(&bad); !errors.As(err, &de) {
		t.Errorf("expected DimensionError for 2 rows and 3 classes, got %v", err)
	}

	other := *w
	other.ModelType = "LinearRegression"
	if err := NewLogisticRegression().ImportWeights(&other); err == nil {
		t.Error("expected error for foreign model type")
	}
}
