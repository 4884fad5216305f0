package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1, 10, 5,
		2, 20, 5,
		3, 30, 5,
		5, 50, 5,
	})

	scaler := NewMinMaxScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	want := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		0.25, 0.25, 0,
		0.5, 0.5, 0,
		1, 1, 0,
	})
	if !mat.EqualApprox(scaled, want, 1e-12) {
		t.Errorf("scaled = %v, want %v", mat.Formatted(scaled), mat.Formatted(want))
	}
	if mat.Min(scaled) < 0 || mat.Max(scaled) > 1 {
		t.Errorf("scaled values outside [0, 1]: min=%v max=%v", mat.Min(scaled), mat.Max(scaled))
	}

	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("inverse transform did not restore data: %v", mat.Formatted(back))
	}
}

func TestMinMaxScalerCustomRange(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 5, 10})
	scaler := NewMinMaxScaler([2]float64{-1, 1})
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range []float64{-1, 0, 1} {
		if math.Abs(scaled.At(i, 0)-w) > 1e-12 {
			t.Errorf("row %d = %v, want %v", i, scaled.At(i, 0), w)
		}
	}

	bad := NewMinMaxScaler([2]float64{1, 1})
	var vErr *errors.ValidationError
	if err := bad.Fit(X); !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestScalerErrors(t *testing.T) {
	scalers := map[string]interface {
		Fit(mat.Matrix) error
		Transform(mat.Matrix) (mat.Matrix, error)
	}{
		"minmax":   NewMinMaxScalerDefault(),
		"standard": NewStandardScalerDefault(),
	}
	for name, s := range scalers {
		t.Run(name, func(t *testing.T) {
			var nf *errors.NotFittedError
			if _, err := s.Transform(mat.NewDense(1, 2, nil)); !errors.As(err, &nf) {
				t.Errorf("expected NotFittedError, got %v", err)
			}
			if err := s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
				t.Fatal(err)
			}
			var dim *errors.DimensionError
			if _, err := s.Transform(mat.NewDense(1, 3, nil)); !errors.As(err, &dim) {
				t.Errorf("expected DimensionError, got %v", err)
			}
		})
	}
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
	})
	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(scaler.Mean[0]-2.5) > 1e-12 {
		t.Errorf("mean = %v", scaler.Mean[0])
	}
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("scale = %v", scaler.Scale[0])
	}
	if scaler.Scale[1] != 1 {
		t.Errorf("constant feature should keep scale 1, got %v", scaler.Scale[1])
	}
	sum := 0.0
	for i := 0; i < 4; i++ {
		sum += scaled.At(i, 0)
		if scaled.At(i, 1) != 0 {
			t.Errorf("constant feature should scale to 0, got %v", scaled.At(i, 1))
		}
	}
	if math.Abs(sum) > 1e-12 {
		t.Errorf("scaled column mean should be 0, sum = %v", sum)
	}

	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("inverse transform did not restore data")
	}
}

func TestNewScaler(t *testing.T) {
	if s, err := NewScaler("minmax"); err != nil || s == nil {
		t.Errorf("minmax: %v", err)
	}
	if _, ok := mustScaler(t, "standard").(*StandardScaler); !ok {
		t.Error("standard should build a StandardScaler")
	}
	if _, err := NewScaler("robust"); err == nil {
		t.Error("expected error for unknown scaler")
	}
}

func mustScaler(t *testing.T, name string) interface{} {
	t.Helper()
	s, err := NewScaler(name)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
