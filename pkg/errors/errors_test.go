package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "nutriclass: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "nutriclass: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	tests := []struct {
		axis int
		want string
	}{
		{0, "nutriclass: Predict: dimension mismatch on axis 0 (rows). Expected 10, got 8"},
		{1, "nutriclass: Predict: dimension mismatch on axis 1 (features). Expected 10, got 8"},
	}
	for _, tt := range tests {
		err := NewDimensionError("Predict", 10, 8, tt.axis)
		if err.Error() != tt.want {
			t.Errorf("Error() = %v, want %v", err.Error(), tt.want)
		}
		var dimErr *DimensionError
		if !As(err, &dimErr) {
			t.Error("Error should be castable to *DimensionError")
		}
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LogisticRegression", "Predict")

	want := "nutriclass: LogisticRegression: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("solver", "unsupported solver", "sag")
	want := "nutriclass: validation failed for parameter 'solver': unsupported solver (got: sag)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var vErr *ValidationError
	if !As(err, &vErr) || vErr.ParamName != "solver" {
		t.Errorf("Error should be castable to *ValidationError, got %T", err)
	}
}

func TestConvergenceWarningMessage(t *testing.T) {
	w := NewConvergenceWarning("lbfgs", 1000, "")
	if !strings.Contains(w.Error(), "failed to converge after 1000 iterations") {
		t.Errorf("unexpected message: %s", w.Error())
	}
	w = NewConvergenceWarning("lbfgs", 5, "line search failed")
	if w.Error() != "lbfgs failed to converge after 5 iterations: line search failed" {
		t.Errorf("unexpected message: %s", w.Error())
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	prev := SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(prev)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}

	var zl []error
	SetZerologWarnFunc(func(w error) { zl = append(zl, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("lbfgs", 10, ""))
	if len(zl) != 1 || len(got) != 1 {
		t.Errorf("zerolog func should take precedence: zerolog=%d handler=%d", len(zl), len(got))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "ReadCSV", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in ReadCSV: expected 10, got 0") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		err := SafeExecute("TestOperation", func() error {
			panic("boom")
		})
		var panicErr *PanicError
		if !As(err, &panicErr) {
			t.Fatalf("Expected PanicError, got %T", err)
		}
		if panicErr.Operation != "TestOperation" || panicErr.StackTrace == "" {
			t.Errorf("unexpected panic error: %+v", panicErr)
		}
		if panicErr.Error() != "panic in TestOperation: boom" {
			t.Errorf("unexpected message %q", panicErr.Error())
		}
	})

	t.Run("no panic passes error through", func(t *testing.T) {
		want := New("plain")
		err := SafeExecute("TestOperation", func() error { return want })
		if !Is(err, want) {
			t.Errorf("expected original error, got %v", err)
		}
	})

	t.Run("existing error keeps priority", func(t *testing.T) {
		original := New("original")
		fn := func() (err error) {
			defer Recover(&err, "TestOperation")
			err = original
			panic("after error")
		}
		err := fn()
		if !Is(err, original) {
			t.Errorf("expected original error to be preserved, got %v", err)
		}
	})
}

func TestNumericalHelpers(t *testing.T) {
	if err := CheckNumericalStability("loss", []float64{1, 2, 3}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := CheckNumericalStability("loss", []float64{1, math.NaN(), math.Inf(1)}, 7)
	var nErr *NumericalInstabilityError
	if !As(err, &nErr) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if nErr.Iteration != 7 || len(nErr.Values) != 2 {
		t.Errorf("unexpected details: %+v", nErr)
	}

	if got := LogSumExp([]float64{1000, 1000}); math.Abs(got-(1000+math.Log(2))) > 1e-9 {
		t.Errorf("LogSumExp overflowed: %v", got)
	}
	if got := LogSigmoid(-800); math.IsInf(got, 0) || math.Abs(got+800) > 1e-9 {
		t.Errorf("LogSigmoid(-800) = %v", got)
	}
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v", got)
	}
}
