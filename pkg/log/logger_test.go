package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug, false)
	logger := p.GetLoggerWithName("linear_model").With(ModelNameKey, "LogisticRegression")

	logger.Info("fit done",
		OperationKey, OperationFit,
		SamplesKey, 120,
		AccuracyKey, 0.75,
		ClassesKey, []string{"a", "b"},
	)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	rec := lines[0]
	checks := map[string]interface{}{
		"message":     "fit done",
		"level":       "info",
		ComponentKey:  "linear_model",
		ModelNameKey:  "LogisticRegression",
		OperationKey:  OperationFit,
		SamplesKey:    120.0,
		AccuracyKey:   0.75,
	}
	for k, want := range checks {
		if rec[k] != want {
			t.Errorf("%s = %v, want %v", k, rec[k], want)
		}
	}
}

func TestZerologLoggerErrorStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, LevelDebug, false).GetLogger()

	err := errors.NewNotFittedError("MinMaxScaler", "Transform")
	logger.Error("transform failed", err, OperationKey, OperationTransform)

	rec := decodeLines(t, &buf)[0]
	if msg, _ := rec["error"].(string); !strings.Contains(msg, "not fitted") {
		t.Errorf("error field = %v", rec["error"])
	}
	if st, _ := rec[StacktraceKey].(string); !strings.Contains(st, "logger_test.go") {
		t.Errorf("expected stack trace pointing at the test, got %q", st)
	}
}

func TestZerologLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn, false)
	logger := p.GetLogger()

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	if got := len(decodeLines(t, &buf)); got != 1 {
		t.Errorf("expected 1 record, got %d", got)
	}
	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	if err := SetupLogger("info", &buf, false); err != nil {
		t.Fatal(err)
	}
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewConvergenceWarning("lbfgs", 3, ""))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 warning line, got %d", len(lines))
	}
	w, ok := lines[0]["warning"].(map[string]interface{})
	if !ok || w["type"] != "ConvergenceWarning" || w["iterations"] != 3.0 {
		t.Errorf("unexpected warning payload: %v", lines[0])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTestLogger(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	ctxLogger := logger.With(ModelNameKey, "LabelEncoder")

	ctxLogger.Debug("dropped")
	ctxLogger.Info("encoded", ClassesKey, 3)
	ctxLogger.Error("failed", errors.New("boom"))

	if logger.ContainsMessage("dropped") {
		t.Error("debug message should be filtered")
	}
	if !logger.ContainsField(ModelNameKey, "LabelEncoder") {
		t.Error("context field missing")
	}
	if !logger.ContainsField(ClassesKey, 3.0) {
		t.Error("classes field missing")
	}
	if !logger.ContainsField("error", "boom") {
		t.Error("error field missing")
	}
}
