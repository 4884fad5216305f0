package pipeline

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelConfig holds the LogisticRegression hyperparameters.
type ModelConfig struct {
	Penalty      string  `yaml:"penalty"`
	C            float64 `yaml:"C"`
	MultiClass   string  `yaml:"multi_class"`
	Solver       string  `yaml:"solver"`
	MaxIter      int     `yaml:"max_iter"`
	Tol          float64 `yaml:"tol"`
	ClassWeight  string  `yaml:"class_weight"`
	FitIntercept bool    `yaml:"fit_intercept"`
}

// Config drives a full Run. Zero-valued paths disable the matching output.
type Config struct {
	DataPath    string      `yaml:"data_path"`
	RandomState int64       `yaml:"random_state"`
	TestSize    float64     `yaml:"test_size"`
	Stratify    bool        `yaml:"stratify"`
	Scaler      string      `yaml:"scaler"`
	Head        int         `yaml:"head"`
	ChartPath   string      `yaml:"chart_path"`
	WeightsPath string      `yaml:"weights_path"`
	Model       ModelConfig `yaml:"model"`
}

// DefaultConfig returns the settings of the reference analysis.
func DefaultConfig() Config {
	return Config{
		DataPath:    "food_items.csv",
		RandomState: 123,
		TestSize:    0.2,
		Stratify:    true,
		Scaler:      "minmax",
		Head:        10,
		ChartPath:   "class_distribution.png",
		Model: ModelConfig{
			Penalty:      "l2",
			C:            1.0,
			MultiClass:   "multinomial",
			Solver:       "lbfgs",
			MaxIter:      1000,
			Tol:          1e-4,
			ClassWeight:  "none",
			FitIntercept: true,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return cfg, errors.NewValidationError("config", "only YAML files are supported", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return cfg, errors.Newf("config %s contains multiple documents or trailing content", path)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data_path", "is required", c.DataPath)
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.Head < 0 {
		return errors.NewValidationError("head", "must be non-negative", c.Head)
	}
	switch c.Scaler {
	case "minmax", "standard":
	default:
		return errors.NewValidationError("scaler", "must be 'minmax' or 'standard'", c.Scaler)
	}

	m := c.Model
	switch m.Penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("model.penalty", "must be 'l2' or 'none'", m.Penalty)
	}
	if m.Solver != "lbfgs" {
		return errors.NewValidationError("model.solver", "only 'lbfgs' is supported", m.Solver)
	}
	switch m.MultiClass {
	case "auto", "ovr", "multinomial":
	default:
		return errors.NewValidationError("model.multi_class", "must be one of auto, ovr, multinomial", m.MultiClass)
	}
	switch m.ClassWeight {
	case "none", "balanced":
	default:
		return errors.NewValidationError("model.class_weight", "must be 'none' or 'balanced'", m.ClassWeight)
	}
	if !(m.C > 0) {
		return errors.NewValidationError("model.C", "must be positive", m.C)
	}
	if m.MaxIter <= 0 {
		return errors.NewValidationError("model.max_iter", "must be positive", m.MaxIter)
	}
	if m.Tol < 0 {
		return errors.NewValidationError("model.tol", "must be non-negative", m.Tol)
	}
	return nil
}
