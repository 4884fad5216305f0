package linear_model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/YuminosukeSato/nutriclass/core/model"
	"github.com/YuminosukeSato/nutriclass/core/parallel"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// defaultParallelThreshold is the sample count above which loss gradients and
// probabilities are computed on all CPU cores.
const defaultParallelThreshold = 2048

// LogisticRegression implements logistic regression for classification
// Compatible with scikit-learn's LogisticRegression with the lbfgs solver
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	classWeight  string  // Class weight: "balanced", "none"
	randomState  int64   // Random seed, recorded for reproducibility only
	solver       string  // Solver: "lbfgs"
	maxIter      int     // Maximum iterations
	multiClass   string  // Multi-class: "auto", "ovr", "multinomial"
	tol          float64 // Gradient infinity-norm tolerance for stopping

	parallelThreshold int

	// Model parameters
	coef_       [][]float64 // Coefficients (n_classes x n_features, or 1 x n_features for binary OvR)
	intercept_  []float64   // Intercept terms
	classes_    []int       // Unique class labels, ascending
	multinomial bool        // Whether the fitted model uses softmax
	nIter_      []int       // Iterations per fitted row group
	loss_       float64     // Objective value at the solution (sum over OvR models)
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:             model.NewStateManager(),
		penalty:           "l2",
		C:                 1.0,
		fitIntercept:      true,
		classWeight:       "none",
		randomState:       -1,
		solver:            "lbfgs",
		maxIter:           100,
		multiClass:        "auto",
		tol:               1e-4,
		parallelThreshold: defaultParallelThreshold,
	}

	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Option functions

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.solver = solver
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRMultiClass sets the multi-class strategy
func WithLRMultiClass(multiClass string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.multiClass = multiClass
	}
}

// WithLRClassWeight sets the class weighting ("none" or "balanced")
func WithLRClassWeight(classWeight string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.classWeight = classWeight
	}
}

// WithLRParallelThreshold sets the sample count above which the gradient and
// PredictProba are computed in parallel.
func WithLRParallelThreshold(n int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.parallelThreshold = n
	}
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "lbfgs supports only 'l2' or 'none' penalties", lr.penalty)
	}
	if lr.solver != "lbfgs" {
		return errors.NewValidationError("solver", "only 'lbfgs' is supported", lr.solver)
	}
	switch lr.multiClass {
	case "auto", "ovr", "multinomial":
	default:
		return errors.NewValidationError("multi_class", "must be one of auto, ovr, multinomial", lr.multiClass)
	}
	switch lr.classWeight {
	case "none", "", "balanced":
	default:
		return errors.NewValidationError("class_weight", "must be 'none' or 'balanced'", lr.classWeight)
	}
	if lr.penalty == "l2" && !(lr.C > 0) {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", lr.tol)
	}
	return nil
}

// Fit trains the logistic regression model. y is a column vector of integer
// class labels.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}

	lr.state.Reset()
	labels := make([]int, nSamples)
	for i := range labels {
		labels[i] = int(y.At(i, 0))
	}
	classIdx := lr.extractClasses(labels)
	nClasses := len(lr.classes_)
	if nClasses < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("this solver needs samples of at least 2 classes in the data, but the data contains only one class: %d", lr.classes_[0]))
	}

	Xd := mat.DenseCopyOf(X)
	sampleWeight := lr.sampleWeights(classIdx, nClasses)
	lr.multinomial = lr.multiClass == "multinomial" || (lr.multiClass == "auto" && nClasses > 2)

	logger := log.GetLoggerWithName("linear_model").With(log.ModelNameKey, "LogisticRegression")
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
		log.HyperParamsKey, lr.GetParams(),
	)
	start := time.Now()

	base := logisticObjective{
		X:                 Xd,
		sampleWeight:      sampleWeight,
		nFeatures:         nFeatures,
		fitIntercept:      lr.fitIntercept,
		parallelThreshold: lr.parallelThreshold,
	}
	for _, s := range sampleWeight {
		base.weightSum += s
	}
	if lr.penalty == "l2" {
		base.l2 = 1.0 / (lr.C * base.weightSum)
	}

	lr.coef_ = nil
	lr.intercept_ = nil
	lr.nIter_ = nil
	lr.loss_ = 0

	if lr.multinomial {
		obj := base
		obj.multinomial = true
		obj.nRows = nClasses
		obj.classIdx = classIdx
		if err := lr.solve(&obj); err != nil {
			return err
		}
	} else {
		// One-vs-rest: a single model for binary problems, one per class otherwise
		targets := []int{1}
		if nClasses > 2 {
			targets = make([]int, nClasses)
			for k := range targets {
				targets[k] = k
			}
		}
		for _, k := range targets {
			obj := base
			obj.nRows = 1
			obj.binaryY = make([]float64, nSamples)
			for i, c := range classIdx {
				if c == k {
					obj.binaryY[i] = 1
				}
			}
			if err := lr.solve(&obj); err != nil {
				return errors.Wrapf(err, "fit class %d", lr.classes_[k])
			}
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.IterationKey, lr.nIter_,
		log.LossKey, lr.loss_,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// solve minimises obj with L-BFGS and appends the resulting rows to the model.
func (lr *LogisticRegression) solve(obj *logisticObjective) error {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return obj.eval(x, nil)
		},
		Grad: func(grad, x []float64) {
			obj.eval(x, grad)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.maxIter,
		GradientThreshold: lr.tol,
	}

	initX := make([]float64, obj.nParams())
	result, err := optimize.Minimize(problem, initX, settings, &optimize.LBFGS{})
	if obj.err != nil {
		return obj.err
	}
	if result == nil {
		return errors.NewModelError("LogisticRegression.Fit", "lbfgs failed", err)
	}

	iterations := result.Stats.MajorIterations
	switch {
	case err != nil:
		errors.Warn(errors.NewConvergenceWarning("lbfgs", iterations, err.Error()))
	case result.Status == optimize.IterationLimit:
		errors.Warn(errors.NewConvergenceWarning("lbfgs", iterations,
			"STOP: TOTAL NO. OF ITERATIONS REACHED LIMIT. Increase the number of iterations (max_iter) or scale the data"))
	}
	if err := errors.CheckNumericalStability("lbfgs_solution", result.X, iterations); err != nil {
		return err
	}

	stride := obj.stride()
	for r := 0; r < obj.nRows; r++ {
		row := make([]float64, obj.nFeatures)
		copy(row, result.X[r*stride:r*stride+obj.nFeatures])
		lr.coef_ = append(lr.coef_, row)
		intercept := 0.0
		if obj.fitIntercept {
			intercept = result.X[r*stride+obj.nFeatures]
		}
		lr.intercept_ = append(lr.intercept_, intercept)
	}
	lr.nIter_ = append(lr.nIter_, iterations)
	lr.loss_ += result.F
	return nil
}

// extractClasses stores the sorted unique labels and returns each sample's
// index into them.
func (lr *LogisticRegression) extractClasses(labels []int) []int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	lr.classes_ = make([]int, 0, len(seen))
	for c := range seen {
		lr.classes_ = append(lr.classes_, c)
	}
	sort.Ints(lr.classes_)

	pos := make(map[int]int, len(lr.classes_))
	for i, c := range lr.classes_ {
		pos[c] = i
	}
	idx := make([]int, len(labels))
	for i, l := range labels {
		idx[i] = pos[l]
	}
	return idx
}

// sampleWeights returns per-sample weights: all ones, or
// n_samples / (n_classes * count(class)) with balanced class weights.
func (lr *LogisticRegression) sampleWeights(classIdx []int, nClasses int) []float64 {
	weights := make([]float64, len(classIdx))
	if lr.classWeight != "balanced" {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	counts := make([]int, nClasses)
	for _, c := range classIdx {
		counts[c]++
	}
	n := float64(len(classIdx))
	for i, c := range classIdx {
		weights[i] = n / (float64(nClasses) * float64(counts[c]))
	}
	return weights
}

func (lr *LogisticRegression) checkInput(X mat.Matrix, method string) error {
	if err := lr.state.RequireFitted("LogisticRegression", method); err != nil {
		return err
	}
	_, c := X.Dims()
	return lr.state.RequireFeatures("LogisticRegression."+method, c)
}

// DecisionFunction returns the linear scores, n_samples x n_rows where n_rows
// is 1 for binary OvR models and n_classes otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkInput(X, "DecisionFunction"); err != nil {
		return nil, err
	}
	return lr.decision(X), nil
}

func (lr *LogisticRegression) decision(X mat.Matrix) *mat.Dense {
	nSamples, nFeatures := X.Dims()
	W := mat.NewDense(len(lr.coef_), nFeatures, nil)
	for k, row := range lr.coef_ {
		W.SetRow(k, row)
	}
	var scores mat.Dense
	scores.Mul(X, W.T())
	for i := 0; i < nSamples; i++ {
		for k, b := range lr.intercept_ {
			scores.Set(i, k, scores.At(i, k)+b)
		}
	}
	return &scores
}

// Predict returns the predicted class label of every sample as a column vector
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkInput(X, "Predict"); err != nil {
		return nil, err
	}
	scores := lr.decision(X)
	nSamples, nRows := scores.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if nRows == 1 {
			label := lr.classes_[0]
			if scores.At(i, 0) > 0 {
				label = lr.classes_[1]
			}
			predictions.Set(i, 0, float64(label))
			continue
		}
		best := 0
		for k := 1; k < nRows; k++ {
			if scores.At(i, k) > scores.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class, columns ordered
// as Classes(). Every row sums to 1.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkInput(X, "PredictProba"); err != nil {
		return nil, err
	}
	scores := lr.decision(X)
	nSamples, nRows := scores.Dims()
	nClasses := len(lr.classes_)
	probas := mat.NewDense(nSamples, nClasses, nil)

	// rows are independent, each worker writes only its own range
	parallel.ParallelizeWithThreshold(nSamples, lr.parallelThreshold, func(start, end int) {
		row := make([]float64, nRows)
		for i := start; i < end; i++ {
			mat.Row(row, i, scores)
			switch {
			case nRows == 1:
				p := sigmoid(row[0])
				probas.Set(i, 0, 1-p)
				probas.Set(i, 1, p)
			case lr.multinomial:
				lse := errors.LogSumExp(row)
				for k, z := range row {
					probas.Set(i, k, math.Exp(z-lse))
				}
			default:
				// OvR: normalise the independent sigmoids
				sum := 0.0
				for k, z := range row {
					row[k] = sigmoid(z)
					sum += row[k]
				}
				for k, p := range row {
					probas.Set(i, k, p/sum)
				}
			}
		}
	})
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := predictions.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the class labels seen during fitting, ascending
func (lr *LogisticRegression) Classes() []int {
	out := make([]int, len(lr.classes_))
	copy(out, lr.classes_)
	return out
}

// Coef returns a copy of the coefficient matrix
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for i, row := range lr.coef_ {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Intercept returns a copy of the intercepts
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// NIter returns the solver iterations of each fitted model
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// IsMultinomial reports whether the fitted model uses a softmax over all classes
func (lr *LogisticRegression) IsMultinomial() bool {
	return lr.multinomial
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"random_state":  lr.randomState,
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"multi_class":   lr.multiClass,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "class_weight":
			lr.classWeight, ok = value.(string)
		case "random_state":
			lr.randomState, ok = value.(int64)
		case "solver":
			lr.solver, ok = value.(string)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "multi_class":
			lr.multiClass, ok = value.(string)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return lr.validate()
}

// ExportWeights returns the fitted coefficients. classNames maps the model's
// integer classes to display names (nil uses the integers); featureNames is
// optional.
func (lr *LogisticRegression) ExportWeights(classNames, featureNames []string) (*model.ClassifierWeights, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "ExportWeights"); err != nil {
		return nil, err
	}
	names := make([]string, len(lr.classes_))
	for i, c := range lr.classes_ {
		names[i] = fmt.Sprint(c)
		if c >= 0 && c < len(classNames) {
			names[i] = classNames[c]
		}
	}
	w := &model.ClassifierWeights{
		ModelType:       "LogisticRegression",
		Version:         model.WeightsVersion,
		Classes:         names,
		Features:        featureNames,
		Coefficients:    lr.Coef(),
		Intercepts:      lr.Intercept(),
		Multinomial:     lr.multinomial,
		Hyperparameters: lr.GetParams(),
	}
	return w, w.Validate()
}

// ImportWeights restores a model from exported weights. Class names that all
// parse as integers become the class labels; otherwise classes are numbered
// 0..k-1 in the exported order, matching a LabelEncoder's codes.
func (lr *LogisticRegression) ImportWeights(w *model.ClassifierWeights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ModelType != "LogisticRegression" {
		return errors.NewValidationError("model_type", "expected LogisticRegression", w.ModelType)
	}
	nRows, nClasses := len(w.Coefficients), len(w.Classes)
	switch {
	case nClasses < 2:
		return errors.NewValidationError("classes", "at least 2 classes are required", nClasses)
	case nRows == 1 && (nClasses != 2 || w.Multinomial):
		return errors.NewDimensionError("LogisticRegression.ImportWeights", nClasses, nRows, 0)
	case nRows > 1 && nRows != nClasses:
		return errors.NewDimensionError("LogisticRegression.ImportWeights", nClasses, nRows, 0)
	}

	classes := make([]int, nClasses)
	numeric := true
	for i, name := range w.Classes {
		c, err := strconv.Atoi(name)
		if err != nil || (i > 0 && c <= classes[i-1]) {
			numeric = false
			break
		}
		classes[i] = c
	}
	if !numeric {
		for i := range classes {
			classes[i] = i
		}
	}

	lr.state.Reset()
	lr.classes_ = classes
	lr.coef_ = make([][]float64, nRows)
	for i, row := range w.Coefficients {
		lr.coef_[i] = append([]float64(nil), row...)
	}
	lr.intercept_ = append([]float64(nil), w.Intercepts...)
	lr.multinomial = w.Multinomial
	lr.nIter_ = nil
	lr.loss_ = 0
	lr.state.SetDimensions(len(w.Coefficients[0]), 0)
	lr.state.SetFitted()
	return nil
}

var _ model.Classifier = (*LogisticRegression)(nil)
