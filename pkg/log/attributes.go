// Standard attribute keys for nutriclass log records.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so records from the different stages can be filtered consistently.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "LogisticRegression", "MinMaxScaler", "LabelEncoder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline stage.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	PathKey     = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy, in [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// LossKey records the objective value at the end of training.
	LossKey = "metrics.loss"

	// IterationKey records the number of solver iterations.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Populated automatically by the zerolog backend.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RegularizationKey records the inverse regularization strength C.
	RegularizationKey = "hyperparams.C"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseLoading       = "loading"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
)
