// Package log defines standard attribute keys for robustness runs.
//
// Keys follow the hierarchical "group.name" convention so log lines from the
// generator, the evaluation engine and the recorder can be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or collaborator.
	// Examples: "MultinomialNB", "CountVectorizer"
	ModelNameKey = "model.name"

	// ModelVersionKey is the version identifier of a loaded model artifact.
	ModelVersionKey = "model.version"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "mutation", "evaluation", "recorder"
	ComponentKey = "ml.component"

	// RunIDKey tags every line of one evaluation run.
	RunIDKey = "run.id"

	// CategoryKey is the metric category of a run.
	// Examples: "METAMORPHIC_TESTING", "MUTAMORPHIC_TESTING"
	CategoryKey = "run.category"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (vocabulary size).
	FeaturesKey = "data.features"

	// SubsetKey is the partition index (0..3) a row belongs to.
	SubsetKey = "data.subset"

	// PathKey is the file an artifact is read from or written to.
	PathKey = "data.path"
)

// Transformation Context
const (
	// TransformationKey names the transformation applied.
	TransformationKey = "transform.name"

	// SeedKey records the random seed for reproducibility.
	SeedKey = "config.random_seed"
)

// Robustness Metrics
const (
	ConsistencyRateKey       = "robustness.consistency_rate"
	LabelPreservationRateKey = "robustness.label_preservation_rate"
	FlippingRateKey          = "robustness.flipping_rate"
	AccuracyDropKey          = "robustness.accuracy_drop"
	AccuracyKey              = "metrics.accuracy"
)

// Metrics store
const (
	// StorePathKey is the metrics document location.
	StorePathKey = "store.path"

	// MetricNameKey is the name a metric is upserted under.
	MetricNameKey = "store.metric"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationGenerate  = "generate"
	OperationEvaluate  = "evaluate"
	OperationRecord    = "record"
)
