// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Resolution errors
	CodeChannelNotBound Code = "CHANNEL_NOT_BOUND"
	CodeChannelNotFound Code = "CHANNEL_NOT_FOUND"
	CodeEventsNotFound  Code = "EVENTS_NOT_FOUND"

	// Data model errors
	CodeChannelIDInvalid Code = "CHANNEL_ID_INVALID"
	CodeLengthMismatch   Code = "LENGTH_MISMATCH"
	CodeEventInvalid     Code = "EVENT_INVALID"

	// Derived-channel errors
	CodeUnknownOperation    Code = "UNKNOWN_OPERATION"
	CodeInsufficientSources Code = "INSUFFICIENT_SOURCES"
	CodeProcessingFailed    Code = "PROCESSING_FAILED"
	CodeProvenanceCycle     Code = "PROVENANCE_CYCLE"

	// Pipeline errors
	CodePipelineConfigInvalid Code = "PIPELINE_CONFIG_INVALID"
	CodeStepDependencyUnmet   Code = "STEP_DEPENDENCY_UNMET"
	CodeStepExecutionError    Code = "STEP_EXECUTION_ERROR"

	// Storage errors
	CodeStorageError Code = "STORAGE_ERROR"
)
