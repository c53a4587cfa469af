package pgjson

// Logger provides a pluggable logging interface for pgjson operations.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(format string, args ...interface{})

	// Info logs informational messages about normal operations.
	// Always logged regardless of verbose mode.
	Info(format string, args ...interface{})

	// Error logs error messages.
	// Always logged regardless of verbose mode.
	Error(format string, args ...interface{})
}

// ProgressReporter observes the import pipeline step by step.
// Implementations must be safe for use from a goroutine other than the one
// that renders them.
type ProgressReporter interface {
	StepStarted(step Step)
	StepCompleted(step Step, detail string)
	StepFailed(step Step, err error)
}
