package pgjson

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds of an import.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	_, err := importer.Import(ctx, cfg)
//	if errors.Is(err, pgjson.ErrMalformedRecord) {
//	    // the input contains a line that is not a JSON object
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFileNotFound indicates the input file does not exist or cannot be opened.
	ErrFileNotFound = errors.New("input file not found")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrMalformedRecord indicates an input line is not valid JSON or not a JSON object.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrIdentifierConflict indicates a table or column name is taken or unusable.
	ErrIdentifierConflict = errors.New("identifier conflict")

	// ErrConstraintViolation indicates the database rejected the data
	// (integrity constraint, program limit, value too long).
	ErrConstraintViolation = errors.New("database constraint violation")

	// ErrExecutionFailed indicates SQL execution failed for any other reason.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// StepError records which import step failed and the failure kind.
// It unwraps to both Kind and Err so errors.Is matches the sentinel while
// errors.As still reaches the driver error (e.g. *pgconn.PgError).
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// RecordError pinpoints a bad input line. Line is 1-based.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// usageErrorPatterns match the messages cobra and pflag produce for bad invocations.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"requires at least",
	"required flag",
	"invalid argument",
	"flag needs an argument",
	"missing required argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrFileNotFound):
		return ExitFileNotFound
	case errors.Is(err, ErrMalformedRecord):
		return ExitMalformedRecord
	case errors.Is(err, ErrIdentifierConflict):
		return ExitIdentifierConflict
	case errors.Is(err, ErrConstraintViolation):
		return ExitConstraintViolation
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	}

	errStr := err.Error()
	for _, p := range usageErrorPatterns {
		if strings.Contains(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
