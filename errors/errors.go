// Package errors provides custom error types for the synchronization engine
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeStrategy           ErrorCode = "STRATEGY_ERROR"
	ErrCodeMaxRetriesExceeded ErrorCode = "MAX_RETRIES_EXCEEDED"
	ErrCodeNonRetryable       ErrorCode = "NON_RETRYABLE_ERROR"
	ErrCodeComparison         ErrorCode = "COMPARISON_FAILURE"
	ErrCodeConflict           ErrorCode = "CONFLICT_FAILURE"
	ErrCodeSync               ErrorCode = "SYNC_FAILURE"
)

// Operation represents the type of engine operation
type Operation string

const (
	OpValidate Operation = "validate"
	OpCompare  Operation = "compare"
	OpDetect   Operation = "detect_conflicts"
	OpResolve  Operation = "handle_conflicts"
	OpSync     Operation = "sync"
	OpApply    Operation = "apply"
	OpRetry    Operation = "retry"
	OpLoad     Operation = "load"
	OpConfig   Operation = "config"
)

// Stage identifies the orchestration pipeline stage an error originated from.
type Stage string

const (
	StageValidation        Stage = "VALIDATION"
	StageComparison        Stage = "COMPARISON"
	StageConflictDetection Stage = "CONFLICT_DETECTION"
	StageSync              Stage = "SYNC"
)

// Kind classifies errors independently from their code.
type Kind string

const (
	KindInvalid   Kind = "invalid"
	KindInternal  Kind = "internal"
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

// SyncError represents an error that occurred during synchronization
type SyncError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "compare", "strategy")
	Component string

	// Stage of the orchestration pipeline, if known
	Stage Stage

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error type
	Code ErrorCode

	Kind Kind

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *SyncError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}
	if e.Stage != "" {
		msg += fmt.Sprintf(" (stage %s)", e.Stage)
	}

	if e.Err == nil {
		return msg
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewInvalidInput creates an INVALID_INPUT error. Input errors are never retried.
func NewInvalidInput(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:  ErrCodeInvalidInput,
		Op:    op,
		Stage: StageValidation,
		Kind:  KindInvalid,
		Err:   cause,
	}
}

// NewStrategyError creates a STRATEGY_ERROR for a batch write that failed after its retries.
func NewStrategyError(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeStrategy,
		Op:        op,
		Component: "strategy",
		Kind:      KindInternal,
		Err:       cause,
	}
}

// NewMaxRetriesExceeded creates a terminal MAX_RETRIES_EXCEEDED error.
func NewMaxRetriesExceeded(attempts int, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeMaxRetriesExceeded,
		Op:        OpRetry,
		Component: "retry",
		Kind:      KindPermanent,
		Err:       fmt.Errorf("maximum retries exceeded after %d attempts: %w", attempts, cause),
		Metadata:  map[string]interface{}{"attempts": attempts},
	}
}

// NewNonRetryable creates a terminal NON_RETRYABLE_ERROR.
func NewNonRetryable(op Operation, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeNonRetryable,
		Op:        op,
		Component: "retry",
		Kind:      KindPermanent,
		Err:       cause,
	}
}

// NewStageError tags cause with the pipeline stage it came from.
func NewStageError(stage Stage, op Operation, code ErrorCode, cause error) *SyncError {
	return &SyncError{
		Code:      code,
		Op:        op,
		Stage:     stage,
		Component: "orchestrator",
		Err:       cause,
		Retryable: IsRetryable(cause),
	}
}

// New creates a new SyncError
func New(op Operation, err error) *SyncError {
	return &SyncError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new SyncError with component information
func NewWithComponent(op Operation, component string, err error) *SyncError {
	return &SyncError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// NewRetryable creates a new retryable SyncError
func NewRetryable(op Operation, err error) *SyncError {
	return &SyncError{
		Op:        op,
		Err:       err,
		Retryable: true,
		Kind:      KindTransient,
	}
}

// Component is a builder argument for E.
type Component string

// E builds a SyncError from its arguments. Recognised argument types are
// Operation, Component, Stage, Kind, ErrorCode, error and string; strings are
// collected as a "details" metadata entry.
func E(args ...interface{}) error {
	e := &SyncError{}
	var details []string
	for _, arg := range args {
		switch a := arg.(type) {
		case Operation:
			e.Op = a
		case Component:
			e.Component = string(a)
		case Stage:
			e.Stage = a
		case Kind:
			e.Kind = a
			e.Retryable = a == KindTransient
		case ErrorCode:
			e.Code = a
		case *SyncError:
			e.Err = a
			if e.Code == "" {
				e.Code = a.Code
			}
		case error:
			e.Err = a
		case string:
			details = append(details, a)
		}
	}
	if len(details) > 0 {
		e.Metadata = map[string]interface{}{"details": strings.Join(details, "; ")}
	}
	return e
}

// IsRetryable checks if an error is a retryable SyncError
func IsRetryable(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable
	}
	return false
}

// CodeOf returns the code of the outermost SyncError in err's chain.
func CodeOf(err error) ErrorCode {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Code
	}
	return ""
}

// StageOf returns the first non-empty stage found in err's chain.
func StageOf(err error) Stage {
	for err != nil {
		var syncErr *SyncError
		if !errors.As(err, &syncErr) {
			return ""
		}
		if syncErr.Stage != "" {
			return syncErr.Stage
		}
		err = syncErr.Err
	}
	return ""
}

// HasCode reports whether any SyncError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var syncErr *SyncError
		if !errors.As(err, &syncErr) {
			return false
		}
		if syncErr.Code == code {
			return true
		}
		err = syncErr.Err
	}
	return false
}
