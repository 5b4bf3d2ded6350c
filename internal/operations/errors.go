package operations

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies step failures
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
)

// OperationError is a step failure tagged with the step it happened in
type OperationError struct {
	Type    ErrorType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Type)
	if e.Step != "" {
		b.WriteString(e.Step)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func stepError(t ErrorType, step, message string, cause error) *OperationError {
	return &OperationError{Type: t, Step: step, Message: message, Cause: cause}
}

// NewValidationError reports that a step's inputs were missing
func NewValidationError(step string, cause error) *OperationError {
	return stepError(ErrorTypeValidation, step, "step validation failed", cause)
}

// NewExecutionError wraps a failure returned by a step
func NewExecutionError(step string, cause error) *OperationError {
	return stepError(ErrorTypeExecution, step, "step execution failed", cause)
}

// NewCancellationError reports that the run stopped before step started
func NewCancellationError(step string, cause error) *OperationError {
	return stepError(ErrorTypeCancellation, step, "run cancelled", cause)
}

// NewFatalError reports a pipeline that cannot be built or started
func NewFatalError(message string, cause error) *OperationError {
	return stepError(ErrorTypeFatal, "", message, cause)
}

// GetErrorType classifies err; errors from outside the package count as
// execution failures
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// FailedStep returns the id of the step err came from, or ""
func FailedStep(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Step
	}
	return ""
}
