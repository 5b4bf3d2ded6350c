package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies failures so callers can branch without string matching
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindDataFormat   Kind = "data_format"
	KindModel        Kind = "model"
	KindConfig       Kind = "config"
	KindInternal     Kind = "internal"
)

// Error represents a structured pipeline error
type Error struct {
	Kind    Kind                   `json:"kind"`
	Code    string                 `json:"code"`
	Op      string                 `json:"op,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on error code so sentinel values work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && t.Op == "" && t.Err == nil
}

// New creates an Error of the given kind
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates an Error carrying additional details
func NewWithDetails(kind Kind, code, message string, details map[string]interface{}) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Sentinels for errors.Is checks
var (
	ErrInvalidInput  = New(KindInvalidInput, "INVALID_INPUT", "invalid input")
	ErrEmptySeries   = New(KindInvalidInput, "EMPTY_SERIES", "series is empty")
	ErrUnknownWell   = New(KindInvalidInput, "UNKNOWN_WELL", "well not found")
	ErrDataFormat    = New(KindDataFormat, "DATA_FORMAT", "malformed input data")
	ErrMissingColumn = New(KindDataFormat, "MISSING_COLUMN", "required column missing")
	ErrModelFailed   = New(KindModel, "MODEL_FAILED", "model failed")
	ErrConfigInvalid = New(KindConfig, "CONFIG_INVALID", "configuration validation failed")
)

// InvalidInput creates an invalid input error for op
func InvalidInput(op, message string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Code:    "INVALID_INPUT",
		Op:      op,
		Message: message,
	}
}

// EmptySeries reports an empty series passed to op
func EmptySeries(op string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Code:    "EMPTY_SERIES",
		Op:      op,
		Message: "series is empty",
	}
}

// UnknownWell reports a well id with no eligible records
func UnknownWell(wellID string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Code:    "UNKNOWN_WELL",
		Op:      "select well",
		Message: "no eligible records for well",
		Details: map[string]interface{}{"well_id": wellID},
	}
}

// DataFormat reports a malformed value at a given input line
func DataFormat(line int, field string, err error) *Error {
	return &Error{
		Kind:    KindDataFormat,
		Code:    "DATA_FORMAT",
		Op:      "load",
		Message: fmt.Sprintf("invalid %s", field),
		Details: map[string]interface{}{"line": line, "field": field},
		Err:     err,
	}
}

// MissingColumn reports a required column absent from the input header
func MissingColumn(column string) *Error {
	return &Error{
		Kind:    KindDataFormat,
		Code:    "MISSING_COLUMN",
		Op:      "load",
		Message: fmt.Sprintf("column %q not found", column),
		Details: map[string]interface{}{"column": column},
	}
}

// ModelFailure wraps a fit or forecast failure for the named model
func ModelFailure(model string, err error) *Error {
	return &Error{
		Kind:    KindModel,
		Code:    "MODEL_FAILED",
		Op:      model,
		Message: "model failed",
		Err:     err,
	}
}

// ValidationError represents a single invalid configuration field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationErrors creates a config error from field failures
func NewValidationErrors(errs []ValidationError) *Error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return &Error{
		Kind:    KindConfig,
		Code:    "CONFIG_INVALID",
		Op:      "config",
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": len(errs)},
		Err:     &FieldErrors{Errors: errs},
	}
}

// FieldErrors carries the individual validation failures
type FieldErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (f *FieldErrors) Error() string {
	fields := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		fields = append(fields, e.Field)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// IsKind reports whether any error in the chain has the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the first structured error in the chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
