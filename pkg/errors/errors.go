// Package errors provides a structured error system for multiply-core with error codes, categories, and context.
package errors

import (
	"encoding/json"
	stderr "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for multiply-core operations.
type ErrorCode string

// Error code constants grouped by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave       ErrorCode = "CONFIG_SAVE"

	// Classification Errors
	ErrCodeUnknownType       ErrorCode = "UNKNOWN_TYPE"
	ErrCodeFilterUnsupported ErrorCode = "FILTER_UNSUPPORTED"
	ErrCodeInvalidPattern    ErrorCode = "INVALID_PATTERN"

	// Metadata Errors
	ErrCodeMetadataMissing   ErrorCode = "METADATA_MISSING"
	ErrCodeMetadataMalformed ErrorCode = "METADATA_MALFORMED"

	// Geometry / Raster Errors
	ErrCodeDataAccess      ErrorCode = "DATA_ACCESS"
	ErrCodeTransformFailed ErrorCode = "TRANSFORM_FAILED"
	ErrCodeWarpFailed      ErrorCode = "WARP_FAILED"
	ErrCodeInvalidGrid     ErrorCode = "INVALID_GRID"
	ErrCodeInvalidRegion   ErrorCode = "INVALID_REGION"

	// Aux Data / Storage Errors
	ErrCodeAuxListFailed  ErrorCode = "AUX_LIST_FAILED"
	ErrCodeAuxFetchFailed ErrorCode = "AUX_FETCH_FAILED"
	ErrCodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeAccessDenied   ErrorCode = "ACCESS_DENIED"
	ErrCodePathInvalid    ErrorCode = "PATH_INVALID"

	// Connection Errors
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"

	// Operation Errors
	ErrCodeOperationTimeout  ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeOperationCanceled ErrorCode = "OPERATION_CANCELED"
	ErrCodeRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"

	// Internal System Errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknownError  ErrorCode = "UNKNOWN_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryClassification ErrorCategory = "classification"
	CategoryMetadata       ErrorCategory = "metadata"
	CategoryGeometry       ErrorCategory = "geometry"
	CategoryStorage        ErrorCategory = "storage"
	CategoryConnection     ErrorCategory = "connection"
	CategoryOperation      ErrorCategory = "operation"
	CategoryInternal       ErrorCategory = "internal"
)

var categories = map[ErrorCode]ErrorCategory{
	ErrCodeInvalidConfig:     CategoryConfiguration,
	ErrCodeMissingConfig:     CategoryConfiguration,
	ErrCodeConfigValidation:  CategoryConfiguration,
	ErrCodeConfigLoad:        CategoryConfiguration,
	ErrCodeConfigSave:        CategoryConfiguration,
	ErrCodeUnknownType:       CategoryClassification,
	ErrCodeFilterUnsupported: CategoryClassification,
	ErrCodeInvalidPattern:    CategoryClassification,
	ErrCodeMetadataMissing:   CategoryMetadata,
	ErrCodeMetadataMalformed: CategoryMetadata,
	ErrCodeDataAccess:        CategoryGeometry,
	ErrCodeTransformFailed:   CategoryGeometry,
	ErrCodeWarpFailed:        CategoryGeometry,
	ErrCodeInvalidGrid:       CategoryGeometry,
	ErrCodeInvalidRegion:     CategoryGeometry,
	ErrCodeAuxListFailed:     CategoryStorage,
	ErrCodeAuxFetchFailed:    CategoryStorage,
	ErrCodeObjectNotFound:    CategoryStorage,
	ErrCodeBucketNotFound:    CategoryStorage,
	ErrCodeAccessDenied:      CategoryStorage,
	ErrCodePathInvalid:       CategoryStorage,
	ErrCodeConnectionFailed:  CategoryConnection,
	ErrCodeConnectionTimeout: CategoryConnection,
	ErrCodeNetworkError:      CategoryConnection,
	ErrCodeCircuitOpen:       CategoryConnection,
	ErrCodeOperationTimeout:  CategoryOperation,
	ErrCodeOperationCanceled: CategoryOperation,
	ErrCodeRetryExhausted:    CategoryOperation,
}

// MultiplyError represents a structured error with context and metadata.
type MultiplyError struct {
	// Core error information
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	// Contextual information
	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`

	// Operational metadata
	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`

	// Error handling hints
	Retryable  bool `json:"retryable"`
	UserFacing bool `json:"user_facing"`

	// Debug information
	Stack string `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *MultiplyError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, msg)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *MultiplyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *MultiplyError) Is(target error) bool {
	if other, ok := target.(*MultiplyError); ok {
		return e.Code == other.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *MultiplyError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("MultiplyError{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *MultiplyError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values derived from the code.
func NewError(code ErrorCode, message string) *MultiplyError {
	return &MultiplyError{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Timestamp:  time.Now(),
		Details:    make(map[string]interface{}),
		Context:    make(map[string]string),
		Retryable:  IsRetryableByDefault(code),
		UserFacing: IsUserFacingByDefault(code),
	}
}

// Newf creates a new error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *MultiplyError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error with the given cause.
func Wrap(cause error, code ErrorCode, message string) *MultiplyError {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	if category, ok := categories[code]; ok {
		return category
	}
	return CategoryInternal
}

// IsRetryableByDefault determines if an error is retryable by default.
func IsRetryableByDefault(code ErrorCode) bool {
	switch code {
	case ErrCodeConnectionTimeout, ErrCodeConnectionFailed, ErrCodeNetworkError,
		ErrCodeOperationTimeout, ErrCodeAuxFetchFailed, ErrCodeAuxListFailed:
		return true
	default:
		return false
	}
}

// IsUserFacingByDefault determines if an error should be shown to users.
func IsUserFacingByDefault(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeMissingConfig, ErrCodeConfigValidation,
		ErrCodeUnknownType, ErrCodeFilterUnsupported, ErrCodeMetadataMissing,
		ErrCodeMetadataMalformed, ErrCodeDataAccess, ErrCodeInvalidGrid,
		ErrCodeInvalidRegion, ErrCodePathInvalid, ErrCodeAccessDenied,
		ErrCodeObjectNotFound:
		return true
	default:
		return false
	}
}

// HasCode reports whether err, or any error it wraps, is a MultiplyError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var me *MultiplyError
	for err != nil {
		if stderr.As(err, &me) {
			if me.Code == code {
				return true
			}
			err = me.Cause
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the outermost MultiplyError in err's chain.
func CodeOf(err error) ErrorCode {
	var me *MultiplyError
	if stderr.As(err, &me) {
		return me.Code
	}
	if err == nil {
		return ""
	}
	return ErrCodeUnknownError
}

// CaptureStack captures the current stack trace for debugging.
func CaptureStack(skip int) string {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "errors.go") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return strings.Join(stack, "\n")
}

// WithContext adds contextual information to an error
func (e *MultiplyError) WithContext(key, value string) *MultiplyError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *MultiplyError) WithDetail(key string, value interface{}) *MultiplyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *MultiplyError) WithComponent(component string) *MultiplyError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *MultiplyError) WithOperation(operation string) *MultiplyError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *MultiplyError) WithCause(cause error) *MultiplyError {
	e.Cause = cause
	return e
}

// WithStack captures the current stack trace
func (e *MultiplyError) WithStack() *MultiplyError {
	e.Stack = CaptureStack(2)
	return e
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *MultiplyError) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeFilterUnsupported: "This data type cannot be filtered by region or time. " +
			"Query SupportsSpatioTemporalFilter before filtering, or filter the type by name only.",
		ErrCodeUnknownType: "The data type is not registered. " +
			"List the known types with `multiply types` or declare the variable in the variables library.",
		ErrCodeMetadataMissing: "The product manifest could not be found. " +
			"Check that the product directory is complete.",
		ErrCodeDataAccess: "The raster could not be opened. " +
			"Check that the path exists and that GDAL supports its format.",
		ErrCodeTransformFailed: "Coordinates could not be transformed between the reference systems. " +
			"Check the bounds reference system and the destination reference system.",
		ErrCodeInvalidConfig: "Configuration validation failed. " +
			"Check your configuration file syntax and required parameters.",
		ErrCodeAccessDenied: "Credentials lack the permissions needed to read auxiliary data. " +
			"Check that your IAM policy grants s3:GetObject and s3:ListBucket.",
		ErrCodeConnectionTimeout: "The auxiliary data store did not answer in time. " +
			"Consider increasing aux_data.s3.request_timeout.",
		ErrCodeCircuitOpen: "Recent requests to the auxiliary data store kept failing. " +
			"Requests resume after aux_data.s3.breaker_timeout.",
	}

	if rec, exists := recommendations[e.Code]; exists {
		return rec
	}
	return "Please check the error message for details."
}

// UserFacingMessage returns a simplified message suitable for end users
func (e *MultiplyError) UserFacingMessage() string {
	if !e.UserFacing {
		return "An internal error occurred."
	}
	return e.Message
}
