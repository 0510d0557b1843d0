package errors

import "fmt"

// AppError represents an application error with additional context
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	ExitCode int         `json:"-"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Exit codes for the CLI surface. ExitViolations signals a clean run
// that found violations, distinct from a failed run.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitViolations = 2
)

// Common error codes
const (
	ErrCodeCatalogNotFound     = "CATALOG_NOT_FOUND"
	ErrCodeCatalogCorrupt      = "CATALOG_CORRUPT"
	ErrCodeControlNotFound     = "CONTROL_NOT_FOUND"
	ErrCodeDuplicateControl    = "DUPLICATE_CONTROL"
	ErrCodeBlockNotFound       = "CONTROL_BLOCK_NOT_FOUND"
	ErrCodeMalformedPolicyFile = "MALFORMED_POLICY_FILE"
	ErrCodeToggleWrite         = "TOGGLE_WRITE_ERROR"
	ErrCodeEvaluationEngine    = "EVALUATION_ENGINE_ERROR"
	ErrCodeInvalidDocument     = "INVALID_DOCUMENT"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeWriteFailed         = "WRITE_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: ExitFailure,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: ExitFailure,
		Internal: err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// CatalogNotFound reports a missing catalog file
func CatalogNotFound(path string) *AppError {
	return New(ErrCodeCatalogNotFound, fmt.Sprintf("catalog file not found: %s", path))
}

// CatalogCorrupt reports an unparseable catalog file
func CatalogCorrupt(path string, err error) *AppError {
	return Wrap(err, ErrCodeCatalogCorrupt, fmt.Sprintf("catalog file is not valid YAML: %s", path))
}

// ControlNotFound reports an unknown control id
func ControlNotFound(id string) *AppError {
	return New(ErrCodeControlNotFound, fmt.Sprintf("control %s not found in catalog", id))
}

// DuplicateControl reports an id collision on add
func DuplicateControl(id string) *AppError {
	return New(ErrCodeDuplicateControl, fmt.Sprintf("control %s already exists in catalog", id))
}

// BlockNotFound reports a missing control marker in a policy file
func BlockNotFound(id, path string) *AppError {
	return New(ErrCodeBlockNotFound, fmt.Sprintf("control block %s not found in %s", id, path))
}

// MalformedPolicyFile reports duplicate control markers in one file
func MalformedPolicyFile(path, message string) *AppError {
	return New(ErrCodeMalformedPolicyFile, fmt.Sprintf("malformed policy file %s: %s", path, message))
}

// ToggleWrite reports a failed in-place rewrite; prior state was restored
func ToggleWrite(path string, err error) *AppError {
	return Wrap(err, ErrCodeToggleWrite, fmt.Sprintf("failed to rewrite %s, original restored", path))
}

// EvaluationEngine reports a crashed or unparseable engine run
func EvaluationEngine(group string, err error) *AppError {
	return Wrap(err, ErrCodeEvaluationEngine, fmt.Sprintf("evaluation engine failed for group %s", group))
}

// InvalidDocument reports a malformed infrastructure-change document
func InvalidDocument(path string, err error) *AppError {
	return Wrap(err, ErrCodeInvalidDocument, fmt.Sprintf("invalid plan document: %s", path))
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message).WithDetails(details)
}

// WriteFailed reports a filesystem write error with the attempted path
func WriteFailed(path string, err error) *AppError {
	return Wrap(err, ErrCodeWriteFailed, fmt.Sprintf("failed to write %s", path))
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}
