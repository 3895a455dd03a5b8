// Package errors provides the structured error model shared by workers, services and the
// HTTP API, and its conversion to workflow-engine BPMN errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeLeadValidationFailed ErrorCode = "LEAD_VALIDATION_FAILED"
	ErrCodeDuplicateLead        ErrorCode = "DUPLICATE_LEAD"
	ErrCodePatientNotFound      ErrorCode = "PATIENT_NOT_FOUND"
	ErrCodeTherapistNotFound    ErrorCode = "THERAPIST_NOT_FOUND"

	ErrCodeVerificationExpired     ErrorCode = "VERIFICATION_EXPIRED"
	ErrCodeVerificationMismatch    ErrorCode = "VERIFICATION_MISMATCH"
	ErrCodeVerificationLocked      ErrorCode = "VERIFICATION_LOCKED"
	ErrCodeVerificationStoreFailed ErrorCode = "VERIFICATION_STORE_FAILED"
	ErrCodeUnsupportedChannel      ErrorCode = "UNSUPPORTED_CHANNEL"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeBookingPlatformFailed  ErrorCode = "BOOKING_PLATFORM_FAILED"
	ErrCodeBookingPlatformTimeout ErrorCode = "BOOKING_PLATFORM_TIMEOUT"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTemplateNotFound       ErrorCode = "TEMPLATE_NOT_FOUND"

	ErrCodeConversionUploadFailed ErrorCode = "CONVERSION_UPLOAD_FAILED"

	ErrCodeWorkflowEngineFailed  ErrorCode = "WORKFLOW_ENGINE_FAILED"
	ErrCodeWorkflowEngineTimeout ErrorCode = "WORKFLOW_ENGINE_TIMEOUT"

	ErrCodeInvalidJobInput ErrorCode = "INVALID_JOB_INPUT"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables attached to a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewLeadValidationError(details string) *StandardError {
	return newError(ErrCodeLeadValidationFailed, "Lead data validation failed", details, false, nil)
}

func NewDuplicateLeadError(email string) *StandardError {
	return newError(ErrCodeDuplicateLead, "Lead already exists", fmt.Sprintf("email: %s", email), false, nil)
}

func NewPatientNotFoundError(patientID string) *StandardError {
	return newError(ErrCodePatientNotFound, "Patient not found", fmt.Sprintf("patientId: %s", patientID), false, nil)
}

func NewTherapistNotFoundError(therapistID string) *StandardError {
	return newError(ErrCodeTherapistNotFound, "Therapist not found", fmt.Sprintf("therapistId: %s", therapistID), false, nil)
}

func NewVerificationExpiredError() *StandardError {
	return newError(ErrCodeVerificationExpired, "Verification code expired or not issued", "", false, nil)
}

func NewVerificationMismatchError(attemptsLeft int) *StandardError {
	return newError(ErrCodeVerificationMismatch, "Verification code does not match", "", false, nil).
		WithMetadata("attemptsLeft", attemptsLeft)
}

func NewVerificationLockedError() *StandardError {
	return newError(ErrCodeVerificationLocked, "Too many verification attempts", "", false, nil)
}

func NewVerificationStoreError(err error) *StandardError {
	return newError(ErrCodeVerificationStoreFailed, "Verification store unavailable", detailsOf(err), true, err)
}

func NewUnsupportedChannelError(channel string) *StandardError {
	return newError(ErrCodeUnsupportedChannel, "Unsupported contact channel", fmt.Sprintf("channel: %s", channel), false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", detailsOf(err), true, err)
}

func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", queryName, detailsOf(err)), true, err)
}

func NewQueryTimeoutError(queryName string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("query: %s", queryName), true, nil)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", detailsOf(err), true, err)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Directory search failed",
		fmt.Sprintf("index: %s, error: %s", index, detailsOf(err)), true, err)
}

func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Search index not found", fmt.Sprintf("index: %s", index), false, nil)
}

func NewBookingPlatformError(operation string, err error) *StandardError {
	return newError(ErrCodeBookingPlatformFailed, "Booking platform request failed",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), true, err)
}

func NewBookingPlatformTimeoutError(operation string) *StandardError {
	return newError(ErrCodeBookingPlatformTimeout, "Booking platform timeout", fmt.Sprintf("operation: %s", operation), true, nil)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, detailsOf(err)), true, err)
}

func NewTemplateNotFoundError(templateID string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in registry", fmt.Sprintf("templateId: %s", templateID), false, nil)
}

func NewConversionUploadFailedError(err error) *StandardError {
	return newError(ErrCodeConversionUploadFailed, "Conversion upload failed", detailsOf(err), true, err)
}

func NewWorkflowEngineError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowEngineFailed, "Workflow engine request failed",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), true, err)
}

func NewWorkflowEngineTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowEngineTimeout, "Workflow engine timeout",
		fmt.Sprintf("operation: %s, error: %s", operation, detailsOf(err)), true, err)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Unauthorized", details, false, nil)
}

func NewInvalidJobInputError(err error) *StandardError {
	return newError(ErrCodeInvalidJobInput, "Failed to parse job variables", detailsOf(err), false, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternalError, "Unexpected error", detailsOf(err), false, err)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns how many times the workflow engine should retry a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeBookingPlatformFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeConversionUploadFailed,
		ErrCodeVerificationStoreFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeBookingPlatformTimeout,
		ErrCodeWorkflowEngineTimeout:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode reports whether code is retried at all.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ConvertToBPMNError converts a StandardError for the workflow engine. BPMN codes equal the
// internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// AsStandardError finds a StandardError anywhere in err's chain, or wraps err as an
// internal error.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeLeadValidationFailed, ErrCodeUnsupportedChannel, ErrCodeVerificationMismatch,
		ErrCodeVerificationExpired, ErrCodeInvalidJobInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodePatientNotFound, ErrCodeTherapistNotFound, ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateLead:
		return http.StatusConflict
	case ErrCodeVerificationLocked:
		return http.StatusTooManyRequests
	case ErrCodeBookingPlatformFailed, ErrCodeBookingPlatformTimeout, ErrCodeNotificationSendFailed,
		ErrCodeConversionUploadFailed, ErrCodeSearchQueryFailed, ErrCodeWorkflowEngineFailed,
		ErrCodeWorkflowEngineTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory groups codes for logs and dashboards.
func GetErrorCategory(code ErrorCode) string {
	s := string(code)
	switch {
	case strings.HasPrefix(s, "VERIFICATION") || s == string(ErrCodeUnsupportedChannel):
		return "VERIFICATION"
	case strings.Contains(s, "DATABASE") || strings.Contains(s, "QUERY"):
		return "DATABASE"
	case strings.Contains(s, "SEARCH") || strings.Contains(s, "INDEX"):
		return "SEARCH"
	case strings.HasPrefix(s, "BOOKING"):
		return "BOOKING"
	case strings.Contains(s, "NOTIFICATION") || strings.Contains(s, "TEMPLATE"):
		return "NOTIFICATION"
	case strings.HasPrefix(s, "WORKFLOW"):
		return "WORKFLOW"
	case strings.HasPrefix(s, "CONVERSION"):
		return "ADS"
	case strings.Contains(s, "LEAD") || strings.Contains(s, "NOT_FOUND"):
		return "BUSINESS"
	default:
		return "OTHER"
	}
}
