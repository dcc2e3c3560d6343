package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Stage error codes. Each pipeline failure is tagged with the stage it arose
// in so the client re-invokes only that stage.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeExtractionFailed     = "EXTRACTION_FAILED"
	CodeAnalysisFailed       = "ANALYSIS_FAILED"
	CodeDraftingFailed       = "DRAFTING_FAILED"
	CodeMalformedModelOutput = "MALFORMED_MODEL_OUTPUT"
)

// RetryScope tells the client which action retries a failed stage.
type RetryScope string

const (
	RetryScopeUpload  RetryScope = "upload"
	RetryScopeRefresh RetryScope = "refresh"
	RetryScopeLetter  RetryScope = "letter"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewStageError wraps a pipeline stage failure with its retry routing.
func NewStageError(code string, scope RetryScope, message string, err error) error {
	return &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"retry_scope": scope},
		Err:        err,
	}
}

func NewExtractionFailed(err error) error {
	return NewStageError(CodeExtractionFailed, RetryScopeUpload, "evidence extraction failed", err)
}

func NewAnalysisFailed(scope RetryScope, err error) error {
	return NewStageError(CodeAnalysisFailed, scope, "policy analysis failed", err)
}

func NewDraftingFailed(err error) error {
	return NewStageError(CodeDraftingFailed, RetryScopeLetter, "letter drafting failed", err)
}

// NewMalformedModelOutput reports model text that could not be coerced into
// a structured record. The raw text is preserved for diagnostics.
func NewMalformedModelOutput(raw string) error {
	return &DomainError{
		Code:       CodeMalformedModelOutput,
		Message:    "model response did not contain a parseable JSON object",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"raw": raw},
	}
}

// IsStageCode reports whether err is a DomainError with the given code.
func IsStageCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
