// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"edu-content-workers/internal/common/llmjson"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Model response errors, one per llmjson failure reason.
const (
	ErrCodeNoOpeningBrace       ErrorCode = "NO_OPENING_BRACE"
	ErrCodeNoClosingBrace       ErrorCode = "NO_CLOSING_BRACE"
	ErrCodeUnparseable          ErrorCode = "UNPARSEABLE"
	ErrCodeSalvageInsufficient  ErrorCode = "SALVAGE_INSUFFICIENT"
	ErrCodeTooFewValidItems     ErrorCode = "TOO_FEW_VALID_ITEMS"
	ErrCodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
)

// Generator errors
const (
	ErrCodeGeneratorUnavailable ErrorCode = "GENERATOR_UNAVAILABLE"
	ErrCodeLLMTimeout           ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestFailed     ErrorCode = "LLM_REQUEST_FAILED"
)

// Input and storage errors
const (
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDraftNotFound        ErrorCode = "DRAFT_NOT_FOUND"
	ErrCodeDraftStoreFailed     ErrorCode = "DRAFT_STORE_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Workflow engine errors
const (
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
// userMessage is what a client UI should show.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
		"userMessage":  UserMessage(ErrorCode(e.Code)),
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// FromExtraction maps an llmjson failure to a StandardError. Any other error
// becomes INTERNAL_ERROR.
func FromExtraction(err error) *StandardError {
	var f *llmjson.Failure
	if !stderrors.As(err, &f) {
		return NewInternalError(err)
	}

	stdErr := &StandardError{
		Code:      ErrorCode(f.Reason),
		Message:   UserMessage(ErrorCode(f.Reason)),
		Details:   f.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{},
		Timestamp: time.Now().UTC(),
	}

	switch f.Reason {
	case llmjson.ReasonTooFewValidItems, llmjson.ReasonSalvageInsufficient:
		stdErr.Metadata["validItems"] = f.Valid
		stdErr.Metadata["requiredItems"] = f.Required
	case llmjson.ReasonMissingRequiredField:
		stdErr.Metadata["missingFields"] = f.Missing
	case llmjson.ReasonUnparseable:
		stdErr.Metadata["responseHead"] = f.Head
		stdErr.Metadata["responseTail"] = f.Tail
	}
	return stdErr
}

// NewGeneratorUnavailableError is returned when no text generator is configured.
func NewGeneratorUnavailableError(feature string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeneratorUnavailable,
		Message:   "Text generation is not configured",
		Details:   fmt.Sprintf("feature: %s", feature),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError creates a retryable LLM timeout error.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Text generation timeout",
		Details:   fmt.Sprintf("generation call exceeded %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMRequestFailedError creates a retryable generation API error.
func NewLLMRequestFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMRequestFailed,
		Message:   "Text generation API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError creates a non-retryable job input error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResourceNotFoundError is also used when a resource belongs to another user.
func NewResourceNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftNotFoundError covers both unknown and expired drafts.
func NewDraftNotFoundError(draftID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftNotFound,
		Message:   "Draft not found or expired",
		Details:   fmt.Sprintf("draftId: %s", draftID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftStoreFailedError creates a retryable draft store error.
func NewDraftStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftStoreFailed,
		Message:   "Draft store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("%s is unavailable", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("%s timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. BPMN Mapping & Retries
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary
// events. All model response failures share one boundary event.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNoOpeningBrace:       "AI_RESPONSE_INVALID",
	ErrCodeNoClosingBrace:       "AI_RESPONSE_INVALID",
	ErrCodeUnparseable:          "AI_RESPONSE_INVALID",
	ErrCodeSalvageInsufficient:  "AI_RESPONSE_INVALID",
	ErrCodeTooFewValidItems:     "AI_RESPONSE_INVALID",
	ErrCodeMissingRequiredField: "AI_RESPONSE_INVALID",
	ErrCodeGeneratorUnavailable: "GENERATOR_UNAVAILABLE",
	ErrCodeLLMTimeout:           "LLM_TIMEOUT",
	ErrCodeLLMRequestFailed:     "LLM_REQUEST_FAILED",
	ErrCodeInvalidInput:         "INVALID_INPUT",
	ErrCodeDatabaseInsertFailed: "DATABASE_INSERT_FAILED",
	ErrCodeQueryExecutionFailed: "QUERY_EXECUTION_FAILED",
	ErrCodeResourceNotFound:     "RESOURCE_NOT_FOUND",
	ErrCodeDraftNotFound:        "DRAFT_NOT_FOUND",
	ErrCodeDraftStoreFailed:     "DRAFT_STORE_FAILED",
	ErrCodeExternalService:      "EXTERNAL_SERVICE_ERROR",
	ErrCodeTimeout:              "TIMEOUT_ERROR",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMRequestFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDraftStoreFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeNoOpeningBrace,
		ErrCodeNoClosingBrace,
		ErrCodeUnparseable,
		ErrCodeSalvageInsufficient,
		ErrCodeTooFewValidItems,
		ErrCodeMissingRequiredField:
		return 2 // a fresh generation usually parses

	case ErrCodeLLMTimeout, ErrCodeTimeout:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		"userMessage":       UserMessage(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// UserMessage is the text shown to the end user for a code.
func UserMessage(code ErrorCode) string {
	switch code {
	case ErrCodeNoOpeningBrace, ErrCodeNoClosingBrace, ErrCodeUnparseable, "AI_RESPONSE_INVALID":
		return "The AI response could not be understood, please retry"
	case ErrCodeSalvageInsufficient:
		return "The AI response was damaged and too little of it could be recovered, please retry"
	case ErrCodeTooFewValidItems:
		return "The AI returned too few usable items, please retry"
	case ErrCodeMissingRequiredField:
		return "The AI response is missing required fields, please retry"
	case ErrCodeGeneratorUnavailable:
		return "AI generation is currently unavailable"
	case ErrCodeLLMTimeout:
		return "The AI service took too long to answer, please retry later"
	case ErrCodeLLMRequestFailed:
		return "The AI service is not responding, please retry later"
	case ErrCodeInvalidInput:
		return "The request is invalid"
	case ErrCodeResourceNotFound:
		return "The requested item was not found"
	case ErrCodeDraftNotFound:
		return "The draft has expired, please generate it again"
	default:
		return "Something went wrong, please retry later"
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeNoOpeningBrace, ErrCodeNoClosingBrace, ErrCodeUnparseable,
		ErrCodeSalvageInsufficient, ErrCodeTooFewValidItems, ErrCodeMissingRequiredField:
		return "AI_RESPONSE"
	}

	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "GENERATOR"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "DRAFT"):
		return "DRAFT"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
