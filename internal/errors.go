package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeMissingIdentity  ErrorCode = "MISSING_IDENTITY"

	ErrCodeBillerNotFound ErrorCode = "BILLER_NOT_FOUND"
	ErrCodeBillerInactive ErrorCode = "BILLER_INACTIVE"

	ErrCodeClosingNotFound      ErrorCode = "CLOSING_NOT_FOUND"
	ErrCodeClosingNotApproved   ErrorCode = "CLOSING_NOT_APPROVED"
	ErrCodeInvalidClosingStatus ErrorCode = "INVALID_CLOSING_STATUS"
	ErrCodeClosingOwnerMismatch ErrorCode = "CLOSING_OWNER_MISMATCH"

	ErrCodeInvoiceNotFound          ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeInvoiceAlreadyGenerated  ErrorCode = "INVOICE_ALREADY_GENERATED"
	ErrCodeInvoiceNumberConflict    ErrorCode = "INVOICE_NUMBER_CONFLICT"
	ErrCodeInvoicePersistFailed     ErrorCode = "INVOICE_PERSIST_FAILED"
	ErrCodeInvoiceLocked            ErrorCode = "INVOICE_LOCKED"
	ErrCodeInvalidInvoiceStatus     ErrorCode = "INVALID_INVOICE_STATUS"
	ErrCodeInvalidTaxPaymentStatus  ErrorCode = "INVALID_TAX_PAYMENT_STATUS"
	ErrCodeDocumentGenerationFailed ErrorCode = "DOCUMENT_GENERATION_FAILED"
	ErrCodeDocumentNotFound         ErrorCode = "DOCUMENT_NOT_FOUND"

	ErrCodeAdvanceNotFound ErrorCode = "ADVANCE_NOT_FOUND"
	ErrCodeAdvanceConsumed ErrorCode = "ADVANCE_CONSUMED"

	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so a wrapped copy of a
// sentinel still satisfies errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Wrap returns a copy of e with cause attached. Sentinels stay untouched.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors([]ValidationError{{Field: field, Message: message, Code: string(code)}})
}

func NewValidationFieldErrors(errs []ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: errs},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

var (
	ErrMissingIdentity = NewValidationError("biller identity is required", ErrCodeMissingIdentity)

	ErrBillerNotFound = NewNotFoundError("Biller not found", ErrCodeBillerNotFound)
	ErrBillerInactive = NewForbiddenError("Biller account is inactive", ErrCodeBillerInactive)

	ErrClosingNotFound      = NewNotFoundError("Work period closing not found", ErrCodeClosingNotFound)
	ErrClosingNotApproved   = NewValidationError("Work period closing is not approved", ErrCodeClosingNotApproved)
	ErrInvalidClosingStatus = NewValidationError("invalid closing status for this operation", ErrCodeInvalidClosingStatus)
	ErrClosingOwnerMismatch = NewValidationError("Work period closing belongs to another biller", ErrCodeClosingOwnerMismatch)

	ErrInvoiceNotFound          = NewNotFoundError("Invoice not found", ErrCodeInvoiceNotFound)
	ErrInvoiceAlreadyGenerated  = NewConflictError("An invoice has already been generated for this work period", ErrCodeInvoiceAlreadyGenerated)
	ErrInvoiceNumberConflict    = NewConflictError("Could not allocate a free invoice number", ErrCodeInvoiceNumberConflict)
	ErrInvoicePersistFailed     = &AppError{Type: ErrorTypeInternal, Code: ErrCodeInvoicePersistFailed, Message: "Failed to save invoice", StatusCode: http.StatusInternalServerError}
	ErrInvoiceLocked            = NewConflictError("Invoice is locked", ErrCodeInvoiceLocked)
	ErrInvalidInvoiceStatus     = NewValidationError("invalid invoice status for this operation", ErrCodeInvalidInvoiceStatus)
	ErrInvalidTaxPaymentStatus  = NewValidationError("invalid transaction tax payment status transition", ErrCodeInvalidTaxPaymentStatus)
	ErrDocumentGenerationFailed = NewExternalError("Invoice saved but document generation failed", ErrCodeDocumentGenerationFailed)
	ErrDocumentNotFound         = NewNotFoundError("Invoice document not found", ErrCodeDocumentNotFound)

	ErrAdvanceNotFound = NewNotFoundError("Advance not found", ErrCodeAdvanceNotFound)
	ErrAdvanceConsumed = NewConflictError("Advance has already been applied to an invoice", ErrCodeAdvanceConsumed)

	ErrUnauthorizedAccess = NewForbiddenError("unauthorized access", ErrCodeUnauthorizedAccess)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
