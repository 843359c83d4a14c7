package models

import (
	"fmt"
	"net/http"
)

// ErrorCode - машинно-читаемый код ошибки.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "invalid_request"
	CodeNotFound            ErrorCode = "not_found"
	CodeForbidden           ErrorCode = "forbidden"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeInvalidStatus       ErrorCode = "invalid_status"
	CodeAlreadyApproved     ErrorCode = "already_approved"
	CodeAlreadyClosed       ErrorCode = "already_closed"
	CodeNotPublished        ErrorCode = "not_published"
	CodeDeadlinePassed      ErrorCode = "deadline_passed"
	CodeInvalidAmount       ErrorCode = "invalid_amount"
	CodeInvalidCurrency     ErrorCode = "invalid_currency"
	CodeMissingDeliveryDate ErrorCode = "missing_delivery_date"
	CodeMissingProposal     ErrorCode = "missing_proposal"
	CodeDocumentsIncomplete ErrorCode = "documents_incomplete"
	CodeDocumentsInvalid    ErrorCode = "documents_invalid"
	CodeInputsIncomplete    ErrorCode = "inputs_incomplete"
	CodeInvalidSignature    ErrorCode = "invalid_signature"
	CodeDuplicate           ErrorCode = "duplicate"
	CodeInternal            ErrorCode = "internal_error"
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError - ошибка 400 с кодом invalid_request.
func ValidationError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, CodeValidation, fmt.Sprintf(format, args...))
}

// NotFoundError - ошибка 404, запись не найдена.
func NotFoundError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

// ConflictError - ошибка 409 с заданным кодом.
func ConflictError(code ErrorCode, format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, code, fmt.Sprintf(format, args...))
}

// InternalError - ошибка 500 без подробностей.
func InternalError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// ForbiddenError - ошибка 403, действие запрещено.
func ForbiddenError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, CodeForbidden, fmt.Sprintf(format, args...))
}

// UnauthorizedError - ошибка 401, пользователь не определен.
func UnauthorizedError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, CodeUnauthorized, fmt.Sprintf(format, args...))
}
