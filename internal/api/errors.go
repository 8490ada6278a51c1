package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/internal/model"
	"example.com/freightlink/services/marketplace/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound       = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrUnauthorized   = &Error{Message: "Unauthorized", StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	ErrForbidden      = &Error{Message: "Forbidden", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
)

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}

// WriteError maps a domain error onto the HTTP response
func WriteError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("Unhandled error")
		c.JSON(status, ErrorResponse{Message: "Internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Message: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.Code
	}

	var notFound *service.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, "NOT_FOUND"
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, "VALIDATION_ERROR"
	}

	var forbidden *service.ForbiddenError
	if errors.As(err, &forbidden) {
		return http.StatusForbidden, "FORBIDDEN"
	}

	var notAvailable *service.LoadNotAvailableError
	if errors.As(err, &notAvailable) {
		return http.StatusConflict, "LOAD_NOT_AVAILABLE"
	}

	var alreadyAssigned *service.LoadAlreadyAssignedError
	if errors.As(err, &alreadyAssigned) {
		return http.StatusConflict, "LOAD_ALREADY_ASSIGNED"
	}

	var truckBusy *service.TruckBusyError
	if errors.As(err, &truckBusy) {
		return http.StatusConflict, "TRUCK_BUSY"
	}

	var duplicate *service.DuplicateProposalError
	if errors.As(err, &duplicate) {
		return http.StatusConflict, "DUPLICATE_PROPOSAL"
	}

	var expired *service.ProposalExpiredError
	if errors.As(err, &expired) {
		return http.StatusGone, "PROPOSAL_EXPIRED"
	}

	var notPending *service.ProposalNotPendingError
	if errors.As(err, &notPending) {
		return http.StatusConflict, "PROPOSAL_NOT_PENDING"
	}

	var balance *service.InsufficientBalanceError
	if errors.As(err, &balance) {
		return http.StatusPreconditionFailed, "INSUFFICIENT_BALANCE"
	}

	var terminal *model.TerminalStatusError
	if errors.As(err, &terminal) {
		return http.StatusConflict, "TERMINAL_STATUS"
	}

	var illegal *model.IllegalTransitionError
	if errors.As(err, &illegal) {
		return http.StatusConflict, "ILLEGAL_TRANSITION"
	}

	var roleDenied *model.RoleNotAllowedError
	if errors.As(err, &roleDenied) {
		return http.StatusForbidden, "ROLE_NOT_ALLOWED"
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
