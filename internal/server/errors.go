package server

import (
	"errors"
	"net/http"

	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, rctidomain.ErrInvalidRctiID),
		errors.Is(err, rctidomain.ErrInvalidDriver),
		errors.Is(err, rctidomain.ErrInvalidWeekEnding),
		errors.Is(err, rctidomain.ErrInvalidHours),
		errors.Is(err, rctidomain.ErrInvalidRate),
		errors.Is(err, rctidomain.ErrInvalidGstStatus),
		errors.Is(err, rctidomain.ErrInvalidGstMode),
		errors.Is(err, rctidomain.ErrReservedCustomer):
		return true
	case errors.Is(err, deductiondomain.ErrInvalidDeductionID),
		errors.Is(err, deductiondomain.ErrInvalidKind),
		errors.Is(err, deductiondomain.ErrInvalidFrequency),
		errors.Is(err, deductiondomain.ErrInvalidTotalAmount),
		errors.Is(err, deductiondomain.ErrInvalidCycleAmount),
		errors.Is(err, deductiondomain.ErrInvalidStartDate),
		errors.Is(err, deductiondomain.ErrInvalidOverride),
		errors.Is(err, deductiondomain.ErrInvalidDriver):
		return true
	case errors.Is(err, driverdomain.ErrInvalidDriverID),
		errors.Is(err, driverdomain.ErrInvalidName),
		errors.Is(err, driverdomain.ErrInvalidBreak):
		return true
	case errors.Is(err, jobdomain.ErrInvalidDriverID),
		errors.Is(err, jobdomain.ErrInvalidJobDate),
		errors.Is(err, jobdomain.ErrInvalidHours),
		errors.Is(err, jobdomain.ErrInvalidRate):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, rctidomain.ErrRctiExists),
		errors.Is(err, rctidomain.ErrRctiNotDraft),
		errors.Is(err, rctidomain.ErrRctiNotFinalised),
		errors.Is(err, rctidomain.ErrRctiPaid),
		errors.Is(err, deductiondomain.ErrDeductionNotActive),
		errors.Is(err, deductiondomain.ErrDeductionHasHistory):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, rctidomain.ErrRctiNotFound),
		errors.Is(err, rctidomain.ErrLineNotFound),
		errors.Is(err, deductiondomain.ErrDeductionNotFound),
		errors.Is(err, driverdomain.ErrDriverNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
