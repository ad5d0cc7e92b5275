package api

import (
	"errors"
	"net/http"

	"putik-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func classify(err error) (int, string) {
	var stockErr *service.StockError
	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, "Insufficient stock"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, service.ErrInUse):
		return http.StatusConflict, "Still referenced"
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrNotEditable):
		return http.StatusConflict, "Booking status conflict"
	case errors.Is(err, service.ErrVehicleMismatch):
		return http.StatusConflict, "Vehicle mismatch"
	case errors.Is(err, service.ErrMechanicUnavailable):
		return http.StatusConflict, "Mechanic unavailable"
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "Checkout in progress"
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrPastDate),
		errors.Is(err, service.ErrInvalidStep),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrNoVehicle):
		return http.StatusBadRequest, "Invalid request"
	}
	return http.StatusInternalServerError, "Unable to process request"
}

// respondError writes the error body and records err on the context
func respondError(c *gin.Context, err error) {
	status, msg := classify(err)
	_ = c.Error(err)

	body := gin.H{"error": msg, "details": err.Error()}
	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		body["shortages"] = stockErr.Shortages
	}
	if status >= http.StatusInternalServerError {
		requestLoggerFrom(c).Error("Request failed", zap.Error(err))
		body["details"] = "internal error"
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}
