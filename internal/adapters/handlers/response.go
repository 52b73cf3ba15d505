package handlers

import (
	"net/http"

	"github.com/iwtcode/hexapodService/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse возвращает стандартизированный ответ с ошибкой
func (h *Handler) ErrorResponse(c *gin.Context, err error, statusCode int, message string, showError bool) {
	errorMessage := message
	if showError && err != nil {
		errorMessage = message + ": " + err.Error()
	}

	if statusCode >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err, "statusCode", statusCode)
	} else {
		h.logger.Warn(message, "error", err, "statusCode", statusCode)
	}
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    statusCode,
			"message": errorMessage,
		},
	})
}

// BadRequest возвращает ошибку 400
func (h *Handler) BadRequest(c *gin.Context, err error, message string) {
	if message == "" {
		message = errors.BadRequest
	}
	h.ErrorResponse(c, err, http.StatusBadRequest, message, true)
}

// InternalError возвращает ошибку 500
func (h *Handler) InternalError(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusInternalServerError, errors.InternalServerError, false)
}

// NotFound возвращает ошибку 404
func (h *Handler) NotFound(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusNotFound, errors.NotFound, true)
}

// DeviceError сопоставляет ошибку устройства или реестра с HTTP статусом.
func (h *Handler) DeviceError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	switch status {
	case http.StatusInternalServerError:
		h.InternalError(c, err)
	case http.StatusNotFound:
		h.NotFound(c, err)
	case http.StatusConflict:
		h.ErrorResponse(c, err, status, errors.Conflict, true)
	case http.StatusUnprocessableEntity:
		h.ErrorResponse(c, err, status, errors.UnprocessableEntity, true)
	case http.StatusBadGateway:
		h.ErrorResponse(c, err, status, errors.BadGateway, true)
	case http.StatusGatewayTimeout:
		h.ErrorResponse(c, err, status, errors.GatewayTimeout, true)
	default:
		h.ErrorResponse(c, err, status, http.StatusText(status), true)
	}
}
