package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"freight/internal/service"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    service.Code      `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal causes are logged and never sent to the client.
func respondError(c *gin.Context, err error) {
	code := service.CodeOf(err)
	body := ErrorBody{Code: code, Message: "an internal error occurred"}

	var se *service.Error
	if errors.As(err, &se) {
		body.Message = se.Message
		body.Fields = se.Fields
	} else if code == service.CodeNotFound {
		body.Message = "not found"
	}
	if code == service.CodeInternal {
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
	}

	c.JSON(mapErrorToHTTPStatus(code), ErrorResponse{Error: body})
}

// respondBadRequest sends a validation error for a malformed request.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Code: service.CodeValidation, Message: msg}})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service error codes to HTTP status codes.
func mapErrorToHTTPStatus(code service.Code) int {
	switch code {
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
